// Package memory is a process-local implementation of repositories.Store.
// It backs STORAGE_DRIVER=memory and the service tests. A single mutex
// serializes every unit of work, which stands in for row-level locking.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type data struct {
	seq           uint
	members       map[uint]models.Member
	refreshTokens map[uint]models.RefreshToken
	resetTokens   map[uint]models.PasswordResetToken
	balances      map[uint]models.Balance
	funds         map[uint]models.EmergencyFund
	transactions  map[string]models.Transaction
	loans         map[uint]models.Loan
	guarantors    map[uint]models.LoanGuarantor
}

func newData() *data {
	return &data{
		members:       map[uint]models.Member{},
		refreshTokens: map[uint]models.RefreshToken{},
		resetTokens:   map[uint]models.PasswordResetToken{},
		balances:      map[uint]models.Balance{},
		funds:         map[uint]models.EmergencyFund{},
		transactions:  map[string]models.Transaction{},
		loans:         map[uint]models.Loan{},
		guarantors:    map[uint]models.LoanGuarantor{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		seq:           d.seq,
		members:       cloneMap(d.members),
		refreshTokens: cloneMap(d.refreshTokens),
		resetTokens:   cloneMap(d.resetTokens),
		balances:      cloneMap(d.balances),
		funds:         cloneMap(d.funds),
		transactions:  cloneMap(d.transactions),
		loans:         cloneMap(d.loans),
		guarantors:    cloneMap(d.guarantors),
	}
}

func (d *data) nextID() uint {
	d.seq++
	return d.seq
}

type database struct {
	mu sync.Mutex
	d  *data
}

// Store implements repositories.Store in memory
type Store struct {
	db *database
	tx *data // non-nil inside WithinTransaction
}

var _ repositories.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{db: &database{d: newData()}}
}

// do runs fn against the live data, taking the lock unless already inside a unit of work
func (s *Store) do(fn func(d *data) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.d)
}

// WithinTransaction runs fn against a private copy and publishes it only when fn succeeds
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.d.clone()
	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.d = work
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Members() repositories.MemberRepository              { return memberRepo{s} }
func (s *Store) RefreshTokens() repositories.RefreshTokenRepository  { return refreshTokenRepo{s} }
func (s *Store) ResetTokens() repositories.PasswordResetRepository   { return resetTokenRepo{s} }
func (s *Store) Balances() repositories.BalanceRepository            { return balanceRepo{s} }
func (s *Store) EmergencyFunds() repositories.EmergencyFundRepository { return fundRepo{s} }
func (s *Store) Transactions() repositories.TransactionRepository    { return transactionRepo{s} }
func (s *Store) Loans() repositories.LoanRepository                  { return loanRepo{s} }
func (s *Store) Guarantors() repositories.GuarantorRepository        { return guarantorRepo{s} }
func (s *Store) Reports() repositories.ReportRepository              { return reportRepo{s} }

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// ============================================================
// Members & Auth
// ============================================================

type memberRepo struct{ s *Store }

func (r memberRepo) Create(ctx context.Context, member *models.Member) error {
	return r.s.do(func(d *data) error {
		for _, m := range d.members {
			if m.Phone == member.Phone {
				return gorm.ErrDuplicatedKey
			}
		}
		now := time.Now()
		member.ID = d.nextID()
		if member.Role == "" {
			member.Role = string(domain.RoleMember)
		}
		if member.CreatedAt.IsZero() {
			member.CreatedAt = now
		}
		member.UpdatedAt = now
		d.members[member.ID] = *member
		return nil
	})
}

func (r memberRepo) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var out *models.Member
	err := r.s.do(func(d *data) error {
		m, ok := d.members[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

func (r memberRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Member, error) {
	return r.GetByID(ctx, id)
}

func (r memberRepo) GetByPhone(ctx context.Context, phone string) (*models.Member, error) {
	var out *models.Member
	err := r.s.do(func(d *data) error {
		for _, m := range d.members {
			if m.Phone == phone {
				m := m
				out = &m
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r memberRepo) Update(ctx context.Context, member *models.Member) error {
	return r.s.do(func(d *data) error {
		for id, m := range d.members {
			if id != member.ID && m.Phone == member.Phone {
				return gorm.ErrDuplicatedKey
			}
		}
		member.UpdatedAt = time.Now()
		d.members[member.ID] = *member
		return nil
	})
}

func (r memberRepo) List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	var out []*models.Member
	var total int64
	err := r.s.do(func(d *data) error {
		all := make([]*models.Member, 0, len(d.members))
		for _, m := range d.members {
			m := m
			all = append(all, &m)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
		total = int64(len(all))
		out = page(all, offset, limit)
		return nil
	})
	return out, total, err
}

func (r memberRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	_, err := r.GetByPhone(ctx, phone)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

type refreshTokenRepo struct{ s *Store }

func (r refreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.s.do(func(d *data) error {
		token.ID = d.nextID()
		if token.CreatedAt.IsZero() {
			token.CreatedAt = time.Now()
		}
		d.refreshTokens[token.ID] = *token
		return nil
	})
}

func (r refreshTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var out *models.RefreshToken
	err := r.s.do(func(d *data) error {
		for _, t := range d.refreshTokens {
			if t.TokenHash == tokenHash && t.RevokedAt == nil {
				t := t
				out = &t
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r refreshTokenRepo) revokeWhere(match func(models.RefreshToken) bool) error {
	return r.s.do(func(d *data) error {
		now := time.Now()
		for id, t := range d.refreshTokens {
			if t.RevokedAt == nil && match(t) {
				t.RevokedAt = &now
				d.refreshTokens[id] = t
			}
		}
		return nil
	})
}

func (r refreshTokenRepo) Revoke(ctx context.Context, id uint) error {
	return r.revokeWhere(func(t models.RefreshToken) bool { return t.ID == id })
}

func (r refreshTokenRepo) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	return r.revokeWhere(func(t models.RefreshToken) bool { return t.TokenHash == tokenHash })
}

func (r refreshTokenRepo) RevokeAllByMemberID(ctx context.Context, memberID uint) error {
	return r.revokeWhere(func(t models.RefreshToken) bool { return t.MemberID == memberID })
}

func (r refreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.do(func(d *data) error {
		now := time.Now()
		for id, t := range d.refreshTokens {
			if t.ExpiresAt.Before(now) {
				delete(d.refreshTokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type resetTokenRepo struct{ s *Store }

func (r resetTokenRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return r.s.do(func(d *data) error {
		for _, t := range d.resetTokens {
			if t.MemberID == token.MemberID {
				return gorm.ErrDuplicatedKey
			}
		}
		token.ID = d.nextID()
		if token.CreatedAt.IsZero() {
			token.CreatedAt = time.Now()
		}
		d.resetTokens[token.ID] = *token
		return nil
	})
}

func (r resetTokenRepo) GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.PasswordResetToken, error) {
	var out *models.PasswordResetToken
	err := r.s.do(func(d *data) error {
		for _, t := range d.resetTokens {
			if t.MemberID == memberID {
				t := t
				out = &t
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r resetTokenRepo) UpdateAttempts(ctx context.Context, id uint, attempts int) error {
	return r.s.do(func(d *data) error {
		t, ok := d.resetTokens[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		t.Attempts = attempts
		d.resetTokens[id] = t
		return nil
	})
}

func (r resetTokenRepo) DeleteByMemberID(ctx context.Context, memberID uint) error {
	return r.s.do(func(d *data) error {
		for id, t := range d.resetTokens {
			if t.MemberID == memberID {
				delete(d.resetTokens, id)
			}
		}
		return nil
	})
}

func (r resetTokenRepo) Delete(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.s.do(func(d *data) error {
		if _, ok := d.resetTokens[id]; ok {
			delete(d.resetTokens, id)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

func (r resetTokenRepo) DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.do(func(d *data) error {
		for id, t := range d.resetTokens {
			if t.CreatedAt.Before(before) {
				delete(d.resetTokens, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// ============================================================
// Ledger
// ============================================================

type balanceRepo struct{ s *Store }

func (r balanceRepo) Create(ctx context.Context, balance *models.Balance) error {
	return r.s.do(func(d *data) error {
		for _, b := range d.balances {
			if b.MemberID == balance.MemberID {
				return gorm.ErrDuplicatedKey
			}
		}
		balance.ID = d.nextID()
		d.balances[balance.ID] = *balance
		return nil
	})
}

func (r balanceRepo) GetByMemberID(ctx context.Context, memberID uint) (*models.Balance, error) {
	var out *models.Balance
	err := r.s.do(func(d *data) error {
		for _, b := range d.balances {
			if b.MemberID == memberID {
				b := b
				out = &b
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r balanceRepo) GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.Balance, error) {
	return r.GetByMemberID(ctx, memberID)
}

func (r balanceRepo) Update(ctx context.Context, balance *models.Balance) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.balances[balance.ID]; !ok {
			return gorm.ErrRecordNotFound
		}
		d.balances[balance.ID] = *balance
		return nil
	})
}

type fundRepo struct{ s *Store }

func (r fundRepo) Create(ctx context.Context, fund *models.EmergencyFund) error {
	return r.s.do(func(d *data) error {
		for _, f := range d.funds {
			if f.MemberID == fund.MemberID {
				return gorm.ErrDuplicatedKey
			}
		}
		fund.ID = d.nextID()
		fund.UpdatedAt = time.Now()
		d.funds[fund.ID] = *fund
		return nil
	})
}

func (r fundRepo) GetByMemberID(ctx context.Context, memberID uint) (*models.EmergencyFund, error) {
	var out *models.EmergencyFund
	err := r.s.do(func(d *data) error {
		for _, f := range d.funds {
			if f.MemberID == memberID {
				f := f
				out = &f
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r fundRepo) GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.EmergencyFund, error) {
	return r.GetByMemberID(ctx, memberID)
}

func (r fundRepo) Update(ctx context.Context, fund *models.EmergencyFund) error {
	return r.s.do(func(d *data) error {
		fund.UpdatedAt = time.Now()
		d.funds[fund.ID] = *fund
		return nil
	})
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	return r.s.do(func(d *data) error {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if _, ok := d.transactions[tx.ID]; ok {
			return gorm.ErrDuplicatedKey
		}
		d.transactions[tx.ID] = *tx
		return nil
	})
}

func (r transactionRepo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var out *models.Transaction
	err := r.s.do(func(d *data) error {
		t, ok := d.transactions[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r transactionRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r transactionRepo) Update(ctx context.Context, tx *models.Transaction) error {
	return r.s.do(func(d *data) error {
		d.transactions[tx.ID] = *tx
		return nil
	})
}

func (r transactionRepo) List(ctx context.Context, filter repositories.TransactionFilter, offset, limit int) ([]*models.Transaction, int64, error) {
	var out []*models.Transaction
	var total int64
	err := r.s.do(func(d *data) error {
		all := make([]*models.Transaction, 0)
		for _, t := range d.transactions {
			if filter.MemberID != nil && t.MemberID != *filter.MemberID {
				continue
			}
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
			if filter.Type != "" && t.Type != filter.Type {
				continue
			}
			t := t
			all = append(all, &t)
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].Date.Equal(all[j].Date) {
				return all[i].ID > all[j].ID
			}
			return all[i].Date.After(all[j].Date)
		})
		total = int64(len(all))
		out = page(all, offset, limit)
		return nil
	})
	return out, total, err
}

// ============================================================
// Loans
// ============================================================

type loanRepo struct{ s *Store }

func (r loanRepo) Create(ctx context.Context, loan *models.Loan) error {
	return r.s.do(func(d *data) error {
		loan.ID = d.nextID()
		loan.UpdatedAt = time.Now()
		d.loans[loan.ID] = *loan
		return nil
	})
}

func (r loanRepo) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var out *models.Loan
	err := r.s.do(func(d *data) error {
		l, ok := d.loans[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r loanRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r loanRepo) Update(ctx context.Context, loan *models.Loan) error {
	return r.s.do(func(d *data) error {
		loan.UpdatedAt = time.Now()
		d.loans[loan.ID] = *loan
		return nil
	})
}

func sortLoans(loans []*models.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].DateRequested.Equal(loans[j].DateRequested) {
			return loans[i].ID > loans[j].ID
		}
		return loans[i].DateRequested.After(loans[j].DateRequested)
	})
}

func (r loanRepo) List(ctx context.Context, filter repositories.LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	var out []*models.Loan
	var total int64
	err := r.s.do(func(d *data) error {
		all := make([]*models.Loan, 0)
		for _, l := range d.loans {
			if filter.MemberID != nil && l.MemberID != *filter.MemberID {
				continue
			}
			if filter.Status != "" && l.Status != filter.Status {
				continue
			}
			l := l
			all = append(all, &l)
		}
		sortLoans(all)
		total = int64(len(all))
		out = page(all, offset, limit)
		return nil
	})
	return out, total, err
}

func (r loanRepo) ListGuaranteedBy(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	var out []*models.Loan
	err := r.s.do(func(d *data) error {
		out = make([]*models.Loan, 0)
		for _, g := range d.guarantors {
			if g.MemberID != memberID {
				continue
			}
			if l, ok := d.loans[g.LoanID]; ok {
				out = append(out, &l)
			}
		}
		sortLoans(out)
		return nil
	})
	return out, err
}

type guarantorRepo struct{ s *Store }

func (r guarantorRepo) Create(ctx context.Context, g *models.LoanGuarantor) error {
	return r.s.do(func(d *data) error {
		for _, existing := range d.guarantors {
			if existing.LoanID == g.LoanID && existing.MemberID == g.MemberID {
				return gorm.ErrDuplicatedKey
			}
		}
		g.ID = d.nextID()
		if g.CreatedAt.IsZero() {
			g.CreatedAt = time.Now()
		}
		d.guarantors[g.ID] = *g
		return nil
	})
}

func (r guarantorRepo) ListByLoan(ctx context.Context, loanID uint) ([]*models.LoanGuarantor, error) {
	var out []*models.LoanGuarantor
	err := r.s.do(func(d *data) error {
		out = make([]*models.LoanGuarantor, 0)
		for _, g := range d.guarantors {
			if g.LoanID == loanID {
				g := g
				out = append(out, &g)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

// ============================================================
// Reports
// ============================================================

type reportRepo struct{ s *Store }

func (r reportRepo) Summary(ctx context.Context) (*repositories.Summary, error) {
	sum := &repositories.Summary{}
	err := r.s.do(func(d *data) error {
		sum.TotalMembers = int64(len(d.members))
		for _, m := range d.members {
			if !m.Approved {
				sum.PendingMembers++
			}
		}
		for _, b := range d.balances {
			sum.TotalSavings = sum.TotalSavings.Add(b.Balance)
		}
		for _, f := range d.funds {
			sum.TotalEmergencyFund = sum.TotalEmergencyFund.Add(f.Amount)
		}
		for _, t := range d.transactions {
			if t.Status == string(domain.TxPending) {
				sum.PendingTransactions++
			}
		}

		byStatus := map[string]*repositories.LoanStatusTotal{}
		for _, l := range d.loans {
			row, ok := byStatus[l.Status]
			if !ok {
				row = &repositories.LoanStatusTotal{Status: l.Status, Principal: decimal.Zero}
				byStatus[l.Status] = row
			}
			row.Count++
			row.Principal = row.Principal.Add(l.Amount)
		}
		for _, row := range byStatus {
			sum.Loans = append(sum.Loans, *row)
		}
		sort.Slice(sum.Loans, func(i, j int) bool { return sum.Loans[i].Status < sum.Loans[j].Status })
		return nil
	})
	return sum, err
}
