package repositories

import (
	"context"
	"time"

	"sacco-backend/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
)

// Store groups every repository behind one unit of work.
// Implementations return gorm.ErrRecordNotFound for missing rows and
// gorm.ErrDuplicatedKey for unique index violations.
type Store interface {
	Members() MemberRepository
	RefreshTokens() RefreshTokenRepository
	ResetTokens() PasswordResetRepository
	Balances() BalanceRepository
	EmergencyFunds() EmergencyFundRepository
	Transactions() TransactionRepository
	Loans() LoanRepository
	Guarantors() GuarantorRepository
	Reports() ReportRepository

	// WithinTransaction runs fn against a Store bound to a single database
	// transaction. Returning an error rolls every write back.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
}

// MemberRepository defines member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Member, error)
	GetByPhone(ctx context.Context, phone string) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByMemberID(ctx context.Context, memberID uint) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// PasswordResetRepository defines password reset token repository interface
type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	// GetByMemberIDForUpdate locks the member's live token until the surrounding transaction ends
	GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.PasswordResetToken, error)
	UpdateAttempts(ctx context.Context, id uint, attempts int) error
	DeleteByMemberID(ctx context.Context, memberID uint) error
	// Delete removes the token and reports whether a row was removed
	Delete(ctx context.Context, id uint) (bool, error)
	DeleteCreatedBefore(ctx context.Context, before time.Time) (int64, error)
}

// BalanceRepository defines ledger balance repository interface
type BalanceRepository interface {
	Create(ctx context.Context, balance *models.Balance) error
	GetByMemberID(ctx context.Context, memberID uint) (*models.Balance, error)
	// GetByMemberIDForUpdate locks the row until the surrounding transaction ends
	GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.Balance, error)
	Update(ctx context.Context, balance *models.Balance) error
}

// EmergencyFundRepository defines emergency fund repository interface
type EmergencyFundRepository interface {
	Create(ctx context.Context, fund *models.EmergencyFund) error
	GetByMemberID(ctx context.Context, memberID uint) (*models.EmergencyFund, error)
	GetByMemberIDForUpdate(ctx context.Context, memberID uint) (*models.EmergencyFund, error)
	Update(ctx context.Context, fund *models.EmergencyFund) error
}

// TransactionFilter narrows transaction listings. Zero values match all.
type TransactionFilter struct {
	MemberID *uint
	Status   string
	Type     string
}

// TransactionRepository defines transaction repository interface
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) error
	List(ctx context.Context, filter TransactionFilter, offset, limit int) ([]*models.Transaction, int64, error)
}

// LoanFilter narrows loan listings. Zero values match all.
type LoanFilter struct {
	MemberID *uint
	Status   string
}

// LoanRepository defines loan repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.Loan, int64, error)
	ListGuaranteedBy(ctx context.Context, memberID uint) ([]*models.Loan, error)
}

// GuarantorRepository defines loan guarantor repository interface
type GuarantorRepository interface {
	Create(ctx context.Context, g *models.LoanGuarantor) error
	ListByLoan(ctx context.Context, loanID uint) ([]*models.LoanGuarantor, error)
}

// LoanStatusTotal aggregates loans sharing a status
type LoanStatusTotal struct {
	Status    string          `json:"status"`
	Count     int64           `json:"count"`
	Principal decimal.Decimal `json:"principal"`
}

// Summary holds cooperative-wide totals
type Summary struct {
	TotalMembers        int64
	PendingMembers      int64
	TotalSavings        decimal.Decimal
	TotalEmergencyFund  decimal.Decimal
	PendingTransactions int64
	Loans               []LoanStatusTotal
}

// ReportRepository defines aggregate queries for dashboards
type ReportRepository interface {
	Summary(ctx context.Context) (*Summary, error)
}
