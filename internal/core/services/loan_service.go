package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/pkg/pagination"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LoanService handles loan requests, approvals and guarantors
type LoanService struct {
	store       repositories.Store
	events      EventPublisher
	log         *zap.Logger
	defaultRate decimal.Decimal
	now         clock
}

// NewLoanService creates a new loan service. defaultRate is the monthly
// interest percentage applied to new requests.
func NewLoanService(store repositories.Store, events EventPublisher, defaultRate decimal.Decimal, log *zap.Logger) *LoanService {
	if events == nil {
		events = nopPublisher{}
	}
	return &LoanService{
		store:       store,
		events:      events,
		log:         log,
		defaultRate: defaultRate,
		now:         time.Now,
	}
}

// LoanRequestInput represents a loan request
type LoanRequestInput struct {
	Amount       decimal.Decimal `json:"amount"`
	PeriodMonths int             `json:"period_months"`
	Purpose      string          `json:"purpose"`
}

// LoanSchedule is the repayment breakdown of a loan
type LoanSchedule struct {
	Loan         *models.LoanResponse `json:"loan"`
	Installments []ScheduleRow        `json:"installments"`
	DueAmount    string               `json:"due_amount"`
}

// ScheduleRow is one installment rendered with 2 decimals
type ScheduleRow struct {
	Period    int    `json:"period"`
	Principal string `json:"principal"`
	Interest  string `json:"interest"`
	Payment   string `json:"payment"`
	Remaining string `json:"remaining"`
}

// LoanEvent is published on every loan state change
type LoanEvent struct {
	LoanID     uint      `json:"loan_id"`
	MemberID   uint      `json:"member_id"`
	Amount     string    `json:"amount"`
	Status     string    `json:"status"`
	ActorID    uint      `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DueAmount returns the total repayable on the loan
func DueAmount(loan *models.Loan) decimal.Decimal {
	return domain.CalculateDueAmount(loan.Amount, loan.InterestRate, loan.PeriodMonths)
}

// Request creates a waiting loan for the actor at the default interest rate
func (s *LoanService) Request(ctx context.Context, actor Actor, input *LoanRequestInput) (*models.Loan, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if !domain.ValidLoanTerm(input.PeriodMonths) {
		return nil, domain.ErrInvalidTerm
	}

	loan := &models.Loan{
		MemberID:      actor.ID,
		Amount:        input.Amount,
		InterestRate:  s.defaultRate,
		PeriodMonths:  input.PeriodMonths,
		Status:        string(domain.LoanWaiting),
		Purpose:       strings.TrimSpace(input.Purpose),
		DateRequested: s.now(),
	}
	if err := s.store.Loans().Create(ctx, loan); err != nil {
		return nil, err
	}

	s.log.Info("loan requested",
		zap.Uint("loan_id", loan.ID),
		zap.Uint("member_id", loan.MemberID),
		zap.String("amount", loan.Amount.StringFixed(2)),
		zap.Int("period_months", loan.PeriodMonths),
	)
	s.publish(ctx, EventLoanRequested, loan, actor.ID)

	return loan, nil
}

// Approve moves a waiting loan to performing. No funds move through the ledger.
func (s *LoanService) Approve(ctx context.Context, actor Actor, id uint) (*models.Loan, error) {
	loan, err := s.transition(ctx, actor, id, domain.LoanWaiting, domain.LoanPerforming, func(l *models.Loan, now time.Time) {
		approver := actor.ID
		l.ApprovedBy = &approver
		l.DateApproved = &now
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventLoanApproved, loan, actor.ID)
	return loan, nil
}

// Reject moves a waiting loan to rejected
func (s *LoanService) Reject(ctx context.Context, actor Actor, id uint) (*models.Loan, error) {
	loan, err := s.transition(ctx, actor, id, domain.LoanWaiting, domain.LoanRejected, nil)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventLoanRejected, loan, actor.ID)
	return loan, nil
}

// MarkPaid moves a performing loan to paid
func (s *LoanService) MarkPaid(ctx context.Context, actor Actor, id uint) (*models.Loan, error) {
	loan, err := s.transition(ctx, actor, id, domain.LoanPerforming, domain.LoanPaid, nil)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventLoanPaid, loan, actor.ID)
	return loan, nil
}

func (s *LoanService) transition(ctx context.Context, actor Actor, id uint, from, to domain.LoanStatus, stamp func(*models.Loan, time.Time)) (*models.Loan, error) {
	if !actor.Can(domain.CapApproveLoans) {
		return nil, domain.ErrForbidden
	}

	var updated *models.Loan
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		loan, err := tx.Loans().GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, domain.ErrLoanNotFound)
		}
		if domain.LoanStatus(loan.Status) != from {
			return domain.ErrAlreadyProcessed
		}

		loan.Status = string(to)
		if stamp != nil {
			stamp(loan, s.now())
		}
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return err
		}

		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("loan status changed",
		zap.Uint("loan_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Uint("actor_id", actor.ID),
	)
	return updated, nil
}

// Get returns a loan visible to the actor: the borrower, a guarantor, or a loan officer
func (s *LoanService) Get(ctx context.Context, actor Actor, id uint) (*models.Loan, error) {
	loan, err := s.store.Loans().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrLoanNotFound)
	}
	if loan.MemberID == actor.ID || actor.Can(domain.CapViewAllLoans) {
		return loan, nil
	}

	guarantors, err := s.store.Guarantors().ListByLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, g := range guarantors {
		if g.MemberID == actor.ID {
			return loan, nil
		}
	}
	return nil, domain.ErrForbidden
}

// Schedule returns the installment breakdown of a loan
func (s *LoanService) Schedule(ctx context.Context, actor Actor, id uint) (*LoanSchedule, error) {
	loan, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	due := DueAmount(loan)
	return &LoanSchedule{
		Loan:         loan.ToResponse(due),
		Installments: renderSchedule(loan.Amount, loan.InterestRate, loan.PeriodMonths),
		DueAmount:    due.StringFixed(2),
	}, nil
}

// LoanQuote previews a loan before it is requested
type LoanQuote struct {
	Amount       string        `json:"amount"`
	InterestRate string        `json:"interest_rate"`
	PeriodMonths int           `json:"period_months"`
	DueAmount    string        `json:"due_amount"`
	Installments []ScheduleRow `json:"installments"`
}

// Quote computes the due amount and schedule of a prospective loan at the
// default interest rate without persisting anything
func (s *LoanService) Quote(input *LoanRequestInput) (*LoanQuote, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if !domain.ValidLoanTerm(input.PeriodMonths) {
		return nil, domain.ErrInvalidTerm
	}

	due := domain.CalculateDueAmount(input.Amount, s.defaultRate, input.PeriodMonths)
	return &LoanQuote{
		Amount:       input.Amount.StringFixed(2),
		InterestRate: s.defaultRate.StringFixed(2),
		PeriodMonths: input.PeriodMonths,
		DueAmount:    due.StringFixed(2),
		Installments: renderSchedule(input.Amount, s.defaultRate, input.PeriodMonths),
	}, nil
}

func renderSchedule(principal, rate decimal.Decimal, months int) []ScheduleRow {
	rows := domain.AmortizationSchedule(principal, rate, months)
	out := make([]ScheduleRow, len(rows))
	for i, r := range rows {
		out[i] = ScheduleRow{
			Period:    r.Period,
			Principal: r.Principal.StringFixed(2),
			Interest:  r.Interest.StringFixed(2),
			Payment:   r.Payment.StringFixed(2),
			Remaining: r.Remaining.StringFixed(2),
		}
	}
	return out
}

// AddGuarantor records that memberID vouches for the loan. The borrower or a
// loan officer may add guarantors; a member cannot guarantee the same loan twice.
func (s *LoanService) AddGuarantor(ctx context.Context, actor Actor, loanID, memberID uint) (*models.LoanGuarantor, error) {
	loan, err := s.store.Loans().GetByID(ctx, loanID)
	if err != nil {
		return nil, notFound(err, domain.ErrLoanNotFound)
	}
	if loan.MemberID != actor.ID && !actor.Can(domain.CapApproveLoans) {
		return nil, domain.ErrForbidden
	}
	if memberID == loan.MemberID {
		return nil, domain.ErrSelfGuarantee
	}
	if _, err := s.store.Members().GetByID(ctx, memberID); err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}

	g := &models.LoanGuarantor{LoanID: loanID, MemberID: memberID}
	if err := s.store.Guarantors().Create(ctx, g); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrGuarantorExists
		}
		return nil, err
	}

	s.log.Info("guarantor added", zap.Uint("loan_id", loanID), zap.Uint("member_id", memberID))
	return g, nil
}

// ListGuarantors lists guarantors of a loan visible to the actor
func (s *LoanService) ListGuarantors(ctx context.Context, actor Actor, loanID uint) ([]*models.LoanGuarantor, error) {
	if _, err := s.Get(ctx, actor, loanID); err != nil {
		return nil, err
	}
	return s.store.Guarantors().ListByLoan(ctx, loanID)
}

// ListMine lists the actor's own loans
func (s *LoanService) ListMine(ctx context.Context, actor Actor, params *pagination.Params) ([]*models.Loan, int64, error) {
	self := actor.ID
	return s.store.Loans().List(ctx, repositories.LoanFilter{MemberID: &self}, params.Offset, params.Limit)
}

// List lists all loans, optionally by status
func (s *LoanService) List(ctx context.Context, actor Actor, status string, params *pagination.Params) ([]*models.Loan, int64, error) {
	if !actor.Can(domain.CapViewAllLoans) {
		return nil, 0, domain.ErrForbidden
	}

	filter := repositories.LoanFilter{}
	if status != "" {
		st := domain.LoanStatus(strings.ToLower(status))
		if !st.Valid() {
			return nil, 0, domain.ErrInvalidInput
		}
		filter.Status = string(st)
	}
	return s.store.Loans().List(ctx, filter, params.Offset, params.Limit)
}

// ListGuaranteed lists loans the actor guarantees
func (s *LoanService) ListGuaranteed(ctx context.Context, actor Actor) ([]*models.Loan, error) {
	return s.store.Loans().ListGuaranteedBy(ctx, actor.ID)
}

func (s *LoanService) publish(ctx context.Context, key string, loan *models.Loan, actorID uint) {
	event := LoanEvent{
		LoanID:     loan.ID,
		MemberID:   loan.MemberID,
		Amount:     loan.Amount.StringFixed(2),
		Status:     loan.Status,
		ActorID:    actorID,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, key, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("routing_key", key), zap.Error(err))
	}
}
