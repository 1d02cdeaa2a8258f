package services

import (
	"context"
	"strings"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/pkg/pagination"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionService handles the pending -> approved | rejected lifecycle
type TransactionService struct {
	store  repositories.Store
	ledger *LedgerService
	events EventPublisher
	log    *zap.Logger
	now    clock
}

// NewTransactionService creates a new transaction service
func NewTransactionService(store repositories.Store, ledger *LedgerService, events EventPublisher, log *zap.Logger) *TransactionService {
	if events == nil {
		events = nopPublisher{}
	}
	return &TransactionService{
		store:  store,
		ledger: ledger,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// CreateTransactionInput represents a deposit, withdrawal or emergency request
type CreateTransactionInput struct {
	MemberID    uint            `json:"member_id"` // zero means the caller
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// TransactionListInput filters transaction listings
type TransactionListInput struct {
	MemberID *uint
	Status   string
	Type     string
}

// TransactionEvent is published on every state change
type TransactionEvent struct {
	TransactionID string    `json:"transaction_id"`
	MemberID      uint      `json:"member_id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	BalanceAfter  string    `json:"balance_after"`
	ActorID       uint      `json:"actor_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Create records a pending transaction. Recording on behalf of another
// member requires CapRecordForMember.
func (s *TransactionService) Create(ctx context.Context, actor Actor, input *CreateTransactionInput) (*models.Transaction, error) {
	memberID := input.MemberID
	if memberID == 0 {
		memberID = actor.ID
	}
	if memberID != actor.ID && !actor.Can(domain.CapRecordForMember) {
		return nil, domain.ErrForbidden
	}

	txType := domain.TransactionType(strings.ToLower(strings.TrimSpace(input.Type)))
	if !txType.Valid() {
		return nil, domain.ErrInvalidType
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if _, err := s.store.Members().GetByID(ctx, memberID); err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}

	t := &models.Transaction{
		MemberID:     memberID,
		Type:         string(txType),
		Amount:       input.Amount,
		Status:       string(domain.TxPending),
		CreatedBy:    actor.ID,
		BalanceAfter: decimal.Zero,
		Description:  strings.TrimSpace(input.Description),
		Date:         s.now(),
	}
	if err := s.store.Transactions().Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info("transaction created",
		zap.String("transaction_id", t.ID),
		zap.Uint("member_id", t.MemberID),
		zap.String("type", t.Type),
		zap.String("amount", t.Amount.StringFixed(2)),
		zap.Uint("created_by", actor.ID),
	)
	s.publish(ctx, EventTransactionCreated, t, actor.ID)

	return t, nil
}

// Approve applies the transaction to the ledger and marks it approved.
// The ledger change, status flip and balance_after snapshot commit together;
// on ErrInsufficientFunds nothing changes and the transaction stays pending.
func (s *TransactionService) Approve(ctx context.Context, actor Actor, id string) (*models.Transaction, error) {
	if !actor.Can(domain.CapApproveTransactions) {
		return nil, domain.ErrForbidden
	}

	var approved *models.Transaction
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		// lock order: transaction row, balance row, emergency fund row
		t, err := tx.Transactions().GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, domain.ErrTransactionNotFound)
		}
		if domain.TransactionStatus(t.Status) != domain.TxPending {
			return domain.ErrAlreadyProcessed
		}

		var bal *models.Balance
		switch domain.TransactionType(t.Type) {
		case domain.TxDeposit:
			bal, err = s.ledger.credit(ctx, tx, t.MemberID, t.Amount)
		case domain.TxWithdrawal:
			bal, err = s.ledger.debit(ctx, tx, t.MemberID, t.Amount)
		case domain.TxEmergency:
			bal, err = s.ledger.debit(ctx, tx, t.MemberID, t.Amount)
			if err == nil {
				_, err = s.ledger.contribute(ctx, tx, t.MemberID, t.Amount)
			}
		default:
			err = domain.ErrInvalidType
		}
		if err != nil {
			return err
		}

		now := s.now()
		approver := actor.ID
		t.Status = string(domain.TxApproved)
		t.BalanceAfter = bal.Balance
		t.ProcessedBy = &approver
		t.ProcessedAt = &now
		if err := tx.Transactions().Update(ctx, t); err != nil {
			return err
		}

		approved = t
		return nil
	})
	if err != nil {
		s.log.Warn("transaction approval failed",
			zap.String("transaction_id", id),
			zap.Uint("actor_id", actor.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("transaction approved",
		zap.String("transaction_id", approved.ID),
		zap.Uint("member_id", approved.MemberID),
		zap.String("type", approved.Type),
		zap.String("balance_after", approved.BalanceAfter.StringFixed(2)),
		zap.Uint("approved_by", actor.ID),
	)
	s.publish(ctx, EventTransactionApproved, approved, actor.ID)

	return approved, nil
}

// Reject marks a pending transaction rejected without touching the ledger
func (s *TransactionService) Reject(ctx context.Context, actor Actor, id string) (*models.Transaction, error) {
	if !actor.Can(domain.CapApproveTransactions) {
		return nil, domain.ErrForbidden
	}

	var rejected *models.Transaction
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		t, err := tx.Transactions().GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, domain.ErrTransactionNotFound)
		}
		if domain.TransactionStatus(t.Status) != domain.TxPending {
			return domain.ErrAlreadyProcessed
		}

		now := s.now()
		processor := actor.ID
		t.Status = string(domain.TxRejected)
		t.ProcessedBy = &processor
		t.ProcessedAt = &now
		if err := tx.Transactions().Update(ctx, t); err != nil {
			return err
		}

		rejected = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transaction rejected",
		zap.String("transaction_id", rejected.ID),
		zap.Uint("rejected_by", actor.ID),
	)
	s.publish(ctx, EventTransactionRejected, rejected, actor.ID)

	return rejected, nil
}

// Get returns a transaction visible to the actor
func (s *TransactionService) Get(ctx context.Context, actor Actor, id string) (*models.Transaction, error) {
	t, err := s.store.Transactions().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound)
	}
	if t.MemberID != actor.ID && !actor.Can(domain.CapViewAllTransactions) {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

// List lists transactions. Without CapViewAllTransactions the actor only sees their own.
func (s *TransactionService) List(ctx context.Context, actor Actor, input *TransactionListInput, params *pagination.Params) ([]*models.Transaction, int64, error) {
	filter := repositories.TransactionFilter{MemberID: input.MemberID}

	if !actor.Can(domain.CapViewAllTransactions) {
		if filter.MemberID != nil && *filter.MemberID != actor.ID {
			return nil, 0, domain.ErrForbidden
		}
		self := actor.ID
		filter.MemberID = &self
	}

	if input.Status != "" {
		status := domain.TransactionStatus(strings.ToLower(input.Status))
		if status != domain.TxPending && !status.IsTerminal() {
			return nil, 0, domain.ErrInvalidInput
		}
		filter.Status = string(status)
	}
	if input.Type != "" {
		txType := domain.TransactionType(strings.ToLower(input.Type))
		if !txType.Valid() {
			return nil, 0, domain.ErrInvalidType
		}
		filter.Type = string(txType)
	}

	return s.store.Transactions().List(ctx, filter, params.Offset, params.Limit)
}

// ListMine lists the actor's own transactions
func (s *TransactionService) ListMine(ctx context.Context, actor Actor, params *pagination.Params) ([]*models.Transaction, int64, error) {
	self := actor.ID
	return s.List(ctx, actor, &TransactionListInput{MemberID: &self}, params)
}

// publish is best-effort; a broker failure never fails the operation
func (s *TransactionService) publish(ctx context.Context, key string, t *models.Transaction, actorID uint) {
	event := TransactionEvent{
		TransactionID: t.ID,
		MemberID:      t.MemberID,
		Type:          t.Type,
		Amount:        t.Amount.StringFixed(2),
		Status:        t.Status,
		BalanceAfter:  t.BalanceAfter.StringFixed(2),
		ActorID:       actorID,
		OccurredAt:    s.now(),
	}
	if err := s.events.Publish(ctx, key, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("routing_key", key), zap.Error(err))
	}
}
