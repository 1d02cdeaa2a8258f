package services

import (
	"context"
	"errors"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/core/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerService owns the running balance of each member.
// Balances are only changed through credit and debit.
type LedgerService struct {
	store repositories.Store
	log   *zap.Logger
	now   clock
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store repositories.Store, log *zap.Logger) *LedgerService {
	return &LedgerService{store: store, log: log, now: time.Now}
}

// Credit adds amount to the member's balance and returns the new balance
func (s *LedgerService) Credit(ctx context.Context, memberID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	var result decimal.Decimal
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		bal, err := s.credit(ctx, tx, memberID, amount)
		if err != nil {
			return err
		}
		result = bal.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Debug("balance credited", zap.Uint("member_id", memberID), zap.String("amount", amount.StringFixed(2)))
	return result, nil
}

// Debit subtracts amount from the member's balance and returns the new balance.
// Fails with ErrInsufficientFunds, leaving the balance untouched, when it would go negative.
func (s *LedgerService) Debit(ctx context.Context, memberID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	var result decimal.Decimal
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		bal, err := s.debit(ctx, tx, memberID, amount)
		if err != nil {
			return err
		}
		result = bal.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Debug("balance debited", zap.Uint("member_id", memberID), zap.String("amount", amount.StringFixed(2)))
	return result, nil
}

// GetBalance returns the member's savings balance and emergency fund
func (s *LedgerService) GetBalance(ctx context.Context, memberID uint) (*models.BalanceResponse, error) {
	bal, err := s.store.Balances().GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, domain.ErrBalanceNotFound)
	}

	fund := decimal.Zero
	ef, err := s.store.EmergencyFunds().GetByMemberID(ctx, memberID)
	switch {
	case err == nil:
		fund = ef.Amount
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	return &models.BalanceResponse{
		MemberID:      memberID,
		Balance:       bal.Balance.StringFixed(2),
		EmergencyFund: fund.StringFixed(2),
		LastEdited:    bal.LastEdited,
	}, nil
}

// credit and debit must run inside tx; they lock the balance row first

func (s *LedgerService) credit(ctx context.Context, tx repositories.Store, memberID uint, amount decimal.Decimal) (*models.Balance, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	bal, err := tx.Balances().GetByMemberIDForUpdate(ctx, memberID)
	if err != nil {
		return nil, notFound(err, domain.ErrBalanceNotFound)
	}

	bal.Balance = bal.Balance.Add(amount)
	bal.LastEdited = s.now()
	if err := tx.Balances().Update(ctx, bal); err != nil {
		return nil, err
	}
	return bal, nil
}

func (s *LedgerService) debit(ctx context.Context, tx repositories.Store, memberID uint, amount decimal.Decimal) (*models.Balance, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	bal, err := tx.Balances().GetByMemberIDForUpdate(ctx, memberID)
	if err != nil {
		return nil, notFound(err, domain.ErrBalanceNotFound)
	}

	if bal.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}

	bal.Balance = bal.Balance.Sub(amount)
	bal.LastEdited = s.now()
	if err := tx.Balances().Update(ctx, bal); err != nil {
		return nil, err
	}
	return bal, nil
}

// contribute adds amount to the member's emergency fund, creating the fund if absent
func (s *LedgerService) contribute(ctx context.Context, tx repositories.Store, memberID uint, amount decimal.Decimal) (*models.EmergencyFund, error) {
	fund, err := tx.EmergencyFunds().GetByMemberIDForUpdate(ctx, memberID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		fund = &models.EmergencyFund{MemberID: memberID, Amount: amount}
		if err := tx.EmergencyFunds().Create(ctx, fund); err != nil {
			return nil, err
		}
		return fund, nil
	}

	fund.Amount = fund.Amount.Add(amount)
	if err := tx.EmergencyFunds().Update(ctx, fund); err != nil {
		return nil, err
	}
	return fund, nil
}

// open creates the zero balance and zero emergency fund of a new member
func (s *LedgerService) open(ctx context.Context, tx repositories.Store, memberID uint) error {
	if err := tx.Balances().Create(ctx, &models.Balance{
		MemberID:   memberID,
		Balance:    decimal.Zero,
		LastEdited: s.now(),
	}); err != nil {
		return err
	}
	return tx.EmergencyFunds().Create(ctx, &models.EmergencyFund{
		MemberID: memberID,
		Amount:   decimal.Zero,
	})
}
