package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStore implements Store on top of a *gorm.DB (MySQL in production)
type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by gorm
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Members() MemberRepository              { return &memberRepository{db: s.db} }
func (s *gormStore) RefreshTokens() RefreshTokenRepository  { return &refreshTokenRepository{db: s.db} }
func (s *gormStore) ResetTokens() PasswordResetRepository   { return &passwordResetRepository{db: s.db} }
func (s *gormStore) Balances() BalanceRepository            { return &balanceRepository{db: s.db} }
func (s *gormStore) EmergencyFunds() EmergencyFundRepository { return &emergencyFundRepository{db: s.db} }
func (s *gormStore) Transactions() TransactionRepository    { return &transactionRepository{db: s.db} }
func (s *gormStore) Loans() LoanRepository                  { return &loanRepository{db: s.db} }
func (s *gormStore) Guarantors() GuarantorRepository        { return &guarantorRepository{db: s.db} }
func (s *gormStore) Reports() ReportRepository              { return &reportRepository{db: s.db} }

// WithinTransaction runs fn inside a gorm transaction
func (s *gormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// Ping checks the underlying connection
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// forUpdate adds SELECT ... FOR UPDATE
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
