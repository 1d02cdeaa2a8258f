package config

import (
	"context"
	"errors"
	"os"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/pkg/password"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	store repositories.Store
	log   *zap.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(store repositories.Store, log *zap.Logger) *Seeder {
	return &Seeder{store: store, log: log}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	s.log.Info("running database seeders")

	if err := s.seedAdmin(ctx); err != nil {
		s.log.Warn("admin seeder skipped", zap.Error(err))
	}
	return nil
}

// seedAdmin creates an approved ADMIN member from ADMIN_PHONE and
// ADMIN_PASSWORD. Development only; production admins are promoted
// through the role endpoint.
func (s *Seeder) seedAdmin(ctx context.Context) error {
	phone := os.Getenv("ADMIN_PHONE")
	pass := os.Getenv("ADMIN_PASSWORD")
	if phone == "" || pass == "" {
		s.log.Debug("ADMIN_PHONE or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	if !password.ValidatePassword(pass) {
		return errors.New("ADMIN_PASSWORD is too weak")
	}

	_, err := s.store.Members().GetByPhone(ctx, phone)
	if err == nil {
		return nil // already seeded
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := password.Hash(pass)
	if err != nil {
		return err
	}

	admin := &models.Member{
		FirstName: "System",
		LastName:  "Admin",
		Phone:     phone,
		DOB:       time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		Password:  hashed,
		Role:      "ADMIN",
		IsActive:  true,
		Approved:  true,
	}

	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Members().Create(ctx, admin); err != nil {
			return err
		}
		if err := tx.Balances().Create(ctx, &models.Balance{
			MemberID:   admin.ID,
			Balance:    decimal.Zero,
			LastEdited: time.Now(),
		}); err != nil {
			return err
		}
		return tx.EmergencyFunds().Create(ctx, &models.EmergencyFund{
			MemberID: admin.ID,
			Amount:   decimal.Zero,
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("admin member created", zap.Uint("member_id", admin.ID), zap.String("phone", admin.Phone))
	return nil
}
