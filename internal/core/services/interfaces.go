package services

import (
	"context"
	"errors"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/core/domain"

	"gorm.io/gorm"
)

// EventPublisher publishes domain events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// CodeSender delivers a password reset code to a member
type CodeSender interface {
	SendResetCode(ctx context.Context, member *models.Member, code string) error
}

// Event routing keys
const (
	EventTransactionCreated  = "transaction.created"
	EventTransactionApproved = "transaction.approved"
	EventTransactionRejected = "transaction.rejected"
	EventLoanRequested       = "loan.requested"
	EventLoanApproved        = "loan.approved"
	EventLoanRejected        = "loan.rejected"
	EventLoanPaid            = "loan.paid"
	EventMemberRegistered    = "member.registered"
	EventMemberApproved      = "member.approved"
	EventPasswordResetCode   = "notification.password_reset"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ID   uint
	Role domain.Role
}

// Can reports whether the actor's role grants c
func (a Actor) Can(c domain.Capability) bool {
	return domain.Can(a.Role, c)
}

// notFound maps gorm.ErrRecordNotFound to the given domain error
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// nopPublisher discards events
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// clock is overridden in tests
type clock func() time.Time
