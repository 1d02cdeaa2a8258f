package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/pkg/password"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// CodeLength is the number of digits in a reset code
const CodeLength = 6

// ResetHandle is returned by Verify and consumed by Consume
type ResetHandle struct {
	TokenID  uint
	MemberID uint
}

type throttle struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PasswordResetService issues and redeems one-time password reset codes.
// A member holds at most one live code; issuing a new one replaces the old.
// A code is discarded after maxAttempts wrong guesses.
type PasswordResetService struct {
	store        repositories.Store
	sender       CodeSender
	log          *zap.Logger
	ttl          time.Duration
	resendWindow time.Duration
	maxAttempts  int
	now          clock

	mu        sync.Mutex
	throttles map[uint]*throttle
}

// NewPasswordResetService creates a new password reset service
func NewPasswordResetService(store repositories.Store, sender CodeSender, ttl, resendWindow time.Duration, maxAttempts int, log *zap.Logger) *PasswordResetService {
	return &PasswordResetService{
		store:        store,
		sender:       sender,
		log:          log,
		ttl:          ttl,
		resendWindow: resendWindow,
		maxAttempts:  maxAttempts,
		now:          time.Now,
		throttles:    make(map[uint]*throttle),
	}
}

// Issue generates a fresh code for the member owning phone and sends it.
// Delivery is best-effort: a sender failure is logged, not returned.
func (s *PasswordResetService) Issue(ctx context.Context, phone string) error {
	member, err := s.store.Members().GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return notFound(err, domain.ErrMemberNotFound)
	}

	refund, ok := s.reserve(member.ID)
	if !ok {
		return domain.ErrResetThrottled
	}

	code, err := generateSecureOTP(CodeLength)
	if err != nil {
		refund()
		return fmt.Errorf("generate reset code: %w", err)
	}

	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.ResetTokens().DeleteByMemberID(ctx, member.ID); err != nil {
			return err
		}
		return tx.ResetTokens().Create(ctx, &models.PasswordResetToken{
			MemberID:  member.ID,
			Code:      code,
			CreatedAt: s.now(),
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent request won the unique index on member_id
		return domain.ErrResetThrottled
	}
	if err != nil {
		refund()
		return err
	}

	s.log.Info("password reset code issued", zap.Uint("member_id", member.ID))

	if s.sender != nil {
		if err := s.sender.SendResetCode(ctx, member, code); err != nil {
			s.log.Warn("reset code delivery failed", zap.Uint("member_id", member.ID), zap.Error(err))
		}
	}
	return nil
}

// Verify checks the code for the member owning phone. A wrong guess is
// counted against the live code, which is deleted once maxAttempts is reached.
func (s *PasswordResetService) Verify(ctx context.Context, phone, code string) (*ResetHandle, error) {
	member, err := s.store.Members().GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, notFound(err, domain.ErrResetTokenNotFound)
	}

	var (
		handle   *ResetHandle
		rejected error
	)
	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		token, err := tx.ResetTokens().GetByMemberIDForUpdate(ctx, member.ID)
		if err != nil {
			return notFound(err, domain.ErrResetTokenNotFound)
		}
		if s.now().Sub(token.CreatedAt) >= s.ttl {
			return domain.ErrResetTokenExpired
		}

		if subtle.ConstantTimeCompare([]byte(token.Code), []byte(strings.TrimSpace(code))) == 1 {
			handle = &ResetHandle{TokenID: token.ID, MemberID: member.ID}
			return nil
		}

		// returned after commit so the attempt counter persists
		rejected = domain.ErrResetTokenNotFound
		attempts := token.Attempts + 1
		if s.maxAttempts > 0 && attempts >= s.maxAttempts {
			s.log.Warn("reset code discarded after too many attempts", zap.Uint("member_id", member.ID))
			_, err := tx.ResetTokens().Delete(ctx, token.ID)
			return err
		}
		return tx.ResetTokens().UpdateAttempts(ctx, token.ID, attempts)
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}
	return handle, nil
}

// Consume sets the new password and deletes the token. Only one caller can
// consume a given token; later attempts get ErrResetTokenNotFound.
func (s *PasswordResetService) Consume(ctx context.Context, handle *ResetHandle, newPassword string) error {
	if !password.ValidatePassword(newPassword) {
		return ErrWeakPassword
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		deleted, err := tx.ResetTokens().Delete(ctx, handle.TokenID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrResetTokenNotFound
		}

		member, err := tx.Members().GetByID(ctx, handle.MemberID)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}
		member.Password = hashed
		if err := tx.Members().Update(ctx, member); err != nil {
			return err
		}

		return tx.RefreshTokens().RevokeAllByMemberID(ctx, member.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("password reset completed", zap.Uint("member_id", handle.MemberID))
	return nil
}

// Reset verifies and consumes in one call
func (s *PasswordResetService) Reset(ctx context.Context, phone, code, newPassword string) error {
	handle, err := s.Verify(ctx, phone, code)
	if err != nil {
		return err
	}
	return s.Consume(ctx, handle, newPassword)
}

// PurgeExpired deletes codes older than the TTL and forgets idle throttles
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	for id, t := range s.throttles {
		if now.Sub(t.lastSeen) > s.resendWindow {
			delete(s.throttles, id)
		}
	}
	s.mu.Unlock()

	n, err := s.store.ResetTokens().DeleteCreatedBefore(ctx, now.Add(-s.ttl))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return n, nil
}

// reserve takes the member's resend token. The returned refund gives it
// back when the code could not be stored.
func (s *PasswordResetService) reserve(memberID uint) (refund func(), ok bool) {
	if s.resendWindow <= 0 {
		return func() {}, true
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.throttles[memberID]
	if !found {
		t = &throttle{limiter: rate.NewLimiter(rate.Every(s.resendWindow), 1)}
		s.throttles[memberID] = t
	}
	t.lastSeen = now

	r := t.limiter.ReserveN(now, 1)
	if !r.OK() {
		return nil, false
	}
	if r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return nil, false
	}
	return func() { r.CancelAt(now) }, true
}

// generateSecureOTP generates a cryptographically secure numeric code
func generateSecureOTP(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
