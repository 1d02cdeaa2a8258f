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
	"sacco-backend/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Member service errors
var (
	ErrOldPasswordWrong     = errors.New("old password is incorrect")
	ErrWeakPassword         = errors.New("password must be at least 8 characters and contain letters and digits")
	ErrCannotChangeOwnRole  = errors.New("cannot change your own role")
	ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")
)

// MemberService handles member registration and administration
type MemberService struct {
	store  repositories.Store
	ledger *LedgerService
	events EventPublisher
	log    *zap.Logger
}

// NewMemberService creates a new member service
func NewMemberService(store repositories.Store, ledger *LedgerService, events EventPublisher, log *zap.Logger) *MemberService {
	if events == nil {
		events = nopPublisher{}
	}
	return &MemberService{store: store, ledger: ledger, events: events, log: log}
}

// RegisterInput represents registration input
type RegisterInput struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone"`
	DOB       string  `json:"dob"` // YYYY-MM-DD
	Email     *string `json:"email"`
	Password  string  `json:"password"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Register creates an unapproved, inactive member together with its zero
// balance and zero emergency fund in one transaction
func (s *MemberService) Register(ctx context.Context, input *RegisterInput) (*models.Member, error) {
	phone := strings.TrimSpace(input.Phone)
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if phone == "" || first == "" || last == "" {
		return nil, domain.ErrInvalidInput
	}

	dob, err := time.Parse("2006-01-02", strings.TrimSpace(input.DOB))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	if !password.ValidatePassword(input.Password) {
		return nil, ErrWeakPassword
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		FirstName: first,
		LastName:  last,
		Phone:     phone,
		DOB:       dob,
		Email:     normalizeEmail(input.Email),
		Password:  hashed,
		Role:      string(domain.RoleMember),
		IsActive:  false,
		Approved:  false,
	}

	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		if err := tx.Members().Create(ctx, member); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrMemberAlreadyExists
			}
			return err
		}
		return s.ledger.open(ctx, tx, member.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member registered", zap.Uint("member_id", member.ID), zap.String("phone", member.Phone))
	s.publish(ctx, EventMemberRegistered, member)

	return member, nil
}

// Approve approves and activates a member
func (s *MemberService) Approve(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	if !actor.Can(domain.CapApproveMembers) {
		return nil, domain.ErrForbidden
	}

	member, err := s.changeMember(ctx, memberID, func(tx repositories.Store, m *models.Member) error {
		if m.Approved {
			return domain.ErrAlreadyProcessed
		}
		m.Approved = true
		m.IsActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member approved", zap.Uint("member_id", member.ID), zap.Uint("approved_by", actor.ID))
	s.publish(ctx, EventMemberApproved, member)

	return member, nil
}

// SetRole changes a member's role
func (s *MemberService) SetRole(ctx context.Context, actor Actor, memberID uint, rawRole string) (*models.Member, error) {
	if !actor.Can(domain.CapManageRoles) {
		return nil, domain.ErrForbidden
	}
	if memberID == actor.ID {
		return nil, ErrCannotChangeOwnRole
	}

	role, err := domain.ParseRole(strings.ToUpper(strings.TrimSpace(rawRole)))
	if err != nil {
		return nil, err
	}

	member, err := s.changeMember(ctx, memberID, func(tx repositories.Store, m *models.Member) error {
		m.Role = string(role)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member role changed", zap.Uint("member_id", member.ID), zap.String("role", member.Role))
	return member, nil
}

// Deactivate blocks a member from logging in and revokes their sessions
func (s *MemberService) Deactivate(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	if !actor.Can(domain.CapManageRoles) {
		return nil, domain.ErrForbidden
	}
	if memberID == actor.ID {
		return nil, ErrCannotDeactivateSelf
	}

	member, err := s.changeMember(ctx, memberID, func(tx repositories.Store, m *models.Member) error {
		if !m.IsActive {
			return domain.ErrAlreadyProcessed
		}
		m.IsActive = false
		return tx.RefreshTokens().RevokeAllByMemberID(ctx, m.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member deactivated", zap.Uint("member_id", memberID), zap.Uint("actor_id", actor.ID))
	return member, nil
}

// Reactivate restores login for a previously approved member
func (s *MemberService) Reactivate(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	if !actor.Can(domain.CapManageRoles) {
		return nil, domain.ErrForbidden
	}

	member, err := s.changeMember(ctx, memberID, func(tx repositories.Store, m *models.Member) error {
		if !m.Approved {
			return domain.ErrMemberNotApproved
		}
		if m.IsActive {
			return domain.ErrAlreadyProcessed
		}
		m.IsActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member reactivated", zap.Uint("member_id", memberID), zap.Uint("actor_id", actor.ID))
	return member, nil
}

// changeMember applies fn to the locked member row and saves it in one transaction
func (s *MemberService) changeMember(ctx context.Context, memberID uint, fn func(tx repositories.Store, m *models.Member) error) (*models.Member, error) {
	var member *models.Member
	err := s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		m, err := tx.Members().GetByIDForUpdate(ctx, memberID)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}
		if err := fn(tx, m); err != nil {
			return err
		}
		if err := tx.Members().Update(ctx, m); err != nil {
			return err
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Get returns a member visible to the actor
func (s *MemberService) Get(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	if memberID != actor.ID && !actor.Can(domain.CapViewMembers) {
		return nil, domain.ErrForbidden
	}

	member, err := s.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}
	return member, nil
}

// List lists members with pagination
func (s *MemberService) List(ctx context.Context, actor Actor, params *pagination.Params) ([]*models.Member, int64, error) {
	if !actor.Can(domain.CapViewMembers) {
		return nil, 0, domain.ErrForbidden
	}
	return s.store.Members().List(ctx, params.Offset, params.Limit)
}

// UpdateProfile updates own profile
func (s *MemberService) UpdateProfile(ctx context.Context, memberID uint, input *UpdateProfileInput) (*models.Member, error) {
	member, err := s.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}

	if input.FirstName != nil {
		if v := strings.TrimSpace(*input.FirstName); v != "" {
			member.FirstName = v
		}
	}
	if input.LastName != nil {
		if v := strings.TrimSpace(*input.LastName); v != "" {
			member.LastName = v
		}
	}
	if input.Email != nil {
		member.Email = normalizeEmail(input.Email)
	}

	if err := s.store.Members().Update(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// ChangePassword changes the member's password after checking the old one
func (s *MemberService) ChangePassword(ctx context.Context, memberID uint, input *ChangePasswordInput) error {
	member, err := s.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return notFound(err, domain.ErrMemberNotFound)
	}

	if !password.Verify(input.OldPassword, member.Password) {
		return ErrOldPasswordWrong
	}
	if !password.ValidatePassword(input.NewPassword) {
		return ErrWeakPassword
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	member.Password = hashed
	return s.store.Members().Update(ctx, member)
}

func (s *MemberService) publish(ctx context.Context, key string, m *models.Member) {
	if err := s.events.Publish(ctx, key, m.ToResponse()); err != nil {
		s.log.Warn("failed to publish event", zap.String("routing_key", key), zap.Error(err))
	}
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*email))
	if v == "" {
		return nil
	}
	return &v
}
