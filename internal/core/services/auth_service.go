package services

import (
	"context"
	"errors"
	"strings"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/config"
	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/pkg/jwt"
	"sacco-backend/internal/pkg/password"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// AuthService handles authentication business logic
type AuthService struct {
	store repositories.Store
	cfg   *config.Config
	log   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store repositories.Store, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{store: store, cfg: cfg, log: log}
}

// LoginInput represents login input
type LoginInput struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Member       *models.MemberResponse `json:"member"`
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
}

// Login authenticates a member by phone and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	member, err := s.store.Members().GetByPhone(ctx, strings.TrimSpace(input.Phone))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(input.Password, member.Password) {
		return nil, domain.ErrInvalidCredentials
	}
	if err := checkCanLogin(member); err != nil {
		return nil, err
	}

	resp, err := s.issue(ctx, s.store, member)
	if err != nil {
		return nil, err
	}

	s.log.Info("member logged in", zap.Uint("member_id", member.ID))
	return resp, nil
}

// RefreshToken rotates the refresh token and issues a new access token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	var resp *AuthResponse
	err = s.store.WithinTransaction(ctx, func(tx repositories.Store) error {
		stored, err := tx.RefreshTokens().GetByTokenHash(ctx, password.HashToken(refreshToken))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenRevoked
			}
			return err
		}
		if stored.IsRevoked() {
			return ErrTokenRevoked
		}
		if stored.IsExpired() {
			return domain.ErrTokenExpired
		}
		if stored.MemberID != claims.MemberID {
			return ErrInvalidToken
		}

		member, err := tx.Members().GetByID(ctx, claims.MemberID)
		if err != nil {
			return notFound(err, domain.ErrMemberNotFound)
		}
		if err := checkCanLogin(member); err != nil {
			return err
		}

		// rotation
		if err := tx.RefreshTokens().Revoke(ctx, stored.ID); err != nil {
			return err
		}

		resp, err = s.issue(ctx, tx, member)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("token refreshed", zap.Uint("member_id", claims.MemberID))
	return resp, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.store.RefreshTokens().RevokeByTokenHash(ctx, password.HashToken(refreshToken))
}

// LogoutAll revokes all refresh tokens for a member
func (s *AuthService) LogoutAll(ctx context.Context, memberID uint) error {
	if err := s.store.RefreshTokens().RevokeAllByMemberID(ctx, memberID); err != nil {
		return err
	}

	s.log.Info("all sessions revoked", zap.Uint("member_id", memberID))
	return nil
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret)
}

func checkCanLogin(m *models.Member) error {
	if !m.Approved {
		return domain.ErrMemberNotApproved
	}
	if !m.IsActive {
		return domain.ErrMemberInactive
	}
	return nil
}

// issue generates a token pair and stores the hashed refresh token
func (s *AuthService) issue(ctx context.Context, store repositories.Store, member *models.Member) (*AuthResponse, error) {
	tokens, err := s.generateTokens(member)
	if err != nil {
		return nil, err
	}

	token := &models.RefreshToken{
		MemberID:  member.ID,
		TokenHash: password.HashToken(tokens.RefreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	if err := store.RefreshTokens().Create(ctx, token); err != nil {
		return nil, err
	}

	return &AuthResponse{
		Member:       member.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(member *models.Member) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		member.ID,
		member.Phone,
		member.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		member.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
