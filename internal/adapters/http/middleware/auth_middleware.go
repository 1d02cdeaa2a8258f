package middleware

import (
	"errors"
	"strings"

	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/config"
	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/pkg/jwt"
	"sacco-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Locals keys set by AuthMiddleware
const (
	LocalMemberID = "memberID"
	LocalPhone    = "phone"
	LocalRole     = "role"
)

// extractToken reads the access token from the cookie or the Authorization header
func extractToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := extractToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(LocalMemberID, claims.MemberID)
		c.Locals(LocalPhone, claims.Phone)
		c.Locals(LocalRole, claims.Role)

		return c.Next()
	}
}

// CurrentMember reloads the authenticated member and replaces the role from
// the token with the stored one. Must run after AuthMiddleware.
func CurrentMember(store repositories.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		memberID, ok := c.Locals(LocalMemberID).(uint)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		member, err := store.Members().GetByID(c.Context(), memberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.Unauthorized(c, "Member not found")
			}
			return response.InternalServerError(c, "Failed to load member")
		}

		if !member.Approved {
			return response.Forbidden(c, domain.ErrMemberNotApproved.Error())
		}
		if !member.IsActive {
			return response.Forbidden(c, domain.ErrMemberInactive.Error())
		}

		c.Locals(LocalPhone, member.Phone)
		c.Locals(LocalRole, member.Role)
		return c.Next()
	}
}

// RequireCapability allows the request only when the caller's role grants cap
func RequireCapability(cap domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalRole).(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		if !domain.Can(domain.Role(role), cap) {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}
		return c.Next()
	}
}
