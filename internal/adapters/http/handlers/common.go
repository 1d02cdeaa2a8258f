package handlers

import (
	"errors"
	"strconv"

	"sacco-backend/internal/adapters/http/middleware"
	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// actorFrom returns the authenticated caller set by AuthMiddleware
func actorFrom(c *fiber.Ctx) (services.Actor, bool) {
	id, ok := c.Locals(middleware.LocalMemberID).(uint)
	if !ok || id == 0 {
		return services.Actor{}, false
	}
	role, _ := c.Locals(middleware.LocalRole).(string)
	return services.Actor{ID: id, Role: domain.Role(role)}, true
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// respondError maps service errors to HTTP status codes. Unknown errors are
// logged and reported as 500 with fallback as the message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return response.UnprocessableEntity(c, err.Error())

	case errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrMemberAlreadyExists),
		errors.Is(err, domain.ErrGuarantorExists),
		errors.Is(err, domain.ErrDuplicateEntry):
		return response.Conflict(c, err.Error())

	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidTerm),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrSelfGuarantee),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrOldPasswordWrong),
		errors.Is(err, services.ErrCannotChangeOwnRole),
		errors.Is(err, services.ErrCannotDeactivateSelf):
		return response.BadRequest(c, err.Error())

	case errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrBalanceNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrResetTokenNotFound),
		errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, err.Error())

	case errors.Is(err, domain.ErrResetTokenExpired):
		return response.Gone(c, err.Error())

	case errors.Is(err, domain.ErrResetThrottled):
		return response.TooManyRequests(c, err.Error())

	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrMemberNotApproved),
		errors.Is(err, domain.ErrMemberInactive):
		return response.Forbidden(c, err.Error())

	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTokenRevoked):
		return response.Unauthorized(c, err.Error())
	}

	log.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	return response.InternalServerError(c, fallback)
}
