package handlers

import (
	"errors"

	"sacco-backend/internal/core/domain"
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PasswordResetHandler handles the forgotten password flow
type PasswordResetHandler struct {
	resetService *services.PasswordResetService
	log          *zap.Logger
}

// NewPasswordResetHandler creates a new password reset handler
func NewPasswordResetHandler(resetService *services.PasswordResetService, log *zap.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{resetService: resetService, log: log}
}

// ResetRequest asks for a reset code
type ResetRequest struct {
	Phone string `json:"phone"`
}

// ResetVerifyRequest checks a reset code
type ResetVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// ResetConfirmRequest sets a new password with a reset code
type ResetConfirmRequest struct {
	Phone       string `json:"phone"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// Request issues a reset code
// @Summary Request password reset code
// @Description Send a 6-digit reset code to the member. The response is the same whether or not the phone is registered.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetRequest true "Phone"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/password-reset/request [post]
func (h *PasswordResetHandler) Request(c *fiber.Ctx) error {
	var req ResetRequest
	if err := c.BodyParser(&req); err != nil || req.Phone == "" {
		return response.BadRequest(c, "Phone is required")
	}

	err := h.resetService.Issue(c.Context(), req.Phone)
	if err != nil && !errors.Is(err, domain.ErrMemberNotFound) {
		return respondError(c, h.log, err, "Failed to issue reset code")
	}

	return response.Success(c, "If the phone is registered, a reset code has been sent", nil)
}

// Verify checks a reset code without consuming it
// @Summary Verify password reset code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetVerifyRequest true "Phone and code"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 410 {object} response.Response
// @Router /auth/password-reset/verify [post]
func (h *PasswordResetHandler) Verify(c *fiber.Ctx) error {
	var req ResetVerifyRequest
	if err := c.BodyParser(&req); err != nil || req.Phone == "" || req.Code == "" {
		return response.BadRequest(c, "Phone and code are required")
	}

	if _, err := h.resetService.Verify(c.Context(), req.Phone, req.Code); err != nil {
		return respondError(c, h.log, err, "Failed to verify reset code")
	}

	return response.Success(c, "Reset code is valid", nil)
}

// Confirm verifies the code and sets the new password
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetConfirmRequest true "Phone, code and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 410 {object} response.Response
// @Router /auth/password-reset/confirm [post]
func (h *PasswordResetHandler) Confirm(c *fiber.Ctx) error {
	var req ResetConfirmRequest
	if err := c.BodyParser(&req); err != nil || req.Phone == "" || req.Code == "" {
		return response.BadRequest(c, "Phone and code are required")
	}
	if req.NewPassword == "" {
		return response.BadRequest(c, "New password is required")
	}

	if err := h.resetService.Reset(c.Context(), req.Phone, req.Code, req.NewPassword); err != nil {
		return respondError(c, h.log, err, "Failed to reset password")
	}

	return response.Success(c, "Password has been reset, please login again", nil)
}
