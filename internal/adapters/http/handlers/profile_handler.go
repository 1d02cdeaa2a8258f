package handlers

import (
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProfileHandler handles the caller's own profile
type ProfileHandler struct {
	memberService *services.MemberService
	log           *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(memberService *services.MemberService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{memberService: memberService, log: log}
}

// GetProfile returns own profile
// @Summary Get profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	member, err := h.memberService.Get(c.Context(), actor, actor.ID)
	if err != nil {
		return respondError(c, h.log, err, "Failed to get profile")
	}

	return response.Success(c, "Profile retrieved successfully", member.ToResponse())
}

// UpdateProfile updates own profile
// @Summary Update profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateProfileInput true "Profile fields"
// @Success 200 {object} response.Response
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.UpdateProfile(c.Context(), actor.ID, &input)
	if err != nil {
		return respondError(c, h.log, err, "Failed to update profile")
	}

	return response.Success(c, "Profile updated successfully", member.ToResponse())
}

// ChangePassword changes own password
// @Summary Change password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /profile/password [put]
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.OldPassword == "" || input.NewPassword == "" {
		return response.BadRequest(c, "Old and new password are required")
	}

	if err := h.memberService.ChangePassword(c.Context(), actor.ID, &input); err != nil {
		return respondError(c, h.log, err, "Failed to change password")
	}

	return response.Success(c, "Password changed successfully", nil)
}
