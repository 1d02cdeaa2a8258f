package handlers

import (
	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/pagination"
	"sacco-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MemberHandler handles member administration and balances
type MemberHandler struct {
	memberService *services.MemberService
	ledger        *services.LedgerService
	log           *zap.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *services.MemberService, ledger *services.LedgerService, log *zap.Logger) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		ledger:        ledger,
		log:           log,
	}
}

// SetRoleRequest represents a role change
type SetRoleRequest struct {
	Role string `json:"role" example:"TREASURER"`
}

// List lists members
// @Summary List members
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	members, total, err := h.memberService.List(c.Context(), actor, params)
	if err != nil {
		return respondError(c, h.log, err, "Failed to list members")
	}

	data := make([]*models.MemberResponse, len(members))
	for i, m := range members {
		data[i] = m.ToResponse()
	}

	return response.Success(c, "Members retrieved successfully", pagination.NewResponse(data, params, total))
}

// Get returns a member
// @Summary Get member
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.Get(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to get member")
	}

	return response.Success(c, "Member retrieved successfully", member.ToResponse())
}

// Approve approves a pending registration
// @Summary Approve member
// @Description Approve and activate a registered member
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /members/{id}/approve [put]
func (h *MemberHandler) Approve(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.Approve(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to approve member")
	}

	return response.Success(c, "Member approved successfully", member.ToResponse())
}

// SetRole changes a member's role
// @Summary Set member role
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body SetRoleRequest true "New role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /members/{id}/role [put]
func (h *MemberHandler) SetRole(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.SetRole(c.Context(), actor, id, req.Role)
	if err != nil {
		return respondError(c, h.log, err, "Failed to set role")
	}

	return response.Success(c, "Role updated successfully", member.ToResponse())
}

// Deactivate disables a member and revokes their sessions
// @Summary Deactivate member
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /members/{id}/deactivate [put]
func (h *MemberHandler) Deactivate(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.Deactivate(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to deactivate member")
	}

	return response.Success(c, "Member deactivated successfully", member.ToResponse())
}

// Reactivate restores a deactivated member
// @Summary Reactivate member
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /members/{id}/activate [put]
func (h *MemberHandler) Reactivate(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.Reactivate(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to reactivate member")
	}

	return response.Success(c, "Member reactivated successfully", member.ToResponse())
}

// MyBalance returns the caller's savings balance and emergency fund
// @Summary Get own balance
// @Tags Balance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /balance [get]
func (h *MemberHandler) MyBalance(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bal, err := h.ledger.GetBalance(c.Context(), actor.ID)
	if err != nil {
		return respondError(c, h.log, err, "Failed to get balance")
	}

	return response.Success(c, "Balance retrieved successfully", bal)
}

// MemberBalance returns another member's balance
// @Summary Get member balance
// @Tags Balance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id}/balance [get]
func (h *MemberHandler) MemberBalance(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	bal, err := h.ledger.GetBalance(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to get balance")
	}

	return response.Success(c, "Balance retrieved successfully", bal)
}
