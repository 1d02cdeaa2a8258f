package handlers

import (
	"context"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/pagination"
	"sacco-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoanHandler handles loan endpoints
type LoanHandler struct {
	loanService *services.LoanService
	log         *zap.Logger
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService, log *zap.Logger) *LoanHandler {
	return &LoanHandler{loanService: loanService, log: log}
}

// AddGuarantorRequest names the member vouching for a loan
type AddGuarantorRequest struct {
	MemberID uint `json:"member_id"`
}

// Request submits a loan request
// @Summary Request loan
// @Description Request a loan for one of the allowed terms (3, 6, 12, 18, 24 or 36 months) at the default interest rate
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.LoanRequestInput true "Loan request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Request(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.LoanRequestInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	loan, err := h.loanService.Request(c.Context(), actor, &input)
	if err != nil {
		return respondError(c, h.log, err, "Failed to request loan")
	}

	return response.Created(c, "Loan requested successfully", loan.ToResponse(services.DueAmount(loan)))
}

// Calculate previews the due amount and schedule of a prospective loan
// @Summary Calculate loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.LoanRequestInput true "Amount and period"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans/calculate [post]
func (h *LoanHandler) Calculate(c *fiber.Ctx) error {
	var input services.LoanRequestInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	quote, err := h.loanService.Quote(&input)
	if err != nil {
		return respondError(c, h.log, err, "Failed to calculate loan")
	}

	return response.Success(c, "Loan calculated successfully", quote)
}

// My lists the caller's loans
// @Summary List own loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /loans/my [get]
func (h *LoanHandler) My(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	loans, total, err := h.loanService.ListMine(c.Context(), actor, params)
	if err != nil {
		return respondError(c, h.log, err, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(toLoanResponses(loans), params, total))
}

// Guaranteed lists loans the caller guarantees
// @Summary List guaranteed loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/guaranteed [get]
func (h *LoanHandler) Guaranteed(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loanService.ListGuaranteed(c.Context(), actor)
	if err != nil {
		return respondError(c, h.log, err, "Failed to list guaranteed loans")
	}

	return response.Success(c, "Loans retrieved successfully", toLoanResponses(loans))
}

// List lists all loans
// @Summary List loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "waiting, performing, rejected or paid"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	loans, total, err := h.loanService.List(c.Context(), actor, c.Query("status"), params)
	if err != nil {
		return respondError(c, h.log, err, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(toLoanResponses(loans), params, total))
}

// Get returns a loan
// @Summary Get loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.Get(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to get loan")
	}

	return response.Success(c, "Loan retrieved successfully", loan.ToResponse(services.DueAmount(loan)))
}

// Schedule returns the repayment schedule of a loan
// @Summary Loan schedule
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id}/schedule [get]
func (h *LoanHandler) Schedule(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	sched, err := h.loanService.Schedule(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to get loan schedule")
	}

	return response.Success(c, "Loan schedule retrieved successfully", sched)
}

// Approve moves a waiting loan to performing
// @Summary Approve loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/approve [put]
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.loanService.Approve, "Loan approved successfully", "Failed to approve loan")
}

// Reject moves a waiting loan to rejected
// @Summary Reject loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/reject [put]
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.loanService.Reject, "Loan rejected successfully", "Failed to reject loan")
}

// MarkPaid moves a performing loan to paid
// @Summary Mark loan paid
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/paid [put]
func (h *LoanHandler) MarkPaid(c *fiber.Ctx) error {
	return h.transition(c, h.loanService.MarkPaid, "Loan marked as paid", "Failed to mark loan as paid")
}

// AddGuarantor adds a guarantor to a loan
// @Summary Add guarantor
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body AddGuarantorRequest true "Guarantor"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/guarantors [post]
func (h *LoanHandler) AddGuarantor(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req AddGuarantorRequest
	if err := c.BodyParser(&req); err != nil || req.MemberID == 0 {
		return response.BadRequest(c, "member_id is required")
	}

	g, err := h.loanService.AddGuarantor(c.Context(), actor, id, req.MemberID)
	if err != nil {
		return respondError(c, h.log, err, "Failed to add guarantor")
	}

	return response.Created(c, "Guarantor added successfully", g)
}

// ListGuarantors lists guarantors of a loan
// @Summary List guarantors
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/guarantors [get]
func (h *LoanHandler) ListGuarantors(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	list, err := h.loanService.ListGuarantors(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, "Failed to list guarantors")
	}

	return response.Success(c, "Guarantors retrieved successfully", list)
}

type loanTransition func(ctx context.Context, actor services.Actor, id uint) (*models.Loan, error)

func (h *LoanHandler) transition(c *fiber.Ctx, apply loanTransition, okMsg, failMsg string) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := apply(c.Context(), actor, id)
	if err != nil {
		return respondError(c, h.log, err, failMsg)
	}

	return response.Success(c, okMsg, loan.ToResponse(services.DueAmount(loan)))
}

func toLoanResponses(loans []*models.Loan) []*models.LoanResponse {
	out := make([]*models.LoanResponse, len(loans))
	for i, l := range loans {
		out[i] = l.ToResponse(services.DueAmount(l))
	}
	return out
}
