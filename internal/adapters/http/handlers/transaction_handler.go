package handlers

import (
	"strconv"

	"sacco-backend/internal/adapters/persistence/models"
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/pagination"
	"sacco-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TransactionHandler handles deposits, withdrawals and emergency contributions
type TransactionHandler struct {
	txService *services.TransactionService
	log       *zap.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(txService *services.TransactionService, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{txService: txService, log: log}
}

// Create records a pending transaction
// @Summary Create transaction
// @Description Record a pending deposit, withdrawal or emergency request. member_id other than the caller requires record_for_member.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateTransactionInput true "Transaction"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /transactions [post]
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateTransactionInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	t, err := h.txService.Create(c.Context(), actor, &input)
	if err != nil {
		return respondError(c, h.log, err, "Failed to create transaction")
	}

	return response.Created(c, "Transaction recorded, awaiting approval", t.ToResponse())
}

// My lists the caller's transactions
// @Summary List own transactions
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /transactions/my [get]
func (h *TransactionHandler) My(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	txs, total, err := h.txService.ListMine(c.Context(), actor, params)
	if err != nil {
		return respondError(c, h.log, err, "Failed to list transactions")
	}

	return response.Success(c, "Transactions retrieved successfully", pagination.NewResponse(toTransactionResponses(txs), params, total))
}

// List lists all transactions
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param type query string false "deposit, withdrawal or emergency"
// @Param member_id query int false "Member ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	input := &services.TransactionListInput{
		Status: c.Query("status"),
		Type:   c.Query("type"),
	}
	if raw := c.Query("member_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid member_id")
		}
		memberID := uint(id)
		input.MemberID = &memberID
	}

	params := pagination.GetParams(c)
	txs, total, err := h.txService.List(c.Context(), actor, input, params)
	if err != nil {
		return respondError(c, h.log, err, "Failed to list transactions")
	}

	return response.Success(c, "Transactions retrieved successfully", pagination.NewResponse(toTransactionResponses(txs), params, total))
}

// Get returns a transaction
// @Summary Get transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	t, err := h.txService.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err, "Failed to get transaction")
	}

	return response.Success(c, "Transaction retrieved successfully", t.ToResponse())
}

// Approve applies a pending transaction to the ledger
// @Summary Approve transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /transactions/{id}/approve [put]
func (h *TransactionHandler) Approve(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	t, err := h.txService.Approve(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err, "Failed to approve transaction")
	}

	return response.Success(c, "Transaction approved successfully", t.ToResponse())
}

// Reject rejects a pending transaction
// @Summary Reject transaction
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /transactions/{id}/reject [put]
func (h *TransactionHandler) Reject(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	t, err := h.txService.Reject(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err, "Failed to reject transaction")
	}

	return response.Success(c, "Transaction rejected successfully", t.ToResponse())
}

func toTransactionResponses(txs []*models.Transaction) []*models.TransactionResponse {
	out := make([]*models.TransactionResponse, len(txs))
	for i, t := range txs {
		out[i] = t.ToResponse()
	}
	return out
}
