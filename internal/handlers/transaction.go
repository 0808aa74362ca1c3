// internal/handlers/transaction.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type TransactionHandler struct {
	ledgerService *services.LedgerService
}

func NewTransactionHandler(ledgerService *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService}
}

// POST /transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.ledgerService.Create(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyTransactionCreated), tx)
}

// GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	filter := transactionFilter(c)
	if filter.CustomerID, ok = queryUUID(c, "customer"); !ok {
		return
	}

	txs, total, err := h.ledgerService.List(c.Request.Context(), p, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(txs, total, filter.PaginationParams)
	utils.PaginatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyTransactionListed), result)
}

// GET /transactions/my
func (h *TransactionHandler) ListMine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	filter := transactionFilter(c)
	txs, total, err := h.ledgerService.ListMine(c.Request.Context(), p, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(txs, total, filter.PaginationParams)
	utils.PaginatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyTransactionListed), result)
}

// GET /transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}

	tx, err := h.ledgerService.Get(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyTransactionFetched), tx)
}

// PATCH /transactions/:id/status
func (h *TransactionHandler) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}

	var req services.UpdateTransactionStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.ledgerService.UpdateStatus(c.Request.Context(), p, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyTransactionStatusUpdated), tx)
}

func transactionFilter(c *gin.Context) repository.TransactionFilter {
	filter := repository.TransactionFilter{
		PaginationParams: utils.GetPaginationParams(c, 20),
	}
	if txType := c.Query("transaction_type"); txType != "" {
		t := models.TransactionType(txType)
		filter.TransactionType = &t
	}
	if status := c.Query("status"); status != "" {
		s := models.TransactionStatus(status)
		filter.Status = &s
	}
	return filter
}
