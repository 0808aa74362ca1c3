// internal/handlers/premium.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const idempotencyHeader = "Idempotency-Key"

type PremiumHandler struct {
	premiumService *services.PremiumService
}

func NewPremiumHandler(premiumService *services.PremiumService) *PremiumHandler {
	return &PremiumHandler{premiumService: premiumService}
}

// POST /premium/initiate
func (h *PremiumHandler) Initiate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.InitiatePremiumRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyHeader)
	}

	tx, replayed, err := h.premiumService.Initiate(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if replayed {
		c.Header("Idempotent-Replayed", "true")
		utils.SuccessResponse(c, i18n.T(lang, i18n.KeyPremiumInitiated), tx)
		return
	}
	utils.CreatedResponse(c, i18n.T(lang, i18n.KeyPremiumInitiated), tx)
}

// POST /premium/verify
func (h *PremiumHandler) Verify(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.VerifyPremiumRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.premiumService.Verify(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	key := i18n.KeyPremiumVerified
	if result.Transaction.Status == models.PremiumFailed {
		key = i18n.KeyPremiumFailed
	}
	utils.SuccessResponse(c, i18n.T(lang, key), result)
}

// POST /premium/retry/:transactionId
func (h *PremiumHandler) Retry(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "transactionId", "transaction")
	if !ok {
		return
	}

	tx, err := h.premiumService.Retry(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPremiumRetried), tx)
}

// POST /premium/refund/:transactionId
func (h *PremiumHandler) Refund(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "transactionId", "transaction")
	if !ok {
		return
	}

	tx, err := h.premiumService.Refund(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPremiumRefunded), tx)
}

// POST /premium/cancel/:transactionId
func (h *PremiumHandler) Cancel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "transactionId", "transaction")
	if !ok {
		return
	}

	tx, err := h.premiumService.Cancel(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPremiumCancelled), tx)
}

// GET /premium/invoice/:transactionId
func (h *PremiumHandler) Invoice(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "transactionId", "transaction")
	if !ok {
		return
	}

	invoice, err := h.premiumService.Invoice(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPremiumInvoice), invoice)
}

// GET /premium/:transactionId
func (h *PremiumHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "transactionId", "transaction")
	if !ok {
		return
	}

	tx, err := h.premiumService.Get(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPremiumFetched), tx)
}

// GET /premium/customer/:customerId
func (h *PremiumHandler) ListByCustomer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	customerID, ok := pathID(c, "customerId", "customer")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c, 20)
	txs, total, err := h.premiumService.ListByCustomer(c.Request.Context(), p, customerID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(txs, total, params)
	utils.PaginatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPremiumListed), result)
}
