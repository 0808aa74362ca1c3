// internal/handlers/customer_policy.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type CustomerPolicyHandler struct {
	customerPolicyService *services.CustomerPolicyService
}

func NewCustomerPolicyHandler(customerPolicyService *services.CustomerPolicyService) *CustomerPolicyHandler {
	return &CustomerPolicyHandler{customerPolicyService: customerPolicyService}
}

// POST /customer-policies
func (h *CustomerPolicyHandler) Purchase(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.PurchasePolicyRequest
	if !bindJSON(c, &req) {
		return
	}

	cp, err := h.customerPolicyService.Purchase(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyCustomerPolicyPurchased), cp)
}

// GET /customer-policies
func (h *CustomerPolicyHandler) ListMine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	policies, err := h.customerPolicyService.ListMine(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyCustomerPolicyListed), policies)
}

// GET /customer-policies/:id
func (h *CustomerPolicyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "customer policy")
	if !ok {
		return
	}

	cp, err := h.customerPolicyService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyCustomerPolicyFetched), cp)
}

// POST /customer-policies/:id/pay
func (h *CustomerPolicyHandler) PayPremium(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "customer policy")
	if !ok {
		return
	}

	var req services.PayPremiumRequest
	if !bindJSON(c, &req) {
		return
	}

	cp, err := h.customerPolicyService.PayPremium(c.Request.Context(), p, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyCustomerPolicyPaid), cp)
}

// PUT /customer-policies/:id/renew
func (h *CustomerPolicyHandler) Renew(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "customer policy")
	if !ok {
		return
	}

	cp, err := h.customerPolicyService.Renew(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyCustomerPolicyRenewed), cp)
}

// PUT /customer-policies/:id/cancel
func (h *CustomerPolicyHandler) Cancel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "customer policy")
	if !ok {
		return
	}

	cp, err := h.customerPolicyService.Cancel(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyCustomerPolicyCancelled), cp)
}
