// internal/handlers/policy.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type PolicyHandler struct {
	policyService *services.PolicyService
}

func NewPolicyHandler(policyService *services.PolicyService) *PolicyHandler {
	return &PolicyHandler{policyService: policyService}
}

// GET /policies
func (h *PolicyHandler) List(c *gin.Context) {
	filter := repository.PolicyFilter{
		PaginationParams: utils.GetPaginationParams(c, 10),
	}

	if policyType := c.Query("policy_type"); policyType != "" {
		t := models.PolicyType(policyType)
		filter.PolicyType = &t
	}
	if status := c.Query("status"); status != "" {
		s := models.PolicyStatus(status)
		filter.Status = &s
	}
	if minPremium := c.Query("min_premium"); minPremium != "" {
		if d, err := decimal.NewFromString(minPremium); err == nil {
			filter.MinPremium = &d
		}
	}
	if maxPremium := c.Query("max_premium"); maxPremium != "" {
		if d, err := decimal.NewFromString(maxPremium); err == nil {
			filter.MaxPremium = &d
		}
	}

	policies, total, err := h.policyService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(policies, total, filter.PaginationParams)
	utils.PaginatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPolicyListed), result)
}

// GET /policies/:id
func (h *PolicyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "policy")
	if !ok {
		return
	}

	policy, err := h.policyService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPolicyFetched), policy)
}

// POST /policies
func (h *PolicyHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.CreatePolicyRequest
	if !bindJSON(c, &req) {
		return
	}

	policy, err := h.policyService.Create(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPolicyCreated), policy)
}

// PUT /policies/:id
func (h *PolicyHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "policy")
	if !ok {
		return
	}

	var req services.UpdatePolicyRequest
	if !bindJSON(c, &req) {
		return
	}

	policy, err := h.policyService.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPolicyUpdated), policy)
}

// DELETE /policies/:id
func (h *PolicyHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "policy")
	if !ok {
		return
	}

	if err := h.policyService.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyPolicyDeleted), nil)
}
