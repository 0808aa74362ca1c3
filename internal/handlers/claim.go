// internal/handlers/claim.go
package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type ClaimHandler struct {
	claimService *services.ClaimService
}

func NewClaimHandler(claimService *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// POST /claims
func (h *ClaimHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	p, ok := principal(c)
	if !ok {
		return
	}

	var req services.CreateClaimRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.claimService.Create(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyClaimCreated)
	if result.ExceedsCoverage {
		message += i18n.T(lang, i18n.KeyClaimCoverageNote)
	}
	utils.CreatedResponse(c, message, result.Claim)
}

// GET /claims/my
func (h *ClaimHandler) ListMine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	filter, ok := claimFilter(c, 10)
	if !ok {
		return
	}
	claims, total, err := h.claimService.ListMine(c.Request.Context(), p, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(claims, total, filter.PaginationParams)
	utils.PaginatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimListed), result)
}

// GET /claims
func (h *ClaimHandler) ListAll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	filter, ok := claimFilter(c, 20)
	if !ok {
		return
	}
	if filter.CustomerID, ok = queryUUID(c, "customer"); !ok {
		return
	}
	if filter.AssignedAgentID, ok = queryUUID(c, "assigned_agent"); !ok {
		return
	}

	claims, total, err := h.claimService.ListAll(c.Request.Context(), p, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(claims, total, filter.PaginationParams)
	utils.PaginatedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimListed), result)
}

// GET /claims/:id
func (h *ClaimHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "claim")
	if !ok {
		return
	}

	claim, err := h.claimService.Get(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimFetched), claim)
}

// GET /claims/:id/documents
func (h *ClaimHandler) DocumentLinks(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "claim")
	if !ok {
		return
	}

	links, err := h.claimService.DocumentLinks(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimDocumentLinks), links)
}

// PUT /claims/:id
func (h *ClaimHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "claim")
	if !ok {
		return
	}

	var req services.UpdateClaimRequest
	if !bindJSON(c, &req) {
		return
	}

	claim, err := h.claimService.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimUpdated), claim)
}

// PUT /claims/:id/review
func (h *ClaimHandler) MoveToReview(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "claim")
	if !ok {
		return
	}

	claim, err := h.claimService.MoveToReview(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimUnderReview), claim)
}

// PUT /claims/:id/approve
func (h *ClaimHandler) Approve(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "claim")
	if !ok {
		return
	}

	var req services.ApproveClaimRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.claimService.Approve(c.Request.Context(), p, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimApproved), result)
}

// PUT /claims/:id/reject
func (h *ClaimHandler) Reject(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "claim")
	if !ok {
		return
	}

	var req services.RejectClaimRequest
	if !bindJSON(c, &req) {
		return
	}

	claim, err := h.claimService.Reject(c.Request.Context(), p, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimRejected), claim)
}

// DELETE /claims/:id
func (h *ClaimHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "claim")
	if !ok {
		return
	}

	if err := h.claimService.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyClaimDeleted), nil)
}

// POST /claims/documents
func (h *ClaimHandler) UploadDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	p, ok := principal(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "file"), utils.DebugDetails(err))
		return
	}
	defer file.Close()

	result, err := h.claimService.UploadDocument(c.Request.Context(), p, file, header)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, i18n.T(lang, i18n.KeyClaimDocumentSaved), result)
}

// GET /uploads/*key
func (h *ClaimHandler) ServeDocument(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	path, err := h.claimService.OpenDocument(key, c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "private, no-store")
	c.File(path)
}

func claimFilter(c *gin.Context, defaultLimit int) (repository.ClaimFilter, bool) {
	filter := repository.ClaimFilter{
		PaginationParams: utils.GetPaginationParams(c, defaultLimit),
	}

	if status := c.Query("status"); status != "" {
		s := models.ClaimStatus(status)
		filter.Status = &s
	}
	if claimType := c.Query("claim_type"); claimType != "" {
		t := models.ClaimType(claimType)
		filter.ClaimType = &t
	}
	var ok bool
	if filter.DateFrom, ok = queryDate(c, "date_from"); !ok {
		return filter, false
	}
	if filter.DateTo, ok = queryDate(c, "date_to"); !ok {
		return filter, false
	}

	return filter, true
}

// queryDate accepts RFC 3339 timestamps and plain dates. Anything else is
// answered with 400.
func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	lang := utils.GetLangFromContext(c)
	utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, key), nil)
	return nil, false
}
