// internal/services/claim_service.go
package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/event"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const (
	overdueFlagReason = "review deadline exceeded"
	overdueBatchSize  = 500
	documentLinkTTL   = 15 * time.Minute
)

// ClaimService runs the claim lifecycle:
// pending -> under_review -> {approved, rejected}; approved -> paid.
// A claim's status is always the tail of its status history.
type ClaimService struct {
	store     repository.Store
	ledger    *LedgerService
	storage   DocumentStorage
	publisher event.Publisher
	now       func() time.Time
}

type CreateClaimRequest struct {
	CustomerPolicyID uuid.UUID        `json:"customer_policy_id" validate:"required"`
	ClaimType        models.ClaimType `json:"claim_type" validate:"required,claim_type"`
	ClaimAmount      decimal.Decimal  `json:"claim_amount"`
	Description      string           `json:"description" validate:"max=5000"`
	Documents        []string         `json:"documents" validate:"max=50,dive,required,max=1024"`
}

type UpdateClaimRequest struct {
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Documents   []string         `json:"documents,omitempty" validate:"max=50,dive,required,max=1024"`
	ClaimAmount *decimal.Decimal `json:"claim_amount,omitempty"`
}

type ApproveClaimRequest struct {
	SettlementAmount *decimal.Decimal    `json:"settlement_amount,omitempty"`
	PaymentMethod    models.PayoutMethod `json:"payment_method" validate:"omitempty,payout_method"`
	TransactionID    string              `json:"transaction_id" validate:"max=64"`
	PaidNow          bool                `json:"paid_now"`
}

type RejectClaimRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// ClaimResult carries the advisory raised when a claim asks for more than
// the policy covers. Such claims are accepted; approval caps the payout.
type ClaimResult struct {
	Claim           *models.Claim
	ExceedsCoverage bool
}

// DocumentLink is a time-limited link to one claim document.
type DocumentLink struct {
	Document  string    `json:"document"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ApproveClaimResult struct {
	Claim       *models.Claim       `json:"claim"`
	Transaction *models.Transaction `json:"transaction"`
}

func NewClaimService(store repository.Store, ledger *LedgerService, storage DocumentStorage, publisher event.Publisher) *ClaimService {
	return &ClaimService{
		store:     store,
		ledger:    ledger,
		storage:   storage,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *ClaimService) Create(ctx context.Context, p Principal, req *CreateClaimRequest) (*ClaimResult, error) {
	if req.CustomerPolicyID == uuid.Nil {
		return nil, ErrValidation("valid customer_policy_id is required")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}
	if !req.ClaimAmount.IsPositive() {
		return nil, ErrValidation("valid claim_amount is required")
	}
	if err := s.checkDocuments(p, req.Documents); err != nil {
		return nil, err
	}

	cp, err := s.store.CustomerPolicies().GetByID(ctx, req.CustomerPolicyID)
	if err != nil {
		return nil, storeError(err, "customer policy")
	}
	if !cp.IsOwnedBy(p.ID) {
		return nil, ErrForbidden("you are not the owner of this policy")
	}

	if cp.Status != models.CustomerPolicyActive {
		return nil, ErrInvalidTransition("cannot file claim on policy with status: %s", cp.Status)
	}
	now := s.now()
	if now.Before(cp.StartDate) {
		return nil, ErrInvalidTransition("policy not active yet")
	}
	if now.After(cp.EndDate) {
		return nil, ErrInvalidTransition("policy expired")
	}

	open, err := s.store.Claims().HasOpenClaim(ctx, cp.ID)
	if err != nil {
		return nil, storeError(err, "claim")
	}
	if open {
		return nil, ErrConflict("there is already an open claim for this policy")
	}

	graceDays := 30
	exceeds := false
	if cp.Policy != nil {
		graceDays = cp.Policy.ClaimGraceDays()
		exceeds = req.ClaimAmount.GreaterThan(cp.Policy.CoverageAmount)
	}
	deadline := utils.AddDays(now, graceDays)

	claim := &models.Claim{
		CustomerID:       p.ID,
		CustomerPolicyID: cp.ID,
		ClaimAmount:      req.ClaimAmount,
		ClaimType:        req.ClaimType,
		Description:      req.Description,
		Documents:        append([]string{}, req.Documents...),
		Deadline:         &deadline,
	}
	claim.AppendStatus(models.ClaimPending, p.Actor(), now)

	if err := s.store.Claims().Create(ctx, claim); err != nil {
		// The open-claim index caught a concurrent filing.
		if KindOf(storeError(err, "claim")) == KindConflict {
			return nil, ErrConflict("there is already an open claim for this policy")
		}
		return nil, storeError(err, "claim")
	}
	claim.CustomerPolicy = cp

	logrus.WithFields(logrus.Fields{
		"claim_id":           claim.ID,
		"customer_policy_id": cp.ID,
		"amount":             claim.ClaimAmount.String(),
		"exceeds_coverage":   exceeds,
	}).Info("Claim filed")

	publish(ctx, s.publisher, event.ClaimCreated, map[string]interface{}{
		"claim_id":           claim.ID,
		"customer_id":        claim.CustomerID,
		"customer_policy_id": claim.CustomerPolicyID,
		"claim_amount":       claim.ClaimAmount,
	})

	return &ClaimResult{Claim: claim, ExceedsCoverage: exceeds}, nil
}

func (s *ClaimService) ListMine(ctx context.Context, p Principal, filter repository.ClaimFilter) ([]models.Claim, int64, error) {
	filter.CustomerID = &p.ID
	filter.AssignedAgentID = nil
	filter.PaginationParams = utils.NormalizePagination(filter.PaginationParams, 10)

	claims, total, err := s.store.Claims().List(ctx, filter)
	if err != nil {
		return nil, 0, storeError(err, "claim")
	}
	return claims, total, nil
}

func (s *ClaimService) ListAll(ctx context.Context, p Principal, filter repository.ClaimFilter) ([]models.Claim, int64, error) {
	if !p.IsStaff() {
		return nil, 0, ErrForbidden("only agents or admins can access all claims")
	}
	filter.PaginationParams = utils.NormalizePagination(filter.PaginationParams, 20)

	claims, total, err := s.store.Claims().List(ctx, filter)
	if err != nil {
		return nil, 0, storeError(err, "claim")
	}
	return claims, total, nil
}

func (s *ClaimService) Get(ctx context.Context, p Principal, id uuid.UUID) (*models.Claim, error) {
	claim, err := s.store.Claims().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "claim")
	}
	if !p.IsStaff() && !claim.IsOwnedBy(p.ID) {
		return nil, ErrForbidden("access denied to this claim")
	}
	return claim, nil
}

// Update edits a pending claim. Documents are appended, never replaced.
func (s *ClaimService) Update(ctx context.Context, p Principal, id uuid.UUID, req *UpdateClaimRequest) (*models.Claim, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}
	if req.ClaimAmount != nil && !req.ClaimAmount.IsPositive() {
		return nil, ErrValidation("invalid claim_amount")
	}
	if err := s.checkDocuments(p, req.Documents); err != nil {
		return nil, err
	}

	var claim *models.Claim
	err := retryOnConflict(ctx, func() error {
		var err error
		claim, err = s.store.Claims().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "claim")
		}
		if !p.CanAccess(claim.CustomerID) {
			return ErrForbidden("you cannot update this claim")
		}
		if !claim.CurrentStatus().IsPending() {
			return ErrInvalidTransition("only pending claims can be edited")
		}

		changed := false
		if req.Description != nil && *req.Description != "" && *req.Description != claim.Description {
			claim.Description = *req.Description
			changed = true
		}
		if len(req.Documents) > 0 {
			claim.Documents = append(claim.Documents, req.Documents...)
			changed = true
		}
		if req.ClaimAmount != nil {
			claim.ClaimAmount = *req.ClaimAmount
			changed = true
		}
		if !changed {
			return ErrValidation("no valid fields provided for update")
		}

		claim.AppendStatus(models.ClaimUpdated, p.Actor(), s.now())
		return s.store.Claims().Update(ctx, claim)
	})
	if err != nil {
		return nil, storeError(err, "claim")
	}

	logrus.WithFields(logrus.Fields{"claim_id": claim.ID, "updated_by": p.ID}).Info("Claim updated")
	return claim, nil
}

// MoveToReview assigns the claim to the calling agent.
func (s *ClaimService) MoveToReview(ctx context.Context, p Principal, id uuid.UUID) (*models.Claim, error) {
	if !p.IsAgent() {
		return nil, ErrForbidden("only agents can perform this action")
	}

	var claim *models.Claim
	err := retryOnConflict(ctx, func() error {
		var err error
		claim, err = s.store.Claims().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "claim")
		}
		status := claim.CurrentStatus()
		switch status {
		case models.ClaimUnderReview, models.ClaimApproved, models.ClaimPaid, models.ClaimRejected:
			return ErrInvalidTransition("claim cannot be moved to review from status: %s", status)
		}

		claim.AssignedAgentID = p.Actor()
		claim.AppendStatus(models.ClaimUnderReview, p.Actor(), s.now())
		return s.store.Claims().Update(ctx, claim)
	})
	if err != nil {
		return nil, storeError(err, "claim")
	}

	logrus.WithFields(logrus.Fields{"claim_id": claim.ID, "agent_id": p.ID}).Info("Claim moved to review")
	return claim, nil
}

// Approve settles a claim and writes its payout ledger entry in one
// database transaction. The settlement never exceeds the policy coverage.
func (s *ClaimService) Approve(ctx context.Context, p Principal, id uuid.UUID, req *ApproveClaimRequest) (*ApproveClaimResult, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can approve claims")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}
	if req.SettlementAmount != nil && req.SettlementAmount.IsNegative() {
		return nil, ErrValidation("invalid settlement_amount")
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PayoutBankTransfer
	}

	var result ApproveClaimResult
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		claim, err := tx.Claims().GetForUpdate(ctx, id)
		if err != nil {
			return storeError(err, "claim")
		}

		status := claim.CurrentStatus()
		if status == models.ClaimApproved || status == models.ClaimPaid {
			return ErrInvalidTransition("claim is already approved/paid")
		}

		amount := claim.ClaimAmount
		if req.SettlementAmount != nil {
			amount = *req.SettlementAmount
		}
		if cp := claim.CustomerPolicy; cp != nil && cp.Policy != nil {
			amount = decimal.Min(amount, cp.Policy.CoverageAmount)
		}

		reference := strings.TrimSpace(req.TransactionID)
		if reference == "" || !req.PaidNow {
			reference = utils.NewReferenceID("PAYOUT")
		}

		now := s.now()
		claim.AppendStatus(models.ClaimApproved, p.Actor(), now)
		claim.Payout = models.ClaimPayout{}
		ledgerStatus := models.TransactionPending
		if req.PaidNow {
			claim.Payout = models.ClaimPayout{
				AmountPaid:    decimal.NewNullDecimal(amount),
				PaidAt:        &now,
				PaymentMethod: method,
				TransactionID: reference,
			}
			claim.AppendStatus(models.ClaimPaid, p.Actor(), now)
			ledgerStatus = models.TransactionSuccess
		}
		claim.ClearFlag()

		if err := tx.Claims().Update(ctx, claim); err != nil {
			return storeError(err, "claim")
		}

		cpID := claim.CustomerPolicyID
		claimID := claim.ID
		entry := &models.Transaction{
			CustomerID:       claim.CustomerID,
			CustomerPolicyID: &cpID,
			ClaimID:          &claimID,
			Amount:           amount,
			TransactionType:  models.TransactionClaimPayout,
			PaymentMethod:    models.PaymentMethodFor(method),
			Status:           ledgerStatus,
			ReferenceID:      reference,
			Remarks:          fmt.Sprintf("Settlement of claim %s", claim.ID),
		}
		if err := s.ledger.record(ctx, tx, entry); err != nil {
			return err
		}

		result.Claim = claim
		result.Transaction = entry
		return nil
	})
	if err != nil {
		return nil, storeError(err, "claim")
	}

	logrus.WithFields(logrus.Fields{
		"claim_id":       result.Claim.ID,
		"amount":         result.Transaction.Amount.String(),
		"paid_now":       req.PaidNow,
		"transaction_id": result.Transaction.ID,
	}).Info("Claim approved")

	publish(ctx, s.publisher, event.ClaimApproved, map[string]interface{}{
		"claim_id":    result.Claim.ID,
		"customer_id": result.Claim.CustomerID,
		"amount":      result.Transaction.Amount,
		"paid":        req.PaidNow,
	})

	return &result, nil
}

func (s *ClaimService) Reject(ctx context.Context, p Principal, id uuid.UUID, req *RejectClaimRequest) (*models.Claim, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can reject claims")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrValidation("rejection reason is required")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}

	var claim *models.Claim
	err := retryOnConflict(ctx, func() error {
		var err error
		claim, err = s.store.Claims().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "claim")
		}
		status := claim.CurrentStatus()
		if status == models.ClaimRejected || status == models.ClaimPaid {
			return ErrInvalidTransition("claim cannot be rejected in current status")
		}

		now := s.now()
		claim.AppendStatus(models.ClaimRejected, p.Actor(), now)
		claim.Rejection = models.ClaimRejection{
			Reason:     reason,
			RejectedBy: p.Actor(),
			RejectedAt: &now,
		}
		return s.store.Claims().Update(ctx, claim)
	})
	if err != nil {
		return nil, storeError(err, "claim")
	}

	logrus.WithFields(logrus.Fields{"claim_id": claim.ID, "rejected_by": p.ID}).Info("Claim rejected")

	publish(ctx, s.publisher, event.ClaimRejected, map[string]interface{}{
		"claim_id":    claim.ID,
		"customer_id": claim.CustomerID,
		"reason":      reason,
	})

	return claim, nil
}

// Delete lets a customer withdraw a pending claim. Admins may delete any claim.
func (s *ClaimService) Delete(ctx context.Context, p Principal, id uuid.UUID) error {
	claim, err := s.store.Claims().GetByID(ctx, id)
	if err != nil {
		return storeError(err, "claim")
	}

	switch {
	case p.IsAdmin():
	case p.Role == models.RoleUser:
		if !claim.IsOwnedBy(p.ID) {
			return ErrForbidden("you cannot delete this claim")
		}
		if !claim.CurrentStatus().IsPending() {
			return ErrInvalidTransition("only pending claims can be deleted by customer")
		}
	default:
		return ErrForbidden("only customers (owner) or admins can delete claims")
	}

	if err := s.store.Claims().Delete(ctx, id); err != nil {
		return storeError(err, "claim")
	}
	s.removeDocuments(ctx, claim)

	logrus.WithFields(logrus.Fields{"claim_id": id, "deleted_by": p.ID}).Info("Claim deleted")
	return nil
}

// checkDocuments accepts external references and files the caller uploaded.
func (s *ClaimService) checkDocuments(p Principal, docs []string) error {
	if s.storage == nil {
		return nil
	}
	for _, doc := range docs {
		key, ok := s.storage.KeyFromURL(doc)
		if !ok {
			continue
		}
		if uploader, ok := DocumentUploader(key); !ok || uploader != p.ID {
			return ErrForbidden("document %s was not uploaded by you", doc)
		}
	}
	return nil
}

// ownedKey returns the storage key of doc when it is a file the claim's
// customer uploaded.
func (s *ClaimService) ownedKey(claim *models.Claim, doc string) (string, bool) {
	key, ok := s.storage.KeyFromURL(doc)
	if !ok {
		return "", false
	}
	uploader, ok := DocumentUploader(key)
	if !ok || uploader != claim.CustomerID {
		return "", false
	}
	return key, true
}

// removeDocuments deletes the stored files of a deleted claim. Failures are
// logged; the claim is already gone.
func (s *ClaimService) removeDocuments(ctx context.Context, claim *models.Claim) {
	if s.storage == nil {
		return
	}
	for _, doc := range claim.Documents {
		key, ok := s.ownedKey(claim, doc)
		if !ok {
			continue
		}
		if err := s.storage.DeleteFile(ctx, key); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"claim_id": claim.ID,
				"key":      key,
			}).Warn("Failed to delete claim document")
		}
	}
}

// DocumentLinks returns access links for a claim's documents. Only files the
// customer uploaded are signed; anything else is returned as is.
func (s *ClaimService) DocumentLinks(ctx context.Context, p Principal, id uuid.UUID) ([]DocumentLink, error) {
	claim, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(documentLinkTTL)
	links := make([]DocumentLink, 0, len(claim.Documents))
	for _, doc := range claim.Documents {
		link := DocumentLink{Document: doc, URL: doc}
		if s.storage != nil {
			if key, ok := s.ownedKey(claim, doc); ok {
				url, err := s.storage.AccessURL(key, documentLinkTTL)
				if err != nil {
					return nil, ErrUnexpected("failed to sign document link", err)
				}
				link.URL = url
				link.ExpiresAt = expiresAt
			}
		}
		links = append(links, link)
	}
	return links, nil
}

// FlagOverdue marks open claims whose review deadline has passed and
// returns how many were flagged.
func (s *ClaimService) FlagOverdue(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.store.Claims().ListOverdue(ctx, now, overdueBatchSize)
	if err != nil {
		return 0, storeError(err, "claim")
	}

	flagged := 0
	for _, candidate := range overdue {
		changed := false
		err := retryOnConflict(ctx, func() error {
			claim, err := s.store.Claims().GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			changed = false
			if claim.IsFlagged || !claim.CurrentStatus().IsOpen() ||
				claim.Deadline == nil || !claim.Deadline.Before(now) {
				return nil
			}
			claim.Flag(overdueFlagReason)
			changed = true
			return s.store.Claims().Update(ctx, claim)
		})
		if err != nil {
			logrus.WithError(err).WithField("claim_id", candidate.ID).Warn("Failed to flag overdue claim")
			continue
		}
		if changed {
			flagged++
		}
	}

	if flagged > 0 {
		logrus.WithField("count", flagged).Info("Flagged overdue claims")
	}
	return flagged, nil
}

// UploadDocument stores a claim document. The returned URL is attached to a
// claim through Create or Update.
func (s *ClaimService) UploadDocument(ctx context.Context, p Principal, file io.Reader, header *multipart.FileHeader) (*UploadResult, error) {
	if s.storage == nil {
		return nil, ErrUnexpected("document storage is not configured", nil)
	}

	result, err := s.storage.UploadFile(ctx, file, header, ClaimDocumentOptions(p.ID))
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"key":         result.Key,
		"uploaded_by": p.ID,
		"size":        result.Size,
	}).Info("Claim document uploaded")

	return result, nil
}

// OpenDocument resolves a signed document link to a local file path.
func (s *ClaimService) OpenDocument(key, token string) (string, error) {
	if s.storage == nil {
		return "", ErrNotFound("document")
	}
	return s.storage.LocalFile(key, token)
}
