// internal/services/premium_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/javajoker/insurance-backend/internal/cache"
	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/event"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const defaultFailureReason = "Payment failed"

// PremiumService runs gateway premium payments:
// initiated -> {success, failed, cancelled}; success -> refunded. A failed
// payment is never reopened, a retry creates a new record.
type PremiumService struct {
	store       repository.Store
	ledger      *LedgerService
	gateway     PaymentGateway
	idempotency cache.IdempotencyStore
	publisher   event.Publisher
	cfg         config.PaymentConfig
	now         func() time.Time
}

type InitiatePremiumRequest struct {
	CustomerPolicyID  uuid.UUID       `json:"customer_policy_id" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	IsInstallment     bool            `json:"is_installment"`
	InstallmentNumber int             `json:"installment_number" validate:"omitempty,min=1"`
	IdempotencyKey    string          `json:"idempotency_key" validate:"max=128"`
}

type VerifyPremiumRequest struct {
	TransactionID     uuid.UUID            `json:"transaction_id" validate:"required"`
	Success           bool                 `json:"success"`
	ProviderPaymentID string               `json:"provider_payment_id" validate:"max=100"`
	ProviderResponse  json.RawMessage      `json:"provider_response,omitempty"`
	FailureReason     string               `json:"failure_reason"`
	PaymentMethod     models.PaymentMethod `json:"payment_method" validate:"omitempty,payment_method"`
}

type VerifyPremiumResult struct {
	Transaction    *models.PremiumTransaction `json:"transaction"`
	CustomerPolicy *models.CustomerPolicy     `json:"customer_policy"`
}

type Invoice struct {
	InvoiceNo     string          `json:"invoice_no"`
	ReferenceID   string          `json:"reference_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	PolicyNumber  string          `json:"policy_number,omitempty"`
	PolicyCode    string          `json:"policy_code,omitempty"`
	PolicyTitle   string          `json:"policy_title,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Installment   int             `json:"installment_number"`
	PaidAt        *time.Time      `json:"paid_at"`
}

func NewPremiumService(
	store repository.Store,
	ledger *LedgerService,
	gateway PaymentGateway,
	idempotency cache.IdempotencyStore,
	publisher event.Publisher,
	cfg config.PaymentConfig,
) *PremiumService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &PremiumService{
		store:       store,
		ledger:      ledger,
		gateway:     gateway,
		idempotency: idempotency,
		publisher:   publisher,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Initiate starts a gateway payment. When the request carries an idempotency
// key that was already used, the transaction it created is returned and
// replayed is true.
func (s *PremiumService) Initiate(ctx context.Context, p Principal, req *InitiatePremiumRequest) (tx *models.PremiumTransaction, replayed bool, err error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, false, ErrValidation(utils.FirstValidationMessage(err))
	}
	if req.CustomerPolicyID == uuid.Nil || !req.Amount.IsPositive() {
		return nil, false, ErrValidation("customer_policy_id and a positive amount are required")
	}

	var cacheKey string
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" && s.idempotency != nil {
		cacheKey = p.ID.String() + ":" + utils.HashString(key)
		existing, reserved, err := s.idempotency.Reserve(ctx, cacheKey, s.cfg.IdempotencyTTL)
		switch {
		case err != nil:
			logrus.WithError(err).Warn("Idempotency store unavailable, continuing without replay protection")
			cacheKey = ""
		case !reserved && existing == "":
			return nil, false, ErrConflict("a request with this idempotency key is still being processed")
		case !reserved:
			id, err := uuid.Parse(existing)
			if err != nil {
				return nil, false, ErrUnexpected("corrupt idempotency record", err)
			}
			original, err := s.store.Premiums().GetByID(ctx, id)
			if err != nil {
				return nil, false, storeError(err, "premium transaction")
			}
			return original, true, nil
		}
	}
	defer func() {
		if cacheKey == "" {
			return
		}
		if err != nil {
			if relErr := s.idempotency.Release(ctx, cacheKey); relErr != nil {
				logrus.WithError(relErr).Warn("Failed to release idempotency key")
			}
			return
		}
		if cErr := s.idempotency.Complete(ctx, cacheKey, tx.ID.String(), s.cfg.IdempotencyTTL); cErr != nil {
			logrus.WithError(cErr).Warn("Failed to store idempotency result")
		}
	}()

	cp, err := s.store.CustomerPolicies().GetByID(ctx, req.CustomerPolicyID)
	if err != nil {
		return nil, false, storeError(err, "customer policy")
	}
	if !cp.IsOwnedBy(p.ID) {
		return nil, false, ErrForbidden("not authorized to pay for this policy")
	}
	if cp.Status.IsTerminal() {
		return nil, false, ErrInvalidTransition("cannot pay premium for a %s policy", cp.Status)
	}
	if cp.Policy == nil {
		return nil, false, ErrUnexpected("customer policy has no policy template", nil)
	}
	if !req.Amount.Equal(cp.Policy.PremiumAmount) {
		return nil, false, ErrValidation("premium amount must be %s", cp.Policy.PremiumAmount.StringFixed(2))
	}

	installment := req.InstallmentNumber
	if installment == 0 {
		installment = 1
	}
	totalInstallments := cp.PaymentFrequency.Installments()
	if installment > totalInstallments {
		return nil, false, ErrValidation("installment_number must be between 1 and %d", totalInstallments)
	}

	paid, err := s.store.Premiums().HasSuccessfulInstallment(ctx, cp.ID, installment)
	if err != nil {
		return nil, false, storeError(err, "premium transaction")
	}
	if paid {
		return nil, false, ErrConflict("premium already paid for installment %d", installment)
	}

	now := s.now()
	tx = &models.PremiumTransaction{
		CustomerID:        p.ID,
		CustomerPolicyID:  cp.ID,
		Amount:            req.Amount,
		TotalAmount:       req.Amount,
		Currency:          s.cfg.Currency,
		IsInstallment:     req.IsInstallment,
		InstallmentNumber: installment,
		TotalInstallments: totalInstallments,
		InstallmentAmount: req.Amount,
		Provider:          s.gateway.Provider(),
		Gateway:           s.gateway.Gateway(),
		ReferenceID:       utils.NewReferenceID("REF"),
		InvoiceNo:         utils.NewInvoiceNumber(now),
		Status:            models.PremiumInitiated,
		InitiatedAt:       now,
		IdempotencyKey:    cacheKey,
		Remarks:           fmt.Sprintf("Premium payment for policy %s", cp.Policy.PolicyCode),
	}

	providerID, err := s.gateway.Initiate(ctx, tx)
	if err != nil {
		return nil, false, ErrUnexpected("payment gateway rejected the request", err)
	}
	tx.ProviderPaymentID = providerID

	if err := s.store.Premiums().Create(ctx, tx); err != nil {
		return nil, false, storeError(err, "premium transaction")
	}

	s.recordOnPolicy(ctx, cp.ID, models.EventPaymentInitiated, p.Actor())

	logrus.WithFields(logrus.Fields{
		"transaction_id":     tx.ID,
		"customer_policy_id": cp.ID,
		"reference_id":       tx.ReferenceID,
		"installment":        installment,
	}).Info("Premium payment initiated")

	return tx, false, nil
}

// Verify records the gateway outcome. The transaction row's version decides
// between concurrent verifiers; the loser sees a conflict.
func (s *PremiumService) Verify(ctx context.Context, p Principal, req *VerifyPremiumRequest) (*VerifyPremiumResult, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can verify payments")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}
	if len(req.ProviderResponse) > 0 && !json.Valid(req.ProviderResponse) {
		return nil, ErrValidation("provider_response must be valid JSON")
	}

	now := s.now()
	var tx *models.PremiumTransaction
	err := retryOnConflict(ctx, func() error {
		var err error
		tx, err = s.store.Premiums().GetByID(ctx, req.TransactionID)
		if err != nil {
			return storeError(err, "premium transaction")
		}
		switch tx.Status {
		case models.PremiumSuccess:
			return ErrConflict("payment already verified as success")
		case models.PremiumFailed:
			return ErrConflict("payment already marked as failed")
		case models.PremiumRefunded, models.PremiumCancelled:
			return ErrInvalidTransition("a %s payment cannot be verified", tx.Status)
		}

		if req.Success {
			tx.Status = models.PremiumSuccess
			tx.GatewayStatus = "captured"
			tx.CompletedAt = &now
			if req.ProviderPaymentID != "" {
				tx.ProviderPaymentID = req.ProviderPaymentID
			}
			if len(req.ProviderResponse) > 0 {
				tx.ProviderResponse = datatypes.JSON(req.ProviderResponse)
			}
			if tx.CustomerPolicy != nil && tx.CustomerPolicy.Status == models.CustomerPolicyPendingPayment {
				tx.IsPolicyActivation = true
				tx.PolicyActivatedAt = &now
			}
		} else {
			tx.Status = models.PremiumFailed
			tx.GatewayStatus = "failed"
			tx.FailureReason = req.FailureReason
			if tx.FailureReason == "" {
				tx.FailureReason = defaultFailureReason
			}
		}

		return s.store.Premiums().Update(ctx, tx)
	})
	if err != nil {
		return nil, storeError(err, "premium transaction")
	}

	var cp *models.CustomerPolicy
	err = retryOnConflict(ctx, func() error {
		var err error
		cp, err = s.store.CustomerPolicies().GetByID(ctx, tx.CustomerPolicyID)
		if err != nil {
			return storeError(err, "customer policy")
		}

		if !req.Success {
			cp.PremiumPaid = false
			return s.store.CustomerPolicies().Update(ctx, cp)
		}

		if cp.Status == models.CustomerPolicyPendingPayment {
			cp.Status = models.CustomerPolicyActive
			cp.StartDate = now
			duration := 0
			if cp.Policy != nil {
				duration = cp.Policy.DurationInMonths()
			}
			cp.EndDate = utils.AddCalendarMonths(now, duration)
			cp.PolicyActivatedAt = &now
		}
		cp.PremiumPaid = true
		cp.LastPaymentDate = &now
		if tx.HasRemainingInstallments() {
			next := cp.PaymentFrequency.NextDue(now)
			cp.NextPaymentDue = &next
		} else {
			cp.NextPaymentDue = nil
		}
		cp.Record(models.EventPremiumPaid, p.Actor(), now)

		return s.store.CustomerPolicies().Update(ctx, cp)
	})
	if err != nil {
		return nil, storeError(err, "customer policy")
	}
	tx.CustomerPolicy = cp

	if req.Success {
		method := req.PaymentMethod
		if method == "" {
			method = models.PaymentCreditCard
		}
		cpID := cp.ID
		entry := &models.Transaction{
			CustomerID:       tx.CustomerID,
			CustomerPolicyID: &cpID,
			Amount:           tx.TotalAmount,
			TransactionType:  models.TransactionPremiumPayment,
			PaymentMethod:    method,
			Status:           models.TransactionSuccess,
			ReferenceID:      tx.ReferenceID,
			Remarks:          fmt.Sprintf("Premium installment %d of %d, invoice %s", tx.InstallmentNumber, tx.TotalInstallments, tx.InvoiceNo),
		}
		if err := s.ledger.record(ctx, s.store, entry); err != nil {
			logrus.WithError(err).WithField("transaction_id", tx.ID).Error("Failed to record premium payment in ledger")
		}
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id":     tx.ID,
		"customer_policy_id": cp.ID,
		"status":             tx.Status,
		"policy_status":      cp.Status,
	}).Info("Premium payment verified")

	publish(ctx, s.publisher, event.PremiumVerified, map[string]interface{}{
		"transaction_id":     tx.ID,
		"customer_policy_id": cp.ID,
		"customer_id":        tx.CustomerID,
		"status":             tx.Status,
	})

	return &VerifyPremiumResult{Transaction: tx, CustomerPolicy: cp}, nil
}

// Retry opens a new attempt for a failed payment. The failed record is kept.
func (s *PremiumService) Retry(ctx context.Context, p Principal, id uuid.UUID) (*models.PremiumTransaction, error) {
	old, err := s.store.Premiums().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "premium transaction")
	}
	if !p.CanAccess(old.CustomerID) {
		return nil, ErrForbidden("not authorized to retry this transaction")
	}
	if old.Status != models.PremiumFailed {
		return nil, ErrInvalidTransition("only failed transactions can be retried")
	}
	if old.CustomerPolicy != nil && old.CustomerPolicy.Status.IsTerminal() {
		return nil, ErrInvalidTransition("cannot pay premium for a %s policy", old.CustomerPolicy.Status)
	}

	paid, err := s.store.Premiums().HasSuccessfulInstallment(ctx, old.CustomerPolicyID, old.InstallmentNumber)
	if err != nil {
		return nil, storeError(err, "premium transaction")
	}
	if paid {
		return nil, ErrConflict("premium already paid for installment %d", old.InstallmentNumber)
	}

	now := s.now()
	oldID := old.ID
	tx := &models.PremiumTransaction{
		CustomerID:        old.CustomerID,
		CustomerPolicyID:  old.CustomerPolicyID,
		Amount:            old.Amount,
		TotalAmount:       old.TotalAmount,
		Currency:          old.Currency,
		IsInstallment:     old.IsInstallment,
		InstallmentNumber: old.InstallmentNumber,
		TotalInstallments: old.TotalInstallments,
		InstallmentAmount: old.InstallmentAmount,
		Provider:          s.gateway.Provider(),
		Gateway:           s.gateway.Gateway(),
		ReferenceID:       utils.NewReferenceID("REF-RETRY"),
		InvoiceNo:         utils.NewInvoiceNumber(now),
		Status:            models.PremiumInitiated,
		InitiatedAt:       now,
		RetryCount:        old.RetryCount + 1,
		RetryOfID:         &oldID,
		Remarks:           fmt.Sprintf("Retry of %s", old.ReferenceID),
	}

	providerID, err := s.gateway.Initiate(ctx, tx)
	if err != nil {
		return nil, ErrUnexpected("payment gateway rejected the request", err)
	}
	tx.ProviderPaymentID = providerID

	if err := s.store.Premiums().Create(ctx, tx); err != nil {
		return nil, storeError(err, "premium transaction")
	}

	s.recordOnPolicy(ctx, tx.CustomerPolicyID, models.EventPaymentInitiated, p.Actor())

	logrus.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"retry_of":       oldID,
		"retry_count":    tx.RetryCount,
	}).Info("Premium payment retried")

	return tx, nil
}

func (s *PremiumService) Refund(ctx context.Context, p Principal, id uuid.UUID) (*models.PremiumTransaction, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can refund payments")
	}

	var tx *models.PremiumTransaction
	err := retryOnConflict(ctx, func() error {
		var err error
		tx, err = s.store.Premiums().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "premium transaction")
		}
		if tx.Status != models.PremiumSuccess {
			return ErrInvalidTransition("only successful payments can be refunded")
		}
		if err := s.gateway.Refund(ctx, tx); err != nil {
			return ErrUnexpected("payment gateway refused the refund", err)
		}

		now := s.now()
		tx.Status = models.PremiumRefunded
		tx.GatewayStatus = "refunded"
		tx.RefundedAt = &now
		return s.store.Premiums().Update(ctx, tx)
	})
	if err != nil {
		return nil, storeError(err, "premium transaction")
	}

	cpID := tx.CustomerPolicyID
	entry := &models.Transaction{
		CustomerID:       tx.CustomerID,
		CustomerPolicyID: &cpID,
		Amount:           tx.TotalAmount,
		TransactionType:  models.TransactionRefund,
		PaymentMethod:    models.PaymentCreditCard,
		Status:           models.TransactionSuccess,
		ReferenceID:      utils.NewReferenceID("RFD"),
		Remarks:          fmt.Sprintf("Refund of %s", tx.ReferenceID),
	}
	if err := s.ledger.record(ctx, s.store, entry); err != nil {
		logrus.WithError(err).WithField("transaction_id", tx.ID).Error("Failed to record premium refund in ledger")
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"refunded_by":    p.ID,
	}).Info("Premium payment refunded")

	publish(ctx, s.publisher, event.PremiumRefunded, map[string]interface{}{
		"transaction_id":     tx.ID,
		"customer_policy_id": tx.CustomerPolicyID,
		"customer_id":        tx.CustomerID,
		"amount":             tx.TotalAmount,
	})

	return tx, nil
}

// Cancel abandons a payment that has not reached the gateway outcome yet.
func (s *PremiumService) Cancel(ctx context.Context, p Principal, id uuid.UUID) (*models.PremiumTransaction, error) {
	var tx *models.PremiumTransaction
	err := retryOnConflict(ctx, func() error {
		var err error
		tx, err = s.store.Premiums().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "premium transaction")
		}
		if !p.CanAccess(tx.CustomerID) {
			return ErrForbidden("not authorized to cancel this transaction")
		}
		if tx.Status != models.PremiumInitiated {
			return ErrInvalidTransition("only initiated transactions can be cancelled")
		}

		tx.Status = models.PremiumCancelled
		return s.store.Premiums().Update(ctx, tx)
	})
	if err != nil {
		return nil, storeError(err, "premium transaction")
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"cancelled_by":   p.ID,
	}).Info("Premium payment cancelled")

	return tx, nil
}

func (s *PremiumService) Invoice(ctx context.Context, p Principal, id uuid.UUID) (*Invoice, error) {
	tx, err := s.store.Premiums().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "premium transaction")
	}
	if tx.CustomerID != p.ID && !p.IsStaff() {
		return nil, ErrForbidden("not authorized to view this invoice")
	}
	if tx.Status != models.PremiumSuccess {
		return nil, ErrInvalidTransition("invoice only for successful payments")
	}

	invoice := &Invoice{
		InvoiceNo:   tx.InvoiceNo,
		ReferenceID: tx.ReferenceID,
		CustomerID:  tx.CustomerID,
		Amount:      tx.TotalAmount,
		Currency:    tx.Currency,
		Installment: tx.InstallmentNumber,
		PaidAt:      tx.CompletedAt,
	}
	if customer, err := s.store.Users().GetByID(ctx, tx.CustomerID); err == nil {
		invoice.CustomerName = customer.Name
		invoice.CustomerEmail = customer.Email
	}
	if cp := tx.CustomerPolicy; cp != nil {
		invoice.PolicyNumber = cp.PolicyNumber
		if cp.Policy != nil {
			invoice.PolicyCode = cp.Policy.PolicyCode
			invoice.PolicyTitle = cp.Policy.Title
		}
	}

	return invoice, nil
}

func (s *PremiumService) Get(ctx context.Context, p Principal, id uuid.UUID) (*models.PremiumTransaction, error) {
	tx, err := s.store.Premiums().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "premium transaction")
	}
	if !p.CanAccess(tx.CustomerID) {
		return nil, ErrForbidden("not authorized to view this transaction")
	}
	return tx, nil
}

func (s *PremiumService) ListByCustomer(ctx context.Context, p Principal, customerID uuid.UUID, params utils.PaginationParams) ([]models.PremiumTransaction, int64, error) {
	if !p.CanAccess(customerID) {
		return nil, 0, ErrForbidden("not authorized to view this customer's transactions")
	}
	txs, total, err := s.store.Premiums().ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, 0, storeError(err, "premium transaction")
	}
	return txs, total, nil
}

// recordOnPolicy appends a history event to a customer policy. The payment
// record is already stored, so a failure here is logged only.
func (s *PremiumService) recordOnPolicy(ctx context.Context, customerPolicyID uuid.UUID, name string, actor *uuid.UUID) {
	err := retryOnConflict(ctx, func() error {
		cp, err := s.store.CustomerPolicies().GetByID(ctx, customerPolicyID)
		if err != nil {
			return err
		}
		cp.Record(name, actor, s.now())
		return s.store.CustomerPolicies().Update(ctx, cp)
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"customer_policy_id": customerPolicyID,
			"event":              name,
		}).Warn("Failed to record payment event on customer policy")
	}
}
