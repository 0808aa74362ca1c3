// internal/services/customer_policy_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/event"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const (
	maxPolicyNumberAttempts = 5
	expireBatchSize         = 500
)

// CustomerPolicyService drives the subscription lifecycle:
// pending_payment -> active -> {cancelled, expired}. Renewal keeps the
// policy active.
type CustomerPolicyService struct {
	store     repository.Store
	ledger    *LedgerService
	publisher event.Publisher
	now       func() time.Time
}

type PurchasePolicyRequest struct {
	PolicyID         uuid.UUID               `json:"policy_id" validate:"required"`
	PaymentFrequency models.PaymentFrequency `json:"payment_frequency" validate:"omitempty,payment_frequency"`
}

type PayPremiumRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"omitempty,payment_method"`
}

func NewCustomerPolicyService(store repository.Store, ledger *LedgerService, publisher event.Publisher) *CustomerPolicyService {
	return &CustomerPolicyService{
		store:     store,
		ledger:    ledger,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *CustomerPolicyService) Purchase(ctx context.Context, p Principal, req *PurchasePolicyRequest) (*models.CustomerPolicy, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}
	if req.PolicyID == uuid.Nil {
		return nil, ErrValidation("policy_id is required")
	}

	policy, err := s.store.Policies().GetByID(ctx, req.PolicyID)
	if err != nil {
		return nil, storeError(err, "policy")
	}
	if policy.Status != models.PolicyStatusActive {
		return nil, ErrValidation("policy %s is %s and cannot be purchased", policy.PolicyCode, policy.Status)
	}

	frequency := req.PaymentFrequency
	if frequency == "" {
		frequency = models.FrequencyMonthly
	}

	now := s.now()
	cp := &models.CustomerPolicy{
		CustomerID:       p.ID,
		PolicyID:         policy.ID,
		StartDate:        now,
		EndDate:          utils.AddCalendarMonths(now, policy.DurationInMonths()),
		PaymentFrequency: frequency,
		CreatedByID:      p.Actor(),
	}
	nextDue := frequency.NextDue(now)
	cp.NextPaymentDue = &nextDue
	cp.Transition(models.CustomerPolicyPendingPayment, p.Actor(), now)

	for attempt := 1; ; attempt++ {
		if err := s.ensureNotSubscribed(ctx, p.ID, policy.ID); err != nil {
			return nil, err
		}

		number, err := s.nextPolicyNumber(ctx, now)
		if err != nil {
			return nil, err
		}
		cp.PolicyNumber = number

		err = s.store.CustomerPolicies().Create(ctx, cp)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= maxPolicyNumberAttempts {
			return nil, storeError(err, "customer policy")
		}
		// Either the pair or the number was taken concurrently; the next
		// pass tells them apart.
		cp.ID = uuid.Nil
	}

	cp.Policy = policy

	logrus.WithFields(logrus.Fields{
		"customer_policy_id": cp.ID,
		"policy_number":      cp.PolicyNumber,
		"customer_id":        p.ID,
		"status":             cp.Status,
	}).Info("Policy purchased")

	publish(ctx, s.publisher, event.PolicyPurchased, map[string]interface{}{
		"customer_policy_id": cp.ID,
		"customer_id":        cp.CustomerID,
		"policy_id":          cp.PolicyID,
		"policy_number":      cp.PolicyNumber,
	})

	return cp, nil
}

func (s *CustomerPolicyService) ListMine(ctx context.Context, p Principal) ([]models.CustomerPolicy, error) {
	policies, err := s.store.CustomerPolicies().ListByCustomer(ctx, p.ID)
	if err != nil {
		return nil, storeError(err, "customer policy")
	}
	return policies, nil
}

// Get is open to any authenticated caller.
func (s *CustomerPolicyService) Get(ctx context.Context, id uuid.UUID) (*models.CustomerPolicy, error) {
	cp, err := s.store.CustomerPolicies().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "customer policy")
	}
	return cp, nil
}

// Renew extends an active policy by the template's renewal period.
func (s *CustomerPolicyService) Renew(ctx context.Context, p Principal, id uuid.UUID) (*models.CustomerPolicy, error) {
	var cp *models.CustomerPolicy
	err := retryOnConflict(ctx, func() error {
		var err error
		cp, err = s.store.CustomerPolicies().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "customer policy")
		}
		if !p.CanAccess(cp.CustomerID) {
			return ErrForbidden("you can only renew your own policies")
		}
		if cp.Status != models.CustomerPolicyActive {
			return ErrInvalidTransition("only active policies can be renewed")
		}
		if cp.Policy != nil && !cp.Policy.Renewable {
			return ErrInvalidTransition("policy %s is not renewable", cp.Policy.PolicyCode)
		}

		months := 12
		if cp.Policy != nil && cp.Policy.RenewalPeriodInMonths > 0 {
			months = cp.Policy.RenewalPeriodInMonths
		}

		cp.EndDate = utils.AddCalendarMonths(cp.EndDate, months)
		cp.RenewalCount++
		renewalDue := cp.EndDate
		cp.RenewalDueDate = &renewalDue
		cp.Record(models.EventRenewed, p.Actor(), s.now())

		return s.store.CustomerPolicies().Update(ctx, cp)
	})
	if err != nil {
		return nil, storeError(err, "customer policy")
	}

	logrus.WithFields(logrus.Fields{
		"customer_policy_id": cp.ID,
		"renewal_count":      cp.RenewalCount,
		"end_date":           cp.EndDate,
	}).Info("Policy renewed")

	return cp, nil
}

// Cancel is terminal. Cancelled and expired policies cannot be cancelled again.
func (s *CustomerPolicyService) Cancel(ctx context.Context, p Principal, id uuid.UUID) (*models.CustomerPolicy, error) {
	var cp *models.CustomerPolicy
	err := retryOnConflict(ctx, func() error {
		var err error
		cp, err = s.store.CustomerPolicies().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "customer policy")
		}
		if !p.CanAccess(cp.CustomerID) {
			return ErrForbidden("you can only cancel your own policies")
		}
		switch cp.Status {
		case models.CustomerPolicyCancelled:
			return ErrInvalidTransition("policy is already cancelled")
		case models.CustomerPolicyExpired:
			return ErrInvalidTransition("expired policy cannot be cancelled")
		}

		cp.Transition(models.CustomerPolicyCancelled, p.Actor(), s.now())
		return s.store.CustomerPolicies().Update(ctx, cp)
	})
	if err != nil {
		return nil, storeError(err, "customer policy")
	}

	logrus.WithFields(logrus.Fields{
		"customer_policy_id": cp.ID,
		"cancelled_by":       p.ID,
	}).Info("Policy cancelled")

	publish(ctx, s.publisher, event.PolicyCancelled, map[string]interface{}{
		"customer_policy_id": cp.ID,
		"customer_id":        cp.CustomerID,
	})

	return cp, nil
}

// PayPremium records a premium paid outside the gateway flow.
func (s *CustomerPolicyService) PayPremium(ctx context.Context, p Principal, id uuid.UUID, req *PayPremiumRequest) (*models.CustomerPolicy, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}

	var cp *models.CustomerPolicy
	err := retryOnConflict(ctx, func() error {
		var err error
		cp, err = s.store.CustomerPolicies().GetByID(ctx, id)
		if err != nil {
			return storeError(err, "customer policy")
		}
		if !p.CanAccess(cp.CustomerID) {
			return ErrForbidden("you can only pay premiums for your own policies")
		}
		switch cp.Status {
		case models.CustomerPolicyCancelled:
			return ErrInvalidTransition("cannot pay premium for a cancelled policy")
		case models.CustomerPolicyExpired:
			return ErrInvalidTransition("policy expired, please renew instead")
		}

		now := s.now()
		if cp.PolicyActivatedAt == nil {
			cp.PolicyActivatedAt = &now
		}
		cp.PremiumPaid = true
		cp.LastPaymentDate = &now
		next := cp.PaymentFrequency.NextDue(now)
		cp.NextPaymentDue = &next
		cp.Status = models.CustomerPolicyActive
		cp.Record(models.EventPremiumPaid, p.Actor(), now)

		return s.store.CustomerPolicies().Update(ctx, cp)
	})
	if err != nil {
		return nil, storeError(err, "customer policy")
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentWallet
	}
	if cp.Policy != nil {
		cpID := cp.ID
		entry := &models.Transaction{
			CustomerID:       cp.CustomerID,
			CustomerPolicyID: &cpID,
			Amount:           cp.Policy.PremiumAmount,
			TransactionType:  models.TransactionPremiumPayment,
			PaymentMethod:    method,
			Status:           models.TransactionSuccess,
			ReferenceID:      utils.NewReferenceID("PAY"),
			Remarks:          fmt.Sprintf("Direct premium payment for %s", cp.PolicyNumber),
		}
		if err := s.ledger.record(ctx, s.store, entry); err != nil {
			logrus.WithError(err).WithField("customer_policy_id", cp.ID).Error("Failed to record direct premium payment in ledger")
		}
	}

	logrus.WithFields(logrus.Fields{
		"customer_policy_id": cp.ID,
		"next_payment_due":   cp.NextPaymentDue,
	}).Info("Premium paid directly")

	return cp, nil
}

// ExpireLapsed moves active policies past their end date to expired and
// returns how many were expired.
func (s *CustomerPolicyService) ExpireLapsed(ctx context.Context) (int, error) {
	now := s.now()
	lapsed, err := s.store.CustomerPolicies().ListLapsed(ctx, now, expireBatchSize)
	if err != nil {
		return 0, storeError(err, "customer policy")
	}

	expired := 0
	for _, candidate := range lapsed {
		var cp *models.CustomerPolicy
		changed := false
		err := retryOnConflict(ctx, func() error {
			var err error
			cp, err = s.store.CustomerPolicies().GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			changed = false
			if cp.Status != models.CustomerPolicyActive || !cp.EndDate.Before(now) {
				return nil
			}
			cp.Transition(models.CustomerPolicyExpired, nil, now)
			changed = true
			return s.store.CustomerPolicies().Update(ctx, cp)
		})
		if err != nil {
			logrus.WithError(err).WithField("customer_policy_id", candidate.ID).Warn("Failed to expire customer policy")
			continue
		}
		if !changed {
			continue
		}

		expired++
		publish(ctx, s.publisher, event.PolicyExpired, map[string]interface{}{
			"customer_policy_id": cp.ID,
			"customer_id":        cp.CustomerID,
			"end_date":           cp.EndDate,
		})
	}

	if expired > 0 {
		logrus.WithField("count", expired).Info("Expired lapsed customer policies")
	}
	return expired, nil
}

func (s *CustomerPolicyService) ensureNotSubscribed(ctx context.Context, customerID, policyID uuid.UUID) error {
	_, err := s.store.CustomerPolicies().FindByCustomerAndPolicy(ctx, customerID, policyID)
	switch {
	case err == nil:
		return ErrConflict("you have already purchased this policy")
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return storeError(err, "customer policy")
	}
}

// nextPolicyNumber returns CUST-<year>-<seq>, the sequence restarting each year.
func (s *CustomerPolicyService) nextPolicyNumber(ctx context.Context, at time.Time) (string, error) {
	prefix := fmt.Sprintf("CUST-%d-", at.Year())
	last, err := s.store.CustomerPolicies().LastPolicyNumber(ctx, prefix)
	if err != nil {
		return "", storeError(err, "customer policy")
	}

	seq := 0
	if last != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(last, prefix)); err == nil {
			seq = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}
