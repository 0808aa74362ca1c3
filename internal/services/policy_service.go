// internal/services/policy_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const maxPolicyCodeAttempts = 10

// PolicyService manages the catalog of policy templates.
type PolicyService struct {
	store repository.Store
	now   func() time.Time
}

type CreatePolicyRequest struct {
	PolicyType            models.PolicyType   `json:"policy_type" validate:"required,policy_type"`
	Title                 string              `json:"title" validate:"required,min=3,max=255"`
	Description           string              `json:"description"`
	CoverageAmount        decimal.Decimal     `json:"coverage_amount"`
	PremiumAmount         decimal.Decimal     `json:"premium_amount"`
	Terms                 models.PolicyTerms  `json:"terms"`
	EffectiveFrom         *time.Time          `json:"effective_from,omitempty"`
	ValidTill             *time.Time          `json:"valid_till,omitempty"`
	Renewable             *bool               `json:"renewable,omitempty"`
	RenewalPeriodInMonths int                 `json:"renewal_period_in_months" validate:"omitempty,min=1,max=120"`
	GracePeriodDays       *int                `json:"grace_period_days,omitempty" validate:"omitempty,min=0,max=365"`
	Eligibility           *models.Eligibility `json:"eligibility,omitempty"`
	Status                models.PolicyStatus `json:"status,omitempty" validate:"omitempty,policy_status"`
}

type UpdatePolicyRequest struct {
	PolicyType            *models.PolicyType   `json:"policy_type,omitempty" validate:"omitempty,policy_type"`
	Title                 *string              `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description           *string              `json:"description,omitempty"`
	CoverageAmount        *decimal.Decimal     `json:"coverage_amount,omitempty"`
	PremiumAmount         *decimal.Decimal     `json:"premium_amount,omitempty"`
	Terms                 *models.PolicyTerms  `json:"terms,omitempty"`
	ValidTill             *time.Time           `json:"valid_till,omitempty"`
	Renewable             *bool                `json:"renewable,omitempty"`
	RenewalPeriodInMonths *int                 `json:"renewal_period_in_months,omitempty" validate:"omitempty,min=1,max=120"`
	GracePeriodDays       *int                 `json:"grace_period_days,omitempty" validate:"omitempty,min=0,max=365"`
	Eligibility           *models.Eligibility  `json:"eligibility,omitempty"`
	Status                *models.PolicyStatus `json:"status,omitempty" validate:"omitempty,policy_status"`
}

func NewPolicyService(store repository.Store) *PolicyService {
	return &PolicyService{store: store, now: time.Now}
}

func (s *PolicyService) Create(ctx context.Context, p Principal, req *CreatePolicyRequest) (*models.Policy, error) {
	if !p.IsStaff() {
		return nil, ErrForbidden("only agents or admins can create policies")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}
	if err := validateMoney(req.CoverageAmount, req.PremiumAmount); err != nil {
		return nil, err
	}
	if err := validateEligibility(req.Eligibility); err != nil {
		return nil, err
	}

	now := s.now()
	policy := &models.Policy{
		PolicyType:            req.PolicyType,
		Title:                 strings.TrimSpace(req.Title),
		Description:           req.Description,
		CoverageAmount:        req.CoverageAmount,
		PremiumAmount:         req.PremiumAmount,
		Terms:                 datatypes.NewJSONType(req.Terms),
		EffectiveFrom:         now,
		ValidTill:             req.ValidTill,
		Renewable:             true,
		RenewalPeriodInMonths: 12,
		GracePeriodDays:       30,
		Status:                models.PolicyStatusActive,
		CreatedByID:           p.Actor(),
		UpdatedByID:           p.Actor(),
	}
	if req.EffectiveFrom != nil {
		policy.EffectiveFrom = *req.EffectiveFrom
	}
	if req.Renewable != nil {
		policy.Renewable = *req.Renewable
	}
	if req.RenewalPeriodInMonths > 0 {
		policy.RenewalPeriodInMonths = req.RenewalPeriodInMonths
	}
	if req.GracePeriodDays != nil {
		policy.GracePeriodDays = *req.GracePeriodDays
	}
	if req.Status != "" {
		policy.Status = req.Status
	}
	eligibility := models.Eligibility{MinAge: 18, MaxAge: 65}
	if req.Eligibility != nil {
		eligibility = *req.Eligibility
	}
	policy.Eligibility = datatypes.NewJSONType(eligibility)

	code, err := s.generatePolicyCode(ctx, now)
	if err != nil {
		return nil, err
	}
	policy.PolicyCode = code

	if err := s.store.Policies().Create(ctx, policy); err != nil {
		if KindOf(storeError(err, "policy")) == KindConflict {
			return nil, ErrConflict("a policy titled %q already exists", policy.Title)
		}
		return nil, storeError(err, "policy")
	}

	logrus.WithFields(logrus.Fields{
		"policy_id":   policy.ID,
		"policy_code": policy.PolicyCode,
		"created_by":  p.ID,
	}).Info("Policy created")

	return policy, nil
}

func (s *PolicyService) List(ctx context.Context, filter repository.PolicyFilter) ([]models.Policy, int64, error) {
	policies, total, err := s.store.Policies().List(ctx, filter)
	if err != nil {
		return nil, 0, storeError(err, "policy")
	}
	return policies, total, nil
}

func (s *PolicyService) Get(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	policy, err := s.store.Policies().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "policy")
	}
	return policy, nil
}

// Update applies an explicit staff edit. Live subscriptions keep reading the
// edited template; nothing is snapshotted at purchase time.
func (s *PolicyService) Update(ctx context.Context, p Principal, id uuid.UUID, req *UpdatePolicyRequest) (*models.Policy, error) {
	if !p.IsStaff() {
		return nil, ErrForbidden("only agents or admins can update policies")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}

	policy, err := s.store.Policies().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "policy")
	}

	if req.PolicyType != nil {
		policy.PolicyType = *req.PolicyType
	}
	if req.Title != nil {
		policy.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		policy.Description = *req.Description
	}
	if req.CoverageAmount != nil {
		policy.CoverageAmount = *req.CoverageAmount
	}
	if req.PremiumAmount != nil {
		policy.PremiumAmount = *req.PremiumAmount
	}
	if err := validateMoney(policy.CoverageAmount, policy.PremiumAmount); err != nil {
		return nil, err
	}
	if req.Terms != nil {
		policy.Terms = datatypes.NewJSONType(*req.Terms)
	}
	if req.ValidTill != nil {
		policy.ValidTill = req.ValidTill
	}
	if req.Renewable != nil {
		policy.Renewable = *req.Renewable
	}
	if req.RenewalPeriodInMonths != nil {
		policy.RenewalPeriodInMonths = *req.RenewalPeriodInMonths
	}
	if req.GracePeriodDays != nil {
		policy.GracePeriodDays = *req.GracePeriodDays
	}
	if req.Eligibility != nil {
		if err := validateEligibility(req.Eligibility); err != nil {
			return nil, err
		}
		policy.Eligibility = datatypes.NewJSONType(*req.Eligibility)
	}
	if req.Status != nil {
		policy.Status = *req.Status
	}
	policy.UpdatedByID = p.Actor()

	live, err := s.store.CustomerPolicies().CountLiveByPolicy(ctx, policy.ID)
	if err != nil {
		return nil, storeError(err, "customer policy")
	}
	if live > 0 {
		logrus.WithFields(logrus.Fields{
			"policy_id":     policy.ID,
			"subscriptions": live,
			"updated_by":    p.ID,
		}).Warn("Policy edited while referenced by live subscriptions")
	}

	if err := s.store.Policies().Update(ctx, policy); err != nil {
		return nil, storeError(err, "policy")
	}

	return policy, nil
}

func (s *PolicyService) Delete(ctx context.Context, p Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return ErrForbidden("only admins can delete policies")
	}
	if err := s.store.Policies().Delete(ctx, id); err != nil {
		return storeError(err, "policy")
	}

	logrus.WithFields(logrus.Fields{"policy_id": id, "deleted_by": p.ID}).Info("Policy deleted")
	return nil
}

// generatePolicyCode draws POL-<year>-<4 digits> until an unused code is found.
func (s *PolicyService) generatePolicyCode(ctx context.Context, at time.Time) (string, error) {
	for attempt := 0; attempt < maxPolicyCodeAttempts; attempt++ {
		digits, err := utils.RandomDigits(4)
		if err != nil {
			return "", ErrUnexpected("failed to generate policy code", err)
		}
		code := fmt.Sprintf("POL-%d-%s", at.Year(), digits)

		exists, err := s.store.Policies().ExistsByCode(ctx, code)
		if err != nil {
			return "", storeError(err, "policy")
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrConflict("could not allocate a unique policy code, please retry")
}

func validateMoney(coverage, premium decimal.Decimal) error {
	if coverage.IsNegative() {
		return ErrValidation("coverage_amount must not be negative")
	}
	if premium.IsNegative() {
		return ErrValidation("premium_amount must not be negative")
	}
	return nil
}

func validateEligibility(e *models.Eligibility) error {
	if e == nil {
		return nil
	}
	if e.MinAge < 0 || e.MaxAge < 0 {
		return ErrValidation("eligibility ages must not be negative")
	}
	if e.MaxAge > 0 && e.MinAge > e.MaxAge {
		return ErrValidation("eligibility min_age must not exceed max_age")
	}
	return nil
}
