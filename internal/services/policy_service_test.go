// internal/services/policy_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
)

type PolicyServiceTestSuite struct {
	serviceSuite
}

func TestPolicyServiceSuite(t *testing.T) {
	suite.Run(t, new(PolicyServiceTestSuite))
}

func (s *PolicyServiceTestSuite) TestCreateAppliesDefaults() {
	policy := s.createPolicy(1200, 500000, 12)

	s.Regexp(`^POL-\d{4}-\d{4}$`, policy.PolicyCode)
	s.Equal(models.PolicyStatusActive, policy.Status)
	s.True(policy.Renewable)
	s.Equal(12, policy.RenewalPeriodInMonths)
	s.Equal(30, policy.GracePeriodDays)
	s.Equal(18, policy.Eligibility.Data().MinAge)
	s.Equal(65, policy.Eligibility.Data().MaxAge)
	s.Equal(12, policy.Terms.Data().DurationInMonths)
	s.Require().NotNil(policy.CreatedByID)
	s.Equal(s.admin.ID, *policy.CreatedByID)
}

func (s *PolicyServiceTestSuite) TestCreateGuards() {
	_, err := s.policies.Create(s.ctx, s.customer, &CreatePolicyRequest{
		PolicyType: models.PolicyTypeHealth,
		Title:      "Customer Made Plan",
	})
	s.requireKind(err, KindForbidden)

	_, err = s.policies.Create(s.ctx, s.agent, &CreatePolicyRequest{
		PolicyType:     "pet",
		Title:          "Pet Plan",
		CoverageAmount: decimal.NewFromInt(10),
	})
	s.requireKind(err, KindValidation)

	_, err = s.policies.Create(s.ctx, s.agent, &CreatePolicyRequest{
		PolicyType:    models.PolicyTypeHealth,
		Title:         "Negative Plan",
		PremiumAmount: decimal.NewFromInt(-5),
	})
	s.requireKind(err, KindValidation)

	_, err = s.policies.Create(s.ctx, s.agent, &CreatePolicyRequest{
		PolicyType:  models.PolicyTypeHealth,
		Title:       "Inverted Ages",
		Eligibility: &models.Eligibility{MinAge: 60, MaxAge: 20},
	})
	s.requireKind(err, KindValidation)

	existing := s.createPolicy(100, 1000, 12)
	_, err = s.policies.Create(s.ctx, s.agent, &CreatePolicyRequest{
		PolicyType: models.PolicyTypeHealth,
		Title:      existing.Title,
	})
	s.requireKind(err, KindConflict)
}

func (s *PolicyServiceTestSuite) TestUpdateAndList() {
	policy := s.createPolicy(100, 1000, 12)

	premium := decimal.NewFromInt(250)
	_, err := s.policies.Update(s.ctx, s.customer, policy.ID, &UpdatePolicyRequest{PremiumAmount: &premium})
	s.requireKind(err, KindForbidden)

	updated, err := s.policies.Update(s.ctx, s.agent, policy.ID, &UpdatePolicyRequest{PremiumAmount: &premium})
	s.Require().NoError(err)
	s.True(updated.PremiumAmount.Equal(premium))
	s.Equal(policy.PolicyCode, updated.PolicyCode)

	_, err = s.policies.Update(s.ctx, s.agent, uuid.New(), &UpdatePolicyRequest{PremiumAmount: &premium})
	s.requireKind(err, KindNotFound)

	s.createPolicy(900, 9000, 12)
	low := decimal.NewFromInt(200)
	high := decimal.NewFromInt(300)
	found, total, err := s.policies.List(s.ctx, repository.PolicyFilter{MinPremium: &low, MaxPremium: &high})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(policy.ID, found[0].ID)
}

func (s *PolicyServiceTestSuite) TestDeleteRules() {
	unused := s.createPolicy(100, 1000, 12)
	subscribed := s.createPolicy(200, 2000, 12)
	s.purchase(s.customer, subscribed, models.FrequencyMonthly)

	err := s.policies.Delete(s.ctx, s.agent, unused.ID)
	s.requireKind(err, KindForbidden)

	err = s.policies.Delete(s.ctx, s.admin, subscribed.ID)
	s.requireKind(err, KindConflict)

	s.Require().NoError(s.policies.Delete(s.ctx, s.admin, unused.ID))
	_, err = s.policies.Get(s.ctx, unused.ID)
	s.requireKind(err, KindNotFound)
}
