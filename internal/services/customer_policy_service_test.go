// internal/services/customer_policy_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/insurance-backend/internal/event"
	"github.com/javajoker/insurance-backend/internal/models"
)

type CustomerPolicyServiceTestSuite struct {
	serviceSuite
}

func TestCustomerPolicyServiceSuite(t *testing.T) {
	suite.Run(t, new(CustomerPolicyServiceTestSuite))
}

func (s *CustomerPolicyServiceTestSuite) TestPurchaseAssignsSequentialPolicyNumbers() {
	policy := s.createPolicy(1200, 100000, 12)

	first := s.purchase(s.customer, policy, "")
	second := s.purchase(s.other, policy, models.FrequencyQuarterly)

	prefix := fmt.Sprintf("CUST-%d-", time.Now().Year())
	s.Equal(prefix+"0001", first.PolicyNumber)
	s.Equal(prefix+"0002", second.PolicyNumber)
	s.Equal(models.FrequencyMonthly, first.PaymentFrequency)
	s.True(second.NextPaymentDue.Equal(second.StartDate.AddDate(0, 3, 0)))
	s.Equal(2, s.publisher.count(event.PolicyPurchased))
}

func (s *CustomerPolicyServiceTestSuite) TestPurchaseGuards() {
	policy := s.createPolicy(1200, 100000, 12)
	s.purchase(s.customer, policy, models.FrequencyMonthly)

	_, err := s.customerPolicies.Purchase(s.ctx, s.customer, &PurchasePolicyRequest{PolicyID: policy.ID})
	s.requireKind(err, KindConflict)

	status := models.PolicyStatusCancelled
	retired := s.createPolicy(900, 50000, 6)
	_, err = s.policies.Update(s.ctx, s.admin, retired.ID, &UpdatePolicyRequest{Status: &status})
	s.Require().NoError(err)

	_, err = s.customerPolicies.Purchase(s.ctx, s.customer, &PurchasePolicyRequest{PolicyID: retired.ID})
	s.requireKind(err, KindValidation)

	_, err = s.customerPolicies.Purchase(s.ctx, s.customer, &PurchasePolicyRequest{
		PolicyID:         policy.ID,
		PaymentFrequency: "weekly",
	})
	s.requireKind(err, KindValidation)

	_, err = s.customerPolicies.Purchase(s.ctx, s.customer, &PurchasePolicyRequest{PolicyID: uuid.New()})
	s.requireKind(err, KindNotFound)
}

func (s *CustomerPolicyServiceTestSuite) TestCancelIsTerminal() {
	cp := s.activePolicy(s.customer, 1200, 100000)

	_, err := s.customerPolicies.Cancel(s.ctx, s.other, cp.ID)
	s.requireKind(err, KindForbidden)

	cancelled, err := s.customerPolicies.Cancel(s.ctx, s.customer, cp.ID)
	s.Require().NoError(err)
	s.Equal(models.CustomerPolicyCancelled, cancelled.Status)
	latest, _ := cancelled.StatusHistory.Latest()
	s.Equal(string(models.CustomerPolicyCancelled), latest.Status)

	_, err = s.customerPolicies.Cancel(s.ctx, s.customer, cp.ID)
	s.requireKind(err, KindInvalidTransition)

	_, err = s.customerPolicies.Renew(s.ctx, s.customer, cp.ID)
	s.requireKind(err, KindInvalidTransition)

	_, err = s.customerPolicies.PayPremium(s.ctx, s.customer, cp.ID, &PayPremiumRequest{})
	s.requireKind(err, KindInvalidTransition)

	_, _, err = s.premiums.Initiate(s.ctx, s.customer, &InitiatePremiumRequest{
		CustomerPolicyID:  cp.ID,
		Amount:            decimal.NewFromInt(1200),
		InstallmentNumber: 2,
	})
	s.requireKind(err, KindInvalidTransition)

	stored, err := s.customerPolicies.Get(s.ctx, cp.ID)
	s.Require().NoError(err)
	s.Equal(models.CustomerPolicyCancelled, stored.Status)
	s.Equal(1, s.publisher.count(event.PolicyCancelled))
}

func (s *CustomerPolicyServiceTestSuite) TestRenewExtendsActivePolicy() {
	pending := s.purchase(s.customer, s.createPolicy(300, 5000, 12), models.FrequencyMonthly)
	_, err := s.customerPolicies.Renew(s.ctx, s.customer, pending.ID)
	s.requireKind(err, KindInvalidTransition)

	cp := s.activePolicy(s.customer, 1200, 100000)

	renewed, err := s.customerPolicies.Renew(s.ctx, s.customer, cp.ID)
	s.Require().NoError(err)
	s.Equal(models.CustomerPolicyActive, renewed.Status)
	s.Equal(1, renewed.RenewalCount)
	s.True(renewed.EndDate.Equal(cp.EndDate.AddDate(0, 12, 0)))
	s.Require().NotNil(renewed.RenewalDueDate)
	s.True(renewed.RenewalDueDate.Equal(renewed.EndDate))
	latest, _ := renewed.StatusHistory.Latest()
	s.Equal(models.EventRenewed, latest.Status)

	_, err = s.customerPolicies.Renew(s.ctx, s.other, cp.ID)
	s.requireKind(err, KindForbidden)

	_, err = s.customerPolicies.Renew(s.ctx, s.admin, cp.ID)
	s.NoError(err)
}

func (s *CustomerPolicyServiceTestSuite) TestRenewRequiresRenewableTemplate() {
	cp := s.activePolicy(s.customer, 1200, 100000)

	renewable := false
	_, err := s.policies.Update(s.ctx, s.admin, cp.PolicyID, &UpdatePolicyRequest{Renewable: &renewable})
	s.Require().NoError(err)

	_, err = s.customerPolicies.Renew(s.ctx, s.customer, cp.ID)
	s.requireKind(err, KindInvalidTransition)
}

func (s *CustomerPolicyServiceTestSuite) TestPayPremiumActivatesAndRecordsLedger() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyQuarterly)

	paid, err := s.customerPolicies.PayPremium(s.ctx, s.customer, cp.ID, &PayPremiumRequest{})
	s.Require().NoError(err)
	s.Equal(models.CustomerPolicyActive, paid.Status)
	s.True(paid.PremiumPaid)
	s.Require().NotNil(paid.NextPaymentDue)
	s.True(paid.NextPaymentDue.Equal(paid.LastPaymentDate.AddDate(0, 3, 0)))
	latest, _ := paid.StatusHistory.Latest()
	s.Equal(models.EventPremiumPaid, latest.Status)

	entries := s.ledgerEntries(models.TransactionPremiumPayment)
	s.Require().Len(entries, 1)
	s.Equal(models.PaymentWallet, entries[0].PaymentMethod)
	s.Equal(models.TransactionSuccess, entries[0].Status)
}

func (s *CustomerPolicyServiceTestSuite) TestExpireLapsedPolicies() {
	lapsing := s.activePolicy(s.customer, 1200, 100000)
	pending := s.purchase(s.other, s.createPolicy(800, 20000, 12), models.FrequencyMonthly)

	s.customerPolicies.now = func() time.Time { return time.Now().AddDate(2, 0, 0) }

	expired, err := s.customerPolicies.ExpireLapsed(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, expired)

	stored, err := s.customerPolicies.Get(s.ctx, lapsing.ID)
	s.Require().NoError(err)
	s.Equal(models.CustomerPolicyExpired, stored.Status)
	latest, _ := stored.StatusHistory.Latest()
	s.Equal(string(models.CustomerPolicyExpired), latest.Status)
	s.Nil(latest.UpdatedBy)

	untouched, err := s.customerPolicies.Get(s.ctx, pending.ID)
	s.Require().NoError(err)
	s.Equal(models.CustomerPolicyPendingPayment, untouched.Status)

	expired, err = s.customerPolicies.ExpireLapsed(s.ctx)
	s.Require().NoError(err)
	s.Zero(expired)
	s.Equal(1, s.publisher.count(event.PolicyExpired))

	_, err = s.customerPolicies.Cancel(s.ctx, s.customer, lapsing.ID)
	s.requireKind(err, KindInvalidTransition)
}

func (s *CustomerPolicyServiceTestSuite) TestListMineReturnsOwnPolicies() {
	s.purchase(s.customer, s.createPolicy(100, 1000, 12), models.FrequencyMonthly)
	s.purchase(s.customer, s.createPolicy(200, 2000, 12), models.FrequencyYearly)
	s.purchase(s.other, s.createPolicy(300, 3000, 12), models.FrequencyMonthly)

	mine, err := s.customerPolicies.ListMine(s.ctx, s.customer)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	for _, cp := range mine {
		s.Equal(s.customer.ID, cp.CustomerID)
		s.NotNil(cp.Policy)
	}
}
