// internal/services/premium_service_test.go
package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/insurance-backend/internal/event"
	"github.com/javajoker/insurance-backend/internal/models"
)

type PremiumServiceTestSuite struct {
	serviceSuite
}

func TestPremiumServiceSuite(t *testing.T) {
	suite.Run(t, new(PremiumServiceTestSuite))
}

func (s *PremiumServiceTestSuite) TestPurchaseInitiateVerifyMonthlyPolicy() {
	policy := s.createPolicy(1200, 100000, 12)

	cp := s.purchase(s.customer, policy, models.FrequencyMonthly)
	s.Equal(models.CustomerPolicyPendingPayment, cp.Status)
	s.Require().NotNil(cp.NextPaymentDue)
	s.True(cp.NextPaymentDue.Equal(cp.StartDate.AddDate(0, 1, 0)))
	s.True(cp.EndDate.Equal(cp.StartDate.AddDate(0, 12, 0)))

	tx := s.initiate(s.customer, cp, 0, false)
	s.Equal(models.PremiumInitiated, tx.Status)
	s.Equal(1, tx.InstallmentNumber)
	s.Equal(12, tx.TotalInstallments)
	s.Equal("mock-gateway", tx.Provider)
	s.Equal("internal-mock", tx.Gateway)
	s.Contains(tx.ProviderPaymentID, "mock_pay_")
	s.True(tx.Amount.Equal(decimal.NewFromInt(1200)))

	stored, err := s.customerPolicies.Get(s.ctx, cp.ID)
	s.Require().NoError(err)
	latest, ok := stored.StatusHistory.Latest()
	s.Require().True(ok)
	s.Equal(models.EventPaymentInitiated, latest.Status)

	result, err := s.verify(tx, true)
	s.Require().NoError(err)
	s.Equal(models.PremiumSuccess, result.Transaction.Status)
	s.NotNil(result.Transaction.CompletedAt)
	s.True(result.Transaction.IsPolicyActivation)

	active := result.CustomerPolicy
	s.Equal(models.CustomerPolicyActive, active.Status)
	s.True(active.PremiumPaid)
	s.NotNil(active.LastPaymentDate)
	s.NotNil(active.PolicyActivatedAt)
	s.True(active.EndDate.Equal(active.StartDate.AddDate(0, 12, 0)))

	entries := s.ledgerEntries(models.TransactionPremiumPayment)
	s.Require().Len(entries, 1)
	s.Equal(tx.ReferenceID, entries[0].ReferenceID)
	s.Equal(models.TransactionSuccess, entries[0].Status)
	s.True(entries[0].Amount.Equal(decimal.NewFromInt(1200)))
	s.Equal(1, s.publisher.count(event.PremiumVerified))
}

func (s *PremiumServiceTestSuite) TestVerifyAdvancesNextDueForRemainingInstallments() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)

	result, err := s.verify(s.initiate(s.customer, cp, 1, true), true)
	s.Require().NoError(err)
	s.Require().NotNil(result.CustomerPolicy.NextPaymentDue)
	s.True(result.CustomerPolicy.NextPaymentDue.Equal(result.CustomerPolicy.LastPaymentDate.AddDate(0, 1, 0)))

	result, err = s.verify(s.initiate(s.customer, cp, 12, true), true)
	s.Require().NoError(err)
	s.Nil(result.CustomerPolicy.NextPaymentDue)
}

func (s *PremiumServiceTestSuite) TestQuarterlyInstallmentsFallDueEveryThreeMonths() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyQuarterly)

	result, err := s.verify(s.initiate(s.customer, cp, 1, true), true)
	s.Require().NoError(err)
	s.Require().NotNil(result.CustomerPolicy.NextPaymentDue)
	s.True(result.CustomerPolicy.NextPaymentDue.Equal(result.CustomerPolicy.LastPaymentDate.AddDate(0, 3, 0)))
	s.Equal(4, result.Transaction.TotalInstallments)

	result, err = s.verify(s.initiate(s.customer, cp, 4, true), true)
	s.Require().NoError(err)
	s.Nil(result.CustomerPolicy.NextPaymentDue)
}

func (s *PremiumServiceTestSuite) TestInitiateGuards() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyYearly)

	_, _, err := s.premiums.Initiate(s.ctx, s.customer, &InitiatePremiumRequest{
		CustomerPolicyID: cp.ID,
		Amount:           decimal.NewFromInt(1000),
	})
	s.requireKind(err, KindValidation)

	_, _, err = s.premiums.Initiate(s.ctx, s.other, &InitiatePremiumRequest{
		CustomerPolicyID: cp.ID,
		Amount:           decimal.NewFromInt(1200),
	})
	s.requireKind(err, KindForbidden)

	_, _, err = s.premiums.Initiate(s.ctx, s.customer, &InitiatePremiumRequest{
		CustomerPolicyID:  cp.ID,
		Amount:            decimal.NewFromInt(1200),
		InstallmentNumber: 2,
	})
	s.requireKind(err, KindValidation)

	_, _, err = s.premiums.Initiate(s.ctx, s.customer, &InitiatePremiumRequest{
		CustomerPolicyID: uuid.New(),
		Amount:           decimal.NewFromInt(1200),
	})
	s.requireKind(err, KindNotFound)
}

func (s *PremiumServiceTestSuite) TestInitiateRejectsPaidInstallment() {
	cp := s.purchase(s.customer, s.createPolicy(500, 10000, 12), models.FrequencyMonthly)
	_, err := s.verify(s.initiate(s.customer, cp, 1, false), true)
	s.Require().NoError(err)

	_, _, err = s.premiums.Initiate(s.ctx, s.customer, &InitiatePremiumRequest{
		CustomerPolicyID: cp.ID,
		Amount:           decimal.NewFromInt(500),
	})
	s.requireKind(err, KindConflict)
}

func (s *PremiumServiceTestSuite) TestVerifySettledPaymentIsConflict() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	tx := s.initiate(s.customer, cp, 1, false)

	_, err := s.verify(tx, true)
	s.Require().NoError(err)

	_, err = s.verify(tx, false)
	s.requireKind(err, KindConflict)

	stored, err := s.premiums.Get(s.ctx, s.admin, tx.ID)
	s.Require().NoError(err)
	s.Equal(models.PremiumSuccess, stored.Status)
	s.Len(s.ledgerEntries(models.TransactionPremiumPayment), 1)

	failed := s.initiate(s.customer, cp, 2, true)
	_, err = s.verify(failed, false)
	s.Require().NoError(err)
	_, err = s.verify(failed, true)
	s.requireKind(err, KindConflict)
}

func (s *PremiumServiceTestSuite) TestVerifyFailureLeavesPolicyStatus() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	tx := s.initiate(s.customer, cp, 1, false)

	result, err := s.verify(tx, false)
	s.Require().NoError(err)
	s.Equal(models.PremiumFailed, result.Transaction.Status)
	s.Equal(defaultFailureReason, result.Transaction.FailureReason)
	s.Equal(models.CustomerPolicyPendingPayment, result.CustomerPolicy.Status)
	s.False(result.CustomerPolicy.PremiumPaid)
	s.Empty(s.ledgerEntries(models.TransactionPremiumPayment))
}

func (s *PremiumServiceTestSuite) TestVerifyRequiresAdmin() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	tx := s.initiate(s.customer, cp, 1, false)

	_, err := s.premiums.Verify(s.ctx, s.agent, &VerifyPremiumRequest{TransactionID: tx.ID, Success: true})
	s.requireKind(err, KindForbidden)
}

func (s *PremiumServiceTestSuite) TestConcurrentVerifyHasSingleWinner() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	tx := s.initiate(s.customer, cp, 1, false)

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.verify(tx, true)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.Equal(KindConflict, KindOf(err), err.Error())
	}
	s.Equal(1, succeeded)
	s.Len(s.ledgerEntries(models.TransactionPremiumPayment), 1)
}

func (s *PremiumServiceTestSuite) TestRetryOpensNewAttempt() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	failed := s.initiate(s.customer, cp, 1, false)
	_, err := s.verify(failed, false)
	s.Require().NoError(err)

	retry, err := s.premiums.Retry(s.ctx, s.customer, failed.ID)
	s.Require().NoError(err)
	s.NotEqual(failed.ID, retry.ID)
	s.Equal(models.PremiumInitiated, retry.Status)
	s.Equal(1, retry.RetryCount)
	s.Require().NotNil(retry.RetryOfID)
	s.Equal(failed.ID, *retry.RetryOfID)
	s.Contains(retry.ReferenceID, "REF-RETRY-")

	original, err := s.premiums.Get(s.ctx, s.customer, failed.ID)
	s.Require().NoError(err)
	s.Equal(models.PremiumFailed, original.Status)

	_, err = s.premiums.Retry(s.ctx, s.customer, retry.ID)
	s.requireKind(err, KindInvalidTransition)

	_, err = s.premiums.Retry(s.ctx, s.other, failed.ID)
	s.requireKind(err, KindForbidden)
}

func (s *PremiumServiceTestSuite) TestRefundSuccessfulPayment() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	tx := s.initiate(s.customer, cp, 1, false)

	_, err := s.premiums.Refund(s.ctx, s.admin, tx.ID)
	s.requireKind(err, KindInvalidTransition)

	_, err = s.verify(tx, true)
	s.Require().NoError(err)

	_, err = s.premiums.Refund(s.ctx, s.customer, tx.ID)
	s.requireKind(err, KindForbidden)

	refunded, err := s.premiums.Refund(s.ctx, s.admin, tx.ID)
	s.Require().NoError(err)
	s.Equal(models.PremiumRefunded, refunded.Status)
	s.NotNil(refunded.RefundedAt)

	refunds := s.ledgerEntries(models.TransactionRefund)
	s.Require().Len(refunds, 1)
	s.True(refunds[0].Amount.Equal(decimal.NewFromInt(1200)))
	s.Equal(1, s.publisher.count(event.PremiumRefunded))

	_, err = s.premiums.Refund(s.ctx, s.admin, tx.ID)
	s.requireKind(err, KindInvalidTransition)
}

func (s *PremiumServiceTestSuite) TestCancelInitiatedPayment() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	tx := s.initiate(s.customer, cp, 1, false)

	_, err := s.premiums.Cancel(s.ctx, s.other, tx.ID)
	s.requireKind(err, KindForbidden)

	cancelled, err := s.premiums.Cancel(s.ctx, s.customer, tx.ID)
	s.Require().NoError(err)
	s.Equal(models.PremiumCancelled, cancelled.Status)

	_, err = s.premiums.Cancel(s.ctx, s.customer, tx.ID)
	s.requireKind(err, KindInvalidTransition)

	_, err = s.verify(tx, true)
	s.requireKind(err, KindInvalidTransition)
}

func (s *PremiumServiceTestSuite) TestInvoiceForSuccessfulPayment() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	tx := s.initiate(s.customer, cp, 1, false)

	_, err := s.premiums.Invoice(s.ctx, s.customer, tx.ID)
	s.requireKind(err, KindInvalidTransition)

	_, err = s.verify(tx, true)
	s.Require().NoError(err)

	_, err = s.premiums.Invoice(s.ctx, s.other, tx.ID)
	s.requireKind(err, KindForbidden)

	invoice, err := s.premiums.Invoice(s.ctx, s.customer, tx.ID)
	s.Require().NoError(err)
	s.Equal(tx.InvoiceNo, invoice.InvoiceNo)
	s.Equal(tx.ReferenceID, invoice.ReferenceID)
	s.Equal("Carla Customer", invoice.CustomerName)
	s.Equal("carla.customer@example.com", invoice.CustomerEmail)
	s.Equal(cp.PolicyNumber, invoice.PolicyNumber)
	s.Equal("INR", invoice.Currency)
	s.NotNil(invoice.PaidAt)

	_, err = s.premiums.Invoice(s.ctx, s.agent, tx.ID)
	s.NoError(err)
}

func (s *PremiumServiceTestSuite) TestInitiateReplaysIdempotencyKey() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	req := &InitiatePremiumRequest{
		CustomerPolicyID: cp.ID,
		Amount:           decimal.NewFromInt(1200),
		IdempotencyKey:   "checkout-7f3a",
	}

	first, replayed, err := s.premiums.Initiate(s.ctx, s.customer, req)
	s.Require().NoError(err)
	s.False(replayed)

	second, replayed, err := s.premiums.Initiate(s.ctx, s.customer, req)
	s.Require().NoError(err)
	s.True(replayed)
	s.Equal(first.ID, second.ID)

	_, total, err := s.premiums.ListByCustomer(s.ctx, s.customer, s.customer.ID, paginationOf(10))
	s.Require().NoError(err)
	s.EqualValues(1, total)
}

func (s *PremiumServiceTestSuite) TestFailedInitiateReleasesIdempotencyKey() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)

	_, _, err := s.premiums.Initiate(s.ctx, s.customer, &InitiatePremiumRequest{
		CustomerPolicyID: cp.ID,
		Amount:           decimal.NewFromInt(999),
		IdempotencyKey:   "checkout-91",
	})
	s.requireKind(err, KindValidation)

	tx, replayed, err := s.premiums.Initiate(s.ctx, s.customer, &InitiatePremiumRequest{
		CustomerPolicyID: cp.ID,
		Amount:           decimal.NewFromInt(1200),
		IdempotencyKey:   "checkout-91",
	})
	s.Require().NoError(err)
	s.False(replayed)
	s.Equal(models.PremiumInitiated, tx.Status)
}

func (s *PremiumServiceTestSuite) TestListByCustomerRequiresOwnerOrAdmin() {
	cp := s.purchase(s.customer, s.createPolicy(1200, 100000, 12), models.FrequencyMonthly)
	s.initiate(s.customer, cp, 1, false)

	_, _, err := s.premiums.ListByCustomer(s.ctx, s.other, s.customer.ID, paginationOf(10))
	s.requireKind(err, KindForbidden)

	txs, total, err := s.premiums.ListByCustomer(s.ctx, s.admin, s.customer.ID, paginationOf(10))
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Len(txs, 1)
}
