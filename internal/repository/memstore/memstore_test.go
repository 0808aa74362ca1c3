// internal/repository/memstore/memstore_test.go
package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type MemstoreTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *Store
	customer *models.User
	policy   *models.Policy
}

func TestMemstoreSuite(t *testing.T) {
	suite.Run(t, new(MemstoreTestSuite))
}

func (s *MemstoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New()

	s.customer = &models.User{Name: "Meera", Email: "Meera@Example.com "}
	s.Require().NoError(s.store.Users().Create(s.ctx, s.customer))

	s.policy = &models.Policy{
		PolicyCode:     "POL-2026-1234",
		Title:          "Motor Shield",
		PolicyType:     models.PolicyTypeAuto,
		CoverageAmount: decimal.NewFromInt(50000),
		PremiumAmount:  decimal.NewFromInt(600),
		Status:         models.PolicyStatusActive,
	}
	s.Require().NoError(s.store.Policies().Create(s.ctx, s.policy))
}

func (s *MemstoreTestSuite) newCustomerPolicy(number string) *models.CustomerPolicy {
	now := time.Now()
	cp := &models.CustomerPolicy{
		CustomerID:   s.customer.ID,
		PolicyID:     s.policy.ID,
		PolicyNumber: number,
		StartDate:    now,
		EndDate:      now.AddDate(1, 0, 0),
	}
	cp.Transition(models.CustomerPolicyPendingPayment, &s.customer.ID, now)
	return cp
}

func (s *MemstoreTestSuite) TestUsersAreUniqueByEmail() {
	s.Equal("meera@example.com", s.customer.Email)
	s.Equal(models.RoleUser, s.customer.Role)

	err := s.store.Users().Create(s.ctx, &models.User{Name: "Dup", Email: "MEERA@example.com"})
	s.ErrorIs(err, repository.ErrDuplicate)

	found, err := s.store.Users().GetByEmail(s.ctx, " meera@EXAMPLE.com")
	s.Require().NoError(err)
	s.Equal(s.customer.ID, found.ID)

	_, err = s.store.Users().GetByID(s.ctx, uuid.New())
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *MemstoreTestSuite) TestPolicyTitleAndReferences() {
	err := s.store.Policies().Create(s.ctx, &models.Policy{PolicyCode: "POL-2026-9999", Title: "Motor Shield"})
	s.ErrorIs(err, repository.ErrDuplicate)

	exists, err := s.store.Policies().ExistsByCode(s.ctx, "POL-2026-1234")
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(s.store.CustomerPolicies().Create(s.ctx, s.newCustomerPolicy("CUST-2026-0001")))
	s.ErrorIs(s.store.Policies().Delete(s.ctx, s.policy.ID), repository.ErrReferenced)
}

func (s *MemstoreTestSuite) TestCustomerPolicyUniquenessAndCopies() {
	cp := s.newCustomerPolicy("CUST-2026-0001")
	s.Require().NoError(s.store.CustomerPolicies().Create(s.ctx, cp))
	s.Equal(1, cp.Version)

	err := s.store.CustomerPolicies().Create(s.ctx, s.newCustomerPolicy("CUST-2026-0002"))
	s.ErrorIs(err, repository.ErrDuplicate, "one subscription per customer and template")

	loaded, err := s.store.CustomerPolicies().GetByID(s.ctx, cp.ID)
	s.Require().NoError(err)
	s.Require().NotNil(loaded.Policy)
	s.Equal(s.policy.Title, loaded.Policy.Title)

	loaded.StatusHistory[0].Status = "tampered"
	again, err := s.store.CustomerPolicies().GetByID(s.ctx, cp.ID)
	s.Require().NoError(err)
	s.Equal(string(models.CustomerPolicyPendingPayment), again.StatusHistory[0].Status)

	last, err := s.store.CustomerPolicies().LastPolicyNumber(s.ctx, "CUST-2026-")
	s.Require().NoError(err)
	s.Equal("CUST-2026-0001", last)
}

func (s *MemstoreTestSuite) TestOptimisticLockRejectsStaleWrites() {
	cp := s.newCustomerPolicy("CUST-2026-0001")
	s.Require().NoError(s.store.CustomerPolicies().Create(s.ctx, cp))

	first, err := s.store.CustomerPolicies().GetByID(s.ctx, cp.ID)
	s.Require().NoError(err)
	second, err := s.store.CustomerPolicies().GetByID(s.ctx, cp.ID)
	s.Require().NoError(err)

	first.Transition(models.CustomerPolicyActive, nil, time.Now())
	s.Require().NoError(s.store.CustomerPolicies().Update(s.ctx, first))
	s.Equal(2, first.Version)

	second.Transition(models.CustomerPolicyCancelled, nil, time.Now())
	s.ErrorIs(s.store.CustomerPolicies().Update(s.ctx, second), repository.ErrStaleObject)

	stored, err := s.store.CustomerPolicies().GetByID(s.ctx, cp.ID)
	s.Require().NoError(err)
	s.Equal(models.CustomerPolicyActive, stored.Status)
}

func (s *MemstoreTestSuite) TestWithinTransactionRollsBack() {
	boom := errors.New("boom")

	err := s.store.WithinTransaction(s.ctx, func(tx repository.Store) error {
		s.Require().NoError(tx.Transactions().Create(s.ctx, &models.Transaction{
			CustomerID:      s.customer.ID,
			Amount:          decimal.NewFromInt(10),
			TransactionType: models.TransactionWalletTopup,
			PaymentMethod:   models.PaymentUPI,
			Status:          models.TransactionPending,
			ReferenceID:     "UTR-1",
		}))
		return boom
	})
	s.ErrorIs(err, boom)

	_, total, err := s.store.Transactions().List(s.ctx, repository.TransactionFilter{})
	s.Require().NoError(err)
	s.Zero(total)

	s.Panics(func() {
		_ = s.store.WithinTransaction(s.ctx, func(tx repository.Store) error {
			_ = tx.Policies().Delete(s.ctx, s.policy.ID)
			panic("mid-transaction failure")
		})
	})
	_, err = s.store.Policies().GetByID(s.ctx, s.policy.ID)
	s.NoError(err)
}

func (s *MemstoreTestSuite) TestRollbackKeepsConcurrentCommits() {
	boom := errors.New("boom")
	outsider := &models.User{Name: "Outsider", Email: "outsider@example.com"}
	renamed := *s.customer

	err := s.store.WithinTransaction(s.ctx, func(tx repository.Store) error {
		renamed.Name = "Meera Iyer"
		s.Require().NoError(tx.Users().Update(s.ctx, &renamed))

		done := make(chan error, 1)
		go func() { done <- s.store.Users().Create(s.ctx, outsider) }()
		s.Require().NoError(<-done)

		return s.store.WithinTransaction(s.ctx, func(nested repository.Store) error {
			s.Require().NoError(nested.Policies().Delete(s.ctx, s.policy.ID))
			return boom
		})
	})
	s.ErrorIs(err, boom)

	stored, err := s.store.Users().GetByID(s.ctx, outsider.ID)
	s.Require().NoError(err)
	s.Equal("Outsider", stored.Name)

	customer, err := s.store.Users().GetByID(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Equal("Meera", customer.Name)

	_, err = s.store.Policies().GetByID(s.ctx, s.policy.ID)
	s.NoError(err)
}

func (s *MemstoreTestSuite) TestOneOpenClaimPerPolicy() {
	cp := s.newCustomerPolicy("CUST-2026-0001")
	s.Require().NoError(s.store.CustomerPolicies().Create(s.ctx, cp))

	newClaim := func() *models.Claim {
		claim := &models.Claim{
			CustomerID:       s.customer.ID,
			CustomerPolicyID: cp.ID,
			ClaimAmount:      decimal.NewFromInt(100),
			ClaimType:        models.ClaimTypeDamage,
		}
		claim.AppendStatus(models.ClaimPending, &s.customer.ID, time.Now())
		return claim
	}

	first := newClaim()
	s.Require().NoError(s.store.Claims().Create(s.ctx, first))
	s.ErrorIs(s.store.Claims().Create(s.ctx, newClaim()), repository.ErrDuplicate)

	open, err := s.store.Claims().HasOpenClaim(s.ctx, cp.ID)
	s.Require().NoError(err)
	s.True(open)

	loaded, err := s.store.Claims().GetByID(s.ctx, first.ID)
	s.Require().NoError(err)
	loaded.AppendStatus(models.ClaimRejected, nil, time.Now())
	s.Require().NoError(s.store.Claims().Update(s.ctx, loaded))

	s.NoError(s.store.Claims().Create(s.ctx, newClaim()))
}

func (s *MemstoreTestSuite) TestListPagesNewestFirst() {
	for _, ref := range []string{"A", "B", "C"} {
		s.Require().NoError(s.store.Transactions().Create(s.ctx, &models.Transaction{
			CustomerID:      s.customer.ID,
			Amount:          decimal.NewFromInt(1),
			TransactionType: models.TransactionWalletTopup,
			PaymentMethod:   models.PaymentWallet,
			Status:          models.TransactionSuccess,
			ReferenceID:     ref,
		}))
	}

	filter := repository.TransactionFilter{PaginationParams: utils.PaginationParams{Page: 1, Limit: 2}}
	rows, total, err := s.store.Transactions().List(s.ctx, filter)
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Require().Len(rows, 2)
	s.Equal("C", rows[0].ReferenceID)
	s.Equal("B", rows[1].ReferenceID)

	filter.Page = 2
	rows, _, err = s.store.Transactions().List(s.ctx, filter)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("A", rows[0].ReferenceID)
}

func (s *MemstoreTestSuite) TestUserListAndUpdate() {
	agent := &models.User{Name: "Ravi Kumar", Email: "ravi@example.com", Role: models.RoleAgent}
	s.Require().NoError(s.store.Users().Create(s.ctx, agent))

	role := models.RoleAgent
	users, total, err := s.store.Users().List(s.ctx, repository.UserFilter{Role: &role})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(agent.ID, users[0].ID)

	_, total, err = s.store.Users().List(s.ctx, repository.UserFilter{Search: "MEERA"})
	s.Require().NoError(err)
	s.EqualValues(1, total)

	agent.Phone = "+91 91234 56789"
	agent.Email = "changed@example.com"
	s.Require().NoError(s.store.Users().Update(s.ctx, agent))

	stored, err := s.store.Users().GetByID(s.ctx, agent.ID)
	s.Require().NoError(err)
	s.Equal("+91 91234 56789", stored.Phone)
	s.Equal("ravi@example.com", stored.Email)

	missing := &models.User{}
	missing.ID = uuid.New()
	s.ErrorIs(s.store.Users().Update(s.ctx, missing), repository.ErrNotFound)
}

func (s *MemstoreTestSuite) TestTransactionSum() {
	for i, amount := range []int64{100, 250, 40} {
		status := models.TransactionSuccess
		if i == 2 {
			status = models.TransactionFailed
		}
		s.Require().NoError(s.store.Transactions().Create(s.ctx, &models.Transaction{
			CustomerID:      s.customer.ID,
			Amount:          decimal.NewFromInt(amount),
			TransactionType: models.TransactionWalletTopup,
			PaymentMethod:   models.PaymentUPI,
			Status:          status,
			ReferenceID:     uuid.NewString(),
		}))
	}

	success := models.TransactionSuccess
	total, err := s.store.Transactions().Sum(s.ctx, repository.TransactionFilter{Status: &success})
	s.Require().NoError(err)
	s.True(total.Equal(decimal.NewFromInt(350)), total.String())

	future := time.Now().Add(time.Hour)
	total, err = s.store.Transactions().Sum(s.ctx, repository.TransactionFilter{CreatedFrom: &future})
	s.Require().NoError(err)
	s.True(total.IsZero())
}
