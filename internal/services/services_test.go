// internal/services/services_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/insurance-backend/internal/cache"
	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/event"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/repository/memstore"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, evt := range p.events {
		if evt.Type == eventType {
			n++
		}
	}
	return n
}

// serviceSuite wires every service against a fresh in-memory store.
type serviceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memstore.Store
	publisher *recordingPublisher

	ledger           *LedgerService
	policies         *PolicyService
	customerPolicies *CustomerPolicyService
	premiums         *PremiumService
	claims           *ClaimService

	admin    Principal
	agent    Principal
	customer Principal
	other    Principal

	policySeq int
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.New()
	s.publisher = &recordingPublisher{}
	s.policySeq = 0

	s.ledger = NewLedgerService(s.store)
	s.policies = NewPolicyService(s.store)
	s.customerPolicies = NewCustomerPolicyService(s.store, s.ledger, s.publisher)
	s.premiums = NewPremiumService(
		s.store,
		s.ledger,
		NewMockGateway("", ""),
		cache.NewMemoryStore(),
		s.publisher,
		config.PaymentConfig{Currency: "INR"},
	)
	s.claims = NewClaimService(s.store, s.ledger, nil, s.publisher)

	s.admin = s.newPrincipal(models.RoleAdmin, "Alice Admin")
	s.agent = s.newPrincipal(models.RoleAgent, "Arun Agent")
	s.customer = s.newPrincipal(models.RoleUser, "Carla Customer")
	s.other = s.newPrincipal(models.RoleUser, "Omar Other")
}

func (s *serviceSuite) newPrincipal(role models.Role, name string) Principal {
	user := &models.User{
		Name:  name,
		Email: strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@example.com",
		Role:  role,
	}
	s.Require().NoError(s.store.Users().Create(s.ctx, user))
	return Principal{ID: user.ID, Role: role}
}

func (s *serviceSuite) requireKind(err error, kind ErrorKind) {
	s.Require().Error(err)
	s.Require().Equal(kind, KindOf(err), err.Error())
}

func (s *serviceSuite) createPolicy(premium, coverage int64, months int) *models.Policy {
	s.policySeq++
	policy, err := s.policies.Create(s.ctx, s.admin, &CreatePolicyRequest{
		PolicyType:     models.PolicyTypeHealth,
		Title:          fmt.Sprintf("Family Health Plan %d", s.policySeq),
		CoverageAmount: decimal.NewFromInt(coverage),
		PremiumAmount:  decimal.NewFromInt(premium),
		Terms:          models.PolicyTerms{DurationInMonths: months},
	})
	s.Require().NoError(err)
	return policy
}

func (s *serviceSuite) purchase(owner Principal, policy *models.Policy, frequency models.PaymentFrequency) *models.CustomerPolicy {
	cp, err := s.customerPolicies.Purchase(s.ctx, owner, &PurchasePolicyRequest{
		PolicyID:         policy.ID,
		PaymentFrequency: frequency,
	})
	s.Require().NoError(err)
	return cp
}

func (s *serviceSuite) initiate(owner Principal, cp *models.CustomerPolicy, installment int, isInstallment bool) *models.PremiumTransaction {
	tx, replayed, err := s.premiums.Initiate(s.ctx, owner, &InitiatePremiumRequest{
		CustomerPolicyID:  cp.ID,
		Amount:            cp.Policy.PremiumAmount,
		IsInstallment:     isInstallment,
		InstallmentNumber: installment,
	})
	s.Require().NoError(err)
	s.Require().False(replayed)
	return tx
}

func (s *serviceSuite) verify(tx *models.PremiumTransaction, success bool) (*VerifyPremiumResult, error) {
	return s.premiums.Verify(s.ctx, s.admin, &VerifyPremiumRequest{
		TransactionID: tx.ID,
		Success:       success,
	})
}

// activePolicy buys a policy for owner and settles its first premium.
func (s *serviceSuite) activePolicy(owner Principal, premium, coverage int64) *models.CustomerPolicy {
	cp := s.purchase(owner, s.createPolicy(premium, coverage, 12), models.FrequencyMonthly)
	result, err := s.verify(s.initiate(owner, cp, 1, false), true)
	s.Require().NoError(err)
	s.Require().Equal(models.CustomerPolicyActive, result.CustomerPolicy.Status)
	return result.CustomerPolicy
}

func (s *serviceSuite) fileClaim(owner Principal, cp *models.CustomerPolicy, amount int64) *ClaimResult {
	result, err := s.claims.Create(s.ctx, owner, &CreateClaimRequest{
		CustomerPolicyID: cp.ID,
		ClaimType:        models.ClaimTypeHospitalization,
		ClaimAmount:      decimal.NewFromInt(amount),
		Description:      "Emergency admission",
		Documents:        []string{"/uploads/claim-documents/discharge.pdf"},
	})
	s.Require().NoError(err)
	return result
}

func (s *serviceSuite) ledgerEntries(txType models.TransactionType) []models.Transaction {
	filter := repository.TransactionFilter{TransactionType: &txType}
	filter.Limit = 100
	entries, _, err := s.store.Transactions().List(s.ctx, filter)
	s.Require().NoError(err)
	return entries
}

func paginationOf(limit int) utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: limit}
}
