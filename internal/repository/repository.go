// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/utils"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write would break a uniqueness rule.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleObject is returned when a versioned row changed since it was read.
	ErrStaleObject = errors.New("record was modified concurrently")
	// ErrReferenced is returned when a delete is blocked by dependent rows.
	ErrReferenced = errors.New("record is still referenced")
)

// Store groups the repositories. WithinTransaction hands fn a Store whose
// writes commit together or not at all.
type Store interface {
	Users() UserRepository
	Policies() PolicyRepository
	CustomerPolicies() CustomerPolicyRepository
	Premiums() PremiumRepository
	Claims() ClaimRepository
	Transactions() TransactionRepository
	WithinTransaction(ctx context.Context, fn func(Store) error) error
}

type UserFilter struct {
	utils.PaginationParams
	Role *models.Role
	// Search matches name or email, case-insensitively.
	Search string
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Update(ctx context.Context, user *models.User) error
}

type PolicyFilter struct {
	utils.PaginationParams
	PolicyType *models.PolicyType
	Status     *models.PolicyStatus
	MinPremium *decimal.Decimal
	MaxPremium *decimal.Decimal
}

type PolicyRepository interface {
	Create(ctx context.Context, policy *models.Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter PolicyFilter) ([]models.Policy, int64, error)
	Update(ctx context.Context, policy *models.Policy) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CustomerPolicyRepository interface {
	Create(ctx context.Context, cp *models.CustomerPolicy) error
	// GetByID loads the policy template alongside.
	GetByID(ctx context.Context, id uuid.UUID) (*models.CustomerPolicy, error)
	FindByCustomerAndPolicy(ctx context.Context, customerID, policyID uuid.UUID) (*models.CustomerPolicy, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerPolicy, error)
	CountLiveByPolicy(ctx context.Context, policyID uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context, status models.CustomerPolicyStatus) (int64, error)
	// LastPolicyNumber returns the highest number with prefix, or "".
	LastPolicyNumber(ctx context.Context, prefix string) (string, error)
	// ListLapsed returns active policies whose end date is before asOf.
	ListLapsed(ctx context.Context, asOf time.Time, limit int) ([]models.CustomerPolicy, error)
	Update(ctx context.Context, cp *models.CustomerPolicy) error
}

type PremiumRepository interface {
	Create(ctx context.Context, tx *models.PremiumTransaction) error
	// GetByID loads the customer policy and its template alongside.
	GetByID(ctx context.Context, id uuid.UUID) (*models.PremiumTransaction, error)
	HasSuccessfulInstallment(ctx context.Context, customerPolicyID uuid.UUID, installment int) (bool, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params utils.PaginationParams) ([]models.PremiumTransaction, int64, error)
	Update(ctx context.Context, tx *models.PremiumTransaction) error
}

type ClaimFilter struct {
	utils.PaginationParams
	CustomerID      *uuid.UUID
	AssignedAgentID *uuid.UUID
	Status          *models.ClaimStatus
	ClaimType       *models.ClaimType
	DateFrom        *time.Time
	DateTo          *time.Time
}

type ClaimRepository interface {
	Create(ctx context.Context, claim *models.Claim) error
	// GetByID loads the customer policy and its template alongside.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	// GetForUpdate is GetByID with the claim row locked until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	HasOpenClaim(ctx context.Context, customerPolicyID uuid.UUID) (bool, error)
	List(ctx context.Context, filter ClaimFilter) ([]models.Claim, int64, error)
	// ListOverdue returns open, unflagged claims whose deadline is before asOf.
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Claim, error)
	Update(ctx context.Context, claim *models.Claim) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TransactionFilter struct {
	utils.PaginationParams
	CustomerID      *uuid.UUID
	TransactionType *models.TransactionType
	Status          *models.TransactionStatus
	CreatedFrom     *time.Time
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)
	// Sum totals the amounts of every entry matching filter; paging is ignored.
	Sum(ctx context.Context, filter TransactionFilter) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error
}
