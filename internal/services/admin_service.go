// internal/services/admin_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
)

type AdminService struct {
	store repository.Store
	now   func() time.Time
}

type AdminDashboardStats struct {
	UsersByRole              map[models.Role]int64                 `json:"users_by_role"`
	TotalPolicies            int64                                 `json:"total_policies"`
	ActivePolicies           int64                                 `json:"active_policies"`
	CustomerPoliciesByStatus map[models.CustomerPolicyStatus]int64 `json:"customer_policies_by_status"`
	ClaimsByStatus           map[models.ClaimStatus]int64          `json:"claims_by_status"`
	OpenClaims               int64                                 `json:"open_claims"`
	PremiumsCollected        decimal.Decimal                       `json:"premiums_collected"`
	PremiumsThisMonth        decimal.Decimal                       `json:"premiums_this_month"`
	ClaimsPaidOut            decimal.Decimal                       `json:"claims_paid_out"`
	Refunded                 decimal.Decimal                       `json:"refunded"`
}

type UpdateUserRoleRequest struct {
	Role models.Role `json:"role" validate:"required,role"`
}

func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store, now: time.Now}
}

// GetDashboardStats summarizes users, the catalog, subscriptions, claims
// and settled money movements.
func (s *AdminService) GetDashboardStats(ctx context.Context, p Principal) (*AdminDashboardStats, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can view dashboard statistics")
	}

	stats := &AdminDashboardStats{
		UsersByRole:              make(map[models.Role]int64),
		CustomerPoliciesByStatus: make(map[models.CustomerPolicyStatus]int64),
		ClaimsByStatus:           make(map[models.ClaimStatus]int64),
	}

	// User statistics
	for _, role := range []models.Role{models.RoleUser, models.RoleAgent, models.RoleAdmin} {
		count, err := s.store.Users().CountByRole(ctx, role)
		if err != nil {
			return nil, storeError(err, "user")
		}
		stats.UsersByRole[role] = count
	}

	// Catalog statistics
	one := repository.PolicyFilter{}
	one.Limit = 1
	_, total, err := s.store.Policies().List(ctx, one)
	if err != nil {
		return nil, storeError(err, "policy")
	}
	stats.TotalPolicies = total

	active := models.PolicyStatusActive
	one.Status = &active
	if _, stats.ActivePolicies, err = s.store.Policies().List(ctx, one); err != nil {
		return nil, storeError(err, "policy")
	}

	// Subscription statistics
	for _, status := range []models.CustomerPolicyStatus{
		models.CustomerPolicyPendingPayment,
		models.CustomerPolicyActive,
		models.CustomerPolicyCancelled,
		models.CustomerPolicyExpired,
	} {
		count, err := s.store.CustomerPolicies().CountByStatus(ctx, status)
		if err != nil {
			return nil, storeError(err, "customer policy")
		}
		stats.CustomerPoliciesByStatus[status] = count
	}

	// Claim statistics
	for _, status := range []models.ClaimStatus{
		models.ClaimPending,
		models.ClaimUpdated,
		models.ClaimUnderReview,
		models.ClaimApproved,
		models.ClaimRejected,
		models.ClaimPaid,
	} {
		filter := repository.ClaimFilter{Status: &status}
		filter.Limit = 1
		_, count, err := s.store.Claims().List(ctx, filter)
		if err != nil {
			return nil, storeError(err, "claim")
		}
		stats.ClaimsByStatus[status] = count
		if status.IsOpen() {
			stats.OpenClaims += count
		}
	}

	// Ledger statistics
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if stats.PremiumsCollected, err = s.settledTotal(ctx, models.TransactionPremiumPayment, nil); err != nil {
		return nil, err
	}
	if stats.PremiumsThisMonth, err = s.settledTotal(ctx, models.TransactionPremiumPayment, &monthStart); err != nil {
		return nil, err
	}
	if stats.ClaimsPaidOut, err = s.settledTotal(ctx, models.TransactionClaimPayout, nil); err != nil {
		return nil, err
	}
	if stats.Refunded, err = s.settledTotal(ctx, models.TransactionRefund, nil); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *AdminService) settledTotal(ctx context.Context, txType models.TransactionType, from *time.Time) (decimal.Decimal, error) {
	success := models.TransactionSuccess
	total, err := s.store.Transactions().Sum(ctx, repository.TransactionFilter{
		TransactionType: &txType,
		Status:          &success,
		CreatedFrom:     from,
	})
	if err != nil {
		return decimal.Zero, storeError(err, "transaction")
	}
	return total, nil
}

// User Management
func (s *AdminService) ListUsers(ctx context.Context, p Principal, filter repository.UserFilter) ([]models.User, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, ErrForbidden("only admins can list users")
	}
	users, total, err := s.store.Users().List(ctx, filter)
	if err != nil {
		return nil, 0, storeError(err, "user")
	}
	return users, total, nil
}

// UpdateUserRole moves an account between customer, agent and admin. An
// admin cannot change their own role.
func (s *AdminService) UpdateUserRole(ctx context.Context, p Principal, userID uuid.UUID, req *UpdateUserRoleRequest) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can change roles")
	}
	if !req.Role.IsValid() {
		return nil, ErrValidation("invalid role %q", req.Role)
	}
	if userID == p.ID {
		return nil, ErrConflict("admins cannot change their own role")
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	oldRole := user.Role
	if oldRole == req.Role {
		return user, nil
	}

	user.Role = req.Role
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, storeError(err, "user")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"old_role":   oldRole,
		"new_role":   user.Role,
		"changed_by": p.ID,
	}).Info("User role changed")

	return user, nil
}
