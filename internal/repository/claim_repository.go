// internal/repository/claim_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/utils"
)

const currentClaimStatusExpr = "status_history->-1->>'status'"

type claimRepository struct {
	db *gorm.DB
}

func (r *claimRepository) Create(ctx context.Context, claim *models.Claim) error {
	return translateError(r.db.WithContext(ctx).
		Omit("Customer", "CustomerPolicy", "AssignedAgent").
		Create(claim).Error)
}

func (r *claimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Preload("CustomerPolicy.Policy").
		First(&claim, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &claim, nil
}

func (r *claimRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&claim, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}

	var cp models.CustomerPolicy
	err = r.db.WithContext(ctx).
		Preload("Policy").
		First(&cp, "id = ?", claim.CustomerPolicyID).Error
	if err != nil {
		return nil, translateError(err)
	}
	claim.CustomerPolicy = &cp

	return &claim, nil
}

func (r *claimRepository) HasOpenClaim(ctx context.Context, customerPolicyID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("open_policy_key = ?", customerPolicyID).
		Count(&count).Error
	return count > 0, translateError(err)
}

func (r *claimRepository) List(ctx context.Context, filter ClaimFilter) ([]models.Claim, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Claim{})

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.AssignedAgentID != nil {
		query = query.Where("assigned_agent_id = ?", *filter.AssignedAgentID)
	}
	if filter.Status != nil {
		query = query.Where(currentClaimStatusExpr+" = ?", string(*filter.Status))
	}
	if filter.ClaimType != nil {
		query = query.Where("claim_type = ?", *filter.ClaimType)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var claims []models.Claim
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "claim_amount", "deadline"})
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Preload("CustomerPolicy.Policy").Find(&claims).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return claims, total, nil
}

func (r *claimRepository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.WithContext(ctx).
		Where("open_policy_key IS NOT NULL AND is_flagged = ? AND deadline < ?", false, asOf).
		Order("deadline ASC").
		Limit(limit).
		Find(&claims).Error
	return claims, translateError(err)
}

func (r *claimRepository) Update(ctx context.Context, claim *models.Claim) error {
	return saveVersioned(ctx, r.db, claim)
}

func (r *claimRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Claim{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
