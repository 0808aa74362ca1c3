// internal/repository/policy_repository.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/utils"
)

var policySortFields = []string{"created_at", "premium_amount", "coverage_amount", "title"}

type policyRepository struct {
	db *gorm.DB
}

func (r *policyRepository) Create(ctx context.Context, policy *models.Policy) error {
	return translateError(r.db.WithContext(ctx).Create(policy).Error)
}

func (r *policyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	var policy models.Policy
	if err := r.db.WithContext(ctx).First(&policy, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &policy, nil
}

func (r *policyRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Policy{}).Where("policy_code = ?", code).Count(&count).Error
	return count > 0, translateError(err)
}

func (r *policyRepository) List(ctx context.Context, filter PolicyFilter) ([]models.Policy, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Policy{})

	if filter.PolicyType != nil {
		query = query.Where("policy_type = ?", *filter.PolicyType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MinPremium != nil {
		query = query.Where("premium_amount >= ?", *filter.MinPremium)
	}
	if filter.MaxPremium != nil {
		query = query.Where("premium_amount <= ?", *filter.MaxPremium)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var policies []models.Policy
	query = utils.ApplySort(query, filter.PaginationParams, policySortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&policies).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return policies, total, nil
}

func (r *policyRepository) Update(ctx context.Context, policy *models.Policy) error {
	res := r.db.WithContext(ctx).Model(policy).Select("*").Omit("created_at").Updates(policy)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *policyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Policy{}, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
