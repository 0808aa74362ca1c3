// internal/repository/customer_policy_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/insurance-backend/internal/models"
)

type customerPolicyRepository struct {
	db *gorm.DB
}

func (r *customerPolicyRepository) Create(ctx context.Context, cp *models.CustomerPolicy) error {
	return translateError(r.db.WithContext(ctx).Omit("Customer", "Policy").Create(cp).Error)
}

func (r *customerPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CustomerPolicy, error) {
	var cp models.CustomerPolicy
	if err := r.db.WithContext(ctx).Preload("Policy").First(&cp, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &cp, nil
}

func (r *customerPolicyRepository) FindByCustomerAndPolicy(ctx context.Context, customerID, policyID uuid.UUID) (*models.CustomerPolicy, error) {
	var cp models.CustomerPolicy
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND policy_id = ?", customerID, policyID).
		First(&cp).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &cp, nil
}

func (r *customerPolicyRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerPolicy, error) {
	var policies []models.CustomerPolicy
	err := r.db.WithContext(ctx).
		Preload("Policy").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&policies).Error
	return policies, translateError(err)
}

func (r *customerPolicyRepository) CountLiveByPolicy(ctx context.Context, policyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerPolicy{}).
		Where("policy_id = ? AND status IN ?", policyID, []models.CustomerPolicyStatus{
			models.CustomerPolicyPendingPayment,
			models.CustomerPolicyActive,
		}).
		Count(&count).Error
	return count, translateError(err)
}

func (r *customerPolicyRepository) CountByStatus(ctx context.Context, status models.CustomerPolicyStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerPolicy{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, translateError(err)
}

func (r *customerPolicyRepository) LastPolicyNumber(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.CustomerPolicy{}).
		Where("policy_number LIKE ?", prefix+"%").
		Order("length(policy_number) DESC, policy_number DESC").
		Limit(1).
		Pluck("policy_number", &numbers).Error
	if err != nil {
		return "", translateError(err)
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

func (r *customerPolicyRepository) ListLapsed(ctx context.Context, asOf time.Time, limit int) ([]models.CustomerPolicy, error) {
	var policies []models.CustomerPolicy
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", models.CustomerPolicyActive, asOf).
		Order("end_date ASC").
		Limit(limit).
		Find(&policies).Error
	return policies, translateError(err)
}

func (r *customerPolicyRepository) Update(ctx context.Context, cp *models.CustomerPolicy) error {
	return saveVersioned(ctx, r.db, cp)
}
