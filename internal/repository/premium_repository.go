// internal/repository/premium_repository.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type premiumRepository struct {
	db *gorm.DB
}

func (r *premiumRepository) Create(ctx context.Context, tx *models.PremiumTransaction) error {
	return translateError(r.db.WithContext(ctx).Omit("CustomerPolicy").Create(tx).Error)
}

func (r *premiumRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PremiumTransaction, error) {
	var tx models.PremiumTransaction
	err := r.db.WithContext(ctx).
		Preload("CustomerPolicy.Policy").
		First(&tx, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &tx, nil
}

func (r *premiumRepository) HasSuccessfulInstallment(ctx context.Context, customerPolicyID uuid.UUID, installment int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PremiumTransaction{}).
		Where("customer_policy_id = ? AND installment_number = ? AND status = ?",
			customerPolicyID, installment, models.PremiumSuccess).
		Count(&count).Error
	return count > 0, translateError(err)
}

func (r *premiumRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params utils.PaginationParams) ([]models.PremiumTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PremiumTransaction{}).Where("customer_id = ?", customerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var txs []models.PremiumTransaction
	query = utils.ApplySort(query, params, []string{"created_at", "amount", "installment_number"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&txs).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return txs, total, nil
}

func (r *premiumRepository) Update(ctx context.Context, tx *models.PremiumTransaction) error {
	return saveVersioned(ctx, r.db, tx)
}
