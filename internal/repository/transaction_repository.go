// internal/repository/transaction_repository.go
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return translateError(r.db.WithContext(ctx).Omit("Customer").Create(tx).Error)
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &tx, nil
}

func (r *transactionRepository) filtered(ctx context.Context, filter TransactionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.TransactionType != nil {
		query = query.Where("transaction_type = ?", *filter.TransactionType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	return query
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var txs []models.Transaction
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "amount"})
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&txs).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return txs, total, nil
}

func (r *transactionRepository) Sum(ctx context.Context, filter TransactionFilter) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.filtered(ctx, filter).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, translateError(err)
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
