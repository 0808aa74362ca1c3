// internal/repository/store.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/insurance-backend/internal/database"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository {
	return &userRepository{db: s.db}
}

func (s *gormStore) Policies() PolicyRepository {
	return &policyRepository{db: s.db}
}

func (s *gormStore) CustomerPolicies() CustomerPolicyRepository {
	return &customerPolicyRepository{db: s.db}
}

func (s *gormStore) Premiums() PremiumRepository {
	return &premiumRepository{db: s.db}
}

func (s *gormStore) Claims() ClaimRepository {
	return &claimRepository{db: s.db}
}

func (s *gormStore) Transactions() TransactionRepository {
	return &transactionRepository{db: s.db}
}

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(Store) error) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translateError maps gorm errors to repository sentinels. Constraint
// violations arrive already translated (TranslateError is on).
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrReferenced, err)
	}

	return err
}

type versioned interface {
	LockVersion() *int
}

// saveVersioned writes every column of model provided the stored version
// still equals the in-memory one, then bumps the version.
func saveVersioned(ctx context.Context, db *gorm.DB, model versioned) error {
	version := model.LockVersion()
	current := *version
	*version = current + 1

	res := db.WithContext(ctx).
		Model(model).
		Where("version = ?", current).
		Select("*").
		Omit(clause.Associations, "created_at").
		Updates(model)
	if res.Error != nil {
		*version = current
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		*version = current
		return ErrStaleObject
	}

	return nil
}
