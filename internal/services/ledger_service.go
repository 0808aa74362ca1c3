// internal/services/ledger_service.go
package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// LedgerService owns the Transaction ledger.
type LedgerService struct {
	store repository.Store
}

type CreateTransactionRequest struct {
	CustomerPolicyID *uuid.UUID             `json:"customer_policy_id"`
	ClaimID          *uuid.UUID             `json:"claim_id"`
	Amount           decimal.Decimal        `json:"amount"`
	TransactionType  models.TransactionType `json:"transaction_type" validate:"required,transaction_type"`
	PaymentMethod    models.PaymentMethod   `json:"payment_method" validate:"required,payment_method"`
	ReferenceID      string                 `json:"reference_id" validate:"required,max=64"`
	Remarks          string                 `json:"remarks" validate:"max=1000"`
}

type UpdateTransactionStatusRequest struct {
	Status models.TransactionStatus `json:"status" validate:"required,transaction_status"`
}

func NewLedgerService(store repository.Store) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) Create(ctx context.Context, p Principal, req *CreateTransactionRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}
	if !req.Amount.IsPositive() {
		return nil, ErrValidation("amount must be greater than zero")
	}

	switch req.TransactionType {
	case models.TransactionPremiumPayment:
		if req.CustomerPolicyID == nil {
			return nil, ErrValidation("customer_policy_id is required for premium payments")
		}
	case models.TransactionClaimPayout:
		if req.ClaimID == nil {
			return nil, ErrValidation("claim_id is required for claim payouts")
		}
	}

	if req.CustomerPolicyID != nil {
		cp, err := s.store.CustomerPolicies().GetByID(ctx, *req.CustomerPolicyID)
		if err != nil {
			return nil, storeError(err, "customer policy")
		}
		if !p.CanAccess(cp.CustomerID) {
			return nil, ErrForbidden("you can only record transactions for your own policies")
		}
	}
	if req.ClaimID != nil {
		claim, err := s.store.Claims().GetByID(ctx, *req.ClaimID)
		if err != nil {
			return nil, storeError(err, "claim")
		}
		if !p.CanAccess(claim.CustomerID) {
			return nil, ErrForbidden("you can only record transactions for your own claims")
		}
	}

	tx := &models.Transaction{
		CustomerID:       p.ID,
		CustomerPolicyID: req.CustomerPolicyID,
		ClaimID:          req.ClaimID,
		Amount:           req.Amount,
		TransactionType:  req.TransactionType,
		PaymentMethod:    req.PaymentMethod,
		Status:           models.TransactionPending,
		ReferenceID:      strings.TrimSpace(req.ReferenceID),
		Remarks:          req.Remarks,
	}
	if err := s.record(ctx, s.store, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// List returns every ledger entry matching filter. Admin only.
func (s *LedgerService) List(ctx context.Context, p Principal, filter repository.TransactionFilter) ([]models.Transaction, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, ErrForbidden("only admins can list all transactions")
	}
	txs, total, err := s.store.Transactions().List(ctx, filter)
	if err != nil {
		return nil, 0, storeError(err, "transaction")
	}
	return txs, total, nil
}

func (s *LedgerService) ListMine(ctx context.Context, p Principal, filter repository.TransactionFilter) ([]models.Transaction, int64, error) {
	filter.CustomerID = &p.ID
	txs, total, err := s.store.Transactions().List(ctx, filter)
	if err != nil {
		return nil, 0, storeError(err, "transaction")
	}
	return txs, total, nil
}

func (s *LedgerService) Get(ctx context.Context, p Principal, id uuid.UUID) (*models.Transaction, error) {
	tx, err := s.store.Transactions().GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "transaction")
	}
	if !tx.IsOwnedBy(p.ID) && !p.IsStaff() {
		return nil, ErrForbidden("you can only view your own transactions")
	}
	return tx, nil
}

func (s *LedgerService) UpdateStatus(ctx context.Context, p Principal, id uuid.UUID, req *UpdateTransactionStatusRequest) (*models.Transaction, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can change transaction status")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation("status must be one of pending, success or failed")
	}

	if err := s.store.Transactions().UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, storeError(err, "transaction")
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": id,
		"status":         req.Status,
		"updated_by":     p.ID,
	}).Info("Ledger transaction status updated")

	return s.Get(ctx, p, id)
}

// record writes tx through store, which may be a transactional Store.
func (s *LedgerService) record(ctx context.Context, store repository.Store, tx *models.Transaction) error {
	if err := store.Transactions().Create(ctx, tx); err != nil {
		if svcErr := storeError(err, "transaction"); KindOf(svcErr) == KindConflict {
			return ErrConflict("a transaction with reference %s already exists", tx.ReferenceID)
		}
		return storeError(err, "transaction")
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"type":           tx.TransactionType,
		"status":         tx.Status,
		"amount":         tx.Amount.String(),
	}).Info("Ledger transaction recorded")

	return nil
}
