// internal/models/transaction.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a ledger entry. Only Status changes after creation.
type Transaction struct {
	BaseModel
	CustomerID       uuid.UUID         `json:"customer_id" gorm:"type:uuid;not null;index"`
	CustomerPolicyID *uuid.UUID        `json:"customer_policy_id,omitempty" gorm:"type:uuid;index"`
	ClaimID          *uuid.UUID        `json:"claim_id,omitempty" gorm:"type:uuid;index"`
	Amount           decimal.Decimal   `json:"amount" gorm:"type:decimal(14,2);not null"`
	TransactionType  TransactionType   `json:"transaction_type" gorm:"type:varchar(20);not null;index"`
	PaymentMethod    PaymentMethod     `json:"payment_method" gorm:"type:varchar(20);not null"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ReferenceID      string            `json:"reference_id" gorm:"uniqueIndex;size:64;not null"`
	Remarks          string            `json:"remarks,omitempty" gorm:"type:text"`

	// Relationships
	Customer *User `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
}

func (t *Transaction) IsOwnedBy(userID uuid.UUID) bool {
	return t.CustomerID == userID
}

// PaymentMethodFor maps a claim payout method onto the ledger's method set.
func PaymentMethodFor(m PayoutMethod) PaymentMethod {
	switch m {
	case PayoutCheque:
		return PaymentCheque
	case PayoutUPI:
		return PaymentUPI
	default:
		return PaymentBankTransfer
	}
}
