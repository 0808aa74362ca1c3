// internal/models/premium_transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PremiumTransaction is one premium payment attempt against a CustomerPolicy.
type PremiumTransaction struct {
	BaseModel
	Versioned
	CustomerID         uuid.UUID       `json:"customer_id" gorm:"type:uuid;not null;index"`
	CustomerPolicyID   uuid.UUID       `json:"customer_policy_id" gorm:"type:uuid;not null;index"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2);not null"`
	Currency           string          `json:"currency" gorm:"size:3;not null;default:'INR'"`
	IsInstallment      bool            `json:"is_installment" gorm:"default:false"`
	InstallmentNumber  int             `json:"installment_number" gorm:"not null;default:1"`
	TotalInstallments  int             `json:"total_installments" gorm:"not null;default:1"`
	InstallmentAmount  decimal.Decimal `json:"installment_amount" gorm:"type:decimal(14,2)"`
	Provider           string          `json:"provider" gorm:"size:50"`
	ProviderPaymentID  string          `json:"provider_payment_id,omitempty" gorm:"size:100"`
	ProviderResponse   datatypes.JSON  `json:"provider_response,omitempty"`
	Gateway            string          `json:"gateway" gorm:"size:50"`
	GatewayStatus      string          `json:"gateway_status,omitempty" gorm:"size:30"`
	ReferenceID        string          `json:"reference_id" gorm:"uniqueIndex;size:64;not null"`
	InvoiceNo          string          `json:"invoice_no" gorm:"uniqueIndex;size:64;not null"`
	Status             PremiumStatus   `json:"status" gorm:"type:varchar(20);not null;default:'initiated';index"`
	FailureReason      string          `json:"failure_reason,omitempty" gorm:"type:text"`
	IsPolicyActivation bool            `json:"is_policy_activation" gorm:"default:false"`
	PolicyActivatedAt  *time.Time      `json:"policy_activated_at,omitempty"`
	InitiatedAt        time.Time       `json:"initiated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	RefundedAt         *time.Time      `json:"refunded_at,omitempty"`
	RetryCount         int             `json:"retry_count" gorm:"default:0"`
	RetryOfID          *uuid.UUID      `json:"retry_of,omitempty" gorm:"type:uuid"`
	IdempotencyKey     string          `json:"-" gorm:"size:128"`
	Remarks            string          `json:"remarks,omitempty" gorm:"type:text"`

	// Relationships
	CustomerPolicy *CustomerPolicy `json:"customer_policy,omitempty" gorm:"foreignKey:CustomerPolicyID"`
}

// IsSettled reports whether the gateway outcome has already been recorded.
func (p *PremiumTransaction) IsSettled() bool {
	return p.Status == PremiumSuccess || p.Status == PremiumFailed
}

// HasRemainingInstallments reports whether more installments follow this one.
func (p *PremiumTransaction) HasRemainingInstallments() bool {
	return p.IsInstallment && p.InstallmentNumber < p.TotalInstallments
}
