// internal/models/claim.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ClaimPayout struct {
	AmountPaid    decimal.NullDecimal `json:"amount_paid" gorm:"type:decimal(14,2)"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	PaymentMethod PayoutMethod        `json:"payment_method,omitempty" gorm:"type:varchar(20)"`
	TransactionID string              `json:"transaction_id,omitempty" gorm:"size:64"`
}

type ClaimRejection struct {
	Reason     string     `json:"reason,omitempty" gorm:"type:text"`
	RejectedBy *uuid.UUID `json:"rejected_by,omitempty" gorm:"type:uuid"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
}

// Claim is a customer's request for payout against an active CustomerPolicy.
// The current status is always the tail of StatusHistory.
type Claim struct {
	BaseModel
	Versioned
	CustomerID       uuid.UUID       `json:"customer_id" gorm:"type:uuid;not null;index"`
	CustomerPolicyID uuid.UUID       `json:"customer_policy_id" gorm:"type:uuid;not null;index"`
	ClaimAmount      decimal.Decimal `json:"claim_amount" gorm:"type:decimal(14,2);not null"`
	ClaimType        ClaimType       `json:"claim_type" gorm:"type:varchar(30);not null;index"`
	Description      string          `json:"description" gorm:"type:text"`
	Documents        pq.StringArray  `json:"documents" gorm:"type:text[]"`
	Deadline         *time.Time      `json:"deadline,omitempty" gorm:"index"`
	IsFlagged        bool            `json:"is_flagged" gorm:"default:false"`
	FlagReason       string          `json:"flag_reason,omitempty" gorm:"size:255"`
	AssignedAgentID  *uuid.UUID      `json:"assigned_agent_id,omitempty" gorm:"type:uuid;index"`
	Payout           ClaimPayout     `json:"payout" gorm:"embedded;embeddedPrefix:payout_"`
	Rejection        ClaimRejection  `json:"rejection" gorm:"embedded;embeddedPrefix:rejection_"`
	StatusHistory    StatusLog       `json:"status_history" gorm:"type:jsonb;not null"`

	// OpenPolicyKey holds the policy id while the claim is open and NULL
	// otherwise; a unique index on it admits one open claim per policy.
	OpenPolicyKey *uuid.UUID `json:"-" gorm:"type:uuid;uniqueIndex"`

	// Relationships
	Customer       *User           `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	CustomerPolicy *CustomerPolicy `json:"customer_policy,omitempty" gorm:"foreignKey:CustomerPolicyID"`
	AssignedAgent  *User           `json:"assigned_agent,omitempty" gorm:"foreignKey:AssignedAgentID"`
}

// CurrentStatus is the only accessor for a claim's status.
func (c *Claim) CurrentStatus() ClaimStatus {
	entry, ok := c.StatusHistory.Latest()
	if !ok {
		return ""
	}
	return ClaimStatus(entry.Status)
}

// AppendStatus records a transition and keeps OpenPolicyKey in step with it.
func (c *Claim) AppendStatus(status ClaimStatus, actor *uuid.UUID, at time.Time) {
	c.StatusHistory = append(c.StatusHistory, StatusEntry{
		Status:    string(status),
		At:        at,
		UpdatedBy: actor,
	})

	if status.IsOpen() {
		key := c.CustomerPolicyID
		c.OpenPolicyKey = &key
	} else {
		c.OpenPolicyKey = nil
	}
}

func (c *Claim) IsOwnedBy(userID uuid.UUID) bool {
	return c.CustomerID == userID
}

// Flag marks the claim for attention without changing its status.
func (c *Claim) Flag(reason string) {
	c.IsFlagged = true
	c.FlagReason = reason
}

func (c *Claim) ClearFlag() {
	c.IsFlagged = false
	c.FlagReason = ""
}
