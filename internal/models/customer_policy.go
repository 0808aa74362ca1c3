// internal/models/customer_policy.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerPolicy is a customer's subscription to a Policy.
type CustomerPolicy struct {
	BaseModel
	Versioned
	CustomerID        uuid.UUID            `json:"customer_id" gorm:"type:uuid;not null;uniqueIndex:idx_customer_policies_customer_policy"`
	PolicyID          uuid.UUID            `json:"policy_id" gorm:"type:uuid;not null;uniqueIndex:idx_customer_policies_customer_policy;index"`
	PolicyNumber      string               `json:"policy_number" gorm:"uniqueIndex;size:32;not null"`
	StartDate         time.Time            `json:"start_date"`
	EndDate           time.Time            `json:"end_date" gorm:"index"`
	PaymentFrequency  PaymentFrequency     `json:"payment_frequency" gorm:"type:varchar(20);not null;default:'monthly'"`
	PremiumPaid       bool                 `json:"premium_paid" gorm:"default:false"`
	LastPaymentDate   *time.Time           `json:"last_payment_date,omitempty"`
	NextPaymentDue    *time.Time           `json:"next_payment_due,omitempty"`
	RenewalCount      int                  `json:"renewal_count" gorm:"default:0"`
	RenewalDueDate    *time.Time           `json:"renewal_due_date,omitempty"`
	PolicyActivatedAt *time.Time           `json:"policy_activated_at,omitempty"`
	Status            CustomerPolicyStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending_payment';index"`
	StatusHistory     StatusLog            `json:"status_history" gorm:"type:jsonb;not null"`
	CreatedByID       *uuid.UUID           `json:"created_by,omitempty" gorm:"type:uuid"`
	UpdatedByID       *uuid.UUID           `json:"updated_by,omitempty" gorm:"type:uuid"`

	// Relationships
	Customer *User   `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Policy   *Policy `json:"policy,omitempty" gorm:"foreignKey:PolicyID"`
}

// Record appends a history entry. Event names such as payment_initiated
// share the log with the lifecycle statuses.
func (cp *CustomerPolicy) Record(event string, actor *uuid.UUID, at time.Time) {
	cp.StatusHistory = append(cp.StatusHistory, StatusEntry{
		Status:    event,
		At:        at,
		UpdatedBy: actor,
	})
	if actor != nil {
		cp.UpdatedByID = actor
	}
}

// Transition moves the policy to status and records it in the history.
func (cp *CustomerPolicy) Transition(status CustomerPolicyStatus, actor *uuid.UUID, at time.Time) {
	cp.Status = status
	cp.Record(string(status), actor, at)
}

// CoversDate reports whether at falls within the coverage window.
func (cp *CustomerPolicy) CoversDate(at time.Time) bool {
	return !at.Before(cp.StartDate) && !at.After(cp.EndDate)
}

func (cp *CustomerPolicy) IsOwnedBy(userID uuid.UUID) bool {
	return cp.CustomerID == userID
}

// History event names recorded alongside lifecycle statuses.
const (
	EventPaymentInitiated = "payment_initiated"
	EventPremiumPaid      = "premium_paid"
	EventRenewed          = "renewed"
)
