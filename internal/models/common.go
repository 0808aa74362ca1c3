// internal/models/common.go
package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func init() {
	// Money goes over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Versioned carries the optimistic lock column. Repositories only write a
// row when the stored version still matches the one that was read.
type Versioned struct {
	Version int `json:"version" gorm:"not null;default:1"`
}

func (v *Versioned) LockVersion() *int {
	return &v.Version
}

// StatusEntry is one element of an append-only status history.
type StatusEntry struct {
	Status    string     `json:"status"`
	At        time.Time  `json:"at"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty"`
}

// StatusLog is stored as a jsonb array through datatypes.JSONSlice. The last
// element is the current status; entries are never rewritten.
type StatusLog []StatusEntry

func (l StatusLog) Value() (driver.Value, error) {
	if l == nil {
		l = StatusLog{}
	}
	return datatypes.JSONSlice[StatusEntry](l).Value()
}

func (l *StatusLog) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return (*datatypes.JSONSlice[StatusEntry])(l).Scan(value)
}

func (l StatusLog) GormDataType() string {
	return datatypes.JSONSlice[StatusEntry](l).GormDataType()
}

func (l StatusLog) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSONSlice[StatusEntry](l).GormDBDataType(db, field)
}

// Latest returns the most recent entry, if any.
func (l StatusLog) Latest() (StatusEntry, bool) {
	if len(l) == 0 {
		return StatusEntry{}, false
	}
	return l[len(l)-1], true
}

// Clone returns a copy that does not share the backing array.
func (l StatusLog) Clone() StatusLog {
	if l == nil {
		return nil
	}
	out := make(StatusLog, len(l))
	copy(out, l)
	return out
}

// Enums
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on other customers' records.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

type PolicyType string

const (
	PolicyTypeHealth PolicyType = "health"
	PolicyTypeAuto   PolicyType = "auto"
	PolicyTypeHome   PolicyType = "home"
	PolicyTypeLife   PolicyType = "life"
)

func (t PolicyType) IsValid() bool {
	switch t {
	case PolicyTypeHealth, PolicyTypeAuto, PolicyTypeHome, PolicyTypeLife:
		return true
	}
	return false
}

type PolicyStatus string

const (
	PolicyStatusActive    PolicyStatus = "active"
	PolicyStatusExpired   PolicyStatus = "expired"
	PolicyStatusCancelled PolicyStatus = "cancelled"
)

func (s PolicyStatus) IsValid() bool {
	switch s {
	case PolicyStatusActive, PolicyStatusExpired, PolicyStatusCancelled:
		return true
	}
	return false
}

type PaymentFrequency string

const (
	FrequencyMonthly   PaymentFrequency = "monthly"
	FrequencyQuarterly PaymentFrequency = "quarterly"
	FrequencyYearly    PaymentFrequency = "yearly"
)

func (f PaymentFrequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Months is the number of calendar months covered by one premium.
func (f PaymentFrequency) Months() int {
	switch f {
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	default:
		return 1
	}
}

// Installments is the number of premiums in one policy year.
func (f PaymentFrequency) Installments() int {
	return 12 / f.Months()
}

// NextDue returns the premium due date following from.
func (f PaymentFrequency) NextDue(from time.Time) time.Time {
	return from.AddDate(0, f.Months(), 0)
}

type CustomerPolicyStatus string

const (
	CustomerPolicyPendingPayment CustomerPolicyStatus = "pending_payment"
	CustomerPolicyActive         CustomerPolicyStatus = "active"
	CustomerPolicyCancelled      CustomerPolicyStatus = "cancelled"
	CustomerPolicyExpired        CustomerPolicyStatus = "expired"
)

// IsTerminal reports whether no further premium or renewal is accepted.
func (s CustomerPolicyStatus) IsTerminal() bool {
	return s == CustomerPolicyCancelled || s == CustomerPolicyExpired
}

type PremiumStatus string

const (
	PremiumInitiated PremiumStatus = "initiated"
	PremiumPending   PremiumStatus = "pending"
	PremiumSuccess   PremiumStatus = "success"
	PremiumFailed    PremiumStatus = "failed"
	PremiumRefunded  PremiumStatus = "refunded"
	PremiumCancelled PremiumStatus = "cancelled"
)

type ClaimType string

const (
	ClaimTypeAccident        ClaimType = "accident"
	ClaimTypeHospitalization ClaimType = "hospitalization"
	ClaimTypeTheft           ClaimType = "theft"
	ClaimTypeDamage          ClaimType = "damage"
	ClaimTypeDeath           ClaimType = "death"
	ClaimTypeOther           ClaimType = "other"
)

func (t ClaimType) IsValid() bool {
	switch t {
	case ClaimTypeAccident, ClaimTypeHospitalization, ClaimTypeTheft,
		ClaimTypeDamage, ClaimTypeDeath, ClaimTypeOther:
		return true
	}
	return false
}

type ClaimStatus string

const (
	ClaimPending     ClaimStatus = "pending"
	ClaimUpdated     ClaimStatus = "updated"
	ClaimUnderReview ClaimStatus = "under_review"
	ClaimApproved    ClaimStatus = "approved"
	ClaimRejected    ClaimStatus = "rejected"
	ClaimPaid        ClaimStatus = "paid"
)

func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimPending, ClaimUpdated, ClaimUnderReview, ClaimApproved, ClaimRejected, ClaimPaid:
		return true
	}
	return false
}

// IsPending covers a freshly filed claim and one the customer has edited.
func (s ClaimStatus) IsPending() bool {
	return s == ClaimPending || s == ClaimUpdated
}

// IsOpen reports whether the claim still blocks a new claim on its policy.
func (s ClaimStatus) IsOpen() bool {
	return s.IsPending() || s == ClaimUnderReview
}

type PayoutMethod string

const (
	PayoutBankTransfer PayoutMethod = "bank_transfer"
	PayoutCheque       PayoutMethod = "cheque"
	PayoutUPI          PayoutMethod = "upi"
)

func (m PayoutMethod) IsValid() bool {
	switch m {
	case PayoutBankTransfer, PayoutCheque, PayoutUPI:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionPremiumPayment TransactionType = "premium_payment"
	TransactionClaimPayout    TransactionType = "claim_payout"
	TransactionRefund         TransactionType = "refund"
	TransactionWalletTopup    TransactionType = "wallet_topup"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionPremiumPayment, TransactionClaimPayout, TransactionRefund, TransactionWalletTopup:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionPending, TransactionSuccess, TransactionFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentUPI          PaymentMethod = "upi"
	PaymentNetBanking   PaymentMethod = "net_banking"
	PaymentWallet       PaymentMethod = "wallet"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheque       PaymentMethod = "cheque"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCreditCard, PaymentDebitCard, PaymentUPI, PaymentNetBanking,
		PaymentWallet, PaymentBankTransfer, PaymentCheque:
		return true
	}
	return false
}
