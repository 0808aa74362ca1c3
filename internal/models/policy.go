// internal/models/policy.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PolicyTerms struct {
	DurationInMonths int      `json:"duration_in_months" validate:"required,min=1"`
	Exclusions       []string `json:"exclusions,omitempty"`
	Conditions       []string `json:"conditions,omitempty"`
}

type Eligibility struct {
	MinAge         int      `json:"min_age"`
	MaxAge         int      `json:"max_age"`
	RegionsAllowed []string `json:"regions_allowed,omitempty"`
}

// Policy is a product template customers subscribe to.
type Policy struct {
	BaseModel
	PolicyCode            string                          `json:"policy_code" gorm:"uniqueIndex;size:32;not null"`
	PolicyType            PolicyType                      `json:"policy_type" gorm:"type:varchar(20);not null;index"`
	Title                 string                          `json:"title" gorm:"uniqueIndex;size:255;not null"`
	Description           string                          `json:"description" gorm:"type:text"`
	CoverageAmount        decimal.Decimal                 `json:"coverage_amount" gorm:"type:decimal(14,2);not null"`
	PremiumAmount         decimal.Decimal                 `json:"premium_amount" gorm:"type:decimal(14,2);not null"`
	Terms                 datatypes.JSONType[PolicyTerms] `json:"terms" gorm:"not null"`
	Eligibility           datatypes.JSONType[Eligibility] `json:"eligibility"`
	EffectiveFrom         time.Time                       `json:"effective_from"`
	ValidTill             *time.Time                      `json:"valid_till,omitempty"`
	Renewable             bool                            `json:"renewable" gorm:"default:true"`
	RenewalPeriodInMonths int                             `json:"renewal_period_in_months" gorm:"not null;default:12"`
	GracePeriodDays       int                             `json:"grace_period_days" gorm:"not null;default:30"`
	Status                PolicyStatus                    `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedByID           *uuid.UUID                      `json:"created_by,omitempty" gorm:"type:uuid"`
	UpdatedByID           *uuid.UUID                      `json:"updated_by,omitempty" gorm:"type:uuid"`
}

func (p *Policy) DurationInMonths() int {
	return p.Terms.Data().DurationInMonths
}

// ClaimGraceDays is the review window granted to a claim filed against this policy.
func (p *Policy) ClaimGraceDays() int {
	if p.GracePeriodDays <= 0 {
		return 30
	}
	return p.GracePeriodDays
}
