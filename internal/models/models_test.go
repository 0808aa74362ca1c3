// internal/models/models_test.go
package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimStatusFollowsHistory(t *testing.T) {
	policyID := uuid.New()
	actor := uuid.New()
	at := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	claim := &Claim{CustomerPolicyID: policyID}

	assert.Equal(t, ClaimStatus(""), claim.CurrentStatus())

	claim.AppendStatus(ClaimPending, &actor, at)
	assert.Equal(t, ClaimPending, claim.CurrentStatus())
	require.NotNil(t, claim.OpenPolicyKey)
	assert.Equal(t, policyID, *claim.OpenPolicyKey)

	claim.AppendStatus(ClaimUnderReview, &actor, at.Add(time.Hour))
	assert.NotNil(t, claim.OpenPolicyKey)

	claim.AppendStatus(ClaimRejected, &actor, at.Add(2*time.Hour))
	assert.Equal(t, ClaimRejected, claim.CurrentStatus())
	assert.Nil(t, claim.OpenPolicyKey)
	assert.Len(t, claim.StatusHistory, 3)
	assert.Equal(t, string(ClaimPending), claim.StatusHistory[0].Status)
}

func TestClaimStatusPredicates(t *testing.T) {
	assert.True(t, ClaimUpdated.IsPending())
	assert.False(t, ClaimUnderReview.IsPending())
	assert.True(t, ClaimUnderReview.IsOpen())
	assert.False(t, ClaimApproved.IsOpen())
	assert.False(t, ClaimPaid.IsOpen())
	assert.False(t, ClaimStatus("closed").IsValid())
}

func TestPaymentFrequencySchedule(t *testing.T) {
	from := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 12, FrequencyMonthly.Installments())
	assert.Equal(t, 4, FrequencyQuarterly.Installments())
	assert.Equal(t, 1, FrequencyYearly.Installments())

	assert.Equal(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC), FrequencyMonthly.NextDue(from))
	assert.Equal(t, time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC), FrequencyQuarterly.NextDue(from))
	assert.Equal(t, time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC), FrequencyYearly.NextDue(from))
	assert.False(t, PaymentFrequency("weekly").IsValid())
}

func TestCustomerPolicyTransitions(t *testing.T) {
	actor := uuid.New()
	at := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	cp := &CustomerPolicy{StartDate: at, EndDate: at.AddDate(1, 0, 0)}

	cp.Transition(CustomerPolicyPendingPayment, &actor, at)
	cp.Record(EventPaymentInitiated, nil, at.Add(time.Minute))
	cp.Transition(CustomerPolicyActive, &actor, at.Add(time.Hour))

	assert.Equal(t, CustomerPolicyActive, cp.Status)
	latest, ok := cp.StatusHistory.Latest()
	require.True(t, ok)
	assert.Equal(t, string(CustomerPolicyActive), latest.Status)
	assert.Equal(t, EventPaymentInitiated, cp.StatusHistory[1].Status)
	assert.Nil(t, cp.StatusHistory[1].UpdatedBy)
	assert.Equal(t, &actor, cp.UpdatedByID)

	assert.True(t, cp.CoversDate(at))
	assert.True(t, cp.CoversDate(cp.EndDate))
	assert.False(t, cp.CoversDate(cp.EndDate.Add(time.Second)))

	assert.False(t, CustomerPolicyActive.IsTerminal())
	assert.True(t, CustomerPolicyExpired.IsTerminal())
}

func TestStatusLogStorage(t *testing.T) {
	var empty StatusLog
	value, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)

	log := StatusLog{{Status: "pending", At: time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC)}}
	value, err = log.Value()
	require.NoError(t, err)

	var scanned StatusLog
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, log[0].Status, scanned[0].Status)
	assert.True(t, log[0].At.Equal(scanned[0].At))
	assert.Error(t, scanned.Scan(42))

	require.NoError(t, scanned.Scan(`[{"status":"pending","at":"2026-05-04T00:00:00Z"},{"status":"under_review","at":"2026-05-05T00:00:00Z"}]`))
	latest, ok := scanned.Latest()
	require.True(t, ok)
	assert.Equal(t, "under_review", latest.Status)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
	assert.Equal(t, "json", scanned.GormDataType())

	clone := log.Clone()
	clone[0].Status = "changed"
	assert.Equal(t, "pending", log[0].Status)
}

func TestPremiumInstallments(t *testing.T) {
	tx := &PremiumTransaction{IsInstallment: true, InstallmentNumber: 3, TotalInstallments: 4}
	assert.True(t, tx.HasRemainingInstallments())

	tx.InstallmentNumber = 4
	assert.False(t, tx.HasRemainingInstallments())

	single := &PremiumTransaction{InstallmentNumber: 1, TotalInstallments: 12}
	assert.False(t, single.HasRemainingInstallments())

	single.Status = PremiumFailed
	assert.True(t, single.IsSettled())
	single.Status = PremiumRefunded
	assert.False(t, single.IsSettled())
}

func TestUserPassword(t *testing.T) {
	user := &User{}
	require.NoError(t, user.SetPassword("secret123"))
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, user.CheckPassword("secret123"))
	assert.Error(t, user.CheckPassword("secret124"))
}

func TestPayoutMethodMapping(t *testing.T) {
	assert.Equal(t, PaymentUPI, PaymentMethodFor(PayoutUPI))
	assert.Equal(t, PaymentCheque, PaymentMethodFor(PayoutCheque))
	assert.Equal(t, PaymentBankTransfer, PaymentMethodFor(PayoutBankTransfer))
}
