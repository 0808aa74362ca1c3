// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess           = "success"
	KeyNotFound          = "common.not_found"
	KeyAccessDenied      = "common.access_denied"
	KeyInternalError     = "common.internal_error"
	KeyConflict          = "common.conflict"
	KeyRateLimited       = "common.rate_limited"
	KeyValidationInvalid = "validation.invalid"
	KeyInvalidID         = "validation.invalid_id"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthProfile            = "auth.profile"

	// Users
	KeyUserProfileUpdated  = "user.profile_updated"
	KeyUserPasswordChanged = "user.password_changed"

	// Admin
	KeyAdminDashboard   = "admin.dashboard"
	KeyAdminUsersListed = "admin.users_listed"
	KeyAdminRoleUpdated = "admin.role_updated"

	// Policy catalog
	KeyPolicyCreated = "policy.created"
	KeyPolicyUpdated = "policy.updated"
	KeyPolicyDeleted = "policy.deleted"
	KeyPolicyFetched = "policy.fetched"
	KeyPolicyListed  = "policy.listed"

	// Customer policies
	KeyCustomerPolicyPurchased = "customer_policy.purchased"
	KeyCustomerPolicyFetched   = "customer_policy.fetched"
	KeyCustomerPolicyListed    = "customer_policy.listed"
	KeyCustomerPolicyRenewed   = "customer_policy.renewed"
	KeyCustomerPolicyCancelled = "customer_policy.cancelled"
	KeyCustomerPolicyPaid      = "customer_policy.premium_paid"

	// Premium payments
	KeyPremiumInitiated = "premium.initiated"
	KeyPremiumVerified  = "premium.verified"
	KeyPremiumFailed    = "premium.failed"
	KeyPremiumRetried   = "premium.retried"
	KeyPremiumRefunded  = "premium.refunded"
	KeyPremiumCancelled = "premium.cancelled"
	KeyPremiumInvoice   = "premium.invoice"
	KeyPremiumFetched   = "premium.fetched"
	KeyPremiumListed    = "premium.listed"

	// Claims
	KeyClaimCreated       = "claim.created"
	KeyClaimCoverageNote  = "claim.coverage_note"
	KeyClaimFetched       = "claim.fetched"
	KeyClaimListed        = "claim.listed"
	KeyClaimUpdated       = "claim.updated"
	KeyClaimUnderReview   = "claim.under_review"
	KeyClaimApproved      = "claim.approved"
	KeyClaimRejected      = "claim.rejected"
	KeyClaimDeleted       = "claim.deleted"
	KeyClaimDocumentSaved = "claim.document_uploaded"
	KeyClaimDocumentLinks = "claim.document_links"

	// Ledger
	KeyTransactionCreated       = "transaction.created"
	KeyTransactionFetched       = "transaction.fetched"
	KeyTransactionListed        = "transaction.listed"
	KeyTransactionStatusUpdated = "transaction.status_updated"
)
