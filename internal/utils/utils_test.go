// internal/utils/utils_test.go
package utils

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarMonths(t *testing.T) {
	start := time.Date(2026, time.January, 31, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC), AddCalendarMonths(start, 1))
	assert.Equal(t, time.Date(2027, time.January, 31, 10, 0, 0, 0, time.UTC), AddCalendarMonths(start, 12))
	assert.Equal(t, time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC), AddDays(start, 30))
}

func TestNormalizePagination(t *testing.T) {
	params := NormalizePagination(PaginationParams{Page: -3, Limit: 1000, Order: "sideways"}, 20)
	assert.Equal(t, PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}, params)

	params = NormalizePagination(PaginationParams{Page: 3, Limit: 25, Sort: "amount", Order: "asc"}, 20)
	assert.Equal(t, 50, params.Offset())
	assert.Equal(t, "amount", params.Sort)

	result := CreatePaginationResult([]int{1, 2}, 51, params)
	assert.Equal(t, 3, result.TotalPages)
}

func TestGetPaginationParamsFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/claims?page=2&limit=abc&order=asc", nil)

	params := GetPaginationParams(c, 15)
	assert.Equal(t, 2, params.Page)
	assert.Equal(t, 15, params.Limit)
	assert.Equal(t, "asc", params.Order)

	SetPaginationHeaders(c, CreatePaginationResult(nil, 31, params))
	assert.Equal(t, "31", w.Header().Get("X-Total-Count"))
	assert.Equal(t, "3", w.Header().Get("X-Total-Pages"))
}

func TestReferenceAndInvoiceNumbers(t *testing.T) {
	require.NoError(t, InitIDGenerator(7))

	first := NewReferenceID("PAYOUT")
	second := NewReferenceID("PAYOUT")
	assert.Regexp(t, regexp.MustCompile(`^PAYOUT-\d+$`), first)
	assert.NotEqual(t, first, second)

	invoice := NewInvoiceNumber(time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(invoice, "INV-2026-"), invoice)
	assert.Equal(t, strings.ToUpper(invoice), invoice)

	assert.Error(t, InitIDGenerator(5000))
}

func TestRandomDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		digits, err := RandomDigits(4)
		require.NoError(t, err)
		assert.Regexp(t, `^[1-9]\d{3}$`, digits)
	}
}

func TestValidatorRules(t *testing.T) {
	type account struct {
		Password string `validate:"required,strong_password"`
		Role     string `validate:"required,role"`
		Method   string `validate:"omitempty,payment_method"`
	}

	assert.NoError(t, ValidateStruct(account{Password: "secret123", Role: "agent", Method: "upi"}))

	err := ValidateStruct(account{Password: "letters-only", Role: "agent"})
	require.Error(t, err)
	assert.Equal(t, "Password must contain at least 8 characters with letters and numbers", FirstValidationMessage(err))

	err = ValidateStruct(account{Password: "secret123", Role: "owner", Method: "barter"})
	errs := GetValidationErrors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "role", errs[0].Field)
	assert.Equal(t, "Role has an unsupported value", errs[0].Message)
	assert.Equal(t, "method", errs[1].Field)
}

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("round-trip-secret")
	userID := uuid.New()

	token, err := GenerateJWT(userID, "admin", 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	expired, err := GenerateJWT(userID, "admin", -1)
	require.NoError(t, err)
	_, err = ValidateJWT(expired)
	assert.Error(t, err)

	SetJWTSecret("rotated-secret")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
