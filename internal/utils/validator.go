// internal/utils/validator.go
package utils

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/insurance-backend/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("role", enumValidator(func(s string) bool { return models.Role(s).IsValid() }))
	validate.RegisterValidation("policy_type", enumValidator(func(s string) bool { return models.PolicyType(s).IsValid() }))
	validate.RegisterValidation("policy_status", enumValidator(func(s string) bool { return models.PolicyStatus(s).IsValid() }))
	validate.RegisterValidation("payment_frequency", enumValidator(func(s string) bool { return models.PaymentFrequency(s).IsValid() }))
	validate.RegisterValidation("claim_type", enumValidator(func(s string) bool { return models.ClaimType(s).IsValid() }))
	validate.RegisterValidation("payout_method", enumValidator(func(s string) bool { return models.PayoutMethod(s).IsValid() }))
	validate.RegisterValidation("transaction_type", enumValidator(func(s string) bool { return models.TransactionType(s).IsValid() }))
	validate.RegisterValidation("transaction_status", enumValidator(func(s string) bool { return models.TransactionStatus(s).IsValid() }))
	validate.RegisterValidation("payment_method", enumValidator(func(s string) bool { return models.PaymentMethod(s).IsValid() }))
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func enumValidator(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return valid(fl.Field().String())
	}
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasLetter, hasNumber bool

	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	return hasLetter && hasNumber
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

// FirstValidationMessage returns a single human readable message for err.
func FirstValidationMessage(err error) string {
	if errs := GetValidationErrors(err); len(errs) > 0 {
		return errs[0].Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "strong_password":
		return "Password must contain at least 8 characters with letters and numbers"
	case "role", "policy_type", "policy_status", "payment_frequency", "claim_type",
		"payout_method", "transaction_type", "transaction_status", "payment_method":
		return e.Field() + " has an unsupported value"
	default:
		return e.Field() + " is invalid"
	}
}
