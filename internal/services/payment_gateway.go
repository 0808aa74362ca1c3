// internal/services/payment_gateway.go
package services

import (
	"context"
	"fmt"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// PaymentGateway is the seam to an external payment provider.
type PaymentGateway interface {
	Provider() string
	Gateway() string
	// Initiate registers the payment with the provider and returns the
	// provider's payment id.
	Initiate(ctx context.Context, tx *models.PremiumTransaction) (string, error)
	Refund(ctx context.Context, tx *models.PremiumTransaction) error
}

// MockGateway accepts every request. The outcome of a payment is reported
// later through premium verification.
type MockGateway struct {
	provider string
	gateway  string
}

func NewMockGateway(provider, gateway string) *MockGateway {
	if provider == "" {
		provider = "mock-gateway"
	}
	if gateway == "" {
		gateway = "internal-mock"
	}
	return &MockGateway{provider: provider, gateway: gateway}
}

func (g *MockGateway) Provider() string {
	return g.provider
}

func (g *MockGateway) Gateway() string {
	return g.gateway
}

func (g *MockGateway) Initiate(ctx context.Context, tx *models.PremiumTransaction) (string, error) {
	suffix, err := utils.GenerateRandomString(14)
	if err != nil {
		return "", fmt.Errorf("failed to generate provider payment id: %w", err)
	}
	return "mock_pay_" + suffix, nil
}

func (g *MockGateway) Refund(ctx context.Context, tx *models.PremiumTransaction) error {
	return nil
}
