package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/stripe/stripe-go/v76"
)

// MockSignature is the only Stripe-Signature value MockStripeGateway accepts
const MockSignature = "mock-valid-signature"

// MockStripeGateway is an in-memory StripeGateway for tests
type MockStripeGateway struct {
	mu              sync.Mutex
	CheckoutCalls   []CheckoutRequest
	IntentCalls     []IntentRequest
	FailNextRequest error
}

func NewMockStripeGateway() *MockStripeGateway {
	return &MockStripeGateway{}
}

func (m *MockStripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.CheckoutCalls = append(m.CheckoutCalls, req)
	id := fmt.Sprintf("cs_test_%d", len(m.CheckoutCalls))
	return &CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (m *MockStripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	m.IntentCalls = append(m.IntentCalls, req)
	id := fmt.Sprintf("pi_test_%d", len(m.IntentCalls))
	return &PaymentIntent{ID: id, ClientSecret: id + "_secret"}, nil
}

// ConstructEvent decodes the payload when the signature equals MockSignature
func (m *MockStripeGateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	var event stripe.Event
	if signature != MockSignature {
		return event, errors.New("webhook has no valid signature")
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("failed to parse webhook body json: %w", err)
	}
	return event, nil
}

// Calls returns how many Stripe objects were created
func (m *MockStripeGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CheckoutCalls) + len(m.IntentCalls)
}

func (m *MockStripeGateway) takeFailure() error {
	err := m.FailNextRequest
	m.FailNextRequest = nil
	return err
}
