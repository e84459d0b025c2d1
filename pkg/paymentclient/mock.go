package paymentclient

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// MockGateway simulates the gateway for local development: it waits Latency and then
// declines DeclinePercent of payments regardless of input.
type MockGateway struct {
	DeclinePercent int
	Latency        time.Duration

	roll func() int
}

// NewMockGateway creates a mock gateway with the given decline rate and latency.
func NewMockGateway(declinePercent int, latency time.Duration) *MockGateway {
	if declinePercent < 0 {
		declinePercent = 0
	}
	if declinePercent > 100 {
		declinePercent = 100
	}
	return &MockGateway{
		DeclinePercent: declinePercent,
		Latency:        latency,
		roll:           func() int { return rand.Intn(100) },
	}
}

func (m *MockGateway) ProcessPayment(ctx context.Context, amount int64, description string) (*Result, error) {
	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	roll := m.roll
	if roll == nil {
		roll = func() int { return rand.Intn(100) }
	}
	if roll() < m.DeclinePercent {
		return &Result{
			Success:      false,
			Status:       "declined",
			ErrorMessage: "Payment declined by issuer",
		}, nil
	}

	return &Result{
		Success:       true,
		TransactionID: "mock_" + uuid.NewString(),
		Status:        "completed",
	}, nil
}
