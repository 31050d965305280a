package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// MockGateway simulates the payment rail. Results are remembered per
// correlation id so repeated calls return the first answer.
type MockGateway struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
	// MaxDelay bounds the simulated network latency.
	MaxDelay time.Duration

	mu      sync.Mutex
	results map[string]ReversalResult
}

// NewMockGateway creates a mock that fails ~10% of the time after up to a
// second of latency.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		FailureRate: 0.1,
		MaxDelay:    time.Second,
		results:     make(map[string]ReversalResult),
	}
}

func (g *MockGateway) Reverse(ctx context.Context, req ReversalRequest) ReversalResult {
	g.mu.Lock()
	if g.results == nil {
		g.results = make(map[string]ReversalResult)
	}
	if prev, ok := g.results[req.CorrelationID]; ok && req.CorrelationID != "" {
		g.mu.Unlock()
		return prev
	}
	g.mu.Unlock()

	if g.MaxDelay > 0 {
		delay := time.Duration(rand.Int63n(int64(g.MaxDelay)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ReversalResult{Error: fmt.Sprintf("rail call canceled: %v", ctx.Err())}
		}
	}

	var res ReversalResult
	switch {
	case req.SenderAddress == "":
		res = ReversalResult{Error: "sender address is required"}
	case !req.Amount.IsPositive():
		res = ReversalResult{Error: "amount must be positive"}
	case rand.Float64() < g.FailureRate:
		res = ReversalResult{Error: "rail temporarily unavailable"}
	default:
		// Format: MOCK-REV-YYYYMMDD-HHMMSS-XXXXX
		res = ReversalResult{
			Success:   true,
			PaymentID: fmt.Sprintf("MOCK-REV-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000)),
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.results[req.CorrelationID]; ok && req.CorrelationID != "" {
		return prev
	}
	if req.CorrelationID != "" {
		g.results[req.CorrelationID] = res
	}
	return res
}
