package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfold/optback/internal/chain"
)

type stubProvider struct {
	quotes []chain.Quote
	err    error
	calls  int
}

func (s *stubProvider) Chain(_ context.Context, _ string) ([]chain.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	stub := &stubProvider{quotes: []chain.Quote{{Symbol: "SPX"}}}
	cb := NewCircuitBreakerProvider(stub)

	quotes, err := cb.Chain(context.Background(), "SPX")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Symbol != "SPX" {
		t.Errorf("unexpected quotes: %+v", quotes)
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	stub := &stubProvider{err: errors.New("endpoint down")}
	cb := NewCircuitBreakerProviderWithSettings(stub, BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	})

	for i := 0; i < 3; i++ {
		if _, err := cb.Chain(context.Background(), "SPX"); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}
	// Circuit is now open: the provider must not see further calls.
	before := stub.calls
	if _, err := cb.Chain(context.Background(), "SPX"); err == nil {
		t.Fatal("expected fast failure with the circuit open")
	}
	if stub.calls != before {
		t.Errorf("provider called %d times after trip, expected %d", stub.calls, before)
	}
}
