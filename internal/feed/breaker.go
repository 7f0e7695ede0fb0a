package feed

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/quantfold/optback/internal/chain"
)

// CircuitBreakerProvider wraps a Provider so that a flapping chain endpoint
// stops being hammered: after enough consecutive failures the circuit opens
// and calls fail fast until the timeout elapses.
type CircuitBreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // max requests allowed when half-open
	Interval     time.Duration // counts reset interval
	Timeout      time.Duration // how long the circuit stays open
	MinRequests  uint32        // minimum requests before tripping
	FailureRatio float64       // failure ratio threshold
}

// NewCircuitBreakerProvider wraps provider with default settings.
func NewCircuitBreakerProvider(provider Provider) *CircuitBreakerProvider {
	return NewCircuitBreakerProviderWithSettings(provider, BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	})
}

// NewCircuitBreakerProviderWithSettings wraps provider with custom settings.
func NewCircuitBreakerProviderWithSettings(provider Provider, settings BreakerSettings) *CircuitBreakerProvider {
	gbSettings := gobreaker.Settings{
		Name:        "ChainProviderCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}
	return &CircuitBreakerProvider{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

func (c *CircuitBreakerProvider) Chain(ctx context.Context, symbol string) ([]chain.Quote, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.provider.Chain(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	quotes, ok := res.([]chain.Quote)
	if !ok {
		return nil, errors.New("circuit breaker: type assertion failed")
	}
	return quotes, nil
}
