package broker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// CircuitBreakerAdapter wraps an Adapter with a shared circuit breaker so a
// flapping broker fails fast instead of burning the cycle budget on timeouts.
type CircuitBreakerAdapter struct {
	inner   Adapter
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreakerAdapter wraps the adapter with default breaker settings:
// open after 5 consecutive failures, half-open probe after 30s.
func NewCircuitBreakerAdapter(inner Adapter) *CircuitBreakerAdapter {
	settings := gobreaker.Settings{
		Name:    "broker",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &CircuitBreakerAdapter{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// State exposes the breaker state for status reporting.
func (c *CircuitBreakerAdapter) State() gobreaker.State {
	return c.breaker.State()
}

func (c *CircuitBreakerAdapter) GetBars(ctx context.Context, symbol string, start, end time.Time, tf Timeframe) ([]models.Bar, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.GetBars(ctx, symbol, start, end, tf)
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.Bar), nil
}

func (c *CircuitBreakerAdapter) GetOptionsChain(ctx context.Context, symbol string, asOf time.Time) (*models.OptionsChain, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.GetOptionsChain(ctx, symbol, asOf)
	})
	if err != nil {
		return nil, err
	}
	return out.(*models.OptionsChain), nil
}

func (c *CircuitBreakerAdapter) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.GetCurrentPrice(ctx, symbol)
	})
	if err != nil {
		return 0, err
	}
	return out.(float64), nil
}

func (c *CircuitBreakerAdapter) GetAccount(ctx context.Context) (*Account, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.GetAccount(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Account), nil
}

func (c *CircuitBreakerAdapter) SubmitSpreadOrder(ctx context.Context, spread *models.SpreadDescriptor, qty int) (*OrderResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.SubmitSpreadOrder(ctx, spread, qty)
	})
	if err != nil {
		return nil, err
	}
	return out.(*OrderResult), nil
}

func (c *CircuitBreakerAdapter) ClosePosition(ctx context.Context, position *models.Position) (*OrderResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.ClosePosition(ctx, position)
	})
	if err != nil {
		return nil, err
	}
	return out.(*OrderResult), nil
}

func (c *CircuitBreakerAdapter) TestConnection(ctx context.Context) bool {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.TestConnection(ctx), nil
	})
	if err != nil {
		return false
	}
	return out.(bool)
}

var _ Adapter = (*CircuitBreakerAdapter)(nil)
