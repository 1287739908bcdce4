package ai

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings configures BreakerGenerator.
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures opens the breaker. Zero disables it.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before letting one request through.
	Timeout time.Duration
}

// BreakerGenerator stops calling a failing provider. While open, Generate
// returns gobreaker.ErrOpenState without a request.
type BreakerGenerator struct {
	next Generator
	cb   *gobreaker.CircuitBreaker[string]
}

// WithBreaker wraps next in a circuit breaker, or returns next unchanged when
// settings.ConsecutiveFailures is zero.
func WithBreaker(next Generator, settings BreakerSettings, logger *zap.Logger) Generator {
	if settings.ConsecutiveFailures == 0 || next == nil {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	st := gobreaker.Settings{
		Name:    settings.Name,
		Timeout: settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerGenerator{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[string](st),
	}
}

func (b *BreakerGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Generate(ctx, req)
	})
}
