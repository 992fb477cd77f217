// Package classify holds classifier implementations and decorators that do not
// talk to a remote provider directly.
package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/DevHassanMehdi/ImageUpLift/internal/domain"
	"github.com/DevHassanMehdi/ImageUpLift/internal/domain/classification"
	"github.com/DevHassanMehdi/ImageUpLift/internal/metrics"
)

// BreakerConfig configures the circuit breaker around the classifier.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probe calls allowed while half-open.
	HalfOpenRequests uint32
}

// Instrumented wraps a classifier with a call budget, a circuit breaker and logging.
// Transport metrics (requests, duration) are recorded by the provider adapter.
type Instrumented struct {
	inner    classification.Classifier
	provider string
	budget   BudgetChecker
	breaker  *gobreaker.CircuitBreaker[classification.Classification]
	logger   *zap.Logger
}

// NewInstrumented wraps a classifier. budget may be nil.
func NewInstrumented(
	inner classification.Classifier, provider string,
	cfg BreakerConfig, budget BudgetChecker, logger *zap.Logger,
) *Instrumented {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}

	metrics.ClassifierBreakerState.WithLabelValues(provider).Set(0)
	breaker := gobreaker.NewCircuitBreaker[classification.Classification](gobreaker.Settings{
		Name:        "classifier-" + provider,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Classifier circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.ClassifierBreakerState.WithLabelValues(provider).Set(float64(to))
		},
	})

	return &Instrumented{
		inner:    inner,
		provider: provider,
		budget:   budget,
		breaker:  breaker,
		logger:   logger,
	}
}

// Classify checks the budget, runs the inner classifier behind the breaker
// and records the call.
func (c *Instrumented) Classify(ctx context.Context, img domain.Image) (classification.Classification, error) {
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			c.logger.Error("Classifier budget exceeded", zap.String("provider", c.provider), zap.Error(err))
			return classification.Classification{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (classification.Classification, error) {
		return c.inner.Classify(ctx, img)
	})
	duration := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("Classifier call rejected by circuit breaker", zap.String("provider", c.provider))
		return classification.Classification{}, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	if err != nil {
		c.logger.Error("Classification failed",
			zap.String("provider", c.provider),
			zap.String("image", img.Name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return classification.Classification{}, fmt.Errorf("classify: %w", err)
	}

	if c.budget != nil {
		c.budget.Record()
	}

	c.logger.Debug("Classification completed",
		zap.String("provider", c.provider),
		zap.String("image", img.Name),
		zap.String("label", string(result.Label())),
		zap.Float64("confidence", result.Confidence()),
		zap.Duration("duration", duration),
	)
	return result, nil
}

// HealthCheck delegates to the inner classifier when it supports health checks.
func (c *Instrumented) HealthCheck(ctx context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return domain.ErrClassifierUnavailable
	}
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("classifier health: %w", err)
		}
	}
	return nil
}
