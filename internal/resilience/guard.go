// Package resilience bounds calls to remote models with a timeout, a rate limiter
// and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Settings configures a Guard. Zero values select the defaults noted per field.
type Settings struct {
	Name              string
	Timeout           time.Duration // per call; 0 disables
	RequestsPerMinute int           // 0 disables rate limiting
	Burst             int           // default RequestsPerMinute/10, at least 1
	MinRequests       uint32        // before the breaker may trip; default 3
	FailureRatio      float64       // default 0.6
	OpenTimeout       time.Duration // how long the breaker stays open; default 60s
	Unavailable       error         // sentinel wrapped for failures; default ErrGeneratorUnavailable
}

// Guard wraps calls to one remote model endpoint.
type Guard struct {
	name        string
	timeout     time.Duration
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	unavailable error
	logger      *zap.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLogger logs breaker state changes.
func WithLogger(l *zap.Logger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

// NewGuard builds a guard from s.
func NewGuard(s Settings, opts ...GuardOption) *Guard {
	g := &Guard{
		name:        s.Name,
		timeout:     s.Timeout,
		unavailable: s.Unavailable,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.unavailable == nil {
		g.unavailable = models.ErrGeneratorUnavailable
	}
	if s.RequestsPerMinute > 0 {
		burst := s.Burst
		if burst <= 0 {
			burst = s.RequestsPerMinute / 10
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(float64(s.RequestsPerMinute)/60.0), burst)
	}
	minRequests := s.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	ratio := s.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	openTimeout := s.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about the remote side.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return g
}

// Name returns the guarded endpoint name.
func (g *Guard) Name() string {
	return g.name
}

// Do runs fn within the guard. Deadline expiry is reported as ErrModelTimeout,
// an open breaker or other failure as the configured unavailable sentinel.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn within g and returns its result.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return zero, ctx.Err()
			}
			// Wait fails early when the next token lies beyond the deadline.
			return zero, fmt.Errorf("%w: %s: rate limited: %v", models.ErrModelTimeout, g.name, err)
		}
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, g.classify(ctx, err)
	}
	return out.(T), nil
}

func (g *Guard) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrModelTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", models.ErrModelTimeout, g.name, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s: %v", g.unavailable, g.name, err)
	default:
		return fmt.Errorf("%w: %s: %v", g.unavailable, g.name, err)
	}
}
