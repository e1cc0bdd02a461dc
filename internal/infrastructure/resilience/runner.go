// Package resilience wraps outbound calls with bounded retries and a
// per-operation circuit breaker. Adapters supply a classifier that
// decides which of their errors are worth retrying and which should
// count against the breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Verdict is an adapter's judgement of a single call failure.
type Verdict struct {
	Retry bool
	Count bool
}

type Classifier func(err error) Verdict

type Runner struct {
	settings Settings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewRunner(settings Settings) *Runner {
	return &Runner{
		settings: settings.sanitize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Do runs call under the named operation's breaker, retrying failures
// the classifier marks retryable. Context cancellation stops the retry
// loop immediately.
func (r *Runner) Do(ctx context.Context, operation string, call func(context.Context) error, classify Classifier) error {
	if call == nil {
		return fmt.Errorf("resilience: nil call for %q", operation)
	}
	if classify == nil {
		classify = func(error) Verdict { return Verdict{Count: true} }
	}

	if !r.settings.BreakerEnabled {
		return r.retry(ctx, operation, call, classify)
	}

	breaker := r.breaker(operation, classify)
	_, err := breaker.Execute(func() (any, error) {
		return nil, r.retry(ctx, operation, call, classify)
	})
	return err
}

func (r *Runner) retry(ctx context.Context, operation string, call func(context.Context) error, classify Classifier) error {
	backoff := r.settings.InitialBackoff

	var err error
	for attempt := 1; attempt <= r.settings.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = call(ctx); err == nil {
			return nil
		}
		if !classify(err).Retry || attempt == r.settings.MaxAttempts {
			return err
		}

		slog.Warn("call retry",
			"operation", operation,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * r.settings.BackoffFactor)
		if backoff > r.settings.MaxBackoff {
			backoff = r.settings.MaxBackoff
		}
	}
	return err
}

func (r *Runner) breaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, ok := r.breakers[operation]; ok {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        operation,
		MaxRequests: r.settings.BreakerProbeCalls,
		Timeout:     r.settings.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < r.settings.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= r.settings.BreakerTripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).Count
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	r.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
