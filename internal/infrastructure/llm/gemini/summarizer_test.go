package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/infrastructure/resilience"
)

func attemptTimeoutErr() error {
	return fmt.Errorf("%w: %w", errAttemptTimeout, context.DeadlineExceeded)
}

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		retry bool
	}{
		{"attempt timeout", attemptTimeoutErr(), true},
		{"caller cancelled", context.Canceled, false},
		{"caller deadline", context.DeadlineExceeded, false},
		{"quota exhausted", errors.New("googleapi: quota exceeded"), false},
		{"rate limited", errors.New("429 too many requests"), true},
		{"server error", errors.New("503 service unavailable"), true},
		{"model overloaded", errors.New("the model is overloaded"), true},
		{"invalid request", errors.New("invalid argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyGeminiError(tt.err).Retry; got != tt.retry {
				t.Fatalf("Retry = %v, want %v", got, tt.retry)
			}
		})
	}
}

// A slow attempt costs one retry, not the whole budget: the verdict for
// an attempt deadline drives the runner through its remaining attempts.
func TestTimedOutAttemptIsRetried(t *testing.T) {
	runner := resilience.NewRunner(resilience.Settings{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
	})

	calls := 0
	err := runner.Do(context.Background(), "gemini.generate", func(context.Context) error {
		calls++
		if calls < 3 {
			return attemptTimeoutErr()
		}
		return nil
	}, classifyGeminiError)

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWrapGeminiErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"attempt timeout", attemptTimeoutErr(), domain.ErrTemporary},
		{"caller cancelled", context.Canceled, domain.ErrTemporary},
		{"quota", errors.New("daily limit exceeded"), domain.ErrPermanent},
		{"unavailable", errors.New("service unavailable"), domain.ErrTemporary},
		{"unknown", errors.New("bad request"), domain.ErrPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if wrapped := wrapGeminiError(tt.err); !domain.IsKind(wrapped, tt.kind) {
				t.Fatalf("wrapped = %v, want kind %v", wrapped, tt.kind)
			}
		})
	}
}
