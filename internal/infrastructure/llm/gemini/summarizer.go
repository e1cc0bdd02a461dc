// Package gemini produces the short reader-facing summaries through
// the Gemini API. Calls are rate limited to stay inside the free-tier
// RPM budget and run under the shared resilience runner.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/infrastructure/resilience"
)

const (
	defaultModel          = "gemini-1.5-flash"
	defaultAttemptTimeout = 30 * time.Second
)

// errAttemptTimeout marks a single generate attempt exceeding its own
// deadline while the caller's context is still live. Unlike a caller
// cancellation it is worth retrying.
var errAttemptTimeout = errors.New("generate attempt timed out")

type Summarizer struct {
	client         *genai.Client
	model          string
	limiter        *rate.Limiter
	runner         *resilience.Runner
	attemptTimeout time.Duration
}

type Options struct {
	Model             string
	RequestsPerMinute int
	AttemptTimeout    time.Duration
	Runner            *resilience.Runner
}

func NewSummarizer(ctx context.Context, apiKey string, options Options) (*Summarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := options.Model
	if model == "" {
		model = defaultModel
	}
	rpm := options.RequestsPerMinute
	if rpm <= 0 {
		rpm = 5
	}
	attemptTimeout := options.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}

	return &Summarizer{
		client:         client,
		model:          model,
		limiter:        rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		runner:         options.Runner,
		attemptTimeout: attemptTimeout,
	}, nil
}

// Summarize generates a 2-3 sentence summary of the article. Failures
// come back wrapped as temporary or permanent so the caller can decide
// between retrying later and falling back to an excerpt.
func (s *Summarizer) Summarize(ctx context.Context, article *domain.Article) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "gemini rate wait", err)
	}

	prompt := buildPrompt(article)

	var summary string
	call := func(ctx context.Context) error {
		// The timeout covers one attempt, so a slow call costs one
		// retry instead of the whole budget.
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()

		result, err := s.client.Models.GenerateContent(attemptCtx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float64](0.5),
			TopP:            genai.Ptr[float64](0.8),
			MaxOutputTokens: genai.Ptr[int64](150),
		})
		if err != nil {
			if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return fmt.Errorf("%w: %w", errAttemptTimeout, err)
			}
			return err
		}
		raw, err := result.Text()
		if err != nil {
			return err
		}
		text := strings.TrimSpace(raw)
		if text == "" {
			return fmt.Errorf("gemini returned empty summary")
		}
		summary = text
		return nil
	}

	var err error
	if s.runner != nil {
		err = s.runner.Do(ctx, "gemini.generate", call, classifyGeminiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapGeminiError(err)
	}
	return summary, nil
}

func classifyGeminiError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, errAttemptTimeout) {
		return resilience.Verdict{Retry: true, Count: true}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Verdict{Retry: true, Count: true}
	}
	if isQuotaExhausted(err) {
		// Daily quota: retrying now cannot help.
		return resilience.Verdict{Count: true}
	}
	if isTransientAPIError(err) {
		return resilience.Verdict{Retry: true, Count: true}
	}
	return resilience.Verdict{Count: true}
}

func wrapGeminiError(err error) error {
	switch {
	case errors.Is(err, errAttemptTimeout):
		return domain.WrapError(domain.ErrTemporary, "gemini generate", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.WrapError(domain.ErrTemporary, "gemini generate", err)
	case resilience.IsCircuitOpen(err):
		return domain.WrapError(domain.ErrTemporary, "gemini generate", err)
	case isQuotaExhausted(err):
		return domain.WrapError(domain.ErrPermanent, "gemini generate", err)
	case isTransientAPIError(err):
		return domain.WrapError(domain.ErrTemporary, "gemini generate", err)
	default:
		return domain.WrapError(domain.ErrPermanent, "gemini generate", err)
	}
}

// isQuotaExhausted matches daily-quota exhaustion, which no amount of
// waiting inside a single call can fix.
func isQuotaExhausted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "daily limit") ||
		strings.Contains(msg, "403")
}

func isTransientAPIError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "504") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "internal server error")
}
