package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/core/ports"
)

// DefaultFallbackLength bounds the excerpt used when summarization
// fails permanently.
const DefaultFallbackLength = 400

// SummarizeUseCase is the gateway in front of the AI summarization
// capability: response cache, per-article single flight, and a
// deterministic fallback so the feed never waits on the model. Retry,
// backoff and per-attempt timeouts live in the summarizer adapter; by
// the time an error surfaces here the attempt budget is spent.
type SummarizeUseCase struct {
	repo       ports.ArticleRepository
	summarizer ports.Summarizer
	cache      ports.SummaryCache
	ranker     ports.FeedRanker

	fallbackLength int

	// group guarantees at most one in-flight AI call per article ID;
	// concurrent callers for the same article wait on the first
	// result instead of re-triggering the model.
	group singleflight.Group
}

func NewSummarizeUseCase(
	repo ports.ArticleRepository,
	summarizer ports.Summarizer,
	cache ports.SummaryCache,
	ranker ports.FeedRanker,
	fallbackLength int,
) *SummarizeUseCase {
	if fallbackLength <= 0 {
		fallbackLength = DefaultFallbackLength
	}
	return &SummarizeUseCase{
		repo:           repo,
		summarizer:     summarizer,
		cache:          cache,
		ranker:         ranker,
		fallbackLength: fallbackLength,
	}
}

func (uc *SummarizeUseCase) SummarizeByID(ctx context.Context, articleID string) error {
	_, err, _ := uc.group.Do(articleID, func() (any, error) {
		return nil, uc.summarizeOnce(ctx, articleID)
	})
	return err
}

func (uc *SummarizeUseCase) summarizeOnce(ctx context.Context, articleID string) error {
	article, err := uc.repo.GetByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("load article: %w", err)
	}
	if article.SummaryStatus == domain.SummaryReady {
		return nil
	}

	if summary, ok, err := uc.cache.Get(ctx, articleID); err != nil {
		slog.Warn("summary cache read failed", "article_id", articleID, "error", err)
	} else if ok {
		return uc.storeReady(ctx, articleID, summary)
	}

	summary, err := uc.summarizer.Summarize(ctx, article)
	if err != nil {
		// A shutdown mid-call says nothing about the article; leave it
		// pending so the sweep picks it up again.
		if ctx.Err() != nil {
			return fmt.Errorf("summarize interrupted: %w", err)
		}
		return uc.storeFailed(ctx, article, err)
	}

	if err := uc.cache.Set(ctx, articleID, summary); err != nil {
		slog.Warn("summary cache write failed", "article_id", articleID, "error", err)
	}
	return uc.storeReady(ctx, articleID, summary)
}

func (uc *SummarizeUseCase) storeReady(ctx context.Context, articleID, summary string) error {
	if err := uc.repo.SaveSummary(ctx, articleID, domain.SummaryReady, summary, time.Now().UTC()); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	uc.ranker.NoteSummarized(ctx)
	return nil
}

// storeFailed records the exhaustion of retries. The article still
// enters the feed with a truncated excerpt; only the status tells the
// client the text is not model-written.
func (uc *SummarizeUseCase) storeFailed(ctx context.Context, article *domain.Article, cause error) error {
	fallback := FallbackSummary(article.Body, uc.fallbackLength)
	if err := uc.repo.SaveSummary(ctx, article.ID, domain.SummaryFailed, fallback, time.Now().UTC()); err != nil {
		return fmt.Errorf("save fallback summary: %w", err)
	}
	uc.ranker.NoteSummarized(ctx)

	slog.Warn("summarization failed, excerpt fallback stored",
		"article_id", article.ID,
		"permanent", domain.IsKind(cause, domain.ErrPermanent),
		"error", cause,
	)
	return nil
}

// FallbackSummary deterministically truncates a body to at most limit
// runes on a word boundary.
func FallbackSummary(body string, limit int) string {
	text := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := limit
	for cut > 0 && runes[cut-1] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}
