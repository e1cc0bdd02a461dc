package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/core/ports"
)

// RankUseCase orders summarized articles into the feed sequence:
// Kerala relevance first, recency second, article ID for deterministic
// ties, with a soft category-diversity constraint on consecutive
// entries.
type RankUseCase struct {
	repo  ports.ArticleRepository
	index ports.FeedIndex

	diversityWindow  int
	triggerThreshold int64

	group     singleflight.Group
	newlyDone atomic.Int64
}

func NewRankUseCase(repo ports.ArticleRepository, index ports.FeedIndex, diversityWindow int, triggerThreshold int) *RankUseCase {
	if diversityWindow <= 0 {
		diversityWindow = 3
	}
	if triggerThreshold <= 0 {
		triggerThreshold = 5
	}
	return &RankUseCase{
		repo:             repo,
		index:            index,
		diversityWindow:  diversityWindow,
		triggerThreshold: int64(triggerThreshold),
	}
}

// Rebuild recomputes the ranked sequence and swaps it into the feed
// index. Concurrent calls collapse into a single run. The result is a
// pure function of the summarized article set, so re-running without
// new articles reproduces the sequence exactly; entries whose position
// did not change keep their rankedAt timestamp.
func (uc *RankUseCase) Rebuild(ctx context.Context) error {
	_, err, _ := uc.group.Do("rebuild", func() (any, error) {
		return nil, uc.rebuildOnce(ctx)
	})
	return err
}

func (uc *RankUseCase) rebuildOnce(ctx context.Context) error {
	articles, err := uc.repo.ListSummarized(ctx)
	if err != nil {
		return fmt.Errorf("list summarized articles: %w", err)
	}

	ordered := Order(articles, uc.diversityWindow)

	now := time.Now().UTC()
	previous := uc.index.Snapshot()
	entries := make([]domain.FeedEntry, len(ordered))
	for i, article := range ordered {
		rankedAt := now
		// Unmoved entries keep their timestamp so a no-op rebuild
		// leaves the sequence byte-identical.
		if i < len(previous) && previous[i].Article.ID == article.ID {
			rankedAt = previous[i].RankedAt
		}
		entries[i] = domain.FeedEntry{Article: article, Rank: i + 1, RankedAt: rankedAt}
	}

	uc.index.Swap(entries)
	slog.Info("feed reranked", "entries", len(entries))
	return nil
}

// NoteSummarized counts freshly summarized articles and triggers a
// rebuild once the configured threshold accumulates. The rebuild runs
// detached so summarization never blocks on ranking.
func (uc *RankUseCase) NoteSummarized(ctx context.Context) {
	if uc.newlyDone.Add(1) < uc.triggerThreshold {
		return
	}
	uc.newlyDone.Store(0)

	go func() {
		rebuildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		if err := uc.Rebuild(rebuildCtx); err != nil {
			slog.Error("threshold rerank failed", "error", err)
		}
	}()
}

// Order sorts articles by Kerala score descending, publishedAt
// descending, article ID ascending, then applies the diversity pass:
// when more than window consecutive entries would share a primary
// category, the violating entry is demoted past the next compliant
// candidate rather than dropped.
func Order(articles []domain.Article, window int) []domain.Article {
	sorted := make([]domain.Article, len(articles))
	copy(sorted, articles)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.KeralaScore != b.KeralaScore {
			return a.KeralaScore > b.KeralaScore
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})

	return diversify(sorted, window)
}

func diversify(sorted []domain.Article, window int) []domain.Article {
	out := make([]domain.Article, 0, len(sorted))
	remaining := sorted

	var runCategory domain.Category
	runLength := 0

	for len(remaining) > 0 {
		idx := 0
		if runLength >= window {
			// Demote same-category candidates past the next
			// compliant one. If every candidate shares the
			// category the constraint yields (it is soft).
			idx = -1
			for i, candidate := range remaining {
				if candidate.PrimaryCategory() != runCategory {
					idx = i
					break
				}
			}
			if idx < 0 {
				idx = 0
			}
		}

		picked := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		out = append(out, picked)

		if picked.PrimaryCategory() == runCategory {
			runLength++
		} else {
			runCategory = picked.PrimaryCategory()
			runLength = 1
		}
	}

	return out
}
