package usecase

import (
	"context"
	"fmt"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/core/ports"
)

// FeedUseCase resolves cursor-paginated reads over the ranked
// sequence. Reads are lock-free against a snapshot, so pages stay
// stable while ingestion extends the feed.
type FeedUseCase struct {
	index    ports.FeedIndex
	maxLimit int
}

func NewFeedUseCase(index ports.FeedIndex, maxLimit int) *FeedUseCase {
	if maxLimit <= 0 {
		maxLimit = 50
	}
	return &FeedUseCase{index: index, maxLimit: maxLimit}
}

func (uc *FeedUseCase) MaxLimit() int {
	return uc.maxLimit
}

// Page returns up to limit entries strictly after the cursor position,
// with the optional category filter applied before pagination. End of
// feed is an empty page whose next cursor equals the request cursor,
// safe to re-poll for auto-scroll.
func (uc *FeedUseCase) Page(_ context.Context, cursorToken string, limit int, category string) ([]domain.FeedEntry, string, error) {
	if limit <= 0 || limit > uc.maxLimit {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "validate page limit",
			fmt.Errorf("limit %d outside 1..%d", limit, uc.maxLimit))
	}

	var filter domain.Category
	if category != "" {
		filter = domain.Category(category)
		if !domain.ValidCategory(filter) {
			return nil, "", domain.WrapError(domain.ErrInvalidInput, "validate category filter",
				fmt.Errorf("unknown category %q", category))
		}
	}

	cursor, err := domain.DecodeCursor(cursorToken)
	if err != nil {
		return nil, "", err
	}

	snapshot := uc.index.Snapshot()
	page := make([]domain.FeedEntry, 0, limit)
	for _, entry := range snapshot[resumeIndex(snapshot, cursor):] {
		if filter != "" && !hasCategory(entry.Article, filter) {
			continue
		}
		page = append(page, entry)
		if len(page) == limit {
			break
		}
	}

	if len(page) == 0 {
		return page, cursorToken, nil
	}

	last := page[len(page)-1]
	next := domain.Cursor{Rank: last.Rank, ArticleID: last.Article.ID}
	return page, next.Encode(), nil
}

// resumeIndex locates the first entry after the cursor. The cursor's
// article ID anchors the position, so insertions ahead of a mid-scroll
// reader shift ranks without repeating or skipping delivered entries.
// If the anchor vanished (fresh index after a restart) the encoded rank
// is the fallback.
func resumeIndex(snapshot []domain.FeedEntry, cursor domain.Cursor) int {
	if cursor.Zero() {
		return 0
	}
	for i, entry := range snapshot {
		if entry.Article.ID == cursor.ArticleID {
			return i + 1
		}
	}
	for i, entry := range snapshot {
		if cursor.Before(entry) {
			return i
		}
	}
	return len(snapshot)
}

func hasCategory(article domain.Article, category domain.Category) bool {
	for _, c := range article.Categories {
		if c == category {
			return true
		}
	}
	return false
}
