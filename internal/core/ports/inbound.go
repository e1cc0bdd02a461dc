package ports

import (
	"context"
	"time"

	"github.com/keralagri/newsreel/internal/core/domain"
)

// IngestOutcome describes what a single raw article did to the store.
type IngestOutcome string

const (
	OutcomeCreated   IngestOutcome = "created"
	OutcomeMerged    IngestOutcome = "merged"
	OutcomeUnchanged IngestOutcome = "unchanged"
)

// Ingestor is the inbound contract for pulling sources through
// deduplication and classification.
type Ingestor interface {
	Ingest(ctx context.Context, raw domain.RawArticle) (*domain.Article, IngestOutcome, error)
	IngestSince(ctx context.Context, since time.Time) error
}

// SummaryProcessor is the inbound contract for asynchronous
// summarization of a classified article.
type SummaryProcessor interface {
	SummarizeByID(ctx context.Context, articleID string) error
}

// FeedRanker rebuilds the ranked feed sequence.
type FeedRanker interface {
	Rebuild(ctx context.Context) error
	NoteSummarized(ctx context.Context)
}

// FeedService serves cursor-paginated reads over the ranked feed.
type FeedService interface {
	Page(ctx context.Context, cursorToken string, limit int, category string) ([]domain.FeedEntry, string, error)
}

// ArticleReader is the inbound read model for single articles.
type ArticleReader interface {
	GetByID(ctx context.Context, id string) (*domain.Article, error)
}
