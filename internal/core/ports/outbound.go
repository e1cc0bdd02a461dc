package ports

import (
	"context"
	"time"

	"github.com/keralagri/newsreel/internal/core/domain"
)

// ArticleRepository owns canonical article identity and its attached
// classification and summary state. GetByFingerprint is the dedup
// lookup; Create must fail when the fingerprint is already bound to
// another article ID.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Article, error)
	AddSourceRef(ctx context.Context, id string, ref domain.SourceRef, publishedAt time.Time) error
	SaveClassification(ctx context.Context, id string, cls domain.Classification) error
	SaveSummary(ctx context.Context, id string, status domain.SummaryStatus, summary string, summarizedAt time.Time) error
	ListSummarized(ctx context.Context) ([]domain.Article, error)
}

// SaveStore is the per-user bookmark collaborator. The pipeline only
// promises it stable article IDs.
type SaveStore interface {
	Save(ctx context.Context, userID, articleID string) error
	Unsave(ctx context.Context, userID, articleID string) error
	ListSaved(ctx context.Context, userID string) ([]domain.Bookmark, error)
}

// Source adapts one external news origin to the common raw-article
// shape. FetchSince is restartable and returns a finite batch.
type Source interface {
	ID() string
	FetchSince(ctx context.Context, since time.Time) ([]domain.RawArticle, error)
}

// MessageQueue hands classified article IDs to the out-of-band
// summarization worker.
type MessageQueue interface {
	PublishArticleClassified(ctx context.Context, articleID string) error
	SubscribeArticleClassified(ctx context.Context, handler func(context.Context, string) error) error
}

// Summarizer is the external AI summarization capability.
type Summarizer interface {
	Summarize(ctx context.Context, article *domain.Article) (string, error)
}

// SummaryCache stores ready AI responses across restarts so an article
// is never summarized twice.
type SummaryCache interface {
	Get(ctx context.Context, articleID string) (string, bool, error)
	Set(ctx context.Context, articleID, summary string) error
}

// ArticleClassifier assigns categories and the Kerala relevance score.
// Implementations must be deterministic over the article text.
type ArticleClassifier interface {
	Classify(article *domain.Article) domain.Classification
}

// FeedIndex holds the current ranked sequence. Swap replaces the
// sequence atomically; Snapshot returns it in rank order.
type FeedIndex interface {
	Swap(entries []domain.FeedEntry)
	Snapshot() []domain.FeedEntry
}
