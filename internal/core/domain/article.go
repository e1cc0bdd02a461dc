package domain

import "time"

type SummaryStatus string

const (
	SummaryPending SummaryStatus = "pending"
	SummaryReady   SummaryStatus = "ready"
	SummaryFailed  SummaryStatus = "failed"
)

type Category string

const (
	CategorySchemes    Category = "schemes"
	CategoryMarket     Category = "market"
	CategoryTechnology Category = "technology"
	CategoryWeather    Category = "weather"
	CategoryGeneral    Category = "general"
)

// Categories lists every category the classifier may emit.
var Categories = []Category{
	CategorySchemes,
	CategoryMarket,
	CategoryTechnology,
	CategoryWeather,
	CategoryGeneral,
}

func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// RawArticle is the normalized output of a source adapter. Identity is
// (SourceID, ExternalID); the struct is immutable once fetched.
type RawArticle struct {
	SourceID    string    `json:"source_id"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// SourceRef records one sighting of a canonical article at a source.
type SourceRef struct {
	SourceID   string `json:"source_id"`
	ExternalID string `json:"external_id"`
}

// Article is the canonical, deduplicated unit the pipeline operates on.
// ID is assigned at first sighting and never reused; Title and Body are
// frozen from the first sighting, PublishedAt is the earliest across
// duplicates. Classification and summary fields are one-time attachments
// owned by the classifier and the summarizer gateway respectively.
type Article struct {
	ID          string      `json:"id"`
	Fingerprint string      `json:"fingerprint"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	URL         string      `json:"url"`
	PublishedAt time.Time   `json:"published_at"`
	SourceRefs  []SourceRef `json:"source_refs"`

	Categories  []Category `json:"categories,omitempty"`
	KeralaScore float64    `json:"kerala_score"`

	Summary       string        `json:"summary,omitempty"`
	SummaryStatus SummaryStatus `json:"summary_status"`
	SummarizedAt  time.Time     `json:"summarized_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSourceRef reports whether the article already records a sighting
// from the given source identity.
func (a *Article) HasSourceRef(sourceID, externalID string) bool {
	for _, ref := range a.SourceRefs {
		if ref.SourceID == sourceID && ref.ExternalID == externalID {
			return true
		}
	}
	return false
}

// PrimaryCategory returns the first assigned category, or general when
// the article has not been classified yet.
func (a *Article) PrimaryCategory() Category {
	if len(a.Categories) == 0 {
		return CategoryGeneral
	}
	return a.Categories[0]
}

// Classification is the deterministic rule-engine output attached to a
// canonical article exactly once.
type Classification struct {
	Categories  []Category `json:"categories"`
	KeralaScore float64    `json:"kerala_score"`
}

// FeedEntry is one ranked, summarized article as delivered to the
// scrolling client. Rank is recomputed on every rebuild; the article ID
// stays stable across rebuilds.
type FeedEntry struct {
	Article  Article   `json:"article"`
	Rank     int       `json:"rank"`
	RankedAt time.Time `json:"ranked_at"`
}

// Bookmark is a per-user save of a canonical article. The pipeline only
// guarantees article ID stability to this record; it never mutates it.
type Bookmark struct {
	UserID    string    `json:"user_id"`
	ArticleID string    `json:"article_id"`
	SavedAt   time.Time `json:"saved_at"`
}
