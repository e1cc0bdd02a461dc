package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/core/ports"
)

type fakeArticleRepo struct {
	mu            sync.Mutex
	byID          map[string]*domain.Article
	byFingerprint map[string]string

	createErr error
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		byID:          make(map[string]*domain.Article),
		byFingerprint: make(map[string]string),
	}
}

func (r *fakeArticleRepo) Create(_ context.Context, article *domain.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.byFingerprint[article.Fingerprint]; exists {
		return domain.WrapError(domain.ErrConsistency, "insert article", errors.New("fingerprint taken"))
	}
	clone := *article
	r.byID[article.ID] = &clone
	r.byFingerprint[article.Fingerprint] = article.ID
	return nil
}

func (r *fakeArticleRepo) GetByID(_ context.Context, id string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrArticleNotFound, "get article", errors.New(id))
	}
	clone := *article
	return &clone, nil
}

func (r *fakeArticleRepo) GetByFingerprint(_ context.Context, fingerprint string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byFingerprint[fingerprint]
	if !ok {
		return nil, domain.WrapError(domain.ErrArticleNotFound, "get article", errors.New(fingerprint))
	}
	clone := *r.byID[id]
	return &clone, nil
}

func (r *fakeArticleRepo) AddSourceRef(_ context.Context, id string, ref domain.SourceRef, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.byID[id]
	if !ok {
		return domain.WrapError(domain.ErrArticleNotFound, "update article", errors.New(id))
	}
	if !article.HasSourceRef(ref.SourceID, ref.ExternalID) {
		article.SourceRefs = append(article.SourceRefs, ref)
	}
	article.PublishedAt = publishedAt
	return nil
}

func (r *fakeArticleRepo) SaveClassification(_ context.Context, id string, cls domain.Classification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.byID[id]
	if !ok {
		return domain.WrapError(domain.ErrArticleNotFound, "update article", errors.New(id))
	}
	article.Categories = cls.Categories
	article.KeralaScore = cls.KeralaScore
	return nil
}

func (r *fakeArticleRepo) SaveSummary(_ context.Context, id string, status domain.SummaryStatus, summary string, summarizedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.byID[id]
	if !ok {
		return domain.WrapError(domain.ErrArticleNotFound, "update article", errors.New(id))
	}
	article.SummaryStatus = status
	article.Summary = summary
	article.SummarizedAt = summarizedAt
	return nil
}

func (r *fakeArticleRepo) ListSummarized(_ context.Context) ([]domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Article
	for _, article := range r.byID {
		if article.SummaryStatus == domain.SummaryReady || article.SummaryStatus == domain.SummaryFailed {
			out = append(out, *article)
		}
	}
	return out, nil
}

func (r *fakeArticleRepo) put(article domain.Article) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := article
	r.byID[article.ID] = &clone
	r.byFingerprint[article.Fingerprint] = article.ID
}

type staticClassifier struct {
	cls domain.Classification
}

func (c staticClassifier) Classify(*domain.Article) domain.Classification {
	return c.cls
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (q *fakeQueue) PublishArticleClassified(_ context.Context, articleID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, articleID)
	return nil
}

func (q *fakeQueue) SubscribeArticleClassified(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeSummarizer struct {
	mu      sync.Mutex
	calls   int
	delay   time.Duration
	summary string
	err     error
}

func (s *fakeSummarizer) Summarize(ctx context.Context, _ *domain.Article) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

func (s *fakeSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, articleID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	summary, ok := c.entries[articleID]
	return summary, ok, nil
}

func (c *fakeCache) Set(_ context.Context, articleID, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[articleID] = summary
	return nil
}

type fakeRanker struct {
	mu       sync.Mutex
	noted    int
	rebuilds int
}

func (r *fakeRanker) Rebuild(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuilds++
	return nil
}

func (r *fakeRanker) NoteSummarized(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noted++
}

func (r *fakeRanker) notedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.noted
}

type fakeSource struct {
	id       string
	articles []domain.RawArticle
	err      error
}

func (s *fakeSource) ID() string { return s.id }

func (s *fakeSource) FetchSince(context.Context, time.Time) ([]domain.RawArticle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.articles, nil
}

// memoryIndex is a minimal ports.FeedIndex for rank and feed tests.
type memoryIndex struct {
	mu      sync.RWMutex
	entries []domain.FeedEntry
}

func (ix *memoryIndex) Swap(entries []domain.FeedEntry) {
	ix.mu.Lock()
	ix.entries = entries
	ix.mu.Unlock()
}

func (ix *memoryIndex) Snapshot() []domain.FeedEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.entries
}

var _ ports.ArticleRepository = (*fakeArticleRepo)(nil)
var _ ports.ArticleClassifier = staticClassifier{}
var _ ports.MessageQueue = (*fakeQueue)(nil)
var _ ports.Summarizer = (*fakeSummarizer)(nil)
var _ ports.SummaryCache = (*fakeCache)(nil)
var _ ports.FeedRanker = (*fakeRanker)(nil)
var _ ports.Source = (*fakeSource)(nil)
var _ ports.FeedIndex = (*memoryIndex)(nil)
