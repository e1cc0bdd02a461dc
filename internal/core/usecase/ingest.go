package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/core/ports"
)

// IngestUseCase turns raw source output into canonical articles:
// validation, fingerprint dedup, one-time classification, and handoff
// to the summarization queue.
type IngestUseCase struct {
	repo       ports.ArticleRepository
	classifier ports.ArticleClassifier
	queue      ports.MessageQueue
	sources    []ports.Source

	// OnOutcome, when set, observes every successful ingest during a
	// sweep. Set it before the first sweep starts.
	OnOutcome func(sourceID string, outcome ports.IngestOutcome)

	// locks serializes writers per fingerprint while unrelated
	// fingerprints proceed in parallel. Entries are reference counted
	// and removed once the last holder unlocks.
	mu    sync.Mutex
	locks map[string]*fingerprintLock
}

type fingerprintLock struct {
	mu   sync.Mutex
	refs int
}

func NewIngestUseCase(
	repo ports.ArticleRepository,
	classifier ports.ArticleClassifier,
	queue ports.MessageQueue,
	sources []ports.Source,
) *IngestUseCase {
	return &IngestUseCase{
		repo:       repo,
		classifier: classifier,
		queue:      queue,
		sources:    sources,
		locks:      make(map[string]*fingerprintLock),
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, raw domain.RawArticle) (*domain.Article, ports.IngestOutcome, error) {
	if err := validateRaw(raw); err != nil {
		return nil, "", err
	}

	fingerprint := domain.Fingerprint(raw.Title, raw.Body)

	unlock := uc.lockFingerprint(fingerprint)
	defer unlock()

	existing, err := uc.repo.GetByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		return uc.mergeSighting(ctx, existing, raw)
	case domain.IsKind(err, domain.ErrArticleNotFound):
		return uc.createCanonical(ctx, fingerprint, raw)
	default:
		return nil, "", fmt.Errorf("lookup fingerprint: %w", err)
	}
}

// mergeSighting folds a duplicate into the existing canonical article.
// The article ID, title and body never change; publishedAt only moves
// earlier.
func (uc *IngestUseCase) mergeSighting(ctx context.Context, article *domain.Article, raw domain.RawArticle) (*domain.Article, ports.IngestOutcome, error) {
	ref := domain.SourceRef{SourceID: raw.SourceID, ExternalID: raw.ExternalID}
	publishedAt := article.PublishedAt
	if !raw.PublishedAt.IsZero() && raw.PublishedAt.Before(publishedAt) {
		publishedAt = raw.PublishedAt
	}

	if article.HasSourceRef(ref.SourceID, ref.ExternalID) && publishedAt.Equal(article.PublishedAt) {
		return article, ports.OutcomeUnchanged, nil
	}

	if err := uc.repo.AddSourceRef(ctx, article.ID, ref, publishedAt); err != nil {
		return nil, "", fmt.Errorf("merge source ref: %w", err)
	}
	if !article.HasSourceRef(ref.SourceID, ref.ExternalID) {
		article.SourceRefs = append(article.SourceRefs, ref)
	}
	article.PublishedAt = publishedAt
	return article, ports.OutcomeMerged, nil
}

func (uc *IngestUseCase) createCanonical(ctx context.Context, fingerprint string, raw domain.RawArticle) (*domain.Article, ports.IngestOutcome, error) {
	now := time.Now().UTC()
	article := &domain.Article{
		ID:            uuid.NewString(),
		Fingerprint:   fingerprint,
		Title:         raw.Title,
		Body:          raw.Body,
		URL:           raw.URL,
		PublishedAt:   raw.PublishedAt,
		SourceRefs:    []domain.SourceRef{{SourceID: raw.SourceID, ExternalID: raw.ExternalID}},
		SummaryStatus: domain.SummaryPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, article); err != nil {
		if domain.IsKind(err, domain.ErrConsistency) {
			// Another process can win the insert between our lookup and
			// create; the store kept a single canonical row, so fold
			// this sighting into it. Only an insert refused while the
			// fingerprint resolves to nothing is a real violation, and
			// that one is fatal.
			existing, lookupErr := uc.repo.GetByFingerprint(ctx, fingerprint)
			if lookupErr == nil {
				return uc.mergeSighting(ctx, existing, raw)
			}
			return nil, "", err
		}
		return nil, "", fmt.Errorf("create canonical article: %w", err)
	}

	cls := uc.classifier.Classify(article)
	if err := uc.repo.SaveClassification(ctx, article.ID, cls); err != nil {
		return nil, "", fmt.Errorf("save classification: %w", err)
	}
	article.Categories = cls.Categories
	article.KeralaScore = cls.KeralaScore

	if err := uc.queue.PublishArticleClassified(ctx, article.ID); err != nil {
		// The worker also sweeps pending articles, so a publish
		// failure delays summarization instead of losing it.
		slog.Warn("publish classified article", "article_id", article.ID, "error", err)
	}

	return article, ports.OutcomeCreated, nil
}

// IngestSince drains every registered source concurrently. A failing
// source yields fewer articles, never a failed run; a consistency
// violation aborts the whole sweep.
func (uc *IngestUseCase) IngestSince(ctx context.Context, since time.Time) error {
	var wg sync.WaitGroup
	fatal := make(chan error, len(uc.sources))

	for _, source := range uc.sources {
		wg.Add(1)
		go func(src ports.Source) {
			defer wg.Done()
			if err := uc.drainSource(ctx, src, since); err != nil {
				fatal <- err
			}
		}(source)
	}
	wg.Wait()
	close(fatal)

	if err := <-fatal; err != nil {
		return err
	}
	return nil
}

func (uc *IngestUseCase) drainSource(ctx context.Context, source ports.Source, since time.Time) error {
	batch, err := source.FetchSince(ctx, since)
	if err != nil {
		slog.Warn("source fetch failed", "source_id", source.ID(), "error", err)
		return nil
	}

	for _, raw := range batch {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, outcome, err := uc.Ingest(ctx, raw)
		if err != nil {
			if domain.IsKind(err, domain.ErrConsistency) {
				return err
			}
			slog.Warn("ingest article failed",
				"source_id", raw.SourceID,
				"external_id", raw.ExternalID,
				"error", err,
			)
			continue
		}
		if uc.OnOutcome != nil {
			uc.OnOutcome(raw.SourceID, outcome)
		}
		slog.Debug("ingested article",
			"source_id", raw.SourceID,
			"external_id", raw.ExternalID,
			"outcome", string(outcome),
		)
	}
	return nil
}

func (uc *IngestUseCase) lockFingerprint(fingerprint string) func() {
	uc.mu.Lock()
	lock, ok := uc.locks[fingerprint]
	if !ok {
		lock = &fingerprintLock{}
		uc.locks[fingerprint] = lock
	}
	lock.refs++
	uc.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		uc.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(uc.locks, fingerprint)
		}
		uc.mu.Unlock()
	}
}

func validateRaw(raw domain.RawArticle) error {
	if strings.TrimSpace(raw.Title) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate raw article", errors.New("missing title"))
	}
	if strings.TrimSpace(raw.Body) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate raw article", errors.New("missing body"))
	}
	if raw.SourceID == "" || raw.ExternalID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate raw article", errors.New("missing source identity"))
	}
	return nil
}
