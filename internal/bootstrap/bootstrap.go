// Package bootstrap wires infrastructure and use cases into a running
// application for both binaries.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/keralagri/newsreel/internal/classify"
	"github.com/keralagri/newsreel/internal/config"
	"github.com/keralagri/newsreel/internal/core/ports"
	"github.com/keralagri/newsreel/internal/core/usecase"
	"github.com/keralagri/newsreel/internal/infrastructure/cache/redis"
	"github.com/keralagri/newsreel/internal/infrastructure/feedindex"
	"github.com/keralagri/newsreel/internal/infrastructure/llm/gemini"
	"github.com/keralagri/newsreel/internal/infrastructure/queue/nats"
	"github.com/keralagri/newsreel/internal/infrastructure/repository/postgres"
	"github.com/keralagri/newsreel/internal/infrastructure/resilience"
	"github.com/keralagri/newsreel/internal/infrastructure/source/agmarknet"
	"github.com/keralagri/newsreel/internal/infrastructure/source/rss"
)

type App struct {
	Config config.Config

	Queue       ports.MessageQueue
	Index       *feedindex.Index
	Repo        *postgres.ArticleRepository
	Saves       ports.SaveStore
	IngestUC    *usecase.IngestUseCase
	SummarizeUC ports.SummaryProcessor
	RankUC      ports.FeedRanker
	FeedUC      ports.FeedService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewArticleRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	saves := postgres.NewSaveStore(db)

	runner := resilience.NewRunner(resilience.Settings{
		MaxAttempts: cfg.AIRetryAttempts,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Options{Runner: runner})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	registry, err := config.LoadSources(cfg.SourcesConfig)
	if err != nil {
		return nil, fmt.Errorf("load source registry: %w", err)
	}
	sources := buildSources(registry)

	classifier := classify.New(classify.Weights{
		PlaceName:    cfg.KeralaPlaceWeight,
		SourceOrigin: cfg.KeralaSourceWeight,
		AgriKeyword:  cfg.KeralaKeywordWeight,
	}, registry.KeralaSourceIDs())

	summaryCache, err := redis.NewSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SummaryTTL)
	if err != nil {
		return nil, fmt.Errorf("init summary cache: %w", err)
	}

	summarizer, err := gemini.NewSummarizer(ctx, cfg.GeminiAPIKey, gemini.Options{
		Model:             cfg.GeminiModel,
		RequestsPerMinute: cfg.GeminiRPM,
		AttemptTimeout:    cfg.AITimeout,
		Runner:            runner,
	})
	if err != nil {
		return nil, fmt.Errorf("init summarizer: %w", err)
	}

	index := feedindex.New()
	rankUC := usecase.NewRankUseCase(repo, index, cfg.DiversityWindow, cfg.RankTriggerThreshold)
	ingestUC := usecase.NewIngestUseCase(repo, classifier, queue, sources)
	summarizeUC := usecase.NewSummarizeUseCase(repo, summarizer, summaryCache, rankUC, cfg.FallbackRunes)
	feedUC := usecase.NewFeedUseCase(index, cfg.FeedMaxLimit)

	return &App{
		Config: cfg,

		Queue:       queue,
		Index:       index,
		Repo:        repo,
		Saves:       saves,
		IngestUC:    ingestUC,
		SummarizeUC: summarizeUC,
		RankUC:      rankUC,
		FeedUC:      feedUC,

		closeFn: func() {
			queue.Close()
			_ = summaryCache.Close()
			_ = db.Close()
		},
	}, nil
}

func buildSources(registry config.SourceRegistry) []ports.Source {
	client := &http.Client{Timeout: 15 * time.Second}

	sources := make([]ports.Source, 0, len(registry.Sources))
	for _, spec := range registry.Sources {
		switch spec.Kind {
		case "agmarknet":
			sources = append(sources, agmarknet.New(spec.ID, spec.URL, client))
		default:
			sources = append(sources, rss.New(spec.ID, spec.URL, client))
		}
	}
	return sources
}

// FeedEntries reports the size of the current ranked feed.
func (a *App) FeedEntries() int {
	return a.Index.Len()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
