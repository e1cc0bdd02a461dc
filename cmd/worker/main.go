package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/keralagri/newsreel/internal/bootstrap"
	"github.com/keralagri/newsreel/internal/config"
	"github.com/keralagri/newsreel/internal/core/ports"
	"github.com/keralagri/newsreel/internal/observability/logging"
	"github.com/keralagri/newsreel/internal/observability/metrics"
)

const serviceName = "newsreel-worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.IngestUC.OnOutcome = func(sourceID string, outcome ports.IngestOutcome) {
		workerMetrics.RecordIngest(serviceName, sourceID, string(outcome))
	}
	go serveMetrics(ctx, workerMetrics, cfg.WorkerMetricsPort)

	go ingestLoop(ctx, app, cfg)
	go pendingSweepLoop(ctx, app, cfg)
	go rankLoop(ctx, app, cfg.RankInterval, workerMetrics)

	slog.Info("worker consuming classified articles")
	err = app.Queue.SubscribeArticleClassified(ctx, func(handlerCtx context.Context, articleID string) error {
		return summarizeOne(handlerCtx, app, workerMetrics, articleID)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func summarizeOne(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, articleID string) error {
	if article, err := app.Repo.GetByID(ctx, articleID); err == nil {
		m.ObserveQueueLag(serviceName, time.Since(article.CreatedAt))
	}

	m.StartSummary()
	start := time.Now()

	processCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	err := app.SummarizeUC.SummarizeByID(processCtx, articleID)

	status := "ready"
	if err != nil {
		status = "error"
	}
	m.FinishSummary(serviceName, status, time.Since(start))
	return err
}

// ingestLoop sweeps every registered source on a schedule. The first
// sweep runs immediately so a fresh deployment has content.
func ingestLoop(ctx context.Context, app *bootstrap.App, cfg config.Config) {
	runSweep := func() {
		since := time.Now().UTC().Add(-cfg.IngestLookback)
		if err := app.IngestUC.IngestSince(ctx, since); err != nil {
			slog.Error("ingest sweep failed", "error", err)
		}
	}
	runSweep()

	ticker := time.NewTicker(cfg.IngestInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runSweep()
		}
	}
}

// pendingSweepLoop re-queues articles whose classified event never
// arrived, so a lost publish only delays summarization.
func pendingSweepLoop(ctx context.Context, app *bootstrap.App, cfg config.Config) {
	ticker := time.NewTicker(cfg.IngestInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := app.Repo.ListPending(ctx, cfg.PendingSweepLimit)
			if err != nil {
				slog.Error("pending sweep query failed", "error", err)
				continue
			}
			for _, id := range ids {
				if err := app.SummarizeUC.SummarizeByID(ctx, id); err != nil {
					slog.Warn("pending sweep summarize failed", "article_id", id, "error", err)
				}
			}
		}
	}
}

func rankLoop(ctx context.Context, app *bootstrap.App, interval time.Duration, m *metrics.WorkerMetrics) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := app.RankUC.Rebuild(ctx); err != nil {
				slog.Error("scheduled feed rank failed", "error", err)
				continue
			}
			m.ObserveRank(time.Since(start), app.FeedEntries())
		}
	}
}

func serveMetrics(ctx context.Context, m *metrics.WorkerMetrics, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("worker metrics listening", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("worker metrics server error", "error", err)
	}
}
