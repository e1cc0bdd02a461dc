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

	httpadapter "github.com/keralagri/newsreel/internal/adapters/http"
	"github.com/keralagri/newsreel/internal/bootstrap"
	"github.com/keralagri/newsreel/internal/config"
	"github.com/keralagri/newsreel/internal/observability/logging"
	"github.com/keralagri/newsreel/internal/observability/metrics"
)

const serviceName = "newsreel-api"

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

	// The feed index lives in this process; build it before serving and
	// refresh on a schedule so new summaries reach readers.
	if err := app.RankUC.Rebuild(ctx); err != nil {
		slog.Error("initial feed rank failed", "error", err)
	}
	go rankLoop(ctx, app, cfg.RankInterval)

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(
		app.FeedUC,
		app.Repo,
		app.Saves,
		app.IngestUC,
		httpMetrics,
		serviceName,
		cfg.IngestLookback,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}

func rankLoop(ctx context.Context, app *bootstrap.App, interval time.Duration) {
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
			if err := app.RankUC.Rebuild(ctx); err != nil {
				slog.Error("scheduled feed rank failed", "error", err)
			}
		}
	}
}
