// Package httpadapter exposes the read API: the ranked feed, single
// articles, per-user saved collections, and a manual ingest trigger.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/keralagri/newsreel/internal/core/domain"
	"github.com/keralagri/newsreel/internal/core/ports"
	"github.com/keralagri/newsreel/internal/observability/metrics"
)

type Router struct {
	feed     ports.FeedService
	articles ports.ArticleReader
	saves    ports.SaveStore
	ingestor ports.Ingestor

	metrics        *metrics.HTTPServerMetrics
	service        string
	defaultLimit   int
	ingestLookback time.Duration
}

func NewRouter(
	feed ports.FeedService,
	articles ports.ArticleReader,
	saves ports.SaveStore,
	ingestor ports.Ingestor,
	httpMetrics *metrics.HTTPServerMetrics,
	service string,
	ingestLookback time.Duration,
) *Router {
	if ingestLookback <= 0 {
		ingestLookback = 48 * time.Hour
	}
	return &Router{
		feed:           feed,
		articles:       articles,
		saves:          saves,
		ingestor:       ingestor,
		metrics:        httpMetrics,
		service:        service,
		defaultLimit:   20,
		ingestLookback: ingestLookback,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /v1/feed", rt.getFeed)
	mux.HandleFunc("GET /v1/articles/{id}", rt.getArticle)
	mux.HandleFunc("PUT /v1/users/{userID}/saved/{articleID}", rt.saveArticle)
	mux.HandleFunc("DELETE /v1/users/{userID}/saved/{articleID}", rt.unsaveArticle)
	mux.HandleFunc("GET /v1/users/{userID}/saved", rt.listSaved)
	mux.HandleFunc("POST /v1/ingest/run", rt.runIngest)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type feedResponse struct {
	Entries    []domain.FeedEntry `json:"entries"`
	NextCursor string             `json:"next_cursor"`
}

func (rt *Router) getFeed(w http.ResponseWriter, r *http.Request) {
	limit := rt.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "parse limit", err))
			return
		}
		limit = parsed
	}
	cursor := r.URL.Query().Get("cursor")
	category := r.URL.Query().Get("category")

	entries, next, err := rt.feed.Page(r.Context(), cursor, limit, category)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordFeedPage(rt.service, category, len(entries))
	}
	writeJSON(w, http.StatusOK, feedResponse{Entries: entries, NextCursor: next})
}

func (rt *Router) getArticle(w http.ResponseWriter, r *http.Request) {
	article, err := rt.articles.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (rt *Router) saveArticle(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	articleID := r.PathValue("articleID")

	// Saving references the article; a dangling ID is a client error.
	if _, err := rt.articles.GetByID(r.Context(), articleID); err != nil {
		writeError(w, err)
		return
	}
	if err := rt.saves.Save(r.Context(), userID, articleID); err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordBookmark(rt.service, "save")
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (rt *Router) unsaveArticle(w http.ResponseWriter, r *http.Request) {
	if err := rt.saves.Unsave(r.Context(), r.PathValue("userID"), r.PathValue("articleID")); err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordBookmark(rt.service, "unsave")
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (rt *Router) listSaved(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := rt.saves.ListSaved(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": bookmarks})
}

// runIngest kicks off a source sweep and returns immediately; progress
// is visible through the worker metrics and logs.
func (rt *Router) runIngest(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-rt.ingestLookback)

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Minute)
		defer cancel()
		if err := rt.ingestor.IngestSince(ctx, since); err != nil {
			slog.Error("manual ingest sweep failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
