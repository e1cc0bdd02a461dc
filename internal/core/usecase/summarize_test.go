package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/keralagri/newsreel/internal/core/domain"
)

func pendingArticle(id string) domain.Article {
	return domain.Article{
		ID:            id,
		Fingerprint:   "fp-" + id,
		Title:         "Kerala paddy subsidy",
		Body:          "The state government announced a subsidy for paddy farmers across all districts.",
		PublishedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		SummaryStatus: domain.SummaryPending,
	}
}

func TestSummarizeStoresReadySummary(t *testing.T) {
	repo := newFakeArticleRepo()
	repo.put(pendingArticle("a1"))
	summarizer := &fakeSummarizer{summary: "Farmers get support."}
	cache := newFakeCache()
	ranker := &fakeRanker{}

	uc := NewSummarizeUseCase(repo, summarizer, cache, ranker, 0)
	if err := uc.SummarizeByID(context.Background(), "a1"); err != nil {
		t.Fatalf("SummarizeByID: %v", err)
	}

	article, _ := repo.GetByID(context.Background(), "a1")
	if article.SummaryStatus != domain.SummaryReady {
		t.Fatalf("status = %s, want ready", article.SummaryStatus)
	}
	if article.Summary != "Farmers get support." {
		t.Fatalf("summary = %q", article.Summary)
	}
	if cached, ok, _ := cache.Get(context.Background(), "a1"); !ok || cached != article.Summary {
		t.Fatalf("summary not cached: %q %v", cached, ok)
	}
	if ranker.notedCount() != 1 {
		t.Fatalf("ranker noted %d times, want 1", ranker.notedCount())
	}
}

func TestSummarizeCacheHitSkipsModelCall(t *testing.T) {
	repo := newFakeArticleRepo()
	repo.put(pendingArticle("a1"))
	summarizer := &fakeSummarizer{summary: "fresh"}
	cache := newFakeCache()
	_ = cache.Set(context.Background(), "a1", "cached summary")

	uc := NewSummarizeUseCase(repo, summarizer, cache, &fakeRanker{}, 0)
	if err := uc.SummarizeByID(context.Background(), "a1"); err != nil {
		t.Fatalf("SummarizeByID: %v", err)
	}

	if summarizer.callCount() != 0 {
		t.Fatalf("model called %d times despite cache hit", summarizer.callCount())
	}
	article, _ := repo.GetByID(context.Background(), "a1")
	if article.Summary != "cached summary" || article.SummaryStatus != domain.SummaryReady {
		t.Fatalf("article = %+v, want ready cached summary", article)
	}
}

func TestSummarizeReadyArticleIsNoop(t *testing.T) {
	repo := newFakeArticleRepo()
	article := pendingArticle("a1")
	article.SummaryStatus = domain.SummaryReady
	article.Summary = "done"
	repo.put(article)
	summarizer := &fakeSummarizer{summary: "fresh"}

	uc := NewSummarizeUseCase(repo, summarizer, newFakeCache(), &fakeRanker{}, 0)
	if err := uc.SummarizeByID(context.Background(), "a1"); err != nil {
		t.Fatalf("SummarizeByID: %v", err)
	}
	if summarizer.callCount() != 0 {
		t.Fatalf("model called for already summarized article")
	}
}

func TestSummarizeConcurrentCallsShareOneModelCall(t *testing.T) {
	repo := newFakeArticleRepo()
	repo.put(pendingArticle("a1"))
	summarizer := &fakeSummarizer{summary: "shared", delay: 50 * time.Millisecond}

	uc := NewSummarizeUseCase(repo, summarizer, newFakeCache(), &fakeRanker{}, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = uc.SummarizeByID(context.Background(), "a1")
		}()
	}
	wg.Wait()

	if summarizer.callCount() != 1 {
		t.Fatalf("model called %d times, want exactly 1", summarizer.callCount())
	}
}

func TestSummarizeFailureStoresFallback(t *testing.T) {
	repo := newFakeArticleRepo()
	repo.put(pendingArticle("a1"))
	summarizer := &fakeSummarizer{err: domain.WrapError(domain.ErrPermanent, "gemini generate", errors.New("quota"))}
	ranker := &fakeRanker{}

	uc := NewSummarizeUseCase(repo, summarizer, newFakeCache(), ranker, 40)
	if err := uc.SummarizeByID(context.Background(), "a1"); err != nil {
		t.Fatalf("SummarizeByID: %v", err)
	}

	article, _ := repo.GetByID(context.Background(), "a1")
	if article.SummaryStatus != domain.SummaryFailed {
		t.Fatalf("status = %s, want failed", article.SummaryStatus)
	}
	if article.Summary == "" || !strings.HasPrefix(article.Body, strings.TrimSuffix(article.Summary, "…")) {
		t.Fatalf("fallback %q is not a body excerpt", article.Summary)
	}
	if ranker.notedCount() != 1 {
		t.Fatalf("failed article not announced to ranker")
	}
}

func TestSummarizeCancellationLeavesArticlePending(t *testing.T) {
	repo := newFakeArticleRepo()
	repo.put(pendingArticle("a1"))
	summarizer := &fakeSummarizer{summary: "late", delay: time.Second}
	ranker := &fakeRanker{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	uc := NewSummarizeUseCase(repo, summarizer, newFakeCache(), ranker, 0)
	if err := uc.SummarizeByID(ctx, "a1"); err == nil {
		t.Fatal("expected error after cancellation")
	}

	// The shutdown says nothing about the article; the pending sweep
	// must find it again instead of serving a fallback excerpt.
	article, _ := repo.GetByID(context.Background(), "a1")
	if article.SummaryStatus != domain.SummaryPending {
		t.Fatalf("status = %s, want pending", article.SummaryStatus)
	}
	if article.Summary != "" {
		t.Fatalf("summary = %q, want empty", article.Summary)
	}
	if ranker.notedCount() != 0 {
		t.Fatal("interrupted summarization announced to ranker")
	}
}

func TestFallbackSummary(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{
			name:  "short body unchanged",
			body:  "Short update.",
			limit: 100,
			want:  "Short update.",
		},
		{
			name:  "whitespace collapsed",
			body:  "Short\n\n  update.",
			limit: 100,
			want:  "Short update.",
		},
		{
			name:  "cut on word boundary",
			body:  "alpha beta gamma delta",
			limit: 12,
			want:  "alpha beta…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackSummary(tt.body, tt.limit); got != tt.want {
				t.Errorf("FallbackSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackSummaryDeterministic(t *testing.T) {
	body := strings.Repeat("kerala agriculture news ", 50)
	first := FallbackSummary(body, 400)
	for i := 0; i < 5; i++ {
		if FallbackSummary(body, 400) != first {
			t.Fatal("fallback summary not deterministic")
		}
	}
}
