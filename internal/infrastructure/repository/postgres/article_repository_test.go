package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/keralagri/newsreel/internal/core/domain"
)

var articleColumns = []string{
	"id", "fingerprint", "title", "body", "url", "published_at",
	"source_refs", "categories", "kerala_score", "summary",
	"summary_status", "summarized_at", "created_at", "updated_at",
}

type uniqueViolationErr struct{}

func (uniqueViolationErr) Error() string    { return "duplicate key value violates unique constraint" }
func (uniqueViolationErr) SQLState() string { return "23505" }

func testArticle() *domain.Article {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return &domain.Article{
		ID:            "art-1",
		Fingerprint:   "fp-1",
		Title:         "Kerala paddy subsidy",
		Body:          "The state announced a subsidy.",
		URL:           "https://example.org/a",
		PublishedAt:   now,
		SourceRefs:    []domain.SourceRef{{SourceID: "pib-agri", ExternalID: "item-1"}},
		SummaryStatus: domain.SummaryPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreateInsertsArticle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewArticleRepository(db)
	if err := repo.Create(context.Background(), testArticle()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateMapsUniqueViolationToConsistency(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnError(uniqueViolationErr{})

	repo := NewArticleRepository(db)
	err = repo.Create(context.Background(), testArticle())
	if !domain.IsKind(err, domain.ErrConsistency) {
		t.Fatalf("err = %v, want ErrConsistency", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM articles").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(articleColumns))

	repo := NewArticleRepository(db)
	_, err = repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrArticleNotFound) {
		t.Fatalf("err = %v, want ErrArticleNotFound", err)
	}
}

func TestGetByFingerprintScansArticle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(articleColumns).AddRow(
		"art-1", "fp-1", "Kerala paddy subsidy", "Body text", "https://example.org/a", now,
		[]byte(`[{"source_id":"pib-agri","external_id":"item-1"}]`),
		[]byte(`["schemes"]`), 0.7, "A summary.", "ready", now, now, now,
	)
	mock.ExpectQuery("SELECT .+ FROM articles").
		WithArgs("fp-1").
		WillReturnRows(rows)

	repo := NewArticleRepository(db)
	article, err := repo.GetByFingerprint(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if article.ID != "art-1" || article.SummaryStatus != domain.SummaryReady {
		t.Fatalf("article = %+v", article)
	}
	if len(article.SourceRefs) != 1 || article.SourceRefs[0].SourceID != "pib-agri" {
		t.Fatalf("source refs = %v", article.SourceRefs)
	}
	if len(article.Categories) != 1 || article.Categories[0] != domain.CategorySchemes {
		t.Fatalf("categories = %v", article.Categories)
	}
}

func TestSaveSummaryMissingArticle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE articles").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewArticleRepository(db)
	err = repo.SaveSummary(context.Background(), "missing", domain.SummaryReady, "text", time.Now())
	if !domain.IsKind(err, domain.ErrArticleNotFound) {
		t.Fatalf("err = %v, want ErrArticleNotFound", err)
	}
}

func TestListSummarizedFiltersByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(articleColumns).
		AddRow("art-1", "fp-1", "t1", "b1", "", now, []byte(`[]`), []byte(`["market"]`), 0.5, "s1", "ready", now, now, now).
		AddRow("art-2", "fp-2", "t2", "b2", "", now, []byte(`[]`), []byte(`["general"]`), 0.1, "s2", "failed", now, now, now)
	mock.ExpectQuery("SELECT .+ FROM articles").
		WithArgs("ready", "failed").
		WillReturnRows(rows)

	repo := NewArticleRepository(db)
	articles, err := repo.ListSummarized(context.Background())
	if err != nil {
		t.Fatalf("ListSummarized: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
}

func TestListPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM articles").
		WithArgs("pending", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("art-1").AddRow("art-2"))

	repo := NewArticleRepository(db)
	ids, err := repo.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(ids) != 2 || ids[0] != "art-1" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(uniqueViolationErr{}) {
		t.Error("sqlstate 23505 not detected")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Error("plain error misdetected as unique violation")
	}
}
