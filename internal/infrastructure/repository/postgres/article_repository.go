package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/keralagri/newsreel/internal/core/domain"
)

// ArticleRepository persists canonical articles. The unique index on
// fingerprint is what enforces "one canonical article per fingerprint";
// a violated insert surfaces as a consistency error instead of a second
// article ID.
type ArticleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ArticleRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ NOT NULL,
	source_refs JSONB NOT NULL DEFAULT '[]'::jsonb,
	categories JSONB NOT NULL DEFAULT '[]'::jsonb,
	kerala_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	summary TEXT NOT NULL DEFAULT '',
	summary_status TEXT NOT NULL,
	summarized_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_summary_status ON articles(summary_status);
CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC);

CREATE TABLE IF NOT EXISTS bookmarks (
	user_id TEXT NOT NULL,
	article_id TEXT NOT NULL REFERENCES articles(id),
	saved_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, article_id)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	refsJSON, err := json.Marshal(article.SourceRefs)
	if err != nil {
		return fmt.Errorf("marshal source refs: %w", err)
	}
	categoriesJSON, err := json.Marshal(article.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO articles (
	id, fingerprint, title, body, url, published_at, source_refs, categories, kerala_score, summary, summary_status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		article.ID, article.Fingerprint, article.Title, article.Body, article.URL, article.PublishedAt,
		refsJSON, categoriesJSON, article.KeralaScore, article.Summary, string(article.SummaryStatus),
		article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrConsistency, "insert article",
				fmt.Errorf("fingerprint %s already bound to another article", article.Fingerprint))
		}
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	return r.getByColumn(ctx, "id", id)
}

func (r *ArticleRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Article, error) {
	return r.getByColumn(ctx, "fingerprint", fingerprint)
}

func (r *ArticleRepository) getByColumn(ctx context.Context, column, value string) (*domain.Article, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, fingerprint, title, body, url, published_at, source_refs, categories, kerala_score, summary, summary_status, summarized_at, created_at, updated_at
FROM articles
WHERE `+column+` = $1
`, value)

	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrArticleNotFound, "get article",
				fmt.Errorf("%s=%s", column, value))
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return article, nil
}

func (r *ArticleRepository) AddSourceRef(ctx context.Context, id string, ref domain.SourceRef, publishedAt time.Time) error {
	refJSON, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshal source ref: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE articles
SET source_refs = CASE WHEN source_refs @> $2::jsonb THEN source_refs ELSE source_refs || $2::jsonb END,
    published_at = LEAST(published_at, $3),
    updated_at = $4
WHERE id = $1
`, id, "["+string(refJSON)+"]", publishedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add source ref: %w", err)
	}
	return requireRow(res, id)
}

func (r *ArticleRepository) SaveClassification(ctx context.Context, id string, cls domain.Classification) error {
	categoriesJSON, err := json.Marshal(cls.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE articles
SET categories = $2, kerala_score = $3, updated_at = $4
WHERE id = $1
`, id, categoriesJSON, cls.KeralaScore, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	return requireRow(res, id)
}

func (r *ArticleRepository) SaveSummary(ctx context.Context, id string, status domain.SummaryStatus, summary string, summarizedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE articles
SET summary = $2, summary_status = $3, summarized_at = $4, updated_at = $5
WHERE id = $1
`, id, summary, string(status), summarizedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return requireRow(res, id)
}

// ListSummarized returns every article whose summary resolved (ready or
// failed); both enter the feed, failed ones carrying the excerpt
// fallback.
func (r *ArticleRepository) ListSummarized(ctx context.Context) ([]domain.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, fingerprint, title, body, url, published_at, source_refs, categories, kerala_score, summary, summary_status, summarized_at, created_at, updated_at
FROM articles
WHERE summary_status IN ($1, $2)
ORDER BY published_at DESC
`, string(domain.SummaryReady), string(domain.SummaryFailed))
	if err != nil {
		return nil, fmt.Errorf("query summarized articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

// ListPending supports the worker sweep that re-queues articles whose
// classified event was lost.
func (r *ArticleRepository) ListPending(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id FROM articles WHERE summary_status = $1 ORDER BY created_at ASC LIMIT $2
`, string(domain.SummaryPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending articles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending ids: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*domain.Article, error) {
	var (
		article       domain.Article
		refsRaw       []byte
		categoriesRaw []byte
		status        string
		summarizedAt  sql.NullTime
	)

	err := row.Scan(
		&article.ID, &article.Fingerprint, &article.Title, &article.Body, &article.URL,
		&article.PublishedAt, &refsRaw, &categoriesRaw, &article.KeralaScore,
		&article.Summary, &status, &summarizedAt, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(refsRaw, &article.SourceRefs); err != nil {
		return nil, fmt.Errorf("unmarshal source refs: %w", err)
	}
	if err := json.Unmarshal(categoriesRaw, &article.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	article.SummaryStatus = domain.SummaryStatus(status)
	if summarizedAt.Valid {
		article.SummarizedAt = summarizedAt.Time
	}
	return &article, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrArticleNotFound, "update article", fmt.Errorf("id=%s", id))
	}
	return nil
}

// isUniqueViolation matches the postgres unique_violation SQLSTATE
// without depending on driver error types.
func isUniqueViolation(err error) bool {
	type sqlStater interface {
		SQLState() string
	}
	var stater sqlStater
	if errors.As(err, &stater) {
		return stater.SQLState() == "23505"
	}
	return false
}
