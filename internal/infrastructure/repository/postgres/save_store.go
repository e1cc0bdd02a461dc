package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/keralagri/newsreel/internal/core/domain"
)

// SaveStore records per-user bookmarks against stable article IDs. It
// sits outside the pipeline; the pipeline's only obligation to it is
// that article IDs never change across re-ranking and re-ingestion.
type SaveStore struct {
	db *sql.DB
}

func NewSaveStore(db *sql.DB) *SaveStore {
	return &SaveStore{db: db}
}

func (s *SaveStore) Save(ctx context.Context, userID, articleID string) error {
	if userID == "" || articleID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save bookmark",
			fmt.Errorf("user %q article %q", userID, articleID))
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO bookmarks (user_id, article_id, saved_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, article_id) DO NOTHING
`, userID, articleID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

func (s *SaveStore) Unsave(ctx context.Context, userID, articleID string) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM bookmarks WHERE user_id = $1 AND article_id = $2
`, userID, articleID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

func (s *SaveStore) ListSaved(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, article_id, saved_at FROM bookmarks WHERE user_id = $1 ORDER BY saved_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []domain.Bookmark
	for rows.Next() {
		var b domain.Bookmark
		if err := rows.Scan(&b.UserID, &b.ArticleID, &b.SavedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}
	return bookmarks, nil
}
