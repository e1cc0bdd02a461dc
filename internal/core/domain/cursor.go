package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Cursor encodes the last-seen feed position. Paging by (rank, article
// ID) instead of offset keeps delivered pages stable when newly ranked
// articles are inserted ahead of the reader.
type Cursor struct {
	Rank      int    `json:"rank"`
	ArticleID string `json:"article_id"`
}

// Zero reports whether the cursor points at the start of the feed.
func (c Cursor) Zero() bool {
	return c.Rank == 0 && c.ArticleID == ""
}

// Encode renders the cursor as an opaque URL-safe token. The zero
// cursor encodes to the empty string.
func (c Cursor) Encode() string {
	if c.Zero() {
		return ""
	}
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token previously produced by Encode. An empty
// token is the start of the feed.
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, WrapError(ErrInvalidInput, "decode cursor", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, WrapError(ErrInvalidInput, "decode cursor", err)
	}
	if c.ArticleID == "" {
		return Cursor{}, WrapError(ErrInvalidInput, "decode cursor", errors.New("missing article id"))
	}
	return c, nil
}

// Before orders feed entries for cursor comparison: an entry is before
// another when it ranks earlier, with article ID breaking rank ties.
func (c Cursor) Before(e FeedEntry) bool {
	if c.Rank != e.Rank {
		return c.Rank < e.Rank
	}
	return c.ArticleID < e.Article.ID
}
