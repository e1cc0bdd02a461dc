package domain

import "testing"

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{Rank: 42, ArticleID: "abc-123"}

	decoded, err := DecodeCursor(c.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if decoded != c {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, c)
	}
}

func TestCursorZeroEncodesEmpty(t *testing.T) {
	if token := (Cursor{}).Encode(); token != "" {
		t.Fatalf("zero cursor encoded to %q, want empty", token)
	}

	decoded, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor(\"\"): %v", err)
	}
	if !decoded.Zero() {
		t.Fatalf("empty token decoded to %+v, want zero", decoded)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"not base64!!", "YWJj", "eyJyYW5rIjoxfQ"} {
		if _, err := DecodeCursor(token); !IsKind(err, ErrInvalidInput) {
			t.Errorf("DecodeCursor(%q) = %v, want ErrInvalidInput", token, err)
		}
	}
}

func TestCursorBefore(t *testing.T) {
	c := Cursor{Rank: 5, ArticleID: "m"}

	if !c.Before(FeedEntry{Rank: 6, Article: Article{ID: "a"}}) {
		t.Error("cursor should be before higher rank")
	}
	if c.Before(FeedEntry{Rank: 4, Article: Article{ID: "z"}}) {
		t.Error("cursor should not be before lower rank")
	}
	if !c.Before(FeedEntry{Rank: 5, Article: Article{ID: "z"}}) {
		t.Error("equal rank should break ties by article ID")
	}
}
