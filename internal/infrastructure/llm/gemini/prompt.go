package gemini

import (
	"fmt"
	"strings"

	"github.com/keralagri/newsreel/internal/core/domain"
)

const bodyExcerptLimit = 800

// buildPrompt frames the summary request around the article's
// audience: state-level focus for strongly Kerala-relevant articles,
// national focus otherwise.
func buildPrompt(article *domain.Article) string {
	focus := "Indian farmers and national agricultural policies"
	if article.KeralaScore >= 0.5 {
		focus = "Kerala farmers and state-specific agricultural schemes"
	}

	body := article.Body
	if len(body) > bodyExcerptLimit {
		body = body[:bodyExcerptLimit]
	}

	var b strings.Builder
	b.WriteString("Summarize this agricultural news in 2-3 engaging sentences for social media style content.\n")
	b.WriteString("Focus on:\n")
	fmt.Fprintf(&b, "- Impact on %s\n", focus)
	b.WriteString("- Key benefits or changes\n")
	b.WriteString("- Practical implications\n")
	b.WriteString("- Financial support or opportunities\n\n")
	b.WriteString("Make it conversational and easy to understand.\n\n")
	fmt.Fprintf(&b, "Content: Title: %s\nContent: %s\n\nSummary:", article.Title, body)
	return b.String()
}
