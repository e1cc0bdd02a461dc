package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	htmlTagRe     = regexp.MustCompile(`<.*?>|&([a-z0-9]+|#[0-9]{1,6}|#x[0-9a-f]{1,6});`)
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	bylineRe      = regexp.MustCompile(`^(by |source:|image:|photo:|read more|subscribe|follow us|copyright|all rights reserved|click here)`)
)

// Common filler words excluded from fingerprints so that trivial
// rewordings ("the ministry" vs "ministry") do not split duplicates.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "to": {}, "was": {}, "were": {}, "will": {}, "with": {},
}

// Fingerprint derives a content hash used to detect the same story
// across sources. Two bodies differing only in markup, whitespace,
// casing, stop words, or per-source boilerplate lines hash identically;
// any substantive wording change produces a different hash.
func Fingerprint(title, body string) string {
	tokens := contentTokens(title)
	for _, line := range strings.Split(body, "\n") {
		if isBoilerplateLine(line) {
			continue
		}
		tokens = append(tokens, contentTokens(line)...)
	}

	h := sha256.Sum256([]byte(strings.Join(tokens, " ")))
	return hex.EncodeToString(h[:])
}

func contentTokens(text string) []string {
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = punctuationRe.ReplaceAllString(text, " ")
	text = strings.ToLower(text)

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, word := range fields {
		if _, skip := stopWords[word]; skip {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isBoilerplateLine flags bylines, footers and social chrome that
// individual sources append around the same story text.
func isBoilerplateLine(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(htmlTagRe.ReplaceAllString(line, " ")))
	if trimmed == "" {
		return false
	}
	return bylineRe.MatchString(trimmed)
}
