// Package agmarknet scrapes market price bulletins from pages that
// publish no machine-readable feed. Each bulletin row becomes one raw
// article so price updates flow through the same pipeline as news.
package agmarknet

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/keralagri/newsreel/internal/core/domain"
)

type Source struct {
	id      string
	pageURL string
	client  *http.Client
}

func New(id, pageURL string, client *http.Client) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Source{id: id, pageURL: pageURL, client: client}
}

func (s *Source) ID() string {
	return s.id
}

// FetchSince scrapes the bulletin listing and returns rows dated at or
// after since. Rows without a parseable date are stamped with the
// fetch time.
func (s *Source) FetchSince(ctx context.Context, since time.Time) ([]domain.RawArticle, error) {
	doc, err := s.fetchDocument(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var articles []domain.RawArticle
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		title := strings.TrimSpace(cells.Eq(0).Text())
		detail := strings.TrimSpace(cells.Eq(1).Text())
		if title == "" || detail == "" {
			return
		}

		publishedAt := now
		if cells.Length() >= 3 {
			if parsed, ok := parseBulletinDate(cells.Eq(2).Text()); ok {
				publishedAt = parsed
			}
		}
		if publishedAt.Before(since) {
			return
		}

		link := s.pageURL
		if href, ok := row.Find("a").First().Attr("href"); ok {
			link = resolveLink(s.pageURL, href)
		}

		articles = append(articles, domain.RawArticle{
			SourceID:    s.id,
			ExternalID:  link + "#" + title,
			Title:       title,
			Body:        detail,
			URL:         link,
			PublishedAt: publishedAt,
		})
	})
	return articles, nil
}

func (s *Source) fetchDocument(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build bulletin request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "fetch bulletin page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapError(domain.ErrTemporary, "fetch bulletin page",
			fmt.Errorf("%s returned %s", s.pageURL, resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPermanent, "parse bulletin page", err)
	}
	return doc, nil
}

var bulletinDateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

func parseBulletinDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range bulletinDateLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func resolveLink(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}
