// Package enricher fills in photos that a feed item left without an image by
// reading the story page's OpenGraph tags.
package enricher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
	"github.com/samvad-hq/samvad-photojournalism/internal/extractor"
	"github.com/samvad-hq/samvad-photojournalism/internal/logger"
	"github.com/samvad-hq/samvad-photojournalism/pkg/feeds"
	"github.com/samvad-hq/samvad-photojournalism/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// Scraper fetches story pages and extracts og:image for photos missing one.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
}

// NewScraper constructs a scraper with the provided HTTP client.
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	return &Scraper{client: client, log: logger.Ensure(log)}
}

// Enrich visits the story page of every photo that has a story URL but no
// image, throttled by the feed's request delay. Photos that already have an
// image are returned untouched. On cancellation the remaining photos are
// returned as they were.
func (s *Scraper) Enrich(ctx context.Context, feed feeds.Feed, photos []domain.Photo) []domain.Photo {
	delay := feed.RequestDelay()
	out := append([]domain.Photo(nil), photos...)

	fetched := 0
	for i, p := range photos {
		if p.ImageURL != "" || p.StoryURL == "" {
			continue
		}

		if fetched > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out
			case <-timer.C:
			}
		}
		select {
		case <-ctx.Done():
			return out
		default:
		}
		fetched++

		enriched, err := s.fetchAndParse(ctx, feed, p)
		if err != nil {
			s.log.WarnObj("story metadata scrape failed", "metadata_error", map[string]any{
				"feed_id": feed.ID,
				"url":     p.StoryURL,
				"error":   err.Error(),
			})
			continue
		}
		out[i] = enriched
	}

	return out
}

func (s *Scraper) fetchAndParse(ctx context.Context, feed feeds.Feed, p domain.Photo) (domain.Photo, error) {
	headers := feeds.Headers(feed)
	headers["Accept"] = "text/html,application/xhtml+xml"

	resp, err := s.client.Get(ctx, p.StoryURL, headers)
	if err != nil {
		return p, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return p, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return p, err
	}

	updated := p
	if img := resolveURL(meta.ImageURL, p.StoryURL); img != "" && !extractor.Ignored(img) {
		updated.ImageURL = img
	}
	if updated.Description == nil {
		updated.Description = domain.Text(firstNonEmpty(meta.Description, meta.Title))
	}
	return updated, nil
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	pm := pageMeta{}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm.Title = firstNonEmpty(
		extract(`meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	pm.Description = firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	)
	pm.ImageURL = firstNonEmpty(
		extract(`meta[property="og:image"]`),
		extract(`meta[property="og:image:url"]`),
		extract(`meta[name="twitter:image"]`),
	)

	return pm, nil
}

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// resolveURL makes ref absolute against base. Unparsable input yields "".
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
