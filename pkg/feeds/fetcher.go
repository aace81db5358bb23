package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-photojournalism/internal/extractor"
	"github.com/samvad-hq/samvad-photojournalism/internal/logger"
	"github.com/samvad-hq/samvad-photojournalism/internal/storage"
	"github.com/samvad-hq/samvad-photojournalism/pkg/httpclient"
)

// Fetcher downloads a feed and decodes it into items.
type Fetcher interface {
	Fetch(ctx context.Context, feed Feed) ([]extractor.Item, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within feeds.
type HTTPClient = httpclient.Client

// HTTPFetcher fetches feeds over HTTP, revalidating against the response
// cache with If-None-Match / If-Modified-Since.
type HTTPFetcher struct {
	client HTTPClient
	store  storage.Store
	log    logger.Logger
}

// NewHTTPFetcher builds a fetcher. A nil store disables conditional requests.
func NewHTTPFetcher(client HTTPClient, store storage.Store, log logger.Logger) *HTTPFetcher {
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return &HTTPFetcher{client: client, store: store, log: logger.Ensure(log)}
}

// Fetch downloads and decodes feed.
func (f *HTTPFetcher) Fetch(ctx context.Context, feed Feed) ([]extractor.Item, error) {
	body, err := f.download(ctx, feed)
	if err != nil {
		return nil, err
	}
	items, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", feed.ID, err)
	}
	return items, nil
}

func (f *HTTPFetcher) download(ctx context.Context, feed Feed) ([]byte, error) {
	headers := Headers(feed)

	cached, found, err := f.store.Lookup(ctx, feed.URL)
	if err != nil {
		f.log.WarnObj("response cache lookup failed", "cache_error", map[string]any{
			"feed_id": feed.ID,
			"error":   err.Error(),
		})
		found = false
	}
	if found {
		if cached.ETag != "" {
			headers["If-None-Match"] = cached.ETag
		}
		if cached.LastModified != "" {
			headers["If-Modified-Since"] = cached.LastModified
		}
	}

	resp, err := f.client.Get(ctx, feed.URL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed.ID, err)
	}

	status := resp.StatusCode()
	if status == http.StatusNotModified && found {
		f.log.DebugObj("feed not modified", "feed", map[string]any{"feed_id": feed.ID, "stored_at": cached.StoredAt})
		return cached.Body, nil
	}
	body := resp.Body()
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%s returned status %d body: %s", feed.ID, status, responseSnippet(body))
	}

	f.remember(ctx, feed, resp.Header(), body)
	return body, nil
}

// remember stores responses that carry a validator; others cannot be revalidated.
func (f *HTTPFetcher) remember(ctx context.Context, feed Feed, h http.Header, body []byte) {
	entry := storage.Entry{
		ETag:         h.Get("ETag"),
		LastModified: h.Get("Last-Modified"),
		Body:         body,
		StoredAt:     time.Now(),
	}
	if entry.ETag == "" && entry.LastModified == "" {
		return
	}
	if err := f.store.Save(ctx, feed.URL, entry); err != nil {
		f.log.WarnObj("response cache save failed", "cache_error", map[string]any{
			"feed_id": feed.ID,
			"error":   err.Error(),
		})
	}
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
