// Package refresher keeps the photo cache current by re-fetching every feed
// on a fixed interval.
package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
	"github.com/samvad-hq/samvad-photojournalism/internal/extractor"
	"github.com/samvad-hq/samvad-photojournalism/internal/logger"
	"github.com/samvad-hq/samvad-photojournalism/internal/metrics"
	"github.com/samvad-hq/samvad-photojournalism/internal/photocache"
	"github.com/samvad-hq/samvad-photojournalism/pkg/feeds"
	"github.com/samvad-hq/samvad-photojournalism/pkg/publishers"
	"golang.org/x/sync/semaphore"
)

// Enricher fills in photos the feed left incomplete.
type Enricher interface {
	Enrich(ctx context.Context, feed feeds.Feed, photos []domain.Photo) []domain.Photo
}

// Publisher receives an event after every successful refresh.
type Publisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Option customises a Refresher.
type Option func(*Refresher)

// WithEnricher runs enr over each feed's candidates before they are filtered.
func WithEnricher(enr Enricher) Option {
	return func(r *Refresher) { r.enricher = enr }
}

// WithPublisher announces refreshed feeds to pub.
func WithPublisher(pub Publisher) Option {
	return func(r *Refresher) { r.publisher = pub }
}

// WithMetrics records refresh outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Refresher) { r.metrics = m }
}

// WithMaxConcurrent bounds how many feeds are fetched at once. Zero or less
// means unbounded.
func WithMaxConcurrent(n int64) Option {
	return func(r *Refresher) {
		if n > 0 {
			r.sem = semaphore.NewWeighted(n)
		}
	}
}

// Refresher fetches every feed once per interval and replaces its cache entry.
type Refresher struct {
	cache     *photocache.Cache
	fetcher   feeds.Fetcher
	feeds     []feeds.Feed
	interval  time.Duration
	log       logger.Logger
	enricher  Enricher
	publisher Publisher
	metrics   *metrics.Metrics
	sem       *semaphore.Weighted
}

// New wires a refresher for list. Rounds start when Run is called.
func New(cache *photocache.Cache, fetcher feeds.Fetcher, list []feeds.Feed, interval time.Duration, log logger.Logger, opts ...Option) *Refresher {
	r := &Refresher{
		cache:    cache,
		fetcher:  fetcher,
		feeds:    append([]feeds.Feed(nil), list...),
		interval: interval,
		log:      logger.Ensure(log),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fires a round immediately and then one per interval until ctx is done.
// Rounds are not gated on the previous one; a slow feed may still be in
// flight when its next fetch starts.
func (r *Refresher) Run(ctx context.Context) error {
	if r == nil || r.cache == nil || r.fetcher == nil {
		return fmt.Errorf("refresher is not initialized")
	}
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", r.interval)
	}

	r.log.InfoObj("refresher loop starting", "refresher_state", map[string]any{
		"feeds_count":    len(r.feeds),
		"fetch_interval": r.interval.String(),
	})

	r.RefreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("refresher loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll launches one refresh per feed and returns without waiting. The
// returned WaitGroup completes when every task of this round has finished.
func (r *Refresher) RefreshAll(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, feed := range r.feeds {
		wg.Add(1)
		go func(feed feeds.Feed) {
			defer wg.Done()
			if r.sem != nil {
				if err := r.sem.Acquire(ctx, 1); err != nil {
					return
				}
				defer r.sem.Release(1)
			}
			// failures are logged inside RefreshFeed
			_ = r.RefreshFeed(ctx, feed)
		}(feed)
	}
	return &wg
}

// RefreshFeed fetches one feed and replaces its cache entry. On failure the
// previous entry is left untouched and the error is returned.
func (r *Refresher) RefreshFeed(ctx context.Context, feed feeds.Feed) error {
	start := time.Now()

	items, err := r.fetcher.Fetch(ctx, feed)
	if err != nil {
		err = fmt.Errorf("refresh feed %s: %w", feed.ID, err)
		r.metrics.ObserveRefresh(feed.ID, 0, time.Since(start), err)
		r.log.WarnObj("feed refresh failed", "feed_error", map[string]any{
			"feed_id": feed.ID,
			"url":     feed.URL,
			"error":   err.Error(),
		})
		return err
	}

	photos := r.extract(ctx, feed, items)
	r.cache.Replace(feed.ID, photos)

	feedsCount, photosCount := r.cache.Counts()
	r.metrics.ObserveRefresh(feed.ID, len(photos), time.Since(start), nil)
	r.metrics.SetCacheSize(feedsCount, photosCount)

	r.log.InfoObj("feed refreshed", "feed_result", map[string]any{
		"feed_id":      feed.ID,
		"items":        len(items),
		"photos":       len(photos),
		"cache_photos": photosCount,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})

	r.publish(ctx, feed, photos)
	return nil
}

func (r *Refresher) extract(ctx context.Context, feed feeds.Feed, items []extractor.Item) []domain.Photo {
	if r.enricher == nil {
		return extractor.ExtractAll(items)
	}
	candidates := r.enricher.Enrich(ctx, feed, extractor.Candidates(items))
	valid := make([]domain.Photo, 0, len(candidates))
	for _, p := range candidates {
		if p.Valid() {
			valid = append(valid, p)
		}
	}
	return valid
}

func (r *Refresher) publish(ctx context.Context, feed feeds.Feed, photos []domain.Photo) {
	if r.publisher == nil {
		return
	}
	delivered, err := r.publisher.Publish(ctx, publishers.NewEvent(feed.ID, feed.Name, photos))
	if err != nil {
		r.log.ErrorObj("refresh event publish failed", "publish_error", map[string]any{
			"feed_id":   feed.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}
