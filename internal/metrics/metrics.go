// Package metrics exposes Prometheus collectors for refresh outcomes and cache size.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	feedPhotos      *prometheus.GaugeVec
	cacheFeeds      prometheus.Gauge
	cachePhotos     prometheus.Gauge
	pagesServed     prometheus.Counter
}

// New registers the collectors on reg. Use prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "photojournalism_feed_refreshes_total",
			Help: "Feed refresh attempts by outcome",
		}, []string{"feed", "outcome"}),

		refreshDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photojournalism_feed_refresh_duration_seconds",
			Help:    "Time spent fetching and extracting one feed",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"feed"}),

		feedPhotos: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "photojournalism_feed_photos",
			Help: "Photos extracted on the last successful refresh of a feed",
		}, []string{"feed"}),

		cacheFeeds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "photojournalism_cache_feeds",
			Help: "Feeds currently present in the photo cache",
		}),

		cachePhotos: factory.NewGauge(prometheus.GaugeOpts{
			Name: "photojournalism_cache_photos",
			Help: "Photos currently held in the photo cache",
		}),

		pagesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "photojournalism_pages_served_total",
			Help: "Pages served from the photo stream",
		}),
	}
}

// ObserveRefresh records the outcome of one feed refresh.
func (m *Metrics) ObserveRefresh(feedID string, photos int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.refreshDuration.WithLabelValues(feedID).Observe(elapsed.Seconds())
	if err != nil {
		m.refreshes.WithLabelValues(feedID, "failure").Inc()
		return
	}
	m.refreshes.WithLabelValues(feedID, "success").Inc()
	m.feedPhotos.WithLabelValues(feedID).Set(float64(photos))
}

// SetCacheSize records the cache counts.
func (m *Metrics) SetCacheSize(feeds, photos int) {
	if m == nil {
		return
	}
	m.cacheFeeds.Set(float64(feeds))
	m.cachePhotos.Set(float64(photos))
}

// PageServed counts one served page.
func (m *Metrics) PageServed() {
	if m == nil {
		return
	}
	m.pagesServed.Inc()
}
