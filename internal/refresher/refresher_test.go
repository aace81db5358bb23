package refresher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
	"github.com/samvad-hq/samvad-photojournalism/internal/extractor"
	"github.com/samvad-hq/samvad-photojournalism/internal/metrics"
	"github.com/samvad-hq/samvad-photojournalism/internal/photocache"
	"github.com/samvad-hq/samvad-photojournalism/pkg/feeds"
	"github.com/samvad-hq/samvad-photojournalism/pkg/publishers"
)

func rssWithImages(n int, host string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>Story %d</title><link>https://%s/story/%d</link>`+
			`<enclosure url="https://%s/img/%d.jpg" type="image/jpeg" length="1"/></item>`, i, host, i, host, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// stubFetcher decodes canned bodies per feed id.
type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  atomic.Int32
	gate   chan struct{}

	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *stubFetcher) Fetch(ctx context.Context, feed feeds.Feed) ([]extractor.Item, error) {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if cur <= prev || s.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	body, err := s.bodies[feed.ID], s.errs[feed.ID]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return feeds.Decode([]byte(body))
}

func (s *stubFetcher) set(id, body string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bodies == nil {
		s.bodies = map[string]string{}
		s.errs = map[string]error{}
	}
	s.bodies[id] = body
	s.errs[id] = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishers.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	if p.err != nil {
		return 0, p.err
	}
	return 1, nil
}

func testFeeds(ids ...string) []feeds.Feed {
	out := make([]feeds.Feed, 0, len(ids))
	for _, id := range ids {
		out = append(out, feeds.Feed{ID: id, Name: id, URL: "https://" + id + ".example.com/rss"})
	}
	return out
}

func TestRefreshFeedReplacesEntry(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("a", rssWithImages(3, "a.example.com"), nil)
	cache := photocache.New()
	pub := &recordingPublisher{}
	reg := prometheus.NewRegistry()

	r := New(cache, fetcher, testFeeds("a"), time.Hour, nil,
		WithPublisher(pub), WithMetrics(metrics.New(reg)))

	if err := r.RefreshFeed(context.Background(), testFeeds("a")[0]); err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}
	photos, ok := cache.Feed("a")
	if !ok || len(photos) != 3 {
		t.Fatalf("expected 3 cached photos, got %d (present=%v)", len(photos), ok)
	}
	if photos[0].ImageURL != "https://a.example.com/img/0.jpg" {
		t.Fatalf("unexpected first photo %+v", photos[0])
	}
	if len(pub.events) != 1 || pub.events[0].PhotoCount != 3 || pub.events[0].FeedID != "a" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if n, err := testutil.GatherAndCount(reg, "photojournalism_cache_photos"); err != nil || n != 1 {
		t.Fatalf("cache gauge not exported: n=%d err=%v", n, err)
	}
}

func TestRefreshFeedFailureRetainsPreviousEntry(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("a", rssWithImages(2, "a.example.com"), nil)
	cache := photocache.New()
	pub := &recordingPublisher{}
	r := New(cache, fetcher, testFeeds("a"), time.Hour, nil, WithPublisher(pub))
	feed := testFeeds("a")[0]

	if err := r.RefreshFeed(context.Background(), feed); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	fetcher.set("a", "", errors.New("connection reset"))
	if err := r.RefreshFeed(context.Background(), feed); err == nil {
		t.Fatalf("expected error from failing fetch")
	}

	photos, _ := cache.Feed("a")
	if len(photos) != 2 {
		t.Fatalf("expected previous 2 photos retained, got %d", len(photos))
	}
	if len(pub.events) != 1 {
		t.Fatalf("failed refresh must not publish, got %d events", len(pub.events))
	}
}

func TestRefreshFeedNeverFetchedStaysAbsent(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("a", "", errors.New("dns failure"))
	cache := photocache.New()
	r := New(cache, fetcher, testFeeds("a"), time.Hour, nil)

	_ = r.RefreshFeed(context.Background(), testFeeds("a")[0])

	if _, ok := cache.Feed("a"); ok {
		t.Fatalf("failed first fetch must not create an entry")
	}
	if feedsCount, photos := cache.Counts(); feedsCount != 0 || photos != 0 {
		t.Fatalf("expected empty cache, got feeds=%d photos=%d", feedsCount, photos)
	}
}

func TestRefreshFeedPublishErrorDoesNotAffectCache(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("a", rssWithImages(1, "a.example.com"), nil)
	cache := photocache.New()
	r := New(cache, fetcher, testFeeds("a"), time.Hour, nil,
		WithPublisher(&recordingPublisher{err: errors.New("sink down")}))

	if err := r.RefreshFeed(context.Background(), testFeeds("a")[0]); err != nil {
		t.Fatalf("publish failure must not fail the refresh: %v", err)
	}
	if _, photos := cache.Counts(); photos != 1 {
		t.Fatalf("expected 1 photo, got %d", photos)
	}
}

type fillEnricher struct{}

func (fillEnricher) Enrich(_ context.Context, _ feeds.Feed, photos []domain.Photo) []domain.Photo {
	out := append([]domain.Photo(nil), photos...)
	for i := range out {
		if out[i].ImageURL == "" && out[i].StoryURL != "" {
			out[i].ImageURL = out[i].StoryURL + "/og.jpg"
		}
	}
	return out
}

func TestRefreshFeedWithEnricherKeepsFilledPhotos(t *testing.T) {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>No image</title><link>https://b.example.com/s/1</link></item>
<item><title>No link or image</title></item>
</channel></rss>`
	fetcher := &stubFetcher{}
	fetcher.set("b", body, nil)
	cache := photocache.New()
	r := New(cache, fetcher, testFeeds("b"), time.Hour, nil, WithEnricher(fillEnricher{}))

	if err := r.RefreshFeed(context.Background(), testFeeds("b")[0]); err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}
	photos, _ := cache.Feed("b")
	if len(photos) != 1 || photos[0].ImageURL != "https://b.example.com/s/1/og.jpg" {
		t.Fatalf("unexpected photos %+v", photos)
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("a", rssWithImages(2, "a.example.com"), nil)
	fetcher.set("b", "", errors.New("timeout"))
	fetcher.set("c", rssWithImages(1, "c.example.com"), nil)
	cache := photocache.New()
	r := New(cache, fetcher, testFeeds("a", "b", "c"), time.Hour, nil)

	r.RefreshAll(context.Background()).Wait()

	feedsCount, photos := cache.Counts()
	if feedsCount != 2 || photos != 3 {
		t.Fatalf("expected 2 feeds / 3 photos, got %d / %d", feedsCount, photos)
	}
}

func TestRefreshAllDoesNotWaitForFetches(t *testing.T) {
	fetcher := &stubFetcher{gate: make(chan struct{})}
	fetcher.set("a", rssWithImages(1, "a.example.com"), nil)
	cache := photocache.New()
	r := New(cache, fetcher, testFeeds("a"), time.Hour, nil)

	wg := r.RefreshAll(context.Background())
	if _, photos := cache.Counts(); photos != 0 {
		t.Fatalf("cache updated before fetch was released")
	}

	close(fetcher.gate)
	wg.Wait()
	if _, photos := cache.Counts(); photos != 1 {
		t.Fatalf("expected 1 photo after release, got %d", photos)
	}
}

func TestRefreshAllRespectsMaxConcurrent(t *testing.T) {
	fetcher := &stubFetcher{gate: make(chan struct{})}
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		fetcher.set(id, rssWithImages(1, id+".example.com"), nil)
	}
	cache := photocache.New()
	r := New(cache, fetcher, testFeeds(ids...), time.Hour, nil, WithMaxConcurrent(1))

	wg := r.RefreshAll(context.Background())
	go func() {
		for range ids {
			fetcher.gate <- struct{}{}
		}
	}()
	wg.Wait()

	if got := fetcher.maxSeen.Load(); got != 1 {
		t.Fatalf("expected at most 1 concurrent fetch, saw %d", got)
	}
	if _, photos := cache.Counts(); photos != len(ids) {
		t.Fatalf("expected %d photos, got %d", len(ids), photos)
	}
}

func TestRunFiresImmediatelyAndOnTicks(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("a", rssWithImages(1, "a.example.com"), nil)
	cache := photocache.New()
	r := New(cache, fetcher, testFeeds("a"), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for fetcher.calls.Load() < 3 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("expected repeated refreshes, got %d", fetcher.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not exit after cancel")
	}
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	r := New(photocache.New(), &stubFetcher{}, nil, 0, nil)
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
