package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
	"github.com/samvad-hq/samvad-photojournalism/internal/metrics"
	"github.com/samvad-hq/samvad-photojournalism/internal/photocache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededCache() *photocache.Cache {
	cache := photocache.New()
	cache.Replace("https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml", []domain.Photo{
		{
			ImageURL:    "https://static01.nyt.com/images/2023/11/23/multimedia/23finland-border-kmbp/23finland-border-kmbp-mediumSquareAt3X.jpg",
			StoryURL:    "https://www.nytimes.com/2023/11/23/world/europe/finland-russia-border-migrants.html",
			Description: domain.Text("Finnish border guards escorting migrants at the international crossing with Russia near Salla, Finland, on Thursday."),
			Credit:      domain.Text("Jussi Nukari/Lehtikuva, via Associated Press"),
		},
		{
			ImageURL:    "https://static01.nyt.com/images/2023/11/23/multimedia/23themorning-lead-promo/23themorning-lead-bmhq-mediumSquareAt3X.jpg",
			StoryURL:    "https://www.nytimes.com/2023/11/23/briefing/thanksgiving-pep-talk.html",
			Description: domain.Text("A Thanksgiving Pep Talk"),
			Credit:      domain.Text("Johnny Miller for The New York Times"),
		},
	})
	cache.Replace("https://www.france24.com/en/rss", []domain.Photo{
		{
			ImageURL:    "https://s.france24.com/media/display/98336912-8a11-11ee-9a7e-005056bf30b7/w:1024/p:16x9/silicon-valley.jpg",
			StoryURL:    "https://www.france24.com/en/tv-shows/revisited/20231124-bouncing-back-silicon-valley-bets-on-ai-to-regain-past-glory",
			Description: domain.Text("Bouncing back: Silicon Valley bets on AI to regain past glory"),
			Credit:      domain.Text("Pierrick LEURENT"),
		},
	})
	return cache
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.PageSize == 0 {
		cfg.PageSize = 3
	}
	if cfg.DefaultSeed == 0 {
		cfg.DefaultSeed = 1
	}
	srv, err := New(cfg, seededCache(), nil, nil)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, target string) (int, string) {
	t.Helper()
	resp, err := srv.App().Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthReportsCounts(t *testing.T) {
	srv := newTestServer(t, Config{})

	status, body := get(t, srv, "/health")
	assert.Equal(t, 200, status)
	assert.Equal(t, `{"feeds":2,"photos":3}`, body)
}

func TestNextReturnsFullPage(t *testing.T) {
	srv := newTestServer(t, Config{})

	status, body := get(t, srv, "/api/next/0")
	assert.Equal(t, 200, status)

	var photos []domain.Photo
	require.NoError(t, json.Unmarshal([]byte(body), &photos))
	assert.Len(t, photos, 3)

	seen := map[string]bool{}
	for _, p := range photos {
		seen[p.StoryURL] = true
	}
	assert.Len(t, seen, 3, "a page must not repeat photos")
}

func TestNextBeyondEndIsEmptyArray(t *testing.T) {
	srv := newTestServer(t, Config{})

	status, body := get(t, srv, "/api/next/4")
	assert.Equal(t, 200, status)
	assert.Equal(t, "[]", body)
}

func TestNextPagesPartitionTheStream(t *testing.T) {
	srv := newTestServer(t, Config{PageSize: 2})

	_, first := get(t, srv, "/api/next/0")
	_, second := get(t, srv, "/api/next/2")

	var a, b []domain.Photo
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	require.Len(t, a, 2)
	require.Len(t, b, 1)
	for _, p := range a {
		assert.NotEqual(t, b[0].StoryURL, p.StoryURL)
	}
}

func TestNextUnparsableOffsetStartsAtZero(t *testing.T) {
	srv := newTestServer(t, Config{})

	_, zero := get(t, srv, "/api/next/0")
	_, junk := get(t, srv, "/api/next/abc")
	assert.Equal(t, zero, junk)
}

func TestNextIsDeterministicPerSeed(t *testing.T) {
	srv := newTestServer(t, Config{})

	_, a := get(t, srv, "/api/next/0?seed=42")
	_, b := get(t, srv, "/api/next/0?seed=42")
	assert.Equal(t, a, b)
}

func TestRSSFeedCarriesEnclosures(t *testing.T) {
	srv := newTestServer(t, Config{AppName: "photojournalism"})

	status, body := get(t, srv, "/feed.rss")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "<rss")
	assert.Equal(t, 3, strings.Count(body, "<enclosure"))
	assert.Contains(t, body, `type="image/jpeg"`)
	assert.Contains(t, body, "Pierrick LEURENT")
}

func TestMetricsEndpointExportsPageCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv, err := New(Config{PageSize: 3, DefaultSeed: 1, Gatherer: reg}, seededCache(), metrics.New(reg), nil)
	require.NoError(t, err)

	get(t, srv, "/api/next/0")
	status, body := get(t, srv, "/metrics")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "photojournalism_pages_served_total 1")
}

func TestStaticAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>photos</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "js", "loader.js"), []byte("function reload(ind) {}"), 0o644))

	srv := newTestServer(t, Config{StaticDir: dir})

	status, body := get(t, srv, "/")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "photos")

	status, body = get(t, srv, "/js/")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, "reload")

	status, _ = get(t, srv, "/api/next/0")
	assert.Equal(t, 200, status, "api routes must win over static files")
}

func TestNewRejectsMissingCache(t *testing.T) {
	_, err := New(Config{PageSize: 3}, nil, nil, nil)
	assert.Error(t, err)
}
