// Package server exposes the photo stream over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gorilla/feeds"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/samvad-hq/samvad-photojournalism/internal/domain"
	"github.com/samvad-hq/samvad-photojournalism/internal/logger"
	"github.com/samvad-hq/samvad-photojournalism/internal/metrics"
	"github.com/samvad-hq/samvad-photojournalism/internal/photocache"
	"github.com/samvad-hq/samvad-photojournalism/internal/shuffle"
)

// Config holds the settings the HTTP layer needs.
type Config struct {
	AppName     string
	PageSize    int
	DefaultSeed uint64
	StaticDir   string
	// Gatherer backs /metrics; the endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer
}

// Server serves pages of the shuffled photo stream plus health, metrics and
// the bundled front end.
type Server struct {
	app     *fiber.App
	cfg     Config
	cache   *photocache.Cache
	metrics *metrics.Metrics
	log     logger.Logger
}

// New builds the fiber app and registers every route.
func New(cfg Config, cache *photocache.Cache, m *metrics.Metrics, log logger.Logger) (*Server, error) {
	if cache == nil {
		return nil, errors.New("server requires a photo cache")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", cfg.PageSize)
	}

	s := &Server{
		cfg:     cfg,
		cache:   cache,
		metrics: m,
		log:     logger.Ensure(log),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
	})
	s.routes()
	return s, nil
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.InfoObj("http server listening", "server_meta", map[string]any{
		"address":   addr,
		"page_size": s.cfg.PageSize,
	})
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.requestLog)

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/api/next/:offset", s.handleNext)
	s.app.Get("/feed.rss", s.handleRSS)
	if s.cfg.Gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	if s.cfg.StaticDir != "" {
		s.app.Static("/js", filepath.Join(s.cfg.StaticDir, "js"), fiber.Static{Index: "loader.js"})
		s.app.Static("/", s.cfg.StaticDir, fiber.Static{Index: "index.html"})
	}
}

// requestLog records method, route, status and latency of each request.
func (s *Server) requestLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.DebugObj("request", "http_request", map[string]any{
		"method":     c.Method(),
		"route":      c.Route().Path,
		"path":       c.Path(),
		"status":     c.Response().StatusCode(),
		"latency_ms": time.Since(start).Milliseconds(),
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	})
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.cache.Status())
}

// handleNext serves the page starting at :offset. An offset that is not a
// non-negative integer is treated as 0.
func (s *Server) handleNext(c *fiber.Ctx) error {
	start, err := strconv.Atoi(c.Params("offset"))
	if err != nil || start < 0 {
		start = 0
	}
	seed := s.cfg.DefaultSeed
	if raw := c.Query("seed"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			seed = v
		}
	}

	snap := s.cache.Snapshot()
	idx := shuffle.Page(seed, len(snap.Photos), start, s.cfg.PageSize)
	page := lo.Map(idx, func(i int, _ int) domain.Photo { return snap.Photos[i] })

	s.metrics.PageServed()
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(domain.PageJSON(page))
}

// handleRSS re-syndicates the cached photos as RSS 2.0 with image enclosures.
func (s *Server) handleRSS(c *fiber.Ctx) error {
	snap := s.cache.Snapshot()

	feed := &feeds.Feed{
		Title:       s.cfg.AppName,
		Link:        &feeds.Link{Href: c.BaseURL() + "/"},
		Description: fmt.Sprintf("Photos from %d feeds", snap.Feeds),
		Created:     time.Now().UTC(),
		Items:       make([]*feeds.Item, 0, len(snap.Photos)),
	}
	for _, p := range snap.Photos {
		feed.Items = append(feed.Items, rssItem(p))
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.log.ErrorObj("rss render failed", "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "rss render failed")
	}
	c.Set(fiber.HeaderContentType, "application/rss+xml; charset=utf-8")
	return c.SendString(rss)
}

func rssItem(p domain.Photo) *feeds.Item {
	item := &feeds.Item{
		Id:    p.StoryURL,
		Title: p.LinkText(),
		Link:  &feeds.Link{Href: p.StoryURL},
		Enclosure: &feeds.Enclosure{
			Url:    p.ImageURL,
			Type:   imageType(p.ImageURL),
			Length: "0",
		},
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Credit != nil {
		item.Author = &feeds.Author{Name: *p.Credit}
	}
	return item
}

// imageType guesses the MIME type from the URL path, defaulting to JPEG.
func imageType(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(path.Ext(u.Path)); t != "" {
		return t
	}
	return "image/jpeg"
}
