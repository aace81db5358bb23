package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samvad-hq/samvad-photojournalism/internal/config"
	"github.com/samvad-hq/samvad-photojournalism/internal/enricher"
	"github.com/samvad-hq/samvad-photojournalism/internal/logger"
	"github.com/samvad-hq/samvad-photojournalism/internal/metrics"
	"github.com/samvad-hq/samvad-photojournalism/internal/photocache"
	"github.com/samvad-hq/samvad-photojournalism/internal/refresher"
	"github.com/samvad-hq/samvad-photojournalism/internal/server"
	"github.com/samvad-hq/samvad-photojournalism/internal/storage"
	"github.com/samvad-hq/samvad-photojournalism/pkg/feeds"
	"github.com/samvad-hq/samvad-photojournalism/pkg/httpclient"
	"github.com/samvad-hq/samvad-photojournalism/pkg/publishers"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App is the photojournalism runtime. It owns the photo cache, the
// background refresher that keeps it current and the HTTP server that reads
// from it.
type App struct {
	cfg       *config.Config
	feedList  *feeds.List
	cache     *photocache.Cache
	fanout    *publishers.Fanout
	refresher *refresher.Refresher
	server    *server.Server
	store     storage.Store
	log       logger.Logger
}

// New builds the runtime from config. Nothing is fetched until Run.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	feedList, err := feeds.LoadList(cfg.FeedList)
	if err != nil {
		return nil, fmt.Errorf("load feed list: %w", err)
	}
	feedIDs := make([]string, 0, feedList.Len())
	for _, f := range feedList.All() {
		feedIDs = append(feedIDs, f.ID)
	}
	log.InfoObj("feed list loaded", "feeds_meta", map[string]any{
		"count": len(feedIDs),
		"ids":   feedIDs,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.StoragePath, storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
		RedisAddr:       cfg.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.StoragePath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := httpclient.NewRestyClient(cfg.HTTPTimeout, cfg.UserAgent)
	cache := photocache.New()

	opts := []refresher.Option{
		refresher.WithMetrics(m),
		refresher.WithMaxConcurrent(cfg.MaxConcurrentFetches),
	}
	if fanout.Size() > 0 {
		opts = append(opts, refresher.WithPublisher(fanout))
	}
	if cfg.OGFallback {
		opts = append(opts, refresher.WithEnricher(enricher.NewScraper(client, log)))
	}
	ref := refresher.New(cache, feeds.NewHTTPFetcher(client, store, log), feedList.All(), cfg.FetchInterval, log, opts...)

	srv, err := server.New(server.Config{
		AppName:     cfg.AppName,
		PageSize:    cfg.PageSize,
		DefaultSeed: cfg.DefaultSeed,
		StaticDir:   cfg.StaticDir,
		Gatherer:    reg,
	}, cache, m, log)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init server: %w", err)
	}

	return &App{
		cfg:       cfg,
		feedList:  feedList,
		cache:     cache,
		fanout:    fanout,
		refresher: ref,
		server:    srv,
		store:     store,
		log:       log,
	}, nil
}

// buildFanout loads the optional publishers file. Without one, refresh events
// go nowhere.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	if len(enabled) == 0 {
		log.WarnObj("publishers file has no enabled publishers", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	clients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(clients), nil
}

// Cache returns the shared photo cache.
func (a *App) Cache() *photocache.Cache { return a.cache }

// Run refreshes feeds and serves HTTP until ctx is cancelled or the server
// fails, then shuts both down and releases storage and publishers.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.refresher == nil || a.server == nil {
		return fmt.Errorf("app is not initialized")
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.refresher.Run(gctx)
	})
	g.Go(func() error {
		if gctx.Err() != nil {
			return nil
		}
		if err := a.server.Listen(a.cfg.ServerAddress); err != nil && gctx.Err() == nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		a.log.InfoObj("http server stopped", "reason", context.Cause(gctx).Error())
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) close() {
	if err := a.fanout.Close(); err != nil {
		a.log.ErrorObj("publisher close failed", "error", err.Error())
	}
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
