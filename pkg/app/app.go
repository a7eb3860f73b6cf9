// Package app wires configuration into a running link service. The server,
// the CLI and the serverless entry point all build on it.
package app

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/cache"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/config"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/services"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/metrics"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

// Store is a link store that can also be dumped.
type Store interface {
	ports.LinkStore
	ports.LinkExporter
}

type App struct {
	Store    Store
	Cache    ports.RedirectCache
	Counter  *services.CounterWorker
	Service  *services.LinkService
	Registry *prometheus.Registry
	Handler  http.Handler

	log zerolog.Logger
}

// OpenStore picks the store adapter from the DATABASE_URL scheme.
func OpenStore(ctx context.Context, dbURL string, log zerolog.Logger) (Store, error) {
	switch {
	case strings.HasPrefix(dbURL, "memory://"):
		return memory.NewMemoryRepository(), nil
	case postgres.IsPostgres(dbURL):
		return postgres.NewPostgresRepository(ctx, dbURL, log)
	default:
		return sqlite.NewSQLiteRepository(dbURL, log)
	}
}

// NewCache builds the redirect cache named by cfg.CacheBackend.
func NewCache(ctx context.Context, cfg *config.Config) (ports.RedirectCache, error) {
	switch cfg.CacheBackend {
	case "", "memory":
		return cache.NewMemory(cfg.CacheTTL), nil
	case "lru":
		return cache.NewLRU(cfg.CacheMaxEntries, cfg.CacheTTL), nil
	case "redis":
		return cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
	case "none":
		return cache.Nop{}, nil
	default:
		return nil, errors.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

// NewSlugGenerator builds the generator named by cfg.SlugStrategy.
func NewSlugGenerator(cfg *config.Config) (ports.SlugGenerator, error) {
	switch cfg.SlugStrategy {
	case "", "random":
		return services.NewRandomSlugGenerator(cfg.SlugLength), nil
	case "snowflake":
		return services.NewSnowflakeSlugGenerator(cfg.SnowflakeNode)
	default:
		return nil, errors.Errorf("unknown SLUG_STRATEGY %q", cfg.SlugStrategy)
	}
}

// New opens every dependency and starts the counter workers.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, errors.Wrap(err, "open link store")
	}

	redirectCache, err := NewCache(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, errors.Wrap(err, "create redirect cache")
	}

	slugs, err := NewSlugGenerator(cfg)
	if err != nil {
		store.Close()
		closeCache(redirectCache)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	counter := services.NewCounterWorker(store, services.CounterConfig{
		Workers:   cfg.CounterWorkers,
		QueueSize: cfg.CounterQueueSize,
		Timeout:   cfg.CounterTimeout,
	}, log, m)
	counter.Start()

	svc := services.NewLinkService(store, redirectCache, slugs, counter, cfg.BaseURL,
		services.WithLogger(log),
		services.WithMetrics(m),
	)

	log.Info().
		Str("cache", cfg.CacheBackend).
		Str("slug_strategy", cfg.SlugStrategy).
		Int("counter_workers", cfg.CounterWorkers).
		Msg("link service ready")

	return &App{
		Store:    store,
		Cache:    redirectCache,
		Counter:  counter,
		Service:  svc,
		Registry: registry,
		Handler:  handler.NewRouter(cfg, svc, log, registry),
		log:      log,
	}, nil
}

// Close drains pending counter writes, then releases the cache and store.
func (a *App) Close(ctx context.Context) error {
	if err := a.Counter.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("redirect counter did not drain before shutdown")
	}
	closeCache(a.Cache)
	return a.Store.Close()
}

func closeCache(c ports.RedirectCache) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}
