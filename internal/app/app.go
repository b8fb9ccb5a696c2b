package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"price-scout/internal/alerting"
	"price-scout/internal/config"
	"price-scout/internal/pricing"
	"price-scout/internal/registry"
	"price-scout/internal/scheduler"
	"price-scout/internal/scraper"
	"price-scout/internal/service"
	"price-scout/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// Engine bundles the wired scraping pipeline for one command invocation.
type Engine struct {
	Scraper    *scraper.Scraper
	Aggregator *pricing.Aggregator
	Metrics    *scraper.Metrics
	Store      *storage.Store
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	if a.Config.Database.AutoMigrate {
		if err := storage.Migrate(a.Config.Database.DSN); err != nil {
			return nil, nil, err
		}
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newEngine wires registry, scraper, and aggregator against the optional
// store. The returned cleanup must be called when the command finishes.
func (a *App) newEngine(ctx context.Context, withMetrics bool) (*Engine, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence and catalog disabled")
	}

	var catalog registry.Catalog
	var sink pricing.Sink
	if store != nil {
		catalog = store
		sink = store
	}

	var metrics *scraper.Metrics
	if withMetrics {
		metrics = scraper.NewMetrics()
	}

	reg := registry.New(catalog, a.Logger)
	engineScraper := scraper.New(scraper.Options{
		RateLimitPerDomain: a.Config.Scraper.RateLimitPerDomain,
		RateLimitWindow:    a.Config.Scraper.RateLimitWindow,
		RequestTimeout:     a.Config.Scraper.RequestTimeout,
		MaxRetries:         a.Config.Scraper.MaxRetries,
		BackoffBase:        a.Config.Scraper.BackoffBase,
		MaxConcurrent:      a.Config.Scraper.MaxConcurrent,
		MaxSources:         a.Config.Scraper.MaxSources,
	}, reg, metrics, a.Logger)
	aggregator := pricing.NewAggregator(engineScraper, sink, metrics, a.Logger)

	cleanup := func() {
		engineScraper.Close()
		if closeStore != nil {
			closeStore()
		}
	}

	return &Engine{
		Scraper:    engineScraper,
		Aggregator: aggregator,
		Metrics:    metrics,
		Store:      store,
	}, cleanup, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// Run executes the long-running watch service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, cleanup, err := a.newEngine(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Config.Metrics.Enabled {
		a.serveMetrics(ctx, engine.Metrics)
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToCycle,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	watcher := service.New(a.Config, sched, engine.Aggregator, a.newNotifier(), a.Logger)

	a.Logger.Info().Int("products", len(a.Config.Watch.Products)).Msg("starting watch service")
	err = watcher.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch service terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch service stopped")
	return nil
}

func (a *App) serveMetrics(ctx context.Context, metrics *scraper.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: a.Config.Metrics.ListenAddr, Handler: mux}
	go func() {
		a.Logger.Info().Str("addr", server.Addr).Msg("metrics endpoint listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

// ScrapeOptions configure a one-shot scrape command.
type ScrapeOptions struct {
	Product    string
	Country    string
	Currency   string
	MaxSources int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting reference-price history.
type ExportOptions struct {
	Product   string
	Country   string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
