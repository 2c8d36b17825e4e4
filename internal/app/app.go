package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/abk1969/ai-act-assistant-sub000/internal/config"
	"github.com/abk1969/ai-act-assistant-sub000/internal/domain"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ids"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/cache"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/directory"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/llm"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/ml"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/parser"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/scheduler"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/storage"
	"github.com/abk1969/ai-act-assistant-sub000/internal/infrastructure/telegram"
	"github.com/abk1969/ai-act-assistant-sub000/internal/logging"
	"github.com/abk1969/ai-act-assistant-sub000/internal/observability"
	"github.com/abk1969/ai-act-assistant-sub000/internal/ports"
	"github.com/abk1969/ai-act-assistant-sub000/internal/report"
	"github.com/abk1969/ai-act-assistant-sub000/internal/usecase"
)

const meterName = "github.com/abk1969/ai-act-assistant-sub000"

type summaryStore interface {
	ports.InsightStore
	ports.InsightReader
	io.Closer
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	store    summaryStore
	meters   *sdkmetric.MeterProvider
	closers  []io.Closer
}

// New builds the application from configuration. Only store failures are fatal;
// a broken cache, directory or generator degrades the run instead.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store)

	adapters, err := parser.BuildAdapters(parser.DefaultRegistry(nil), cfg.Sources, baseLogger.With("component", "source"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build sources: %w", err)
	}

	a.meters = sdkmetric.NewMeterProvider()
	metrics, err := observability.NewMetrics(a.meters.Meter(meterName))
	if err != nil {
		baseLogger.Warn("metrics disabled", "error", err)
		metrics = nil
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.Endpoint)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Adapters:   adapters,
		Generators: a.buildResolver(ctx),
		Store:      store,
		Directory:  a.loadDirectory(),
		Notifier:   notifier,
		IDs:        ids.UUID{},
		Metrics:    metrics,
		Logger:     baseLogger,
		Options: usecase.Options{
			DaysBack:          cfg.Pipeline.DaysBack,
			Sources:           cfg.Pipeline.EnabledSources,
			MinRelevanceScore: cfg.Pipeline.MinRelevance,
			ExcerptChars:      cfg.Pipeline.ExcerptChars,
			HourlyRate:        cfg.Pipeline.HourlyRate,
			Currency:          cfg.Pipeline.Currency,
		},
	})
	return a, nil
}

// Run performs a single pipeline execution and writes the report when configured.
func (a *Application) Run(ctx context.Context, req usecase.RunRequest) (usecase.RunResult, error) {
	res, err := a.pipeline.Run(ctx, req)
	if err != nil {
		return res, err
	}
	a.writeReport(res)
	return res, nil
}

// Watch runs the pipeline on the configured interval until ctx is cancelled.
func (a *Application) Watch(ctx context.Context, req usecase.RunRequest) error {
	if req.OrgID == "" {
		req.OrgID = a.cfg.Scheduler.OrgID
	}
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	s := usecase.NewScheduler(driver, a.pipeline, req, a.logger.With("component", "scheduler"))
	s.OnResult(a.writeReport)

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching for regulatory updates", "interval", a.cfg.Scheduler.Interval, "org", req.OrgID)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// Recent lists persisted summaries, newest first.
func (a *Application) Recent(ctx context.Context, orgID string, limit int) ([]domain.InsightSummary, error) {
	return a.store.Recent(ctx, orgID, limit)
}

// Close releases every opened resource.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.meters != nil {
		if err := a.meters.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Application) writeReport(res usecase.RunResult) {
	path := a.cfg.Report.Path
	if path == "" {
		return
	}
	if err := report.Write(path, a.cfg.Report.Title, res.Insights, res.Metrics.CompletedAt); err != nil {
		a.logger.Error("write report failed", "path", path, "error", err)
		return
	}
	a.logger.Info("report written", "path", path, "insights", len(res.Insights))
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (summaryStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: postgres dsn is empty", usecase.ErrStoreUnavailable)
		}
		repo, err := storage.OpenPostgres(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	case config.DriverSQLite, "":
		path := cfg.DSN
		if path == "" {
			path = config.DefaultSQLitePath()
		}
		return storage.NewSQLiteStore(filepath.Clean(path))
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func (a *Application) loadDirectory() ports.OrganizationDirectory {
	dir, err := directory.Load(a.cfg.OrganizationsFile)
	if err != nil {
		a.logger.Warn("organization directory unavailable", "path", a.cfg.OrganizationsFile, "error", err)
		return nil
	}
	return dir
}

func (a *Application) buildResolver(ctx context.Context) *llm.Resolver {
	gc := a.cfg.Generation
	responses := a.openCache(ctx, gc.Cache)

	fallback := a.buildGenerator(gc, responses)
	overrides := make(map[string]ports.TextGenerator, len(gc.Organizations))
	for org, provider := range gc.Organizations {
		if gen := a.buildGenerator(gc.ForProvider(provider), responses); gen != nil {
			overrides[org] = gen
		}
	}
	return llm.NewResolver(fallback, overrides)
}

// buildGenerator returns nil when the provider is disabled or misconfigured.
func (a *Application) buildGenerator(gc config.GenerationConfig, responses ports.ResponseCache) ports.TextGenerator {
	var gen ports.TextGenerator
	switch gc.Provider {
	case config.ProviderAnthropic:
		g, err := llm.NewAnthropicGenerator(gc)
		if err != nil {
			a.logger.Warn("generation disabled", "provider", gc.Provider, "error", err)
			return nil
		}
		gen = g
	case config.ProviderOpenAI:
		gen = llm.NewOpenAIGenerator(gc, nil)
	case config.ProviderInference:
		if gc.Endpoint == "" {
			a.logger.Warn("generation disabled", "provider", gc.Provider, "error", "endpoint is empty")
			return nil
		}
		gen = ml.NewClient(gc.Endpoint, gc.APIKey, gc.Model, gc.Timeout)
	case config.ProviderNone, "":
		return nil
	default:
		a.logger.Warn("unknown generation provider", "provider", gc.Provider)
		return nil
	}

	if responses == nil {
		return gen
	}
	scope := gc.Provider + ":" + gc.Model
	return llm.NewCachedGenerator(gen, responses, scope, gc.Cache.TTL, a.logger.With("component", "generation.cache"))
}

func (a *Application) openCache(ctx context.Context, cfg config.CacheConfig) ports.ResponseCache {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			a.logger.Warn("redis cache unavailable, using memory cache", "addr", cfg.RedisAddr, "error", err)
			_ = rc.Close()
			return cache.NewMemoryCache()
		}
		a.closers = append(a.closers, rc)
		return rc
	case "none":
		return nil
	default:
		return cache.NewMemoryCache()
	}
}
