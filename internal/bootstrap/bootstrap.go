package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpadapter "github.com/kirillkom/farmsure/internal/adapters/http"
	"github.com/kirillkom/farmsure/internal/config"
	"github.com/kirillkom/farmsure/internal/core/ports"
	"github.com/kirillkom/farmsure/internal/core/usecase"
	"github.com/kirillkom/farmsure/internal/infrastructure/events"
	kafkaevents "github.com/kirillkom/farmsure/internal/infrastructure/events/kafka"
	natsevents "github.com/kirillkom/farmsure/internal/infrastructure/events/nats"
	"github.com/kirillkom/farmsure/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/farmsure/internal/infrastructure/fingerprint"
	"github.com/kirillkom/farmsure/internal/infrastructure/imagery/staticmap"
	"github.com/kirillkom/farmsure/internal/infrastructure/report/pdfreport"
	"github.com/kirillkom/farmsure/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/farmsure/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/farmsure/internal/infrastructure/resilience"
	"github.com/kirillkom/farmsure/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/farmsure/internal/infrastructure/weather/openmeteo"
	"github.com/kirillkom/farmsure/internal/observability/metrics"
)

const serviceName = "farmsure-api"

type App struct {
	Config config.Config

	Repo     ports.ClaimRepository
	SubmitUC ports.ClaimSubmitter
	QueryUC  ports.ClaimReader
	Metrics  *metrics.HTTPServerMetrics
	Logger   *slog.Logger
	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	repo, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	app.Repo = repo

	storage, err := localfs.New(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executorCfg := resilience.DefaultConfig()
	executorCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(executorCfg)
	timeout := time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second

	weather, err := newWeatherProvider(cfg, timeout, executor, logger)
	if err != nil {
		return nil, err
	}
	imagery := staticmap.New(staticmap.Options{
		APIKey:   cfg.GoogleMapsAPIKey,
		BaseURL:  cfg.StaticMapURL,
		Zoom:     cfg.ImageryZoom,
		Size:     cfg.ImagerySize,
		Timeout:  timeout,
		Executor: executor,
	})
	if imagery.PlaceholderMode() {
		logger.Warn("imagery_placeholder_mode", "reason", "GOOGLE_MAPS_API_KEY is empty")
	}

	publisher, err := app.openEvents(executor)
	if err != nil {
		return nil, err
	}

	app.Metrics = metrics.NewHTTPServerMetrics(serviceName)
	pipeline := metrics.NewPipelineMetrics(serviceName, app.Metrics.Registry())
	hasher := fingerprint.New()

	app.SubmitUC = usecase.NewSubmitClaimUseCase(usecase.SubmitClaimDependencies{
		Repo:     repo,
		Storage:  storage,
		Weather:  weather,
		Imagery:  imagery,
		Renderer: pdfreport.New(storage, pdfreport.WithLogger(logger)),
		Hasher:   hasher,
		Events:   publisher,
		Observer: pipeline,
		Logger:   logger,
	})
	app.QueryUC = usecase.NewClaimQueryUseCase(repo, storage, hasher, pdfreport.NewInspector(), xlsx.NewExporter(), logger)
	return app, nil
}

// Handler builds the HTTP surface over the wired use cases.
func (a *App) Handler() http.Handler {
	return httpadapter.NewRouter(
		a.Config,
		a.SubmitUC,
		a.QueryUC,
		httpadapter.WithMetrics(a.Metrics),
		httpadapter.WithReadiness(a.Repo.Ping),
		httpadapter.WithLogger(a.Logger),
	).Handler()
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func (a *App) openStore(ctx context.Context) (ports.ClaimRepository, error) {
	switch a.Config.StoreDriver {
	case "", "sqlite":
		db, err := sqlite.Open(a.Config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo := sqlite.NewClaimRepository(db)
		a.closeFns = append(a.closeFns, func() { _ = repo.Close() })
		return repo, nil
	case "postgres":
		db, err := postgres.OpenDB(a.Config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		repo := postgres.NewClaimRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", a.Config.StoreDriver)
	}
}

func (a *App) openEvents(executor *resilience.Executor) (ports.EventPublisher, error) {
	switch a.Config.EventsBackend {
	case "", "none":
		return events.Noop{}, nil
	case "nats":
		publisher, err := natsevents.New(a.Config.NATSURL, a.Config.NATSSubject, natsevents.Options{
			ResilienceExecutor: executor,
			Logger:             a.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init nats publisher: %w", err)
		}
		a.closeFns = append(a.closeFns, publisher.Close)
		return publisher, nil
	case "kafka":
		publisher := kafkaevents.New(a.Config.KafkaBrokers, a.Config.KafkaTopic, a.Logger)
		a.closeFns = append(a.closeFns, func() { _ = publisher.Close() })
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported EVENTS_BACKEND %q", a.Config.EventsBackend)
	}
}

func newWeatherProvider(cfg config.Config, timeout time.Duration, executor *resilience.Executor, logger *slog.Logger) (ports.WeatherProvider, error) {
	switch cfg.WeatherProvider {
	case "", openmeteo.ProviderName:
		return openmeteo.New(openmeteo.Options{
			BaseURL:  cfg.OpenMeteoArchiveURL,
			Timeout:  timeout,
			Executor: executor,
			Logger:   logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported WEATHER_PROVIDER %q", cfg.WeatherProvider)
	}
}
