package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	migration "github.com/DigitumDei/WellnessWingman-sub001/cmd/database/migrate"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/handlers"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/routes"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/middleware"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/logging"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/storage"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/analysis"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/capture"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/credential"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/entry"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/jwt"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/keepalive"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/orchestrator"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/summary"
)

// Container owns every long-lived component of the process.
type Container struct {
	Config   utils.Config
	Logger   *logging.Logger
	DB       *gorm.DB
	Registry *prometheus.Registry

	Blobs        storage.BlobStore
	Credentials  credential.Store
	LLM          *llm.Factory
	KeepAlive    *keepalive.Coordinator
	Orchestrator *orchestrator.Orchestrator
	Recovery     *orchestrator.Recovery
	Entries      entry.EntryService
	Summaries    summary.SummaryService
	// JWT is nil when no secret is configured; the API is then unauthenticated.
	JWT jwt.JWTService

	DeviceLocation *time.Location
}

// NewContainer connects storage, migrates the schema and wires the services.
// Nothing is queued yet: call Recovery before accepting new work.
func NewContainer(ctx context.Context, cfg utils.Config) (*Container, error) {
	log, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Dir:        cfg.Log.Dir,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log.Logger)

	c := &Container{Config: cfg, Logger: log}
	if err := c.build(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	cfg := c.Config
	logger := c.Logger.Logger

	loc, err := deviceLocation(cfg.App.TimeZone)
	if err != nil {
		return err
	}
	c.DeviceLocation = loc

	c.DB, err = ConnectDB(cfg.Database)
	if err != nil {
		return err
	}
	if err := migration.Migrate(c.DB); err != nil {
		return err
	}

	c.Blobs, err = NewBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := orchestrator.NewMetrics(c.Registry)

	c.Credentials = credential.NewConfigStore(cfg.LLM)
	c.LLM = llm.NewFactory(c.Credentials, llm.FactoryOptions{
		BaseURLs: map[llm.Provider]string{
			llm.ProviderOpenAI: cfg.LLM.OpenAI.BaseURL,
			llm.ProviderGemini: cfg.LLM.Gemini.BaseURL,
		},
		Timeout:           time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Logger:            logger,
	})

	var guard keepalive.Guard = keepalive.NoopGuard{}
	if cfg.KeepAlive.Enabled {
		guard = keepalive.NewIndicatorGuard(logger, c.Registry)
	}
	permissions := keepalive.StaticPermission(true)
	c.KeepAlive = keepalive.NewCoordinator(guard, logger, keepalive.WithPermissionRequester(permissions))

	entries := entry.NewEntryRepository(c.DB)
	analyses := analysis.NewAnalysisRepository(c.DB)

	c.Orchestrator = orchestrator.New(entries, analyses, c.Blobs, c.LLM, c.KeepAlive, orchestrator.Options{
		MaxConcurrent:    cfg.Orchestrator.MaxConcurrent,
		SubscriberBuffer: cfg.Orchestrator.SubscriberBuffer,
		Logger:           logger,
		Metrics:          metrics,
	})
	c.Recovery = orchestrator.NewRecovery(entries, c.Orchestrator, logger, metrics)

	c.Entries = entry.NewEntryService(entry.Dependencies{
		Entries:             entries,
		Analyses:            analyses,
		Captures:            capture.NewCaptureStore(c.DB),
		Blobs:               c.Blobs,
		Queuer:              c.Orchestrator,
		Permissions:         permissions,
		LLM:                 c.LLM,
		PreviewMaxDimension: cfg.Capture.PreviewMaxDimension,
		DeviceLocation:      loc,
		Logger:              logger,
	})
	c.Summaries = summary.NewSummaryService(entries, analyses, c.LLM, loc, logger)

	if cfg.Auth.JWTSecret != "" {
		c.JWT = jwt.NewJWTService(cfg.Auth.JWTSecret)
	}
	return nil
}

// NewBlobStore picks the local directory store or S3.
func NewBlobStore(ctx context.Context, cfg utils.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case "", "local":
		return storage.NewLocalStore(cfg.Root)
	case "s3":
		return storage.NewAwsS3(ctx, storage.S3Config{
			Bucket:    cfg.AWSS3Bucket,
			Region:    cfg.AWSS3Region,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			Endpoint:  cfg.AWSEndpoint,
			Prefix:    cfg.Root,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func deviceLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load device time zone %q: %w", name, err)
	}
	return loc, nil
}

// NewApp builds the HTTP API over the container's services.
func NewApp(c *Container) *fiber.App {
	utils.InitValidator()
	validator := utils.Validate
	log := c.Logger.Logger

	app := fiber.New(fiber.Config{
		AppName:               c.Config.App.Name,
		DisableStartupMessage: true,
		BodyLimit:             32 << 20,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   c.DeviceLocation.String(),
		Output:     c.Logger.Writer,
	}))
	if c.Config.App.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        c.Config.App.RateLimit,
			Expiration: 1 * time.Second,
			Next: func(ctx *fiber.Ctx) bool {
				// long-lived event streams are not counted
				return ctx.Path() == "/api/v1/entries/events"
			},
		}))
	}

	// Handler
	captureHandler := handlers.NewCaptureHandler(c.Entries, validator, log)
	entryHandler := handlers.NewEntryHandler(c.Entries, c.Orchestrator, validator, log)
	summaryHandler := handlers.NewSummaryHandler(c.Summaries, validator)
	settingsHandler := handlers.NewSettingsHandler(c.Credentials, validator, log)

	// routes
	routesConfig := routes.Config{
		App:             app,
		CaptureHandler:  captureHandler,
		EntryHandler:    entryHandler,
		SummaryHandler:  summaryHandler,
		SettingsHandler: settingsHandler,
		Middleware:      middleware.NewMiddleware(),
		JWTService:      c.JWT,
		Metrics:         c.Registry,
	}
	routesConfig.Setup()
	return app
}

// Close drains the orchestrator and releases the database and log file.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Orchestrator != nil {
		if err := c.Orchestrator.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown orchestrator: %w", err))
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if c.Logger != nil {
		errs = append(errs, c.Logger.Close())
	}
	return errors.Join(errs...)
}
