package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/application/assistant"
	eventapp "github.com/marmoleria/backend/internal/application/event"
	"github.com/marmoleria/backend/internal/application/printing"
	quoteapp "github.com/marmoleria/backend/internal/application/quote"
	reservationapp "github.com/marmoleria/backend/internal/application/reservation"
	salesapp "github.com/marmoleria/backend/internal/application/sales"
	stockapp "github.com/marmoleria/backend/internal/application/stock"
	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared/valueobject"
	"github.com/marmoleria/backend/internal/domain/stock"
	"github.com/marmoleria/backend/internal/infrastructure/auth"
	"github.com/marmoleria/backend/internal/infrastructure/cache"
	"github.com/marmoleria/backend/internal/infrastructure/catalogfile"
	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/marmoleria/backend/internal/infrastructure/event"
	"github.com/marmoleria/backend/internal/infrastructure/logger"
	"github.com/marmoleria/backend/internal/infrastructure/metrics"
	"github.com/marmoleria/backend/internal/infrastructure/persistence"
	"github.com/marmoleria/backend/internal/infrastructure/persistence/models"
	printinfra "github.com/marmoleria/backend/internal/infrastructure/printing"
	"github.com/marmoleria/backend/internal/infrastructure/report"
	"github.com/marmoleria/backend/internal/infrastructure/scheduler"
	"github.com/marmoleria/backend/internal/infrastructure/storage"
	"github.com/marmoleria/backend/internal/infrastructure/telemetry"
	"github.com/marmoleria/backend/internal/infrastructure/textgen"
	"github.com/marmoleria/backend/internal/interfaces/http/handler"
	"github.com/marmoleria/backend/internal/interfaces/http/middleware"
	"github.com/marmoleria/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// app owns every long-lived component of the server
type app struct {
	cfg *config.Config
	log *zap.Logger

	db              *persistence.Database
	stores          *cache.Stores
	catalog         *catalog.Catalog
	ledger          *stock.Ledger
	bus             *event.InMemoryEventBus
	outboxRepo      *event.GormOutboxRepository
	processor       *event.OutboxProcessor
	scheduler       *scheduler.Scheduler
	metrics         *metrics.Registry
	businessMetrics *telemetry.BusinessMetrics
	renderer        *printinfra.ChromedpRenderer
	documents       storage.DocumentStore
	jwt             *auth.JWTService
	revocations     auth.Revocations

	handlers router.Handlers
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, meters *telemetry.MeterProvider) (*app, error) {
	a := &app{cfg: cfg, log: log}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      logger.GormLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	})
	if err != nil {
		return nil, err
	}
	a.db = db
	if cfg.Database.Driver == "sqlite" {
		// the SQL migrations target postgres
		if err := db.DB.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("auto-migrate sqlite: %w", err)
		}
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		return nil, err
	}

	a.catalog, err = catalogfile.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
	}
	log.Info("Catalog loaded", zap.String("path", cfg.Catalog.Path), zap.Int("products", len(a.catalog.Products())))

	// Repositories
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	reservationRepo := persistence.NewGormReservationRepository(db.DB)
	salesRepo := persistence.NewGormSalesRepository(db.DB)
	stockStore := persistence.NewGormStockStore(db.DB)
	a.outboxRepo = event.NewGormOutboxRepository(db.DB)

	a.stores, err = cache.NewStores(ctx, cfg, quoteRepo.MaxSequence, log)
	if err != nil {
		return nil, err
	}
	if client := a.stores.Client(); client != nil {
		a.revocations = auth.NewRedisRevocations(client)
	} else {
		a.revocations = auth.NewMemoryRevocations()
	}
	a.jwt = auth.NewJWTService(cfg.JWT)

	// Stock ledger
	policy, err := stock.ParseEligibilityPolicy(cfg.Ledger.EligibleContainerStatuses)
	if err != nil {
		return nil, fmt.Errorf("ledger.eligible_container_statuses: %w", err)
	}
	locker := stock.NewKeyedLocker(cfg.Ledger.LockTimeout)
	a.ledger = stock.NewLedger(stockStore, stock.WithEligibilityPolicy(policy), stock.WithLocker(locker))
	if err := a.ledger.Load(ctx); err != nil {
		return nil, fmt.Errorf("load stock ledger: %w", err)
	}
	defaultOrder, err := parseSourceOrder(cfg.Ledger.DefaultSourceOrder)
	if err != nil {
		return nil, fmt.Errorf("ledger.default_source_order: %w", err)
	}

	// Application services
	calculator := quote.NewCalculator(a.catalog, cfg.Catalog.DefaultProfile)
	quoteService := quoteapp.NewQuoteService(calculator, quoteRepo, a.stores.Sequence, log)
	reservationService := reservationapp.NewReservationService(a.ledger, a.catalog, quoteRepo, reservationRepo, locker, log)
	reservationService.SetDefaultSourceOrder(defaultOrder)
	salesService := salesapp.NewSalesService(salesRepo, reservationRepo, valueobject.Currency(cfg.Sales.Currency), log)
	stockService := stockapp.NewStockService(a.ledger, a.catalog, log)
	outboxService := eventapp.NewOutboxService(a.outboxRepo, log)

	exporter := report.NewXLSXExporter()
	stockService.SetExporter(exporter)
	salesService.SetExporter(exporter)

	if meters != nil && meters.IsEnabled() {
		a.businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:         meters.Meter("marmoleria"),
			Logger:        log,
			StockProvider: a.ledger,
		})
		if err != nil {
			return nil, err
		}
		quoteService.SetBusinessMetrics(a.businessMetrics)
		reservationService.SetBusinessMetrics(a.businessMetrics)
		salesService.SetBusinessMetrics(a.businessMetrics)
		a.businessMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.StockGaugeInterval)
	}

	documentService, err := a.newDocumentService(quoteRepo)
	if err != nil {
		return nil, err
	}

	// Events: handlers always run on the in-process bus. With the outbox on,
	// repositories store events in the same transaction and the processor
	// delivers them; otherwise services publish straight to the bus.
	a.bus = event.NewInMemoryEventBus(log)
	a.bus.Subscribe(event.NewIdempotentHandler(
		salesapp.NewDispatchedSaleHandler(salesService, log),
		a.stores.Idempotency, cfg.Event.IdempotencyTTL, log,
	))
	if documentService != nil && a.documents != nil && a.renderer != nil {
		a.bus.Subscribe(printing.NewQuoteArchiveHandler(documentService, log))
	}
	if cfg.Event.OutboxEnabled {
		publisher := event.NewOutboxPublisher(event.NewDomainEventSerializer(), cfg.Event.MaxRetries)
		quoteRepo.SetOutboxEventSaver(publisher)
		reservationRepo.SetOutboxEventSaver(publisher)
		if cfg.Event.ProcessorEnabled {
			a.processor = event.NewOutboxProcessor(a.outboxRepo, a.bus, event.NewDomainEventSerializer(), event.OutboxProcessorConfig{
				BatchSize:        cfg.Event.BatchSize,
				PollInterval:     cfg.Event.PollInterval,
				CleanupEnabled:   cfg.Event.CleanupEnabled,
				CleanupRetention: cfg.Event.CleanupRetention,
			}, log)
		}
	} else {
		quoteService.SetEventPublisher(a.bus)
		reservationService.SetEventPublisher(a.bus)
	}

	// Background jobs
	a.scheduler = scheduler.New(scheduler.Config{JobTimeout: cfg.Tracking.Timeout}, log)
	if cfg.Tracking.Enabled {
		job := scheduler.NewTrackingJob(scheduler.NewHTTPContainerFeed(cfg.Tracking.Endpoint, cfg.Tracking.Timeout), a.ledger, log)
		if err := a.scheduler.Register(cfg.Tracking.Schedule, job); err != nil {
			return nil, fmt.Errorf("tracking.schedule: %w", err)
		}
	}

	// Metrics
	a.metrics = metrics.NewRegistry(log)
	if err := a.metrics.Register(
		metrics.NewStockCollector(a.ledger),
		metrics.NewOutboxCollector(a.outboxRepo, log),
	); err != nil {
		return nil, err
	}

	var generator textgen.Generator = textgen.Disabled{}
	if cfg.TextGen.Enabled {
		openai, err := textgen.NewOpenAIGenerator(cfg.TextGen, log)
		if err != nil {
			return nil, err
		}
		generator = openai
	}

	system := handler.NewSystemHandler(cfg.App.Name, version)
	system.AddCheck("database", func(context.Context) error { return a.db.Ping() })
	if client := a.stores.Client(); client != nil {
		system.AddCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	}

	a.handlers = router.Handlers{
		Quote:       handler.NewQuoteHandler(quoteService),
		Reservation: handler.NewReservationHandler(reservationService),
		Stock:       handler.NewStockHandler(stockService),
		Sales:       handler.NewSalesHandler(salesService),
		Catalog:     handler.NewCatalogHandler(a.catalog),
		System:      system,
		Document:    handler.NewDocumentHandler(documentService),
		Assistant:   handler.NewAssistantHandler(assistant.NewAssistantService(salesService, a.catalog, generator, log)),
		Outbox:      handler.NewOutboxHandler(outboxService),
		Auth:        handler.NewAuthHandler(a.jwt, a.revocations),
	}
	a.setRetryAfter(cfg.HTTP.BusyRetryAfter)
	return a, nil
}

// newDocumentService wires the PDF renderer and the archive. Either may be
// absent; the service then reports UNAVAILABLE for what it cannot do.
func (a *app) newDocumentService(quoteRepo quote.QuoteRepository) (*printing.QuoteDocumentService, error) {
	cfg := a.cfg
	template, err := printinfra.NewQuoteTemplate()
	if err != nil {
		return nil, err
	}

	var renderer printinfra.PDFRenderer
	if cfg.Printing.Enabled {
		a.renderer = printinfra.NewChromedpRenderer(printinfra.ChromedpConfig{
			DefaultTimeout: cfg.Printing.Timeout,
			ExecPath:       cfg.Printing.ChromePath,
			RemoteURL:      cfg.Printing.RemoteURL,
			NoSandbox:      cfg.Printing.NoSandbox,
			Logger:         a.log,
		})
		renderer = a.renderer
	}

	if cfg.Storage.Enabled {
		s3, err := storage.NewS3Store(&cfg.Storage, storage.WithLogger(a.log), storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("storage bucket %s: %w", s3.Bucket(), err)
		}
		a.documents = s3
	} else {
		fs, err := storage.NewFileSystemStore(cfg.Storage.LocalPath, cfg.Storage.PublicBaseURL, a.log)
		if err != nil {
			return nil, err
		}
		a.documents = fs
	}

	return printing.NewQuoteDocumentService(quoteRepo, a.catalog, template, renderer, a.documents,
		printinfra.Company{Name: cfg.Printing.CompanyName, TaxID: cfg.Printing.CompanyTaxID}, a.log), nil
}

func (a *app) setRetryAfter(d time.Duration) {
	h := a.handlers
	for _, base := range []*handler.BaseHandler{
		&h.Quote.BaseHandler, &h.Reservation.BaseHandler, &h.Stock.BaseHandler, &h.Sales.BaseHandler,
		&h.Catalog.BaseHandler, &h.Document.BaseHandler, &h.Assistant.BaseHandler, &h.Outbox.BaseHandler,
		&h.Auth.BaseHandler, &h.System.BaseHandler,
	} {
		base.RetryAfter = d
	}
}

// guards builds the per-group middleware
func (a *app) guards() router.Guards {
	cfg := a.cfg
	actor := middleware.ActorAuth(middleware.ActorAuthConfig{
		JWTService:  a.jwt,
		Revocations: a.revocations,
		AllowHeader: cfg.HTTP.ActorHeader && !cfg.App.IsProduction(),
		Logger:      a.log,
	})
	limiter := middleware.NewRateLimiter(cfg.TextGen.RequestsPerMinute, time.Minute)
	return router.Guards{
		Actor:          []gin.HandlerFunc{actor, middleware.SpanAttributes()},
		AssistantLimit: middleware.RateLimitByActor(limiter),
	}
}

// start launches the background workers
func (a *app) start(ctx context.Context) error {
	if err := a.bus.Start(ctx); err != nil {
		return err
	}
	if a.processor != nil {
		if err := a.processor.Start(ctx); err != nil {
			return err
		}
	}
	a.scheduler.Start()
	return nil
}

// close stops the workers and releases connections, in reverse start order
func (a *app) close(ctx context.Context) {
	if err := a.scheduler.Stop(ctx); err != nil {
		a.log.Warn("Scheduler shutdown", zap.Error(err))
	}
	if a.processor != nil {
		if err := a.processor.Stop(ctx); err != nil {
			a.log.Warn("Outbox processor shutdown", zap.Error(err))
		}
	}
	if err := a.bus.Stop(ctx); err != nil {
		a.log.Warn("Event bus shutdown", zap.Error(err))
	}
	if a.businessMetrics != nil {
		a.businessMetrics.Stop()
	}
	if a.renderer != nil {
		_ = a.renderer.Close()
	}
	if closer, ok := a.documents.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if err := a.stores.Close(); err != nil {
		a.log.Warn("Cache shutdown", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("Database shutdown", zap.Error(err))
	}
}

// parseSourceOrder reads TYPE or TYPE:ID entries
func parseSourceOrder(entries []string) ([]stock.SourceKey, error) {
	inputs := make([]reservationapp.SourceInput, 0, len(entries))
	for _, e := range entries {
		typ, id, _ := strings.Cut(strings.TrimSpace(e), ":")
		inputs = append(inputs, reservationapp.SourceInput{Type: typ, ID: id})
	}
	return reservationapp.ParseSourceOrder(inputs)
}
