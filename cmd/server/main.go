package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/marmoleria/backend/docs"
	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/marmoleria/backend/internal/infrastructure/logger"
	"github.com/marmoleria/backend/internal/infrastructure/telemetry"
	"github.com/marmoleria/backend/internal/interfaces/http/middleware"
	"github.com/marmoleria/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Marmoleria Engine API
//	@version		1.0
//	@description	Inventory allocation and quote lifecycle engine for a stone and tile distributor.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := newTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if providers.logs.IsEnabled() {
		log = providers.logs.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	}

	log.Info("Starting marmoleria engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	a, err := newApp(ctx, cfg, log, providers.meters)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}
	if err := a.start(ctx); err != nil {
		log.Fatal("Failed to start background workers", zap.Error(err))
	}

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        newEngine(a),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.close(shutdownCtx)
	providers.shutdown(shutdownCtx, log)

	log.Info("Server exited")
}

// newEngine assembles the gin engine with global middleware and every route
func newEngine(a *app) *gin.Engine {
	cfg := a.cfg
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			a.log.Warn("Invalid trusted proxies, ignoring", zap.Error(err))
		}
	}

	// Order matters: request id first so every later log line carries it,
	// recovery before anything that might panic.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(a.log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled:          cfg.Telemetry.ProfilingEnabled,
		SkipPaths:        []string{"/health", "/metrics"},
		SkipPathPrefixes: []string{"/swagger"},
	}))
	engine.Use(logger.GinMiddleware(a.log))
	engine.Use(a.metrics.GinMiddleware())
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", a.handlers.System.Health)
	engine.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := router.NewRouter(engine)
	for _, group := range router.Domains(a.handlers, a.guards()) {
		r.Register(group)
	}
	r.Setup()

	return engine
}

// telemetryProviders groups the OpenTelemetry providers so they shut down together
type telemetryProviders struct {
	tracer   *telemetry.TracerProvider
	meters   *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

func newTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryProviders, error) {
	t := cfg.Telemetry
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
		SpanProfiles:      t.ProfilingEnabled,
	}, log)
	if err != nil {
		return nil, err
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           t.ProfilingEnabled,
		ServerAddress:     t.ProfilingServerAddress,
		ApplicationName:   t.ServiceName,
		BasicAuthUser:     t.ProfilingAuthUser,
		BasicAuthPassword: t.ProfilingAuthPassword,
		ProfileTypes:      t.ProfilingTypes,
	}, log)
	if err != nil {
		return nil, err
	}
	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.MetricsExportInterval,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	return &telemetryProviders{tracer: tracer, meters: meters, logs: logs, profiler: profiler}, nil
}

func (p *telemetryProviders) shutdown(ctx context.Context, log *zap.Logger) {
	if err := p.logs.Shutdown(ctx); err != nil {
		log.Warn("Log provider shutdown", zap.Error(err))
	}
	if err := p.meters.Shutdown(ctx); err != nil {
		log.Warn("Meter provider shutdown", zap.Error(err))
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer provider shutdown", zap.Error(err))
	}
	if err := p.profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown", zap.Error(err))
	}
}
