package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docflow_app_go/config"
	"docflow_app_go/db"
	"docflow_app_go/handlers"
	"docflow_app_go/middleware"
	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/jobs"
	"docflow_app_go/services/observability"
	"docflow_app_go/services/org"
	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	catalog, err := org.LoadCatalogOrDefault(cfg.OrgCatalogPath)
	if err != nil {
		logger.Fatal("failed to load organization catalog", zap.Error(err))
	}

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.User{}, &models.AuditLog{}, &models.Correspondence{}, &models.CorrespondenceHistory{}); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	if err := services.SeedAdminFromEnv(db.DB, catalog, logger); err != nil {
		logger.Fatal("failed to seed admin user", zap.Error(err))
	}

	healthChecks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	store, mongoClient, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open case store", zap.Error(err))
	}
	if mongoClient != nil {
		defer mongoClient.Disconnect(context.Background()) //nolint:errcheck
		healthChecks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.InitMetrics(registry)

	// Services
	storage := services.InitializeStorage(cfg, logger)
	mailer := services.NewMailer(cfg, logger)
	audit := services.NewAuditService(db.DB, logger)
	directory := services.NewUserDirectory(db.DB, catalog)
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)

	engine := routing.NewEngine(catalog, store, directory,
		routing.WithAuditSink(audit),
		routing.WithNotifier(services.NewAssignmentNotifier(mailer, cfg.AppURL)),
		routing.WithRecorder(metrics),
		routing.WithDocumentValidator(services.NewDocumentChecker(storage, logger)),
		routing.WithLogger(logger),
	)

	exportLoc := time.UTC
	if loc, err := time.LoadLocation(cfg.ReminderTimezone); err == nil {
		exportLoc = loc
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Middleware
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(logger, metrics))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit("1M"))

	// Public routes
	e.GET("/health", handlers.HealthHandler(healthChecks))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	loginLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Requests: 5,
		Window:   time.Minute,
		KeyFunc:  func(c echo.Context) string { return c.RealIP() },
		Message:  "too many login attempts, please wait a minute before trying again",
	})
	writeLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Requests: 120,
		Window:   time.Minute,
	})
	stopCleanup := make(chan struct{})
	go loginLimiter.Cleanup(time.Minute, stopCleanup)
	go writeLimiter.Cleanup(time.Minute, stopCleanup)

	auth := handlers.NewAuthHandler(directory, tokens, services.DefaultTokenTTL, logger)
	e.POST("/api/auth/login", auth.Login, loginLimiter.Middleware())

	// Protected API
	api := e.Group("/api", middleware.RequireAuth(tokens, directory), middleware.AuditContext())
	handlers.RegisterAPI(api, catalog,
		handlers.NewCorrespondenceHandler(engine, audit, exportLoc, logger),
		handlers.NewDirectoryHandler(catalog, directory),
		handlers.NewAuditLogHandler(db.DB, engine, exportLoc),
		auth,
		writeLimiter.Middleware(),
	)

	// Stale inbox reminders
	scheduler, err := jobs.NewScheduler(cfg)
	if err != nil {
		logger.Fatal("failed to create scheduler", zap.Error(err))
	}
	enabled, err := jobs.ScheduleReminders(scheduler, cfg.ReminderSchedule, &jobs.StaleInboxReminder{
		Inbox:     engine,
		Users:     directory,
		Sender:    mailer,
		Audit:     audit,
		Metrics:   metrics,
		AppURL:    cfg.AppURL,
		StaleDays: cfg.ReminderStaleDays,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to schedule reminders", zap.Error(err))
	}
	if enabled {
		scheduler.Start()
		logger.Info("stale inbox reminders scheduled", zap.String("schedule", cfg.ReminderSchedule))
	}

	// Start server
	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("case_store", cfg.CaseStore))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	close(stopCleanup)
	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	mailer.Wait()
	if !audit.Flush(5 * time.Second) {
		logger.Warn("audit log flush timed out")
	}
}

// openStore selects the case store named by CASE_STORE.
func openStore(cfg *config.Config, logger *zap.Logger) (routing.Store, *mongo.Client, error) {
	switch cfg.CaseStore {
	case config.CaseStoreMongo:
		client, err := db.ConnectMongo(context.Background(), cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		store := routing.NewMongoStore(client.Database(cfg.MongoDatabase))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.EnsureIndexes(ctx); err != nil {
			logger.Warn("failed to create mongo indexes", zap.Error(err))
		}
		return store, client, nil
	case config.CaseStoreMemory:
		logger.Warn("using in-memory case store; cases are lost on restart")
		return routing.NewMemoryStore(), nil, nil
	case config.CaseStoreSQL, "":
		return routing.NewGormStore(db.DB), nil, nil
	default:
		return nil, nil, errors.New("unknown CASE_STORE " + cfg.CaseStore)
	}
}
