// Package main provides the main entry point for the Fatoora invoicing service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatoora-io/fatoora/app/handlers"
	"github.com/fatoora-io/fatoora/app/middleware"
	"github.com/fatoora-io/fatoora/app/router"
	"github.com/fatoora-io/fatoora/app/scheduler"
	"github.com/fatoora-io/fatoora/app/services"
	businessflow "github.com/fatoora-io/fatoora/business_flow"
	"github.com/fatoora-io/fatoora/config"
	"github.com/fatoora-io/fatoora/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

// setupLogging routes the standard logger to stdout, a rotated file, or both
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output != "file" && cfg.Output != "both" {
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 7,
		MaxAge:     30, // days
		Compress:   true,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
		return
	}
	log.SetOutput(fileWriter)
}

func main() {
	log.Println("Starting Fatoora application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService builds the email delivery pipeline
func initializeNotificationService(cfg config.EmailConfig) services.NotificationService {
	var emailProvider services.EmailProvider

	switch cfg.Provider {
	case "smtp":
		emailProvider = services.NewSMTPEmailProvider(
			cfg.Host,
			cfg.Port,
			cfg.Username,
			cfg.Password,
			cfg.FromEmail,
			cfg.FromName,
			cfg.UseTLS,
		)
	default:
		emailProvider = services.NewMockEmailProvider()
	}

	return services.NewNotificationService(emailProvider)
}

// initializeRateLimiter selects the email rate limiter backend. Redis gives
// a shared window across instances; memory is the single-node fallback.
func initializeRateLimiter(cfg config.RateLimitConfig, rc *redis.Client) services.RateLimiter {
	if rc != nil {
		return services.NewRedisRateLimiter(rc, cfg.RedisPrefix, cfg.EmailLimit, cfg.EmailWindow)
	}
	log.Println("Redis unavailable, using in-memory email rate limiter")
	return services.NewMemoryRateLimiter(cfg.EmailLimit, cfg.EmailWindow)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)

	// Initialize services
	notificationService := initializeNotificationService(cfg.Email)
	rateLimiter := initializeRateLimiter(cfg.RateLimit, rc)
	artifactStorage := services.NewLocalArtifactStorage()

	qrService, err := services.NewQRService(cfg.Storage.ArtifactDir, cfg.Storage.QRCodeSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize qr service: %w", err)
	}

	pdfService, err := services.NewPDFService(cfg.Storage.ArtifactDir, cfg.Storage.FontPath, cfg.Storage.FontBoldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pdf service: %w", err)
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Background artifact rendering
	artifactWorker := scheduler.NewArtifactWorker(
		invoiceRepo,
		userRepo,
		qrService,
		pdfService,
		cfg.Worker.QueueSize,
		cfg.Worker.SweepInterval,
		log.Default(),
	)
	stopWorker := artifactWorker.Start(context.Background())
	stopFuncs = append(stopFuncs, stopWorker)

	// Initialize flows
	signupFlow := businessflow.NewSignupFlow(
		userRepo,
		sessionRepo,
		auditRepo,
		tokenService,
		cfg.Storage.BaseURL,
		db,
	)

	loginFlow := businessflow.NewLoginFlow(
		userRepo,
		sessionRepo,
		auditRepo,
		tokenService,
		db,
	)

	profileFlow := businessflow.NewProfileFlow(
		userRepo,
		invoiceRepo,
		auditRepo,
	)

	invoiceFlow := businessflow.NewInvoiceFlow(
		invoiceRepo,
		userRepo,
		auditRepo,
		artifactStorage,
		artifactWorker,
		db,
	)

	emailFlow := businessflow.NewEmailFlow(
		invoiceRepo,
		userRepo,
		emailLogRepo,
		auditRepo,
		notificationService,
		rateLimiter,
		artifactStorage,
		db,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(signupFlow, loginFlow)
	profileHandler := handlers.NewProfileHandler(profileFlow)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceFlow, emailFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		profileHandler,
		invoiceHandler,
		authMiddleware,
	)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
