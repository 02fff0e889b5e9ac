package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stampcard/internal/config"
	handlers "stampcard/internal/handlers/shared"
	"stampcard/internal/jobs"
	"stampcard/internal/middleware"
	"stampcard/internal/repositories/mongodb"
	"stampcard/internal/services"
	"stampcard/pkg/cache"
	"stampcard/pkg/database"
	"stampcard/pkg/logger"
	"stampcard/pkg/push"
	"stampcard/pkg/websocket"
	"stampcard/routes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  "stdout",
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.WithError(err).Fatal("Server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) error {
	// Storage
	db, err := database.NewMongoDB(ctx, &database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database, appLogger).Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Cache())
	if err != nil {
		return err
	}
	defer redisCache.Close()

	// Repositories
	tokenRepo := mongodb.NewQRTokenRepository(db.Database)
	walletRepo := mongodb.NewWalletRepository(db.Database)
	transactionRepo := mongodb.NewTransactionRepository(db.Database)
	businessRepo := mongodb.NewBusinessRepository(db.Database, redisCache)
	customerRepo := mongodb.NewCustomerRepository(db.Database)
	giftRepo := mongodb.NewGiftRepository(db.Database)
	reviewRepo := mongodb.NewReviewRepository(db.Database)

	// Realtime
	hub := websocket.NewHub(appLogger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	wsHandler := websocket.NewHandler(hub, cfg.WebSocket.Handler(), appLogger)

	pushProvider, err := newPushProvider(ctx, cfg.Push)
	if err != nil {
		return err
	}

	// Services
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	notificationService := services.NewNotificationService(redisCache, wsHandler, pushProvider, customerRepo, services.NotificationConfig{
		QueueSize:   cfg.Loyalty.NotificationQueueSize,
		Workers:     cfg.Loyalty.NotificationWorkers,
		Channel:     cfg.Loyalty.EventsChannel,
		PushTimeout: cfg.Push.Timeout,
	}, appLogger)
	if err := notificationService.StartRealtimeBridge(workerCtx); err != nil {
		return err
	}
	notificationService.Start(workerCtx)

	redemptionService := services.NewRedemptionService(
		tokenRepo,
		walletRepo,
		transactionRepo,
		businessRepo,
		customerRepo,
		giftRepo,
		notificationService,
		cfg.Loyalty,
		appLogger,
	)
	transactionService := services.NewTransactionService(transactionRepo, reviewRepo, appLogger)
	accountService := services.NewAccountService(walletRepo, giftRepo, customerRepo, tokenRepo, notificationService, appLogger)

	reaper := jobs.NewReaper(tokenRepo, cfg.Loyalty.ReaperSchedule, cfg.Loyalty.QRTokenRetention, appLogger)
	if err := reaper.Start(workerCtx); err != nil {
		return err
	}
	defer reaper.Stop()

	// Initialize handlers
	qrHandler := handlers.NewQRHandler(redemptionService, appLogger)
	giftHandler := handlers.NewGiftHandler(redemptionService, accountService, appLogger)
	transactionHandler := handlers.NewTransactionHandler(transactionService, appLogger)
	accountHandler := handlers.NewAccountHandler(accountService, appLogger)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.MetricsMiddleware())

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthRequired(cfg.Security.JWTSecret))
	{
		routes.SetupQRRoutes(v1, qrHandler, routes.SubmitLimit{
			Limiter:   redisCache,
			PerMinute: cfg.Loyalty.SubmitRateLimitPerMinute,
		}, appLogger)
		routes.SetupGiftRoutes(v1, giftHandler)
		routes.SetupTransactionRoutes(v1, transactionHandler)
		routes.SetupAccountRoutes(v1, accountHandler)
		v1.GET(cfg.WebSocket.Path, wsHandler.HandleWebSocket)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := db.Ping(checkCtx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		} else if err := redisCache.Ping(checkCtx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":            status,
			"version":           cfg.App.Version,
			"websocket_clients": hub.ConnectedClients(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start server
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}

	stopWorkers()
	notificationService.Wait()
	stopHub()
	return nil
}

func newPushProvider(ctx context.Context, cfg *config.PushConfig) (push.PushProvider, error) {
	switch cfg.Provider {
	case "fcm":
		provider, err := push.NewFCMProvider(ctx, cfg.FCM.ProjectID, cfg.FCM.Credentials)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "apns":
		provider, err := push.NewAPNSProvider(cfg.APNS.KeyFile, cfg.APNS.KeyID, cfg.APNS.TeamID, cfg.APNS.BundleID, cfg.APNS.Production)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "", "none":
		return push.NoopProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown push provider %q", cfg.Provider)
	}
}
