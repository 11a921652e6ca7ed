package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skazka-server/internal/config"
	"skazka-server/internal/database"
	"skazka-server/internal/handler"
	"skazka-server/internal/interfaces"
	"skazka-server/internal/logger"
	"skazka-server/internal/messaging"
	"skazka-server/internal/service"
	"skazka-server/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	// Gin Prometheus middleware для метрик запросов
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

func main() {
	// --- Configuration ---
	// .env опционален: в контейнере конфигурация приходит из окружения
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	zap.ReplaceGlobals(zapLogger)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- External Connections ---
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := database.NewPgxPool(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	zap.L().Info("Connected to PostgreSQL")

	if err := database.ApplyMigrations(ctx, pgPool); err != nil {
		zap.L().Fatal("Failed to apply database migrations", zap.Error(err))
	}
	zap.L().Info("Database migrations applied")

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zap.L().Info("Connected to Redis")

	// RabbitMQ опционален: без него сервер работает, но события модерации
	// не публикуются.
	var publisher interfaces.ModerationPublisher
	if cfg.RabbitMQURL != "" {
		mqConn, err := messaging.ConnectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		mqPublisher, err := messaging.NewRabbitMQModerationPublisher(mqConn, cfg.ModerationEventQueue, zapLogger)
		if err != nil {
			zap.L().Fatal("Failed to create moderation event publisher", zap.Error(err))
		}
		defer mqPublisher.Close()
		publisher = mqPublisher
		zap.L().Info("Connected to RabbitMQ", zap.String("queue", cfg.ModerationEventQueue))
	} else {
		zap.L().Warn("RabbitMQ URL not set, moderation events disabled")
	}

	// Firebase Storage тоже опционален (NewFirebaseBlobStore вернет nil, nil
	// при пустом bucket).
	blobStore, err := storage.NewFirebaseBlobStore(ctx, storage.Config{
		Bucket:          cfg.StorageBucket,
		CredentialsPath: cfg.StorageCredentialsPath,
	}, zapLogger)
	if err != nil {
		zap.L().Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	// --- Dependency Injection ---
	txManager := database.NewTransactionHelper(pgPool, zapLogger)
	userRepo := database.NewPgUserRepository(zapLogger)
	storyRepo := database.NewPgStoryRepository(zapLogger)
	likeRepo := database.NewPgLikeRepository(zapLogger)
	taxonomyRepo := database.NewPgTaxonomyRepository(zapLogger)
	tokenRepo := database.NewRedisTokenRepository(redisClient, zapLogger)
	feedCache := database.NewFeedCache(redisClient, cfg.FeedCacheTTL, zapLogger)

	authSvc := service.NewAuthService(pgPool, userRepo, tokenRepo, cfg, zapLogger)
	storySvc := service.NewStoryService(pgPool, txManager, storyRepo, userRepo, taxonomyRepo,
		blobStore, publisher, feedCache, cfg.UploadTimeout, zapLogger)
	likeSvc := service.NewLikeService(pgPool, txManager, likeRepo, storyRepo, zapLogger)

	authHandler := handler.NewAuthHandler(authSvc)
	storyHandler := handler.NewStoryHandler(storySvc, likeSvc, authHandler)
	adminHandler := handler.NewAdminHandler(storySvc, authSvc, authHandler)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(handler.RequestLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	// CORS
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORS allowed origins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Health Check Endpoint
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// Register Application Routes
	authHandler.RegisterRoutes(router)
	storyHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router)

	// Prometheus middleware применяем после регистрации роутов
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}
