package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/adapter"
	"github.com/myfocus-app/service-billing/internal/application"
	"github.com/myfocus-app/service-billing/internal/auth"
	"github.com/myfocus-app/service-billing/internal/config"
	"github.com/myfocus-app/service-billing/internal/database"
	billingEvents "github.com/myfocus-app/service-billing/internal/events"
	"github.com/myfocus-app/service-billing/internal/handler"
	"github.com/myfocus-app/service-billing/internal/health"
	"github.com/myfocus-app/service-billing/internal/kafka"
	"github.com/myfocus-app/service-billing/internal/logger"
	"github.com/myfocus-app/service-billing/internal/middleware"
	"github.com/myfocus-app/service-billing/internal/repository"
	"github.com/myfocus-app/service-billing/internal/saga"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-billing")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-billing",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig.DSN(), zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.PromoModel{}, &repository.PaymentModel{}, &repository.SubscriptionModel{}); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.URL(), "migrations", zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Connect to Redis for the habit snapshot store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer redisClient.Close()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Initialize the payment gateway (mock outside production)
	var gateway adapter.PaymentGateway
	if cfg.AppEnv == "production" {
		gateway = adapter.NewYooKassaGateway(
			cfg.YooKassaConfig.ShopID,
			cfg.YooKassaConfig.SecretKey,
			cfg.YooKassaConfig.ReturnURL,
			zapLogger,
		)
	} else {
		gateway = adapter.NewMockGateway(zapLogger)
	}

	// Initialize repositories
	promoRepo := repository.NewGormPromoRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subRepo := repository.NewGormSubscriptionRepository(db)
	habitStore := repository.NewRedisSnapshotStore(redisClient)

	// Initialize saga and application services
	sagaService := saga.NewPaymentSagaService(paymentRepo, promoRepo, gateway, kafkaProducer, zapLogger)
	promoService := application.NewPromoService(promoRepo, zapLogger)
	paymentService := application.NewPaymentService(paymentRepo, subRepo, promoService, sagaService, kafkaProducer, zapLogger)
	subService := application.NewSubscriptionService(subRepo, zapLogger)
	habitService := application.NewHabitService(habitStore, zapLogger)

	// Initialize Kafka consumer for user events (trial provisioning)
	consumerGroupID := cfg.KafkaConfig.GroupPrefix + "billing-service"
	userConsumer := billingEvents.NewUserEventConsumer(
		cfg.KafkaConfig.Brokers,
		consumerGroupID,
		subService,
		zapLogger,
	)
	defer userConsumer.Close()

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting user event consumer")
		if err := userConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("user event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	promoHandler := handler.NewPromoHandler(promoService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	subHandler := handler.NewSubscriptionHandler(subService)
	habitHandler := handler.NewHabitHandler(habitService)
	adminHandler := handler.NewAdminHandler(promoService, paymentService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, redisClient, "service-billing")
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	promoHandler.RegisterRoutes(apiV1, jwtManager)
	paymentHandler.RegisterRoutes(apiV1, jwtManager)
	paymentHandler.RegisterWebhookRoutes(apiV1)
	subHandler.RegisterRoutes(apiV1, jwtManager)
	habitHandler.RegisterRoutes(apiV1, jwtManager)
	adminHandler.RegisterRoutes(apiV1, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-billing...")

	// Cancel Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-billing stopped")
}
