package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"harbor-chat/internal/auth"
	"harbor-chat/internal/config"
	"harbor-chat/internal/events"
	"harbor-chat/internal/handler"
	"harbor-chat/internal/middleware"
	appredis "harbor-chat/internal/redis"
	"harbor-chat/internal/repository"
	"harbor-chat/internal/services"
	"harbor-chat/internal/storage"
	"harbor-chat/internal/websocket"
	"harbor-chat/pkg/database"
	"harbor-chat/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		appLogger.Errorf("connect postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.ApplyMigrations(ctx, pool, "migrations"); err != nil {
		appLogger.Errorf("apply migrations: %v", err)
		os.Exit(1)
	}

	redisClient, err := appredis.NewClient(ctx, appredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Errorf("connect redis: %v", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	objectStore, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.S3.Region,
		Bucket:     cfg.S3.Bucket,
		AccessKey:  cfg.S3.AccessKey,
		SecretKey:  cfg.S3.SecretKey,
		Endpoint:   cfg.S3.Endpoint,
		PresignTTL: cfg.S3.PresignTTL,
	})
	if err != nil {
		appLogger.Errorf("init object storage: %v", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := repository.NewPgUserRepository(pool)
	threadRepo := repository.NewPgThreadRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	attachmentRepo := repository.NewPgAttachmentRepository(pool)

	// Event bus and presence
	bus := events.NewRedisBus(redisClient, appLogger)
	presenceStore := appredis.NewPresenceStore(redisClient, 0)
	limiter := appredis.NewRateLimiter(redisClient, appredis.DefaultRateLimitConfig())

	// Services
	authService := auth.NewService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	threadService := services.NewThreadService(threadRepo, messageRepo, bus, appLogger)
	messageService := services.NewMessageService(threadRepo, messageRepo, attachmentRepo, bus, appLogger)
	attachmentService := services.NewAttachmentService(attachmentRepo, objectStore)
	presenceService := services.NewPresenceService(presenceStore, threadRepo, bus, appLogger)

	// Websocket fan-out
	hub := websocket.NewHub()
	go hub.Run(ctx)

	bridge := websocket.NewRedisBridge(bus, hub)
	stopBridge, err := bridge.Run(ctx)
	if err != nil {
		appLogger.Errorf("start redis bridge: %v", err)
		os.Exit(1)
	}
	defer stopBridge()

	authorizer := websocket.NewChannelAuthorizer(threadRepo)
	wsHandler := websocket.NewHandler(authService, hub, authorizer, presenceService, appLogger)

	// HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	threadHandler := handler.NewThreadHandler(threadService)
	messageHandler := handler.NewMessageHandler(messageService)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService)

	if cfg.Server.Environment == logger.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.ErrorHandler(appLogger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", middleware.AuthRateLimitMiddleware(limiter), authHandler.Login)

		// Browsers cannot set headers on websocket upgrades; the handler
		// authenticates via a token query parameter instead.
		v1.GET("/ws", wsHandler.Connect)

		authenticated := v1.Group("")
		authenticated.Use(middleware.AuthMiddleware(authService))
		{
			authenticated.GET("/threads", threadHandler.List)
			authenticated.POST("/threads", threadHandler.Create)
			authenticated.POST("/threads/:id/read", threadHandler.MarkRead)
			authenticated.GET("/threads/:id/messages", messageHandler.List)
			authenticated.POST("/threads/:id/messages", middleware.MessageRateLimitMiddleware(limiter), messageHandler.Send)
			authenticated.DELETE("/threads/:id/messages/:message_id", messageHandler.Delete)
			authenticated.POST("/attachments", attachmentHandler.CreateUpload)
			authenticated.GET("/attachments/:id/url", attachmentHandler.SignedURL)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Errorf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("shutdown: %v", err)
	}
}
