package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/actions"
	"github.com/matalai-travel/chat-backend/internal/api/handlers"
	redisCache "github.com/matalai-travel/chat-backend/internal/cache/redis"
	"github.com/matalai-travel/chat-backend/internal/catalog"
	"github.com/matalai-travel/chat-backend/internal/chat"
	"github.com/matalai-travel/chat-backend/internal/genai"
	"github.com/matalai-travel/chat-backend/internal/intent"
	"github.com/matalai-travel/chat-backend/internal/metrics"
	"github.com/matalai-travel/chat-backend/internal/middleware/ratelimit"
	"github.com/matalai-travel/chat-backend/internal/middleware/security"
	"github.com/matalai-travel/chat-backend/internal/middleware/validation"
	"github.com/matalai-travel/chat-backend/internal/retrieval"
	"github.com/matalai-travel/chat-backend/internal/store/postgres"
	"github.com/matalai-travel/chat-backend/pkg/config"
	appLogger "github.com/matalai-travel/chat-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Matalai chat API server")

	metrics.Register()

	storeClient, err := postgres.NewClient(cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns)
	if err != nil {
		appLogger.Fatal("Failed to create Postgres client", zap.Error(err))
	}
	defer storeClient.Close()

	cat, err := catalog.Load(cfg.Chat.RulesPath)
	if err != nil {
		appLogger.Fatal("Failed to load chat catalog", zap.Error(err))
	}

	matcher, err := intent.NewMatcher(cat.Rules)
	if err != nil {
		appLogger.Fatal("Failed to compile intent rules", zap.Error(err))
	}

	var replyCache chat.ReplyCache
	if cfg.Redis.Enabled {
		cacheClient, err := redisCache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Reply cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer cacheClient.Close()
			replyCache = cacheClient
		}
	}

	executor := actions.NewExecutor(storeClient)
	retriever := retrieval.NewRetriever(storeClient, cat, cfg.Chat.ContextMinLength, cfg.Chat.KnowledgeLimit)
	generator := genai.NewClient(cfg.GenAI)
	responder := chat.NewResponder(generator)

	pipeline := chat.NewPipeline(
		matcher,
		executor,
		retriever,
		responder,
		replyCache,
		cfg.Chat.HistoryLimit,
		time.Duration(cfg.Chat.CacheTTLSec)*time.Second,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		Logger:           appLogger.GetLogger(),
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 30,
		Logger:               appLogger.GetLogger(),
	})

	chatHandler := handlers.NewChatHandler(pipeline)
	wsHandler := handlers.NewWebSocketHandler(pipeline)

	api := app.Group("/api/v1")

	api.Post("/chat", limiter.Middleware(), chatHandler.HandleChat)

	api.Use("/chat/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/chat/ws", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
