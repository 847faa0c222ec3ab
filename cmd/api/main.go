package main

import (
	"context"
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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/docintel/backend/internal/agents"
	"github.com/docintel/backend/internal/api/handlers"
	"github.com/docintel/backend/internal/cache"
	"github.com/docintel/backend/internal/llm"
	"github.com/docintel/backend/internal/metrics"
	"github.com/docintel/backend/internal/middleware/ratelimit"
	"github.com/docintel/backend/internal/middleware/security"
	"github.com/docintel/backend/internal/middleware/validation"
	"github.com/docintel/backend/internal/orchestrator"
	"github.com/docintel/backend/internal/storage/sqlite"
	"github.com/docintel/backend/internal/tasks"
	"github.com/docintel/backend/internal/vector"
	vectormem "github.com/docintel/backend/internal/vector/memory"
	"github.com/docintel/backend/internal/vector/milvus"
	"github.com/docintel/backend/pkg/config"
	appLogger "github.com/docintel/backend/pkg/logger"
)

func main() {
	godotenv.Load()

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

	appLogger.Info("Starting document intelligence API server")

	metrics.Init()

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		appLogger.Fatal("Failed to create storage directory", zap.Error(err))
	}

	sqliteClient, err := sqlite.NewClient(cfg.Storage.SQLitePath)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var vectorStore vector.Store
	switch cfg.Vector.Backend {
	case "milvus":
		milvusClient, err := milvus.NewClient(
			cfg.Vector.Endpoint,
			cfg.Vector.CollectionName,
			cfg.Vector.Dim,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
		}
		if err := milvusClient.EnsureCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to ensure collection", zap.Error(err))
		}
		vectorStore = milvusClient
	default:
		vectorStore = vectormem.NewStore()
	}
	defer vectorStore.Close()

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	var cacheStore cache.Store
	var redisCache *cache.Redis
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisCache.Close()
		cacheStore = redisCache
	} else {
		appLogger.Info("No redis address configured, using in-memory cache")
		cacheStore = cache.NewMemory()
	}

	registry := tasks.NewRegistry(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	pool, err := tasks.NewPool(cfg.Async.Workers, cfg.Async.QueueSize)
	if err != nil {
		appLogger.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	orch := orchestrator.New(
		agents.NewIngestion(),
		agents.NewIndexing(llmClient),
		agents.NewQA(llmClient, vectorStore, llmClient),
		sqliteClient,
		vectorStore,
		cacheStore,
		registry,
		pool,
		orchestrator.Config{
			StorageDir:   cfg.Storage.Dir,
			CacheEnabled: cfg.Cache.Enabled,
			CacheTTL:     time.Duration(cfg.Cache.TTLSeconds) * time.Second,
			AsyncEnabled: cfg.Async.Enabled,
			TopK:         cfg.Vector.TopK,
		},
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.Headers(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{}))
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Method(),
			c.Route().Path,
			fmt.Sprintf("%d", c.Response().StatusCode()),
		).Observe(time.Since(start).Seconds())
		return err
	})

	documentHandler := handlers.NewDocumentHandler(orch)
	queryHandler := handlers.NewQueryHandler(orch)
	taskHandler := handlers.NewTaskHandler(orch)

	var redisProbe func(c *fiber.Ctx) bool
	if redisCache != nil {
		redisProbe = func(c *fiber.Ctx) bool {
			return redisCache.Connected(c.Context())
		}
	}
	healthHandler := handlers.NewHealthHandler(cfg.Cache.Enabled, cfg.Async.Enabled, redisProbe)

	app.Get("/", handlers.Root)
	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api")

	api.Get("/health", healthHandler.Health)

	api.Post("/upload", documentHandler.Upload)
	api.Post("/upload/async", documentHandler.UploadAsync)
	api.Get("/documents", documentHandler.ListDocuments)
	api.Delete("/documents/:name", documentHandler.DeleteDocument)

	api.Get("/tasks/:id", taskHandler.GetTask)
	api.Get("/tasks/:id/watch", websocket.New(taskHandler.WatchTask))

	api.Post("/ask", queryHandler.Ask)
	api.Delete("/cache", queryHandler.ClearCache)

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
