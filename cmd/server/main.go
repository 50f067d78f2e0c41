package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storyreel/api/internal/cache"
	"github.com/storyreel/api/internal/client"
	"github.com/storyreel/api/internal/config"
	"github.com/storyreel/api/internal/handler"
	"github.com/storyreel/api/internal/kv"
	"github.com/storyreel/api/internal/middleware"
	"github.com/storyreel/api/internal/model"
	"github.com/storyreel/api/internal/service"
	"github.com/storyreel/api/internal/store"
	ws "github.com/storyreel/api/internal/websocket"
	"github.com/storyreel/api/internal/worker"
	"github.com/storyreel/api/pkg/logger"
	"github.com/storyreel/api/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:    cfg.Server.LogLevel,
		Encoding: cfg.Server.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()
	sugar := zl.Sugar()

	// Redis backs both the durable slot and the task queue. When it is
	// unreachable the slot falls back to local files; queued processing
	// is unavailable in that mode.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	redisUp := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisUp = false
		sugar.Warnw("redis not available, using file-backed storage", "error", err)
	}

	var slot kv.KV
	if redisUp {
		slot = kv.NewRedisKV(redisClient, "storyreel")
	} else {
		fileKV, err := kv.NewFileKV(filepath.Join(cfg.Data.Dir, "kv"))
		if err != nil {
			sugar.Fatalw("init file storage", "error", err)
		}
		slot = fileKV
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	hub := ws.NewHub(sugar.Named("hub"))
	go hub.Run()

	storyStore := store.New(slot)
	jobs := service.NewJobTracker(slot)

	audioCache, err := cache.New(cfg.Cache.Capacity, cfg.Cache.Dir)
	if err != nil {
		sugar.Fatalw("init audio cache", "error", err)
	}

	pipeline := client.NewPipelineClient(&cfg.Pipeline, client.StaticToken(cfg.Pipeline.APIKey), sugar.Named("pipeline"))
	if !pipeline.IsConfigured() {
		sugar.Warn("pipeline base url not configured, upstream calls will fail")
	}

	var storage client.StorageClient
	if r2, err := client.NewR2Client(&cfg.R2); err == nil && r2.IsConfigured() {
		storage = r2
		sugar.Info("asset mirror enabled")
	}

	storyService := service.NewStoryService(pipeline, storyStore, storage, sugar.Named("story"))
	sceneService := service.NewSceneService(pipeline, storyStore, jobs, audioCache, storage, hub, asynqClient, cfg.Poll, sugar.Named("scene"))
	renderService := service.NewRenderService(pipeline, storyStore, jobs, storage, hub, asynqClient, cfg.Poll, sugar.Named("render"))

	storyHandler := handler.NewStoryHandler(storyService, validate)
	sceneHandler := handler.NewSceneHandler(sceneService, validate)
	renderHandler := handler.NewRenderHandler(renderService, jobs)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	stories := api.Group("/stories")
	stories.Post("/", storyHandler.Create)
	stories.Get("/", storyHandler.List)
	stories.Get("/active", storyHandler.Active)
	stories.Delete("/", storyHandler.Clear)

	api.Get("/voices", storyHandler.VoiceCatalog)

	scenes := api.Group("/scenes")
	scenes.Post("/generate-image", sceneHandler.GenerateImage)
	scenes.Post("/generate-audio", sceneHandler.GenerateAudio)
	scenes.Get("/completeness", sceneHandler.CheckStory)
	scenes.Get("/:sceneNumber/completeness", sceneHandler.CheckScene)

	api.Post("/render", renderHandler.Start)
	api.Get("/jobs/:jobId", renderHandler.JobStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	if redisUp {
		go startWorkerServer(cfg, sceneService, renderService, sugar)
	} else {
		sugar.Warn("task workers disabled without redis")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		sugar.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			sugar.Errorw("server shutdown", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	sugar.Infow("server starting", "addr", addr)
	if err := app.Listen(addr); err != nil {
		sugar.Fatalw("server error", "error", err)
	}
}

func startWorkerServer(cfg *config.Config, sceneService *service.SceneService, renderService *service.RenderService, sugar *zap.SugaredLogger) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 10,
			},
		},
	)

	sceneWorker := worker.NewSceneWorker(sceneService, sugar.Named("scene-worker"))
	renderWorker := worker.NewRenderWorker(renderService, sugar.Named("render-worker"))

	mux := asynq.NewServeMux()
	mux.HandleFunc(model.JobTypeSceneAudio, sceneWorker.ProcessTask)
	mux.HandleFunc(model.JobTypeRender, renderWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		sugar.Errorw("asynq worker error", "error", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    response.CodeServiceError,
			"message": message,
		},
	})
}
