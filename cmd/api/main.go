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

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"alfredoptarigan/resumeiq/internal/config"
	"alfredoptarigan/resumeiq/internal/handlers"
	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/pkg/logger"
	"alfredoptarigan/resumeiq/internal/repositories"
	"alfredoptarigan/resumeiq/internal/services"
	"alfredoptarigan/resumeiq/internal/tracer"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Println("✅ Config loaded successfully")

	appLog := logger.NewZapLogger(cfg.Log.File, cfg.IsProduction())
	defer appLog.Sync()

	ctx := context.Background()

	shutdownTracer, err := tracer.Init(ctx, tracer.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: "resumeiq-api",
		Version:     version,
		Environment: cfg.Server.Env,
	})
	switch {
	case err != nil:
		log.Printf("⚠️  %v (tracing disabled)", err)
	case cfg.Tracing.Enabled:
		log.Printf("✅ OpenTelemetry tracer initialized (endpoint: %s)", cfg.Tracing.Endpoint)
	default:
		log.Println("ℹ️  OpenTelemetry tracing is disabled (set OTEL_ENABLED=true to enable)")
	}

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	sessionRepo := repositories.NewSessionRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize generation backends
	httpClient := &http.Client{Timeout: cfg.LLM.Timeout}
	local := services.NewOllamaBackend(cfg.Local.URL, cfg.Local.Model, httpClient)

	gemini, err := services.NewGeminiBackend(ctx, cfg.Cloud.GeminiAPIKey)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}

	var cloud services.GenerationBackend
	switch cfg.Cloud.Provider {
	case "gemini":
		cloud = gemini
	default:
		cloud = services.NewOpenAIBackend(cfg.Cloud.OpenAIBaseURL, cfg.Cloud.OpenAIAPIKey, httpClient)
	}
	if !cloud.Configured() {
		log.Printf("⚠️  %s API key not set: cloud features will fail until it is configured", cloud.Name())
	}
	log.Printf("✅ Backends initialized (cloud: %s, local: %s @ %s)", cloud.Name(), cfg.Local.Model, cfg.Local.URL)

	dispatcher := services.NewDispatcher(
		[]services.GenerationBackend{cloud, local},
		services.NewResponseNormalizer(),
		services.DispatchOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			StrictJSON:  cfg.LLM.StrictJSON,
		},
		appLog,
	)

	settings, err := services.NewSettingsStore(settingsRepo, dispatcher, models.Settings{
		LocalModel: cfg.Local.Model,
		CloudModel: cloud.DefaultModel(),
	})
	if err != nil {
		log.Fatalf("❌ Failed to load settings: %v", err)
	}

	templates, err := services.NewTemplateStore()
	if err != nil {
		log.Fatalf("❌ Failed to load prompt templates: %v", err)
	}
	benchmarks, err := services.LoadBenchmarkTable()
	if err != nil {
		log.Fatalf("❌ Failed to load benchmark table: %v", err)
	}

	// Initialize Qdrant
	profileIndex := services.NewNopProfileIndex()
	if cfg.Qdrant.URL != "" && gemini.Configured() {
		store, err := services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			log.Fatalf("❌ Failed to initialize Qdrant collection: %v", err)
		}
		profileIndex = services.NewProfileIndex(store, gemini, services.NewTextChunker())
		log.Println("✅ Qdrant profile index initialized successfully")
	} else {
		log.Println("ℹ️  Qdrant or Gemini embeddings not configured: similar-profile search disabled")
	}

	extractor := services.NewTextExtractor()
	profiles := services.NewProfileService(profileRepo, extractor, profileIndex, appLog)

	analyzer := services.NewAnalyzerService(
		sessionRepo,
		templates,
		services.NewPromptBuilder(templates, benchmarks),
		dispatcher,
		settings,
		profiles,
		appLog,
	)
	log.Println("✅ Analyzer service initialized")

	storageService := services.NewStorageService(cfg.Storage.ExportPath)
	if err := storageService.EnsureExportDir(); err != nil {
		log.Fatalf("❌ Failed to create export directory: %v", err)
	}
	exporter := services.NewExportService(storageService, "/api/v1/exports")

	// Rate limiting: Redis when configured, process memory otherwise
	var counter services.WindowCounter
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.Redis.URL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		counter = services.NewRedisCounter(rdb)
		log.Println("✅ Redis rate limiter initialized")
	} else {
		counter = services.NewMemoryCounter()
		log.Println("ℹ️  REDIS_URL not set: using in-memory rate limiter")
	}
	limiter := services.NewRateLimiter(counter, services.RateLimits{
		UserRPM:      cfg.RateLimit.UserRPM,
		GlobalRPM:    cfg.RateLimit.GlobalRPM,
		SafetyMargin: cfg.RateLimit.SafetyMargin,
	}, appLog)

	// Initialize worker
	worker := services.NewWorker(
		sessionRepo,
		analyzer,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
	)

	// Start worker
	worker.Start(ctx)

	// Initialize Handlers
	h := &handlers.Handlers{
		Analyze:  handlers.NewAnalyzeHandler(analyzer, services.NewStatusService(cloud, local)),
		Session:  handlers.NewSessionHandler(analyzer, worker),
		Upload:   handlers.NewUploadHandler(extractor, cfg.Storage.MaxFileSize),
		Profile:  handlers.NewProfileHandler(profiles, cfg.Storage.MaxFileSize),
		Settings: handlers.NewSettingsHandler(settings),
		Export:   handlers.NewExportHandler(exporter),
	}
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ResumeIQ API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 10*time.Second,
		// Multi-file uploads carry several documents per request.
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 5,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + handlers.HeaderUserID,
	}))

	// Routes
	handlers.Register(app.Group("/api/v1"), h, handlers.RateLimit(limiter))

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "ResumeIQ API",
			"version": version,
			"endpoints": []string{
				"POST /api/v1/analyze",
				"POST /api/v1/sessions",
				"POST /api/v1/sessions/:id/run",
				"GET /api/v1/sessions/:id",
				"POST /api/v1/extract",
				"GET /api/v1/features",
				"GET /api/v1/models/status",
				"GET|PUT /api/v1/settings",
				"GET|POST|DELETE /api/v1/profiles",
				"POST /api/v1/profiles/similar",
				"POST /api/v1/exports/{cover-letter,resume,report}",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Printf("❌ Failed to flush traces: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 API Documentation: http://localhost%s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
