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

	"reelgen-backend/internal/config"
	"reelgen-backend/internal/database"
	"reelgen-backend/internal/handlers"
	"reelgen-backend/internal/repository"
	"reelgen-backend/internal/router"
	"reelgen-backend/internal/services"
	"reelgen-backend/internal/websocket"
	"reelgen-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting ReelGen Backend...")

	ctx := context.Background()

	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("✗ Configuration error: %v", err)
	}
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	fileRepo := repository.NewFileRepo(pool)
	audioRepo := repository.NewAudioRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)

	// ──── Step 5: Initialize Object Storage ────
	storageService, err := services.NewStorageService(ctx, services.StorageConfig{
		Endpoint:        cfg.MinioEndpoint,
		AccessKey:       cfg.MinioAccessKey,
		SecretKey:       cfg.MinioSecretKey,
		Bucket:          cfg.MinioBucket,
		UseSSL:          cfg.MinioUseSSL,
		MaxUploadSizeMB: cfg.MaxUploadSizeMB,
	})
	if err != nil {
		log.Fatalf("✗ Object storage initialization failed: %v", err)
	}
	log.Println("✓ Object storage connected")

	// ──── Step 6: Initialize Gemini Client ────
	analyzerService, err := services.NewAnalyzerService(ctx, cfg.GeminiAPIKey, cfg.GeminiConcurrentRequests)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer analyzerService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	videoGenService := services.NewVideoGenService(services.VideoGenConfig{
		APIKey:       cfg.VideoAPIKey,
		BaseURL:      cfg.VideoAPIBaseURL,
		Model:        cfg.VideoModel,
		FramesModel:  cfg.VideoFramesModel,
		PollInterval: time.Duration(cfg.VideoPollIntervalSecs) * time.Second,
		MaxWait:      time.Duration(cfg.VideoMaxWaitSecs) * time.Second,
		HTTPTimeout:  time.Duration(cfg.HTTPTimeoutSecs) * time.Second,
		StoragePath:  cfg.StoragePath,
	})
	ttsService := services.NewTTSService(cfg.GoogleTTSAPIKey, time.Duration(cfg.HTTPTimeoutSecs)*time.Second)
	if ttsService.Enabled() {
		log.Println("✓ Text-to-speech enabled")
	} else {
		log.Println("– Text-to-speech disabled (no GOOGLE_TTS_API_KEY)")
	}
	muxService := services.NewMuxService(cfg.FFmpegPath, cfg.FFprobePath, cfg.StoragePath)
	extractService := services.NewFileExtractService()

	publisher := websocket.NewPublisher(redisClients.Queue)
	lease := services.NewSessionLease(redisClients.Queue, time.Duration(cfg.VideoMaxWaitSecs+120)*time.Second)
	pipeline := services.NewPipeline(
		sessionRepo,
		fileRepo,
		storageService,
		extractService,
		analyzerService,
		videoGenService,
		lease,
		publisher,
	)

	// ──── Step 7: Start Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		audioRepo,
		videoRepo,
		ttsService,
		videoGenService,
		storageService,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	reconciler := services.NewReconciler(fileRepo, storageService, time.Minute)
	reconciler.Start()
	log.Println("✓ Delete reconciler started")

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Handlers ────
	userHandler := handlers.NewUserHandler(userRepo)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, fileRepo, pipeline)
	fileHandler := handlers.NewFileHandler(fileRepo, storageService)
	contentHandler := handlers.NewContentHandler(analyzerService, videoGenService, videoRepo, storageService)
	audioHandler := handlers.NewAudioHandler(audioRepo, ttsService, storageService, redisClients.Queue)
	videoHandler := handlers.NewVideoHandler(videoRepo, storageService, redisClients.Queue)
	processingHandler := handlers.NewProcessingHandler(muxService, storageService)

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		userHandler,
		sessionHandler,
		fileHandler,
		contentHandler,
		audioHandler,
		videoHandler,
		processingHandler,
		wsHub,
		cfg.FrontendURL,
		cfg.GenerationRateLimit,
		time.Duration(cfg.GenerationRateWindowSecs)*time.Second,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
		// start-processing holds the request for the full generation run
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.VideoMaxWaitSecs+120) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		reconciler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ ReelGen Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
