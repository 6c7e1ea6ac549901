package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/story-reel/internal/config"
	"github.com/jwebster45206/story-reel/internal/generation"
	"github.com/jwebster45206/story-reel/internal/handlers"
	"github.com/jwebster45206/story-reel/internal/limiter"
	"github.com/jwebster45206/story-reel/internal/logger"
	"github.com/jwebster45206/story-reel/internal/middleware"
	"github.com/jwebster45206/story-reel/internal/services"
	"github.com/jwebster45206/story-reel/internal/services/events"
	"github.com/jwebster45206/story-reel/internal/session"
	"github.com/jwebster45206/story-reel/internal/storage"
	"github.com/jwebster45206/story-reel/internal/telemetry"
	"github.com/jwebster45206/story-reel/internal/video"
	"github.com/jwebster45206/story-reel/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Reel API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"text_model", cfg.TextModel,
		"image_model", cfg.ImageModel,
		"video_model", cfg.VideoModel,
		"content_rating", cfg.ContentRating)

	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	redisService, err := services.NewRedisService(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to configure redis", "error", err)
		os.Exit(1)
	}
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cacheCancel()
	if err := redisService.WaitForConnection(cacheCtx); err != nil {
		log.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established successfully")

	blobs := storage.NewRedisBlobStore(redisService.Client(), cfg.BlobTTL, log)
	conversations := services.NewCacheConversationStore(redisService, cfg.ConversationTTL)
	broadcaster := events.NewBroadcaster(redisService.Client(), log)

	gemini, err := services.NewGeminiService(context.Background(), services.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
	}, conversations, log)
	if err != nil {
		log.Error("Failed to create Gemini client", "error", err)
		os.Exit(1)
	}
	veo := services.NewVeoService(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.VideoModel, log)

	// One limiter fronts every model call so text, image and video requests
	// share the same quota.
	limiterCfg := limiter.DefaultConfig()
	limiterCfg.Concurrency = cfg.LimiterConcurrency
	limiterCfg.MinSpacing = cfg.LimiterSpacing
	limiterCfg.RetryServerErrors = cfg.LimiterRetry5xx
	lim := limiter.New(limiterCfg, log)

	text := generation.NewTextGenerator(gemini, lim, log,
		generation.WithFilter(textfilter.New(cfg.ContentRating)))
	images := generation.NewImageGenerator(gemini, lim, log)
	poller := video.NewPoller(veo, lim, log)
	poller.Timeout = cfg.VideoPollTimeout
	resolver := video.NewResolver(veo, blobs, log)

	manager := session.NewManager(session.Deps{
		Text:     text,
		Panels:   generation.NewPanelCoordinator(images, log),
		Poller:   poller,
		Resolver: resolver,
		Events:   broadcaster,
		Logger:   log,
	})
	// Blobs and conversations expire in redis; games expire here.
	manager.StartSweeper(cfg.SessionTTL, cfg.SessionSweepInterval)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(redisService, blobs, log)
	mux.Handle("/health", healthHandler)

	storyHandler := handlers.NewStoryHandler(text, log)
	mux.Handle("/v1/story", storyHandler)

	imageHandler := handlers.NewImageHandler(images, log)
	imageHandler.Timeout = cfg.ImageTimeout
	mux.Handle("/v1/image", imageHandler)

	videoHandler := handlers.NewVideoHandler(veo, lim, log)
	mux.Handle("/v1/video", videoHandler)

	topicsHandler := handlers.NewTopicsHandler(text, log)
	mux.Handle("/v1/topics", topicsHandler)

	gamesHandler := handlers.NewGamesHandler(manager, log)
	mux.Handle("/v1/games", gamesHandler)
	mux.Handle("/v1/games/", gamesHandler)

	blobsHandler := handlers.NewBlobsHandler(blobs, log)
	mux.Handle("/v1/blobs/", blobsHandler)

	eventsHandler := handlers.NewEventsHandler(redisService.Client(), log)
	mux.Handle("/v1/events/games/", eventsHandler)

	handler := middleware.LoggerWith(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE streams and video downloads run long
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Stop background panel and video work before the stores go away
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Error("Background work did not finish", "error", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	if err := redisService.Close(); err != nil {
		log.Error("Error closing redis connection", "error", err)
	}

	log.Info("Server exited")
}
