// CodeJitsu - AI coding interview tutor server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codejitsu/codejitsu/internal/api"
	"github.com/codejitsu/codejitsu/internal/config"
	"github.com/codejitsu/codejitsu/internal/diagram"
	"github.com/codejitsu/codejitsu/internal/identity"
	"github.com/codejitsu/codejitsu/internal/llm"
	"github.com/codejitsu/codejitsu/internal/middleware"
	"github.com/codejitsu/codejitsu/internal/problems"
	"github.com/codejitsu/codejitsu/internal/session"
	"github.com/codejitsu/codejitsu/internal/store"
	"github.com/codejitsu/codejitsu/internal/tutor"
	"github.com/codejitsu/codejitsu/internal/voice"
	"github.com/codejitsu/codejitsu/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"llm_enabled", cfg.LLMEnabled(),
		"voice_enabled", cfg.VoiceEnabled(),
	)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	llmClient := llm.NewClient(llm.Options{
		BaseURL:            cfg.LLM.BaseURL,
		APIKey:             cfg.LLM.APIKey,
		RequestTimeout:     cfg.LLM.RequestTimeout,
		RateLimitPerMinute: cfg.LLM.RateLimitPerMinute,
	}, logger)
	if !cfg.LLMEnabled() {
		slog.Info("LLM credentials not configured, tutor endpoints will report errors")
	}

	tutorSvc := tutor.NewService(llmClient, cfg, logger)

	var voiceFactory session.VoiceClientFactory
	if cfg.VoiceEnabled() {
		voiceFactory = func() voice.Client {
			return voice.NewWSClient(cfg.Voice.ServerURL, cfg.Voice.PublicKey, logger)
		}
	} else {
		slog.Info("Voice credentials not configured, voice endpoints disabled")
	}

	sessions := session.NewManager(cfg, tutorSvc, repo, voiceFactory, logger)
	defer sessions.Close()

	// Initialize handlers.
	tutorHandler := tutor.NewHandler(tutorSvc)
	diagramHandler := diagram.NewHandler(llmClient, cfg, logger)
	sessionHandler := session.NewHandler(sessions, tutorSvc, repo)
	problemsHandler := problems.NewHandler()
	healthHandler := api.NewHealthHandler(repo, cfg)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	corsOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", promhttp.Handler())

	// API routes.
	tutorHandler.RegisterRoutes(r)
	diagramHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)
	problemsHandler.RegisterRoutes(r)
	r.Post("/api/run", api.RunHandler)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server.
	// Note: SSE connections require long timeouts (no WriteTimeout)
	// Keepalive runs every 10s to maintain connection
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,                 // 0 = no timeout for SSE support
		IdleTimeout:  120 * time.Second, // 2 minutes for idle connections
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
