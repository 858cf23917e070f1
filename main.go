package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/config"
	"github.com/jotabap/web-conversor/pkg/handlers"
	"github.com/jotabap/web-conversor/pkg/llm"
	"github.com/jotabap/web-conversor/pkg/logging"
	"github.com/jotabap/web-conversor/pkg/middleware"
	"github.com/jotabap/web-conversor/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Env),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Bool("ai_configured", cfg.AI.IsConfigured()),
		zap.Duration("ai_timeout", cfg.AI.Timeout),
		zap.Float64("default_confidence_threshold", cfg.AI.DefaultConfidenceThreshold),
		zap.Int64("max_file_size", cfg.Files.MaxFileSize),
		zap.Strings("allowed_extensions", cfg.Files.AllowedExtensions))

	// A missing AI configuration is not fatal: every request falls back to
	// deterministic processing.
	completer, err := llm.NewCompleter(cfg.AI, logger)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("AI client not configured, running deterministic only")
		completer = nil
	case err != nil:
		logger.Error("Failed to create AI client, running deterministic only",
			zap.String("error", logging.SanitizeError(err)))
		completer = nil
	}

	ai := services.NewResolutionClient(completer, cfg.AI.Provider, cfg.AI.Timeout, logger)
	orchestrator := services.NewAnalysisOrchestrator(
		services.NewIssueDetector(logger),
		services.NewOptimizer(logger),
		ai,
		cfg.Policy,
		logger,
	)
	converter := services.NewConverterService(cfg.Files, orchestrator, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, ai, logger)
	healthHandler.RegisterRoutes(mux)

	convertHandler := handlers.NewConvertHandler(converter, cfg.Files, ai, cfg.AI.DefaultConfidenceThreshold, logger)
	convertHandler.RegisterRoutes(mux)

	handler := middleware.Chain(mux,
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.Recoverer(logger),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// A request may wait up to AI_TIMEOUT on the AI provider.
		WriteTimeout: cfg.AI.Timeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting web-conversor",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}
