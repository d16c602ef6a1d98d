package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"practice-analytics/internal/aggregate"
	"practice-analytics/internal/config"
	"practice-analytics/internal/handlers"
	"practice-analytics/internal/repository"
	"practice-analytics/internal/services"
	"practice-analytics/pkg/database"
	"practice-analytics/pkg/logging"
	"practice-analytics/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("practice-analytics-api", version, cfg.LogLevel())

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting practice analytics API server", logging.Fields{
		"version":       version,
		"server_host":   cfg.Server.Host,
		"server_port":   cfg.Server.Port,
		"db_enabled":    cfg.Database.Enabled,
		"merge_history": cfg.Analysis.MergeHistory,
	})

	metricsCollector := metrics.NewCollector("practice_analytics", prometheus.DefaultRegisterer)

	// The history store is optional; reports are still generated without it
	var reportRepo repository.ReportRepository
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg.DatabaseOptions(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{
				"db_host": cfg.Database.Host,
				"db_name": cfg.Database.Database,
			}, err)
		}
		defer db.Close()

		reportRepo = repository.NewReportRepository(db, logger, metricsCollector)
	}

	// Initialize services
	ingestionService := services.NewIngestionService(logger, metricsCollector)
	analysisService := services.NewAnalysisService(ingestionService, reportRepo, aggregate.DefaultStrength(), cfg.Analysis, logger, metricsCollector)
	historyService := services.NewHistoryService(reportRepo, logger, metricsCollector)
	sessions := services.NewSessionStore(cfg.Analysis.SessionTTL)

	reportHandler := handlers.NewReportHandler(analysisService, historyService, sessions, cfg.MaxUploadBytes(), logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestID, handlers.Instrument(metricsCollector))
	reportHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", handlers.RequestIDHeader, handlers.SessionIDHeader}),
		gorillahandlers.ExposedHeaders([]string{"Content-Disposition", handlers.RequestIDHeader, handlers.SessionIDHeader}),
	)
	recovery := gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(true))

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      recovery(cors(router)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
