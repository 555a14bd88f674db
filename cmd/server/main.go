package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nxtleveltech1/MantisNXT-sub016/internal/config"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/handler"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/infrastructure/database"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/logger"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/metrics"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/middleware"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/repository"
	"github.com/nxtleveltech1/MantisNXT-sub016/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration",
			slog.String("error", err.Error()))
	}
	logger.Init(cfg.LogLevel)

	dbCfg := database.PoolConfig{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		Database:          cfg.DBName,
		SSLMode:           cfg.DBSSLMode,
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	// Apply schema migrations before taking traffic
	if cfg.AutoMigrate {
		if err := database.RunMigrations(dbCfg, cfg.MigrationsDir); err != nil {
			logger.Fatal("Failed to run migrations",
				slog.String("error", err.Error()))
		}
	}

	// Connect to database
	pool, err := database.NewPostgres(context.Background(), dbCfg)
	if err != nil {
		logger.Fatal("Failed to connect to database",
			slog.String("error", err.Error()))
	}
	defer pool.Close()

	// Start database pool metrics collector
	poolStatsCollector := metrics.NewPoolStatsCollector(pool)
	poolStatsCollector.Start(15 * time.Second)
	defer poolStatsCollector.Stop()

	// Initialize repositories
	sessionStore := repository.NewPostgresSessionStore(pool)
	catalogStore := repository.NewPostgresCatalogStore(pool)

	// Initialize services
	importService := service.NewImportService(sessionStore, catalogStore)

	// Initialize handlers
	importHandler := handler.NewImportHandler(importService, cfg.MaxUploadRows, cfg.BackupsEnabled)
	healthHandler := handler.NewHealthHandler(pool)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(gin.Logger())

	// Health and metrics endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		imports := v1.Group("/imports")
		{
			imports.POST("/upload", importHandler.Upload)
			imports.POST("/:id/process", importHandler.Process)
			imports.GET("/:id", importHandler.GetSession)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server",
			slog.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server",
				slog.String("error", err.Error()))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	// Shutdown HTTP server; in-flight imports get the write timeout to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error",
			slog.String("error", err.Error()))
	}

	logger.Info("Server exited")
}
