package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waijian1/resume-parser-project/config"
	"github.com/waijian1/resume-parser-project/handler"
	"github.com/waijian1/resume-parser-project/middleware"
	"github.com/waijian1/resume-parser-project/pipeline"
	"github.com/waijian1/resume-parser-project/pkg/logger"
	"github.com/waijian1/resume-parser-project/pkg/metrics"
	"github.com/waijian1/resume-parser-project/pkg/resilience"
	"github.com/waijian1/resume-parser-project/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	m := metrics.New("resume_parser")
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MinIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MinIO bucket", "error", err)
		os.Exit(1)
	}

	ocrSvc := service.NewOCRService(&cfg.OCR)
	nerSvc := service.NewNERService(&cfg.NER, executor)
	mlflowSvc := service.NewMLflowService(&cfg.MLflow, executor)

	// Run tracking is best-effort: a missing tracking server must not
	// block startup.
	if err := mlflowSvc.EnsureExperiment(context.Background()); err != nil {
		slog.Warn("tracking experiment unavailable", "error", err)
	}

	// Initialize run store with config
	service.InitRunStore(&cfg.Store)

	poller := pipeline.NewPoller(ocrSvc, cfg.OCR.PollInterval(), cfg.OCR.PollTimeout())
	coordinator := pipeline.NewCoordinator(minioSvc, ocrSvc, nerSvc, mlflowSvc, poller, m, &cfg.Pipeline)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	resumeHandler := handler.NewResumeHandler(coordinator, service.GetRunStore(), cfg.Server.MaxUploadMB, cfg.Pipeline.PreviewChars)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(m.Middleware("resume_parser"))          // Prometheus metrics
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/resumes/upload", resumeHandler.Upload)
		protected.GET("/resumes", resumeHandler.List)
		protected.GET("/resumes/:id", resumeHandler.Get)
		protected.GET("/resumes/:id/status", resumeHandler.GetStatus)
		protected.DELETE("/resumes/:id", resumeHandler.Delete)
	}

	// Create server. Write timeout covers a full synchronous pipeline
	// run, which can poll for up to the configured OCR timeout.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.OCR.PollTimeout() + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
