package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/voicemetrics/updrs-meter/internal/cache"
	"github.com/voicemetrics/updrs-meter/internal/config"
	"github.com/voicemetrics/updrs-meter/internal/database"
	"github.com/voicemetrics/updrs-meter/internal/errors"
	"github.com/voicemetrics/updrs-meter/internal/frontend"
	"github.com/voicemetrics/updrs-meter/internal/middleware"
	"github.com/voicemetrics/updrs-meter/internal/monitoring"
	"github.com/voicemetrics/updrs-meter/internal/pipeline"
	"github.com/voicemetrics/updrs-meter/internal/ratelimit"
	"github.com/voicemetrics/updrs-meter/internal/security"
	"github.com/voicemetrics/updrs-meter/internal/synthesis"
	"github.com/voicemetrics/updrs-meter/internal/types"
)

// serverDeps bundles everything the router needs. Tests construct it with
// temp-dir artifacts; main constructs it from config.
type serverDeps struct {
	cfg         *config.Config
	pipe        *pipeline.Pipeline
	synthesizer *synthesis.Synthesizer
	history     *database.HistoryService
	db          *database.DB
	appCache    *cache.Cache
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	limiter     *ratelimit.RateLimiter
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Model artifacts are a hard startup dependency: nothing can be
	// predicted without them.
	artifacts, err := pipeline.LoadArtifacts(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to load model artifacts", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}
	pipe := pipeline.New(artifacts)
	synthesizer := synthesis.NewSynthesizer(pipe.Schema())

	slog.Info("Model artifacts loaded",
		"features", len(pipe.Schema()),
		"reduced_dim", pipe.ReducedDim())

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize history database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	history := database.NewHistoryService(database.NewRepository(db))
	history.StartCleanup(365 * 24 * time.Hour)

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		// Degraded, not fatal: the limiter falls back to in-memory.
		slog.Warn("Redis unavailable", "error", err)
	}
	defer redisClient.Close()

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	deps := &serverDeps{
		cfg:         cfg,
		pipe:        pipe,
		synthesizer: synthesizer,
		history:     history,
		db:          db,
		appCache:    cache.NewCache(cfg.CacheTTL),
		metrics:     appMetrics,
		logger:      appLogger,
		limiter: ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
			IPLimitPerMin:   cfg.IPLimitPerMin,
			BurstMultiplier: 2,
		}, appMetrics),
	}

	r := setupRouter(deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

func setupRouter(deps *serverDeps) *gin.Engine {
	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(deps.metrics, deps.logger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	compression := middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())
	r.Use(compression.Handler())

	securityConfig := security.DefaultConfig()
	securityMiddleware := security.NewMiddleware(securityConfig)
	r.Use(securityMiddleware.SecurityHeaders)
	r.Use(securityMiddleware.RequestTimeout)
	r.Use(securityMiddleware.ValidateContentType)

	r.Use(cors.New(cors.Config{
		AllowOrigins: securityConfig.AllowedOrigins,
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	r.Use(deps.limiter.Middleware())
	r.Use(deps.appCache.Middleware(deps.metrics))

	r.GET("/health", deps.handleHealth)
	r.GET("/schema", deps.handleSchema)
	r.POST("/predict", deps.handlePredict)

	r.GET("/history/recent", deps.handleHistoryRecent)
	r.GET("/history/stats", deps.handleHistoryStats)

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.metrics.GetStats())
	})
	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.appCache.Stats())
	})
	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": deps.db.GetPoolStats(),
		})
	})
	r.GET("/pools/compression", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "compression",
			"stats": compression.GetStats(),
		})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if staticFS, err := frontend.GetStaticFS(); err == nil {
		r.NoRoute(frontend.NewFormHandler(staticFS))
	} else {
		slog.Warn("Embedded form assets unavailable", "error", err)
	}

	return r
}

func (d *serverDeps) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"timestamp":   time.Now().Format(time.RFC3339),
		"version":     "1.0.0",
		"features":    len(d.pipe.Schema()),
		"reduced_dim": d.pipe.ReducedDim(),
	})
}

func (d *serverDeps) handleSchema(c *gin.Context) {
	schema := d.pipe.Schema()
	rules := make([]gin.H, len(schema))
	for i, name := range schema {
		rules[i] = gin.H{"name": name, "rule": synthesis.RuleFor(name)}
	}

	c.JSON(http.StatusOK, gin.H{
		"feature_count": len(schema),
		"features":      rules,
		"sliders":       types.SliderCatalog(),
	})
}

func (d *serverDeps) handlePredict(c *gin.Context) {
	start := time.Now()

	var req types.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.NewValidationError("invalid request body: " + err.Error())
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	inputs := req.Inputs.Clamped()
	vector := d.synthesizer.Synthesize(inputs)

	severity, err := d.pipe.Run(vector)
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	duration := time.Since(start)
	d.metrics.IncrementPrediction()
	d.logger.PredictionLogger(severity, len(vector), d.pipe.ReducedDim(), duration, c.GetBool("cache_hit"))

	// History writes are best-effort and must not block the response.
	go d.history.Record(inputs, severity, duration)

	c.JSON(http.StatusOK, types.PredictResponse{
		Severity:        severity,
		SeverityDisplay: fmt.Sprintf("%.2f", severity),
		FeatureCount:    len(vector),
		ReducedCount:    d.pipe.ReducedDim(),
	})
}

func (d *serverDeps) handleHistoryRecent(c *gin.Context) {
	limit := d.cfg.HistoryLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	recent, err := d.history.Recent(limit)
	if err != nil {
		d.logger.APIErrorLogger(err, "GET", "/history/recent", c.ClientIP(), http.StatusInternalServerError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       len(recent),
		"predictions": recent,
	})
}

func (d *serverDeps) handleHistoryStats(c *gin.Context) {
	stats, err := d.history.Stats()
	if err != nil {
		d.logger.APIErrorLogger(err, "GET", "/history/stats", c.ClientIP(), http.StatusInternalServerError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate history"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
