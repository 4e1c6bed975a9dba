// Package main is the entry point for the matching API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/duskbound/affinity/internal/api"
	"github.com/duskbound/affinity/internal/config"
	"github.com/duskbound/affinity/internal/db"
	"github.com/duskbound/affinity/internal/health"
	"github.com/duskbound/affinity/internal/match"
	"github.com/duskbound/affinity/internal/middleware"
	"github.com/duskbound/affinity/internal/ranking"
	"github.com/duskbound/affinity/internal/store"
	"github.com/duskbound/affinity/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Affinity API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "affinity-api",
		Enabled:      os.Getenv("TRACING_ENABLED") == "true",
		Environment:  cfg.Env,
		ExporterType: "otlp-grpc",
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		SamplingRate: 0.1,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	weights := ranking.DefaultWeights()
	if cfg.CalibrationPath != "" {
		weights, err = ranking.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			logger.Error("failed to load calibration file",
				"path", cfg.CalibrationPath,
				"error", err)
			os.Exit(1)
		}
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	profileStore := store.NewPostgresProfileStore(conn, logger)

	reg := prometheus.NewRegistry()
	matchMetrics := match.NewMetrics()
	if err := matchMetrics.Register(reg); err != nil {
		logger.Error("failed to register match metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(reg); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}

	// Rate limit state lives in Redis when configured so limits hold
	// across replicas; otherwise each replica counts on its own.
	var rateLimitStore middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	var redisChecker api.HealthChecker
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
		redisChecker = health.NewRedisChecker(redisClient)
	}

	engine := match.NewEngine(match.Config{
		Weights:          weights,
		ProximityDecayKm: cfg.ProximityDecayKm,
		CacheCapacity:    cfg.CacheCapacity,
		CacheTTL:         cfg.CacheTTL(),
		Logger:           logger,
		Metrics:          matchMetrics,
	})

	mux := api.NewRouter(api.RouterConfig{
		Score:   api.NewScoreHandlers(profileStore, engine, logger),
		Rank:    api.NewRankHandlers(profileStore, engine, cfg.CandidatePoolSize, logger),
		Profile: api.NewProfileHandlers(profileStore, logger),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    health.NewDBChecker(conn),
			RedisChecker: redisChecker,
		}),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ScoreLimiter: middleware.RateLimiter(rateLimitStore, middleware.DefaultScoreLimit(),
			middleware.ScopedKeyFunc("score", middleware.IPKeyFunc()), httpMetrics),
		RankLimiter: middleware.RateLimiter(rateLimitStore, middleware.DefaultRankLimit(),
			middleware.ScopedKeyFunc("rank", middleware.IPKeyFunc()), httpMetrics),
	})

	// Apply middleware: CORS -> RequestID -> Logging -> HTTPMetrics -> RateLimiter
	limited := middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc(), httpMetrics)(mux)
	handler := middleware.RequestID(middleware.Logging(logger)(middleware.HTTPMetrics(httpMetrics)(limited)))
	handler = middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins})(handler)

	if cfg.ProfilingEnabled {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
