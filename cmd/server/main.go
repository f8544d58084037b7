package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/analyzer"
	"github.com/stitts-dev/league-sim/internal/api/handlers"
	"github.com/stitts-dev/league-sim/internal/config"
	"github.com/stitts-dev/league-sim/internal/model"
	"github.com/stitts-dev/league-sim/internal/modelcache"
	"github.com/stitts-dev/league-sim/internal/scheduler"
	"github.com/stitts-dev/league-sim/internal/simulator"
	"github.com/stitts-dev/league-sim/internal/storage"
	"github.com/stitts-dev/league-sim/internal/store"
	"github.com/stitts-dev/league-sim/internal/ws"
	"github.com/stitts-dev/league-sim/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger("", cfg.IsDevelopment())
	logger.WithService("league-sim").WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
		"season":      cfg.Season,
	}).Info("Starting league simulation service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database is optional; simulations run entirely from request payloads,
	// but without it the refit sweep has no history source.
	var db *storage.DB
	var history *storage.HistoryRepository
	if cfg.DatabaseURL != "" {
		db, err = storage.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			structuredLogger.WithError(err).Warn("Database unavailable, continuing without persistence")
		} else {
			defer db.Close()
			history, err = storage.NewHistoryRepository(db)
			if err != nil {
				structuredLogger.Fatalf("Failed to initialize history repository: %v", err)
			}
		}
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			structuredLogger.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			structuredLogger.WithError(err).Warn("Redis unavailable, model cache will not persist")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Performance model fitting
	fitCfg := model.DefaultFitConfig()
	fitCfg.VarianceFloor = cfg.VarianceFloor
	fit := func(scores []float64) (*model.PerformanceModel, error) {
		return model.Fit(scores, fitCfg)
	}

	cacheOpts := []modelcache.Option{
		modelcache.WithLogger(structuredLogger.WithField("component", "model_cache")),
	}
	if redisClient != nil {
		cacheOpts = append(cacheOpts, modelcache.WithStore(
			store.NewRedisStore(redisClient, "league_sim", cfg.ModelTTL, structuredLogger),
		))
	}
	cache := modelcache.New(cfg.ModelTTL, fit, cacheOpts...)
	provider := simulator.NewCachedProvider(cache, fitCfg)

	// Trade and free-agent analysis
	analysisCfg := analyzer.DefaultConfig()
	analysisCfg.StarterWeight = cfg.StarterWeight
	analysisCfg.BenchWeight = cfg.BenchWeight
	analysisCfg.AcceptanceThreshold = cfg.AcceptanceThreshold
	analysisCfg.ImbalanceLimit = cfg.ImbalanceLimit
	tradeAnalyzer := analyzer.New(provider, analysisCfg, structuredLogger)

	// WebSocket hub for progress updates
	wsHub := ws.NewHub(structuredLogger)
	go wsHub.Run()

	// Periodic refit sweep keeps cached models warm between requests
	if history != nil {
		refitScheduler := scheduler.New(ctx, cache, history, cfg.ModelTTL, cfg.Season,
			structuredLogger.WithField("component", "refit_scheduler"))
		if err := refitScheduler.Register(cfg.RefitSchedule); err != nil {
			structuredLogger.Fatalf("Failed to register refit sweep: %v", err)
		}
		refitScheduler.Start()
		defer refitScheduler.Stop()
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	simulationHandler := handlers.NewSimulationHandler(provider, wsHub, cfg, structuredLogger)
	analysisHandler := handlers.NewAnalysisHandler(tradeAnalyzer, cfg, structuredLogger)
	healthHandler := handlers.NewHealthHandler(db, redisClient, cache, structuredLogger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/simulate/matchup", simulationHandler.SimulateMatchup)
		apiV1.POST("/simulate/season", simulationHandler.SimulateSeason)

		apiV1.POST("/trades/analyze", analysisHandler.AnalyzeTrade)
		apiV1.POST("/trades/targets", analysisHandler.FindTradeTargets)
		apiV1.POST("/freeagents/recommend", analysisHandler.RecommendFreeAgents)

		apiV1.GET("/cache/stats", healthHandler.GetCacheStats)
		apiV1.POST("/cache/clear", healthHandler.ClearCache)
	}

	router.GET("/ws/simulation-progress", wsHub.HandleWebSocket)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.WithService("league-sim").WithField("port", cfg.Port).Info("League simulation service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService("league-sim").Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService("league-sim").Info("Shutting down league simulation service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithService("league-sim").Fatalf("Service forced to shutdown: %v", err)
	}

	logger.WithService("league-sim").Info("League simulation service exited")
}
