package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/modelcache"
	"github.com/stitts-dev/league-sim/internal/storage"
)

// HealthStatus is the standard health check body.
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler handles health check and cache management endpoints.
type HealthHandler struct {
	db     *storage.DB
	redis  *redis.Client
	cache  *modelcache.Cache
	logger *logrus.Logger
}

// NewHealthHandler creates a new health handler. db and redis may be nil when
// the service runs without persistence.
func NewHealthHandler(db *storage.DB, redisClient *redis.Client, cache *modelcache.Cache, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		cache:  cache,
		logger: logger,
	}
}

// GetHealth returns the basic health status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := HealthStatus{
		Status:    "ok",
		Service:   "league-sim",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	// Database is optional; simulations run entirely from request payloads
	if h.db != nil {
		if sqlDB, err := h.db.DB.DB(); err != nil || sqlDB.Ping() != nil {
			response.Status = "degraded"
			response.Checks["database"] = "failed"
		} else {
			response.Checks["database"] = "ok"
		}
	} else {
		response.Checks["database"] = "not_configured"
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			response.Status = "degraded"
			response.Checks["redis"] = "failed: " + err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	} else {
		response.Checks["redis"] = "not_configured"
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	c.JSON(statusCode, response)
}

// GetReady returns the readiness status. The service is ready as soon as it
// can fit models; persistence failures degrade but do not block readiness.
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := HealthStatus{
		Status:    "ready",
		Service:   "league-sim",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			response.Checks["redis"] = "failed: " + err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetCacheStats reports the model cache contents.
func (h *HealthHandler) GetCacheStats(c *gin.Context) {
	entries := h.cache.Entries()
	var oldest time.Time
	for _, e := range entries {
		if oldest.IsZero() || e.FitTime.Before(oldest) {
			oldest = e.FitTime
		}
	}

	stats := gin.H{
		"cached_models": len(entries),
		"timestamp":     time.Now(),
	}
	if !oldest.IsZero() {
		stats["oldest_fit"] = oldest
	}
	c.JSON(http.StatusOK, stats)
}

// ClearCache drops every cached model and purges the persistent store.
func (h *HealthHandler) ClearCache(c *gin.Context) {
	h.cache.Clear(c.Request.Context())
	h.logger.Info("Model cache cleared")
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
