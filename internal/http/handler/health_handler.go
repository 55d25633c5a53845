package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReadinessCheck reports the state of one optional dependency
type ReadinessCheck struct {
	Name string
	// Required checks turn the whole check unhealthy when they fail
	Required bool
	Check    func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	db     *gorm.DB
	checks []ReadinessCheck
	logger *zap.Logger
}

func NewHealthHandler(db *gorm.DB, logger *zap.Logger, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{db: db, checks: checks, logger: logger}
}

// Live is the basic liveness check
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Database is the readiness check with connection pool stats
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(h.db)
	if err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// Ready checks the database and every registered dependency. Optional
// dependencies are reported but do not fail the check.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(h.db); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			status := "degraded"
			if c.Required {
				status = "unhealthy"
				allHealthy = false
			}
			checks[c.Name] = map[string]interface{}{"status": status, "error": err.Error()}
			continue
		}
		checks[c.Name] = map[string]interface{}{"status": "healthy"}
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
