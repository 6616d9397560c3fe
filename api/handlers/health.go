package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AnarQorp/qnet-scheduler/pkg/database"
)

// HealthHandler reports liveness and readiness. The database is optional;
// with no event sink configured the checks cover the scheduler alone.
type HealthHandler struct {
	db        *database.DB
	scheduler Scheduler
}

type Scheduler interface {
	IsRunning() bool
}

func NewHealthHandler(db *database.DB, scheduler Scheduler) *HealthHandler {
	return &HealthHandler{db: db, scheduler: scheduler}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Database  *DatabaseStatus   `json:"database,omitempty"`
}

type DatabaseStatus struct {
	Version         string `json:"version"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if h.scheduler != nil && h.scheduler.IsRunning() {
		checks["scheduler"] = "running"
	} else {
		checks["scheduler"] = "stopped"
		status = "unhealthy"
	}

	var dbStatus *DatabaseStatus
	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
			dbStatus = h.databaseStatus(ctx, checks)
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Database:  dbStatus,
	})
}

// databaseStatus collects server version and pool counters, and flags a
// missing events table so an unmigrated database is visible to operators.
func (h *HealthHandler) databaseStatus(ctx context.Context, checks map[string]string) *DatabaseStatus {
	version, err := h.db.ServerVersion(ctx)
	if err != nil {
		version = "unknown"
	}

	if exists, err := h.db.TableExists(ctx, "scheduler_events"); err == nil && !exists {
		checks["schema"] = "scheduler_events table missing, run with -migrate"
	}

	stats := h.db.PoolStats()
	return &DatabaseStatus{
		Version:         version,
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
	}
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.scheduler == nil || !h.scheduler.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "not ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Status:    "not ready",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
