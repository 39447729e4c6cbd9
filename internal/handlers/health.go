package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/probes"
	"github.com/itsdone-dev/itsdone/internal/scheduler"
	"go.uber.org/zap"
)

const probeTimeout = 3 * time.Second

// HealthCheck reports the API status with the database and every configured dependency.
func (h *Handler) HealthCheck(c *gin.Context) {
	checks := append([]probes.Probe{{Name: "database", Check: db.Ping}}, h.Probes...)
	results := probes.Run(c.Request.Context(), probeTimeout, checks)

	status, code := "ok", http.StatusOK
	database := "connected"

	if results["database"].Status != probes.StatusUp {
		zap.L().Warn("health check: database unreachable", zap.String("error", results["database"].Error))
		status, code = "degraded", http.StatusServiceUnavailable
		database = "unreachable"
	} else if !probes.Healthy(results) {
		status = "degraded"
	}

	body := gin.H{
		"status":    status,
		"message":   "Its Done is running",
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  database,
		"checks":    results,
	}
	if sched := scheduler.Status(); sched != nil {
		body["scheduler"] = sched
	}

	c.JSON(code, body)
}
