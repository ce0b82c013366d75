package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/tuition/internal/infrastructure/persistence"
	"github.com/erp/tuition/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger is the database handle probed by the health check
type Pinger interface {
	Ping(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// HealthHandler serves the liveness and readiness probe
type HealthHandler struct {
	BaseHandler
	db        Pinger
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		version:   version,
		startTime: time.Now(),
		timeout:   2 * time.Second,
	}
}

// HealthResponse represents the health check payload
type HealthResponse struct {
	Status   string                       `json:"status"`
	Version  string                       `json:"version"`
	Uptime   string                       `json:"uptime"`
	Database string                       `json:"database"`
	Pool     *persistence.ConnectionStats `json:"pool,omitempty"`
}

// Register mounts GET /health on the engine root
func (h *HealthHandler) Register(engine *gin.Engine) {
	engine.GET("/health", h.Health)
}

// Health handles GET /health. It answers 503 when the database does not respond.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Database: "connected",
	}

	if err := h.db.Ping(ctx); err != nil {
		_ = c.Error(err)
		resp.Status = "unhealthy"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeServiceUnavailable, "Database is unreachable", getRequestID(c),
		).WithData(resp))
		return
	}

	if stats, err := h.db.Stats(); err == nil {
		resp.Pool = &stats
	}

	h.Success(c, resp)
}
