package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harvestplace/backend/internal/infrastructure/persistence"
	"github.com/harvestplace/backend/internal/interfaces/http/dto"
	"github.com/harvestplace/backend/internal/interfaces/http/middleware"
)

// DatabaseProbe is what the health check needs from the database
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	db        DatabaseProbe
	version   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db DatabaseProbe, version string) *SystemHandler {
	return &SystemHandler{db: db, version: version, startTime: time.Now()}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string                      `json:"status"`
	Version   string                      `json:"version"`
	GoVersion string                      `json:"go_version"`
	Uptime    string                      `json:"uptime"`
	Database  *persistence.ConnectionStats `json:"database,omitempty"`
}

// Health handles GET /health. It answers 503 when the database is
// unreachable.
//
// @ID           health
// @Summary      Service health
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error: &dto.ErrorInfo{
				Code:      "DATABASE_UNAVAILABLE",
				Message:   "Database connection failed",
				RequestID: middleware.GetRequestID(c),
			},
		})
		return
	}
	if stats, err := h.db.Stats(); err == nil {
		resp.Database = &stats
	}
	h.Success(c, resp)
}
