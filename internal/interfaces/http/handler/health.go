package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/logger"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/dto"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether the backing store answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /health
type HealthHandler struct {
	BaseHandler
	store     Pinger
	backend   string
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store Pinger, backend string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		backend:   backend,
		startTime: time.Now(),
	}
}

// Check pings the store. 503 means the cart API cannot serve writes.
func (h *HealthHandler) Check(c *gin.Context) {
	resp := dto.HealthResponse{
		OK:      true,
		Status:  "healthy",
		Backend: h.backend,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		resp.OK = false
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	h.Success(c, resp)
}
