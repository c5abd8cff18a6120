package router

import (
	"github.com/gin-gonic/gin"

	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/handler"
)

// CartRoutes exposes GET, POST and DELETE on /cart/sync behind middleware
func CartRoutes(h *handler.CartSyncHandler, middleware ...gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("cart", "/cart").
		Use(middleware...).
		GET("/sync", h.Get).
		POST("/sync", h.Sync).
		DELETE("/sync", h.Clear)
}

// HealthRoutes exposes GET /health
func HealthRoutes(h *handler.HealthHandler) *DomainGroup {
	return NewDomainGroup("health", "").
		GET("/health", h.Check)
}
