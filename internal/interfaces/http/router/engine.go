package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/logger"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/handler"
	"github.com/shophuyvan/shophuyvan-sub002/internal/interfaces/http/middleware"
)

// EngineConfig assembles the cart API
type EngineConfig struct {
	Logger      *zap.Logger
	Service     handler.CartService
	Health      handler.Pinger
	Backend     string
	CORS        middleware.CORSConfig
	MaxBodySize int64
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter    *middleware.RateLimiter
	Tracing        middleware.TracingConfig
	TrustedProxies []string
}

// NewEngine builds a gin engine with the middleware chain and cart routes
// mounted at the root and under /api/v1.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := logger.OrNop(cfg.Logger)
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Tracing(cfg.Tracing),
		middleware.TraceAttributes(),
		middleware.CORSWithConfig(cfg.CORS),
	)

	// body and rate limits apply to the cart group only
	cartMiddleware := []gin.HandlerFunc{middleware.BodyLimit(cfg.MaxBodySize)}
	if cfg.RateLimiter != nil {
		cartMiddleware = append(cartMiddleware, middleware.RateLimit(cfg.RateLimiter))
	}
	groups := []*DomainGroup{CartRoutes(handler.NewCartSyncHandler(cfg.Service), cartMiddleware...)}
	if cfg.Health != nil {
		groups = append(groups, HealthRoutes(handler.NewHealthHandler(cfg.Health, cfg.Backend)))
	}

	r := NewRouter(engine, WithRootMount())
	for _, group := range groups {
		r.Register(group)
		log.Debug("Registered route group", zap.String("group", group.Name()), zap.String("prefix", group.Prefix()))
	}
	r.Setup()

	return engine, nil
}
