package cache

import (
	"fmt"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/config"
	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/persistence"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// CartStoreFactory creates the cart record store selected by configuration
type CartStoreFactory struct {
	cartConfig     config.CartConfig
	redisConfig    config.RedisConfig
	databaseConfig config.DatabaseConfig
	logger         *zap.Logger
	dbTracing      bool
	openPostgres   func(*config.DatabaseConfig, ...persistence.DatabaseOption) (*persistence.Database, error)
}

// CartStoreFactoryOption is a functional option for configuring the factory
type CartStoreFactoryOption func(*CartStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CartStoreFactoryOption {
	return func(f *CartStoreFactory) {
		f.logger = logger
	}
}

// WithDBTracing enables otelgorm spans on the postgres backend
func WithDBTracing(enabled bool) CartStoreFactoryOption {
	return func(f *CartStoreFactory) {
		f.dbTracing = enabled
	}
}

// NewCartStoreFactory creates a new factory
func NewCartStoreFactory(cfg *config.Config, opts ...CartStoreFactoryOption) *CartStoreFactory {
	f := &CartStoreFactory{
		cartConfig:     cfg.Cart,
		redisConfig:    cfg.Redis,
		databaseConfig: cfg.Database,
		logger:         zap.NewNop(),
		openPostgres:   persistence.NewDatabase,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore connects to Redis
func (f *CartStoreFactory) CreateRedisStore() (*RedisCartStore, error) {
	store, err := NewRedisCartStore(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.cartConfig.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis cart store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore creates a process-local store.
// Records are lost on restart and not shared between instances.
func (f *CartStoreFactory) CreateInMemoryStore() *InMemoryCartStore {
	return NewInMemoryCartStore(0)
}

// CreatePostgresStore opens the database and wraps it in a GormCartStore
func (f *CartStoreFactory) CreatePostgresStore() (*persistence.GormCartStore, error) {
	db, err := f.openPostgres(&f.databaseConfig,
		persistence.WithLogger(f.logger, gormlogger.Warn),
		persistence.WithTracing(f.dbTracing),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres cart store: %w", err)
	}
	return persistence.NewGormCartStore(db.DB), nil
}

// CreateStore creates the configured backend. When Redis or Postgres is
// unreachable it falls back to memory if cart.allow_memory_fallback is set.
func (f *CartStoreFactory) CreateStore() (cart.RecordStore, error) {
	var (
		store cart.RecordStore
		err   error
	)

	switch f.cartConfig.Backend {
	case config.BackendMemory:
		f.logger.Info("using in-memory cart store")
		return f.CreateInMemoryStore(), nil
	case config.BackendPostgres:
		var s *persistence.GormCartStore
		if s, err = f.CreatePostgresStore(); err == nil {
			store = s
		}
	default:
		var s *RedisCartStore
		if s, err = f.CreateRedisStore(); err == nil {
			store = s
		}
	}

	if err == nil {
		f.logger.Info("using cart store", zap.String("backend", f.cartConfig.Backend))
		return store, nil
	}

	if !f.cartConfig.AllowMemoryFallback {
		return nil, fmt.Errorf("%s required for cart records but unavailable: %w", f.cartConfig.Backend, err)
	}

	f.logger.Warn("cart store unavailable, falling back to in-memory store. "+
		"Carts will not be shared across instances or survive a restart.",
		zap.String("backend", f.cartConfig.Backend),
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
