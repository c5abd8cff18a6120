package persistence

import (
	"testing"

	"github.com/shophuyvan/shophuyvan-sub002/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := Open(sqlite.Open(":memory:"), nil)
	require.NoError(t, err)

	// one connection so every query sees the same in-memory database
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.DB.AutoMigrate(&models.CartSyncRecordModel{}))
	t.Cleanup(func() { _ = db.Close() })
	return db
}
