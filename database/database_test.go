package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"karvia/models"
)

func TestOpen(t *testing.T) {
	t.Run("Scenario 1: in-memory database migrates", func(t *testing.T) {
		db, err := Open("memory", zap.NewNop())
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlDB.Close() })

		require.NoError(t, Migrate(db, zap.NewNop()))
		assert.True(t, db.Migrator().HasTable(&models.UserJourneyState{}))
		assert.True(t, db.Migrator().HasTable(&models.Task{}))
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("Scenario 2: file database creates its directory", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "nested", "karvia.db")

		db, err := Open(dsn, nil)
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlDB.Close() })

		require.NoError(t, Migrate(db, nil))
		assert.FileExists(t, dsn)
	})
}
