package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeIndexType(t *testing.T) {
	_, entitiesDbHandler, _, _ := initHandlers(t)

	t.Run("Change to HNSW index", func(t *testing.T) {
		err := entitiesDbHandler.ChangeIndexType(context.Background(), "hnsw", map[string]interface{}{"m": 8})
		assert.NoError(t, err, "Expected ChangeIndexType to not return an error")

		var exists bool
		err = entitiesDbHandler.db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'idx_entities_embedding');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "Expected embedding index to exist")
	})

	t.Run("Change to IVFFlat index", func(t *testing.T) {
		err := entitiesDbHandler.ChangeIndexType(context.Background(), "ivfflat", map[string]interface{}{"lists": 10})
		assert.NoError(t, err, "Expected ChangeIndexType to not return an error")
	})

	t.Run("Invalid index type", func(t *testing.T) {
		err := entitiesDbHandler.ChangeIndexType(context.Background(), "btree", nil)
		assert.Error(t, err, "Expected error for unsupported index type")
		assert.Contains(t, err.Error(), "unsupported index type")
	})
}
