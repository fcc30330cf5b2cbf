package queue_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/connectivity"
	"github.com/mavuno/agrolink/internal/queue"
)

func TestSQLiteStore_LoadMissingKey(t *testing.T) {
	store, err := queue.OpenSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer store.Close()

	data, err := store.Load(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.db")
	ctx := context.Background()

	store, err := queue.OpenSQLiteStore(path)
	require.NoError(t, err)
	q := queue.New[string](key, store, (&recorder{}).processor(true, nil), connectivity.NewSwitch(false), zap.NewNop(), queue.Hooks{})
	q.AddItem(ctx, "first")
	q.AddItem(ctx, "second")
	require.NoError(t, store.Close())

	reopened, err := queue.OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	items, err := queue.Snapshot[string](ctx, reopened, key)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Payload)
	assert.Equal(t, "second", items[1].Payload)

	keys, err := reopened.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}
