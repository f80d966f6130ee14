// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package records

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/pkg/types"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newSQLiteTestStore(t)

	require.NoError(t, store.Save(sampleRecords()))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, types.StatusCompleted, loaded["abc"].Status)
	assert.Equal(t, "pack_abc.zip", loaded["abc"].ZipFilename)
}

func TestSQLiteStoreLoadEmpty(t *testing.T) {
	store := newSQLiteTestStore(t)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	store := newSQLiteTestStore(t)
	require.NoError(t, store.Save(sampleRecords()))

	require.NoError(t, store.Save(map[string]*types.TaskRecord{
		"only": {TaskID: "only", Status: types.StatusSubmitted},
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Contains(t, loaded, "only")
}

func TestSQLiteStoreUpdateConcurrentHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	first, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer first.Close()
	second, err := NewSQLiteStore(path, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	// Each handle mimics a separate process writing its own task. Both
	// writes must survive; losing one means the read-modify-write was
	// not serialized.
	var wg sync.WaitGroup
	writers := []struct {
		store *SQLiteStore
		id    string
	}{
		{first, "task-a"},
		{second, "task-b"},
	}
	for _, w := range writers {
		wg.Add(1)
		go func(store *SQLiteStore, id string) {
			defer wg.Done()
			err := store.Update(context.Background(), func(recs map[string]*types.TaskRecord) error {
				recs[id] = &types.TaskRecord{TaskID: id, Status: types.StatusSubmitted}
				return nil
			})
			assert.NoError(t, err)
		}(w.store, w.id)
	}
	wg.Wait()

	loaded, err := first.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Contains(t, loaded, "task-a")
	assert.Contains(t, loaded, "task-b")
}

func TestSQLiteStoreUpdate(t *testing.T) {
	store := newSQLiteTestStore(t)
	require.NoError(t, store.Save(sampleRecords()))

	err := store.Update(context.Background(), func(recs map[string]*types.TaskRecord) error {
		recs["def"].Status = types.StatusFailedNoDownloads
		return nil
	})
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailedNoDownloads, loaded["def"].Status)
}
