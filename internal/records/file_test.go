// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package records

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/pkg/types"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	return NewFileStore(path, time.Second, zap.NewNop()), path
}

func sampleRecords() map[string]*types.TaskRecord {
	return map[string]*types.TaskRecord{
		"abc": {TaskID: "abc", Status: types.StatusCompleted, ZipFilename: "pack_abc.zip", NumRequested: 3, NumSuccess: 3},
		"def": {TaskID: "def", Status: types.StatusSubmitted, NumRequested: 1},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(sampleRecords()))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, types.StatusCompleted, loaded["abc"].Status)
	assert.Equal(t, "pack_abc.zip", loaded["abc"].ZipFilename)
	assert.Equal(t, 1, loaded["def"].NumRequested)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStoreBackupFallback(t *testing.T) {
	store, path := newTestStore(t)

	// Two saves so the .bak holds valid content.
	require.NoError(t, store.Save(sampleRecords()))
	require.NoError(t, store.Save(sampleRecords()))
	require.FileExists(t, path+".bak")

	// Corrupt the primary; Load must fall back to the backup.
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestFileStoreBothCorrupt(t *testing.T) {
	store, path := newTestStore(t)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(path+".bak", []byte("["), 0o644))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStoreSaveLeavesNoTemp(t *testing.T) {
	store, path := newTestStore(t)

	require.NoError(t, store.Save(sampleRecords()))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not survive a save")
	require.FileExists(t, path)
}

func TestFileStoreUpdate(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save(sampleRecords()))

	err := store.Update(context.Background(), func(recs map[string]*types.TaskRecord) error {
		recs["def"].Status = types.StatusProcessing
		recs["ghi"] = &types.TaskRecord{TaskID: "ghi", Status: types.StatusSubmitted}
		return nil
	})
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, loaded["def"].Status)
	assert.Contains(t, loaded, "ghi")
}

func TestFileStoreUpdateFnErrorSkipsSave(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save(sampleRecords()))

	sentinel := assert.AnError
	err := store.Update(context.Background(), func(recs map[string]*types.TaskRecord) error {
		recs["abc"].Status = types.StatusFailed
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, loaded["abc"].Status, "failed update must not persist")
}

func TestFileStoreLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	store := NewFileStore(path, 150*time.Millisecond, zap.NewNop())

	// Hold the lock from a second handle so Update cannot acquire it.
	other := flock.New(path + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	err = store.Update(context.Background(), func(map[string]*types.TaskRecord) error {
		t.Fatal("fn must not run when the lock is unavailable")
		return nil
	})
	require.ErrorIs(t, err, ErrLockTimeout)
}
