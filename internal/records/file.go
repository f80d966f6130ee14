// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/pkg/types"
)

const lockRetryInterval = 50 * time.Millisecond

// FileStore keeps all task records in one JSON document. Sidecar files
// live next to it: <path>.bak (previous content), <path>.tmp (staging for
// the atomic rename) and <path>.lock (advisory lock shared by every
// process on this host).
type FileStore struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	logger      *zap.Logger
}

// NewFileStore creates a store backed by the JSON document at path. The
// lock file name is derived from path so all writers of the same document
// contend on the same lock.
func NewFileStore(path string, lockTimeout time.Duration, logger *zap.Logger) *FileStore {
	if lockTimeout <= 0 {
		lockTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Load reads the full mapping. A missing or corrupt primary file falls
// back to the .bak copy; if both fail an empty mapping is returned and the
// condition is logged. Load itself never reports an error to the caller.
func (s *FileStore) Load() (map[string]*types.TaskRecord, error) {
	if records, err := readRecords(s.path); err == nil {
		return records, nil
	} else if !os.IsNotExist(err) {
		s.logger.Error("primary record file unreadable, trying backup",
			zap.String("path", s.path), zap.Error(err))
	}

	backup := s.path + ".bak"
	if records, err := readRecords(backup); err == nil {
		s.logger.Warn("loaded records from backup, primary may be corrupt or missing",
			zap.String("path", backup))
		return records, nil
	} else if !os.IsNotExist(err) {
		s.logger.Error("backup record file unreadable",
			zap.String("path", backup), zap.Error(err))
	}

	return map[string]*types.TaskRecord{}, nil
}

// Save publishes the mapping atomically: the full document is written to
// <path>.tmp, the current primary is renamed to <path>.bak (best effort),
// and the temp file is renamed into place. The rename is the only publish
// step, so the primary is always either the old or the new content.
func (s *FileStore) Save(records map[string]*types.TaskRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp record file: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+".bak"); err != nil {
			// Backup failure is logged but not fatal; the new content
			// still replaces the primary below.
			s.logger.Error("backing up record file failed",
				zap.String("path", s.path), zap.Error(err))
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publishing record file: %w", err)
	}
	return nil
}

// Update acquires the advisory lock with a bounded wait, then runs fn on
// the freshly loaded mapping and saves the result. On lock timeout it
// returns ErrLockTimeout without invoking fn.
func (s *FileStore) Update(ctx context.Context, fn func(records map[string]*types.TaskRecord) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return fmt.Errorf("acquiring record store lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer s.lock.Unlock()

	records, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(records); err != nil {
		return err
	}
	return s.Save(records)
}

// Close releases nothing for the file-backed store; the lock is held only
// inside Update.
func (s *FileStore) Close() error { return nil }

func readRecords(path string) (map[string]*types.TaskRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records := map[string]*types.TaskRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}
