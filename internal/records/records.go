// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package records is the single source of truth for batch task state. The
// default implementation is a JSON document guarded by an advisory file
// lock with atomic replace-and-backup semantics; a SQLite implementation
// sits behind the same interface for deployments that outgrow the flat
// file.
package records

import (
	"context"
	"errors"

	"github.com/pdiddy/litfetch/pkg/types"
)

// ErrLockTimeout is returned when the store's exclusive lock could not be
// acquired within the configured wait. Callers surface it as a retryable
// "server busy" condition rather than crashing.
var ErrLockTimeout = errors.New("timed out waiting for record store lock")

// Store persists the mapping of task identifier to task record.
//
// Load never fails the caller: a missing or corrupt primary document falls
// back to the backup copy, and if both are unreadable an empty mapping is
// returned and the condition logged.
//
// Update runs fn inside the store's exclusive critical section so the
// read-modify-write sequence is atomic with respect to other writers on
// this host. There are no multi-key transactions beyond that; fn is
// expected to read, mutate and return within the critical section.
type Store interface {
	Load() (map[string]*types.TaskRecord, error)
	Save(records map[string]*types.TaskRecord) error
	Update(ctx context.Context, fn func(records map[string]*types.TaskRecord) error) error
	Close() error
}
