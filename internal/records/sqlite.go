// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/litfetch/pkg/types"
)

// SQLiteStore keeps task records in an embedded SQLite database, one row
// per task with the record serialized as JSON. It satisfies the same Store
// contract as FileStore: Update's read-modify-write runs inside a single
// immediate transaction, so writers on other connections or in other
// processes serialize through the database's write lock rather than a
// sidecar lock file. The in-process mutex keeps goroutines sharing this
// handle from piling up on the busy timeout.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteStore opens or creates the database at path and ensures the
// schema exists. Transactions begin immediate so the write lock is taken
// up front, and the busy timeout matches the file store's lock wait.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening record database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS tasks (
		task_id    TEXT PRIMARY KEY,
		record     TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// Load reads all task records. Rows that fail to decode are skipped with a
// log entry rather than failing the whole read.
func (s *SQLiteStore) Load() (map[string]*types.TaskRecord, error) {
	return s.loadFrom(s.db)
}

func (s *SQLiteStore) loadFrom(q querier) (map[string]*types.TaskRecord, error) {
	rows, err := q.Query(`SELECT task_id, record FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	records := map[string]*types.TaskRecord{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		var rec types.TaskRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Error("skipping undecodable task record",
				zap.String("task_id", id), zap.Error(err))
			continue
		}
		records[id] = &rec
	}
	return records, rows.Err()
}

// Save replaces the full mapping in one transaction.
func (s *SQLiteStore) Save(records map[string]*types.TaskRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveTo(tx, records); err != nil {
		return err
	}
	return tx.Commit()
}

func saveTo(tx *sql.Tx, records map[string]*types.TaskRecord) error {
	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tasks (task_id, record, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for id, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record %s: %w", id, err)
		}
		if _, err := stmt.Exec(id, string(raw), now); err != nil {
			return fmt.Errorf("inserting record %s: %w", id, err)
		}
	}
	return nil
}

// Update runs fn on the loaded mapping inside one immediate transaction.
// A concurrent Update through another handle on the same database blocks
// on the write lock until this one commits, so its read sees the committed
// result and no update is lost.
func (s *SQLiteStore) Update(ctx context.Context, fn func(records map[string]*types.TaskRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	records, err := s.loadFrom(tx)
	if err != nil {
		return err
	}
	if err := fn(records); err != nil {
		return err
	}
	if err := saveTo(tx, records); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }
