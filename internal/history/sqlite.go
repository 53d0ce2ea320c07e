package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
)

// InMemory is the data source name of a private in-memory database.
const InMemory = ":memory:"

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// Use InMemory for a throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != InMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "could not create history directory").
				WithContext("path", dbPath).
				Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "could not open history database").
			WithContext("path", dbPath).
			Build()
	}
	// a single connection keeps in-memory databases shared and serializes writers
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to initialize history schema").
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores e and fills in its ID. A zero timestamp is set to now.
func (s *SQLiteStore) Append(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if e.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to marshal event metadata").Build()
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	payload := e.Payload
	if payload == nil {
		payload = []byte("{}")
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO events (run_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		e.RunID, e.Type, e.Timestamp.UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to append event").
			WithContext("run_id", e.RunID).
			WithContext("type", e.Type).
			Build()
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// GetByRunID retrieves all events of one run.
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, event_type, timestamp, payload, metadata FROM events WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to query events").Build()
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// GetRange retrieves events within a time range, both ends inclusive.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, event_type, timestamp, payload, metadata FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to query events").Build()
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		var e Event
		var ts int64
		var metadataJSON []byte

		if err := rows.Scan(&e.ID, &e.RunID, &e.Type, &ts, &e.Payload, &metadataJSON); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to scan event").Build()
		}
		e.Timestamp = time.UnixMilli(ts)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to unmarshal event metadata").Build()
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to iterate events").Build()
	}
	return events, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
