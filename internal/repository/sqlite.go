package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/toolgate/toolgate/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tool_call_records (
			call_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			params TEXT,
			status TEXT NOT NULL,
			result TEXT,
			error_message TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_call_records_session ON tool_call_records(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_call_records_status_created ON tool_call_records(status, created_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			call_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (call_id) REFERENCES tool_call_records(call_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_call ON events(call_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func statusPlaceholders(from []domain.Status) (string, []interface{}) {
	marks := make([]string, len(from))
	args := make([]interface{}, len(from))
	for i, st := range from {
		marks[i] = "?"
		args[i] = string(st)
	}
	return strings.Join(marks, ","), args
}

// CreateToolCall inserts a pending record; duplicate call_ids are no-ops.
func (s *SQLiteStore) CreateToolCall(ctx context.Context, rec *domain.ToolCallRecord) (bool, error) {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return false, fmt.Errorf("failed to marshal params: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tool_call_records
		 (call_id, session_id, tool_name, params, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CallID, rec.SessionID, rec.ToolName, string(params),
		string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert tool call: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// GetToolCall returns the record or nil when unknown.
func (s *SQLiteStore) GetToolCall(ctx context.Context, callID string) (*domain.ToolCallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT call_id, session_id, tool_name, params, status, result, error_message, created_at, updated_at
		 FROM tool_call_records WHERE call_id = ?`, callID)
	return scanToolCall(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanToolCall(row rowScanner) (*domain.ToolCallRecord, error) {
	var rec domain.ToolCallRecord
	var params, result, errMsg sql.NullString
	var status string

	err := row.Scan(&rec.CallID, &rec.SessionID, &rec.ToolName, &params,
		&status, &result, &errMsg, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tool call: %w", err)
	}

	rec.Status = domain.Status(status)
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &rec.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params: %w", err)
		}
	} else {
		rec.Params = domain.NewParams()
	}
	if result.Valid && result.String != "" {
		var nr domain.NormalizedResult
		if err := json.Unmarshal([]byte(result.String), &nr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		rec.Result = &nr
	}
	if errMsg.Valid {
		rec.ErrorMessage = errMsg.String
	}
	return &rec, nil
}

// TransitionToolCall performs a conditional status update. The WHERE clause
// on the current status is what prevents two concurrent approvals from both
// winning.
func (s *SQLiteStore) TransitionToolCall(ctx context.Context, callID string, from []domain.Status, to domain.Status) (bool, error) {
	marks, fromArgs := statusPlaceholders(from)
	args := append([]interface{}{string(to), time.Now(), callID}, fromArgs...)

	res, err := s.db.ExecContext(ctx,
		`UPDATE tool_call_records SET status = ?, updated_at = ?
		 WHERE call_id = ? AND status IN (`+marks+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition tool call: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateToolCallParams persists the transformed parameter set.
func (s *SQLiteStore) UpdateToolCallParams(ctx context.Context, callID string, params domain.Params) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE tool_call_records SET params = ?, updated_at = ? WHERE call_id = ?`,
		string(data), time.Now(), callID)
	if err != nil {
		return fmt.Errorf("failed to update params: %w", err)
	}
	return nil
}

// CompleteToolCall moves a running record to a terminal status.
func (s *SQLiteStore) CompleteToolCall(ctx context.Context, callID string, status domain.Status, result *domain.NormalizedResult, errMsg string) (bool, error) {
	var resultJSON sql.NullString
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return false, fmt.Errorf("failed to marshal result: %w", err)
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tool_call_records SET status = ?, result = ?, error_message = ?, updated_at = ?
		 WHERE call_id = ? AND status = ?`,
		string(status), resultJSON, errMsg, time.Now(), callID, string(domain.StatusRunning))
	if err != nil {
		return false, fmt.Errorf("failed to complete tool call: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListToolCallsBySession returns the session's records, newest first.
func (s *SQLiteStore) ListToolCallsBySession(ctx context.Context, sessionID string, limit int) ([]*domain.ToolCallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, session_id, tool_name, params, status, result, error_message, created_at, updated_at
		 FROM tool_call_records WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool calls: %w", err)
	}
	defer rows.Close()

	var out []*domain.ToolCallRecord
	for rows.Next() {
		rec, err := scanToolCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListExpiredPending returns pending records created before the cutoff.
func (s *SQLiteStore) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ToolCallRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, session_id, tool_name, params, status, result, error_message, created_at, updated_at
		 FROM tool_call_records WHERE status = ? AND created_at < ?
		 ORDER BY created_at ASC LIMIT ?`,
		string(domain.StatusPending), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired tool calls: %w", err)
	}
	defer rows.Close()

	var out []*domain.ToolCallRecord
	for rows.Next() {
		rec, err := scanToolCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CreateEvent appends an audit event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	var payload interface{}
	if len(event.Payload) > 0 {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, call_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.CallID, event.Ts, string(event.Type), payload)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListEvents returns the call's audit events in chronological order.
func (s *SQLiteStore) ListEvents(ctx context.Context, callID string, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, call_id, ts, type, payload FROM events
		 WHERE call_id = ? ORDER BY ts ASC LIMIT ?`, callID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var ev domain.Event
		var typ string
		var payload sql.NullString
		if err := rows.Scan(&ev.EventID, &ev.CallID, &ev.Ts, &typ, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = domain.EventType(typ)
		if payload.Valid {
			ev.Payload = json.RawMessage(payload.String)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}
