package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/recommendation-gateway/internal/storage"
)

// Store is a SQLite implementation of InvocationStore
type Store struct {
	db *sql.DB
}

var _ storage.InvocationStore = (*Store)(nil)

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS invocations (
			id TEXT PRIMARY KEY,
			request_id TEXT,
			operation TEXT NOT NULL,
			subject TEXT NOT NULL,
			outcome TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			item_count INTEGER NOT NULL DEFAULT 0,
			duration_ns INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_operation ON invocations(operation)`,
		`CREATE INDEX IF NOT EXISTS idx_invocations_subject ON invocations(subject)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) RecordInvocation(ctx context.Context, rec *storage.InvocationRecord) error {
	if rec == nil {
		return fmt.Errorf("nil invocation record")
	}
	rec.Stamp()

	query := `INSERT INTO invocations (id, request_id, operation, subject, outcome, status_code, item_count, duration_ns, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.RequestID, rec.Operation, rec.Subject, rec.Outcome,
		rec.StatusCode, rec.ItemCount, int64(rec.Duration), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}

	return nil
}

func (s *Store) ListInvocations(ctx context.Context, opts storage.ListOptions) ([]*storage.InvocationRecord, error) {
	var where []string
	var args []any
	if opts.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, opts.Operation)
	}
	if opts.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, opts.Subject)
	}

	query := `SELECT id, request_id, operation, subject, outcome, status_code, item_count, duration_ns, created_at
	          FROM invocations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, opts.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	records := []*storage.InvocationRecord{}
	for rows.Next() {
		var rec storage.InvocationRecord
		var requestID sql.NullString
		var durationNS int64
		if err := rows.Scan(&rec.ID, &requestID, &rec.Operation, &rec.Subject, &rec.Outcome,
			&rec.StatusCode, &rec.ItemCount, &durationNS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		rec.RequestID = requestID.String
		rec.Duration = time.Duration(durationNS)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invocations: %w", err)
	}

	return records, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
