package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	corehistory "github.com/kilianp07/squadopt/core/history"
)

// SQLiteStore persists run records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS squad_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT UNIQUE,
        ts INTEGER,
        criterion TEXT,
        status TEXT,
        objective REAL,
        record TEXT
    );
    CREATE INDEX IF NOT EXISTS squad_runs_ts ON squad_runs (ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec corehistory.RunRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO squad_runs (run_id, ts, criterion, status, objective, record) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Timestamp.UnixNano(), rec.Criterion, rec.Status, rec.Objective, string(b))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// Query returns records matching q, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, q corehistory.Query) ([]corehistory.RunRecord, error) {
	var args []any
	query := `SELECT record FROM squad_runs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Criterion != "" {
		query += ` AND criterion = ?`
		args = append(args, q.Criterion)
	}
	query += ` ORDER BY ts DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []corehistory.RunRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r corehistory.RunRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
