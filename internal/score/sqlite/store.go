package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/victornm/tables/internal/domain"
)

const defaultPath = "tables.db"

// Store keeps score records in a local SQLite database.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPath
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// A single connection serializes writers; sqlite would otherwise report SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			table_label TEXT NOT NULL,
			duration_ms INTEGER NOT NULL CHECK (duration_ms >= 0),
			created_at_unix_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_username ON scores(username);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.ScoreRecord, error) {
	return s.query(ctx, `SELECT username, table_label, duration_ms, created_at_unix_ms FROM scores ORDER BY id`)
}

func (s *Store) LoadForUser(ctx context.Context, username string) ([]domain.ScoreRecord, error) {
	return s.query(ctx, `SELECT username, table_label, duration_ms, created_at_unix_ms FROM scores WHERE username = ? ORDER BY id`, username)
}

func (s *Store) query(ctx context.Context, stmt string, args ...any) ([]domain.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rs []domain.ScoreRecord
	for rows.Next() {
		var (
			r  domain.ScoreRecord
			ms int64
		)
		if err := rows.Scan(&r.Username, &r.TableLabel, &r.DurationMs, &ms); err != nil {
			return nil, err
		}
		r.Timestamp = time.UnixMilli(ms).UTC()
		rs = append(rs, r)
	}

	return rs, rows.Err()
}

func (s *Store) Append(ctx context.Context, r domain.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (username, table_label, duration_ms, created_at_unix_ms) VALUES (?, ?, ?, ?)`,
		r.Username, r.TableLabel, r.DurationMs, r.Timestamp.UnixMilli(),
	)
	return err
}

func (s *Store) Clear(ctx context.Context, username string) error {
	if username == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM scores`)
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE username = ?`, username)
	return err
}
