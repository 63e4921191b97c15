package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/tables/internal/domain"
)

// Store keeps score records in a Postgres table.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Migrate creates the scores table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS scores (
	id          BIGSERIAL PRIMARY KEY,
	username    TEXT        NOT NULL,
	table_label TEXT        NOT NULL,
	duration_ms BIGINT      NOT NULL CHECK (duration_ms >= 0),
	create_time TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS scores_username_idx ON scores (username);`

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}

	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.ScoreRecord, error) {
	const stmt = `SELECT username, table_label, duration_ms, create_time FROM scores ORDER BY id;`

	return s.query(ctx, stmt)
}

func (s *Store) LoadForUser(ctx context.Context, username string) ([]domain.ScoreRecord, error) {
	const stmt = `SELECT username, table_label, duration_ms, create_time FROM scores WHERE username = $1 ORDER BY id;`

	return s.query(ctx, stmt, username)
}

func (s *Store) query(ctx context.Context, stmt string, args ...any) ([]domain.ScoreRecord, error) {
	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ScoreRecord, error) {
		var sc domain.ScoreRecord
		if err := r.Scan(&sc.Username, &sc.TableLabel, &sc.DurationMs, &sc.Timestamp); err != nil {
			return domain.ScoreRecord{}, err
		}
		return sc, nil
	})
}

func (s *Store) Append(ctx context.Context, r domain.ScoreRecord) error {
	const stmt = `INSERT INTO scores (username, table_label, duration_ms, create_time) VALUES ($1, $2, $3, $4);`

	_, err := s.db.Exec(ctx, stmt, r.Username, r.TableLabel, r.DurationMs, r.Timestamp)
	return err
}

func (s *Store) Clear(ctx context.Context, username string) error {
	if username == "" {
		_, err := s.db.Exec(ctx, `DELETE FROM scores;`)
		return err
	}

	_, err := s.db.Exec(ctx, `DELETE FROM scores WHERE username = $1;`, username)
	return err
}
