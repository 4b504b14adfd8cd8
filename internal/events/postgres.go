package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists lifecycle events in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed event log.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema guarantees the event log table exists.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS processor_events (
        id UUID PRIMARY KEY,
        kind TEXT NOT NULL,
        object_id TEXT NOT NULL,
        detail TEXT NOT NULL DEFAULT '',
        received_at TIMESTAMPTZ NOT NULL
    )`)
	return err
}

// Append inserts one event record.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx, `INSERT INTO processor_events (id, kind, object_id, detail, received_at)
        VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Kind, rec.ObjectID, rec.Detail, rec.ReceivedAt)
	return err
}
