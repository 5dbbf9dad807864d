package calls

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed call-log Store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("calls: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Append inserts a call-log row.
func (s *PostgresStore) Append(ctx context.Context, in AppendInput) (Log, error) {
	if s == nil || s.pool == nil {
		return Log{}, errors.New("calls: nil store")
	}
	log, err := buildLog(in)
	if err != nil {
		return Log{}, err
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO call_logs (id, caller_id, receiver_id, kind, status, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.CallerID, log.ReceiverID, log.Kind, log.Status, log.StartedAt, log.EndedAt,
	); err != nil {
		return Log{}, fmt.Errorf("insert call log: %w", err)
	}
	return log, nil
}

// HistoryFor returns the calls involving userID, newest first.
func (s *PostgresStore) HistoryFor(ctx context.Context, userID string) ([]Log, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("calls: nil store")
	}
	if userID == "" {
		return nil, errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, caller_id, receiver_id, kind, status, started_at, ended_at
		   FROM call_logs
		  WHERE caller_id = $1 OR receiver_id = $1
		  ORDER BY id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.CallerID, &l.ReceiverID, &l.Kind, &l.Status, &l.StartedAt, &l.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
