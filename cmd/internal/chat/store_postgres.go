package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ripple/cmd/internal/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Ordering model:
// - Message ids are ULIDs, so ORDER BY id reproduces creation order.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed message Store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("chat: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Append inserts a message row and returns the stored representation.
func (s *PostgresStore) Append(ctx context.Context, in AppendInput) (Message, error) {
	if s == nil || s.pool == nil {
		return Message{}, errors.New("chat: nil store")
	}
	if in.SenderID == "" || in.ReceiverID == "" || in.Content == "" {
		return Message{}, errors.New("invalid input")
	}
	kind, ok := NormalizeKind(in.Kind)
	if !ok {
		return Message{}, errors.New("invalid kind")
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Message{}, err
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, content, kind, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6)`,
		id, in.SenderID, in.ReceiverID, in.Content, kind, now,
	); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	return Message{
		ID:         id,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Kind:       kind,
		IsRead:     false,
		CreatedAt:  now,
	}, nil
}

// History returns both directions of a conversation ordered by creation.
func (s *PostgresStore) History(ctx context.Context, userA, userB string) ([]Message, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("chat: nil store")
	}
	if userA == "" || userB == "" {
		return nil, errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, sender_id, receiver_id, content, kind, is_read, created_at
		   FROM messages
		  WHERE (sender_id = $1 AND receiver_id = $2)
		     OR (sender_id = $2 AND receiver_id = $1)
		  ORDER BY id ASC`,
		userA, userB,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MarkRead bulk-flips unread messages from senderID to readerID.
func (s *PostgresStore) MarkRead(ctx context.Context, senderID, readerID string) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, errors.New("chat: nil store")
	}
	if senderID == "" || readerID == "" {
		return 0, errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE messages
		    SET is_read = true
		  WHERE sender_id = $1 AND receiver_id = $2 AND is_read = false`,
		senderID, readerID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Kind, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
