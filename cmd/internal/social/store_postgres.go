package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ripple/cmd/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Friendships are stored as two rows per pair in the friendships table so
// FriendIDs stays a single-index lookup in either direction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed social Store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("social: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// UpsertUser creates or updates a profile record.
func (s *PostgresStore) UpsertUser(ctx context.Context, in UpsertUserInput) (User, error) {
	if in.ID == "" {
		return User{}, errors.New("invalid input")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var u User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, display_name, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (id) DO UPDATE
		    SET email = EXCLUDED.email,
		        display_name = EXCLUDED.display_name,
		        avatar_url = EXCLUDED.avatar_url,
		        updated_at = EXCLUDED.updated_at
		 RETURNING id, email, display_name, avatar_url, created_at, updated_at`,
		in.ID, in.Email, in.DisplayName, in.AvatarURL, now,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// GetUser returns the profile for id or domain.ErrNotFound.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, display_name, avatar_url, created_at, updated_at
		   FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, domain.ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// SearchUsers matches display name or email case-insensitively, excluding self.
func (s *PostgresStore) SearchUsers(ctx context.Context, selfID, query string, limit int) ([]User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, email, display_name, avatar_url, created_at, updated_at
		   FROM users
		  WHERE id <> $1
		    AND (display_name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		  ORDER BY id
		  LIMIT $3`,
		selfID, query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

// FriendIDs returns the friend identities of userID.
func (s *PostgresStore) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = $1 ORDER BY friend_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// FriendsOf returns the friend profiles of userID.
func (s *PostgresStore) FriendsOf(ctx context.Context, userID string) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.email, u.display_name, u.avatar_url, u.created_at, u.updated_at
		   FROM friendships f
		   JOIN users u ON u.id = f.friend_id
		  WHERE f.user_id = $1
		  ORDER BY u.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUsers(rows)
}

// AreFriends reports mutual friendship.
func (s *PostgresStore) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2`,
		a, b,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateRequest inserts a new friend request row.
func (s *PostgresStore) CreateRequest(ctx context.Context, req FriendRequest) error {
	if req.ID == "" || req.SenderID == "" || req.ReceiverID == "" {
		return errors.New("invalid input")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO friend_requests (id, sender_id, receiver_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.SenderID, req.ReceiverID, req.Status, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

// GetRequest returns a request by id or domain.ErrNotFound.
func (s *PostgresStore) GetRequest(ctx context.Context, id string) (FriendRequest, error) {
	return s.scanRequest(s.pool.QueryRow(ctx,
		`SELECT id, sender_id, receiver_id, status, created_at, updated_at
		   FROM friend_requests WHERE id = $1`,
		id,
	))
}

// FindRequest returns the request for the ordered (sender, receiver) pair.
func (s *PostgresStore) FindRequest(ctx context.Context, senderID, receiverID string) (FriendRequest, error) {
	return s.scanRequest(s.pool.QueryRow(ctx,
		`SELECT id, sender_id, receiver_id, status, created_at, updated_at
		   FROM friend_requests WHERE sender_id = $1 AND receiver_id = $2`,
		senderID, receiverID,
	))
}

// PendingRequestsFor returns pending requests addressed to receiverID with sender profiles.
func (s *PostgresStore) PendingRequestsFor(ctx context.Context, receiverID string) ([]PendingRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.sender_id, r.receiver_id, r.status, r.created_at, r.updated_at,
		        u.id, u.email, u.display_name, u.avatar_url, u.created_at, u.updated_at
		   FROM friend_requests r
		   JOIN users u ON u.id = r.sender_id
		  WHERE r.receiver_id = $1 AND r.status = $2
		  ORDER BY r.id`,
		receiverID, RequestPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingRequest
	for rows.Next() {
		var p PendingRequest
		if err := rows.Scan(
			&p.Request.ID, &p.Request.SenderID, &p.Request.ReceiverID, &p.Request.Status,
			&p.Request.CreatedAt, &p.Request.UpdatedAt,
			&p.Sender.ID, &p.Sender.Email, &p.Sender.DisplayName, &p.Sender.AvatarURL,
			&p.Sender.CreatedAt, &p.Sender.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetRequestStatus performs a guarded fromStatus -> toStatus transition.
// A zero-row update distinguishes "absent" from "wrong state".
func (s *PostgresStore) SetRequestStatus(ctx context.Context, id, fromStatus, toStatus string, now time.Time) (FriendRequest, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	req, err := s.scanRequest(s.pool.QueryRow(ctx,
		`UPDATE friend_requests
		    SET status = $3, updated_at = $4
		  WHERE id = $1 AND status = $2
		RETURNING id, sender_id, receiver_id, status, created_at, updated_at`,
		id, fromStatus, toStatus, now,
	))
	if errors.Is(err, domain.ErrNotFound) {
		// Row exists but is in another state -> conflict; truly absent -> not found.
		if _, getErr := s.GetRequest(ctx, id); getErr == nil {
			return FriendRequest{}, domain.ErrConflict
		}
		return FriendRequest{}, domain.ErrNotFound
	}
	return req, err
}

// AcceptRequest atomically marks the request accepted and links the friendship
// both ways in one transaction.
func (s *PostgresStore) AcceptRequest(ctx context.Context, id string, now time.Time) (FriendRequest, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return FriendRequest{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := s.scanRequest(tx.QueryRow(ctx,
		`UPDATE friend_requests
		    SET status = $2, updated_at = $3
		  WHERE id = $1 AND status = $4
		RETURNING id, sender_id, receiver_id, status, created_at, updated_at`,
		id, RequestAccepted, now, RequestPending,
	))
	if errors.Is(err, domain.ErrNotFound) {
		if _, getErr := s.GetRequest(ctx, id); getErr == nil {
			return FriendRequest{}, domain.ErrConflict
		}
		return FriendRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return FriendRequest{}, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id)
		 VALUES ($1, $2), ($2, $1)
		 ON CONFLICT DO NOTHING`,
		req.SenderID, req.ReceiverID,
	); err != nil {
		return FriendRequest{}, fmt.Errorf("link friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return FriendRequest{}, err
	}
	return req, nil
}

func (s *PostgresStore) scanRequest(row pgx.Row) (FriendRequest, error) {
	var req FriendRequest
	err := row.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FriendRequest{}, domain.ErrNotFound
	}
	if err != nil {
		return FriendRequest{}, err
	}
	return req, nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
