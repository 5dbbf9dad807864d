package calls

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ripple/cmd/internal/domain"
	"ripple/cmd/internal/ids"
)

// InMemoryStore is a dev-only fallback when DB is not configured.
type InMemoryStore struct {
	mu   sync.Mutex
	logs []Log
}

// NewInMemoryStore constructs an in-memory call-log Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// Append records a terminal call outcome.
func (s *InMemoryStore) Append(ctx context.Context, in AppendInput) (Log, error) {
	log, err := buildLog(in)
	if err != nil {
		return Log{}, err
	}
	if err := ctx.Err(); err != nil {
		return Log{}, err
	}

	s.mu.Lock()
	s.logs = append(s.logs, log)
	s.mu.Unlock()

	return log, nil
}

// HistoryFor returns the calls involving userID, newest first.
func (s *InMemoryStore) HistoryFor(ctx context.Context, userID string) ([]Log, error) {
	if userID == "" {
		return nil, errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Log
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if l.CallerID == userID || l.ReceiverID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func buildLog(in AppendInput) (Log, error) {
	if in.CallerID == "" || in.ReceiverID == "" {
		return Log{}, fmt.Errorf("%w: missing caller or receiver", domain.ErrInvalidInput)
	}
	kind, ok := NormalizeKind(in.Kind)
	if !ok {
		return Log{}, fmt.Errorf("%w: invalid kind %q", domain.ErrInvalidInput, in.Kind)
	}
	status, ok := NormalizeStatus(in.Status)
	if !ok {
		return Log{}, fmt.Errorf("%w: invalid status %q", domain.ErrInvalidInput, in.Status)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Log{}, err
	}

	return Log{
		ID:         id,
		CallerID:   in.CallerID,
		ReceiverID: in.ReceiverID,
		Kind:       kind,
		Status:     status,
		StartedAt:  now,
		EndedAt:    in.EndedAt,
	}, nil
}
