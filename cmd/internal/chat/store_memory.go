package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"ripple/cmd/internal/ids"
)

const memMaxMessagesPerConversation = 10_000

// InMemoryStore is a dev-only fallback when DB is not configured.
// Messages are grouped per unordered user pair and kept in append order.
type InMemoryStore struct {
	mu    sync.Mutex
	convs map[string][]Message
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{convs: make(map[string][]Message)}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// Append persists a message and assigns its server id and timestamp.
func (s *InMemoryStore) Append(ctx context.Context, in AppendInput) (Message, error) {
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

	msg := Message{
		ID:         id,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Kind:       kind,
		IsRead:     false,
		CreatedAt:  now,
	}

	key := pairKey(in.SenderID, in.ReceiverID)

	s.mu.Lock()
	msgs := append(s.convs[key], msg)
	// Bound memory to avoid unbounded growth in dev.
	if len(msgs) > memMaxMessagesPerConversation {
		msgs = msgs[len(msgs)-memMaxMessagesPerConversation:]
	}
	s.convs[key] = msgs
	s.mu.Unlock()

	return msg, nil
}

// History returns both directions of a conversation in append order.
func (s *InMemoryStore) History(ctx context.Context, userA, userB string) ([]Message, error) {
	if userA == "" || userB == "" {
		return nil, errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.convs[pairKey(userA, userB)]...), nil
}

// MarkRead flips unread messages from senderID to readerID and reports the count.
func (s *InMemoryStore) MarkRead(ctx context.Context, senderID, readerID string) (int64, error) {
	if senderID == "" || readerID == "" {
		return 0, errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	msgs := s.convs[pairKey(senderID, readerID)]
	for i := range msgs {
		if msgs[i].SenderID == senderID && msgs[i].ReceiverID == readerID && !msgs[i].IsRead {
			msgs[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// pairKey returns a canonical key for the unordered user pair.
func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
