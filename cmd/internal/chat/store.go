// Package chat persists and queries direct messages.
package chat

import (
	"context"
	"time"
)

// Message is the canonical persisted message representation.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	Kind       string
	IsRead     bool
	CreatedAt  time.Time
}

// Message kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

// AppendInput describes a message append request.
type AppendInput struct {
	SenderID   string
	ReceiverID string
	Content    string
	Kind       string
	Now        time.Time
}

// Store is the message persistence boundary.
//
// Requirements:
//   - Append assigns a server id and timestamp; insertion order is conversation order.
//   - History returns both directions of a conversation ordered by creation.
//   - MarkRead is a bulk false->true transition per (sender, reader) pair and
//     reports how many messages changed; re-issuing it is a no-op.
type Store interface {
	Append(ctx context.Context, in AppendInput) (Message, error)
	History(ctx context.Context, userA, userB string) ([]Message, error)
	MarkRead(ctx context.Context, senderID, readerID string) (int64, error)
	Close() error
}

// NormalizeKind maps an empty kind to text and reports validity.
func NormalizeKind(kind string) (string, bool) {
	switch kind {
	case "":
		return KindText, true
	case KindText, KindImage:
		return kind, true
	default:
		return "", false
	}
}
