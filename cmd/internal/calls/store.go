// Package calls persists terminal call outcomes.
package calls

import (
	"context"
	"time"
)

// Call kinds.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Terminal outcomes. A log row is immutable once written; the relay path only appends.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusMissed   = "missed"
	StatusCanceled = "canceled"
)

// Log is one terminal call outcome.
type Log struct {
	ID         string
	CallerID   string
	ReceiverID string
	Kind       string
	Status     string
	StartedAt  time.Time
	EndedAt    *time.Time
}

// AppendInput describes a call-log append request.
// Status defaults to missed and Kind to audio when unset.
type AppendInput struct {
	CallerID   string
	ReceiverID string
	Kind       string
	Status     string
	EndedAt    *time.Time
	Now        time.Time
}

// Store is the call-log persistence boundary. Logs are append-only.
type Store interface {
	Append(ctx context.Context, in AppendInput) (Log, error)
	HistoryFor(ctx context.Context, userID string) ([]Log, error)
	Close() error
}

// NormalizeKind maps an empty kind to audio and reports validity.
func NormalizeKind(kind string) (string, bool) {
	switch kind {
	case "":
		return KindAudio, true
	case KindAudio, KindVideo:
		return kind, true
	default:
		return "", false
	}
}

// NormalizeStatus maps an empty status to missed and reports validity.
func NormalizeStatus(status string) (string, bool) {
	switch status {
	case "":
		return StatusMissed, true
	case StatusAccepted, StatusRejected, StatusMissed, StatusCanceled:
		return status, true
	default:
		return "", false
	}
}
