// Package social manages user profiles and friend relationships.
package social

import (
	"context"
	"time"
)

// User is a profile record synced from the external identity provider.
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Friend-request states. Accepted is terminal; rejected may revive to pending.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest is a directed request from SenderID to ReceiverID.
// Invariant: at most one non-rejected request per ordered (sender, receiver) pair.
type FriendRequest struct {
	ID         string
	SenderID   string
	ReceiverID string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PendingRequest is a pending friend request joined with its sender profile.
type PendingRequest struct {
	Request FriendRequest
	Sender  User
}

// UpsertUserInput describes a profile sync request.
type UpsertUserInput struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	Now         time.Time
}

// Store is the social persistence boundary.
//
// Requirements:
//   - GetUser/GetRequest return domain.ErrNotFound for absent records.
//   - AcceptRequest atomically marks the request accepted and adds each party
//     to the other's friend list.
//   - SetRequestStatus performs a guarded transition (fromStatus -> toStatus)
//     and reports domain.ErrConflict when the record is not in fromStatus.
type Store interface {
	UpsertUser(ctx context.Context, in UpsertUserInput) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	SearchUsers(ctx context.Context, selfID, query string, limit int) ([]User, error)

	FriendIDs(ctx context.Context, userID string) ([]string, error)
	FriendsOf(ctx context.Context, userID string) ([]User, error)
	AreFriends(ctx context.Context, a, b string) (bool, error)

	CreateRequest(ctx context.Context, req FriendRequest) error
	GetRequest(ctx context.Context, id string) (FriendRequest, error)
	FindRequest(ctx context.Context, senderID, receiverID string) (FriendRequest, error)
	PendingRequestsFor(ctx context.Context, receiverID string) ([]PendingRequest, error)
	SetRequestStatus(ctx context.Context, id, fromStatus, toStatus string, now time.Time) (FriendRequest, error)
	AcceptRequest(ctx context.Context, id string, now time.Time) (FriendRequest, error)

	Close() error
}
