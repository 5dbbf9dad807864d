package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ripple/cmd/internal/domain"

	v1 "ripple/shared/contracts/realtime/v1"
)

// Notifier is the outbound-broadcast seam shared with the realtime layer:
// REST-triggered actions push events to the affected identity's live
// connection through it. Implemented by realtime.Router.
type Notifier interface {
	// Notify reports whether the identity was online.
	Notify(userID, eventType string, payload any) bool
	// FriendsChanged refreshes roster filtering after a friendship change.
	FriendsChanged(ctx context.Context, userIDs ...string)
}

// Service implements the friend-request workflow on top of Store.
type Service struct {
	log    *slog.Logger
	store  Store
	notify Notifier
}

// NewService constructs a Service. notify may be nil (no realtime layer).
func NewService(log *slog.Logger, store Store, notify Notifier) (*Service, error) {
	if store == nil {
		return nil, errors.New("social: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, store: store, notify: notify}, nil
}

// SyncProfile upserts the caller's profile from the identity provider payload.
func (s *Service) SyncProfile(ctx context.Context, in UpsertUserInput) (User, error) {
	if in.ID == "" {
		return User{}, fmt.Errorf("%w: missing user id", domain.ErrInvalidInput)
	}
	return s.store.UpsertUser(ctx, in)
}

// SendRequest creates a friend request from senderID to receiverID.
//
// Rules (per ordered pair):
//   - both users must exist
//   - already friends -> Conflict
//   - an existing pending or accepted request -> Conflict
//   - an existing rejected request revives to pending (same record, not duplicated)
//
// The receiver is notified on its live connection, if any.
func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (FriendRequest, error) {
	if senderID == "" || receiverID == "" {
		return FriendRequest{}, fmt.Errorf("%w: missing sender or receiver", domain.ErrInvalidInput)
	}
	if senderID == receiverID {
		return FriendRequest{}, fmt.Errorf("%w: cannot befriend yourself", domain.ErrInvalidInput)
	}

	sender, err := s.store.GetUser(ctx, senderID)
	if err != nil {
		return FriendRequest{}, err
	}
	if _, err := s.store.GetUser(ctx, receiverID); err != nil {
		return FriendRequest{}, err
	}

	if friends, err := s.store.AreFriends(ctx, senderID, receiverID); err != nil {
		return FriendRequest{}, err
	} else if friends {
		return FriendRequest{}, fmt.Errorf("%w: already friends", domain.ErrConflict)
	}

	now := time.Now().UTC()

	existing, err := s.store.FindRequest(ctx, senderID, receiverID)
	switch {
	case err == nil:
		switch existing.Status {
		case RequestRejected:
			revived, err := s.store.SetRequestStatus(ctx, existing.ID, RequestRejected, RequestPending, now)
			if err != nil {
				return FriendRequest{}, err
			}
			s.pushRequestReceived(revived, sender)
			return revived, nil
		default:
			return FriendRequest{}, fmt.Errorf("%w: request already sent", domain.ErrConflict)
		}
	case errors.Is(err, domain.ErrNotFound):
		// fall through to create
	default:
		return FriendRequest{}, err
	}

	id, err := NewRequestID(now)
	if err != nil {
		return FriendRequest{}, err
	}
	req := FriendRequest{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     RequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return FriendRequest{}, err
	}

	s.pushRequestReceived(req, sender)
	return req, nil
}

// AcceptRequest accepts a pending request addressed to callerID.
// Acceptance is terminal: a second accept is a Conflict, an accept by anyone
// but the receiver is Unauthorized.
func (s *Service) AcceptRequest(ctx context.Context, callerID, requestID string) (FriendRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return FriendRequest{}, err
	}
	if req.ReceiverID != callerID {
		return FriendRequest{}, domain.ErrUnauthorized
	}
	if req.Status != RequestPending {
		return FriendRequest{}, fmt.Errorf("%w: request is %s", domain.ErrConflict, req.Status)
	}

	accepted, err := s.store.AcceptRequest(ctx, requestID, time.Now().UTC())
	if err != nil {
		return FriendRequest{}, err
	}

	if s.notify != nil {
		s.notify.Notify(accepted.SenderID, v1.TypeFriendRequestAccepted, v1.FriendAcceptedPayload{
			RequestID: accepted.ID,
			FriendID:  accepted.ReceiverID,
		})
		s.notify.FriendsChanged(ctx, accepted.SenderID, accepted.ReceiverID)
	}
	return accepted, nil
}

// RejectRequest rejects a pending request addressed to callerID.
func (s *Service) RejectRequest(ctx context.Context, callerID, requestID string) (FriendRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return FriendRequest{}, err
	}
	if req.ReceiverID != callerID {
		return FriendRequest{}, domain.ErrUnauthorized
	}

	return s.store.SetRequestStatus(ctx, requestID, RequestPending, RequestRejected, time.Now().UTC())
}

func (s *Service) pushRequestReceived(req FriendRequest, sender User) {
	if s.notify == nil {
		return
	}
	online := s.notify.Notify(req.ReceiverID, v1.TypeFriendRequestReceived, v1.FriendRequestPayload{
		RequestID:   req.ID,
		SenderID:    req.SenderID,
		DisplayName: sender.DisplayName,
		AvatarURL:   sender.AvatarURL,
	})
	s.log.Info("friend.request.push", "request_id", req.ID, "receiver", req.ReceiverID, "online", online)
}
