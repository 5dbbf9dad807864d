package social

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ripple/cmd/internal/domain"
	"ripple/cmd/internal/ids"
)

// InMemoryStore is a dev-only fallback when DB is not configured.
type InMemoryStore struct {
	mu       sync.Mutex
	users    map[string]User
	friends  map[string]map[string]struct{}
	requests map[string]FriendRequest
}

// NewInMemoryStore constructs an in-memory social Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]User),
		friends:  make(map[string]map[string]struct{}),
		requests: make(map[string]FriendRequest),
	}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// UpsertUser creates or updates a profile record.
func (s *InMemoryStore) UpsertUser(ctx context.Context, in UpsertUserInput) (User, error) {
	if in.ID == "" {
		return User{}, errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[in.ID]
	if !ok {
		u = User{ID: in.ID, CreatedAt: now}
	}
	u.Email = in.Email
	u.DisplayName = in.DisplayName
	u.AvatarURL = in.AvatarURL
	u.UpdatedAt = now
	s.users[in.ID] = u

	return u, nil
}

// GetUser returns the profile for id or domain.ErrNotFound.
func (s *InMemoryStore) GetUser(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, domain.ErrNotFound
	}
	return u, nil
}

// SearchUsers matches display name or email case-insensitively, excluding self.
func (s *InMemoryStore) SearchUsers(ctx context.Context, selfID, query string, limit int) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []User
	for _, u := range s.users {
		if u.ID == selfID {
			continue
		}
		if strings.Contains(strings.ToLower(u.DisplayName), query) ||
			strings.Contains(strings.ToLower(u.Email), query) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FriendIDs returns the friend identities of userID (never nil for known users).
func (s *InMemoryStore) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.friends[userID]))
	for id := range s.friends[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// FriendsOf returns the friend profiles of userID.
func (s *InMemoryStore) FriendsOf(ctx context.Context, userID string) ([]User, error) {
	fids, err := s.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, 0, len(fids))
	for _, id := range fids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// AreFriends reports mutual friendship.
func (s *InMemoryStore) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.friends[a][b]
	return ok, nil
}

// CreateRequest stores a new friend request.
func (s *InMemoryStore) CreateRequest(ctx context.Context, req FriendRequest) error {
	if req.ID == "" || req.SenderID == "" || req.ReceiverID == "" {
		return errors.New("invalid input")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.ID] = req
	return nil
}

// GetRequest returns a request by id or domain.ErrNotFound.
func (s *InMemoryStore) GetRequest(ctx context.Context, id string) (FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return FriendRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return FriendRequest{}, domain.ErrNotFound
	}
	return req, nil
}

// FindRequest returns the request for the ordered (sender, receiver) pair.
func (s *InMemoryStore) FindRequest(ctx context.Context, senderID, receiverID string) (FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return FriendRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, req := range s.requests {
		if req.SenderID == senderID && req.ReceiverID == receiverID {
			return req, nil
		}
	}
	return FriendRequest{}, domain.ErrNotFound
}

// PendingRequestsFor returns pending requests addressed to receiverID with sender profiles.
func (s *InMemoryStore) PendingRequestsFor(ctx context.Context, receiverID string) ([]PendingRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []PendingRequest
	for _, req := range s.requests {
		if req.ReceiverID == receiverID && req.Status == RequestPending {
			out = append(out, PendingRequest{Request: req, Sender: s.users[req.SenderID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Request.ID < out[j].Request.ID })
	return out, nil
}

// SetRequestStatus performs a guarded fromStatus -> toStatus transition.
func (s *InMemoryStore) SetRequestStatus(ctx context.Context, id, fromStatus, toStatus string, now time.Time) (FriendRequest, error) {
	if err := ctx.Err(); err != nil {
		return FriendRequest{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return FriendRequest{}, domain.ErrNotFound
	}
	if req.Status != fromStatus {
		return FriendRequest{}, domain.ErrConflict
	}
	req.Status = toStatus
	req.UpdatedAt = now
	s.requests[id] = req
	return req, nil
}

// AcceptRequest marks the request accepted and links the friendship both ways.
func (s *InMemoryStore) AcceptRequest(ctx context.Context, id string, now time.Time) (FriendRequest, error) {
	req, err := s.SetRequestStatus(ctx, id, RequestPending, RequestAccepted, now)
	if err != nil {
		return FriendRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link := func(a, b string) {
		if s.friends[a] == nil {
			s.friends[a] = make(map[string]struct{})
		}
		s.friends[a][b] = struct{}{}
	}
	link(req.SenderID, req.ReceiverID)
	link(req.ReceiverID, req.SenderID)

	return req, nil
}

// NewRequestID allocates a ULID for a friend request.
func NewRequestID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
