package social

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"ripple/cmd/internal/domain"

	v1 "ripple/shared/contracts/realtime/v1"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedPush struct {
	userID    string
	eventType string
	payload   any
}

type fakeNotifier struct {
	mu      sync.Mutex
	pushes  []recordedPush
	online  bool
	changed []string
}

func (f *fakeNotifier) Notify(userID, eventType string, payload any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, recordedPush{userID: userID, eventType: eventType, payload: payload})
	return f.online
}

func (f *fakeNotifier) FriendsChanged(_ context.Context, userIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, userIDs...)
}

func seedUsers(t *testing.T, store Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := store.UpsertUser(context.Background(), UpsertUserInput{
			ID: id, DisplayName: "User " + id, Email: id + "@example.com",
		}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func newServiceFixture(t *testing.T) (*Service, *InMemoryStore, *fakeNotifier) {
	t.Helper()
	store := NewInMemoryStore()
	notifier := &fakeNotifier{online: true}
	svc, err := NewService(testLogger(), store, notifier)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, notifier
}

func TestSendRequestCreatesAndPushes(t *testing.T) {
	t.Parallel()

	svc, _, notifier := newServiceFixture(t)
	seedUsers(t, svc.store, "u1", "u2")
	ctx := context.Background()

	req, err := svc.SendRequest(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if req.ID == "" || req.Status != RequestPending {
		t.Fatalf("request=%+v want pending with id", req)
	}

	if len(notifier.pushes) != 1 {
		t.Fatalf("pushes=%d want 1", len(notifier.pushes))
	}
	push := notifier.pushes[0]
	if push.userID != "u2" || push.eventType != v1.TypeFriendRequestReceived {
		t.Fatalf("push=%+v want friend-request-received to u2", push)
	}
	p, ok := push.payload.(v1.FriendRequestPayload)
	if !ok || p.SenderID != "u1" || p.RequestID != req.ID {
		t.Fatalf("payload=%+v", push.payload)
	}
}

func TestSendRequestValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceFixture(t)
	seedUsers(t, svc.store, "u1", "u2")
	ctx := context.Background()

	cases := []struct {
		name     string
		sender   string
		receiver string
		wantErr  error
	}{
		{name: "missing sender", sender: "", receiver: "u2", wantErr: domain.ErrInvalidInput},
		{name: "self request", sender: "u1", receiver: "u1", wantErr: domain.ErrInvalidInput},
		{name: "unknown receiver", sender: "u1", receiver: "ghost", wantErr: domain.ErrNotFound},
		{name: "unknown sender", sender: "ghost", receiver: "u2", wantErr: domain.ErrNotFound},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.SendRequest(ctx, tc.sender, tc.receiver)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err=%v want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSendRequestDuplicateIsConflict(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceFixture(t)
	seedUsers(t, svc.store, "u1", "u2")
	ctx := context.Background()

	if _, err := svc.SendRequest(ctx, "u1", "u2"); err != nil {
		t.Fatalf("first SendRequest: %v", err)
	}
	_, err := svc.SendRequest(ctx, "u1", "u2")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate err=%v want Conflict", err)
	}
}

func TestSendRequestRevivesRejected(t *testing.T) {
	t.Parallel()

	svc, _, notifier := newServiceFixture(t)
	seedUsers(t, svc.store, "u1", "u2")
	ctx := context.Background()

	req, err := svc.SendRequest(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if _, err := svc.RejectRequest(ctx, "u2", req.ID); err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}

	revived, err := svc.SendRequest(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("revive SendRequest: %v", err)
	}
	if revived.ID != req.ID {
		t.Fatalf("revived id=%q want original %q (no duplicate record)", revived.ID, req.ID)
	}
	if revived.Status != RequestPending {
		t.Fatalf("revived status=%q want pending", revived.Status)
	}
	if len(notifier.pushes) != 2 {
		t.Fatalf("pushes=%d want 2 (initial + revival)", len(notifier.pushes))
	}
}

func TestAcceptRequest(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newServiceFixture(t)
	seedUsers(t, svc.store, "u1", "u2")
	ctx := context.Background()

	req, err := svc.SendRequest(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	// Only the receiver may accept.
	if _, err := svc.AcceptRequest(ctx, "u1", req.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("sender accept err=%v want Unauthorized", err)
	}

	accepted, err := svc.AcceptRequest(ctx, "u2", req.ID)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if accepted.Status != RequestAccepted {
		t.Fatalf("status=%q want accepted", accepted.Status)
	}

	// Friendship is linked both ways.
	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		ok, err := store.AreFriends(ctx, pair[0], pair[1])
		if err != nil || !ok {
			t.Fatalf("AreFriends(%v)=%v,%v want true", pair, ok, err)
		}
	}

	// Sender is notified and both rosters refresh.
	last := notifier.pushes[len(notifier.pushes)-1]
	if last.userID != "u1" || last.eventType != v1.TypeFriendRequestAccepted {
		t.Fatalf("push=%+v want friend-request-accepted to u1", last)
	}
	if len(notifier.changed) != 2 {
		t.Fatalf("FriendsChanged=%v want both identities", notifier.changed)
	}

	// Acceptance is terminal.
	if _, err := svc.AcceptRequest(ctx, "u2", req.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second accept err=%v want Conflict", err)
	}

	// Friends cannot re-request.
	if _, err := svc.SendRequest(ctx, "u2", "u1"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("friend re-request err=%v want Conflict", err)
	}
}

func TestAcceptRequestUnknownID(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceFixture(t)
	seedUsers(t, svc.store, "u1")

	_, err := svc.AcceptRequest(context.Background(), "u1", "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v want NotFound", err)
	}
}

func TestRejectRequest(t *testing.T) {
	t.Parallel()

	svc, store, _ := newServiceFixture(t)
	seedUsers(t, svc.store, "u1", "u2")
	ctx := context.Background()

	req, err := svc.SendRequest(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	if _, err := svc.RejectRequest(ctx, "u1", req.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("sender reject err=%v want Unauthorized", err)
	}

	rejected, err := svc.RejectRequest(ctx, "u2", req.ID)
	if err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	if rejected.Status != RequestRejected {
		t.Fatalf("status=%q want rejected", rejected.Status)
	}

	if ok, _ := store.AreFriends(ctx, "u1", "u2"); ok {
		t.Fatal("rejection created a friendship")
	}
}

func TestSyncProfile(t *testing.T) {
	t.Parallel()

	svc, _, _ := newServiceFixture(t)
	ctx := context.Background()

	if _, err := svc.SyncProfile(ctx, UpsertUserInput{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty sync err=%v want InvalidInput", err)
	}

	u, err := svc.SyncProfile(ctx, UpsertUserInput{ID: "u1", DisplayName: "One", Email: "one@example.com"})
	if err != nil || u.DisplayName != "One" {
		t.Fatalf("SyncProfile=%+v,%v", u, err)
	}

	// Upsert updates in place.
	u, err = svc.SyncProfile(ctx, UpsertUserInput{ID: "u1", DisplayName: "Won", Email: "one@example.com"})
	if err != nil || u.DisplayName != "Won" {
		t.Fatalf("re-sync=%+v,%v", u, err)
	}
	if u.CreatedAt.After(u.UpdatedAt) {
		t.Fatalf("CreatedAt=%v after UpdatedAt=%v", u.CreatedAt, u.UpdatedAt)
	}
}
