package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	v1 "ripple/shared/contracts/realtime/v1"
)

type staticFriends struct {
	m   map[string][]string
	err error
}

func (s staticFriends) FriendIDs(_ context.Context, userID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.m[userID], nil
}

func mustEnvelope(t *testing.T, eventType string, payload any) v1.Envelope {
	t.Helper()
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		t.Fatalf("NewEnvelope(%s): %v", eventType, err)
	}
	return env
}

func recvType(t *testing.T, c *Client, want string) v1.Envelope {
	t.Helper()
	select {
	case env := <-c.Send:
		if env.Type != want {
			t.Fatalf("received type=%q want %q", env.Type, want)
		}
		return env
	default:
		t.Fatalf("no envelope queued, want %q", want)
		return v1.Envelope{}
	}
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	rt := NewRouter(testLogger(), NewRegistry(testLogger()), nil)

	var gotType string
	rt.Handle(v1.TypeTyping, func(_ context.Context, _ *Client, payload json.RawMessage) error {
		gotType = v1.TypeTyping
		return nil
	})

	c := NewClient("s", 4)
	env := mustEnvelope(t, v1.TypeTyping, v1.TypingPayload{SenderID: "a", ReceiverID: "b"})
	if err := rt.Dispatch(context.Background(), c, env); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if gotType != v1.TypeTyping {
		t.Fatal("handler not invoked")
	}

	unknown := mustEnvelope(t, "typo-event", struct{}{})
	if err := rt.Dispatch(context.Background(), c, unknown); err == nil {
		t.Fatal("Dispatch of unregistered type succeeded")
	}
}

func TestRouterDeliverTo(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testLogger())
	rt := NewRouter(testLogger(), reg, nil)

	target := NewClient("st", 4)
	reg.Announce("u2", target, Profile{}, nil)

	if !rt.DeliverTo("u2", v1.TypeNewMessage, v1.MessagePayload{ID: "m1"}) {
		t.Fatal("DeliverTo(online) reported offline")
	}
	env := recvType(t, target, v1.TypeNewMessage)
	if env.V != v1.Version || env.ID == "" {
		t.Fatalf("envelope v=%q id=%q want versioned with id", env.V, env.ID)
	}

	if rt.DeliverTo("nobody", v1.TypeNewMessage, v1.MessagePayload{ID: "m2"}) {
		t.Fatal("DeliverTo(offline) reported online")
	}
}

func TestRouterReplyOfflineAndSendError(t *testing.T) {
	t.Parallel()

	rt := NewRouter(testLogger(), NewRegistry(testLogger()), nil)
	c := NewClient("s", 4)

	rt.ReplyOffline(c, "gone")
	env := recvType(t, c, v1.TypeUserOffline)
	var off v1.UserOfflinePayload
	if err := json.Unmarshal(env.Payload, &off); err != nil || off.UserID != "gone" {
		t.Fatalf("user-offline payload=%+v err=%v", off, err)
	}

	rt.SendError(c, "storage_failed", "boom")
	env = recvType(t, c, v1.TypeError)
	var ep v1.ErrorPayload
	if err := json.Unmarshal(env.Payload, &ep); err != nil || ep.Code != "storage_failed" {
		t.Fatalf("error payload=%+v err=%v", ep, err)
	}
}

func TestRouterLookupFriends(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		friends FriendSource
		want    []string
	}{
		{name: "no source disables filtering", friends: nil, want: nil},
		{name: "lookup failure disables filtering", friends: staticFriends{err: errors.New("db down")}, want: nil},
		{name: "empty result normalized to non-nil", friends: staticFriends{m: map[string][]string{}}, want: []string{}},
		{name: "friends returned", friends: staticFriends{m: map[string][]string{"u1": {"u2"}}}, want: []string{"u2"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rt := NewRouter(testLogger(), NewRegistry(testLogger()), tc.friends)
			got := rt.LookupFriends(context.Background(), "u1")
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("LookupFriends=%v want %v", got, tc.want)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("LookupFriends=%v want %v", got, tc.want)
			}
		})
	}
}

func TestRouterFriendsChangedRefreshesRoster(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(testLogger())
	friends := staticFriends{m: map[string][]string{"a": {"b"}, "b": {"a"}}}
	rt := NewRouter(testLogger(), reg, friends)

	ca := NewClient("sa", 4)
	cb := NewClient("sb", 4)
	reg.Announce("a", ca, Profile{}, []string{})
	reg.Announce("b", cb, Profile{}, []string{})

	rt.FriendsChanged(context.Background(), "a", "b")

	env := recvType(t, ca, v1.TypeOnlineUsers)
	var roster v1.OnlineUsersPayload
	if err := json.Unmarshal(env.Payload, &roster); err != nil {
		t.Fatalf("unmarshal roster: %v", err)
	}
	if len(roster.Users) != 2 {
		t.Fatalf("roster=%+v want both identities after friendship", roster.Users)
	}
}

func TestEnqueueDropsWhenClosing(t *testing.T) {
	t.Parallel()

	c := NewClient("s", 4)
	c.Close()

	if enqueue(c, v1.Envelope{Type: v1.TypeError}) {
		t.Fatal("enqueue to closing client succeeded")
	}
}
