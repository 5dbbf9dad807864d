package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ripple/cmd/internal/chat"

	v1 "ripple/shared/contracts/realtime/v1"
)

type fakeChatStore struct {
	mu       sync.Mutex
	messages []chat.Message
	unread   map[string]int64 // "sender|reader" -> count
	err      error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{unread: make(map[string]int64)}
}

func (f *fakeChatStore) Append(_ context.Context, in chat.AppendInput) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return chat.Message{}, f.err
	}
	kind, _ := chat.NormalizeKind(in.Kind)
	m := chat.Message{
		ID:         fmt.Sprintf("m%d", len(f.messages)+1),
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		Kind:       kind,
		CreatedAt:  in.Now,
	}
	f.messages = append(f.messages, m)
	f.unread[in.SenderID+"|"+in.ReceiverID]++
	return m, nil
}

func (f *fakeChatStore) History(_ context.Context, _, _ string) ([]chat.Message, error) {
	return nil, nil
}

func (f *fakeChatStore) MarkRead(_ context.Context, senderID, readerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	key := senderID + "|" + readerID
	n := f.unread[key]
	f.unread[key] = 0
	return n, nil
}

func (f *fakeChatStore) Close() error { return nil }

func newChatFixture(t *testing.T, store chat.Store) (*Router, *Registry) {
	t.Helper()
	reg := NewRegistry(testLogger())
	rt := NewRouter(testLogger(), reg, nil)
	NewChatDelivery(testLogger(), rt, store)
	return rt, reg
}

func TestSendMessagePersistThenRelay(t *testing.T) {
	t.Parallel()

	store := newFakeChatStore()
	rt, reg := newChatFixture(t, store)

	sender := NewClient("s1", 8)
	receiver := NewClient("s2", 8)
	reg.Announce("u1", sender, Profile{}, nil)
	reg.Announce("u2", receiver, Profile{}, nil)

	if err := dispatchJSON(t, rt, sender, v1.TypeSendMessage, v1.SendMessagePayload{
		SenderID: "u1", ReceiverID: "u2", Content: "hello",
	}); err != nil {
		t.Fatalf("send-message: %v", err)
	}

	env := recvType(t, receiver, v1.TypeNewMessage)
	var got v1.MessagePayload
	if err := json.Unmarshal(env.Payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID == "" || got.Content != "hello" || got.Kind != chat.KindText {
		t.Fatalf("new-message=%+v want persisted text message with id", got)
	}

	echo := recvType(t, sender, v1.TypeMessageSent)
	var sent v1.MessagePayload
	if err := json.Unmarshal(echo.Payload, &sent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sent.ID != got.ID {
		t.Fatalf("echo id=%q relay id=%q want identical", sent.ID, got.ID)
	}
}

func TestSendMessageOfflineReceiverStillPersistsAndEchoes(t *testing.T) {
	t.Parallel()

	store := newFakeChatStore()
	rt, reg := newChatFixture(t, store)

	sender := NewClient("s1", 8)
	reg.Announce("u1", sender, Profile{}, nil)

	if err := dispatchJSON(t, rt, sender, v1.TypeSendMessage, v1.SendMessagePayload{
		SenderID: "u1", ReceiverID: "u2", Content: "are you there",
	}); err != nil {
		t.Fatalf("send-message: %v", err)
	}

	recvType(t, sender, v1.TypeMessageSent)

	store.mu.Lock()
	n := len(store.messages)
	store.mu.Unlock()
	if n != 1 {
		t.Fatalf("persisted %d messages, want 1", n)
	}
}

func TestSendMessageStorageFailure(t *testing.T) {
	t.Parallel()

	store := newFakeChatStore()
	store.err = errors.New("db down")
	rt, reg := newChatFixture(t, store)

	sender := NewClient("s1", 8)
	receiver := NewClient("s2", 8)
	reg.Announce("u1", sender, Profile{}, nil)
	reg.Announce("u2", receiver, Profile{}, nil)

	if err := dispatchJSON(t, rt, sender, v1.TypeSendMessage, v1.SendMessagePayload{
		SenderID: "u1", ReceiverID: "u2", Content: "lost",
	}); err != nil {
		t.Fatalf("send-message returned %v, failure should be reported in-band", err)
	}

	env := recvType(t, sender, v1.TypeError)
	var ep v1.ErrorPayload
	if err := json.Unmarshal(env.Payload, &ep); err != nil || ep.Code != "storage_failed" {
		t.Fatalf("error payload=%+v err=%v want storage_failed", ep, err)
	}

	// Nothing must reach the receiver when persistence failed.
	select {
	case env := <-receiver.Send:
		t.Fatalf("receiver got %q after storage failure", env.Type)
	default:
	}
}

func TestSendMessageRejectsSpoofedSender(t *testing.T) {
	t.Parallel()

	rt, reg := newChatFixture(t, newFakeChatStore())
	sender := NewClient("s1", 8)
	reg.Announce("u1", sender, Profile{}, nil)

	err := dispatchJSON(t, rt, sender, v1.TypeSendMessage, v1.SendMessagePayload{
		SenderID: "someone-else", ReceiverID: "u2", Content: "hi",
	})
	if err == nil {
		t.Fatal("spoofed sender_id accepted")
	}
}

func TestTypingRelayKeepsEventName(t *testing.T) {
	t.Parallel()

	rt, reg := newChatFixture(t, newFakeChatStore())

	sender := NewClient("s1", 8)
	receiver := NewClient("s2", 8)
	reg.Announce("u1", sender, Profile{}, nil)
	reg.Announce("u2", receiver, Profile{}, nil)

	for _, eventType := range []string{v1.TypeTyping, v1.TypeStopTyping} {
		if err := dispatchJSON(t, rt, sender, eventType, v1.TypingPayload{ReceiverID: "u2"}); err != nil {
			t.Fatalf("%s: %v", eventType, err)
		}
		env := recvType(t, receiver, eventType)
		var p v1.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if p.SenderID != "u1" {
			t.Fatalf("sender_id=%q want bound identity", p.SenderID)
		}
	}
}

func TestMarkReadNotifiesOnlyOnTransition(t *testing.T) {
	t.Parallel()

	store := newFakeChatStore()
	rt, reg := newChatFixture(t, store)

	sender := NewClient("s1", 8)
	reader := NewClient("s2", 8)
	reg.Announce("u1", sender, Profile{}, nil)
	reg.Announce("u2", reader, Profile{}, nil)

	// Seed one unread message from u1 to u2.
	if _, err := store.Append(context.Background(), chat.AppendInput{
		SenderID: "u1", ReceiverID: "u2", Content: "x", Now: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := dispatchJSON(t, rt, reader, v1.TypeMarkRead, v1.MarkReadPayload{
		SenderID: "u1", ReaderID: "u2",
	}); err != nil {
		t.Fatalf("mark-read: %v", err)
	}
	env := recvType(t, sender, v1.TypeMessagesRead)
	var p v1.MessagesReadPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.ReaderID != "u2" {
		t.Fatalf("messages-read=%+v err=%v", p, err)
	}

	// Re-issuing for an already-read conversation is silent.
	if err := dispatchJSON(t, rt, reader, v1.TypeMarkRead, v1.MarkReadPayload{
		SenderID: "u1", ReaderID: "u2",
	}); err != nil {
		t.Fatalf("mark-read repeat: %v", err)
	}
	select {
	case env := <-sender.Send:
		t.Fatalf("sender got %q on no-op mark-read", env.Type)
	default:
	}
}
