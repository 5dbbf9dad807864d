package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"ripple/cmd/internal/chat"

	v1 "ripple/shared/contracts/realtime/v1"
)

// ChatDelivery persists and relays direct messages, typing indicators, and
// read-receipt transitions.
//
// Writes are serialized per unordered conversation pair so two back-to-back
// sends in the same conversation always persist and relay in issuance order,
// even when the first storage write is slower.
type ChatDelivery struct {
	log    *slog.Logger
	router *Router
	store  chat.Store

	convLocks [64]sync.Mutex
}

// NewChatDelivery constructs a ChatDelivery and registers its handlers.
func NewChatDelivery(log *slog.Logger, router *Router, store chat.Store) *ChatDelivery {
	if log == nil {
		log = slog.Default()
	}
	d := &ChatDelivery{log: log, router: router, store: store}

	router.Handle(v1.TypeSendMessage, d.onSendMessage)
	router.Handle(v1.TypeTyping, d.typingRelay(v1.TypeTyping))
	router.Handle(v1.TypeStopTyping, d.typingRelay(v1.TypeStopTyping))
	router.Handle(v1.TypeMarkRead, d.onMarkRead)

	return d
}

// onSendMessage persists first; only after successful persistence the message
// is relayed to the receiver (if online) and echoed to the sender with the
// server-assigned id and timestamp. A storage failure aborts the relay and is
// reported to the originating connection, distinguishable from "target offline".
func (d *ChatDelivery) onSendMessage(ctx context.Context, c *Client, payload json.RawMessage) error {
	var p v1.SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	sender := p.SenderID
	if sender == "" {
		sender = c.UserID()
	}
	if sender == "" || p.ReceiverID == "" {
		return fmt.Errorf("missing sender_id or receiver_id")
	}
	if bound := c.UserID(); bound != "" && sender != bound {
		return fmt.Errorf("sender_id does not match session identity")
	}
	if p.Content == "" {
		return fmt.Errorf("missing content")
	}

	lock := d.lockFor(sender, p.ReceiverID)
	lock.Lock()
	msg, err := d.store.Append(ctx, chat.AppendInput{
		SenderID:   sender,
		ReceiverID: p.ReceiverID,
		Content:    p.Content,
		Kind:       p.Kind,
		Now:        time.Now().UTC(),
	})
	if err != nil {
		lock.Unlock()
		d.log.Error("chat.persist.fail", "sender", sender, "receiver", p.ReceiverID, "err", err)
		d.router.SendError(c, "storage_failed", "message not persisted")
		return nil
	}

	wire := messagePayload(msg)
	d.router.DeliverTo(p.ReceiverID, v1.TypeNewMessage, wire)
	lock.Unlock()

	if env, err := NewEnvelope(v1.TypeMessageSent, wire); err == nil {
		_ = enqueue(c, env)
	}
	return nil
}

// typingRelay relays typing/stop-typing to the target if online, keeping the
// inbound event name. No persistence, no effect when the target is offline.
func (d *ChatDelivery) typingRelay(eventType string) HandlerFunc {
	return func(_ context.Context, c *Client, payload json.RawMessage) error {
		var p v1.TypingPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		if p.ReceiverID == "" {
			return fmt.Errorf("missing receiver_id")
		}

		sender := p.SenderID
		if sender == "" {
			sender = c.UserID()
		}

		d.router.DeliverTo(p.ReceiverID, eventType, v1.TypingPayload{
			SenderID:   sender,
			ReceiverID: p.ReceiverID,
		})
		return nil
	}
}

// onMarkRead bulk-flips unread messages from sender to reader, then notifies
// the original sender, but only when at least one message actually changed.
// Re-issuing mark-read for an already-read conversation is a no-op.
func (d *ChatDelivery) onMarkRead(ctx context.Context, c *Client, payload json.RawMessage) error {
	var p v1.MarkReadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	reader := p.ReaderID
	if reader == "" {
		reader = c.UserID()
	}
	if p.SenderID == "" || reader == "" {
		return fmt.Errorf("missing sender_id or reader_id")
	}

	n, err := d.store.MarkRead(ctx, p.SenderID, reader)
	if err != nil {
		d.log.Error("chat.markread.fail", "sender", p.SenderID, "reader", reader, "err", err)
		d.router.SendError(c, "storage_failed", "read receipt not persisted")
		return nil
	}
	if n == 0 {
		return nil
	}

	d.router.DeliverTo(p.SenderID, v1.TypeMessagesRead, v1.MessagesReadPayload{ReaderID: reader})
	return nil
}

func (d *ChatDelivery) lockFor(a, b string) *sync.Mutex {
	if a > b {
		a, b = b, a
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(a))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(b))
	return &d.convLocks[h.Sum32()%uint32(len(d.convLocks))]
}

func messagePayload(m chat.Message) v1.MessagePayload {
	return v1.MessagePayload{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Kind:       m.Kind,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}
