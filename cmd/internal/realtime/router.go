package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ripple/cmd/internal/ids"

	v1 "ripple/shared/contracts/realtime/v1"
)

// HandlerFunc processes one inbound event for the originating session.
type HandlerFunc func(ctx context.Context, c *Client, payload json.RawMessage) error

// FriendSource resolves the friend identities of a user for roster filtering.
type FriendSource interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
}

// Router dispatches inbound realtime events to their handler and resolves
// delivery targets through the presence registry.
//
// Delivery is best-effort and fire-and-forget: an offline target is reported
// back to the originator via user-offline, never retried or queued. No ordering
// is promised across identities; per target, delivery follows dispatch order.
type Router struct {
	log      *slog.Logger
	registry *Registry
	friends  FriendSource

	handlers map[string]HandlerFunc
}

// NewRouter constructs a Router. friends may be nil, which disables roster
// filtering (every online identity sees every other, as in dev mode).
func NewRouter(log *slog.Logger, registry *Registry, friends FriendSource) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		log:      log,
		registry: registry,
		friends:  friends,
		handlers: make(map[string]HandlerFunc),
	}
}

// Registry exposes the presence registry the router resolves against.
func (rt *Router) Registry() *Registry { return rt.registry }

// Handle registers the handler for an event type. Registration happens during
// wiring, before any Dispatch; the table is read-only afterwards.
func (rt *Router) Handle(eventType string, h HandlerFunc) {
	if eventType == "" || h == nil {
		return
	}
	rt.handlers[eventType] = h
}

// Dispatch routes a validated envelope to its handler.
func (rt *Router) Dispatch(ctx context.Context, c *Client, env v1.Envelope) error {
	h, ok := rt.handlers[env.Type]
	if !ok {
		return fmt.Errorf("no handler for type %q", env.Type)
	}
	metricEventsTotal.WithLabelValues(env.Type).Inc()
	return h(ctx, c, env.Payload)
}

// DeliverTo resolves targetID and enqueues an envelope of the given type.
// It returns false when the target has no live connection; the payload is then
// discarded (callers decide whether to inform the originator).
func (rt *Router) DeliverTo(targetID, eventType string, payload any) bool {
	target, ok := rt.registry.Resolve(targetID)
	if !ok {
		metricOfflineTotal.Inc()
		return false
	}

	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		rt.log.Error("router.marshal.fail", "type", eventType, "err", err)
		return true
	}

	if !enqueue(target, env) {
		rt.log.Warn("router.delivery.dropped", "type", eventType, "target", targetID)
		return true
	}
	metricDeliveriesTotal.WithLabelValues(eventType).Inc()
	return true
}

// ReplyOffline informs the originating session that its target is unreachable.
func (rt *Router) ReplyOffline(c *Client, targetID string) {
	env, err := NewEnvelope(v1.TypeUserOffline, v1.UserOfflinePayload{UserID: targetID})
	if err != nil {
		return
	}
	_ = enqueue(c, env)
}

// SendError sends a generic error envelope to the originating session.
func (rt *Router) SendError(c *Client, code, msg string) {
	env, err := NewEnvelope(v1.TypeError, v1.ErrorPayload{Code: code, Message: msg})
	if err != nil {
		return
	}
	_ = enqueue(c, env)
}

// BroadcastPresence pushes each online identity its visible roster.
func (rt *Router) BroadcastPresence() {
	rt.registry.BroadcastPresence(func(roster []v1.RosterEntry) v1.Envelope {
		env, err := NewEnvelope(v1.TypeOnlineUsers, v1.OnlineUsersPayload{Users: roster})
		if err != nil {
			return v1.Envelope{}
		}
		return env
	})
}

// LookupFriends fetches the friend identities for roster filtering.
// Returns nil (no filtering) when no friend source is wired or the lookup fails.
func (rt *Router) LookupFriends(ctx context.Context, userID string) []string {
	if rt.friends == nil {
		return nil
	}
	out, err := rt.friends.FriendIDs(ctx, userID)
	if err != nil {
		rt.log.Error("router.friends.lookup.fail", "user_id", userID, "err", err)
		return nil
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Notify pushes a REST-triggered event to the identity's live connection.
// It reports whether the identity was online. This is the outbound-broadcast
// seam shared between the HTTP layer and the realtime layer.
func (rt *Router) Notify(userID, eventType string, payload any) bool {
	return rt.DeliverTo(userID, eventType, payload)
}

// FriendsChanged refreshes the cached friend sets of the given identities and
// rebroadcasts presence, so a freshly accepted friendship becomes visible in
// both rosters without a reconnect.
func (rt *Router) FriendsChanged(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		if _, online := rt.registry.Resolve(id); !online {
			continue
		}
		if fs := rt.LookupFriends(ctx, id); fs != nil {
			rt.registry.SetFriends(id, fs)
		}
	}
	rt.BroadcastPresence()
}

// NewEnvelope wraps a payload into a v1 envelope with a fresh ULID id.
func NewEnvelope(eventType string, payload any) (v1.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return v1.Envelope{}, err
	}

	now := time.Now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		return v1.Envelope{}, err
	}

	return v1.Envelope{
		V:       v1.Version,
		Type:    eventType,
		ID:      id,
		TS:      now,
		Payload: raw,
	}, nil
}

// enqueue performs a non-blocking send to the client queue.
// Full queues and closing clients drop the envelope rather than block.
func enqueue(c *Client, env v1.Envelope) bool {
	if c == nil {
		return false
	}

	select {
	case <-c.Done():
		metricDroppedTotal.Inc()
		return false
	default:
	}

	select {
	case c.Send <- env:
		return true
	default:
		metricDroppedTotal.Inc()
		return false
	}
}
