package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ripple/cmd/internal/calls"

	v1 "ripple/shared/contracts/realtime/v1"
)

// CallTracker models a call's lifecycle across the caller/receiver pair and
// persists terminal outcomes.
//
// Lifecycle: Ringing -> Accepted -> Ended, or Ringing -> Rejected, or
// Ringing -> Canceled when the receiver is offline. A ringing call has no
// timeout; it remains until an explicit accept/reject or disconnect, and a
// disconnect mid-call clears presence only.
//
// Persistence is best-effort: a call-log write failure is logged but never
// blocks the signaling relay. The peer always hears the outcome.
type CallTracker struct {
	log    *slog.Logger
	router *Router
	store  calls.Store
}

// NewCallTracker constructs a CallTracker and registers its handlers.
func NewCallTracker(log *slog.Logger, router *Router, store calls.Store) *CallTracker {
	if log == nil {
		log = slog.Default()
	}
	t := &CallTracker{log: log, router: router, store: store}

	router.Handle(v1.TypeCallUser, t.onCallUser)
	router.Handle(v1.TypeCallAccepted, t.onCallAccepted)
	router.Handle(v1.TypeCallRejected, t.onCallRejected)
	router.Handle(v1.TypeSignal, t.onSignal)
	router.Handle(v1.TypeEndCall, t.onEndCall)

	return t
}

// onCallUser rings the receiver or tells the caller the receiver is offline.
// No log entry is written while ringing.
func (t *CallTracker) onCallUser(_ context.Context, c *Client, payload json.RawMessage) error {
	var p v1.CallUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if p.CallerID == "" || p.ReceiverID == "" {
		return fmt.Errorf("missing caller_id or receiver_id")
	}
	if bound := c.UserID(); bound != "" && p.CallerID != bound {
		return fmt.Errorf("caller_id does not match session identity")
	}
	kind, ok := calls.NormalizeKind(p.CallType)
	if !ok {
		return fmt.Errorf("invalid call_type: %q", p.CallType)
	}

	delivered := t.router.DeliverTo(p.ReceiverID, v1.TypeIncomingCall, v1.IncomingCallPayload{
		CallerID:     p.CallerID,
		CallerName:   p.CallerName,
		CallerAvatar: p.CallerAvatar,
		CallType:     kind,
	})
	if !delivered {
		t.router.ReplyOffline(c, p.ReceiverID)
		return nil
	}

	t.log.Info("call.ringing", "caller", p.CallerID, "receiver", p.ReceiverID, "kind", kind)
	return nil
}

// onCallAccepted relays the answer payload back to the caller.
// The terminal log write happens at end-call, not here.
func (t *CallTracker) onCallAccepted(_ context.Context, _ *Client, payload json.RawMessage) error {
	var p v1.CallAcceptedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if p.CallerID == "" {
		return fmt.Errorf("missing caller_id")
	}

	t.router.DeliverTo(p.CallerID, v1.TypeCallAccepted, v1.CallAcceptedPayload{
		CallerID: p.CallerID,
		Signal:   p.Signal,
	})
	return nil
}

// onCallRejected relays the rejection to the caller and appends a terminal
// rejected log (kind defaults to audio, no end time). Only a named participant
// may reject; anyone else could otherwise fabricate log entries.
func (t *CallTracker) onCallRejected(ctx context.Context, c *Client, payload json.RawMessage) error {
	var p v1.CallRejectedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if p.CallerID == "" || p.ReceiverID == "" {
		return fmt.Errorf("missing caller_id or receiver_id")
	}
	if bound := c.UserID(); bound != "" && bound != p.CallerID && bound != p.ReceiverID {
		return fmt.Errorf("session identity is not a call participant")
	}

	t.router.DeliverTo(p.CallerID, v1.TypeCallRejected, v1.CallRejectedPayload{
		CallerID:   p.CallerID,
		ReceiverID: p.ReceiverID,
	})

	if _, err := t.store.Append(ctx, calls.AppendInput{
		CallerID:   p.CallerID,
		ReceiverID: p.ReceiverID,
		Kind:       p.CallType,
		Status:     calls.StatusRejected,
	}); err != nil {
		t.log.Error("call.log.rejected.fail", "caller", p.CallerID, "receiver", p.ReceiverID, "err", err)
	}
	return nil
}

// onSignal relays an opaque signaling blob verbatim to its explicit target.
func (t *CallTracker) onSignal(_ context.Context, c *Client, payload json.RawMessage) error {
	var p v1.SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if p.TargetID == "" {
		return fmt.Errorf("missing target_id")
	}

	t.router.DeliverTo(p.TargetID, v1.TypeSignal, v1.SignalPayload{
		TargetID: p.TargetID,
		SenderID: c.UserID(),
		Signal:   p.Signal,
	})
	return nil
}

// onEndCall notifies the other party and appends the terminal accepted log
// with an end time. The other party is whichever of the two supplied
// identities is not the initiating connection's bound identity.
func (t *CallTracker) onEndCall(ctx context.Context, c *Client, payload json.RawMessage) error {
	var p v1.EndCallPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if p.CallerID == "" || p.ReceiverID == "" {
		return fmt.Errorf("missing caller_id or receiver_id")
	}
	if bound := c.UserID(); bound != "" && bound != p.CallerID && bound != p.ReceiverID {
		return fmt.Errorf("session identity is not a call participant")
	}

	other := p.CallerID
	if c.UserID() == p.CallerID {
		other = p.ReceiverID
	}

	t.router.DeliverTo(other, v1.TypeCallEnded, v1.EndCallPayload{
		CallerID:   p.CallerID,
		ReceiverID: p.ReceiverID,
		CallType:   p.CallType,
	})

	now := time.Now().UTC()
	if _, err := t.store.Append(ctx, calls.AppendInput{
		CallerID:   p.CallerID,
		ReceiverID: p.ReceiverID,
		Kind:       p.CallType,
		Status:     calls.StatusAccepted,
		EndedAt:    &now,
	}); err != nil {
		t.log.Error("call.log.ended.fail", "caller", p.CallerID, "receiver", p.ReceiverID, "err", err)
	}
	return nil
}
