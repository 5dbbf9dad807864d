// Package v1 defines the Ripple realtime protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between server and clients to keep the wire protocol authoritative.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Inbound event types (client -> server).
const (
	// TypeUserOnline announces an identity and its profile snapshot.
	TypeUserOnline = "user-online"

	// TypeCallUser initiates a call toward a receiver identity.
	TypeCallUser = "call-user"
	// TypeCallAccepted accepts a ringing call and carries the answer payload.
	TypeCallAccepted = "call-accepted"
	// TypeCallRejected rejects a ringing call.
	TypeCallRejected = "call-rejected"
	// TypeSignal relays an opaque signaling blob to an explicit target.
	TypeSignal = "signal"
	// TypeEndCall terminates an accepted call.
	TypeEndCall = "end-call"

	// TypeSendMessage requests persistence and relay of a direct message.
	TypeSendMessage = "send-message"
	// TypeTyping and TypeStopTyping are best-effort typing indicators.
	TypeTyping     = "typing"
	TypeStopTyping = "stop-typing"
	// TypeMarkRead flips all unread messages of a conversation to read.
	TypeMarkRead = "mark-read"
)

// Outbound event types (server -> client).
const (
	// TypeOnlineUsers carries the presence roster visible to the recipient.
	TypeOnlineUsers = "online-users"
	// TypeUserOffline informs the originator that its target has no live connection.
	TypeUserOffline = "user-offline"

	// TypeIncomingCall rings the receiver of a call-user event.
	TypeIncomingCall = "incoming-call"
	// TypeCallEnded informs the other party that the call was terminated.
	TypeCallEnded = "call-ended"

	// TypeNewMessage delivers a persisted message to its receiver.
	TypeNewMessage = "new-message"
	// TypeMessageSent echoes a persisted message back to its sender.
	TypeMessageSent = "message-sent"
	// TypeMessagesRead informs a sender that the reader consumed their messages.
	TypeMessagesRead = "messages-read"

	// TypeFriendRequestReceived and TypeFriendRequestAccepted are pushed by the
	// REST layer through the shared broadcast seam.
	TypeFriendRequestReceived = "friend-request-received"
	TypeFriendRequestAccepted = "friend-request-accepted"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

var inboundTypes = map[string]struct{}{
	TypeUserOnline:   {},
	TypeCallUser:     {},
	TypeCallAccepted: {},
	TypeCallRejected: {},
	TypeSignal:       {},
	TypeEndCall:      {},
	TypeSendMessage:  {},
	TypeTyping:       {},
	TypeStopTyping:   {},
	TypeMarkRead:     {},
}

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an inbound Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}
	if _, ok := inboundTypes[e.Type]; !ok {
		return fmt.Errorf("unknown type: %q", e.Type)
	}
	if len(e.Payload) == 0 {
		return errors.New("missing payload")
	}
	return nil
}

// Call kinds (wire-stable).
const (
	CallKindAudio = "audio"
	CallKindVideo = "video"
)

// Message kinds (wire-stable).
const (
	MessageKindText  = "text"
	MessageKindImage = "image"
)

// ---- Payloads ----

// UserOnlinePayload announces an identity together with its profile snapshot.
type UserOnlinePayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// RosterEntry is one online identity visible to the roster recipient.
type RosterEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// OnlineUsersPayload carries the full roster visible to one recipient.
type OnlineUsersPayload struct {
	Users []RosterEntry `json:"users"`
}

// UserOfflinePayload names the identity that could not be reached.
type UserOfflinePayload struct {
	UserID string `json:"user_id"`
}

// CallUserPayload initiates a call.
type CallUserPayload struct {
	CallerID     string `json:"caller_id"`
	ReceiverID   string `json:"receiver_id"`
	CallType     string `json:"call_type"`
	CallerName   string `json:"caller_name,omitempty"`
	CallerAvatar string `json:"caller_avatar,omitempty"`
}

// IncomingCallPayload rings the receiver.
type IncomingCallPayload struct {
	CallerID     string          `json:"caller_id"`
	CallerName   string          `json:"caller_name,omitempty"`
	CallerAvatar string          `json:"caller_avatar,omitempty"`
	CallType     string          `json:"call_type"`
	Signal       json.RawMessage `json:"signal,omitempty"`
}

// CallAcceptedPayload carries the answer back to the caller.
type CallAcceptedPayload struct {
	CallerID string          `json:"caller_id"`
	Signal   json.RawMessage `json:"signal,omitempty"`
}

// CallRejectedPayload rejects a ringing call.
type CallRejectedPayload struct {
	CallerID   string `json:"caller_id"`
	ReceiverID string `json:"receiver_id"`
	CallType   string `json:"call_type,omitempty"`
}

// SignalPayload relays an opaque signaling blob. The server never interprets Signal.
type SignalPayload struct {
	TargetID string          `json:"target_id"`
	SenderID string          `json:"sender_id,omitempty"`
	Signal   json.RawMessage `json:"signal"`
}

// EndCallPayload terminates a call between the two named identities.
type EndCallPayload struct {
	CallerID   string `json:"caller_id"`
	ReceiverID string `json:"receiver_id"`
	CallType   string `json:"call_type,omitempty"`
}

// SendMessagePayload requests persistence and relay of a direct message.
type SendMessagePayload struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	Kind       string `json:"kind,omitempty"`
}

// MessagePayload is the persisted message as delivered to either party.
type MessagePayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// TypingPayload is a best-effort typing indicator.
type TypingPayload struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

// MarkReadPayload flips unread messages from SenderID to ReaderID to read.
type MarkReadPayload struct {
	SenderID string `json:"sender_id"`
	ReaderID string `json:"reader_id"`
}

// MessagesReadPayload informs the original sender who consumed their messages.
type MessagesReadPayload struct {
	ReaderID string `json:"reader_id"`
}

// FriendRequestPayload is pushed when a friend request is created or revived.
type FriendRequestPayload struct {
	RequestID   string `json:"request_id"`
	SenderID    string `json:"sender_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// FriendAcceptedPayload is pushed to the request sender on acceptance.
type FriendAcceptedPayload struct {
	RequestID string `json:"request_id"`
	FriendID  string `json:"friend_id"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
