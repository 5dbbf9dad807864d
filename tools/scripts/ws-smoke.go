// Package main provides a CI-friendly WebSocket smoke test for ripple realtime.
//
// It validates:
//   - handshake + subprotocol selection
//   - user-online announce and roster fanout
//   - send-message -> message-sent echo + new-message fanout
//   - typing indicator relay
//   - mark-read -> messages-read receipt
//   - call-user -> incoming-call ring, accept, signal relay, end-call
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "ripple/shared/contracts/realtime/v1"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "ripple.v1"
	maxReadBytes       = 1 << 20 // 1MiB
)

type smokeClient struct {
	name   string
	userID string
	conn   *websocket.Conn

	inbox chan v1.Envelope
	errCh chan error
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		userA   = flag.String("user-a", "smoke-a", "First user identity")
		userB   = flag.String("user-b", "smoke-b", "Second user identity")
		tokenA  = flag.String("token-a", "", "Bearer token for the first user (optional, dev mode otherwise)")
		tokenB  = flag.String("token-b", "", "Bearer token for the second user (optional)")
		text    = flag.String("text", "hello ripple", "Message text to send")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	a := mustConnect(root, "A", *userA, *wsURL, *origin, *tokenA, *timeout)
	defer closeWS(a.conn)

	b := mustConnect(root, "B", *userB, *wsURL, *origin, *tokenB, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("connected: A=%s B=%s origin=%q\n", a.userID, b.userID, *origin)
	}

	// Announce both; each must receive a roster after B joins.
	mustAnnounce(root, a, *timeout)
	mustReadType(root, a, v1.TypeOnlineUsers, *timeout, nil)
	mustAnnounce(root, b, *timeout)
	mustReadType(root, b, v1.TypeOnlineUsers, *timeout, nil)
	_ = drainType(root, a, v1.TypeOnlineUsers, 750*time.Millisecond)

	msgID := mustSendAndAssertEcho(root, a, b, *text, *timeout)
	if *verbose {
		fmt.Printf("message persisted: id=%s\n", msgID)
	}

	mustTypingRelay(root, a, b, *timeout)
	mustMarkRead(root, a, b, *timeout)
	mustCallFlow(root, a, b, *timeout)

	fmt.Printf("OK: A=%s B=%s msg_id=%s\n", a.userID, b.userID, msgID)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, userID, wsURL, origin, token string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}
	if strings.TrimSpace(token) != "" {
		h.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, defaultSubprotocol)

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:   name,
		userID: userID,
		conn:   conn,
		inbox:  make(chan v1.Envelope, 512),
		errCh:  make(chan error, 1),
	}
	c.startReadLoop()
	return c
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad json: %w", err):
				default:
				}
				return
			}

			select {
			case c.inbox <- env:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func mustAnnounce(parent context.Context, c *smokeClient, stepTimeout time.Duration) {
	env := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeUserOnline,
		ID:   fmt.Sprintf("%s-online", c.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.UserOnlinePayload{
			UserID:      c.userID,
			DisplayName: "Smoke " + c.name,
		}),
	}
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)
}

func mustSendAndAssertEcho(parent context.Context, from, to *smokeClient, text string, stepTimeout time.Duration) string {
	env := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeSendMessage,
		ID:   fmt.Sprintf("%s-send", from.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.SendMessagePayload{
			SenderID:   from.userID,
			ReceiverID: to.userID,
			Content:    text,
		}),
	}
	mustWriteWithTimeout(parent, from.conn, env, stepTimeout)

	skip := map[string]struct{}{v1.TypeOnlineUsers: {}}

	echo := mustReadType(parent, from, v1.TypeMessageSent, stepTimeout, skip)
	var sent v1.MessagePayload
	if err := json.Unmarshal(echo.Payload, &sent); err != nil {
		fatalf("unmarshal message-sent payload (%s): %v", from.name, err)
	}
	if strings.TrimSpace(sent.ID) == "" {
		fatalf("message-sent missing id (%s)", from.name)
	}
	if sent.Content != text {
		fatalf("message-sent content mismatch (%s): got=%q want=%q", from.name, sent.Content, text)
	}

	relayed := mustReadType(parent, to, v1.TypeNewMessage, stepTimeout, skip)
	var got v1.MessagePayload
	if err := json.Unmarshal(relayed.Payload, &got); err != nil {
		fatalf("unmarshal new-message payload (%s): %v", to.name, err)
	}
	if got.ID != sent.ID {
		fatalf("new-message id mismatch: echo=%q relay=%q", sent.ID, got.ID)
	}
	if got.SenderID != from.userID || got.ReceiverID != to.userID {
		fatalf("new-message parties mismatch: %+v", got)
	}
	return sent.ID
}

func mustTypingRelay(parent context.Context, from, to *smokeClient, stepTimeout time.Duration) {
	skip := map[string]struct{}{v1.TypeOnlineUsers: {}}

	for _, typ := range []string{v1.TypeTyping, v1.TypeStopTyping} {
		env := v1.Envelope{
			V:    v1.Version,
			Type: typ,
			ID:   fmt.Sprintf("%s-%s", from.name, typ),
			TS:   time.Now().UTC(),
			Payload: mustJSON(v1.TypingPayload{
				SenderID:   from.userID,
				ReceiverID: to.userID,
			}),
		}
		mustWriteWithTimeout(parent, from.conn, env, stepTimeout)

		relayed := mustReadType(parent, to, typ, stepTimeout, skip)
		var p v1.TypingPayload
		if err := json.Unmarshal(relayed.Payload, &p); err != nil {
			fatalf("unmarshal %s payload (%s): %v", typ, to.name, err)
		}
		if p.SenderID != from.userID {
			fatalf("%s sender mismatch: got=%q want=%q", typ, p.SenderID, from.userID)
		}
	}
}

func mustMarkRead(parent context.Context, from, to *smokeClient, stepTimeout time.Duration) {
	env := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeMarkRead,
		ID:   fmt.Sprintf("%s-markread", to.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.MarkReadPayload{
			SenderID: from.userID,
			ReaderID: to.userID,
		}),
	}
	mustWriteWithTimeout(parent, to.conn, env, stepTimeout)

	skip := map[string]struct{}{v1.TypeOnlineUsers: {}}
	receipt := mustReadType(parent, from, v1.TypeMessagesRead, stepTimeout, skip)

	var p v1.MessagesReadPayload
	if err := json.Unmarshal(receipt.Payload, &p); err != nil {
		fatalf("unmarshal messages-read payload (%s): %v", from.name, err)
	}
	if p.ReaderID != to.userID {
		fatalf("messages-read reader mismatch: got=%q want=%q", p.ReaderID, to.userID)
	}
}

func mustCallFlow(parent context.Context, caller, receiver *smokeClient, stepTimeout time.Duration) {
	skip := map[string]struct{}{v1.TypeOnlineUsers: {}}

	ring := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeCallUser,
		ID:   fmt.Sprintf("%s-call", caller.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.CallUserPayload{
			CallerID:   caller.userID,
			ReceiverID: receiver.userID,
			CallType:   v1.CallKindAudio,
			CallerName: "Smoke " + caller.name,
		}),
	}
	mustWriteWithTimeout(parent, caller.conn, ring, stepTimeout)

	incoming := mustReadType(parent, receiver, v1.TypeIncomingCall, stepTimeout, skip)
	var inc v1.IncomingCallPayload
	if err := json.Unmarshal(incoming.Payload, &inc); err != nil {
		fatalf("unmarshal incoming-call payload: %v", err)
	}
	if inc.CallerID != caller.userID || inc.CallType != v1.CallKindAudio {
		fatalf("incoming-call mismatch: %+v", inc)
	}

	accept := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeCallAccepted,
		ID:   fmt.Sprintf("%s-accept", receiver.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.CallAcceptedPayload{
			CallerID: caller.userID,
			Signal:   json.RawMessage(`{"sdp":"smoke-answer"}`),
		}),
	}
	mustWriteWithTimeout(parent, receiver.conn, accept, stepTimeout)

	accepted := mustReadType(parent, caller, v1.TypeCallAccepted, stepTimeout, skip)
	var acc v1.CallAcceptedPayload
	if err := json.Unmarshal(accepted.Payload, &acc); err != nil {
		fatalf("unmarshal call-accepted payload: %v", err)
	}
	if len(acc.Signal) == 0 {
		fatalf("call-accepted missing answer signal")
	}

	trickle := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeSignal,
		ID:   fmt.Sprintf("%s-signal", caller.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.SignalPayload{
			TargetID: receiver.userID,
			Signal:   json.RawMessage(`{"candidate":"smoke"}`),
		}),
	}
	mustWriteWithTimeout(parent, caller.conn, trickle, stepTimeout)

	relayed := mustReadType(parent, receiver, v1.TypeSignal, stepTimeout, skip)
	var sig v1.SignalPayload
	if err := json.Unmarshal(relayed.Payload, &sig); err != nil {
		fatalf("unmarshal signal payload: %v", err)
	}
	if sig.SenderID != caller.userID {
		fatalf("signal sender mismatch: got=%q want=%q", sig.SenderID, caller.userID)
	}

	end := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeEndCall,
		ID:   fmt.Sprintf("%s-end", caller.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.EndCallPayload{
			CallerID:   caller.userID,
			ReceiverID: receiver.userID,
			CallType:   v1.CallKindAudio,
		}),
	}
	mustWriteWithTimeout(parent, caller.conn, end, stepTimeout)

	mustReadType(parent, receiver, v1.TypeCallEnded, stepTimeout, skip)
}

func drainType(parent context.Context, c *smokeClient, typ string, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, wait)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-c.errCh:
			if err != nil {
				return err
			}
			return errors.New("connection closed while draining")
		case env, ok := <-c.inbox:
			if !ok {
				return errors.New("connection closed while draining")
			}
			if env.Type == typ {
				return nil
			}
		}
	}
}

func mustReadType(parent context.Context, c *smokeClient, wantType string, stepTimeout time.Duration, skipTypes map[string]struct{}) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			if skipTypes != nil {
				if _, ok := skipTypes[env.Type]; ok {
					continue
				}
			}
			fatalf("unexpected envelope type (%s): got=%q want=%q", c.name, env.Type, wantType)
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
