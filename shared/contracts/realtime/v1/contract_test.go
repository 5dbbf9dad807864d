package v1

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeValidate(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{}`)

	cases := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{name: "valid inbound", env: Envelope{V: Version, Type: TypeSendMessage, Payload: payload}},
		{name: "missing version", env: Envelope{Type: TypeSendMessage, Payload: payload}, wantErr: true},
		{name: "wrong version", env: Envelope{V: "v2", Type: TypeSendMessage, Payload: payload}, wantErr: true},
		{name: "missing type", env: Envelope{V: Version, Payload: payload}, wantErr: true},
		{name: "outbound type rejected inbound", env: Envelope{V: Version, Type: TypeNewMessage, Payload: payload}, wantErr: true},
		{name: "unknown type", env: Envelope{V: Version, Type: "shrug", Payload: payload}, wantErr: true},
		{name: "missing payload", env: Envelope{V: Version, Type: TypeSendMessage}, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.env.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate()=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestEnvelopeValidateAcceptsAllInboundTypes(t *testing.T) {
	t.Parallel()

	inbound := []string{
		TypeUserOnline,
		TypeCallUser, TypeCallAccepted, TypeCallRejected, TypeSignal, TypeEndCall,
		TypeSendMessage, TypeTyping, TypeStopTyping, TypeMarkRead,
	}

	for _, typ := range inbound {
		env := Envelope{V: Version, Type: typ, Payload: json.RawMessage(`{}`)}
		if err := env.Validate(); err != nil {
			t.Fatalf("Validate(%s)=%v want nil", typ, err)
		}
	}
}

func TestSignalPayloadOpaque(t *testing.T) {
	t.Parallel()

	// The signal blob must survive a round trip untouched, whatever it holds.
	raw := []byte(`{"target_id":"u2","signal":{"sdp":"x","candidates":[1,2,3]}}`)

	var p SignalPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back SignalPayload
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if string(back.Signal) != string(p.Signal) {
		t.Fatalf("signal blob changed: %s -> %s", p.Signal, back.Signal)
	}
}
