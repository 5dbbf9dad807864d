package media

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestServer(t *testing.T, signer *Signer) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), signer).Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleSign(t *testing.T) {
	t.Parallel()

	signer, err := NewSigner("cloud", "key", "secret", "uploads")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	srv := newTestServer(t, signer)

	resp, err := http.Post(srv.URL+"/api/media/sign", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want 200", resp.StatusCode)
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.CloudName != "cloud" || out.APIKey != "key" || out.Folder != "uploads" {
		t.Fatalf("response=%+v", out)
	}

	// The signature must verify against the same parameters.
	want := signer.Sign(map[string]string{
		"timestamp": strconv.FormatInt(out.Timestamp, 10),
		"folder":    "uploads",
	})
	if out.Signature != want {
		t.Fatalf("signature=%q want %q", out.Signature, want)
	}
}

func TestHandleSignUnconfigured(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/media/sign", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", resp.StatusCode)
	}
}
