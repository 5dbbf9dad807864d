package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestLoggingPreservesStatusAndBody(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	h := WithRequestLogging(next, testDiscardLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/teapot", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d want 418", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("body=%q", rec.Body.String())
	}
}

// The wrapper must keep optional interfaces visible, otherwise websocket
// upgrades through the logged handler fail at hijack time.
func TestLoggingResponseWriterExposesOptionalInterfaces(t *testing.T) {
	t.Parallel()

	lrw := &loggingResponseWriter{ResponseWriter: httptest.NewRecorder()}

	var w http.ResponseWriter = lrw
	if _, ok := w.(http.Flusher); !ok {
		t.Fatal("Flusher not exposed")
	}
	if _, ok := w.(http.Hijacker); !ok {
		t.Fatal("Hijacker not exposed")
	}
	if _, ok := w.(interface{ Unwrap() http.ResponseWriter }); !ok {
		t.Fatal("Unwrap not exposed")
	}

	// httptest.ResponseRecorder cannot hijack; the call must error, not panic.
	if _, _, err := lrw.Hijack(); err == nil {
		t.Fatal("Hijack on recorder succeeded")
	}
}
