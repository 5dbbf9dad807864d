package app

import (
	"io"
	"log/slog"
	"testing"
)

func testDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewLoggerLevels(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "WARN", want: slog.LevelWarn},
		{in: " warning ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "nonsense", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		log := NewLogger(tc.in)
		if !log.Enabled(nil, tc.want) {
			t.Fatalf("NewLogger(%q) does not log at %v", tc.in, tc.want)
		}
		if tc.want > slog.LevelDebug && log.Enabled(nil, tc.want-4) {
			t.Fatalf("NewLogger(%q) logs below %v", tc.in, tc.want)
		}
	}
}
