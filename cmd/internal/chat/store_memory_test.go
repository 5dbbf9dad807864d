package chat

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStoreAppendAndHistory(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	m1, err := s.Append(ctx, AppendInput{SenderID: "a", ReceiverID: "b", Content: "hi", Now: base})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if m1.ID == "" || m1.Kind != KindText || m1.IsRead {
		t.Fatalf("message=%+v want unread text with id", m1)
	}

	m2, err := s.Append(ctx, AppendInput{SenderID: "b", ReceiverID: "a", Content: "hello", Kind: KindImage, Now: base.Add(time.Second)})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if m2.Kind != KindImage {
		t.Fatalf("kind=%q want image", m2.Kind)
	}

	// Both directions, either argument order, in append order.
	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		hist, err := s.History(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("History(%v): %v", pair, err)
		}
		if len(hist) != 2 || hist[0].ID != m1.ID || hist[1].ID != m2.ID {
			t.Fatalf("History(%v)=%+v want [m1 m2]", pair, hist)
		}
	}

	// Other conversations are isolated.
	hist, err := s.History(ctx, "a", "c")
	if err != nil || len(hist) != 0 {
		t.Fatalf("History(a,c)=%v,%v want empty", hist, err)
	}
}

func TestInMemoryStoreAppendValidation(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	cases := []struct {
		name string
		in   AppendInput
	}{
		{name: "missing sender", in: AppendInput{ReceiverID: "b", Content: "x"}},
		{name: "missing receiver", in: AppendInput{SenderID: "a", Content: "x"}},
		{name: "missing content", in: AppendInput{SenderID: "a", ReceiverID: "b"}},
		{name: "bad kind", in: AppendInput{SenderID: "a", ReceiverID: "b", Content: "x", Kind: "gif"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := s.Append(ctx, tc.in); err == nil {
				t.Fatal("invalid input accepted")
			}
		})
	}
}

func TestInMemoryStoreMarkRead(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, AppendInput{SenderID: "a", ReceiverID: "b", Content: "x"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	// One message the other way; mark-read must not touch it.
	if _, err := s.Append(ctx, AppendInput{SenderID: "b", ReceiverID: "a", Content: "y"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	n, err := s.MarkRead(ctx, "a", "b")
	if err != nil || n != 3 {
		t.Fatalf("MarkRead=%d,%v want 3,nil", n, err)
	}

	// Second pass is a no-op.
	n, err = s.MarkRead(ctx, "a", "b")
	if err != nil || n != 0 {
		t.Fatalf("repeat MarkRead=%d,%v want 0,nil", n, err)
	}

	hist, err := s.History(ctx, "a", "b")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, m := range hist {
		read := m.SenderID == "a"
		if m.IsRead != read {
			t.Fatalf("message %s IsRead=%v want %v", m.ID, m.IsRead, read)
		}
	}
}

func TestNormalizeKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "", want: KindText, wantOK: true},
		{in: KindText, want: KindText, wantOK: true},
		{in: KindImage, want: KindImage, wantOK: true},
		{in: "gif", want: "", wantOK: false},
	}

	for _, tc := range cases {
		got, ok := NormalizeKind(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("NormalizeKind(%q)=%q,%v want %q,%v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
