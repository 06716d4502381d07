package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aesdlogd/aesdlogd"
)

func TestTimerAppendsTimestampRecords(t *testing.T) {
	store := aesdlogd.NewStore(10)
	timer := NewTimer(store, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	err := timer.Run(ctx)
	if err != nil && err != context.DeadlineExceeded {
		t.Fatalf("Timer.Run: %v", err)
	}

	snap, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) == 0 {
		t.Fatal("expected at least one timestamp record to have been appended")
	}
	for _, rec := range snap {
		s := string(rec.Bytes())
		if !strings.HasPrefix(s, "timestamp:") || !strings.HasSuffix(s, "\n") {
			t.Fatalf("record %q does not match the timestamp: ... \\n format", s)
		}
	}
}

func TestTimerStopsOnContextCancel(t *testing.T) {
	store := aesdlogd.NewStore(10)
	timer := NewTimer(store, time.Hour) // long enough that only cancellation ends Run

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- timer.Run(ctx) }()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Timer.Run after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Timer.Run did not exit after context cancellation")
	}
}

func TestTimerStopsCleanlyWhenStoreCloses(t *testing.T) {
	store := aesdlogd.NewStore(10)
	timer := NewTimer(store, 5*time.Millisecond)
	store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := timer.Run(ctx)
	if err != nil {
		t.Fatalf("Timer.Run against a closed Store should exit cleanly, got %v", err)
	}
}
