// timer.go: periodic timestamp record producer (spec.md §4.7).
//
// Uses time.NewTicker for an absolute, drift-bounded wake-up schedule
// (naive sleep-accumulation drifts under scheduler pressure; Ticker does
// not) and go-timecache for the wall-clock read itself, the same cached-
// clock dependency the teacher wires into every hot timestamp path in
// lethe.go (l.timeCache.CachedTime()).
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agilira/go-timecache"

	"github.com/aesdlogd/aesdlogd"
)

// timestampLayout matches spec.md §6's "RFC-2822-style date", expressed as
// the Go stdlib's RFC1123Z layout (equivalent to the reference's
// "%a, %d %b %Y %T %z" strftime format).
const timestampLayout = time.RFC1123Z

// Timer appends a synthetic "timestamp:<date>\n" record into a Store every
// interval, until its context is cancelled. It owns no listener and no
// worker; it only ever calls Store.AppendRecord.
type Timer struct {
	store    *aesdlogd.Store
	interval time.Duration
	clock    *timecache.TimeCache
}

// NewTimer constructs a Timer. The clock is a millisecond-resolution
// go-timecache instance, cheap enough to read on every tick without the
// syscall overhead of a bare time.Now() in a hot loop (the same tradeoff
// the teacher makes for its rotation/flush timestamps).
func NewTimer(store *aesdlogd.Store, interval time.Duration) *Timer {
	return &Timer{
		store:    store,
		interval: interval,
		clock:    timecache.NewWithResolution(time.Millisecond),
	}
}

// Run blocks, appending a timestamp record on every tick, until ctx is
// cancelled or the Store is closed. It returns ctx.Err() on cancellation so
// callers (an errgroup) see a clean cancellation rather than a spurious
// failure, and nil once an append finds the Store closed.
func (t *Timer) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	defer t.clock.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			_ = now // ticker's delivered time is not used; CachedTime is authoritative
			record := fmt.Sprintf("timestamp:%s\n", t.clock.CachedTime().Format(timestampLayout))
			if err := t.store.AppendRecord([]byte(record)); err != nil {
				if errors.Is(err, aesdlogd.ErrClosed) {
					return nil
				}
				return fmt.Errorf("server: timer append: %w", err)
			}
		}
	}
}
