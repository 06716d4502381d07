// signal.go: process shutdown signal wiring.
//
// Grounded directly on sakateka-yanet2's common/go/xcmd/signal.go
// (WaitInterrupted): signal.Notify into a buffered channel, raced against
// ctx.Done() in a select, returning a typed error distinguishing "the
// operator asked us to stop" from "the parent context was cancelled for
// some other reason."
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Interrupted wraps the os.Signal that triggered shutdown.
type Interrupted struct {
	os.Signal
}

func (i Interrupted) Error() string {
	return i.String()
}

// WaitInterrupted blocks until SIGINT or SIGTERM arrives, or ctx is done,
// whichever happens first. This is the Signal handler of spec.md §4.8: it
// performs no I/O of its own beyond registering the channel, and allocates
// nothing on the hot path.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		return Interrupted{Signal: sig}
	case <-ctx.Done():
		return ctx.Err()
	}
}
