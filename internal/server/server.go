// server.go: Acceptor & supervisor (spec.md §4.6).
//
// Built with errgroup.Group plus a context cancelled by the signal
// handler, the same shape as yanet2's BuiltInModuleRunner/coordinator Run
// methods (spawn long-running tasks as wg.Go(...), <-ctx.Done() begins
// teardown, wg.Wait() joins). The live-worker reap sweep compacts a slice
// in place, the same write-index pattern as PdumpService's ringReaders
// cleanup in service.go.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aesdlogd/aesdlogd"
)

// acceptPollInterval is how often Accept's deadline expires so the
// Acceptor loop can observe context cancellation without relying on a
// signal-interrupted syscall (spec.md §4.6.2.a, reference 100ms).
const acceptPollInterval = 100 * time.Millisecond

// Server owns the listener, the shared Store, the Timer task, and the
// live-worker collection. It is the top-level supervisor spec.md §4.6
// describes.
type Server struct {
	cfg   *aesdlogd.Config
	store *aesdlogd.Store
	log   *zap.SugaredLogger

	mu      sync.Mutex
	workers []*worker
	nextID  uint64
	wg      sync.WaitGroup

	addrCh chan net.Addr
}

// New constructs a Server bound to store, configured per cfg. Run closes
// store on shutdown in every mode; for a file-backed store that also
// unlinks the backing file (spec.md §4.6 step 3).
func New(cfg *aesdlogd.Config, store *aesdlogd.Store, log *zap.SugaredLogger) *Server {
	return &Server{cfg: cfg, store: store, log: log, nextID: 1, addrCh: make(chan net.Addr, 1)}
}

// Addr blocks until Run has bound its listener (or ctx is done) and
// returns the bound address — useful for tests and for an operator-
// supplied ":0" address that resolves to an ephemeral port.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case addr := <-s.addrCh:
		s.addrCh <- addr // let later callers observe it too
		return addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run binds the listener and drives the Acceptor and Timer tasks under one
// errgroup until ctx is cancelled, then tears everything down: stop the
// Timer, join RUNNING workers, close their sockets, close the listener,
// and unlink the backing file if one was configured. It returns nil on a
// clean, context-triggered shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Address reuse (spec.md §6 "with address reuse"): SO_REUSEADDR lets a
	// restarted service rebind the port immediately instead of waiting out
	// TIME_WAIT on the previous listener's sockets.
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	// Backlog ≥ 50 (spec.md §4.6.1): the Go runtime's default listen
	// backlog already exceeds this on every supported platform, so no
	// override is needed beyond the reuse option above.
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Addr, err)
	}

	s.log.Infow("listening", "addr", ln.Addr().String())
	s.addrCh <- ln.Addr()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})
	group.Go(func() error {
		timer := NewTimer(s.store, s.cfg.TimerInterval)
		return timer.Run(gctx)
	})

	err = group.Wait()

	s.shutdown(ln)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// acceptLoop is the Acceptor of spec.md §4.6: bind, poll with a short
// deadline so shutdown is observable, accept, spawn a worker, and reap
// finished workers opportunistically each cycle.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	tcpLn, _ := ln.(*net.TCPListener)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if tcpLn != nil {
			_ = tcpLn.SetDeadline(time.Now().Add(acceptPollInterval))
		}

		conn, err := ln.Accept()
		if err != nil {
			if isTimeout(err) {
				s.reap()
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Per-client accept errors never terminate the service.
			s.log.Warnw("accept failed", "error", err)
			continue
		}

		s.spawn(conn)
		s.reap()
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// spawn registers a fresh worker with a monotonically increasing ID
// (wrapping at the integer maximum back to 1, spec.md §4.6.2.c) and runs
// it in its own goroutine.
func (s *Server) spawn(conn net.Conn) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.nextID == 0 {
		s.nextID = 1
	}

	w := newWorker(id, conn, s.store, int(s.cfg.ScratchSize), int(s.cfg.ReplayChunkSize), s.log)
	s.workers = append(s.workers, w)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		w.run()
	}()
}

// reap compacts the worker collection in place, dropping every worker
// whose status is DONE, mirroring PdumpService's ringReaders cleanup.
func (s *Server) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeIdx := 0
	for readIdx := range s.workers {
		if s.workers[readIdx].Status() != statusDone {
			if writeIdx != readIdx {
				s.workers[writeIdx] = s.workers[readIdx]
			}
			writeIdx++
		}
	}
	s.workers = s.workers[:writeIdx]
}

// shutdown performs spec.md §4.6 step 3: the Timer and Acceptor have
// already exited by the time this runs (errgroup.Wait returned); this
// closes any still-RUNNING worker sockets to unblock them, joins every
// spawned worker goroutine, closes the listener, closes the Store, and
// unlinks the backing file if one was configured.
func (s *Server) shutdown(ln net.Listener) {
	s.mu.Lock()
	for _, w := range s.workers {
		w.conn.Close()
	}
	s.workers = nil
	s.mu.Unlock()

	s.wg.Wait()

	if err := ln.Close(); err != nil {
		s.log.Warnw("listener close failed", "error", err)
	}

	// Store.Close unlinks the backing file itself when one is configured
	// (store_file.go's fileRingStore.close), so there is nothing left to
	// do here beyond closing the Store.
	if err := s.store.Close(); err != nil {
		s.log.Warnw("store close failed", "error", err)
	}
}
