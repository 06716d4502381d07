// worker.go: per-connection task (spec.md §4.5).
//
// One goroutine per accepted connection — Go's runtime multiplexes these
// onto OS threads, which satisfies spec.md §5's "true parallel workers"
// requirement idiomatically. The fixed scratch buffer and growable
// accumulator mirror the reference worker's state exactly; bufio is
// deliberately not used so newline-scanning stays under our control, as
// spec.md requires.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aesdlogd/aesdlogd"
)

// workerStatus mirrors spec.md §4.6's RUNNING/DONE worker states, tracked
// as an atomic so the Acceptor's reap sweep never races the worker
// goroutine.
type workerStatus int32

const (
	statusRunning workerStatus = iota
	statusDone
)

// worker holds one accepted connection's state: the socket, scratch and
// accumulator buffers, and the shared Store. It never touches any other
// worker's state or the listener.
type worker struct {
	id              uint64
	conn            net.Conn
	store           *aesdlogd.Store
	scratchSize     int
	replayChunkSize int
	log             *zap.SugaredLogger

	status atomic.Int32
}

func newWorker(id uint64, conn net.Conn, store *aesdlogd.Store, scratchSize, replayChunkSize int, log *zap.SugaredLogger) *worker {
	return &worker{
		id:              id,
		conn:            conn,
		store:           store,
		scratchSize:     scratchSize,
		replayChunkSize: replayChunkSize,
		log:             log,
	}
}

// Status reports whether the worker is still RUNNING or has reached DONE.
func (w *worker) Status() workerStatus {
	return workerStatus(w.status.Load())
}

// run executes phase 1 (receive one record) then phase 2 (publish and
// replay), and always marks the worker DONE and closes its socket on
// every exit path — including on error, matching spec.md §4.5's failure
// handling.
func (w *worker) run() {
	defer func() {
		w.conn.Close()
		w.status.Store(int32(statusDone))
	}()

	record, err := w.receiveRecord()
	if err != nil {
		w.log.Warnw("connection worker: receive failed", "worker_id", w.id, "error", err)
		return
	}
	if record == nil {
		// End-of-stream before a complete record arrived (REDESIGN FLAG 2:
		// zero-byte reads and a closed connection both land here).
		return
	}

	if err := w.publishAndReplay(record); err != nil {
		w.log.Warnw("connection worker: publish/replay failed", "worker_id", w.id, "error", err)
	}
}

// receiveRecord implements phase 1: read into the scratch buffer, append
// into the accumulator, stop as soon as a newline appears in the
// just-read chunk. Returns a nil record (not an error) on clean
// end-of-stream.
func (w *worker) receiveRecord() ([]byte, error) {
	scratch := make([]byte, w.scratchSize)
	var acc bytes.Buffer

	for {
		n, err := w.conn.Read(scratch)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("socket read: %w", err)
		}

		acc.Write(scratch[:n])

		if bytes.IndexByte(scratch[:n], '\n') >= 0 {
			return acc.Bytes(), nil
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				// Bytes arrived but no newline before the peer closed:
				// an incomplete record, discarded per spec.md §4.5.
				return nil, nil
			}
			return nil, fmt.Errorf("socket read: %w", err)
		}
	}
}

// publishAndReplay implements phase 2: hand the record to Store.Write,
// then stream the entire current log back to the client in
// replayChunkSize pieces, retrying short writes, until Store.Read
// signals end-of-log with an empty chunk.
func (w *worker) publishAndReplay(record []byte) error {
	if _, err := w.store.Write(record); err != nil {
		return fmt.Errorf("store write: %w", err)
	}

	offset := 0
	for {
		chunk, err := w.store.Read(offset, w.replayChunkSize)
		if err != nil {
			return fmt.Errorf("store read at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			return nil
		}

		if err := w.writeAll(chunk); err != nil {
			return err
		}
		offset += len(chunk)
	}
}

// writeAll retries short writes by adjusting the slice by the actual
// bytes written, per spec.md §4.5 step 5.
func (w *worker) writeAll(b []byte) error {
	for len(b) > 0 {
		n, err := w.conn.Write(b)
		if err != nil {
			return fmt.Errorf("socket write: %w", err)
		}
		b = b[n:]
	}
	return nil
}
