package server

import (
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aesdlogd/aesdlogd"
)

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	l, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("zap.NewDevelopment: %v", err)
	}
	return l.Sugar()
}

func TestWorkerPublishAndReplay(t *testing.T) {
	store := aesdlogd.NewStore(10)
	store.Write([]byte("existing\n"))

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	w := newWorker(1, serverConn, store, 1024, 1024, testLogger(t))
	go w.run()

	if _, err := clientConn.Write([]byte("new record\n")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	buf := make([]byte, 256)
	n, err := io.ReadFull(clientConn, buf[:len("existing\nnew record\n")])
	if err != nil {
		t.Fatalf("client read: %v", err)
	}

	want := "existing\nnew record\n"
	if string(buf[:n]) != want {
		t.Fatalf("replay = %q, want %q", buf[:n], want)
	}

	waitForStatus(t, w, statusDone)
}

func TestWorkerZeroByteReadEndsCleanly(t *testing.T) {
	store := aesdlogd.NewStore(10)

	clientConn, serverConn := net.Pipe()

	w := newWorker(2, serverConn, store, 1024, 1024, testLogger(t))
	go w.run()

	clientConn.Close() // induces io.EOF on the worker's Read with zero bytes

	waitForStatus(t, w, statusDone)

	snap, _ := store.Snapshot()
	if len(snap) != 0 {
		t.Fatalf("store should have no records after an incomplete connection, got %d", len(snap))
	}
}

func TestWorkerPartialWritesAssembleBeforeNewline(t *testing.T) {
	store := aesdlogd.NewStore(10)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	w := newWorker(3, serverConn, store, 4, 1024, testLogger(t)) // tiny scratch forces multiple reads
	go w.run()

	clientConn.Write([]byte("ab"))
	clientConn.Write([]byte("cdef"))
	clientConn.Write([]byte("\n"))

	buf := make([]byte, 64)
	n, err := io.ReadFull(clientConn, buf[:len("abcdef\n")])
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf[:n]) != "abcdef\n" {
		t.Fatalf("replay = %q, want %q", buf[:n], "abcdef\n")
	}

	waitForStatus(t, w, statusDone)
}

func waitForStatus(t *testing.T, w *worker, want workerStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Status() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("worker did not reach status %d in time", want)
}
