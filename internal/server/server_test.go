package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/aesdlogd/aesdlogd"
)

func startTestServer(t *testing.T, cfg *aesdlogd.Config) (addr string, shutdown func()) {
	t.Helper()

	store := aesdlogd.NewStore(cfg.RingCapacity)
	srv := New(cfg, store, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	boundAddr, err := srv.Addr(context.Background())
	if err != nil {
		t.Fatalf("server did not bind: %v", err)
	}

	return boundAddr.String(), func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("server.Run returned %v on shutdown", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("server did not shut down in time")
		}
	}
}

func dialAndRoundTrip(t *testing.T, addr string, record string) string {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(record)); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out []byte
	buf := make([]byte, 512)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return string(out)
}

func TestServerSingleClientAppendAndReplay(t *testing.T) {
	cfg := aesdlogd.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	addr, shutdown := startTestServer(t, cfg)
	defer shutdown()

	got := dialAndRoundTrip(t, addr, "hello\n")
	if got != "hello\n" {
		t.Fatalf("replay = %q, want %q", got, "hello\n")
	}

	got = dialAndRoundTrip(t, addr, "world\n")
	if got != "hello\nworld\n" {
		t.Fatalf("second replay = %q, want %q", got, "hello\nworld\n")
	}
}

func TestServerTwoClientsInterleaved(t *testing.T) {
	cfg := aesdlogd.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	addr, shutdown := startTestServer(t, cfg)
	defer shutdown()

	connA, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close()
	connB, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	if _, err := connA.Write([]byte("from-a\n")); err != nil {
		t.Fatalf("A write: %v", err)
	}
	readerA := bufio.NewReader(connA)
	lineA, err := readerA.ReadString('\n')
	if err != nil {
		t.Fatalf("A read: %v", err)
	}
	if lineA != "from-a\n" {
		t.Fatalf("A replay first line = %q, want %q", lineA, "from-a\n")
	}

	if _, err := connB.Write([]byte("from-b\n")); err != nil {
		t.Fatalf("B write: %v", err)
	}
	readerB := bufio.NewReader(connB)
	var bLines []string
	for {
		line, err := readerB.ReadString('\n')
		if line != "" {
			bLines = append(bLines, line)
		}
		if err != nil {
			break
		}
	}
	if len(bLines) < 2 || bLines[len(bLines)-1] != "from-b\n" {
		t.Fatalf("B replay = %v, want it to end with %q", bLines, "from-b\n")
	}
}

func TestServerRingEvictionOverTCP(t *testing.T) {
	cfg := aesdlogd.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.RingCapacity = 2
	addr, shutdown := startTestServer(t, cfg)
	defer shutdown()

	dialAndRoundTrip(t, addr, "r0\n")
	dialAndRoundTrip(t, addr, "r1\n")
	got := dialAndRoundTrip(t, addr, "r2\n")

	want := "r1\nr2\n"
	if got != want {
		t.Fatalf("replay after eviction = %q, want %q", got, want)
	}
}

func TestServerShutdownJoinsWorkersAndClosesListener(t *testing.T) {
	cfg := aesdlogd.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	addr, shutdown := startTestServer(t, cfg)

	dialAndRoundTrip(t, addr, "before-shutdown\n")

	shutdown()

	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Fatal("expected dial to fail after server shutdown")
	}
}
