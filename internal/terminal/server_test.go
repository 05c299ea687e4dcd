package terminal

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", testDeps(), quietLogger())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

func dialTerminal(t *testing.T, srv *Server) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	scanner := bufio.NewScanner(conn)
	requireLine(t, scanner, "CMD[:_:]LOGINREQUEST")
	return conn, scanner
}

func TestServerStartWhileRunningFails(t *testing.T) {
	srv := startServer(t)
	require.Error(t, srv.Start(context.Background()))
}

func TestServerRestartAfterShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testDeps(), quietLogger())
	require.NoError(t, srv.Start(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))

	require.NoError(t, srv.Start(context.Background()))
	defer srv.Shutdown(context.Background())

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	requireLine(t, scanner, "CMD[:_:]LOGINREQUEST")
}

func TestServerShutdownWhileStoppedIsNoOp(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testDeps(), quietLogger())
	require.NoError(t, srv.Shutdown(context.Background()))
}

// Two sessions interleave TEST commands; each must receive exactly its
// own reply on its own socket.
func TestServerConcurrentSessionsDoNotLeakReplies(t *testing.T) {
	srv := startServer(t)

	connA, scanA := dialTerminal(t, srv)
	connB, scanB := dialTerminal(t, srv)

	var wg sync.WaitGroup
	for _, pair := range []struct {
		conn    net.Conn
		scanner *bufio.Scanner
	}{{connA, scanA}, {connB, scanB}} {
		wg.Add(1)
		go func(conn net.Conn, scanner *bufio.Scanner) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := conn.Write([]byte("CMD[:_:]TEST\n")); err != nil {
					t.Error(err)
					return
				}
				if !scanner.Scan() {
					t.Error("missing reply")
					return
				}
				if scanner.Text() != "CMD[:_:]TEST[:_:]OK" {
					t.Errorf("unexpected reply: %q", scanner.Text())
					return
				}
			}
		}(pair.conn, pair.scanner)
	}
	wg.Wait()
}

// Shutdown with three live sessions delivers CMD[:_:]SHUTDOWN to each
// exactly once and closes every socket before returning.
func TestServerShutdownBroadcast(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testDeps(), quietLogger())
	require.NoError(t, srv.Start(context.Background()))

	var scanners []*bufio.Scanner
	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", srv.Addr())
		require.NoError(t, err)
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		requireLine(t, scanner, "CMD[:_:]LOGINREQUEST")
		scanners = append(scanners, scanner)
	}

	// Wait for the acceptor to register all three.
	require.Eventually(t, func() bool { return srv.Registry().Len() == 3 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))

	for _, scanner := range scanners {
		notices := 0
		for scanner.Scan() {
			require.Equal(t, "CMD[:_:]SHUTDOWN", scanner.Text())
			notices++
		}
		require.Equal(t, 1, notices, "each session gets the notice exactly once")
	}
}

func TestServerKeepsSessionRegisteredAfterDisconnect(t *testing.T) {
	srv := startServer(t)

	conn, scanner := dialTerminal(t, srv)
	_, err := conn.Write([]byte("CMD[:_:]DISCONNECT\n"))
	require.NoError(t, err)
	requireLine(t, scanner, "CMD[:_:]DISCONNECT[:_:]SUCCESS[:_:]Disconnected")

	// Natural disconnects do not prune the registry.
	require.Eventually(t, func() bool { return srv.Registry().Len() == 1 },
		2*time.Second, 10*time.Millisecond)
}
