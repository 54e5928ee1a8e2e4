package toot

import (
	"net"
	"sync"
)

// Taskmaster is the concurrency policy: it decides whether a newly
// accepted connection is served on the caller, on a new goroutine, or
// rejected outright.
type Taskmaster interface {
	// ExecuteAcceptor arranges for acceptor's accept loop to run.
	// ThreadPerConnection returns once the loop has been started on its
	// own goroutine; SingleThreaded runs the loop on the caller and
	// returns only when it exits.
	ExecuteAcceptor(acceptor *Acceptor)

	// HandleIncomingConnection takes responsibility for conn: either
	// hand it to acceptor.processConnection, or close it after writing
	// a 503 response.
	HandleIncomingConnection(acceptor *Acceptor, conn net.Conn)

	// Shutdown stops scheduling new work. Workers already running may
	// finish their current request.
	Shutdown(acceptor *Acceptor)
}

// SingleThreaded runs the accept loop on the caller's own goroutine
// and processes every connection inline, one at a time. No soft-drain
// bookkeeping is needed since there is never more than one in-flight
// connection.
type SingleThreaded struct{}

func (SingleThreaded) ExecuteAcceptor(acceptor *Acceptor) {
	acceptor.acceptLoop()
}

func (SingleThreaded) HandleIncomingConnection(acceptor *Acceptor, conn net.Conn) {
	acceptor.processConnection(conn)
}

func (SingleThreaded) Shutdown(acceptor *Acceptor) {}

// ThreadPerConnection spawns one goroutine per accepted connection, up
// to MaxThreadCount concurrently; beyond that it answers 503 and
// closes the socket (0 means unbounded). MaxAcceptCount is stored but
// not read: the accept loop has no cap of its own.
type ThreadPerConnection struct {
	MaxThreadCount int
	MaxAcceptCount int

	mu      sync.Mutex
	workers int
	stopped bool
	wg      sync.WaitGroup
}

func (t *ThreadPerConnection) ExecuteAcceptor(acceptor *Acceptor) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		acceptor.acceptLoop()
	}()
}

func (t *ThreadPerConnection) HandleIncomingConnection(acceptor *Acceptor, conn net.Conn) {
	t.mu.Lock()
	if t.stopped || (t.MaxThreadCount > 0 && t.workers >= t.MaxThreadCount) {
		t.mu.Unlock()
		sendServiceUnavailableResponse(conn)
		conn.Close()
		return
	}
	t.workers++
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer func() {
			t.mu.Lock()
			t.workers--
			t.mu.Unlock()
			t.wg.Done()
		}()
		acceptor.processConnection(conn)
	}()
}

// Shutdown only stops scheduling new work; it does not wait for
// workers already running to finish. The soft/hard drain-wait is
// Acceptor.Stop's own responsibility, gated on its soft parameter.
func (t *ThreadPerConnection) Shutdown(acceptor *Acceptor) {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// sendServiceUnavailableResponse writes a minimal 503 response
// directly to conn for a connection the Taskmaster has decided not to
// hand to the connection engine at all (no Request has been
// constructed yet, so this bypasses finalizeResponseHeaders).
func sendServiceUnavailableResponse(conn net.Conn) {
	const body = "Service Unavailable"
	_, _ = conn.Write([]byte(
		"HTTP/1.1 503 Service Unavailable\r\n" +
			"Content-Type: text/plain\r\n" +
			"Content-Length: 19\r\n" +
			"Connection: close\r\n\r\n" +
			body))
}
