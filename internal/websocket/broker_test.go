package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sparkchat/chatwire"
	"github.com/sparkchat/chatwire/internal/protocol"
)

// fakeBroker is an in-process backend peer: it accepts websocket
// connections, answers the CONNECT handshake, and records every SUBSCRIBE
// and SEND frame the client produces. Tests drive inbound traffic with
// deliver and simulate network failures with dropConnections.
type fakeBroker struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	reject   bool // answer CONNECT with an ERROR frame
	silent   bool // never answer CONNECT
	conns    []*brokerConn
	accepted int

	frames   chan protocol.Frame // SUBSCRIBE and SEND frames
	connects chan protocol.Frame // CONNECT frames
}

type brokerConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

func (bc *brokerConn) writeFrame(f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.conn.WriteMessage(websocket.TextMessage, data)
}

func (bc *brokerConn) writeRaw(data []byte) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.conn.WriteMessage(websocket.TextMessage, data)
}

func newFakeBroker(t *testing.T) *fakeBroker {
	b := &fakeBroker{
		t:        t,
		frames:   make(chan protocol.Frame, 64),
		connects: make(chan protocol.Frame, 16),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBroker) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *fakeBroker) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	bc := &brokerConn{conn: conn, done: make(chan struct{})}

	b.mu.Lock()
	b.conns = append(b.conns, bc)
	b.accepted++
	b.mu.Unlock()

	defer func() {
		close(bc.done)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := protocol.Decode(data)
		if err != nil {
			continue
		}

		switch frame.Command {
		case protocol.CmdConnect:
			b.connects <- frame
			b.mu.Lock()
			reject, silent := b.reject, b.silent
			b.mu.Unlock()
			if silent {
				continue
			}
			if reject {
				bc.writeFrame(protocol.Frame{
					Command: protocol.CmdError,
					Headers: map[string]string{protocol.HdrMessage: "invalid credentials"},
				})
				continue
			}
			bc.writeFrame(protocol.Frame{Command: protocol.CmdConnected})

		case protocol.CmdSubscribe, protocol.CmdSend:
			b.frames <- frame
		}
	}
}

func (b *fakeBroker) setReject(v bool) {
	b.mu.Lock()
	b.reject = v
	b.mu.Unlock()
}

func (b *fakeBroker) setSilent(v bool) {
	b.mu.Lock()
	b.silent = v
	b.mu.Unlock()
}

func (b *fakeBroker) acceptedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accepted
}

func (b *fakeBroker) latestConn() *brokerConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.conns) == 0 {
		return nil
	}
	return b.conns[len(b.conns)-1]
}

// deliver writes a MESSAGE frame carrying the envelope on the most recent
// connection, as the backend does when routing to the subscribed inbox.
func (b *fakeBroker) deliver(env chatwire.Envelope) error {
	bc := b.latestConn()
	if bc == nil {
		b.t.Fatal("deliver: no connection")
	}
	return bc.writeFrame(protocol.Frame{
		Command: protocol.CmdMessage,
		Body:    &env,
	})
}

// deliverRaw injects arbitrary bytes, for malformed-frame tests.
func (b *fakeBroker) deliverRaw(data []byte) error {
	bc := b.latestConn()
	if bc == nil {
		b.t.Fatal("deliverRaw: no connection")
	}
	return bc.writeRaw(data)
}

// dropConnections abruptly closes every open connection, simulating an
// unsolicited network drop.
func (b *fakeBroker) dropConnections() {
	b.mu.Lock()
	conns := append([]*brokerConn(nil), b.conns...)
	b.mu.Unlock()
	for _, bc := range conns {
		bc.conn.Close()
	}
}

// waitFrame drains recorded frames until one matches the command (and
// destination, when non-empty) or the timeout expires.
func (b *fakeBroker) waitFrame(t *testing.T, command, destination string, timeout time.Duration) protocol.Frame {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case f := <-b.frames:
			if f.Command != command {
				continue
			}
			if destination != "" && f.Destination != destination {
				continue
			}
			return f
		case <-deadline:
			t.Fatalf("no %s frame for %q within %v", command, destination, timeout)
			return protocol.Frame{}
		}
	}
}

// expectNoFrame asserts that no SUBSCRIBE/SEND frame arrives in the window.
func (b *fakeBroker) expectNoFrame(t *testing.T, window time.Duration) {
	t.Helper()
	select {
	case f := <-b.frames:
		t.Fatalf("unexpected %s frame to %q", f.Command, f.Destination)
	case <-time.After(window):
	}
}
