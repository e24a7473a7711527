package e2e_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/sparkchat/chatwire"
	"github.com/sparkchat/chatwire/internal/protocol"
)

// broker is a minimal in-process backend: it acknowledges the CONNECT
// handshake when the bearer token matches, records SUBSCRIBE/SEND frames,
// and lets tests push MESSAGE frames to the subscribed inbox.
type broker struct {
	srv   *httptest.Server
	token string

	mu    sync.Mutex
	conns []*websocket.Conn
	wmu   sync.Mutex

	frames chan protocol.Frame
}

func newBroker(t *testing.T, token string) *broker {
	b := &broker{
		token:  token,
		frames: make(chan protocol.Frame, 64),
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.mu.Unlock()
		defer conn.Close()

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
				reply := protocol.Frame{Command: protocol.CmdConnected}
				if b.token != "" && frame.Header(protocol.HdrAuthorization) != "Bearer "+b.token {
					reply = protocol.Frame{
						Command: protocol.CmdError,
						Headers: map[string]string{protocol.HdrMessage: "unauthorized"},
					}
				}
				b.writeFrame(conn, reply)
			case protocol.CmdSubscribe, protocol.CmdSend:
				b.frames <- frame
			}
		}
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *broker) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *broker) writeFrame(conn *websocket.Conn, f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// deliver routes an envelope to the latest connection's inbox.
func (b *broker) deliver(t *testing.T, env chatwire.Envelope) {
	t.Helper()
	b.mu.Lock()
	if len(b.conns) == 0 {
		b.mu.Unlock()
		t.Fatal("deliver: no connection")
	}
	conn := b.conns[len(b.conns)-1]
	b.mu.Unlock()

	if err := b.writeFrame(conn, protocol.Frame{Command: protocol.CmdMessage, Body: &env}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}
