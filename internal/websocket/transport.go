package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sparkchat/chatwire"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// transport wraps one websocket connection: a buffered send queue drained by
// a write pump that also emits heartbeat pings, and a read side with a
// pong-refreshed deadline so half-open connections are detected. A transport
// is used for exactly one session; reconnection replaces it.
type transport struct {
	conn      *websocket.Conn
	heartbeat time.Duration
	sendCh    chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	logger    *zap.Logger
}

// dialTransport opens a websocket connection to the endpoint and starts the
// write pump. The heartbeat interval drives outbound pings; inbound liveness
// is enforced by a read deadline of twice that interval, refreshed on every
// pong and every successful read.
func dialTransport(ctx context.Context, endpoint string, heartbeat time.Duration, logger *zap.Logger) (*transport, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: writeWait}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	tctx, cancel := context.WithCancel(context.Background())
	t := &transport{
		conn:      conn,
		heartbeat: heartbeat,
		sendCh:    make(chan []byte, sendQueueSize),
		ctx:       tctx,
		cancel:    cancel,
		logger:    logger,
	}

	conn.SetReadDeadline(time.Now().Add(t.readWait()))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(t.readWait()))
		return nil
	})

	go t.writePump()

	return t, nil
}

func (t *transport) readWait() time.Duration {
	return 2 * t.heartbeat
}

// write queues a frame for delivery. Success means the frame reached the
// transport buffer, nothing more.
func (t *transport) write(data []byte) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return &chatwire.TransportError{Err: errClosed}
	}

	// Keep the lock while queueing to prevent a race with close().
	select {
	case t.sendCh <- data:
		t.mu.RUnlock()
		return nil
	case <-t.ctx.Done():
		t.mu.RUnlock()
		return &chatwire.TransportError{Err: errClosed}
	}
}

// read blocks for the next frame and refreshes the read deadline.
func (t *transport) read() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	t.conn.SetReadDeadline(time.Now().Add(t.readWait()))
	return data, nil
}

// readFrame reads with an absolute deadline, used during the handshake before
// the normal read loop starts.
func (t *transport) readFrame(deadline time.Time) ([]byte, error) {
	t.conn.SetReadDeadline(deadline)
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	t.conn.SetReadDeadline(time.Now().Add(t.readWait()))
	return data, nil
}

// close shuts the transport down, sending a best-effort close frame first.
// Idempotent.
func (t *transport) close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	t.cancel()

	message := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	t.conn.WriteControl(websocket.CloseMessage, message, deadline)

	close(t.sendCh)
	return t.conn.Close()
}

// writePump pumps queued frames to the connection and pings on the heartbeat
// interval. It owns all writes to the underlying connection.
func (t *transport) writePump() {
	ticker := time.NewTicker(t.heartbeat)
	defer func() {
		ticker.Stop()
		// Cancelling here unblocks writers queueing against a dead pump.
		t.cancel()
		t.conn.Close()
	}()

	for {
		select {
		case message, ok := <-t.sendCh:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				t.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := t.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				t.logger.Debug("transport write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-t.ctx.Done():
			return
		}
	}
}
