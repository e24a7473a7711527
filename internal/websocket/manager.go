// Package websocket implements the realtime client core: the connection
// state machine, the authenticated handshake, inbox subscription, publishing,
// and fan-out of events to registered handlers.
package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sparkchat/chatwire"
	"github.com/sparkchat/chatwire/internal/protocol"
	"github.com/sparkchat/chatwire/internal/registry"
)

var errClosed = errors.New("connection closed")

// Config carries the connection policy for a Manager. The ws package exposes
// it publicly with defaults; zero fields are filled in by NewManager.
type Config struct {
	// Endpoint is the websocket URL of the channel, e.g. "ws://host/ws".
	Endpoint string

	// TokenSource supplies the bearer token for the handshake. Read once per
	// connection attempt. May be nil for unauthenticated backends.
	TokenSource chatwire.TokenSource

	// HeartbeatInterval drives outbound pings; inbound liveness is enforced
	// by a read deadline of twice this interval. Default 4s.
	HeartbeatInterval time.Duration

	// ReconnectDelay is the fixed delay between automatic reconnect
	// attempts after an unsolicited drop. Default 5s.
	ReconnectDelay time.Duration

	// MaxReconnectAttempts caps the automatic reconnect loop. Zero means
	// retry forever; only Disconnect abandons the loop then.
	MaxReconnectAttempts int

	// HandshakeTimeout bounds the wait for the CONNECTED acknowledgment.
	// Default 10s.
	HandshakeTimeout time.Duration

	// TypingRate and TypingBurst throttle outbound typing signals.
	// Default 1 per second, burst 1.
	TypingRate  rate.Limit
	TypingBurst int

	// Logger receives connection events, handler faults, and dropped-frame
	// notices. Default is a no-op logger.
	Logger *zap.Logger
}

// Manager owns the transport and runs the connection state machine. It
// implements chatwire.Client. At most one transport is live at a time: every
// Connect and Disconnect tears down the previous connection before anything
// else, and a generation counter invalidates callbacks from superseded
// transports.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	messages  *registry.Registry[chatwire.Envelope]
	connState *registry.Registry[bool]
	typing    *rate.Limiter

	mu            sync.Mutex
	state         chatwire.ConnectionState
	identity      chatwire.Identity
	tr            *transport
	gen           uint64
	cancelAttempt context.CancelFunc
}

var _ chatwire.Client = (*Manager)(nil)

// NewManager creates a disconnected Manager with defaults applied for any
// zero Config field.
func NewManager(cfg Config) *Manager {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 4 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.TypingRate <= 0 {
		cfg.TypingRate = 1
	}
	if cfg.TypingBurst <= 0 {
		cfg.TypingBurst = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Manager{
		cfg:       cfg,
		logger:    cfg.Logger,
		messages:  registry.New[chatwire.Envelope](cfg.Logger),
		connState: registry.New[bool](cfg.Logger),
		typing:    rate.NewLimiter(cfg.TypingRate, cfg.TypingBurst),
		state:     chatwire.Disconnected,
	}
}

// Connect implements chatwire.Client.
func (m *Manager) Connect(ctx context.Context, identity chatwire.Identity) error {
	m.mu.Lock()
	old, wasConnected := m.teardownLocked()
	gen := m.gen
	m.identity = identity
	m.state = chatwire.Connecting
	attemptCtx, cancel := context.WithCancel(ctx)
	m.cancelAttempt = cancel
	m.mu.Unlock()
	defer cancel()

	m.closeTransport(old)
	if wasConnected {
		m.connState.Dispatch(false)
	}

	err := m.establish(attemptCtx, gen, identity)
	if err == nil {
		return nil
	}

	m.mu.Lock()
	superseded := m.gen != gen
	if !superseded {
		m.cancelAttempt = nil
		m.state = chatwire.Failed
	}
	m.mu.Unlock()

	if superseded || errors.Is(err, chatwire.ErrConnectSuperseded) {
		return chatwire.ErrConnectSuperseded
	}

	m.connState.Dispatch(false)
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}

// Disconnect implements chatwire.Client.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == chatwire.Disconnected {
		m.mu.Unlock()
		return
	}
	tr, wasConnected := m.teardownLocked()
	m.state = chatwire.Disconnected
	m.identity = chatwire.Identity{}
	m.mu.Unlock()

	m.closeTransport(tr)
	if wasConnected {
		m.connState.Dispatch(false)
	}
}

// OnMessage implements chatwire.Client.
func (m *Manager) OnMessage(handler func(chatwire.Envelope)) func() {
	return m.messages.Subscribe(handler)
}

// OnConnectionChange implements chatwire.Client.
func (m *Manager) OnConnectionChange(handler func(bool)) func() {
	return m.connState.Subscribe(handler)
}

// IsConnected implements chatwire.Client.
func (m *Manager) IsConnected() bool {
	return m.State() == chatwire.Connected
}

// State implements chatwire.Client.
func (m *Manager) State() chatwire.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// teardownLocked abandons any live or pending connection: it bumps the
// generation so in-flight callbacks and attempts become stale, cancels a
// pending attempt, and detaches the transport for the caller to close.
// Caller holds m.mu.
func (m *Manager) teardownLocked() (tr *transport, wasConnected bool) {
	m.gen++
	if m.cancelAttempt != nil {
		m.cancelAttempt()
		m.cancelAttempt = nil
	}
	tr = m.tr
	m.tr = nil
	wasConnected = m.state == chatwire.Connected
	return tr, wasConnected
}

// closeTransport closes a detached transport, logging rather than surfacing
// teardown errors.
func (m *Manager) closeTransport(tr *transport) {
	if tr == nil {
		return
	}
	if err := tr.close(websocket.CloseNormalClosure, ""); err != nil {
		m.logger.Warn("transport teardown failed", zap.Error(err))
	}
}

// establish runs one full connection attempt: dial, handshake, inbox
// subscription, JOIN announcement, then installs the transport if the
// attempt has not been superseded. On success the state is Connected,
// connection handlers have been notified with true, and the read loop is
// running.
func (m *Manager) establish(ctx context.Context, gen uint64, identity chatwire.Identity) error {
	var token string
	if m.cfg.TokenSource != nil {
		token = m.cfg.TokenSource.Token()
	}

	tr, err := dialTransport(ctx, m.cfg.Endpoint, m.cfg.HeartbeatInterval, m.logger)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return &chatwire.TransportError{Err: err}
	}

	// Unblock the handshake read when the attempt is superseded or the
	// caller's context ends.
	stop := context.AfterFunc(ctx, func() {
		tr.close(websocket.CloseGoingAway, "")
	})
	defer stop()

	if err := m.handshake(ctx, tr, token); err != nil {
		tr.close(websocket.CloseNormalClosure, "")
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return err
	}

	subID := uuid.New().String()
	if err := m.subscribeInbox(tr, subID, identity.Username); err != nil {
		tr.close(websocket.CloseNormalClosure, "")
		return err
	}
	if err := m.announceJoin(tr, identity); err != nil {
		tr.close(websocket.CloseNormalClosure, "")
		return err
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		tr.close(websocket.CloseNormalClosure, "")
		return chatwire.ErrConnectSuperseded
	}
	if cerr := ctx.Err(); cerr != nil {
		m.mu.Unlock()
		tr.close(websocket.CloseNormalClosure, "")
		return cerr
	}
	m.tr = tr
	m.state = chatwire.Connected
	m.cancelAttempt = nil
	m.mu.Unlock()

	m.logger.Info("connected",
		zap.String("username", identity.Username),
		zap.String("subscription_id", subID))
	m.connState.Dispatch(true)

	go m.readLoop(tr, gen)
	return nil
}

// handshake sends the CONNECT frame with the bearer token and waits for the
// CONNECTED acknowledgment or an ERROR rejection.
func (m *Manager) handshake(ctx context.Context, tr *transport, token string) error {
	data, err := protocol.Encode(protocol.Connect(token))
	if err != nil {
		return err
	}
	if err := tr.write(data); err != nil {
		return err
	}

	deadline := time.Now().Add(m.cfg.HandshakeTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := tr.readFrame(deadline)
		if err != nil {
			return &chatwire.TransportError{Err: err}
		}
		frame, err := protocol.Decode(raw)
		if err != nil {
			m.logger.Warn("dropping malformed frame during handshake", zap.Error(err))
			continue
		}
		switch frame.Command {
		case protocol.CmdConnected:
			return nil
		case protocol.CmdError:
			return &chatwire.HandshakeError{Reason: frame.Header(protocol.HdrMessage)}
		default:
			m.logger.Warn("unexpected frame during handshake",
				zap.String("command", frame.Command))
		}
	}
}

// handleDrop reacts to a read-loop failure. If the drop belongs to the
// current session it moves the state to Reconnecting, notifies connection
// handlers, and starts the retry loop. Drops from superseded transports are
// ignored; the teardown that superseded them already settled the state.
func (m *Manager) handleDrop(tr *transport, gen uint64, cause error) {
	tr.close(websocket.CloseAbnormalClosure, "")

	m.mu.Lock()
	if m.gen != gen || m.tr != tr {
		m.mu.Unlock()
		return
	}
	m.tr = nil
	m.state = chatwire.Reconnecting
	identity := m.identity
	attemptCtx, cancel := context.WithCancel(context.Background())
	m.cancelAttempt = cancel
	m.mu.Unlock()

	m.logger.Warn("connection dropped", zap.Error(cause))
	m.connState.Dispatch(false)

	go m.reconnectLoop(attemptCtx, cancel, gen, identity)
}

// reconnectLoop retries the full connection attempt with a fixed delay until
// it succeeds, the attempt cap is reached, or the session is abandoned by
// Disconnect or a new Connect.
func (m *Manager) reconnectLoop(ctx context.Context, cancel context.CancelFunc, gen uint64, identity chatwire.Identity) {
	defer cancel()
	for attempt := 1; ; attempt++ {
		if m.cfg.MaxReconnectAttempts > 0 && attempt > m.cfg.MaxReconnectAttempts {
			m.logger.Warn("reconnect attempts exhausted",
				zap.Int("attempts", m.cfg.MaxReconnectAttempts))
			m.mu.Lock()
			if m.gen == gen && m.state == chatwire.Reconnecting {
				m.state = chatwire.Failed
				m.cancelAttempt = nil
			}
			m.mu.Unlock()
			return
		}

		select {
		case <-time.After(m.cfg.ReconnectDelay):
		case <-ctx.Done():
			return
		}

		err := m.establish(ctx, gen, identity)
		if err == nil {
			return
		}
		if ctx.Err() != nil || errors.Is(err, chatwire.ErrConnectSuperseded) {
			return
		}
		m.logger.Warn("reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
}
