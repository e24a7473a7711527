package websocket

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkchat/chatwire"
	"github.com/sparkchat/chatwire/internal/protocol"
)

// SendMessage implements chatwire.Client. It validates the preconditions,
// builds a TEXT envelope stamped with the current identity and send time, and
// hands it to the transport. Fire-and-forget: a nil return means the frame
// reached the transport buffer. Outbound envelopes are never looped back
// through message handlers; the caller owns optimistic local echo.
func (m *Manager) SendMessage(content, recipient string) error {
	m.mu.Lock()
	tr := m.tr
	sender := m.identity
	connected := m.state == chatwire.Connected
	m.mu.Unlock()

	if !connected || tr == nil {
		return chatwire.ErrNotConnected
	}
	if strings.TrimSpace(content) == "" {
		return chatwire.ErrEmptyContent
	}
	if strings.TrimSpace(recipient) == "" {
		return chatwire.ErrMissingRecipient
	}

	env := chatwire.Envelope{
		ID:          uuid.New().String(),
		Sender:      sender,
		Recipient:   recipient,
		Content:     content,
		MessageType: chatwire.MessageText,
		SentAt:      time.Now().UTC(),
	}
	return m.publish(tr, protocol.DestSendMessage, env)
}

// SendTyping implements chatwire.Client. Best-effort: it silently does
// nothing when not connected, and the typing limiter drops excess signals.
func (m *Manager) SendTyping() {
	m.mu.Lock()
	tr := m.tr
	sender := m.identity
	connected := m.state == chatwire.Connected
	m.mu.Unlock()

	if !connected || tr == nil {
		return
	}
	if !m.typing.Allow() {
		return
	}

	env := chatwire.Envelope{
		ID:          uuid.New().String(),
		Sender:      sender,
		MessageType: chatwire.MessageTyping,
		SentAt:      time.Now().UTC(),
	}
	if err := m.publish(tr, protocol.DestTyping, env); err != nil {
		m.logger.Debug("typing signal dropped", zap.Error(err))
	}
}

// announceJoin publishes the JOIN envelope that registers the session with
// the backend. Invoked once per successful handshake, before the transport
// is installed.
func (m *Manager) announceJoin(tr *transport, identity chatwire.Identity) error {
	env := chatwire.Envelope{
		ID:          uuid.New().String(),
		Sender:      identity,
		MessageType: chatwire.MessageJoin,
		SentAt:      time.Now().UTC(),
	}
	return m.publish(tr, protocol.DestAddUser, env)
}

func (m *Manager) publish(tr *transport, destination string, env chatwire.Envelope) error {
	data, err := protocol.Encode(protocol.Send(destination, env))
	if err != nil {
		return err
	}
	return tr.write(data)
}
