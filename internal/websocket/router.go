package websocket

import (
	"go.uber.org/zap"

	"github.com/sparkchat/chatwire/internal/protocol"
)

// subscribeInbox establishes the private inbox subscription for the given
// username. Called on every Connected entry: subscriptions do not survive a
// transport replacement, so each session gets a fresh subscription id.
// Delivery scoping is enforced by the inbox addressing, not by client-side
// filtering, so the read loop never inspects recipients.
func (m *Manager) subscribeInbox(tr *transport, subID, username string) error {
	frame := protocol.Subscribe(subID, protocol.InboxDestination(username))
	data, err := protocol.Encode(frame)
	if err != nil {
		return err
	}
	return tr.write(data)
}

// readLoop decodes inbound frames and forwards envelopes to the message
// handlers until the transport fails. Each frame is handled to completion
// before the next is read, so deliveries and the state transitions they
// trigger stay in transport order.
func (m *Manager) readLoop(tr *transport, gen uint64) {
	for {
		data, err := tr.read()
		if err != nil {
			m.handleDrop(tr, gen, err)
			return
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			m.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		m.route(frame)
	}
}

// route dispatches one decoded frame. Malformed envelopes are dropped and
// logged, never delivered and never fatal to the loop.
func (m *Manager) route(frame protocol.Frame) {
	switch frame.Command {
	case protocol.CmdMessage:
		if frame.Body == nil {
			m.logger.Warn("dropping message frame without body")
			return
		}
		env := *frame.Body
		if err := env.Validate(); err != nil {
			m.logger.Warn("dropping invalid envelope",
				zap.String("sender", env.Sender.Username),
				zap.Error(err))
			return
		}
		m.messages.Dispatch(env)

	case protocol.CmdError:
		m.logger.Warn("server error frame",
			zap.String("reason", frame.Header(protocol.HdrMessage)))

	default:
		m.logger.Debug("ignoring frame", zap.String("command", frame.Command))
	}
}
