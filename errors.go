package chatwire

import (
	"errors"
	"fmt"
)

// Precondition errors, returned synchronously with no network effect and no
// state change.
var (
	// ErrNotConnected is returned by SendMessage when the client is not in
	// the Connected state.
	ErrNotConnected = errors.New("chatwire: not connected")

	// ErrEmptyContent is returned by SendMessage when the message content is
	// empty.
	ErrEmptyContent = errors.New("chatwire: empty message content")

	// ErrMissingRecipient is returned by SendMessage when no recipient is
	// given.
	ErrMissingRecipient = errors.New("chatwire: missing recipient")
)

var (
	// ErrConnectSuperseded settles a pending Connect that was abandoned by a
	// newer Connect or an explicit Disconnect.
	ErrConnectSuperseded = errors.New("chatwire: connect superseded")

	// ErrInvalidEnvelope marks an envelope that fails validation. Inbound
	// envelopes failing with it are dropped and logged, never delivered.
	ErrInvalidEnvelope = errors.New("chatwire: invalid envelope")
)

// HandshakeError reports that the backend refused the session during the
// handshake: invalid credentials or an explicit ERROR frame before
// acknowledgment. Connect surfaces it to the caller and the client moves to
// Failed without retrying.
type HandshakeError struct {
	// Reason is the backend-supplied rejection message, if any.
	Reason string
}

func (e *HandshakeError) Error() string {
	if e.Reason == "" {
		return "chatwire: handshake rejected"
	}
	return "chatwire: handshake rejected: " + e.Reason
}

// TransportError reports a network-level failure: a dial error, or a
// connection lost before the handshake was acknowledged. Drops after a
// successful handshake are recovered by automatic reconnection and surface
// only through connection-state notifications, not as TransportError returns.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chatwire: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
