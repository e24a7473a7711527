package chatwire

import "time"

// MessageType discriminates the kinds of envelope exchanged over the channel.
type MessageType string

const (
	// MessageText is chat content addressed to a single recipient.
	MessageText MessageType = "TEXT"
	// MessageJoin announces presence after a successful handshake. It
	// carries only the sender identity.
	MessageJoin MessageType = "JOIN"
	// MessageTyping is an ephemeral typing signal.
	MessageTyping MessageType = "TYPING"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageJoin, MessageTyping:
		return true
	}
	return false
}

// Identity names the authenticated user a connection belongs to.
type Identity struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

// Envelope is the unit exchanged over the realtime channel.
//
// Content is non-empty for TEXT envelopes. Recipient is set on outbound
// TEXT envelopes; inbound envelopes may omit it because the transport already
// scoped delivery to the recipient's private inbox. ID is a client-stamped
// unique identifier callers can use to deduplicate at-least-once delivery.
type Envelope struct {
	ID          string      `json:"id,omitempty"`
	Sender      Identity    `json:"sender"`
	Recipient   string      `json:"recipient,omitempty"`
	Content     string      `json:"content,omitempty"`
	MessageType MessageType `json:"messageType"`
	SentAt      time.Time   `json:"sentAt"`
}

// Validate checks the envelope invariants: a known message type, a sender
// username, and non-empty content for TEXT. Malformed inbound envelopes fail
// here and are dropped before reaching message handlers.
func (e Envelope) Validate() error {
	if !e.MessageType.Valid() {
		return ErrInvalidEnvelope
	}
	if e.Sender.Username == "" {
		return ErrInvalidEnvelope
	}
	if e.MessageType == MessageText && e.Content == "" {
		return ErrInvalidEnvelope
	}
	return nil
}
