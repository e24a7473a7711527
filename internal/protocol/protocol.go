// Package protocol implements the JSON frame codec for the realtime channel.
//
// Every websocket message is one frame: a command, optional headers, an
// optional destination, and an optional envelope body. CONNECT/CONNECTED/
// ERROR carry the handshake, SUBSCRIBE establishes the per-user inbox,
// SEND publishes an envelope to a fixed application destination, and MESSAGE
// delivers an inbound envelope from the subscribed inbox.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sparkchat/chatwire"
)

// Frame commands.
const (
	CmdConnect   = "CONNECT"
	CmdConnected = "CONNECTED"
	CmdError     = "ERROR"
	CmdSubscribe = "SUBSCRIBE"
	CmdSend      = "SEND"
	CmdMessage   = "MESSAGE"
)

// Well-known header keys.
const (
	// HdrAuthorization carries the bearer token on CONNECT.
	HdrAuthorization = "authorization"
	// HdrSubscription carries the subscription id on SUBSCRIBE and MESSAGE.
	HdrSubscription = "id"
	// HdrMessage carries the human-readable reason on ERROR.
	HdrMessage = "message"
)

// Outbound application destinations.
const (
	DestSendMessage = "/app/chat.sendMessage"
	DestAddUser     = "/app/chat.addUser"
	DestTyping      = "/app/chat.typing"
)

const maxFrameSize = 1 * 1024 * 1024 // 1MB max frame size

// InboxDestination returns the private per-user inbox destination for the
// given username. The backend routes direct messages for that user to this
// destination only, so delivery scoping lives in the addressing scheme.
func InboxDestination(username string) string {
	return "/user/" + username + "/queue/messages"
}

// Frame is one message on the wire.
type Frame struct {
	Command     string             `json:"command"`
	Headers     map[string]string  `json:"headers,omitempty"`
	Destination string             `json:"destination,omitempty"`
	Body        *chatwire.Envelope `json:"body,omitempty"`
}

// Header returns the named header, or "" when absent.
func (f Frame) Header(key string) string {
	return f.Headers[key]
}

// Encode serializes a frame for the wire.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Command, err)
	}
	if len(data) > maxFrameSize {
		return nil, fmt.Errorf("frame size %d exceeds maximum %d bytes", len(data), maxFrameSize)
	}
	return data, nil
}

// Decode parses a frame from the wire and checks that the command is known.
// The envelope body, if present, is not validated here; callers validate it
// against the envelope invariants before dispatch.
func Decode(data []byte) (Frame, error) {
	if len(data) > maxFrameSize {
		return Frame{}, fmt.Errorf("frame size %d exceeds maximum %d bytes", len(data), maxFrameSize)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Command {
	case CmdConnect, CmdConnected, CmdError, CmdSubscribe, CmdSend, CmdMessage:
		return f, nil
	case "":
		return Frame{}, errors.New("decode frame: missing command")
	default:
		return Frame{}, fmt.Errorf("decode frame: unknown command %q", f.Command)
	}
}

// Connect builds the handshake frame. The token, when non-empty, travels as a
// connection-level bearer header; it is never attached per message.
func Connect(token string) Frame {
	f := Frame{Command: CmdConnect}
	if token != "" {
		f.Headers = map[string]string{HdrAuthorization: "Bearer " + token}
	}
	return f
}

// Subscribe builds an inbox subscription frame tagged with a subscription id.
func Subscribe(id, destination string) Frame {
	return Frame{
		Command:     CmdSubscribe,
		Headers:     map[string]string{HdrSubscription: id},
		Destination: destination,
	}
}

// Send builds a publication frame carrying an envelope to an application
// destination.
func Send(destination string, env chatwire.Envelope) Frame {
	return Frame{
		Command:     CmdSend,
		Destination: destination,
		Body:        &env,
	}
}
