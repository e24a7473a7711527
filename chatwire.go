package chatwire

import "context"

// Client is a realtime direct-messaging client bound to one backend endpoint.
//
// A Client is created once per logical chat session and survives individual
// connect/disconnect cycles: handlers registered with OnMessage and
// OnConnectionChange stay valid across reconnects. All methods are safe for
// concurrent use.
//
// Example usage:
//
//	client := ws.NewClient(ws.DefaultConfig("ws://localhost:8080/ws", tokens))
//
//	client.OnConnectionChange(func(connected bool) {
//	    ui.SetOnline(connected)
//	})
//
//	if err := client.Connect(ctx, chatwire.Identity{Username: "alice"}); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
type Client interface {
	// Connect opens the channel for the given identity and blocks until the
	// authenticated handshake is acknowledged and the private inbox
	// subscription is established.
	//
	// Calling Connect while a connection is live or pending is permitted: the
	// prior connection is torn down first, and its pending Connect call (if
	// any) returns ErrConnectSuperseded. On success the client is Connected,
	// a JOIN envelope has been published, and connection handlers have been
	// notified with true.
	//
	// Returns a *HandshakeError if the backend refused the session, a
	// *TransportError if the underlying connection failed before the
	// handshake was acknowledged, or ctx.Err() if the context was cancelled
	// while connecting.
	Connect(ctx context.Context, identity Identity) error

	// Disconnect tears down the connection and resets the client to
	// Disconnected, clearing the identity. It is idempotent: calling it while
	// already disconnected is a no-op. Teardown errors are logged, never
	// returned.
	//
	// Disconnect also abandons an in-flight Connect or an automatic reconnect
	// loop; it is the only way out of Reconnecting.
	Disconnect()

	// SendMessage publishes a TEXT envelope to the given recipient, stamped
	// with the current identity and send time.
	//
	// Preconditions: the client must be Connected, content must be non-empty,
	// and recipient must be non-empty; otherwise a precondition error
	// (ErrNotConnected, ErrEmptyContent, ErrMissingRecipient) is returned and
	// nothing is written to the transport.
	//
	// The call is fire-and-forget: a nil return means the frame was handed to
	// the transport buffer, not that the peer received it. Outbound envelopes
	// are never looped back through OnMessage handlers; the caller performs
	// its own optimistic local echo.
	SendMessage(content, recipient string) error

	// SendTyping publishes a best-effort TYPING signal. It silently does
	// nothing when the client is not Connected, and excess calls are
	// throttled; typing indicators are a non-critical signal.
	SendTyping()

	// OnMessage registers a handler for inbound envelopes and returns a
	// function that removes it. Multiple handlers may be registered; each
	// envelope is delivered to a snapshot of the handlers in registration
	// order. Registering or unsubscribing from within a handler is safe.
	OnMessage(handler func(Envelope)) (unsubscribe func())

	// OnConnectionChange registers a handler for connection-state
	// notifications: true when a handshake completes, false when the
	// connection drops or the handshake is rejected. Returns a function that
	// removes the handler.
	OnConnectionChange(handler func(connected bool)) (unsubscribe func())

	// IsConnected reports whether the client is currently Connected.
	IsConnected() bool

	// State returns the current connection state, for UI indicators that
	// distinguish Reconnecting from Disconnected.
	State() ConnectionState
}

// TokenSource supplies the bearer token used to authenticate the handshake.
// The token is read when a connection attempt is made, never refreshed
// mid-connection. An empty return means no credentials are attached.
//
// The rest package's TokenStore implements TokenSource; so does TokenFunc for
// ad hoc sources.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }
