// Package chatwire provides a realtime direct-messaging client over a single
// persistent WebSocket channel.
//
// The library turns one bidirectional connection into a reliable pub/sub
// facility for a DM UI: it manages the connection lifecycle, performs the
// authenticated handshake, subscribes to the caller's private inbox, publishes
// outgoing messages, and fans incoming messages and connection-state changes
// out to any number of registered handlers. It tolerates disconnects,
// reconnect races, and handlers registered before or after the connection is
// up.
//
// # Architecture
//
// The root package defines the public surface: the Client interface, the
// Envelope data model, connection states, and the error taxonomy. The actual
// connection machinery lives in internal packages; construct a client through
// the ws package:
//
//	import (
//	    "github.com/sparkchat/chatwire"
//	    "github.com/sparkchat/chatwire/ws"
//	)
//
//	client := ws.NewClient(ws.DefaultConfig("ws://localhost:8080/ws", tokens))
//
//	unsub := client.OnMessage(func(env chatwire.Envelope) {
//	    fmt.Printf("%s: %s\n", env.Sender.Username, env.Content)
//	})
//	defer unsub()
//
//	if err := client.Connect(ctx, chatwire.Identity{Username: "alice"}); err != nil {
//	    log.Fatal(err)
//	}
//	client.SendMessage("hello", "bob")
//
// # Wire protocol
//
// Frames are JSON objects with a command type (CONNECT, CONNECTED, ERROR,
// SUBSCRIBE, SEND, MESSAGE), optional headers, a destination, and an Envelope
// body. Outbound destinations are fixed logical names; the inbound
// subscription destination embeds the authenticated username, so delivery
// scoping is enforced by addressing, not by client-side filtering. The bearer
// token travels as a header on the CONNECT frame, never per message.
//
// # Connection lifecycle
//
// Connect dials the endpoint, exchanges the CONNECT/CONNECTED handshake,
// subscribes the caller's inbox, and announces presence with a JOIN envelope
// before it returns. An unsolicited drop after a successful handshake moves
// the client to Reconnecting and retries with a fixed delay (default 5s)
// until it succeeds or Disconnect is called; every Connected entry issues a
// fresh inbox subscription because subscriptions do not survive a transport
// replacement. Calling Connect while a connection is live or pending tears
// the old one down first, so at most one transport exists per client.
//
// # Delivery semantics
//
// Sends are fire-and-forget: success means the frame was handed to the
// transport buffer. The client never loops outbound envelopes back through
// its own message handlers; the caller owns optimistic local echo. Inbound
// envelopes are delivered in transport order to a snapshot of the registered
// handlers, and a handler that panics is isolated and logged without
// affecting the others.
package chatwire
