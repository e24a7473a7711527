// Package ws constructs realtime chat clients.
package ws

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sparkchat/chatwire"
	"github.com/sparkchat/chatwire/internal/websocket"
)

// Config is the connection policy for a client.
type Config = websocket.Config

// NewClient creates a disconnected chat client for the given configuration.
// The client keeps its handler registries across connect/disconnect cycles,
// so UI subscriptions set up once remain valid across reconnects.
//
// Example:
//
//	tokens := rest.NewTokenStore()
//	client := ws.NewClient(ws.DefaultConfig("ws://localhost:8080/ws", tokens))
//
//	client.OnConnectionChange(func(connected bool) {
//	    log.Printf("connected=%v", connected)
//	})
//
//	if err := client.Connect(ctx, chatwire.Identity{Username: "alice"}); err != nil {
//	    log.Fatal(err)
//	}
func NewClient(cfg *Config) chatwire.Client {
	if cfg == nil {
		cfg = &Config{}
	}
	return websocket.NewManager(*cfg)
}

// DefaultConfig returns the default connection policy for the given endpoint
// and credential source: 4s heartbeats in each direction, a fixed 5s
// reconnect delay with no attempt cap, a 10s handshake timeout, and typing
// signals throttled to one per second.
func DefaultConfig(endpoint string, tokens chatwire.TokenSource) *Config {
	return &Config{
		Endpoint:          endpoint,
		TokenSource:       tokens,
		HeartbeatInterval: 4 * time.Second,
		ReconnectDelay:    5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		TypingRate:        rate.Limit(1),
		TypingBurst:       1,
		Logger:            zap.NewNop(),
	}
}
