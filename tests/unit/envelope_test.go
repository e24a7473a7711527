package unit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sparkchat/chatwire"
)

// TestEnvelopeValidation tests the envelope invariants applied to inbound traffic
func TestEnvelopeValidation(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	alice := chatwire.Identity{Username: "alice"}

	tests := []struct {
		name    string
		env     chatwire.Envelope
		wantErr bool
	}{
		{
			name: "valid text",
			env: chatwire.Envelope{
				Sender:      alice,
				Recipient:   "bob",
				Content:     "hi",
				MessageType: chatwire.MessageText,
				SentAt:      now,
			},
		},
		{
			name: "text without recipient is valid inbound",
			env: chatwire.Envelope{
				Sender:      chatwire.Identity{Username: "bob"},
				Content:     "hi",
				MessageType: chatwire.MessageText,
				SentAt:      now,
			},
		},
		{
			name: "join carries only the sender",
			env: chatwire.Envelope{
				Sender:      alice,
				MessageType: chatwire.MessageJoin,
				SentAt:      now,
			},
		},
		{
			name: "typing without content",
			env: chatwire.Envelope{
				Sender:      alice,
				MessageType: chatwire.MessageTyping,
				SentAt:      now,
			},
		},
		{
			name: "text without content",
			env: chatwire.Envelope{
				Sender:      alice,
				Recipient:   "bob",
				MessageType: chatwire.MessageText,
				SentAt:      now,
			},
			wantErr: true,
		},
		{
			name: "missing sender",
			env: chatwire.Envelope{
				Content:     "hi",
				MessageType: chatwire.MessageText,
				SentAt:      now,
			},
			wantErr: true,
		},
		{
			name: "unknown message type",
			env: chatwire.Envelope{
				Sender:      alice,
				Content:     "hi",
				MessageType: chatwire.MessageType("VIDEO"),
				SentAt:      now,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.env.Validate()
			if tt.wantErr && !errors.Is(err, chatwire.ErrInvalidEnvelope) {
				t.Errorf("Validate() = %v, want ErrInvalidEnvelope", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

// TestMessageTypeValid tests the known envelope kinds
func TestMessageTypeValid(t *testing.T) {
	t.Parallel()

	for _, mt := range []chatwire.MessageType{
		chatwire.MessageText,
		chatwire.MessageJoin,
		chatwire.MessageTyping,
	} {
		if !mt.Valid() {
			t.Errorf("%s should be valid", mt)
		}
	}

	if chatwire.MessageType("").Valid() {
		t.Error("empty message type should be invalid")
	}
	if chatwire.MessageType("AUDIO").Valid() {
		t.Error("unknown message type should be invalid")
	}
}

// TestTokenFunc tests the TokenSource adapter
func TestTokenFunc(t *testing.T) {
	t.Parallel()

	var src chatwire.TokenSource = chatwire.TokenFunc(func() string { return "tok" })
	if got := src.Token(); got != "tok" {
		t.Errorf("Token() = %q, want %q", got, "tok")
	}
}

// TestErrorTaxonomy tests that the error kinds are distinguishable
func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	hs := error(&chatwire.HandshakeError{Reason: "bad token"})
	var hsTarget *chatwire.HandshakeError
	if !errors.As(hs, &hsTarget) {
		t.Error("HandshakeError should match errors.As")
	}
	if hsTarget.Reason != "bad token" {
		t.Errorf("Reason = %q", hsTarget.Reason)
	}

	cause := errors.New("connection reset")
	tr := error(&chatwire.TransportError{Err: cause})
	if !errors.Is(tr, cause) {
		t.Error("TransportError should unwrap to its cause")
	}

	if errors.Is(chatwire.ErrNotConnected, chatwire.ErrEmptyContent) {
		t.Error("precondition errors must be distinct")
	}
}
