package chatwire

// ConnectionState is the connection lifecycle state of a Client. Exactly one
// state is active at a time; it is mutated only by the client itself in
// response to transport events or an explicit Disconnect.
type ConnectionState int

const (
	// Disconnected means no connection exists. Initial state, and the state
	// after an explicit Disconnect.
	Disconnected ConnectionState = iota

	// Connecting means the transport is opening and the handshake is in
	// flight for an explicit Connect call.
	Connecting

	// Connected means the handshake was acknowledged and the inbox
	// subscription is established.
	Connected

	// Reconnecting means the transport dropped unexpectedly and automatic
	// retries are scheduled. Only Disconnect leaves this state besides a
	// successful handshake.
	Reconnecting

	// Failed means the handshake was rejected or the transport failed before
	// acknowledgment. The client does not retry from this state.
	Failed
)

// String returns the lowercase name of the state.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
