package transport

// Reason records why a Transport is in the NotConnected state.
type Reason int

const (
	// NeverOpened is the initial state before the first Connect.
	NeverOpened Reason = iota
	// LocalClosed means Disconnect was called; it is never retried
	// past by a reconnection controller.
	LocalClosed
	// RemoteClosed means the socket dropped or the server closed it.
	RemoteClosed
	// Reconnecting means a reconnection attempt is in flight.
	Reconnecting
)

// String renders the reason for logging.
func (r Reason) String() string {
	switch r {
	case NeverOpened:
		return "never opened"
	case LocalClosed:
		return "locally closed"
	case RemoteClosed:
		return "remotely closed"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// State is the connection lifecycle of a Transport: either Connected
// or NotConnected with a Reason.
type State struct {
	connected bool
	reason    Reason
}

// Connected reports a live, usable connection.
func Connected() State { return State{connected: true} }

// NotConnected reports a dead connection with the given reason.
func NotConnected(reason Reason) State { return State{reason: reason} }

// IsConnected reports whether the state is Connected.
func (s State) IsConnected() bool { return s.connected }

// Reason returns the disconnection reason; meaningless if IsConnected.
func (s State) Reason() Reason { return s.reason }

func (s State) String() string {
	if s.connected {
		return "connected"
	}
	return "not connected: " + s.reason.String()
}
