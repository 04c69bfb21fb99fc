package domain

import "fmt"

// ConnectivityState is the state of the device's network link.
// Exactly one value is held at any time.
type ConnectivityState int

const (
	StateDisconnected ConnectivityState = iota
	StateConnecting
	StateConnected
	StateProvisioning
)

// String returns a human-readable representation of the state.
func (s ConnectivityState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateProvisioning:
		return "ProvisioningAP"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the four defined states.
func (s ConnectivityState) Valid() bool {
	return s >= StateDisconnected && s <= StateProvisioning
}

// MarshalText renders the state by name for JSON and TOML encoders.
func (s ConnectivityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (s *ConnectivityState) UnmarshalText(text []byte) error {
	for c := StateDisconnected; c <= StateProvisioning; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown connectivity state %q", text)
}
