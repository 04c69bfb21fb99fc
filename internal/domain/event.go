package domain

import "time"

// EventType identifies an event carried on the event bus.
type EventType int

const (
	// EventCredentialsFound is published by the credential store owner after
	// credentials were saved or discovered.
	EventCredentialsFound EventType = iota
	// EventCredentialsMissing is published by the credential store owner
	// after credentials were cleared.
	EventCredentialsMissing

	// Lifecycle events published by the manager, one per state change.
	EventConnectingStarted
	EventConnected
	EventDisconnected
	EventProvisioningStarted

	// EventCredentialsNeeded is published once per entry into
	// Disconnected with an empty credential store.
	EventCredentialsNeeded
)

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventCredentialsFound:
		return "CredentialsFound"
	case EventCredentialsMissing:
		return "CredentialsMissing"
	case EventConnectingStarted:
		return "ConnectingStarted"
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventProvisioningStarted:
		return "ProvisioningStarted"
	case EventCredentialsNeeded:
		return "CredentialsNeeded"
	default:
		return "Unknown"
	}
}

// MarshalText renders the event type by name.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event is a notification exchanged over the event bus.
type Event struct {
	Type EventType `json:"type"`

	// State is the state entered, for lifecycle events.
	State ConnectivityState `json:"state"`

	// Reason is a short label explaining the transition (e.g. "join timeout").
	Reason string `json:"reason,omitempty"`

	// Address is the assigned address, set on Connected.
	Address string `json:"address,omitempty"`

	// APIdentifier is the access point identifier, set on ProvisioningStarted.
	APIdentifier string `json:"ap_identifier,omitempty"`

	At time.Time `json:"at"`
}

// LifecycleEvent returns the event type published when entering s.
func LifecycleEvent(s ConnectivityState) EventType {
	switch s {
	case StateConnecting:
		return EventConnectingStarted
	case StateConnected:
		return EventConnected
	case StateProvisioning:
		return EventProvisioningStarted
	default:
		return EventDisconnected
	}
}

// IsCredentialEvent reports whether e was raised by the credential store owner.
func IsCredentialEvent(e Event) bool {
	return e.Type == EventCredentialsFound || e.Type == EventCredentialsMissing
}

// IsLifecycleEvent reports whether e was raised by the manager.
func IsLifecycleEvent(e Event) bool {
	return !IsCredentialEvent(e)
}
