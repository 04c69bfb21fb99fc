package domain

import "time"

// ConnectionAttempt is created on entering Connecting and discarded on leaving it.
type ConnectionAttempt struct {
	// ID correlates log lines for one attempt.
	ID string

	Identifier string
	Secret     string
	StartedAt  time.Time
	Timeout    time.Duration

	// FromProvisioning marks an attempt started while the provisioning
	// access point is up. On success the access point is torn down.
	FromProvisioning bool
}

// Deadline returns the instant the attempt expires.
func (a ConnectionAttempt) Deadline() time.Time {
	return a.StartedAt.Add(a.Timeout)
}

// Expired reports whether the attempt has reached its timeout at now.
func (a ConnectionAttempt) Expired(now time.Time) bool {
	return now.Sub(a.StartedAt) >= a.Timeout
}

// ProvisioningSession is created on entering provisioning and lives until
// the access point is torn down.
type ProvisioningSession struct {
	APIdentifier string
	Address      string
	StartedAt    time.Time
}

// Status is an immutable snapshot of the manager's observable state.
type Status struct {
	State ConnectivityState `json:"state"`

	// Address is valid only in Connected.
	Address string `json:"address,omitempty"`

	// APIdentifier is valid only in provisioning.
	APIdentifier string `json:"ap_identifier,omitempty"`

	// Identifier is the network being joined or joined.
	Identifier string `json:"identifier,omitempty"`

	Since time.Time `json:"since"`
}
