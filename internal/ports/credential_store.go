package ports

import "github.com/bft-labs/wifikeeper/internal/domain"

// CredentialStore gives read access to the saved network.
type CredentialStore interface {
	// Get returns the saved credentials and whether any are stored.
	Get() (domain.Credentials, bool)
}

// CredentialWriter mutates the saved network. Implementations publish
// EventCredentialsFound or EventCredentialsMissing after a change.
type CredentialWriter interface {
	Save(creds domain.Credentials) error
	Clear() error
}
