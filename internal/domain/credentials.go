package domain

import "fmt"

// Length limits for stored credentials.
const (
	MaxIdentifierLength = 32 // IEEE 802.11 SSID
	MaxSecretLength     = 64 // WPA2 passphrase or raw PSK
)

// Credentials is the one saved network the device joins on boot.
type Credentials struct {
	Identifier string `toml:"ssid" json:"ssid"`
	Secret     string `toml:"password" json:"password"`
}

// Validate checks the length limits.
func (c Credentials) Validate() error {
	if c.Identifier == "" || len(c.Identifier) > MaxIdentifierLength {
		return fmt.Errorf("%w: ssid must be 1-%d bytes", ErrInvalidCredentials, MaxIdentifierLength)
	}
	if len(c.Secret) > MaxSecretLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidCredentials, MaxSecretLength)
	}
	return nil
}

// Masked returns a copy safe to log.
func (c Credentials) Masked() Credentials {
	if c.Secret != "" {
		c.Secret = "*****"
	}
	return c
}
