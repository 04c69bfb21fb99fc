package cliconfig

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
	"github.com/bft-labs/wifikeeper/internal/adapters/radio"
)

// CredentialsFileName is the credential file inside the state directory.
const CredentialsFileName = "credentials.toml"

// Config holds CLI configuration for wifikeeper.
type Config struct {
	StateDir        string
	CredentialsFile string
	LogLevel        string

	TickInterval     time.Duration
	JoinTimeout      time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	APPrefix  string
	APSecret  string
	APAddress string

	PortalListen string
	ScanCooldown time.Duration
	DNSPort      int

	// Simulated radio.
	HardwareAddr string
	JoinLatency  time.Duration
	LinkDrop     time.Duration
	Networks     []radio.Network
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StateDir:         DefaultStateDir(),
		LogLevel:         "info",
		TickInterval:     100 * time.Millisecond,
		JoinTimeout:      30 * time.Second,
		ReconnectInitial: 5 * time.Second,
		ReconnectMax:     2 * time.Minute,
		APPrefix:         "wifikeeper-",
		APAddress:        "192.168.4.1",
		PortalListen:     ":80",
		ScanCooldown:     10 * time.Second,
		DNSPort:          53,
		JoinLatency:      2 * time.Second,
	}
}

// DefaultStateDir returns ~/.wifikeeper, or "" if the home directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".wifikeeper")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.CredentialsFile == "" {
		if c.StateDir == "" {
			return fmt.Errorf("state-dir is required")
		}
		c.CredentialsFile = filepath.Join(c.StateDir, CredentialsFileName)
	}

	if _, ok := logAdapter.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("join timeout must be positive")
	}
	if c.ReconnectInitial <= 0 || c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("reconnect backoff must satisfy 0 < initial <= max")
	}

	if ip := net.ParseIP(c.APAddress); ip == nil || ip.To4() == nil {
		return fmt.Errorf("ap-address %q is not an IPv4 address", c.APAddress)
	}
	// WPA2 passphrases are 8 to 63 characters; empty hosts an open network.
	if n := len(c.APSecret); n != 0 && (n < 8 || n > 63) {
		return fmt.Errorf("ap-secret must be empty or 8-63 characters")
	}

	if c.LinkDrop < 0 {
		return fmt.Errorf("link drop interval must not be negative")
	}

	if c.DNSPort < 0 || c.DNSPort > 65535 {
		return fmt.Errorf("dns port %d out of range", c.DNSPort)
	}
	if c.HardwareAddr != "" {
		if _, err := net.ParseMAC(c.HardwareAddr); err != nil {
			return fmt.Errorf("hw-addr: %w", err)
		}
	}

	return nil
}

// HardwareAddress returns the parsed hardware address, or nil when unset.
func (c *Config) HardwareAddress() net.HardwareAddr {
	hw, err := net.ParseMAC(c.HardwareAddr)
	if err != nil {
		return nil
	}
	return hw
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
