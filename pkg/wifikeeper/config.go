package wifikeeper

import (
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/bft-labs/wifikeeper/internal/adapters/credfile"
	"github.com/bft-labs/wifikeeper/internal/adapters/dns"
	"github.com/bft-labs/wifikeeper/internal/adapters/radio"
	"github.com/bft-labs/wifikeeper/internal/app"
	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/portal"
)

// Default host configuration values.
const (
	DefaultTickInterval = 100 * time.Millisecond
	ShutdownTimeout     = 30 * time.Second
)

// Network is a network visible to the simulated radio.
type Network = radio.Network

// Config holds the configuration of a Keeper.
type Config struct {
	// StateDir holds the credential file unless CredentialsFile is set.
	StateDir        string
	CredentialsFile string

	// TickInterval is the period of the manager tick. Join timeouts are
	// detected at most one interval late.
	TickInterval time.Duration

	JoinTimeout      time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	// Provisioning access point.
	APPrefix  string
	APSecret  string
	APAddress string

	// PortalListen is the captive portal listen address.
	PortalListen string
	ScanCooldown time.Duration

	// DNSPort is the captive DNS port, used when no responder is injected.
	DNSPort int

	// Simulated radio, used when no radio is injected.
	HardwareAddr net.HardwareAddr
	JoinLatency  time.Duration
	LinkDrop     time.Duration
	Networks     []Network
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = app.DefaultJoinTimeout
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = app.DefaultBackoffInitial
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = app.DefaultBackoffMax
	}
	if c.APPrefix == "" {
		c.APPrefix = domain.DefaultAPPrefix
	}
	if c.APAddress == "" {
		c.APAddress = app.DefaultAPAddress
	}
	if c.PortalListen == "" {
		c.PortalListen = portal.DefaultListen
	}
	if c.ScanCooldown <= 0 {
		c.ScanCooldown = portal.DefaultScanCooldown
	}
	if c.DNSPort == 0 {
		c.DNSPort = dns.DefaultPort
	}
	if c.CredentialsFile == "" && c.StateDir != "" {
		c.CredentialsFile = filepath.Join(c.StateDir, credfile.DefaultFileName)
	}
}

// Validate reports configuration errors wrapped in domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.CredentialsFile == "" {
		return fmt.Errorf("%w: state dir or credentials file is required", domain.ErrInvalidConfig)
	}
	if c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("%w: reconnect max %s below initial %s", domain.ErrInvalidConfig, c.ReconnectMax, c.ReconnectInitial)
	}
	if ip := net.ParseIP(c.APAddress); ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: ap address %q is not IPv4", domain.ErrInvalidConfig, c.APAddress)
	}
	if c.DNSPort < 0 || c.DNSPort > 65535 {
		return fmt.Errorf("%w: dns port %d out of range", domain.ErrInvalidConfig, c.DNSPort)
	}
	return nil
}

func (c Config) managerConfig() app.ManagerConfig {
	return app.ManagerConfig{
		JoinTimeout:      c.JoinTimeout,
		APPrefix:         c.APPrefix,
		APSecret:         c.APSecret,
		APAddress:        c.APAddress,
		ReconnectInitial: c.ReconnectInitial,
		ReconnectMax:     c.ReconnectMax,
	}
}
