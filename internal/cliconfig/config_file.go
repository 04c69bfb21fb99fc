package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/wifikeeper/internal/adapters/radio"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StateDir         string          `toml:"state_dir"`
	CredentialsFile  string          `toml:"credentials_file"`
	LogLevel         string          `toml:"log_level"`
	TickInterval     string          `toml:"tick_interval"`
	JoinTimeout      string          `toml:"join_timeout"`
	ReconnectInitial string          `toml:"reconnect_initial"`
	ReconnectMax     string          `toml:"reconnect_max"`
	APPrefix         string          `toml:"ap_prefix"`
	APSecret         string          `toml:"ap_secret"`
	APAddress        string          `toml:"ap_address"`
	PortalListen     string          `toml:"portal_listen"`
	ScanCooldown     string          `toml:"scan_cooldown"`
	DNSPort          int             `toml:"dns_port"`
	HardwareAddr     string          `toml:"hardware_addr"`
	JoinLatency      string          `toml:"join_latency"`
	LinkDrop         string          `toml:"link_drop"`
	Networks         []radio.Network `toml:"network"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.wifikeeper/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".wifikeeper", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("credentials", fc.CredentialsFile, &cfg.CredentialsFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("ap-prefix", fc.APPrefix, &cfg.APPrefix)
	s.setString("ap-secret", fc.APSecret, &cfg.APSecret)
	s.setString("ap-address", fc.APAddress, &cfg.APAddress)
	s.setString("listen", fc.PortalListen, &cfg.PortalListen)
	s.setString("hw-addr", fc.HardwareAddr, &cfg.HardwareAddr)

	if err := s.setDuration("tick", fc.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("join-timeout", fc.JoinTimeout, &cfg.JoinTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-initial", fc.ReconnectInitial, &cfg.ReconnectInitial); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max", fc.ReconnectMax, &cfg.ReconnectMax); err != nil {
		return err
	}
	if err := s.setDuration("scan-cooldown", fc.ScanCooldown, &cfg.ScanCooldown); err != nil {
		return err
	}
	if err := s.setDuration("join-latency", fc.JoinLatency, &cfg.JoinLatency); err != nil {
		return err
	}

	if err := s.setDuration("link-drop", fc.LinkDrop, &cfg.LinkDrop); err != nil {
		return err
	}

	s.setInt("dns-port", fc.DNSPort, &cfg.DNSPort)

	if len(fc.Networks) > 0 {
		cfg.Networks = fc.Networks
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
