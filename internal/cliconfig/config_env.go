package cliconfig

import (
	"os"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "WIFIKEEPER_"

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are named. Variables already set in the environment win. Missing files
// are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnvConfig applies configuration from environment variables (WIFIKEEPER_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("credentials", env("CREDENTIALS_FILE"), &cfg.CredentialsFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("ap-prefix", env("AP_PREFIX"), &cfg.APPrefix)
	s.setString("ap-secret", env("AP_SECRET"), &cfg.APSecret)
	s.setString("ap-address", env("AP_ADDRESS"), &cfg.APAddress)
	s.setString("listen", env("PORTAL_LISTEN"), &cfg.PortalListen)
	s.setString("hw-addr", env("HARDWARE_ADDR"), &cfg.HardwareAddr)

	if err := s.setDuration("tick", env("TICK_INTERVAL"), &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("join-timeout", env("JOIN_TIMEOUT"), &cfg.JoinTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-initial", env("RECONNECT_INITIAL"), &cfg.ReconnectInitial); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max", env("RECONNECT_MAX"), &cfg.ReconnectMax); err != nil {
		return err
	}
	if err := s.setDuration("scan-cooldown", env("SCAN_COOLDOWN"), &cfg.ScanCooldown); err != nil {
		return err
	}
	if err := s.setDuration("join-latency", env("JOIN_LATENCY"), &cfg.JoinLatency); err != nil {
		return err
	}
	if err := s.setDuration("link-drop", env("LINK_DROP"), &cfg.LinkDrop); err != nil {
		return err
	}

	if err := s.setIntFromString("dns-port", env("DNS_PORT"), &cfg.DNSPort); err != nil {
		return err
	}

	return nil
}
