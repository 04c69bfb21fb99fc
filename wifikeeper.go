// Package wifikeeper keeps a device on its wireless network and falls back
// to a provisioning access point when it cannot join.
//
// Example usage:
//
//	cfg := wifikeeper.DefaultConfig()
//	cfg.StateDir = "/var/lib/wifikeeper"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := wifikeeper.Run(context.Background(), cfg, wifikeeper.Logger(cfg.LogLevel)); err != nil {
//	    log.Fatal(err)
//	}
package wifikeeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
	"github.com/bft-labs/wifikeeper/internal/cliconfig"
	keeper "github.com/bft-labs/wifikeeper/pkg/wifikeeper"
)

// Config holds the configuration for the daemon.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// ErrCrashed is returned by Run when a keeper worker failed.
var ErrCrashed = errors.New("wifikeeper: keeper crashed")

const crashPoll = 100 * time.Millisecond

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Logger returns the console logger used by the daemon.
func Logger(level string) zerolog.Logger {
	return cliconfig.Logger(level)
}

// HostConfig converts a validated Config to the embeddable keeper config.
func HostConfig(cfg Config) keeper.Config {
	return keeper.Config{
		StateDir:         cfg.StateDir,
		CredentialsFile:  cfg.CredentialsFile,
		TickInterval:     cfg.TickInterval,
		JoinTimeout:      cfg.JoinTimeout,
		ReconnectInitial: cfg.ReconnectInitial,
		ReconnectMax:     cfg.ReconnectMax,
		APPrefix:         cfg.APPrefix,
		APSecret:         cfg.APSecret,
		APAddress:        cfg.APAddress,
		PortalListen:     cfg.PortalListen,
		ScanCooldown:     cfg.ScanCooldown,
		DNSPort:          cfg.DNSPort,
		HardwareAddr:     cfg.HardwareAddress(),
		JoinLatency:      cfg.JoinLatency,
		LinkDrop:         cfg.LinkDrop,
		Networks:         cfg.Networks,
	}
}

// Run starts a keeper and blocks until ctx is cancelled or the keeper
// crashes. Connectivity events are logged at info level.
func Run(ctx context.Context, cfg Config, log zerolog.Logger, opts ...keeper.Option) error {
	opts = append([]keeper.Option{
		keeper.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
		keeper.WithEventHandler(eventLogger{log: log}),
	}, opts...)

	k, err := keeper.New(HostConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create keeper: %w", err)
	}
	if err := k.Start(ctx); err != nil {
		return fmt.Errorf("start keeper: %w", err)
	}

	ticker := time.NewTicker(crashPoll)
	defer ticker.Stop()

	crashed := false
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
			if k.Status() == keeper.StateCrashed {
				crashed = true
				break wait
			}
		}
	}

	if crashed {
		// The tick loop tears down the access point on its way out.
		if err := k.Wait(); err != nil {
			return fmt.Errorf("%w: %w", ErrCrashed, err)
		}
		return ErrCrashed
	}
	if err := k.Stop(); err != nil {
		return fmt.Errorf("stop keeper: %w", err)
	}
	return nil
}

// eventLogger logs connectivity events.
type eventLogger struct {
	keeper.BaseEventHandler
	log zerolog.Logger
}

func (l eventLogger) OnConnectivityEvent(e keeper.Event) {
	ev := l.log.Info().
		Str("event", e.Type.String()).
		Str("state", e.State.String())
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	if e.Address != "" {
		ev = ev.Str("address", e.Address)
	}
	if e.APIdentifier != "" {
		ev = ev.Str("ap", e.APIdentifier)
	}
	ev.Msg("connectivity")
}
