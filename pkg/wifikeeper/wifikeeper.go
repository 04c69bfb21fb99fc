package wifikeeper

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/wifikeeper/internal/adapters/credfile"
	"github.com/bft-labs/wifikeeper/internal/adapters/dns"
	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
	"github.com/bft-labs/wifikeeper/internal/adapters/radio"
	"github.com/bft-labs/wifikeeper/internal/app"
	"github.com/bft-labs/wifikeeper/internal/bus"
	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/portal"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// ScanSnapshot is the result of one completed scan.
type ScanSnapshot = domain.ScanSnapshot

// Keeper keeps a device connected, falling back to provisioning when it
// cannot. Use New() to create an instance, then Start() to run it.
type Keeper struct {
	config    Config
	opts      options
	logger    ports.Logger
	radio     ports.Radio
	dns       ports.DNSResponder
	lifecycle *lifecycle

	mu  sync.RWMutex
	run *components
}

// components are rebuilt on every Start. The radio and DNS responder are
// shared across runs.
type components struct {
	bus     *bus.Bus
	store   *credfile.Store
	watcher *credfile.Watcher
	manager *app.Manager
	portal  *portal.Server
}

// New creates a Keeper in StateStopped. Returns an error wrapping
// domain.ErrInvalidConfig if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Keeper, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	k := &Keeper{
		config: cfg,
		opts:   o,
		logger: logger,
		radio:  o.radio,
		dns:    o.dns,
	}
	if k.radio == nil {
		k.radio = radio.NewSim(radio.Config{
			HardwareAddr:  cfg.HardwareAddr,
			Networks:      cfg.Networks,
			JoinLatency:   cfg.JoinLatency,
			LinkDropAfter: cfg.LinkDrop,
		}, logger)
	}
	if k.dns == nil {
		dnsCfg := dns.DefaultConfig()
		dnsCfg.Port = cfg.DNSPort
		k.dns = dns.NewResponder(dnsCfg, logger)
	}
	k.lifecycle = newLifecycle(logger, k.onStateChange)
	return k, nil
}

// Start runs the keeper in the background and returns once its workers
// are launched. The provided context bounds the lifetime of the run.
func (k *Keeper) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	// Workers of a crashed run may still be winding down.
	if err := k.lifecycle.Wait(ShutdownTimeout); err != nil {
		return err
	}

	if err := k.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	c, err := k.assemble()
	if err != nil {
		k.logger.Error("keeper setup failed", ports.Err(err))
		_ = k.lifecycle.TransitionTo(StateCrashed, err.Error())
		return err
	}
	k.run = c

	runCtx := k.lifecycle.begin(ctx)

	k.lifecycle.Go(runCtx, "event bus", c.bus.Run)
	k.lifecycle.Go(runCtx, "credential watcher", c.watcher.Run)
	k.lifecycle.Go(runCtx, "portal", c.portal.Serve)
	k.lifecycle.Go(runCtx, "tick loop", func(ctx context.Context) error {
		if err := k.lifecycle.TransitionTo(StateRunning, "tick loop starting"); err != nil {
			// Stop or a failed worker got there first.
			k.logger.Warn("tick loop not started", ports.Err(err))
			return nil
		}
		k.tickLoop(ctx, c.manager)
		return nil
	})

	return nil
}

// Stop shuts the keeper down: the access point and DNS responder are torn
// down and the portal drains. Returns domain.ErrShutdownTimeout if workers
// outlive ShutdownTimeout.
func (k *Keeper) Stop() error {
	k.mu.Lock()

	if !k.lifecycle.CanStop() {
		k.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := k.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		k.mu.Unlock()
		return err
	}
	k.lifecycle.Cancel()
	k.mu.Unlock()

	err := k.lifecycle.Wait(ShutdownTimeout)
	if err != nil {
		_ = k.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
	} else {
		_ = k.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	}
	return err
}

// Wait blocks until the workers of the last run have exited, for at most
// ShutdownTimeout. After a crash it returns once the access point and DNS
// responder are torn down.
func (k *Keeper) Wait() error {
	return k.lifecycle.Wait(ShutdownTimeout)
}

// Status returns the current lifecycle state.
func (k *Keeper) Status() State {
	return k.lifecycle.State()
}

// Connectivity returns the connectivity status of the current or last run.
func (k *Keeper) Connectivity() ConnectivityStatus {
	if m := k.manager(); m != nil {
		return m.Status()
	}
	return ConnectivityStatus{State: domain.StateDisconnected}
}

// SignalQuality returns the link quality in percent, 0 unless connected.
func (k *Keeper) SignalQuality() int {
	if m := k.manager(); m != nil {
		return m.SignalQuality()
	}
	return 0
}

// Scan runs a network scan through the manager.
func (k *Keeper) Scan() (*ScanSnapshot, error) {
	m := k.manager()
	if m == nil {
		return nil, domain.ErrNotRunning
	}
	return m.Scan()
}

// RequestConnect asks the manager to join the stored network.
func (k *Keeper) RequestConnect() error {
	m := k.manager()
	if m == nil {
		return domain.ErrNotRunning
	}
	return m.RequestConnect(k.config.JoinTimeout)
}

// RequestProvisioningMode asks the manager to bring up the access point.
func (k *Keeper) RequestProvisioningMode() error {
	m := k.manager()
	if m == nil {
		return domain.ErrNotRunning
	}
	return m.RequestProvisioningMode()
}

// SaveCredentials stores creds. While running the manager joins the new
// network; otherwise they are used on the next Start.
func (k *Keeper) SaveCredentials(creds Credentials) error {
	return k.credentialWriter().Save(creds)
}

// ClearCredentials removes the stored credentials.
func (k *Keeper) ClearCredentials() error {
	return k.credentialWriter().Clear()
}

// Handler returns the captive portal handler of the current run, or nil
// before the first Start.
func (k *Keeper) Handler() http.Handler {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.run == nil {
		return nil
	}
	return k.run.portal.Handler()
}

func (k *Keeper) assemble() (*components, error) {
	path := k.config.CredentialsFile
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	b := bus.New(bus.DefaultCapacity, k.logger)
	store := credfile.NewStore(path, b, k.logger)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if h := k.opts.eventHandler; h != nil {
		b.Subscribe(nil, h.OnConnectivityEvent)
	}

	manager := app.NewManager(k.config.managerConfig(), k.radio, k.dns, store, b, k.opts.clock, k.logger)
	srv := portal.NewServer(portal.Config{
		Listen:       k.config.PortalListen,
		APAddress:    k.config.APAddress,
		ScanCooldown: k.config.ScanCooldown,
	}, manager, store, k.opts.clock, k.logger)

	return &components{
		bus:     b,
		store:   store,
		watcher: credfile.NewWatcher(store, credfile.DefaultDebounce, k.logger),
		manager: manager,
		portal:  srv,
	}, nil
}

// tickLoop is the manager's owner goroutine.
func (k *Keeper) tickLoop(ctx context.Context, m *app.Manager) {
	m.Initialize()
	defer m.Shutdown()

	ticker := time.NewTicker(k.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

func (k *Keeper) manager() *app.Manager {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.run == nil {
		return nil
	}
	return k.run.manager
}

// credentialWriter returns the running store, or a detached one that
// publishes nothing when the keeper is not running.
func (k *Keeper) credentialWriter() ports.CredentialWriter {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.run != nil && k.lifecycle.State() == StateRunning {
		return k.run.store
	}
	return credfile.NewStore(k.config.CredentialsFile, nil, k.logger)
}

func (k *Keeper) onStateChange(previous, current State, reason string) {
	if k.opts.eventHandler == nil {
		return
	}
	k.opts.eventHandler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
