package wifikeeper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bft-labs/wifikeeper/internal/domain"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		StateDir:     t.TempDir(),
		TickInterval: 5 * time.Millisecond,
		JoinTimeout:  time.Second,
		PortalListen: "127.0.0.1:0",
	}
}

func newTestKeeper(t *testing.T, cfg Config, opts ...Option) (*Keeper, *fakeRadio) {
	t.Helper()
	r := &fakeRadio{}
	opts = append([]Option{WithRadio(r), WithDNSResponder(fakeDNS{})}, opts...)
	k, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k, r
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no state dir", cfg: Config{}},
		{name: "ipv6 ap address", cfg: Config{StateDir: "/tmp/x", APAddress: "fe80::1"}},
		{name: "reconnect max below initial", cfg: Config{
			StateDir:         "/tmp/x",
			ReconnectInitial: time.Minute,
			ReconnectMax:     time.Second,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{StateDir: "/var/lib/wifikeeper"}
	cfg.SetDefaults()

	if cfg.CredentialsFile != "/var/lib/wifikeeper/credentials.toml" {
		t.Errorf("CredentialsFile = %v", cfg.CredentialsFile)
	}
	if cfg.TickInterval != DefaultTickInterval {
		t.Errorf("TickInterval = %v, want %v", cfg.TickInterval, DefaultTickInterval)
	}
	if cfg.APAddress != "192.168.4.1" {
		t.Errorf("APAddress = %v, want 192.168.4.1", cfg.APAddress)
	}
	if cfg.DNSPort != 53 {
		t.Errorf("DNSPort = %v, want 53", cfg.DNSPort)
	}
}

func TestKeeper_StartWithoutCredentialsProvisions(t *testing.T) {
	k, r := newTestKeeper(t, testConfig(t))

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := k.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	waitFor(t, "provisioning", func() bool {
		return k.Connectivity().State == domain.StateProvisioning
	})
	if id, up := r.accessPoint(); !up || id != "wifikeeper-abcdef" {
		t.Errorf("access point = %q up=%v, want wifikeeper-abcdef up", id, up)
	}
	if got := k.Connectivity().APIdentifier; got != "wifikeeper-abcdef" {
		t.Errorf("APIdentifier = %q", got)
	}

	if err := k.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if k.Status() != StateStopped {
		t.Errorf("Status() = %v, want Stopped", k.Status())
	}
	if _, up := r.accessPoint(); up {
		t.Error("access point still up after Stop()")
	}
	if err := k.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("second Stop() error = %v, want ErrNotRunning", err)
	}
}

func TestKeeper_SavedCredentialsJoin(t *testing.T) {
	h := &recordingHandler{}
	k, r := newTestKeeper(t, testConfig(t), WithEventHandler(h))

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = k.Stop() }()

	waitFor(t, "provisioning", func() bool {
		return k.Connectivity().State == domain.StateProvisioning
	})

	if err := k.SaveCredentials(Credentials{Identifier: "home", Secret: "hunter22"}); err != nil {
		t.Fatalf("SaveCredentials() error = %v", err)
	}
	waitFor(t, "connected", func() bool {
		return k.Connectivity().State == domain.StateConnected
	})

	status := k.Connectivity()
	if status.Address != "10.0.0.7" {
		t.Errorf("Address = %q, want 10.0.0.7", status.Address)
	}
	if _, up := r.accessPoint(); up {
		t.Error("access point still up after connecting")
	}
	if q := k.SignalQuality(); q != 100 {
		t.Errorf("SignalQuality() = %d, want 100", q)
	}

	_, events := h.snapshot()
	want := []domain.EventType{
		domain.EventCredentialsNeeded,
		domain.EventProvisioningStarted,
		domain.EventCredentialsFound,
		domain.EventConnectingStarted,
		domain.EventConnected,
	}
	for _, w := range want {
		found := false
		for _, e := range events {
			if e == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("event %v not delivered; got %v", w, events)
		}
	}
}

func TestKeeper_RestartUsesStoredCredentials(t *testing.T) {
	cfg := testConfig(t)
	k, _ := newTestKeeper(t, cfg)

	// Saved while stopped: nothing is running to publish to.
	if err := k.SaveCredentials(Credentials{Identifier: "home", Secret: "hunter22"}); err != nil {
		t.Fatalf("SaveCredentials() error = %v", err)
	}

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "connected", func() bool {
		return k.Connectivity().State == domain.StateConnected
	})
	if err := k.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if err := k.ClearCredentials(); err != nil {
		t.Fatalf("ClearCredentials() error = %v", err)
	}
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	defer func() { _ = k.Stop() }()
	waitFor(t, "provisioning", func() bool {
		return k.Connectivity().State == domain.StateProvisioning
	})
}

func TestKeeper_LifecycleEvents(t *testing.T) {
	h := &recordingHandler{}
	k, _ := newTestKeeper(t, testConfig(t), WithEventHandler(h))

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "running", func() bool {
		states, _ := h.snapshot()
		return len(states) == 2
	})
	if err := k.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	states, _ := h.snapshot()
	want := []State{StateStarting, StateRunning, StateStopping, StateStopped}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestKeeper_RequestsWhenStopped(t *testing.T) {
	k, _ := newTestKeeper(t, testConfig(t))

	if err := k.RequestConnect(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("RequestConnect() error = %v, want ErrNotRunning", err)
	}
	if err := k.RequestProvisioningMode(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("RequestProvisioningMode() error = %v, want ErrNotRunning", err)
	}
	if _, err := k.Scan(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Scan() error = %v, want ErrNotRunning", err)
	}
	if k.Handler() != nil {
		t.Error("Handler() should be nil before Start()")
	}
	if got := k.Connectivity().State; got != domain.StateDisconnected {
		t.Errorf("Connectivity().State = %v, want Disconnected", got)
	}
}

func TestKeeper_PortalHandler(t *testing.T) {
	k, _ := newTestKeeper(t, testConfig(t))
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = k.Stop() }()

	waitFor(t, "provisioning", func() bool {
		return k.Connectivity().State == domain.StateProvisioning
	})

	rec := httptest.NewRecorder()
	k.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /status = %d, want 200", rec.Code)
	}
}

func TestKeeper_ContextCancelStopsWorkers(t *testing.T) {
	k, r := newTestKeeper(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())

	if err := k.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "access point", func() bool {
		_, up := r.accessPoint()
		return up
	})

	cancel()
	waitFor(t, "access point down", func() bool {
		_, up := r.accessPoint()
		return !up
	})
	if err := k.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestKeeper_WaitAfterCrashTearsDownAccessPoint(t *testing.T) {
	k, r := newTestKeeper(t, testConfig(t))
	r.stopDelay = 100 * time.Millisecond

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "access point", func() bool {
		_, up := r.accessPoint()
		return up
	})

	k.lifecycle.Go(context.Background(), "credential watcher", func(context.Context) error {
		return errors.New("watch: no such directory")
	})
	waitFor(t, "crash", func() bool { return k.Status() == StateCrashed })

	if err := k.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if _, up := r.accessPoint(); up {
		t.Error("access point still up after Wait")
	}
	if err := k.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Stop() after crash error = %v, want ErrNotRunning", err)
	}
}

func TestKeeper_SimulatedLinkDropReconnects(t *testing.T) {
	cfg := testConfig(t)
	cfg.HardwareAddr = net.HardwareAddr{0x24, 0x0a, 0xc4, 0x12, 0x34, 0x56}
	cfg.Networks = []Network{{SSID: "home", Password: "hunter22", RSSI: -50}}
	cfg.JoinLatency = 10 * time.Millisecond
	cfg.LinkDrop = 50 * time.Millisecond
	cfg.ReconnectInitial = 20 * time.Millisecond
	cfg.ReconnectMax = 40 * time.Millisecond

	h := &recordingHandler{}
	k, err := New(cfg, WithDNSResponder(fakeDNS{}), WithEventHandler(h))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := k.SaveCredentials(Credentials{Identifier: "home", Secret: "hunter22"}); err != nil {
		t.Fatalf("SaveCredentials() error = %v", err)
	}
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = k.Stop() }()

	count := func(want domain.EventType) int {
		_, events := h.snapshot()
		n := 0
		for _, e := range events {
			if e == want {
				n++
			}
		}
		return n
	}
	waitFor(t, "reconnect after link loss", func() bool {
		return count(domain.EventConnected) >= 2
	})

	if n := count(domain.EventDisconnected); n < 1 {
		t.Errorf("Disconnected published %d times, want at least 1", n)
	}
	if n := count(domain.EventProvisioningStarted); n != 0 {
		t.Errorf("ProvisioningStarted published %d times with credentials stored", n)
	}
}
