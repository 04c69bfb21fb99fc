package wifikeeper

import (
	"net"
	"sync"
	"time"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// fakeRadio joins "home" with password "hunter22" immediately and rejects
// everything else.
type fakeRadio struct {
	mu      sync.Mutex
	handler func(ports.RadioNotification)
	apUp    bool
	apID    string

	// stopDelay slows access point teardown.
	stopDelay time.Duration
}

func (r *fakeRadio) SetNotificationHandler(h func(ports.RadioNotification)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

func (r *fakeRadio) JoinNetwork(identifier, secret string) error {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()

	n := ports.RadioNotification{Kind: ports.JoinFailed, Detail: "auth"}
	if identifier == "home" && secret == "hunter22" {
		n = ports.RadioNotification{Kind: ports.JoinSucceeded, Address: "10.0.0.7"}
	}
	// The manager owner calls JoinNetwork; notifications must not re-enter it.
	go h(n)
	return nil
}

func (r *fakeRadio) AbortJoin() error { return nil }

func (r *fakeRadio) StartAccessPoint(identifier, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apUp, r.apID = true, identifier
	return nil
}

func (r *fakeRadio) StopAccessPoint() error {
	time.Sleep(r.stopDelay)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apUp = false
	return nil
}

func (r *fakeRadio) accessPoint() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apID, r.apUp
}

func (r *fakeRadio) Scan() (domain.ScanSnapshot, error) {
	return domain.ScanSnapshot{Networks: []domain.Network{
		{Identifier: "home", SignalLevel: -50, Security: domain.SecurityWPA2},
	}}, nil
}

func (r *fakeRadio) CurrentSignalLevel() int { return -50 }
func (r *fakeRadio) AssignedAddress() string { return "10.0.0.7" }

func (r *fakeRadio) HardwareAddr() net.HardwareAddr {
	return net.HardwareAddr{0x24, 0x0a, 0xc4, 0xab, 0xcd, 0xef}
}

type fakeDNS struct{}

func (fakeDNS) Start(string) error { return nil }
func (fakeDNS) Stop() error        { return nil }
func (fakeDNS) Pump()              {}

// recordingHandler collects keeper callbacks.
type recordingHandler struct {
	mu     sync.Mutex
	states []State
	events []domain.EventType
}

func (h *recordingHandler) OnStateChange(e StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Current)
}

func (h *recordingHandler) OnConnectivityEvent(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e.Type)
}

func (h *recordingHandler) snapshot() ([]State, []domain.EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.states...), append([]domain.EventType(nil), h.events...)
}
