package app

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

var testHW = net.HardwareAddr{0x24, 0x0a, 0xc4, 0x12, 0x34, 0x56}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRadio struct {
	mu      sync.Mutex
	handler func(ports.RadioNotification)
	calls   []string

	joinErr    error
	apErr      error
	scanResult domain.ScanSnapshot
	scanErr    error
	signal     int
	address    string
}

func (r *fakeRadio) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakeRadio) SetNotificationHandler(h func(ports.RadioNotification)) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

func (r *fakeRadio) JoinNetwork(id, _ string) error {
	r.record("join:" + id)
	return r.joinErr
}

func (r *fakeRadio) AbortJoin() error {
	r.record("abort")
	return nil
}

func (r *fakeRadio) StartAccessPoint(id, _ string) error {
	r.record("ap-start:" + id)
	return r.apErr
}

func (r *fakeRadio) StopAccessPoint() error {
	r.record("ap-stop")
	return nil
}

func (r *fakeRadio) Scan() (domain.ScanSnapshot, error) {
	return r.scanResult, r.scanErr
}

func (r *fakeRadio) CurrentSignalLevel() int        { return r.signal }
func (r *fakeRadio) AssignedAddress() string        { return r.address }
func (r *fakeRadio) HardwareAddr() net.HardwareAddr { return testHW }

func (r *fakeRadio) notify(n ports.RadioNotification) {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	h(n)
}

func (r *fakeRadio) count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *fakeRadio) countPrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type fakeDNS struct {
	starts, stops, pumps int
	bind                 string
	startErr             error

	// log is shared with the bus so ordering across collaborators can be checked.
	log *[]string
}

func (d *fakeDNS) Start(bind string) error {
	d.starts++
	d.bind = bind
	return d.startErr
}

func (d *fakeDNS) Stop() error {
	d.stops++
	if d.log != nil {
		*d.log = append(*d.log, "dns-stop")
	}
	return nil
}

func (d *fakeDNS) Pump() { d.pumps++ }

type fakeStore struct {
	mu    sync.Mutex
	creds *domain.Credentials
}

func (s *fakeStore) Get() (domain.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return domain.Credentials{}, false
	}
	return *s.creds, true
}

func (s *fakeStore) set(c *domain.Credentials) {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
}

type subscription struct {
	predicate func(domain.Event) bool
	handler   func(domain.Event)
}

// syncBus delivers events synchronously and records everything published.
type syncBus struct {
	events []domain.Event
	subs   map[int]subscription
	next   int
	err    error
	log    *[]string
}

func newSyncBus() *syncBus {
	return &syncBus{subs: make(map[int]subscription)}
}

func (b *syncBus) Publish(e domain.Event) error {
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, e)
	if b.log != nil {
		*b.log = append(*b.log, "event:"+e.Type.String())
	}
	for _, s := range b.subs {
		if s.predicate(e) {
			s.handler(e)
		}
	}
	return nil
}

func (b *syncBus) Subscribe(pred func(domain.Event) bool, h func(domain.Event)) func() {
	id := b.next
	b.next++
	b.subs[id] = subscription{predicate: pred, handler: h}
	return func() { delete(b.subs, id) }
}

func (b *syncBus) count(t domain.EventType) int {
	n := 0
	for _, e := range b.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (b *syncBus) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

func (b *syncBus) last(t domain.EventType) (domain.Event, bool) {
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Type == t {
			return b.events[i], true
		}
	}
	return domain.Event{}, false
}

var errRadio = errors.New("radio fault")

type harness struct {
	m     *Manager
	radio *fakeRadio
	dns   *fakeDNS
	store *fakeStore
	bus   *syncBus
	clock *fakeClock
	log   []string
}

func newHarness(creds *domain.Credentials) *harness {
	h := &harness{
		radio: &fakeRadio{signal: -60, address: "10.0.0.42"},
		store: &fakeStore{creds: creds},
		bus:   newSyncBus(),
		clock: newFakeClock(),
	}
	h.dns = &fakeDNS{log: &h.log}
	h.bus.log = &h.log

	cfg := DefaultManagerConfig()
	cfg.ReconnectInitial = time.Second
	cfg.ReconnectMax = 4 * time.Second
	h.m = NewManager(cfg, h.radio, h.dns, h.store, h.bus, h.clock, nil)
	h.m.reconnect.rand = func() float64 { return 0.5 }
	return h
}

func homeCreds() *domain.Credentials {
	return &domain.Credentials{Identifier: "home", Secret: "hunter22"}
}

// credentialsSaved mimics the store owner: update the store, then publish.
func (h *harness) credentialsSaved(c *domain.Credentials) {
	h.store.set(c)
	_ = h.bus.Publish(domain.Event{Type: domain.EventCredentialsFound})
}

func (h *harness) credentialsCleared() {
	h.store.set(nil)
	_ = h.bus.Publish(domain.Event{Type: domain.EventCredentialsMissing})
}

func (h *harness) joinSucceeded(addr string) {
	h.radio.notify(ports.RadioNotification{Kind: ports.JoinSucceeded, Address: addr})
}
