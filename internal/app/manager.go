package app

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// Default manager configuration values.
const (
	DefaultJoinTimeout = 30 * time.Second
	DefaultAPAddress   = "192.168.4.1"
	DefaultInboxSize   = 32
)

// ManagerConfig contains configuration for the connectivity manager.
type ManagerConfig struct {
	// JoinTimeout bounds attempts started by credential events and reconnects.
	JoinTimeout time.Duration

	// APPrefix and APSecret configure the provisioning access point.
	// An empty secret hosts an open network.
	APPrefix string
	APSecret string

	// APAddress is the device address on the provisioning network. The DNS
	// responder binds to it and answers every query with it.
	APAddress string

	// ReconnectInitial and ReconnectMax bound the delay before rejoining
	// after the link drops.
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	// InboxSize is the capacity of the notification inbox.
	InboxSize int
}

// DefaultManagerConfig returns a ManagerConfig with sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		JoinTimeout:      DefaultJoinTimeout,
		APPrefix:         domain.DefaultAPPrefix,
		APAddress:        DefaultAPAddress,
		ReconnectInitial: DefaultBackoffInitial,
		ReconnectMax:     DefaultBackoffMax,
		InboxSize:        DefaultInboxSize,
	}
}

func (c *ManagerConfig) setDefaults() {
	d := DefaultManagerConfig()
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = d.JoinTimeout
	}
	if c.APPrefix == "" {
		c.APPrefix = d.APPrefix
	}
	if c.APAddress == "" {
		c.APAddress = d.APAddress
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = d.ReconnectInitial
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = d.ReconnectMax
	}
	if c.InboxSize <= 0 {
		c.InboxSize = d.InboxSize
	}
}

type noticeKind int

const (
	noticeRadio noticeKind = iota
	noticeCredentialsFound
	noticeCredentialsMissing
	noticeConnectRequest
	noticeProvisioningRequest
)

// notice is deposited into the inbox by other goroutines and applied by Tick.
type notice struct {
	kind    noticeKind
	radio   ports.RadioNotification
	timeout time.Duration
}

type recoveryAction int

const (
	recoverNone recoveryAction = iota
	recoverReconnect
	recoverProvisioning
)

// Manager is the connectivity lifecycle manager. Initialize and Tick must be
// called from a single goroutine, which is the only writer of the state.
// Radio notifications, bus events and requests from other goroutines go
// through a bounded inbox drained by Tick. Queries are safe from any
// goroutine.
type Manager struct {
	cfg    ManagerConfig
	radio  ports.Radio
	dns    ports.DNSResponder
	store  ports.CredentialStore
	bus    ports.EventBus
	clock  ports.Clock
	logger ports.Logger

	inbox     chan notice
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the tick goroutine.
	machine       *stateMachine
	address       string
	identifier    string
	apIdentifiers map[string]string
	needAnnounced bool
	reconnect     *backoff
	recoverAt     time.Time
	recoverAction recoveryAction
	unsubscribe   func()
	initialized   bool

	status atomic.Pointer[domain.Status]
	scan   atomic.Pointer[domain.ScanSnapshot]
}

// NewManager creates a manager in Disconnected. Call Initialize before the
// first Tick. A nil clock uses the system clock; a nil logger discards logs.
func NewManager(
	cfg ManagerConfig,
	radio ports.Radio,
	dns ports.DNSResponder,
	store ports.CredentialStore,
	bus ports.EventBus,
	clock ports.Clock,
	logger ports.Logger,
) *Manager {
	cfg.setDefaults()
	if clock == nil {
		clock = ports.SystemClock()
	}
	if logger == nil {
		logger = nopLogger{}
	}

	m := &Manager{
		cfg:           cfg,
		radio:         radio,
		dns:           dns,
		store:         store,
		bus:           bus,
		clock:         clock,
		logger:        logger,
		inbox:         make(chan notice, cfg.InboxSize),
		done:          make(chan struct{}),
		apIdentifiers: make(map[string]string),
		reconnect:     newBackoff(cfg.ReconnectInitial, cfg.ReconnectMax),
	}
	m.machine = newStateMachine(logger, m)
	m.publishStatus()
	return m
}

// Initialize registers for radio notifications and credential events and
// evaluates the stored credentials: it starts a join when credentials exist
// and falls back to provisioning otherwise. Calling it again is a no-op.
func (m *Manager) Initialize() {
	if m.initialized {
		return
	}
	m.initialized = true

	m.radio.SetNotificationHandler(m.onRadioNotification)
	m.unsubscribe = m.bus.Subscribe(domain.IsCredentialEvent, m.onCredentialEvent)

	creds, ok := m.store.Get()
	if !ok {
		m.logger.Info("no stored credentials")
		m.announceCredentialsNeeded()
		m.enterProvisioning("no stored credentials")
		return
	}
	m.startAttempt(creds, m.cfg.JoinTimeout, "stored credentials")
}

// Tick drains pending notifications, checks the join timeout and any
// recovery deadline, and pumps the DNS responder. Timeouts are detected only
// here, so detection is late by at most one tick interval.
func (m *Manager) Tick() {
	m.drain()

	now := m.clock.Now()
	cur := m.machine.current

	if cur.kind == domain.StateConnecting && cur.attempt.Expired(now) {
		m.logger.Warn("join timed out",
			ports.String("attempt", cur.attempt.ID),
			ports.String("ssid", cur.attempt.Identifier),
			ports.Duration("timeout", cur.attempt.Timeout),
		)
		m.failAttempt(fmt.Errorf("attempt %s: %w", cur.attempt.ID, domain.ErrJoinTimeout))
	}

	if m.machine.kind() == domain.StateDisconnected {
		m.recover(now)
	}

	if m.machine.current.session != nil {
		m.dns.Pump()
	}
}

// RequestConnect asks for a join using the stored credentials. A
// non-positive timeout uses the configured join timeout. The request is
// applied on the next Tick.
func (m *Manager) RequestConnect(timeout time.Duration) error {
	if _, ok := m.store.Get(); !ok {
		return domain.ErrNoStoredCredentials
	}
	if timeout <= 0 {
		timeout = m.cfg.JoinTimeout
	}
	return m.tryDeposit(notice{kind: noticeConnectRequest, timeout: timeout})
}

// RequestProvisioningMode asks for a fallback to provisioning, abandoning
// any join or link. The request is applied on the next Tick.
func (m *Manager) RequestProvisioningMode() error {
	return m.tryDeposit(notice{kind: noticeProvisioningRequest})
}

// Shutdown unsubscribes from the bus, abandons any join and tears down the
// access point. The state is left as is; the manager must not be ticked
// afterwards.
func (m *Manager) Shutdown() {
	m.closeOnce.Do(func() { close(m.done) })

	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}

	cur := m.machine.current
	if cur.kind == domain.StateConnecting {
		if err := m.radio.AbortJoin(); err != nil {
			m.logger.Warn("abort join on shutdown failed", ports.Err(err))
		}
	}
	if cur.session != nil {
		m.teardownSession(cur.session)
	}
}

// State returns the current connectivity state.
func (m *Manager) State() domain.ConnectivityState {
	return m.status.Load().State
}

// Status returns an immutable snapshot of the observable state.
func (m *Manager) Status() domain.Status {
	return *m.status.Load()
}

// Address returns the assigned address, or "" unless Connected.
func (m *Manager) Address() string {
	return m.status.Load().Address
}

// APIdentifier returns the access point identifier, or "" unless provisioning.
func (m *Manager) APIdentifier() string {
	return m.status.Load().APIdentifier
}

// SignalQuality returns the link quality in percent, 0 unless Connected.
func (m *Manager) SignalQuality() int {
	if m.State() != domain.StateConnected {
		return 0
	}
	return domain.SignalQuality(m.radio.CurrentSignalLevel())
}

// Scan performs a blocking scan and replaces the last snapshot on success.
// On failure the previous snapshot is kept. Callers must not run two scans
// at once.
func (m *Manager) Scan() (*domain.ScanSnapshot, error) {
	result, err := m.radio.Scan()
	if err != nil {
		m.logger.Warn("scan failed", ports.Err(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrScanFailed, err)
	}

	snap := &domain.ScanSnapshot{
		Networks:    append([]domain.Network(nil), result.Networks...),
		CompletedAt: result.CompletedAt,
	}
	if snap.CompletedAt.IsZero() {
		snap.CompletedAt = m.clock.Now()
	}
	m.scan.Store(snap)

	m.logger.Debug("scan complete", ports.Int("networks", snap.Len()))
	return snap, nil
}

// LastScan returns the last completed scan, or nil if none.
func (m *Manager) LastScan() *domain.ScanSnapshot {
	return m.scan.Load()
}

// onStateChange publishes the lifecycle event for a state kind change and
// refreshes the read model.
func (m *Manager) onStateChange(previous, current connState, reason string) {
	if current.kind == domain.StateDisconnected {
		m.needAnnounced = false
	}
	if previous.kind == domain.StateDisconnected {
		m.recoverAction = recoverNone
	}
	if current.kind != domain.StateConnected {
		m.address = ""
	}

	m.publishStatus()

	event := domain.Event{
		Type:   domain.LifecycleEvent(current.kind),
		State:  current.kind,
		Reason: reason,
		At:     m.clock.Now(),
	}
	switch current.kind {
	case domain.StateConnected:
		event.Address = m.address
	case domain.StateProvisioning:
		event.APIdentifier = current.session.APIdentifier
	}
	m.publish(event)
}

// drain applies every notice queued before the call.
func (m *Manager) drain() {
	for i := 0; i < cap(m.inbox); i++ {
		select {
		case n := <-m.inbox:
			m.apply(n)
		default:
			return
		}
	}
}

func (m *Manager) apply(n notice) {
	switch n.kind {
	case noticeRadio:
		m.applyRadio(n.radio)
	case noticeCredentialsFound:
		m.onCredentialsFound(m.cfg.JoinTimeout, "credentials found")
	case noticeCredentialsMissing:
		m.onCredentialsMissing()
	case noticeConnectRequest:
		m.onCredentialsFound(n.timeout, "connect requested")
	case noticeProvisioningRequest:
		m.onProvisioningRequested()
	}
}

func (m *Manager) applyRadio(n ports.RadioNotification) {
	cur := m.machine.current
	switch n.Kind {
	case ports.JoinSucceeded:
		switch cur.kind {
		case domain.StateConnecting:
			m.completeAttempt(n.Address)
		case domain.StateConnected:
			// Re-raised notification.
		default:
			m.logger.Debug("ignoring stale join success", ports.String("state", cur.kind.String()))
		}

	case ports.JoinFailed:
		if cur.kind != domain.StateConnecting {
			m.logger.Debug("ignoring stale join failure", ports.String("state", cur.kind.String()))
			return
		}
		m.logger.Warn("join rejected",
			ports.String("attempt", cur.attempt.ID),
			ports.String("ssid", cur.attempt.Identifier),
			ports.String("detail", n.Detail),
		)
		m.failAttempt(fmt.Errorf("attempt %s: %w", cur.attempt.ID, domain.ErrJoinRejected))

	case ports.LinkLost:
		if cur.kind != domain.StateConnected {
			m.logger.Debug("ignoring link loss", ports.String("state", cur.kind.String()))
			return
		}
		m.onLinkLost(n.Detail)
	}
}

func (m *Manager) completeAttempt(address string) {
	cur := m.machine.current
	if cur.pendingReconnect() {
		m.teardownSession(cur.session)
	}
	if address == "" {
		address = m.radio.AssignedAddress()
	}
	m.address = address
	m.reconnect.Reset()

	m.logger.Info("joined network",
		ports.String("attempt", cur.attempt.ID),
		ports.String("ssid", cur.attempt.Identifier),
		ports.String("address", address),
	)
	m.transition(connState{kind: domain.StateConnected}, "address acquired")
}

// failAttempt resolves a Connecting attempt that timed out or was rejected.
func (m *Manager) failAttempt(cause error) {
	cur := m.machine.current
	if err := m.radio.AbortJoin(); err != nil {
		m.logger.Warn("abort join failed", ports.Err(err))
	}

	reason := domain.Reason(cause)
	m.transition(connState{kind: domain.StateDisconnected, session: cur.session}, reason)

	if _, ok := m.store.Get(); !ok {
		m.announceCredentialsNeeded()
	}

	if cur.session != nil {
		// The access point from the earlier session is still up: resume it
		// without a new identifier or DNS restart so the user can retry.
		m.transition(connState{kind: domain.StateProvisioning, session: cur.session}, reason)
		return
	}
	m.enterProvisioning(reason)
}

func (m *Manager) onLinkLost(detail string) {
	m.logger.Warn("link lost", ports.String("detail", detail))
	m.transition(connState{kind: domain.StateDisconnected}, domain.Reason(domain.ErrLinkLost))

	if _, ok := m.store.Get(); !ok {
		m.announceCredentialsNeeded()
		m.enterProvisioning("no stored credentials")
		return
	}
	m.armRecovery(recoverReconnect)
}

func (m *Manager) onCredentialsFound(timeout time.Duration, reason string) {
	creds, ok := m.store.Get()
	if !ok {
		m.logger.Warn("connect requested but store is empty", ports.String("reason", reason))
		return
	}

	cur := m.machine.current
	switch cur.kind {
	case domain.StateDisconnected, domain.StateProvisioning:
		m.startAttempt(creds, timeout, reason)

	case domain.StateConnecting:
		// Abandon the in-flight join and retry with the latest credentials.
		if err := m.radio.AbortJoin(); err != nil {
			m.logger.Warn("abort join failed", ports.Err(err))
		}
		m.startAttempt(creds, timeout, reason)

	case domain.StateConnected:
		if creds.Identifier == m.identifier {
			m.logger.Debug("already connected to stored network", ports.String("ssid", creds.Identifier))
			return
		}
		if err := m.radio.AbortJoin(); err != nil {
			m.logger.Warn("leave network failed", ports.Err(err))
		}
		m.transition(connState{kind: domain.StateDisconnected}, "switching network")
		m.startAttempt(creds, timeout, reason)
	}
}

func (m *Manager) onCredentialsMissing() {
	cur := m.machine.current
	switch cur.kind {
	case domain.StateDisconnected:
		m.announceCredentialsNeeded()
		m.enterProvisioning("credentials missing")

	case domain.StateConnecting:
		m.failAttempt(fmt.Errorf("attempt %s: %w", cur.attempt.ID, domain.ErrNoStoredCredentials))

	default:
		m.logger.Info("credentials cleared", ports.String("state", cur.kind.String()))
	}
}

func (m *Manager) onProvisioningRequested() {
	cur := m.machine.current
	const reason = "provisioning requested"

	switch cur.kind {
	case domain.StateProvisioning:
		return

	case domain.StateConnecting:
		// enterProvisioning aborts the join and reuses a live session.
		m.enterProvisioning(reason)

	case domain.StateConnected:
		if err := m.radio.AbortJoin(); err != nil {
			m.logger.Warn("leave network failed", ports.Err(err))
		}
		m.transition(connState{kind: domain.StateDisconnected}, reason)
		m.enterProvisioning(reason)

	case domain.StateDisconnected:
		m.enterProvisioning(reason)
	}
}

// startAttempt issues a join and enters Connecting. When the access point
// is up the attempt is marked as started from provisioning and the access
// point stays up until it resolves.
func (m *Manager) startAttempt(creds domain.Credentials, timeout time.Duration, reason string) {
	session := m.machine.current.session
	attempt := &domain.ConnectionAttempt{
		ID:               uuid.NewString(),
		Identifier:       creds.Identifier,
		Secret:           creds.Secret,
		StartedAt:        m.clock.Now(),
		Timeout:          timeout,
		FromProvisioning: session != nil,
	}

	m.logger.Info("joining network",
		ports.String("attempt", attempt.ID),
		ports.String("ssid", attempt.Identifier),
		ports.Duration("timeout", timeout),
		ports.Bool("from_provisioning", attempt.FromProvisioning),
	)

	m.identifier = creds.Identifier
	m.transition(connState{kind: domain.StateConnecting, attempt: attempt, session: session}, reason)

	if joinErr := m.radio.JoinNetwork(creds.Identifier, creds.Secret); joinErr != nil {
		m.logger.Warn("radio refused join", ports.Err(joinErr))
		m.failAttempt(fmt.Errorf("attempt %s: %w: %w", attempt.ID, domain.ErrJoinRejected, joinErr))
	}
}

// enterProvisioning starts the access point and DNS responder, or resumes an
// access point that is already up.
func (m *Manager) enterProvisioning(reason string) {
	cur := m.machine.current
	if cur.kind == domain.StateProvisioning {
		return
	}

	session := cur.session
	if session == nil {
		id := m.apIdentifier(m.radio.HardwareAddr())
		if err := m.radio.StartAccessPoint(id, m.cfg.APSecret); err != nil {
			m.logger.Error("start access point failed", ports.String("ssid", id), ports.Err(err))
			if cur.kind == domain.StateConnecting {
				if err := m.radio.AbortJoin(); err != nil {
					m.logger.Warn("abort join failed", ports.Err(err))
				}
				m.transition(connState{kind: domain.StateDisconnected}, "access point unavailable")
			}
			m.armRecovery(recoverProvisioning)
			return
		}
		if err := m.dns.Start(m.cfg.APAddress); err != nil {
			// The portal stays reachable by address without captive DNS.
			m.logger.Error("start dns responder failed", ports.String("bind", m.cfg.APAddress), ports.Err(err))
		}
		session = &domain.ProvisioningSession{
			APIdentifier: id,
			Address:      m.cfg.APAddress,
			StartedAt:    m.clock.Now(),
		}
		m.logger.Info("access point started",
			ports.String("ssid", id),
			ports.String("address", m.cfg.APAddress),
		)
	}

	if cur.kind == domain.StateConnecting {
		if err := m.radio.AbortJoin(); err != nil {
			m.logger.Warn("abort join failed", ports.Err(err))
		}
	}
	m.transition(connState{kind: domain.StateProvisioning, session: session}, reason)
}

// teardownSession stops the DNS responder before the access point.
func (m *Manager) teardownSession(session *domain.ProvisioningSession) {
	if err := m.dns.Stop(); err != nil {
		m.logger.Warn("stop dns responder failed", ports.Err(err))
	}
	if err := m.radio.StopAccessPoint(); err != nil {
		m.logger.Warn("stop access point failed", ports.Err(err))
	}
	m.logger.Info("access point stopped", ports.String("ssid", session.APIdentifier))
}

// recover runs while Disconnected: it fires a due recovery action, or falls
// back to provisioning once the store is found empty.
func (m *Manager) recover(now time.Time) {
	if m.recoverAction != recoverNone {
		if now.Before(m.recoverAt) {
			return
		}
		action := m.recoverAction
		m.recoverAction = recoverNone

		switch action {
		case recoverReconnect:
			if creds, ok := m.store.Get(); ok {
				m.startAttempt(creds, m.cfg.JoinTimeout, "reconnect")
				return
			}
			m.announceCredentialsNeeded()
			m.enterProvisioning("no stored credentials")
		case recoverProvisioning:
			m.enterProvisioning("retry access point")
		}
		return
	}

	if m.needAnnounced {
		return
	}
	if _, ok := m.store.Get(); !ok {
		m.announceCredentialsNeeded()
		m.enterProvisioning("no stored credentials")
	}
}

func (m *Manager) armRecovery(action recoveryAction) {
	delay := m.reconnect.Next()
	m.recoverAt = m.clock.Now().Add(delay)
	m.recoverAction = action
	m.logger.Info("recovery scheduled", ports.Duration("delay", delay))
}

func (m *Manager) announceCredentialsNeeded() {
	if m.needAnnounced {
		return
	}
	m.needAnnounced = true
	m.publish(domain.Event{
		Type:   domain.EventCredentialsNeeded,
		State:  m.machine.kind(),
		Reason: domain.Reason(domain.ErrNoStoredCredentials),
		At:     m.clock.Now(),
	})
}

func (m *Manager) transition(next connState, reason string) {
	changed, err := m.machine.TransitionTo(next, reason)
	if err != nil {
		m.logger.Error("rejected transition", ports.Err(err))
		return
	}
	if !changed {
		m.publishStatus()
	}
}

// apIdentifier returns the cached identifier for hw.
func (m *Manager) apIdentifier(hw net.HardwareAddr) string {
	key := hw.String()
	if id, ok := m.apIdentifiers[key]; ok {
		return id
	}
	id := domain.AccessPointIdentifier(m.cfg.APPrefix, hw)
	m.apIdentifiers[key] = id
	return id
}

func (m *Manager) publish(event domain.Event) {
	if err := m.bus.Publish(event); err != nil {
		m.logger.Error("publish event failed",
			ports.String("event", event.Type.String()),
			ports.Err(err),
		)
	}
}

func (m *Manager) publishStatus() {
	cur := m.machine.current
	st := &domain.Status{
		State: cur.kind,
		Since: m.clock.Now(),
	}
	if prev := m.status.Load(); prev != nil && prev.State == cur.kind {
		st.Since = prev.Since
	}
	switch cur.kind {
	case domain.StateConnected:
		st.Address = m.address
		st.Identifier = m.identifier
	case domain.StateConnecting:
		st.Identifier = cur.attempt.Identifier
	case domain.StateProvisioning:
		st.APIdentifier = cur.session.APIdentifier
	}
	m.status.Store(st)
}

// onRadioNotification runs on the radio's context. It blocks until the
// notification is queued so none is lost, unless the manager shut down.
func (m *Manager) onRadioNotification(n ports.RadioNotification) {
	select {
	case m.inbox <- notice{kind: noticeRadio, radio: n}:
	case <-m.done:
	}
}

// onCredentialEvent runs on the bus dispatch goroutine.
func (m *Manager) onCredentialEvent(e domain.Event) {
	kind := noticeCredentialsFound
	if e.Type == domain.EventCredentialsMissing {
		kind = noticeCredentialsMissing
	}
	select {
	case m.inbox <- notice{kind: kind}:
	case <-m.done:
	}
}

func (m *Manager) tryDeposit(n notice) error {
	select {
	case <-m.done:
		return domain.ErrNotRunning
	default:
	}
	select {
	case m.inbox <- n:
		return nil
	default:
		return domain.ErrBusy
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
