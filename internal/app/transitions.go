package app

import (
	"errors"
	"fmt"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

var errInvalidTransition = errors.New("invalid transition")

// connState is the tagged state value. The attempt is set only while
// Connecting; the session is set while the provisioning access point is up,
// which can outlive ProvisioningAP itself while a join from provisioning is
// in flight.
type connState struct {
	kind    domain.ConnectivityState
	attempt *domain.ConnectionAttempt
	session *domain.ProvisioningSession
}

// pendingReconnect reports whether a join started from provisioning is in flight.
func (c connState) pendingReconnect() bool {
	return c.attempt != nil && c.attempt.FromProvisioning
}

func (c connState) check() error {
	if !c.kind.Valid() {
		return fmt.Errorf("%w: undefined state %d", errInvalidTransition, c.kind)
	}
	if (c.kind == domain.StateConnecting) != (c.attempt != nil) {
		return fmt.Errorf("%w: attempt must be set exactly while Connecting", errInvalidTransition)
	}
	if c.kind == domain.StateProvisioning && c.session == nil {
		return fmt.Errorf("%w: provisioning without a session", errInvalidTransition)
	}
	if c.kind == domain.StateConnected && c.session != nil {
		return fmt.Errorf("%w: connected with the access point up", errInvalidTransition)
	}
	return nil
}

// transitionTable lists the states reachable from each state.
var transitionTable = map[domain.ConnectivityState][]domain.ConnectivityState{
	domain.StateDisconnected: {domain.StateConnecting, domain.StateProvisioning},
	domain.StateConnecting:   {domain.StateConnected, domain.StateDisconnected, domain.StateProvisioning},
	domain.StateConnected:    {domain.StateDisconnected},
	domain.StateProvisioning: {domain.StateConnecting},
}

func allowed(from, to domain.ConnectivityState) bool {
	for _, s := range transitionTable[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateEmitter is called after the state kind changes.
type stateEmitter interface {
	onStateChange(previous, current connState, reason string)
}

// stateMachine holds the single connState. It is owned by the manager's tick
// goroutine and is not safe for concurrent use.
type stateMachine struct {
	current connState
	logger  ports.Logger
	emitter stateEmitter
}

func newStateMachine(logger ports.Logger, emitter stateEmitter) *stateMachine {
	return &stateMachine{
		current: connState{kind: domain.StateDisconnected},
		logger:  logger,
		emitter: emitter,
	}
}

func (m *stateMachine) kind() domain.ConnectivityState {
	return m.current.kind
}

// TransitionTo replaces the current state value. A request for the state
// kind already held only updates the payload and emits nothing. It returns
// whether the kind changed.
func (m *stateMachine) TransitionTo(next connState, reason string) (bool, error) {
	if err := next.check(); err != nil {
		return false, err
	}

	previous := m.current
	if next.kind == previous.kind {
		m.current = next
		return false, nil
	}
	if !allowed(previous.kind, next.kind) {
		return false, fmt.Errorf("%w: %s -> %s", errInvalidTransition, previous.kind, next.kind)
	}

	m.current = next

	m.logger.Info("state transition",
		ports.String("from", previous.kind.String()),
		ports.String("to", next.kind.String()),
		ports.String("reason", reason),
	)

	if m.emitter != nil {
		m.emitter.onStateChange(previous, next, reason)
	}
	return true, nil
}
