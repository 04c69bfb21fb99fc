package wifikeeper

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// State is the lifecycle state of a Keeper. It is unrelated to the
// connectivity state reported by [Keeper.Connectivity].
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// idle reports whether no run is in progress.
func (s State) idle() bool {
	return s == StateStopped || s == StateCrashed
}

// moves lists the lifecycle states reachable from each state. A worker
// failure crashes the keeper from any active state.
var moves = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

func canMove(from, to State) bool {
	for _, s := range moves[from] {
		if s == to {
			return true
		}
	}
	return false
}

// lifecycle holds the keeper state and the workers of the current run:
// the event bus, the credential watcher, the portal and the tick loop.
type lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	workers sync.WaitGroup
	logger  ports.Logger
	onState func(previous, current State, reason string)
}

func newLifecycle(logger ports.Logger, onState func(previous, current State, reason string)) *lifecycle {
	return &lifecycle{
		state:   StateStopped,
		logger:  logger,
		onState: onState,
	}
}

func (l *lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next if the move is listed in moves. An illegal
// move out of an idle state returns domain.ErrNotRunning, any other
// domain.ErrAlreadyRunning.
func (l *lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	previous := l.state
	if !canMove(previous, next) {
		l.mu.Unlock()
		if previous.idle() {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.state = next
	l.mu.Unlock()

	if l.onState != nil {
		l.onState(previous, next, reason)
	}

	l.logger.Info("keeper state transition",
		ports.String("from", previous.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

func (l *lifecycle) CanStart() bool {
	return l.State().idle()
}

func (l *lifecycle) CanStop() bool {
	s := l.State()
	return s == StateRunning || s == StateStarting
}

// begin derives the run context from parent. Cancel ends the run.
func (l *lifecycle) begin(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
	return ctx
}

func (l *lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs the named worker until it returns. A worker that fails while
// the run is still live crashes the keeper and cancels the other workers.
func (l *lifecycle) Go(ctx context.Context, name string, run func(context.Context) error) {
	l.workers.Add(1)
	go func() {
		defer l.workers.Done()

		l.logger.Debug("worker started", ports.String("worker", name))
		err := run(ctx)
		if err == nil || ctx.Err() != nil {
			l.logger.Debug("worker exited", ports.String("worker", name))
			return
		}

		l.logger.Error("worker failed", ports.String("worker", name), ports.Err(err))
		_ = l.TransitionTo(StateCrashed, name+": "+err.Error())
		l.Cancel()
	}()
}

// Wait blocks until every worker has exited, returning
// domain.ErrShutdownTimeout if they outlive timeout.
func (l *lifecycle) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("workers still running after timeout",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
