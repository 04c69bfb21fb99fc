package wifikeeper

// StateChangeEvent is emitted when the Keeper lifecycle state changes.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives Keeper notifications. Callbacks must not call
// Start or Stop.
type EventHandler interface {
	// OnStateChange is called on every lifecycle transition.
	OnStateChange(event StateChangeEvent)

	// OnConnectivityEvent is called for every event on the bus, including
	// credential events. It runs on the dispatch goroutine.
	OnConnectivityEvent(event Event)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override only the callbacks you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnConnectivityEvent(Event)      {}
