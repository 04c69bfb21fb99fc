package ports

import (
	"net"

	"github.com/bft-labs/wifikeeper/internal/domain"
)

// NotificationKind identifies an asynchronous radio notification.
type NotificationKind int

const (
	// JoinSucceeded is raised once the station link has an address.
	JoinSucceeded NotificationKind = iota
	// JoinFailed is raised when the radio gives up on a join.
	JoinFailed
	// LinkLost is raised when the station link drops.
	LinkLost
)

// String returns a human-readable representation of the kind.
func (k NotificationKind) String() string {
	switch k {
	case JoinSucceeded:
		return "JoinSucceeded"
	case JoinFailed:
		return "JoinFailed"
	case LinkLost:
		return "LinkLost"
	default:
		return "Unknown"
	}
}

// RadioNotification is delivered from the radio's own execution context.
type RadioNotification struct {
	Kind NotificationKind

	// Address is the assigned address for JoinSucceeded.
	Address string

	// Detail is a driver-specific explanation, if any.
	Detail string
}

// Radio controls the physical network interface.
//
// JoinNetwork, StartAccessPoint and StopAccessPoint return once the
// instruction is issued; completion is reported through the notification
// handler. Scan blocks until the radio completes. Query methods may be called
// from any goroutine.
type Radio interface {
	// SetNotificationHandler registers the single receiver of radio
	// notifications. The handler is called from the radio's context.
	SetNotificationHandler(handler func(RadioNotification))

	// JoinNetwork starts joining the given network.
	JoinNetwork(identifier, secret string) error

	// AbortJoin abandons any in-flight join and drops the station link.
	// After it returns the radio must not report success for the abandoned join.
	AbortJoin() error

	// StartAccessPoint hosts a local network. An empty secret means open.
	StartAccessPoint(identifier, secret string) error

	// StopAccessPoint tears down the local network.
	StopAccessPoint() error

	// Scan performs a blocking scan.
	Scan() (domain.ScanSnapshot, error)

	// CurrentSignalLevel returns the raw signal level of the station link.
	CurrentSignalLevel() int

	// AssignedAddress returns the station address, or "" when none.
	AssignedAddress() string

	// HardwareAddr returns the radio's hardware address.
	HardwareAddr() net.HardwareAddr
}
