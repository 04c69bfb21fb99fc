package wifikeeper

import (
	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// Re-exported collaborator types so callers outside this module can supply
// their own implementations.
type (
	// Radio drives the wireless hardware.
	Radio = ports.Radio

	// RadioNotification is delivered by a Radio to its notification handler.
	RadioNotification = ports.RadioNotification

	// DNSResponder answers DNS queries while the access point is up.
	DNSResponder = ports.DNSResponder

	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField represents a structured log field.
	LogField = ports.Field

	// Clock supplies the current time to the manager and portal.
	Clock = ports.Clock

	// Event is a connectivity event.
	Event = domain.Event

	// ConnectivityStatus is a snapshot of the connectivity state.
	ConnectivityStatus = domain.Status

	// Credentials identify the network to join.
	Credentials = domain.Credentials
)

// Option configures optional behavior of a Keeper.
type Option func(*options)

type options struct {
	logger       ports.Logger
	radio        ports.Radio
	dns          ports.DNSResponder
	clock        ports.Clock
	eventHandler EventHandler
}

// WithLogger sets a custom logger. If not provided, a no-op logger is used.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRadio sets the radio driver. If not provided, a simulated radio
// configured from Config is used.
func WithRadio(radio Radio) Option {
	return func(o *options) {
		o.radio = radio
	}
}

// WithDNSResponder replaces the UDP captive DNS responder.
func WithDNSResponder(dns DNSResponder) Option {
	return func(o *options) {
		o.dns = dns
	}
}

// WithClock sets the clock used for timeouts and the portal scan cooldown.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithEventHandler sets a handler for keeper and connectivity events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}
