package ports

// DNSResponder answers every query with the device's own address while
// provisioning, redirecting clients to the captive portal.
type DNSResponder interface {
	// Start binds the responder to the device's local address.
	Start(bindAddress string) error

	// Stop releases the socket. Stopping a stopped responder is a no-op.
	Stop() error

	// Pump answers queued queries without blocking. It must be invoked on
	// every tick while the responder is active.
	Pump()
}
