package domain

import "errors"

// Connectivity errors. None of them is fatal: join failures are folded into
// state transitions and only surface to observers as event reasons.
var (
	// ErrJoinTimeout is recorded when a join attempt outlives its timeout.
	ErrJoinTimeout = errors.New("wifikeeper: join timeout")

	// ErrJoinRejected is recorded when the radio reports a failed join.
	ErrJoinRejected = errors.New("wifikeeper: join rejected")

	// ErrLinkLost is recorded when an established link drops.
	ErrLinkLost = errors.New("wifikeeper: link lost")

	// ErrNoStoredCredentials is returned when a connection is requested
	// but the credential store is empty.
	ErrNoStoredCredentials = errors.New("wifikeeper: no stored credentials")

	// ErrScanFailed wraps radio scan failures. The previous snapshot is kept.
	ErrScanFailed = errors.New("wifikeeper: scan failed")

	// ErrInvalidCredentials is returned when credentials violate length limits.
	ErrInvalidCredentials = errors.New("wifikeeper: invalid credentials")

	// ErrBusy is returned when the manager inbox cannot accept a request.
	ErrBusy = errors.New("wifikeeper: manager busy")

	// ErrBusFull is returned when the event bus queue is full.
	ErrBusFull = errors.New("wifikeeper: event bus full")
)

// Process lifecycle errors returned by the embeddable host.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("wifikeeper: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("wifikeeper: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("wifikeeper: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("wifikeeper: invalid configuration")
)

// Reason returns the short label used in event reasons and logs for one of
// the connectivity errors.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrJoinTimeout):
		return "join timeout"
	case errors.Is(err, ErrJoinRejected):
		return "join rejected"
	case errors.Is(err, ErrLinkLost):
		return "link lost"
	case errors.Is(err, ErrNoStoredCredentials):
		return "no stored credentials"
	case errors.Is(err, ErrScanFailed):
		return "scan failed"
	default:
		return err.Error()
	}
}
