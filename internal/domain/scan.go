package domain

import "time"

// Security describes the authentication a scanned network advertises.
type Security string

const (
	SecurityOpen    Security = "open"
	SecurityWEP     Security = "wep"
	SecurityWPA     Security = "wpa"
	SecurityWPA2    Security = "wpa2"
	SecurityWPA3    Security = "wpa3"
	SecurityUnknown Security = "unknown"
)

// Network is one entry of a scan.
type Network struct {
	Identifier  string   `json:"ssid"`
	SignalLevel int      `json:"rssi"`
	Security    Security `json:"security"`
}

// ScanSnapshot is the result of one completed scan, in radio order.
// A snapshot is never edited after it is published.
type ScanSnapshot struct {
	Networks    []Network `json:"networks"`
	CompletedAt time.Time `json:"completed_at"`
}

// Len returns the number of networks in the snapshot.
func (s *ScanSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Networks)
}
