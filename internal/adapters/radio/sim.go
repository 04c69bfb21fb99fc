// Package radio provides a simulated network radio for running the daemon
// on hosts without a controllable wireless interface.
package radio

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// Default simulation timings.
const (
	DefaultJoinLatency = 2 * time.Second
	DefaultScanLatency = 500 * time.Millisecond
)

// Network is a network visible to the simulated radio.
type Network struct {
	SSID     string          `toml:"ssid"`
	Password string          `toml:"password"`
	RSSI     int             `toml:"rssi"`
	Security domain.Security `toml:"security"`
}

// Config contains configuration for the simulated radio.
type Config struct {
	HardwareAddr net.HardwareAddr
	Networks     []Network
	JoinLatency  time.Duration
	ScanLatency  time.Duration

	// LinkDropAfter, when positive, drops every established link after
	// it has been up this long.
	LinkDropAfter time.Duration
}

// Sim implements ports.Radio in memory. Joins to a listed network with the
// right password succeed after JoinLatency, a wrong password fails, and an
// unlisted network never answers. With LinkDropAfter set, established links
// are lost on schedule.
type Sim struct {
	cfg    Config
	logger ports.Logger

	mu        sync.Mutex
	handler   func(ports.RadioNotification)
	joinSeq   uint64
	joinTimer *time.Timer
	linkTimer *time.Timer
	link      *Network
	address   string
	apID      string
}

// NewSim creates a simulated radio.
func NewSim(cfg Config, logger ports.Logger) *Sim {
	if cfg.JoinLatency <= 0 {
		cfg.JoinLatency = DefaultJoinLatency
	}
	if cfg.ScanLatency < 0 {
		cfg.ScanLatency = 0
	}
	if len(cfg.HardwareAddr) == 0 {
		cfg.HardwareAddr = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	}
	return &Sim{cfg: cfg, logger: logger}
}

// SetNotificationHandler registers the notification receiver.
func (s *Sim) SetNotificationHandler(handler func(ports.RadioNotification)) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// JoinNetwork schedules the outcome of a join. Any earlier join is abandoned.
func (s *Sim) JoinNetwork(identifier, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelJoinLocked()
	s.link, s.address = nil, ""
	seq := s.joinSeq

	idx := s.indexOf(identifier)
	if idx < 0 {
		s.logger.Debug("sim: network not in range", ports.String("ssid", identifier))
		return nil
	}

	s.joinTimer = time.AfterFunc(s.cfg.JoinLatency, func() {
		s.completeJoin(seq, idx, secret)
	})
	return nil
}

// AbortJoin abandons a pending join and drops the link.
func (s *Sim) AbortJoin() error {
	s.mu.Lock()
	s.cancelJoinLocked()
	s.link, s.address = nil, ""
	s.mu.Unlock()
	return nil
}

// StartAccessPoint records the hosted network.
func (s *Sim) StartAccessPoint(identifier, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apID != "" && s.apID != identifier {
		return fmt.Errorf("sim: access point %s already running", s.apID)
	}
	s.apID = identifier
	s.logger.Info("sim: access point up", ports.String("ssid", identifier), ports.Bool("open", secret == ""))
	return nil
}

// StopAccessPoint tears down the hosted network.
func (s *Sim) StopAccessPoint() error {
	s.mu.Lock()
	s.apID = ""
	s.mu.Unlock()
	return nil
}

// accessPoint returns the hosted network identifier, if any.
func (s *Sim) accessPoint() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apID, s.apID != ""
}

// Scan returns the configured networks, strongest first, after ScanLatency.
func (s *Sim) Scan() (domain.ScanSnapshot, error) {
	if s.cfg.ScanLatency > 0 {
		time.Sleep(s.cfg.ScanLatency)
	}

	networks := make([]domain.Network, 0, len(s.cfg.Networks))
	for _, n := range s.cfg.Networks {
		sec := n.Security
		if sec == "" {
			sec = domain.SecurityUnknown
		}
		networks = append(networks, domain.Network{Identifier: n.SSID, SignalLevel: n.RSSI, Security: sec})
	}
	sort.SliceStable(networks, func(i, j int) bool {
		return networks[i].SignalLevel > networks[j].SignalLevel
	})
	return domain.ScanSnapshot{Networks: networks, CompletedAt: time.Now()}, nil
}

// CurrentSignalLevel returns the link's level, or the floor without a link.
func (s *Sim) CurrentSignalLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == nil {
		return domain.SignalFloor
	}
	return s.link.RSSI
}

// AssignedAddress returns the station address.
func (s *Sim) AssignedAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// HardwareAddr returns the configured hardware address.
func (s *Sim) HardwareAddr() net.HardwareAddr {
	return s.cfg.HardwareAddr
}

// DropLink simulates the station link going away.
func (s *Sim) DropLink(detail string) {
	s.mu.Lock()
	handler := s.takeLinkLocked()
	s.mu.Unlock()

	if handler != nil {
		handler(ports.RadioNotification{Kind: ports.LinkLost, Detail: detail})
	}
}

// expireLink drops the link established by join seq, unless a later join
// or abort replaced it.
func (s *Sim) expireLink(seq uint64) {
	s.mu.Lock()
	var handler func(ports.RadioNotification)
	if seq == s.joinSeq {
		s.linkTimer = nil
		handler = s.takeLinkLocked()
	}
	s.mu.Unlock()

	if handler != nil {
		handler(ports.RadioNotification{Kind: ports.LinkLost, Detail: "simulated link loss"})
	}
}

// takeLinkLocked clears the link and returns the handler to notify, or nil
// when there was no link.
func (s *Sim) takeLinkLocked() func(ports.RadioNotification) {
	if s.link == nil {
		return nil
	}
	s.link, s.address = nil, ""
	return s.handler
}

func (s *Sim) completeJoin(seq uint64, idx int, secret string) {
	s.mu.Lock()
	if seq != s.joinSeq {
		s.mu.Unlock()
		return
	}
	s.joinTimer = nil

	network := s.cfg.Networks[idx]
	var n ports.RadioNotification
	if network.Password != secret {
		n = ports.RadioNotification{Kind: ports.JoinFailed, Detail: "authentication failed"}
	} else {
		s.link = &network
		s.address = fmt.Sprintf("10.0.0.%d", 10+idx)
		n = ports.RadioNotification{Kind: ports.JoinSucceeded, Address: s.address}
		if s.cfg.LinkDropAfter > 0 {
			s.linkTimer = time.AfterFunc(s.cfg.LinkDropAfter, func() {
				s.expireLink(seq)
			})
		}
	}
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler(n)
	}
}

func (s *Sim) cancelJoinLocked() {
	s.joinSeq++
	if s.joinTimer != nil {
		s.joinTimer.Stop()
		s.joinTimer = nil
	}
	if s.linkTimer != nil {
		s.linkTimer.Stop()
		s.linkTimer = nil
	}
}

func (s *Sim) indexOf(ssid string) int {
	for i, n := range s.cfg.Networks {
		if n.SSID == ssid {
			return i
		}
	}
	return -1
}
