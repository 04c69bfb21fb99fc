// Package dns implements the captive-portal DNS responder: while the
// provisioning access point is up every name resolves to the device.
package dns

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/bft-labs/wifikeeper/internal/ports"
)

// Default responder configuration values.
const (
	DefaultPort      = 53
	DefaultQueueSize = 64
	DefaultPerPump   = 16
	DefaultTTL       = 60
)

const maxPacketSize = 512

// Config contains configuration for the responder.
type Config struct {
	// Port is the UDP port to listen on. Zero picks an ephemeral port.
	Port int

	// QueueSize bounds queries waiting for Pump. Extra queries are dropped.
	QueueSize int

	// PerPump bounds the replies sent by one Pump call.
	PerPump int

	// TTL is the record lifetime in seconds.
	TTL uint32
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:      DefaultPort,
		QueueSize: DefaultQueueSize,
		PerPump:   DefaultPerPump,
		TTL:       DefaultTTL,
	}
}

type query struct {
	data []byte
	from net.Addr
}

// Responder implements ports.DNSResponder over UDP. A reader goroutine
// queues raw queries; replies are only sent from Pump.
type Responder struct {
	cfg    Config
	logger ports.Logger

	mu     sync.Mutex
	conn   net.PacketConn
	answer net.IP
	queue  chan query
	wg     sync.WaitGroup
}

// NewResponder creates a stopped responder.
func NewResponder(cfg Config, logger ports.Logger) *Responder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PerPump <= 0 {
		cfg.PerPump = DefaultPerPump
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	return &Responder{cfg: cfg, logger: logger}
}

// Start listens on bindAddress and answers with it. Starting a running
// responder is a no-op.
func (r *Responder) Start(bindAddress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}

	ip := net.ParseIP(bindAddress)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("dns: bind address %q is not an IPv4 address", bindAddress)
	}

	conn, err := net.ListenPacket("udp4", net.JoinHostPort(bindAddress, strconv.Itoa(r.cfg.Port)))
	if err != nil {
		return fmt.Errorf("dns: listen: %w", err)
	}

	r.conn = conn
	r.answer = ip
	r.queue = make(chan query, r.cfg.QueueSize)

	r.wg.Add(1)
	go r.read(conn, r.queue)

	r.logger.Info("dns responder started", ports.String("addr", conn.LocalAddr().String()))
	return nil
}

// Stop closes the socket and discards queued queries.
func (r *Responder) Stop() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	r.wg.Wait()
	r.logger.Info("dns responder stopped")
	if err != nil {
		return fmt.Errorf("dns: close: %w", err)
	}
	return nil
}

// Pump answers up to PerPump queued queries without blocking.
func (r *Responder) Pump() {
	r.mu.Lock()
	conn, queue, answer := r.conn, r.queue, r.answer
	r.mu.Unlock()

	if conn == nil {
		return
	}

	for i := 0; i < r.cfg.PerPump; i++ {
		select {
		case q := <-queue:
			r.answerQuery(conn, q, answer)
		default:
			return
		}
	}
}

// Addr returns the listening address, or nil when stopped.
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Responder) answerQuery(conn net.PacketConn, q query, answer net.IP) {
	reply, err := buildReply(q.data, answer, r.cfg.TTL)
	if err != nil {
		r.logger.Debug("dropping dns packet", ports.String("from", q.from.String()), ports.Err(err))
		return
	}
	if _, err := conn.WriteTo(reply, q.from); err != nil && !errors.Is(err, net.ErrClosed) {
		r.logger.Warn("dns reply failed", ports.String("to", q.from.String()), ports.Err(err))
	}
}

func (r *Responder) read(conn net.PacketConn, queue chan<- query) {
	defer r.wg.Done()

	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				r.logger.Warn("dns read failed", ports.Err(err))
			}
			return
		}

		q := query{data: append([]byte(nil), buf[:n]...), from: from}
		select {
		case queue <- q:
		default:
			r.logger.Debug("dns queue full, dropping query", ports.String("from", from.String()))
		}
	}
}
