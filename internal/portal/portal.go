// Package portal serves the captive provisioning portal: the page an
// operator sees after joining the access point, the scan list and the
// credential form.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// Default portal configuration values.
const (
	DefaultListen       = ":80"
	DefaultScanCooldown = 10 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// Config contains configuration for the portal.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string

	// APAddress is the device address on the provisioning network.
	// Captive-portal probes are redirected to it.
	APAddress string

	// ScanCooldown is the minimum age of the cached scan before a request
	// triggers a new one.
	ScanCooldown time.Duration
}

// Connectivity is the part of the manager the portal reads.
type Connectivity interface {
	Status() domain.Status
	SignalQuality() int
	Scan() (*domain.ScanSnapshot, error)
	LastScan() *domain.ScanSnapshot
}

// Server is the portal HTTP server.
type Server struct {
	cfg    Config
	conn   Connectivity
	writer ports.CredentialWriter
	clock  ports.Clock
	logger ports.Logger
	engine *gin.Engine

	// scanMu serializes scans; the radio cannot run two at once.
	scanMu sync.Mutex
}

// NewServer creates the portal and registers its routes.
func NewServer(cfg Config, conn Connectivity, writer ports.CredentialWriter, clock ports.Clock, logger ports.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.ScanCooldown <= 0 {
		cfg.ScanCooldown = DefaultScanCooldown
	}
	if clock == nil {
		clock = ports.SystemClock()
	}

	s := &Server{
		cfg:    cfg,
		conn:   conn,
		writer: writer,
		clock:  clock,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestLogger(logger))
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.Root)
	s.engine.GET("/scan-networks", s.ScanNetworks)
	s.engine.POST("/save-wifi", s.SaveWifi)
	s.engine.POST("/forget-wifi", s.ForgetWifi)
	s.engine.GET("/status", s.Status)

	// Android and Windows connectivity probes.
	s.engine.GET("/generate_204", s.Redirect)
	s.engine.GET("/fwlink", s.Redirect)
	s.engine.NoRoute(s.Redirect)
}

// Handler returns the HTTP handler serving the portal.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("portal listening", ports.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("portal: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("portal shutdown: %w", err)
	}
	s.logger.Info("portal stopped")
	return nil
}

// RequestLogger logs one line per request.
func RequestLogger(logger ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("portal request",
			ports.String("method", c.Request.Method),
			ports.String("path", c.Request.URL.Path),
			ports.Int("status", c.Writer.Status()),
			ports.Duration("latency", time.Since(start)),
		)
	}
}
