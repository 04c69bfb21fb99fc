package portal

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// NetworkResponse is one scanned network.
type NetworkResponse struct {
	SSID      string          `json:"ssid"`
	RSSI      int             `json:"rssi"`
	Quality   int             `json:"quality"`
	Security  domain.Security `json:"security"`
	Encrypted bool            `json:"encrypted"`
}

// ScanResponse is the body of GET /scan-networks.
type ScanResponse struct {
	Networks    []NetworkResponse `json:"networks"`
	CompletedAt time.Time         `json:"completed_at"`
}

// SaveWifiRequest is accepted as a form or as JSON.
type SaveWifiRequest struct {
	SSID     string `form:"ssid" json:"ssid"`
	Password string `form:"password" json:"password"`
}

// SaveWifiResponse reports the outcome of a save.
type SaveWifiResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	domain.Status
	SignalQuality int `json:"signal_quality"`
}

// Root serves the provisioning page.
func (s *Server) Root(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(portalHTML))
}

// ScanNetworks returns the cached scan, rescanning first when it is older
// than the cooldown. A failed rescan falls back to the cached result.
func (s *Server) ScanNetworks(c *gin.Context) {
	snap := s.freshScan()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan unavailable"})
		return
	}
	c.JSON(http.StatusOK, toScanResponse(snap))
}

func (s *Server) freshScan() *domain.ScanSnapshot {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	last := s.conn.LastScan()
	if last != nil && s.clock.Now().Sub(last.CompletedAt) < s.cfg.ScanCooldown {
		return last
	}

	snap, err := s.conn.Scan()
	if err != nil {
		return last
	}
	return snap
}

// SaveWifi stores the submitted credentials. The manager reacts to the
// resulting credentials event; the portal never drives the radio.
func (s *Server) SaveWifi(c *gin.Context) {
	var req SaveWifiRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, SaveWifiResponse{Error: "invalid request"})
		return
	}

	creds := domain.Credentials{Identifier: req.SSID, Secret: req.Password}
	if err := s.writer.Save(creds); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, SaveWifiResponse{Error: err.Error()})
			return
		}
		s.logger.Error("save credentials failed", ports.Err(err))
		c.JSON(http.StatusInternalServerError, SaveWifiResponse{Error: "could not save credentials"})
		return
	}

	c.JSON(http.StatusOK, SaveWifiResponse{Success: true})
}

// ForgetWifi clears the stored credentials.
func (s *Server) ForgetWifi(c *gin.Context) {
	if err := s.writer.Clear(); err != nil {
		s.logger.Error("clear credentials failed", ports.Err(err))
		c.JSON(http.StatusInternalServerError, SaveWifiResponse{Error: "could not clear credentials"})
		return
	}
	c.JSON(http.StatusOK, SaveWifiResponse{Success: true})
}

// Status reports the connectivity status.
func (s *Server) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:        s.conn.Status(),
		SignalQuality: s.conn.SignalQuality(),
	})
}

// Redirect sends captive-portal probes and unknown paths to the portal page.
func (s *Server) Redirect(c *gin.Context) {
	c.Redirect(http.StatusFound, "http://"+s.cfg.APAddress+"/")
}

func toScanResponse(snap *domain.ScanSnapshot) ScanResponse {
	resp := ScanResponse{
		Networks:    make([]NetworkResponse, 0, snap.Len()),
		CompletedAt: snap.CompletedAt,
	}
	for _, n := range snap.Networks {
		if n.Identifier == "" {
			continue
		}
		resp.Networks = append(resp.Networks, NetworkResponse{
			SSID:      n.Identifier,
			RSSI:      n.SignalLevel,
			Quality:   domain.SignalQuality(n.SignalLevel),
			Security:  n.Security,
			Encrypted: n.Security != domain.SecurityOpen,
		})
	}
	return resp
}
