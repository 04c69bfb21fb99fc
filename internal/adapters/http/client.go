// Package http is a client for a running keeper's captive portal, used by
// the CLI to query status and provision credentials remotely.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/portal"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

const (
	statusEndpoint = "/status"
	saveEndpoint   = "/save-wifi"
	forgetEndpoint = "/forget-wifi"
)

// PortalClient talks to the portal HTTP API.
type PortalClient struct {
	client  ports.HTTPClient
	baseURL string
	logger  ports.Logger
}

// NewPortalClient creates a client for the portal at baseURL
// (e.g. "http://192.168.4.1").
func NewPortalClient(client ports.HTTPClient, baseURL string, logger ports.Logger) *PortalClient {
	return &PortalClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Status fetches the connectivity status.
func (c *PortalClient) Status(ctx context.Context) (portal.StatusResponse, error) {
	var status portal.StatusResponse
	if err := c.do(ctx, http.MethodGet, statusEndpoint, nil, &status); err != nil {
		return status, err
	}
	return status, nil
}

// SaveCredentials submits credentials as the portal form would.
func (c *PortalClient) SaveCredentials(ctx context.Context, creds domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(portal.SaveWifiRequest{SSID: creds.Identifier, Password: creds.Secret})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	return c.result(ctx, saveEndpoint, body)
}

// ForgetCredentials clears the stored credentials.
func (c *PortalClient) ForgetCredentials(ctx context.Context) error {
	return c.result(ctx, forgetEndpoint, nil)
}

func (c *PortalClient) result(ctx context.Context, endpoint string, body []byte) error {
	var resp portal.SaveWifiResponse
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("portal refused request: %s", resp.Error)
	}
	return nil
}

func (c *PortalClient) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("portal request", ports.String("method", method), ports.String("url", url))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// The portal reports refusals as JSON with a non-2xx code.
	if err := json.Unmarshal(respBody, out); err != nil {
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		if r, ok := out.(*portal.SaveWifiResponse); ok && r.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, r.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
