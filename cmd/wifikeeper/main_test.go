package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/wifikeeper/internal/adapters/credfile"
	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/portal"
)

// execute runs the CLI with an isolated home and working directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPortalURL(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{listen: ":80", want: "http://127.0.0.1"},
		{listen: ":8080", want: "http://127.0.0.1:8080"},
		{listen: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{listen: "192.168.4.1:80", want: "http://192.168.4.1"},
		{listen: "[::]:8080", want: "http://127.0.0.1:8080"},
		{listen: "portal", want: "http://portal"},
	}

	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			assert.Equal(t, tt.want, portalURL(tt.listen))
		})
	}
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)
	out := renderStatus(portal.StatusResponse{
		Status: domain.Status{
			State:      domain.StateConnected,
			Address:    "10.0.0.42",
			Identifier: "home",
			Since:      now.Add(-time.Minute),
		},
		SignalQuality: 80,
	}, now)

	assert.Contains(t, out, "Connected")
	assert.Contains(t, out, "home")
	assert.Contains(t, out, "10.0.0.42")
	assert.Contains(t, out, "80%")
	assert.Contains(t, out, "1m0s ago")
}

func TestRenderStatus_ProvisioningHidesSignal(t *testing.T) {
	out := renderStatus(portal.StatusResponse{
		Status: domain.Status{
			State:        domain.StateProvisioning,
			APIdentifier: "wifikeeper-123456",
		},
	}, time.Now())

	assert.Contains(t, out, "wifikeeper-123456")
	assert.NotContains(t, out, "signal")
	assert.NotContains(t, out, "since")
}

func TestStatusCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(portal.StatusResponse{
			Status: domain.Status{State: domain.StateProvisioning, APIdentifier: "wifikeeper-abcdef"},
		})
	}))
	defer srv.Close()

	out, err := execute(t, "--state-dir", t.TempDir(), "status", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Provisioning")
	assert.Contains(t, out, "wifikeeper-abcdef")
}

func TestCredentialsSetAndClear(t *testing.T) {
	stateDir := t.TempDir()
	store := credfile.NewStore(filepath.Join(stateDir, "credentials.toml"), nil, logAdapter.NewNoopLogger())

	out, err := execute(t, "--state-dir", stateDir, "credentials", "set", "--ssid", "home", "--password", "hunter22")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"home"`))

	require.NoError(t, store.Load())
	creds, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, domain.Credentials{Identifier: "home", Secret: "hunter22"}, creds)

	_, err = execute(t, "--state-dir", stateDir, "credentials", "clear")
	require.NoError(t, err)
	require.NoError(t, store.Load())
	_, ok = store.Get()
	assert.False(t, ok)
}

func TestCredentialsSetRejectsInvalid(t *testing.T) {
	_, err := execute(t, "--state-dir", t.TempDir(), "credentials", "set", "--ssid", strings.Repeat("x", 40))
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestCredentialsSetRemote(t *testing.T) {
	var got portal.SaveWifiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/save-wifi", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--state-dir", t.TempDir(), "credentials", "--remote", srv.URL, "set", "--ssid", "cafe")
	require.NoError(t, err)
	assert.Equal(t, "cafe", got.SSID)
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := execute(t, "--state-dir", t.TempDir(), "--log-level", "chatty", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}
