package radio

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

func newTestSim() (*Sim, chan ports.RadioNotification) {
	s := NewSim(Config{
		HardwareAddr: net.HardwareAddr{0x24, 0x0a, 0xc4, 0x12, 0x34, 0x56},
		Networks: []Network{
			{SSID: "cafe", RSSI: -80, Security: domain.SecurityOpen},
			{SSID: "home", Password: "hunter22", RSSI: -55, Security: domain.SecurityWPA2},
		},
		JoinLatency: 10 * time.Millisecond,
	}, logAdapter.NewNoopLogger())

	ch := make(chan ports.RadioNotification, 4)
	s.SetNotificationHandler(func(n ports.RadioNotification) { ch <- n })
	return s, ch
}

func receive(t *testing.T, ch chan ports.RadioNotification) ports.RadioNotification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
		return ports.RadioNotification{}
	}
}

func TestSim_JoinSucceeds(t *testing.T) {
	s, ch := newTestSim()
	require.NoError(t, s.JoinNetwork("home", "hunter22"))

	n := receive(t, ch)
	assert.Equal(t, ports.JoinSucceeded, n.Kind)
	assert.Equal(t, "10.0.0.11", n.Address)
	assert.Equal(t, n.Address, s.AssignedAddress())
	assert.Equal(t, -55, s.CurrentSignalLevel())
}

func TestSim_WrongPasswordFails(t *testing.T) {
	s, ch := newTestSim()
	require.NoError(t, s.JoinNetwork("home", "nope"))

	n := receive(t, ch)
	assert.Equal(t, ports.JoinFailed, n.Kind)
	assert.Empty(t, s.AssignedAddress())
	assert.Equal(t, domain.SignalFloor, s.CurrentSignalLevel())
}

func TestSim_UnknownNetworkNeverAnswers(t *testing.T) {
	s, ch := newTestSim()
	require.NoError(t, s.JoinNetwork("elsewhere", ""))

	select {
	case n := <-ch:
		t.Fatalf("unexpected notification %v", n.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSim_AbortJoinSuppressesOutcome(t *testing.T) {
	s, ch := newTestSim()
	s.cfg.JoinLatency = 30 * time.Millisecond
	require.NoError(t, s.JoinNetwork("home", "hunter22"))
	require.NoError(t, s.AbortJoin())

	select {
	case n := <-ch:
		t.Fatalf("unexpected notification %v", n.Kind)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestSim_DropLink(t *testing.T) {
	s, ch := newTestSim()
	s.DropLink("no link")
	assert.Empty(t, ch)

	require.NoError(t, s.JoinNetwork("home", "hunter22"))
	receive(t, ch)

	s.DropLink("beacon lost")
	n := receive(t, ch)
	assert.Equal(t, ports.LinkLost, n.Kind)
	assert.Equal(t, "beacon lost", n.Detail)
	assert.Empty(t, s.AssignedAddress())
}

func TestSim_LinkDropAfter(t *testing.T) {
	s, ch := newTestSim()
	s.cfg.LinkDropAfter = 20 * time.Millisecond

	require.NoError(t, s.JoinNetwork("home", "hunter22"))
	n := receive(t, ch)
	require.Equal(t, ports.JoinSucceeded, n.Kind)

	n = receive(t, ch)
	assert.Equal(t, ports.LinkLost, n.Kind)
	assert.Equal(t, "simulated link loss", n.Detail)
	assert.Empty(t, s.AssignedAddress())
	assert.Equal(t, domain.SignalFloor, s.CurrentSignalLevel())
}

func TestSim_LinkDropCancelledByAbort(t *testing.T) {
	s, ch := newTestSim()
	s.cfg.LinkDropAfter = 50 * time.Millisecond

	require.NoError(t, s.JoinNetwork("home", "hunter22"))
	receive(t, ch)
	require.NoError(t, s.AbortJoin())

	select {
	case n := <-ch:
		t.Fatalf("unexpected notification %v", n.Kind)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestSim_AccessPoint(t *testing.T) {
	s, _ := newTestSim()

	require.NoError(t, s.StartAccessPoint("wifikeeper-123456", ""))
	require.NoError(t, s.StartAccessPoint("wifikeeper-123456", ""))
	assert.Error(t, s.StartAccessPoint("other", ""))

	id, up := s.accessPoint()
	assert.True(t, up)
	assert.Equal(t, "wifikeeper-123456", id)

	require.NoError(t, s.StopAccessPoint())
	_, up = s.accessPoint()
	assert.False(t, up)
}

func TestSim_ScanOrdersByStrength(t *testing.T) {
	s, _ := newTestSim()

	snap, err := s.Scan()
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "home", snap.Networks[0].Identifier)
	assert.Equal(t, "cafe", snap.Networks[1].Identifier)
	assert.False(t, snap.CompletedAt.IsZero())
}
