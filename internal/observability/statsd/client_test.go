package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (net.PacketConn, string) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, conn.LocalAddr().String()
}

func readLine(t *testing.T, conn net.PacketConn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)

	return string(buf[:n])
}

func TestClientCount(t *testing.T) {
	server, addr := newTestServer(t)

	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "studio"})
	require.NoError(t, err)
	defer client.Close()

	client.Count("sync.jobs", 3, map[string]string{"result": "success"})

	require.Equal(t, "studio.sync.jobs:3|c|#result:success", readLine(t, server))
}

func TestClientGauge(t *testing.T) {
	server, addr := newTestServer(t)

	client, err := NewClient(Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer client.Close()

	client.Gauge("queue.depth", 12.5, nil)

	require.Equal(t, "queue.depth:12.5|g", readLine(t, server))
}

func TestClientTiming(t *testing.T) {
	server, addr := newTestServer(t)

	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "studio."})
	require.NoError(t, err)
	defer client.Close()

	client.Timing("sync.tick", 1500*time.Millisecond, nil)

	require.Equal(t, "studio.sync.tick:1500|ms", readLine(t, server))
}

func TestClientTagsMergedAndSorted(t *testing.T) {
	server, addr := newTestServer(t)

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    addr,
		GlobalTags: map[string]string{"service": "engine", "result": "global"},
	})
	require.NoError(t, err)
	defer client.Close()

	client.Count("events", 1, map[string]string{"result": "error"})

	// Local tags override global ones; keys emit in sorted order.
	require.Equal(t, "events:1|c|#result:error,service:engine", readLine(t, server))
}

func TestClientMetricNameNormalized(t *testing.T) {
	server, addr := newTestServer(t)

	client, err := NewClient(Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer client.Close()

	client.Count("sync tick/total..count", 1, nil)

	require.Equal(t, "sync_tick_total.count:1|c", readLine(t, server))
}

func TestClientDisabledIsNoop(t *testing.T) {
	client, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:8125"})
	require.NoError(t, err)

	require.False(t, client.Enabled())
	client.Count("noop", 1, nil)
	require.NoError(t, client.Close())
}

func TestClientEmptyAddressDisables(t *testing.T) {
	client, err := NewClient(Config{Enabled: true, Address: "  "})
	require.NoError(t, err)
	require.False(t, client.Enabled())
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client

	require.False(t, client.Enabled())
	client.Count("n", 1, nil)
	client.Gauge("n", 1, nil)
	client.Timing("n", time.Second, nil)
	require.NoError(t, client.Close())
}
