package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"

	"github.com/stretchr/testify/require"
)

func freeTCPPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, url string) *http.Response {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("server at %s never came up", url)
	return nil
}

func TestStatusServiceRunE2E(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var state atomic.Value
	state.Store(bridge.StateConnecting)
	stats := func() bridge.Stats {
		return bridge.Stats{
			State:         state.Load().(bridge.State),
			Device:        "/dev/ttys007",
			TasksReceived: 5,
			RepliesSent:   4,
		}
	}

	port := freeTCPPort(t)
	svc, err := NewService(config.StatusConfig{Host: "127.0.0.1", Port: port}, stats, nil, nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	resp := waitForServer(t, base+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(base + "/readyz")
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	state.Store(bridge.StateConnected)

	resp, err = http.Get(base + "/readyz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(base + "/statusz")
	require.NoError(t, err)
	var payload statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()

	require.Equal(t, "connected", payload.Status)
	require.Equal(t, bridge.StateConnected, payload.Bridge.State)
	require.Equal(t, uint64(5), payload.Bridge.TasksReceived)
	require.Equal(t, uint64(4), payload.Bridge.RepliesSent)
	require.Equal(t, "/dev/ttys007", payload.Bridge.Device)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for status server shutdown")
	}
}
