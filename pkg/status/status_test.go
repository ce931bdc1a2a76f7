package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"
	providertypes "agentbridge/pkg/provider/types"
)

type stubProvider struct {
	healthErr error
}

func (p *stubProvider) Health(context.Context) error {
	return p.healthErr
}

func (p *stubProvider) CreateSession(context.Context, string) (string, error) {
	return "session-1", nil
}

func (p *stubProvider) Prompt(context.Context, string, string, string, string) (providertypes.PromptResult, error) {
	return providertypes.PromptResult{}, nil
}

func staticStats(state bridge.State) func() bridge.Stats {
	return func() bridge.Stats {
		return bridge.Stats{State: state, Device: "/dev/ttys001", TasksReceived: 3, RepliesSent: 3}
	}
}

func TestNewServiceRequiresStatsSource(t *testing.T) {
	if _, err := NewService(config.StatusConfig{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil stats source")
	}
}

func TestListenAddrDefaults(t *testing.T) {
	svc, err := NewService(config.StatusConfig{}, staticStats(bridge.StateConnected), nil, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	if got := svc.listenAddr(); got != "0.0.0.0:18790" {
		t.Fatalf("listenAddr = %q", got)
	}

	svc.cfg = config.StatusConfig{Host: "127.0.0.1", Port: 9999}
	if got := svc.listenAddr(); got != "127.0.0.1:9999" {
		t.Fatalf("listenAddr = %q", got)
	}
}

func TestIsReadyTracksBridgeState(t *testing.T) {
	cases := []struct {
		state bridge.State
		want  bool
	}{
		{bridge.StateConnecting, false},
		{bridge.StateConnected, true},
		{bridge.StateRecovering, true},
		{bridge.StateClosed, false},
	}

	for _, tc := range cases {
		svc, err := NewService(config.StatusConfig{}, staticStats(tc.state), nil, nil)
		if err != nil {
			t.Fatalf("NewService error: %v", err)
		}
		if got := svc.isReady(); got != tc.want {
			t.Fatalf("isReady(%s) = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestIsReadyRequiresHealthyProvider(t *testing.T) {
	svc, err := NewService(config.StatusConfig{}, staticStats(bridge.StateConnected), &stubProvider{}, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	if svc.isReady() {
		t.Fatal("expected not ready before the first provider probe")
	}

	svc.checkProviderHealth(context.Background())
	if !svc.isReady() {
		t.Fatal("expected ready after a clean probe")
	}

	svc.client = &stubProvider{healthErr: errors.New("down")}
	svc.checkProviderHealth(context.Background())
	if svc.isReady() {
		t.Fatal("expected not ready with a failing provider")
	}
}

func TestHandleReadyResponseBody(t *testing.T) {
	svc, err := NewService(config.StatusConfig{}, staticStats(bridge.StateConnected), nil, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	svc.startedAt = time.Now().UTC().Add(-90 * time.Second)

	recorder := httptest.NewRecorder()
	svc.handleReady(recorder, httptest.NewRequest("GET", "/readyz", nil))

	if recorder.Code != 200 {
		t.Fatalf("status code = %d", recorder.Code)
	}

	var payload statusResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Status != "ready" {
		t.Fatalf("status = %q", payload.Status)
	}
	if payload.UptimeSeconds < 89 {
		t.Fatalf("uptime = %d, want >= 89", payload.UptimeSeconds)
	}
	if payload.Bridge.State != bridge.StateConnected || payload.Bridge.TasksReceived != 3 {
		t.Fatalf("bridge snapshot = %+v", payload.Bridge)
	}
}

func TestHandleReadyNotReadyStatusCode(t *testing.T) {
	svc, err := NewService(config.StatusConfig{}, staticStats(bridge.StateClosed), nil, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	recorder := httptest.NewRecorder()
	svc.handleReady(recorder, httptest.NewRequest("GET", "/readyz", nil))

	if recorder.Code != 503 {
		t.Fatalf("status code = %d, want 503", recorder.Code)
	}
}
