package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"
	"agentbridge/pkg/provider"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 18790

	providerCheckInterval = 30 * time.Second
)

// Service serves the operator endpoints: /healthz for liveness, /readyz
// for readiness, /statusz for the full bridge snapshot. It also probes
// provider health in the background so readiness reflects the upstream.
type Service struct {
	cfg   config.StatusConfig
	log   *slog.Logger
	stats func() bridge.Stats

	// May be nil when the daemon runs tool-only; readiness then ignores
	// the provider.
	client provider.Client

	mu               sync.RWMutex
	startedAt        time.Time
	providerLastOKAt time.Time
	providerLastErr  string
}

type statusResponse struct {
	Status           string       `json:"status"`
	UptimeSeconds    int64        `json:"uptime_seconds"`
	ProviderLastOKAt string       `json:"provider_last_ok_at,omitempty"`
	ProviderLastErr  string       `json:"provider_last_error,omitempty"`
	Bridge           bridge.Stats `json:"bridge"`
}

// NewService wires the status endpoints to a bridge stats source.
func NewService(cfg config.StatusConfig, stats func() bridge.Stats, client provider.Client, log *slog.Logger) (*Service, error) {
	if stats == nil {
		return nil, errors.New("bridge stats source is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:    cfg,
		log:    log.With("component", "status"),
		stats:  stats,
		client: client,
	}, nil
}

// Run serves HTTP until the context ends. The periodic provider probe
// shares the context and stops with the server.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if s.client != nil {
		s.checkProviderHealth(ctx)

		go func() {
			ticker := time.NewTicker(providerCheckInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.checkProviderHealth(ctx)
				}
			}
		}()
	}

	addr := s.listenAddr()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/statusz", s.handleStatus)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start status server: %w", err)
	}

	return nil
}

func (s *Service) listenAddr() string {
	host := strings.TrimSpace(s.cfg.Host)
	if host == "" {
		host = defaultHost
	}

	port := s.cfg.Port
	if port <= 0 {
		port = defaultPort
	}

	return host + ":" + strconv.Itoa(port)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respond(w, statusCode, status)
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, string(s.stats().State))
}

func (s *Service) respond(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	providerLastOK := ""
	if !s.providerLastOKAt.IsZero() {
		providerLastOK = s.providerLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:           status,
		UptimeSeconds:    uptime,
		ProviderLastOKAt: providerLastOK,
		ProviderLastErr:  s.providerLastErr,
		Bridge:           s.stats(),
	}
}

// isReady reports whether the bridge can take traffic: the serial link is
// up (or briefly recovering) and the provider, when configured, has a
// clean last probe.
func (s *Service) isReady() bool {
	state := s.stats().State
	if state != bridge.StateConnected && state != bridge.StateRecovering {
		return false
	}

	if s.client == nil {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.providerLastErr == "" && !s.providerLastOKAt.IsZero()
}

func (s *Service) checkProviderHealth(ctx context.Context) {
	if err := s.client.Health(ctx); err != nil {
		s.mu.Lock()
		s.providerLastErr = err.Error()
		s.mu.Unlock()

		s.log.Warn("Provider health check failed", "error", err)
		return
	}

	s.mu.Lock()
	s.providerLastErr = ""
	s.providerLastOKAt = time.Now().UTC()
	s.mu.Unlock()
}
