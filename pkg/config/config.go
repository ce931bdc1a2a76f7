package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	envConfigPath   = "AGENTBRIDGE_CONFIG"
	envSerialDevice = "AGENTBRIDGE_DEVICE"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Serial    SerialConfig    `json:"serial"`
	Bridge    BridgeConfig    `json:"bridge"`
	Agents    AgentsConfig    `json:"agents"`
	Providers ProvidersConfig `json:"providers"`
	Tools     ToolsConfig     `json:"tools,omitempty"`
	Status    StatusConfig    `json:"status"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// SerialConfig locates the kernel's serial device.
type SerialConfig struct {
	// Device is the PTY path the emulator printed ("char device redirected
	// to /dev/ttysNNN"). Empty means auto-detect via DevicePattern.
	Device string `json:"device"`
	// DevicePattern is the glob used for auto-detection.
	DevicePattern string `json:"device_pattern,omitempty"`
}

// BridgeConfig carries the transport pacing knobs. Zero values fall back to
// the reference constants.
type BridgeConfig struct {
	ChunkSize            int  `json:"chunk_size,omitempty"`
	InterChunkDelayMs    int  `json:"inter_chunk_delay_ms,omitempty"`
	WriteRetryBackoffMs  int  `json:"write_retry_backoff_ms,omitempty"`
	WriteRetries         int  `json:"write_retries,omitempty"`
	PollIntervalMs       int  `json:"poll_interval_ms,omitempty"`
	ReconnectIntervalMs  int  `json:"reconnect_interval_ms,omitempty"`
	HeartbeatIntervalSec int  `json:"heartbeat_interval_sec,omitempty"`
	FailOnChunkLoss      bool `json:"fail_on_chunk_loss,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// AgentsConfig contains agent runtime defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// AgentDefaults describes default model/runtime settings for the task
// handler.
type AgentDefaults struct {
	Workspace           string  `json:"workspace"`
	RestrictToWorkspace bool    `json:"restrict_to_workspace"`
	Provider            string  `json:"provider"`
	Model               string  `json:"model"`
	MaxTokens           int     `json:"max_tokens"`
	Temperature         float64 `json:"temperature"`
	MaxToolIterations   int     `json:"max_tool_iterations"`
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	OpenCode OpenCodeProviderConfig `json:"opencode"`
	OpenAI   OpenAIProviderConfig   `json:"openai"`
}

// OpenCodeProviderConfig configures the OpenCode provider client.
type OpenCodeProviderConfig struct {
	BaseURL               string `json:"base_url"`
	Username              string `json:"username"`
	PasswordEnv           string `json:"password_env"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// OpenAIProviderConfig configures the OpenAI provider client.
type OpenAIProviderConfig struct {
	BaseURL               string `json:"base_url"`
	APIKeyEnv             string `json:"api_key_env"`
	Organization          string `json:"organization"`
	Project               string `json:"project"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
}

// ToolsConfig groups per-tool configuration.
type ToolsConfig struct {
	Exec  ExecConfig  `json:"exec"`
	Plot  PlotConfig  `json:"plot"`
	Chess ChessConfig `json:"chess"`
	Music MusicConfig `json:"music"`
	Psych PsychConfig `json:"psych"`
}

// ExecConfig configures local command execution safety behavior.
type ExecConfig struct {
	AllowedCommands []string `json:"allowed_commands,omitempty"`
	TimeoutSeconds  int      `json:"timeout_seconds,omitempty"`
}

// PlotConfig bounds expression plotting output.
type PlotConfig struct {
	Samples int `json:"samples,omitempty"`
}

// ChessConfig bounds the chess battle demo.
type ChessConfig struct {
	MaxMoves    int `json:"max_moves,omitempty"`
	MoveDelayMs int `json:"move_delay_ms,omitempty"`
}

// PsychConfig paces the agent evaluation run.
type PsychConfig struct {
	StepDelayMs int `json:"step_delay_ms,omitempty"`
	MaxTurns    int `json:"max_turns,omitempty"`
}

// MusicConfig configures macOS Music app automation.
type MusicConfig struct {
	Enabled bool `json:"enabled"`
	UseSiri bool `json:"use_siri,omitempty"`
}

// StatusConfig configures the HTTP status endpoint bind settings.
type StatusConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment
// overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file
// config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if device := strings.TrimSpace(os.Getenv(envSerialDevice)); device != "" {
		cfg.Serial.Device = device
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is AGENTBRIDGE_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
