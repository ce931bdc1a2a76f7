package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	path := writeConfigFile(t, `{
		"serial": {"device": "/dev/ttys003"},
		"bridge": {"chunk_size": 16, "fail_on_chunk_loss": true},
		"agents": {"defaults": {"provider": "openai", "model": "openai/gpt-5.2"}}
	}`)
	t.Setenv("AGENTBRIDGE_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Serial.Device != "/dev/ttys003" {
		t.Fatalf("device = %q, want /dev/ttys003", cfg.Serial.Device)
	}
	if cfg.Bridge.ChunkSize != 16 || !cfg.Bridge.FailOnChunkLoss {
		t.Fatalf("bridge = %+v, want chunk_size 16 and fail_on_chunk_loss", cfg.Bridge)
	}
	if cfg.Agents.Defaults.Provider != "openai" {
		t.Fatalf("provider = %q, want openai", cfg.Agents.Defaults.Provider)
	}
}

func TestDeviceEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `{"serial": {"device": "/dev/ttys001"}}`)
	t.Setenv("AGENTBRIDGE_CONFIG", path)
	t.Setenv("AGENTBRIDGE_DEVICE", "/dev/ttys009")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Serial.Device != "/dev/ttys009" {
		t.Fatalf("device = %q, want the env override", cfg.Serial.Device)
	}
}

func TestLoadConfigRejectsBadEnvPath(t *testing.T) {
	t.Setenv("AGENTBRIDGE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing env-pointed config")
	}
}

func TestLoadConfigRejectsInvalidJSON(t *testing.T) {
	path := writeConfigFile(t, "{not json")
	t.Setenv("AGENTBRIDGE_CONFIG", path)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid config JSON")
	}
}
