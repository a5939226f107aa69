package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8089 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8089)
	}
	if !cfg.API.Metrics {
		t.Error("API.Metrics should be true by default")
	}
	if cfg.Ledger.GatewayURL != "http://127.0.0.1:8545" {
		t.Errorf("Ledger.GatewayURL = %q, want local gateway", cfg.Ledger.GatewayURL)
	}
	if cfg.ConfirmTimeout() != 2*time.Minute {
		t.Errorf("ConfirmTimeout() = %v, want 2m", cfg.ConfirmTimeout())
	}
	if cfg.Feed.Capacity != 50 {
		t.Errorf("Feed.Capacity = %d, want 50", cfg.Feed.Capacity)
	}
	if !cfg.Resync.Enabled {
		t.Error("Resync.Enabled should be true by default")
	}
	if cfg.ResyncInterval() != time.Minute {
		t.Errorf("ResyncInterval() = %v, want 1m", cfg.ResyncInterval())
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"", 2 * time.Minute},         // Default
		{"nonsense", 2 * time.Minute}, // Default
		{"-1s", 2 * time.Minute},      // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseDuration(tt.input, 2*time.Minute)
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default %d", cfg.API.Port, DefaultConfig().API.Port)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := `
[api]
port = 9090

[ledger]
gateway_url = "http://gateway.internal:8545"
confirm_timeout = "45s"
`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want default preserved", cfg.API.Host)
	}
	if cfg.Ledger.GatewayURL != "http://gateway.internal:8545" {
		t.Errorf("Ledger.GatewayURL = %q, want override", cfg.Ledger.GatewayURL)
	}
	if cfg.ConfirmTimeout() != 45*time.Second {
		t.Errorf("ConfirmTimeout() = %v, want 45s", cfg.ConfirmTimeout())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.API.Port = 7070

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.API.Port != 7070 {
		t.Errorf("round-tripped port = %d, want 7070", got.API.Port)
	}
}
