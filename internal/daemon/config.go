// Package daemon holds the axiosd configuration, loaded from
// ~/.axios/config.toml with sane defaults for every field.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full axiosd configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Feed    FeedConfig    `toml:"feed"`
	Resync  ResyncConfig  `toml:"resync"`
}

// APIConfig configures the HTTP API server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// Addr returns the host:port listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig configures the on-disk record store.
type StorageConfig struct {
	// DataDir holds the sqlite database. Empty means ~/.axios.
	DataDir string `toml:"data_dir"`
}

// LedgerConfig configures the ledger gateway client.
type LedgerConfig struct {
	// GatewayURL is the base URL of the ledger HTTP gateway.
	GatewayURL string `toml:"gateway_url"`
	// ConfirmTimeout bounds each wait for transaction confirmation,
	// as a Go duration string ("2m", "30s").
	ConfirmTimeout string `toml:"confirm_timeout"`
	// PollInterval is the receipt/event poll cadence.
	PollInterval string `toml:"poll_interval"`
}

// FeedConfig configures the live event aggregator.
type FeedConfig struct {
	// Capacity bounds the in-memory event history.
	Capacity int `toml:"capacity"`
}

// ResyncConfig configures the background chain-sync retry worker.
type ResyncConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8089,
			Metrics: true,
		},
		Storage: StorageConfig{
			DataDir: "", // resolved lazily via DataDir()
		},
		Ledger: LedgerConfig{
			GatewayURL:     "http://127.0.0.1:8545",
			ConfirmTimeout: "2m",
			PollInterval:   "2s",
		},
		Feed: FeedConfig{
			Capacity: 50,
		},
		Resync: ResyncConfig{
			Enabled:  true,
			Interval: "1m",
		},
	}
}

// Home returns the axios home directory, honoring AXIOS_HOME.
func Home() string {
	if env := os.Getenv("AXIOS_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".axios"
	}
	return filepath.Join(home, ".axios")
}

// ConfigPath returns the path of the config file.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// DataDir resolves the record store directory, creating it if needed.
func (c Config) DataDir() (string, error) {
	dir := c.Storage.DataDir
	if dir == "" {
		dir = filepath.Join(Home(), "data")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// ConfirmTimeout parses the configured confirmation timeout,
// falling back to the default on a missing or malformed value.
func (c Config) ConfirmTimeout() time.Duration {
	return parseDuration(c.Ledger.ConfirmTimeout, 2*time.Minute)
}

// PollInterval parses the configured ledger poll cadence.
func (c Config) PollInterval() time.Duration {
	return parseDuration(c.Ledger.PollInterval, 2*time.Second)
}

// ResyncInterval parses the configured resync scan cadence.
func (c Config) ResyncInterval() time.Duration {
	return parseDuration(c.Resync.Interval, time.Minute)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Load reads the config file at path, layering it over the defaults.
// A missing file is not an error: defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
