package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config captures runtime configuration for the node daemon.
type Config struct {
	ListenAddress      string `toml:"ListenAddress"`
	DataDir            string `toml:"DataDir"`
	Environment        string `toml:"Environment"`
	PlatformWallet     string `toml:"PlatformWallet"`
	ReconcilerDBPath   string `toml:"ReconcilerDBPath"`
	ReconcilerPollSecs int    `toml:"ReconcilerPollSecs"`
	ConfirmAttempts    int    `toml:"ConfirmAttempts"`
	ConfirmDelaySecs   int    `toml:"ConfirmDelaySecs"`
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:      ":8545",
		DataDir:            "./vulnera-data",
		Environment:        "dev",
		ReconcilerDBPath:   "reconciler.db",
		ReconcilerPollSecs: 5,
		ConfirmAttempts:    10,
		ConfirmDelaySecs:   2,
	}
}

// Load reads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := defaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	for _, undecoded := range meta.Undecoded() {
		return nil, fmt.Errorf("unknown config key: %s", undecoded.String())
	}
	if cfg.ListenAddress == "" {
		return nil, fmt.Errorf("ListenAddress must not be empty")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("DataDir must not be empty")
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
