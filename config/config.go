package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Client  ClientConfig  `mapstructure:"client"`
	Watcher WatcherConfig `mapstructure:"watcher"`
	Status  StatusConfig  `mapstructure:"status"`
	Journal JournalConfig `mapstructure:"journal"`
}

type ClientConfig struct {
	// DataDir holds every exchange and state file shared with the game
	// script (trigger file, command queue, berry/seed state, flag file).
	DataDir     string  `mapstructure:"data_dir"`
	Debug       bool    `mapstructure:"debug"`
	DefaultHost string  `mapstructure:"default_host"`
	ReportRPS   float64 `mapstructure:"report_rps"`
	ReportBurst int     `mapstructure:"report_burst"`
}

type WatcherConfig struct {
	// SweepInterval is the fallback poll of the trigger file for writes
	// that never produce a change notification (atomic-rename writers,
	// network filesystems). Zero disables the sweep.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type StatusConfig struct {
	// Port exposes the local read-only status API. Zero keeps it off.
	Port           int     `mapstructure:"port"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads config from the given YAML file path. A missing file is not an
// error: every setting has a workable default so the client runs with no
// config at all.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("client.data_dir", defaultDataDir())
	v.SetDefault("client.debug", false)
	v.SetDefault("client.default_host", "archipelago.gg")
	v.SetDefault("client.report_rps", 20)
	v.SetDefault("client.report_burst", 40)
	v.SetDefault("watcher.sweep_interval", "2s")
	v.SetDefault("status.port", 0)
	v.SetDefault("status.rate_limit_rps", 10)
	v.SetDefault("status.rate_limit_burst", 20)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(cfg.Client.DataDir, "journal.db")
	}
	return cfg, nil
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "A_Bugs_Life_Archipelago")
}
