// Package config loads the service configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mangaeliso/inala-backoffice/pkg/period"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Books   BooksConfig   `toml:"books"`
}

type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type BooksConfig struct {
	// FiscalStartDay is the day of the month the business month opens (1-28).
	FiscalStartDay int `toml:"fiscal_start_day"`
	// LoanJobInterval is how often the interest jobs run.
	LoanJobInterval Duration `toml:"loan_job_interval"`
}

// Duration wraps time.Duration so TOML values like "24h" parse directly.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server:  ServerConfig{ListenAddr: ":8080"},
		Storage: StorageConfig{Path: "inala.db"},
		Books: BooksConfig{
			FiscalStartDay:  period.DefaultFiscalStartDay,
			LoanJobInterval: Duration{24 * time.Hour},
		},
	}
}

// Load reads a TOML config file, filling unset fields from the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file: %w", err)
	}

	if !period.ValidStartDay(cfg.Books.FiscalStartDay) {
		return cfg, fmt.Errorf("fiscal_start_day must be between 1 and 28, got %d", cfg.Books.FiscalStartDay)
	}
	if cfg.Books.LoanJobInterval.Duration <= 0 {
		return cfg, fmt.Errorf("loan_job_interval must be positive")
	}

	return cfg, nil
}
