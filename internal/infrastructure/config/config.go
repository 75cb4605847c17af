package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	HTTPServer struct {
		Addr string `yaml:"addr" env:"FX_HTTP_ADDR" env-default:":8080"`
	} `yaml:"http_server"`

	Log struct {
		Level string `yaml:"level" env:"FX_LOG_LEVEL" env-default:"INFO"`
	} `yaml:"log"`

	DefaultBase string `yaml:"default_base" env:"FX_DEFAULT_BASE" env-default:"USD"`

	RateAPI struct {
		CurrentURL    string        `yaml:"current_url" env:"FX_CURRENT_URL" env-default:"https://open.er-api.com/v6/latest"`
		HistoricalURL string        `yaml:"historical_url" env:"FX_HISTORICAL_URL" env-default:"https://api.frankfurter.app"`
		ProbeURL      string        `yaml:"probe_url" env:"FX_PROBE_URL" env-default:"https://8.8.8.8"`
		ProbeTimeout  time.Duration `yaml:"probe_timeout" env:"FX_PROBE_TIMEOUT" env-default:"1s"`
		FetchTimeout  time.Duration `yaml:"fetch_timeout" env:"FX_FETCH_TIMEOUT" env-default:"5s"`
		Retries       int           `yaml:"retries" env:"FX_FETCH_RETRIES" env-default:"0"`
		PauseEvery    int           `yaml:"pause_every" env:"FX_PAUSE_EVERY" env-default:"5"`
		Pause         time.Duration `yaml:"pause" env:"FX_PAUSE" env-default:"1s"`
	} `yaml:"rate_api"`

	Cache struct {
		Dir           string        `yaml:"dir" env:"FX_CACHE_DIR" env-default:"data/cache"`
		CurrentTTL    time.Duration `yaml:"current_ttl" env:"FX_CURRENT_TTL" env-default:"1h"`
		HistoricalTTL time.Duration `yaml:"historical_ttl" env:"FX_HISTORICAL_TTL" env-default:"24h"`
	} `yaml:"cache"`

	Reference struct {
		CurrenciesPath string `yaml:"currencies_path" env:"FX_CURRENCIES_PATH"`
	} `yaml:"reference"`

	History struct {
		Path  string `yaml:"path" env:"FX_HISTORY_PATH" env-default:"data/history"`
		Limit int    `yaml:"limit" env:"FX_HISTORY_LIMIT" env-default:"10"`
	} `yaml:"history"`
}

// Load reads an optional .env file, then the YAML file at path (when set) with environment
// overrides, or the environment alone.
func Load(path string, envFiles ...string) (*Config, error) {
	// A missing .env file is normal
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.DefaultBase = strings.ToUpper(strings.TrimSpace(cfg.DefaultBase))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every limit is usable
func (c *Config) Validate() error {
	if c.DefaultBase == "" {
		return fmt.Errorf("default_base is required")
	}
	if c.RateAPI.ProbeTimeout <= 0 {
		return fmt.Errorf("rate_api.probe_timeout must be positive")
	}
	if c.RateAPI.FetchTimeout <= 0 {
		return fmt.Errorf("rate_api.fetch_timeout must be positive")
	}
	if c.RateAPI.Retries < 0 {
		return fmt.Errorf("rate_api.retries must not be negative")
	}
	if c.RateAPI.PauseEvery < 0 || c.RateAPI.Pause < 0 {
		return fmt.Errorf("rate_api pause settings must not be negative")
	}
	if c.Cache.CurrentTTL <= 0 || c.Cache.HistoricalTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required")
	}
	return nil
}
