// Package config loads run settings from OPTIV_* environment variables and
// an optional YAML file. Precedence: file > environment > defaults.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/contactkeval/option-iv/internal/data"
	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
	"github.com/contactkeval/option-iv/internal/rootfind"
)

// EnvPrefix prefixes every environment variable, e.g. OPTIV_SOLVER_METHOD.
const EnvPrefix = "OPTIV"

// Config represents the complete application configuration
type Config struct {
	Solver  SolverConfig  `yaml:"solver" envconfig:"SOLVER"`
	Data    DataConfig    `yaml:"data" envconfig:"DATA"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Report  ReportConfig  `yaml:"report" envconfig:"REPORT"`
}

// SolverConfig holds the implied volatility solver settings.
type SolverConfig struct {
	Method        string  `yaml:"method" envconfig:"METHOD" default:"newton" validate:"oneof=bisection newton"`
	Tolerance     float64 `yaml:"tolerance" envconfig:"TOLERANCE" default:"1e-6" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" default:"100" validate:"gt=0"`
	LowerVol      float64 `yaml:"lower_vol" envconfig:"LOWER_VOL" default:"1e-6" validate:"gt=0"`
	UpperVol      float64 `yaml:"upper_vol" envconfig:"UPPER_VOL" default:"20" validate:"gtfield=LowerVol"`
	InitialGuess  float64 `yaml:"initial_guess" envconfig:"INITIAL_GUESS" default:"1" validate:"gt=0"`
}

// DataConfig selects where quotes come from.
type DataConfig struct {
	Source          string   `yaml:"source" envconfig:"SOURCE" default:"csv" validate:"oneof=csv massive synthetic"`
	Dir             string   `yaml:"dir" envconfig:"DIR" default:"data/cleaned"`
	RawDir          string   `yaml:"raw_dir" envconfig:"RAW_DIR" default:"data/raw"`
	Underlyings     []string `yaml:"underlyings" envconfig:"UNDERLYINGS" default:"^SPX,TSLA"`
	Months          int      `yaml:"months" envconfig:"MONTHS" default:"3" validate:"gte=0"`
	ExpiryDayOffset int      `yaml:"expiry_day_offset" envconfig:"EXPIRY_DAY_OFFSET" default:"0"`
	Rate            float64  `yaml:"rate" envconfig:"RATE" default:"0.0364"`
	APIKey          string   `yaml:"api_key" envconfig:"API_KEY"`

	// RequestsPerMinute throttles Massive snapshot requests; the free tier allows 5.
	RequestsPerMinute int `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE" default:"5" validate:"gte=0"`

	// Filter is a quote filter expression, see data.NewQuoteFilter.
	Filter string `yaml:"filter" envconfig:"FILTER"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL" default:"info"`
}

// ReportConfig controls where results go and how many quotes are solved at once.
type ReportConfig struct {
	Dir     string   `yaml:"dir" envconfig:"DIR" default:"reports"`
	Formats []string `yaml:"formats" envconfig:"FORMATS" default:"json,csv" validate:"min=1,dive,oneof=json csv xlsx"`
	Workers int      `yaml:"workers" envconfig:"WORKERS" default:"4" validate:"gt=0"`
}

// Load reads the environment, then path if it is non-empty, and validates
// the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if cfg.Data.APIKey == "" {
		cfg.Data.APIKey = os.Getenv("MASSIVE_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value.
func loadFromFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

// Validate checks field constraints and that the log level and quote
// filter parse.
func (c *Config) Validate() error {
	if err := pricing.Validator().Struct(c); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := data.NewQuoteFilter(c.Data.Filter); err != nil {
		return err
	}
	if c.Data.Source == "massive" && c.Data.APIKey == "" {
		return fmt.Errorf("data source massive needs an API key (OPTIV_DATA_API_KEY or MASSIVE_API_KEY)")
	}
	return nil
}

// ParsedMethod returns the configured method. Validate has already
// rejected unknown names, so the Newton fallback is never hit after Load.
func (s SolverConfig) ParsedMethod() pricing.Method {
	m, err := pricing.ParseMethod(s.Method)
	if err != nil {
		return pricing.Newton
	}
	return m
}

// IVOptions turns the solver settings into pricing options.
func (s SolverConfig) IVOptions() []pricing.IVOption {
	return []pricing.IVOption{
		pricing.WithBracket(s.LowerVol, s.UpperVol),
		pricing.WithInitialGuess(s.InitialGuess),
		pricing.WithSolverOptions(
			rootfind.WithTolerance(s.Tolerance),
			rootfind.WithMaxIterations(s.MaxIterations),
		),
	}
}

// MassiveOptions turns the data settings into Massive provider options.
func (d DataConfig) MassiveOptions() data.MassiveOptions {
	return data.MassiveOptions{
		Months:            d.Months,
		ExpiryDayOffset:   d.ExpiryDayOffset,
		Rate:              d.Rate,
		RequestsPerMinute: d.RequestsPerMinute,
	}
}

// Verbosity returns the configured log level, defaulting to Info.
func (l LoggingConfig) Verbosity() logger.Level {
	lvl, err := logger.ParseLevel(l.Level)
	if err != nil {
		return logger.Info
	}
	return lvl
}
