// Package config provides configuration management for the backtester CLI.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/quantfold/optback/internal/backtest"
	"github.com/quantfold/optback/internal/commission"
	"github.com/quantfold/optback/internal/feed"
	"github.com/quantfold/optback/internal/signal"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Data        DataConfig        `yaml:"data"`
	Symbols     []string          `yaml:"symbols"`
	Strategies  []string          `yaml:"strategies"`
	Backtest    backtest.Config   `yaml:"backtest"`
	Commission  CommissionConfig  `yaml:"commission"`
	Signal      SignalConfig      `yaml:"signal"`
	Output      OutputConfig      `yaml:"output"`
	Storage     StorageConfig     `yaml:"storage"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// DataConfig defines where option chain data comes from: a directory of
// per-symbol CSV files, or a remote endpoint when base_url is set.
type DataConfig struct {
	Dir      string       `yaml:"dir"`
	BaseURL  string       `yaml:"base_url"`
	APIKey   string       `yaml:"api_key"`
	SkipRows int          `yaml:"skip_rows"`
	Columns  ColumnConfig `yaml:"columns"`
}

// ColumnConfig maps chain fields to CSV column indices. Optional fields
// default to -1 (absent).
type ColumnConfig struct {
	UnderlyingSymbol int `yaml:"underlying_symbol"`
	UnderlyingPrice  int `yaml:"underlying_price"`
	OptionType       int `yaml:"option_type"`
	Expiration       int `yaml:"expiration"`
	QuoteDate        int `yaml:"quote_date"`
	Strike           int `yaml:"strike"`
	Bid              int `yaml:"bid"`
	Ask              int `yaml:"ask"`
	Delta            int `yaml:"delta"`
	Gamma            int `yaml:"gamma"`
	Theta            int `yaml:"theta"`
	Vega             int `yaml:"vega"`
	Volume           int `yaml:"volume"`
}

// CommissionConfig defines the commission schedule applied to trades.
type CommissionConfig struct {
	PerContract float64 `yaml:"per_contract"`
}

// SignalConfig selects an optional entry signal. Type is one of rsi_below,
// rsi_above, sma_below, sma_above, day_of_week, or empty for none.
type SignalConfig struct {
	Type      string   `yaml:"type"`
	Period    int      `yaml:"period"`
	Threshold float64  `yaml:"threshold"`
	Days      []string `yaml:"days"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Format string `yaml:"format"` // table | csv
	Path   string `yaml:"path"`   // empty writes to stdout
}

// StorageConfig defines storage settings for run results.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DashboardConfig defines the results API server settings.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	config := Default()
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Default returns the configuration used when a field is absent from the
// YAML file. Optional CSV columns start disabled.
func Default() *Config {
	return &Config{
		Environment: EnvironmentConfig{LogLevel: "info"},
		Data: DataConfig{
			SkipRows: 1,
			Columns: ColumnConfig{
				UnderlyingSymbol: 0, UnderlyingPrice: 1, OptionType: 2,
				Expiration: 3, QuoteDate: 4, Strike: 5, Bid: 6, Ask: 7,
				Delta: -1, Gamma: -1, Theta: -1, Vega: -1, Volume: -1,
			},
		},
		Backtest:  backtest.DefaultConfig(),
		Output:    OutputConfig{Format: "table"},
		Storage:   StorageConfig{Path: "optback_runs.json"},
		Dashboard: DashboardConfig{Port: 9847},
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	switch c.Environment.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	if c.Data.Dir == "" && c.Data.BaseURL == "" {
		return fmt.Errorf("data.dir or data.base_url must be set")
	}
	if c.Data.Dir != "" && c.Data.BaseURL != "" {
		return fmt.Errorf("data.dir and data.base_url are mutually exclusive")
	}
	if c.Data.SkipRows < 0 {
		return fmt.Errorf("data.skip_rows must not be negative")
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must name at least one underlying")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("strategies must name at least one strategy")
	}
	for _, name := range c.Strategies {
		if _, ok := backtest.Catalog[name]; !ok {
			return fmt.Errorf("strategies: unknown strategy %q", name)
		}
	}

	if c.Commission.PerContract < 0 {
		return fmt.Errorf("commission.per_contract must not be negative")
	}

	if _, err := c.BuildSignal(); err != nil {
		return err
	}

	switch c.Output.Format {
	case "", "table", "csv":
	default:
		return fmt.Errorf("output.format must be 'table' or 'csv'")
	}

	if c.Dashboard.Enabled {
		if c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535 {
			return fmt.Errorf("dashboard.port must be in (0, 65535]")
		}
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required when the dashboard is enabled")
		}
	}

	return c.Backtest.Validate()
}

// Columns converts the YAML column mapping to the feed representation.
func (c *Config) Columns() feed.ColumnMap {
	return feed.ColumnMap{
		UnderlyingSymbol: c.Data.Columns.UnderlyingSymbol,
		UnderlyingPrice:  c.Data.Columns.UnderlyingPrice,
		OptionType:       c.Data.Columns.OptionType,
		Expiration:       c.Data.Columns.Expiration,
		QuoteDate:        c.Data.Columns.QuoteDate,
		Strike:           c.Data.Columns.Strike,
		Bid:              c.Data.Columns.Bid,
		Ask:              c.Data.Columns.Ask,
		Delta:            c.Data.Columns.Delta,
		Gamma:            c.Data.Columns.Gamma,
		Theta:            c.Data.Columns.Theta,
		Vega:             c.Data.Columns.Vega,
		Volume:           c.Data.Columns.Volume,
	}
}

// BuildSignal constructs the configured entry signal, or nil when none is
// configured.
func (c *Config) BuildSignal() (signal.Func, error) {
	s := c.Signal
	switch s.Type {
	case "":
		return nil, nil
	case "rsi_below":
		if s.Period <= 0 {
			return nil, fmt.Errorf("signal.period must be positive for %s", s.Type)
		}
		return signal.RSIBelow(s.Period, s.Threshold), nil
	case "rsi_above":
		if s.Period <= 0 {
			return nil, fmt.Errorf("signal.period must be positive for %s", s.Type)
		}
		return signal.RSIAbove(s.Period, s.Threshold), nil
	case "sma_below":
		if s.Period <= 0 {
			return nil, fmt.Errorf("signal.period must be positive for %s", s.Type)
		}
		return signal.SMABelow(s.Period), nil
	case "sma_above":
		if s.Period <= 0 {
			return nil, fmt.Errorf("signal.period must be positive for %s", s.Type)
		}
		return signal.SMAAbove(s.Period), nil
	case "day_of_week":
		days := make([]time.Weekday, 0, len(s.Days))
		for _, name := range s.Days {
			day, err := parseWeekday(name)
			if err != nil {
				return nil, err
			}
			days = append(days, day)
		}
		if len(days) == 0 {
			return nil, fmt.Errorf("signal.days must name at least one weekday")
		}
		return signal.DayOfWeek(days...), nil
	}
	return nil, fmt.Errorf("signal.type %q is not recognized", s.Type)
}

// BuildCommission constructs the configured commission schedule, or nil for
// commission-free runs.
func (c *Config) BuildCommission() commission.Schedule {
	if c.Commission.PerContract == 0 {
		return nil
	}
	return commission.PerContract(c.Commission.PerContract)
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(name) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("signal.days: unknown weekday %q", name)
}
