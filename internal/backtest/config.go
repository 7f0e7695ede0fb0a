package backtest

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/quantfold/optback/internal/commission"
	"github.com/quantfold/optback/internal/signal"
)

// Config holds the parameters of one backtest invocation. Zero values are
// not meaningful defaults; start from DefaultConfig and override.
type Config struct {
	DTEInterval      int     `yaml:"dte_interval"`
	MaxEntryDTE      int     `yaml:"max_entry_dte"`
	ExitDTE          int     `yaml:"exit_dte"`
	ExitDTETolerance int     `yaml:"exit_dte_tolerance"`
	OTMPctInterval   float64 `yaml:"otm_pct_interval"`
	MaxOTMPct        float64 `yaml:"max_otm_pct"`
	MinBidAsk        float64 `yaml:"min_bid_ask"`
	Raw              bool    `yaml:"raw"`
	DropNaN          bool    `yaml:"drop_nan"`

	// Calendar/diagonal spread windows. Only consulted by the two-expiration
	// strategies; front and back ranges must not overlap.
	FrontDTEMin int `yaml:"front_dte_min"`
	FrontDTEMax int `yaml:"front_dte_max"`
	BackDTEMin  int `yaml:"back_dte_min"`
	BackDTEMax  int `yaml:"back_dte_max"`

	// Optional collaborators, wired in code rather than from YAML.
	EntrySignal signal.Func         `yaml:"-" json:"-"`
	Commission  commission.Schedule `yaml:"-" json:"-"`

	// Entry dates admitted by EntrySignal, keyed by symbol then day. Filled
	// by the engine before matching; nil admits every date. Exit quotes are
	// never signal-filtered, so this cannot live in the row preprocessing.
	entryDates map[string]map[int64]bool
}

// entryAllowed reports whether a quote date is eligible for trade entry.
func (c Config) entryAllowed(symbol string, day int64) bool {
	if c.entryDates == nil {
		return true
	}
	return c.entryDates[symbol][day]
}

// DefaultConfig returns the standard parameter set for same-expiration
// strategies.
func DefaultConfig() Config {
	return Config{
		DTEInterval:    7,
		MaxEntryDTE:    90,
		ExitDTE:        0,
		OTMPctInterval: 0.05,
		MaxOTMPct:      0.5,
		MinBidAsk:      0.05,
		DropNaN:        true,
		FrontDTEMin:    20,
		FrontDTEMax:    40,
		BackDTEMin:     50,
		BackDTEMax:     90,
	}
}

// CalendarDefaults is DefaultConfig adjusted for calendar and diagonal
// spreads, which exit before the front leg expires.
func CalendarDefaults() Config {
	cfg := DefaultConfig()
	cfg.ExitDTE = 7
	return cfg
}

// LoadConfig reads a YAML file into a DefaultConfig base, expanding
// environment variables and rejecting unknown keys, then validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) // #nosec G304 -- path is a user-provided config file
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every numeric bound before any computation runs. The
// returned ConfigError names the offending key.
func (c Config) Validate() error {
	if c.DTEInterval <= 0 {
		return configErrf("dte_interval", "must be a positive integer, got %d", c.DTEInterval)
	}
	if c.MaxEntryDTE <= 0 {
		return configErrf("max_entry_dte", "must be a positive integer, got %d", c.MaxEntryDTE)
	}
	if c.ExitDTE < 0 {
		return configErrf("exit_dte", "must be zero or a positive integer, got %d", c.ExitDTE)
	}
	if c.ExitDTETolerance < 0 {
		return configErrf("exit_dte_tolerance", "must be zero or a positive integer, got %d", c.ExitDTETolerance)
	}
	if c.OTMPctInterval <= 0 {
		return configErrf("otm_pct_interval", "must be a positive number, got %v", c.OTMPctInterval)
	}
	if c.MaxOTMPct <= 0 {
		return configErrf("max_otm_pct", "must be a positive number, got %v", c.MaxOTMPct)
	}
	if c.MinBidAsk < 0 {
		return configErrf("min_bid_ask", "must be zero or a positive number, got %v", c.MinBidAsk)
	}
	if c.ExitDTE > c.MaxEntryDTE {
		return configErrf("exit_dte", "exit dte %d exceeds max_entry_dte %d", c.ExitDTE, c.MaxEntryDTE)
	}
	return nil
}

// validateCalendar runs Validate plus the front/back window constraints the
// two-expiration strategies need.
func (c Config) validateCalendar() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.FrontDTEMin <= 0 {
		return configErrf("front_dte_min", "must be a positive integer, got %d", c.FrontDTEMin)
	}
	if c.FrontDTEMax <= 0 {
		return configErrf("front_dte_max", "must be a positive integer, got %d", c.FrontDTEMax)
	}
	if c.BackDTEMin <= 0 {
		return configErrf("back_dte_min", "must be a positive integer, got %d", c.BackDTEMin)
	}
	if c.BackDTEMax <= 0 {
		return configErrf("back_dte_max", "must be a positive integer, got %d", c.BackDTEMax)
	}
	if c.FrontDTEMin > c.FrontDTEMax {
		return configErrf("front_dte_min", "%d must be <= front_dte_max %d", c.FrontDTEMin, c.FrontDTEMax)
	}
	if c.BackDTEMin > c.BackDTEMax {
		return configErrf("back_dte_min", "%d must be <= back_dte_max %d", c.BackDTEMin, c.BackDTEMax)
	}
	if c.FrontDTEMax >= c.BackDTEMin {
		return configErrf("front_dte_max", "%d must be < back_dte_min %d to keep the ranges disjoint", c.FrontDTEMax, c.BackDTEMin)
	}
	return nil
}
