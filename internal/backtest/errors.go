package backtest

import "fmt"

// ConfigError reports an out-of-range strategy parameter. It is surfaced
// before any computation; empty results are never errors.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

func configErrf(key, format string, args ...interface{}) error {
	return &ConfigError{Key: key, Reason: fmt.Sprintf(format, args...)}
}
