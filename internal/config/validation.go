package config

import (
	"fmt"
	"strings"
)

// OptionError is a fatal configuration error naming the offending option.
type OptionError struct {
	Option string
	Reason string
}

// Error returns the error message.
func (e *OptionError) Error() string {
	return fmt.Sprintf("config option %q: %s", e.Option, e.Reason)
}

// NewOptionError creates an OptionError.
func NewOptionError(option, reason string) *OptionError {
	return &OptionError{Option: option, Reason: reason}
}

// Validate checks the configuration. Errors here are fatal at construction
// and never recovered from.
func Validate(c *Config) error {
	if c.FeeCushion < 1 {
		return NewOptionError("fee_cushion", "must be at least 1")
	}
	if c.MaxFee <= 0 {
		return NewOptionError("max_fee", "must be positive")
	}
	if c.ConnectionOffset < 0 {
		return NewOptionError("connection_offset", "cannot be negative")
	}
	if c.SubmissionTimeout <= 0 {
		return NewOptionError("submission_timeout", "must be positive")
	}
	if c.Ping < 0 {
		return NewOptionError("ping", "cannot be negative")
	}
	if c.MaxListeners < 0 {
		return NewOptionError("max_listeners", "cannot be negative")
	}

	switch strings.ToLower(c.StorageBackend) {
	case "", "bbolt", "pebble":
	default:
		return NewOptionError("storage_backend", fmt.Sprintf("unknown backend %q", c.StorageBackend))
	}

	primaries := 0
	for i, s := range c.Servers {
		opt := fmt.Sprintf("servers[%d]", i)
		if s.Host == "" {
			return NewOptionError(opt+".host", "cannot be empty")
		}
		if s.Port == 0 {
			return NewOptionError(opt+".port", "must be positive")
		}
		if s.Pool < 0 {
			return NewOptionError(opt+".pool", "cannot be negative")
		}
		if s.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		return NewOptionError("servers", "at most one server may be primary")
	}

	return nil
}
