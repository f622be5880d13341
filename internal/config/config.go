// Package config loads and validates the client runtime configuration.
package config

import (
	"math"
	"time"
)

// Default configuration values.
const (
	DefaultFeeCushion        = 1.2
	DefaultSubmissionTimeout = 10 * time.Second
	DefaultConnectionOffset  = 0 * time.Second
	DefaultMaxListeners      = 0 // unlimited
	DefaultStorageBackend    = "bbolt"
)

// ServerConfig describes one network node to connect to.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    uint16 `mapstructure:"port"`
	Secure  bool   `mapstructure:"secure"`
	Primary bool   `mapstructure:"primary"`
	Pool    int    `mapstructure:"pool"`
}

// Config is the recognized option surface of the client runtime.
type Config struct {
	// Trusted marks server responses as trusted; nothing is cryptographically
	// verified either way.
	Trusted bool `mapstructure:"trusted"`

	// LocalSequence, LocalFee and LocalSigning select client-side handling of
	// sequence numbers, fees and signing. LocalSigning forces the other two.
	LocalSequence    bool `mapstructure:"local_sequence"`
	LocalFee         bool `mapstructure:"local_fee"`
	LocalSigning     bool `mapstructure:"local_signing"`
	CanonicalSigning bool `mapstructure:"canonical_signing"`

	// FeeCushion scales locally computed fees; MaxFee caps them, in drops.
	FeeCushion float64 `mapstructure:"fee_cushion"`
	MaxFee     float64 `mapstructure:"max_fee"`

	// ConnectionOffset staggers multi-node connects.
	ConnectionOffset time.Duration `mapstructure:"connection_offset"`

	// SubmissionTimeout is threaded through to outgoing operations for
	// collaborators to honor; the coordinator does not enforce it.
	SubmissionTimeout time.Duration `mapstructure:"submission_timeout"`

	// Ping enables transport keepalive at the given interval; zero disables.
	Ping time.Duration `mapstructure:"ping"`

	// MaxListeners bounds event listeners per type; zero means unlimited.
	MaxListeners int `mapstructure:"max_listeners"`

	// Servers are the nodes the remote connects to.
	Servers []ServerConfig `mapstructure:"servers"`

	// StoragePath enables the pending-operation store when non-empty;
	// StorageBackend selects its engine ("bbolt" or "pebble").
	StoragePath    string `mapstructure:"storage_path"`
	StorageBackend string `mapstructure:"storage_backend"`

	// StandAlone and Testnet describe the target network.
	StandAlone bool `mapstructure:"stand_alone"`
	Testnet    bool `mapstructure:"testnet"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FeeCushion:        DefaultFeeCushion,
		MaxFee:            math.Inf(1),
		ConnectionOffset:  DefaultConnectionOffset,
		SubmissionTimeout: DefaultSubmissionTimeout,
		MaxListeners:      DefaultMaxListeners,
		StorageBackend:    DefaultStorageBackend,
	}
}

// Normalize applies the option coupling rules: local signing forces local
// sequence and local fee handling.
func (c *Config) Normalize() {
	if c.LocalSigning {
		c.LocalSequence = true
		c.LocalFee = true
	}
}
