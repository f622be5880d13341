package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration in priority order: defaults, then the given
// configuration file, then XRPLREMOTE_ environment variables. The result is
// normalized and validated; validation errors are fatal.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("XRPLREMOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Normalize()
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults seeds viper with the default option values. Every Config key
// must be seeded here: keys viper has never seen are invisible to
// AutomaticEnv and their environment overrides would be dropped.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	v.SetDefault("trusted", defaults.Trusted)
	v.SetDefault("local_sequence", defaults.LocalSequence)
	v.SetDefault("local_fee", defaults.LocalFee)
	v.SetDefault("local_signing", defaults.LocalSigning)
	v.SetDefault("canonical_signing", defaults.CanonicalSigning)
	v.SetDefault("fee_cushion", defaults.FeeCushion)
	v.SetDefault("max_fee", defaults.MaxFee)
	v.SetDefault("connection_offset", defaults.ConnectionOffset)
	v.SetDefault("submission_timeout", defaults.SubmissionTimeout)
	v.SetDefault("ping", defaults.Ping)
	v.SetDefault("max_listeners", defaults.MaxListeners)
	v.SetDefault("servers", defaults.Servers)
	v.SetDefault("storage_path", defaults.StoragePath)
	v.SetDefault("storage_backend", defaults.StorageBackend)
	v.SetDefault("stand_alone", defaults.StandAlone)
	v.SetDefault("testnet", defaults.Testnet)
}
