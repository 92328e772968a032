package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittohttp/pkg/adapter/http"
	"github.com/marmos91/dittohttp/pkg/ratelimit"
	"github.com/spf13/viper"
)

// Defaults for HTTP settings where 0 is a meaningful value ("off"). They are
// registered with viper in Load, so an explicit 0 in a file or in the
// environment survives, and ApplyDefaults leaves them alone.
const (
	DefaultSimulatedDelay = time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
)

// setViperDefaults registers defaults that must be told apart from an
// explicit zero.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("adapters.http.simulated_delay", DefaultSimulatedDelay)
	v.SetDefault("adapters.http.read_timeout", DefaultReadTimeout)
	v.SetDefault("adapters.http.write_timeout", DefaultWriteTimeout)
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyCountersDefaults(&cfg.Counters)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyCountersDefaults sets counter store defaults.
func applyCountersDefaults(cfg *CountersConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	// Populated for every type so a generated config file documents them.
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittohttp-counters"
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
	if _, ok := cfg.S3["key_prefix"]; !ok {
		cfg.S3["key_prefix"] = "dittohttp"
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// A config with no HTTP section at all still serves: Port 0 here means
	// nothing was configured, since the ephemeral port is only useful in tests.
	if !cfg.HTTP.Enabled && cfg.HTTP.Port == 0 {
		cfg.HTTP.Enabled = true
	}

	applyHTTPDefaults(&cfg.HTTP)
}

// applyHTTPDefaults sets HTTP adapter defaults.
//
// SimulatedDelay, ReadTimeout and WriteTimeout are not touched: 0 turns them
// off. Their defaults come from setViperDefaults.
func applyHTTPDefaults(cfg *http.HTTPConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Mode == "" {
		cfg.Mode = http.ModePool
	}
	if cfg.Workers == 0 {
		cfg.Workers = 10
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = ratelimit.DefaultLimit
	}
	if cfg.RateWindow == 0 {
		cfg.RateWindow = ratelimit.DefaultWindow
	}
	if cfg.RateSweepInterval == 0 {
		cfg.RateSweepInterval = time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			HTTP: http.HTTPConfig{
				Enabled:        true,
				SimulatedDelay: DefaultSimulatedDelay,
				ReadTimeout:    DefaultReadTimeout,
				WriteTimeout:   DefaultWriteTimeout,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
