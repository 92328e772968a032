package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittohttp/pkg/adapter/http"
	"gopkg.in/yaml.v3"
)

// InitConfig writes a default configuration file to the default location.
//
// Returns the path written. Fails if a file already exists there, unless
// force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// configSection is one top-level block of the generated file.
type configSection struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg as YAML, one commented block per
// top-level section. Durations are written as strings ("30s") so the file
// reads the way an operator would write it.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var b strings.Builder

	b.WriteString("# dittohttp Configuration File\n")
	b.WriteString("#\n")
	b.WriteString("# Every value can be overridden with a DITTOHTTP_* environment variable,\n")
	b.WriteString("# e.g. DITTOHTTP_LOGGING_LEVEL=DEBUG.\n")

	sections := []configSection{
		{
			key:     "logging",
			comment: "Logging: level is DEBUG, INFO, WARN or ERROR; format is text or json;\noutput is stdout, stderr or a file path.",
			value: map[string]any{
				"level":  cfg.Logging.Level,
				"format": cfg.Logging.Format,
				"output": cfg.Logging.Output,
			},
		},
		{
			key:     "server",
			comment: "Server-wide settings. The metrics server exposes /metrics and /healthz.",
			value: map[string]any{
				"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
				"metrics": map[string]any{
					"enabled": cfg.Server.Metrics.Enabled,
					"port":    cfg.Server.Metrics.Port,
				},
			},
		},
		{
			key:     "counters",
			comment: "Visit-count persistence: memory (lost on exit), badger or s3.\nflush_interval of 0 saves only on shutdown.",
			value: map[string]any{
				"type":           cfg.Counters.Type,
				"flush_interval": cfg.Counters.FlushInterval.String(),
				"memory":         cfg.Counters.Memory,
				"badger":         cfg.Counters.Badger,
				"s3":             cfg.Counters.S3,
			},
		},
		{
			key:     "adapters",
			comment: "Protocol adapters. mode is pool (bounded workers) or single (one\nconnection at a time). simulated_delay is slept on every resolved request.",
			value: map[string]any{
				"http": httpConfigMap(cfg.Adapters.HTTP),
			},
		},
	}

	for _, section := range sections {
		out, err := yaml.Marshal(map[string]any{section.key: section.value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s section: %w", section.key, err)
		}

		b.WriteString("\n")
		for _, line := range strings.Split(section.comment, "\n") {
			b.WriteString("# ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.Write(out)
	}

	return b.String(), nil
}

func httpConfigMap(c http.HTTPConfig) map[string]any {
	return map[string]any{
		"enabled":             c.Enabled,
		"host":                c.Host,
		"port":                c.Port,
		"root":                c.Root,
		"mode":                c.Mode,
		"workers":             c.Workers,
		"rate_limit":          c.RateLimit,
		"rate_window":         c.RateWindow.String(),
		"rate_sweep_interval": c.RateSweepInterval.String(),
		"simulated_delay":     c.SimulatedDelay.String(),
		"read_timeout":        c.ReadTimeout.String(),
		"write_timeout":       c.WriteTimeout.String(),
		"accept_rate":         c.AcceptRate,
		"accept_burst":        c.AcceptBurst,
	}
}
