package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittohttp/pkg/adapter/http"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.HTTP.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	h := cfg.Adapters.HTTP
	if h.Mode == http.ModePool && h.Workers < 1 {
		return fmt.Errorf("adapters.http.workers: must be >= 1 in pool mode, got %d", h.Workers)
	}
	if h.RateLimit < 1 {
		return fmt.Errorf("adapters.http.rate_limit: must be >= 1, got %d", h.RateLimit)
	}
	if h.RateWindow <= 0 {
		return fmt.Errorf("adapters.http.rate_window: must be > 0, got %v", h.RateWindow)
	}
	if h.AcceptBurst > 0 && h.AcceptRate == 0 {
		return fmt.Errorf("adapters.http.accept_burst: set without accept_rate")
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == h.Port {
		return fmt.Errorf("server.metrics.port: %d is already used by the HTTP adapter", h.Port)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
