package config

import (
	"fmt"

	"github.com/marmos91/dittohttp/pkg/adapter"
	"github.com/marmos91/dittohttp/pkg/adapter/http"
	"github.com/marmos91/dittohttp/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// httpMetrics may be nil, in which case the adapter records nothing.
func CreateAdapters(cfg *Config, httpMetrics metrics.HTTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.HTTP.Enabled {
		adapters = append(adapters, http.New(cfg.Adapters.HTTP, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
