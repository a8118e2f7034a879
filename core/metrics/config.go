package metrics

import "github.com/kilianp07/vann/core/factory"

// Config defines the metrics sinks and the Prometheus endpoint.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr enables the /metrics HTTP endpoint when set.
	PrometheusAddr string `json:"prometheus_addr"`
}
