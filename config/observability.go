package config

import "strings"

// ObservabilityConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityConfig struct {
	MetricsEnabled bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress  string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	StatsdPrefix   string `env:"OBSERVABILITY_METRICS_STATSD_PREFIX"  envDefault:"studio_engine"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.StatsdPrefix = strings.TrimSpace(c.StatsdPrefix)
	if c.StatsdAddress == "" {
		c.MetricsEnabled = false
	}
}

// MetricsActive returns true when metrics emission is enabled after sanitisation.
func (c *ObservabilityConfig) MetricsActive() bool {
	return c.MetricsEnabled && c.StatsdAddress != ""
}
