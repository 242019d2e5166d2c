package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeSyncRunner runs the periodic job synchronization loop.
	ServiceModeSyncRunner ServiceMode = "sync-runner"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeSyncRunner,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeSyncRunner:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: sync-runner)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SyncRunnerConfig contains sync runner service configuration.
type SyncRunnerConfig struct {
	// Interval is the sync loop tick interval.
	Interval time.Duration `env:"SYNC_RUNNER_INTERVAL" envDefault:"5s"`

	// PageSize is the maximum number of jobs synchronized per tick.
	PageSize int `env:"SYNC_RUNNER_PAGE_SIZE" envDefault:"100"`

	// Concurrency is the number of parallel state fetches per tick.
	Concurrency int `env:"SYNC_RUNNER_CONCURRENCY" envDefault:"5"`
}

// Sanitize applies guardrails to sync runner configuration values.
func (s *SyncRunnerConfig) Sanitize() {
	// Enforce a minimum interval to avoid hammering the job service
	if s.Interval < time.Second {
		s.Interval = time.Second
	}
	if s.PageSize < 1 {
		s.PageSize = 1
	}
	if s.PageSize > 1000 {
		s.PageSize = 1000
	}
	if s.Concurrency < 1 {
		s.Concurrency = 1
	}
	if s.Concurrency > 50 {
		s.Concurrency = 50
	}
}
