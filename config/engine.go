package config

import "time"

// AIJobsConfig contains AI job service client configuration.
type AIJobsConfig struct {
	// BaseURL is the root URL of the AI job service API.
	BaseURL string `env:"BASE_URL" envDefault:"https://api.studio-jobs.dev"`

	// APIKey authenticates requests to the job service.
	APIKey string `env:"API_KEY"`

	// Timeout bounds each HTTP request to the job service.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// CatalogConfig contains destination catalog client configuration.
type CatalogConfig struct {
	// Endpoint is the catalog's GraphQL endpoint URL.
	Endpoint string `env:"ENDPOINT"`

	// AccessToken authenticates catalog mutations.
	AccessToken string `env:"ACCESS_TOKEN"`

	// Timeout bounds each catalog request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// UploadConfig contains delivery pipeline configuration.
type UploadConfig struct {
	// MaxAttempts is the retry budget for each transient-failure-prone step.
	MaxAttempts int `env:"UPLOAD_MAX_ATTEMPTS" envDefault:"3"`

	// BaseDelay is the first retry delay; subsequent delays double.
	BaseDelay time.Duration `env:"UPLOAD_BASE_DELAY" envDefault:"1s"`

	// Concurrency bounds parallel uploads in a batch delivery.
	Concurrency int `env:"UPLOAD_CONCURRENCY" envDefault:"4"`

	// MaxImageBytes is the largest source image accepted for delivery.
	MaxImageBytes int64 `env:"UPLOAD_MAX_IMAGE_BYTES" envDefault:"20971520"` // 20 MiB
}

// Sanitize applies guardrails to upload configuration values.
func (u *UploadConfig) Sanitize() {
	if u.MaxAttempts < 1 {
		u.MaxAttempts = 1
	}
	if u.BaseDelay < 100*time.Millisecond {
		u.BaseDelay = 100 * time.Millisecond
	}
	if u.Concurrency < 1 {
		u.Concurrency = 1
	}
	if u.MaxImageBytes < 1 {
		u.MaxImageBytes = 20 << 20
	}
}
