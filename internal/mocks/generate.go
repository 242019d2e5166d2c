// Package mocks provides mock implementations for testing the studio engine.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// core port interfaces. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/merchkit/studio-engine/internal/core JobRepository

// Generate mock for BatchRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=batch_repository_mock.go github.com/merchkit/studio-engine/internal/core BatchRepository

// Generate mock for AIJobsAPI interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ai_jobs_api_mock.go github.com/merchkit/studio-engine/internal/core AIJobsAPI

// Generate mock for CatalogAPI interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=catalog_api_mock.go github.com/merchkit/studio-engine/internal/core CatalogAPI

// Generate mock for ToolCache interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=tool_cache_mock.go github.com/merchkit/studio-engine/internal/core ToolCache

// Generate mock for ActiveJobSource interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=active_job_source_mock.go github.com/merchkit/studio-engine/internal/core ActiveJobSource
