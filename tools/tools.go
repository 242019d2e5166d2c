//go:build tools
// +build tools

// Package tools documents development tool dependencies.
package tools

// Development tools:
//
// MockGen - Mock generation for core interfaces
//   Invoked via `go run go.uber.org/mock/mockgen` from the go:generate
//   directives in internal/mocks/generate.go, pinned by go.mod.
//   Docs: https://github.com/uber-go/mock
//   Usage: go generate ./internal/mocks
