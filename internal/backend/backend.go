// Package backend selects and constructs the bill store implementation
// the server runs against.
package backend

import (
	"context"
	"fmt"
	"time"

	"billed/internal/config"
	"billed/internal/store"
)

// Backend bundles the store interfaces a running server needs.
type Backend struct {
	Store store.BillStore
	Auth  store.Authenticator
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the backend instance and optional cleanup function.
type Result struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// API backend specific
	APIBaseURL     string
	RequestTimeout time.Duration
	Tokens         store.TokenSource
}

// Type represents the kind of bill store backing the server.
type Type string

const (
	// APIBackend talks to the remote bills API over HTTP.
	APIBackend Type = "api"
	// MemoryBackend runs against an in-process store, for local
	// development and tests.
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case APIBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to a backend config.
// The token source supplies the bearer token for API requests.
func FromAppConfig(appConfig *config.Config, tokens store.TokenSource) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.StoreBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.StoreBackend)
	}

	return Config{
		Type:           backendType,
		APIBaseURL:     appConfig.APIBaseURL,
		RequestTimeout: appConfig.RequestTimeout,
		Tokens:         tokens,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == APIBackend {
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for api backend")
		}
		if c.Tokens == nil {
			return fmt.Errorf("token source is required for api backend")
		}
	}

	return nil
}
