package backend

import (
	"context"
	"fmt"

	"billed/internal/log"
	"billed/internal/store"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case APIBackend:
		return f.createAPIBackend(cfg)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createAPIBackend(cfg Config) (*Result, error) {
	client := store.New(cfg.APIBaseURL, cfg.Tokens, cfg.RequestTimeout)

	f.logger.Info("initialized api backend",
		"url", cfg.APIBaseURL,
		"timeout", cfg.RequestTimeout.String())

	return &Result{
		Backend: Backend{Store: client.Bills(), Auth: client},
		Cleanup: func() error {
			client.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	mem := store.NewMemory()

	f.logger.Info("initialized memory backend")

	return &Result{
		Backend: Backend{Store: mem, Auth: mem},
	}, nil
}
