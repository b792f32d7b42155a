package server

import (
	"context"
	"fmt"

	"github.com/a2a-go/runtime/server/config"
	"github.com/a2a-go/runtime/server/otel"
	"go.uber.org/zap"
)

// Builder provides a fluent interface for assembling a Server: pick the
// storage backend and capability hooks, then Build.
type Builder struct {
	cfg          config.Config
	logger       *zap.Logger
	storage      Storage
	capabilities AgentCapabilities
}

// NewBuilder starts a Builder from cfg. A zero-value logger is filled with a
// default at Build time; a zero-value storage is filled as WithStorage
// describes.
func NewBuilder(cfg config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithLogger sets a custom logger for the builder and resulting server.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithStorage sets the task store backend. If unset, Build uses an
// in-memory store, except when cfg.StoreConfig.Provider is "redis": Build
// then returns an error, since it does not create a redis client itself.
func (b *Builder) WithStorage(storage Storage) *Builder {
	b.storage = storage
	return b
}

// WithCapabilities sets the capability hooks invoked by the task manager.
func (b *Builder) WithCapabilities(capabilities AgentCapabilities) *Builder {
	b.capabilities = capabilities
	return b
}

// Build resolves defaults and constructs the Server along with the
// TaskManager backing it.
func (b *Builder) Build(ctx context.Context) (*Server, TaskManager, error) {
	logger := b.logger
	if logger == nil {
		var err error
		if b.cfg.Debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	storage := b.storage
	if storage == nil {
		switch b.cfg.StoreConfig.Provider {
		case "redis":
			return nil, nil, fmt.Errorf("redis store selected but no *redis.Client was supplied via WithStorage")
		default:
			storage = NewInMemoryStorage(logger)
		}
	}

	var telemetry otel.OpenTelemetry
	if b.cfg.TelemetryConfig.Enable {
		var err error
		telemetry, err = otel.New(b.cfg.AgentName, b.cfg.AgentVersion, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	taskManager := NewTaskManagerWithTelemetry(logger, storage, b.capabilities, telemetry)

	srv := New(&b.cfg, logger, taskManager, b.capabilities, telemetry)
	return srv, taskManager, nil
}

// LoadConfig loads configuration from the environment, merging with base.
func LoadConfig(ctx context.Context, base *config.Config) (*config.Config, error) {
	return config.Load(ctx, base)
}
