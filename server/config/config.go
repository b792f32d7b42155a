// Package config holds the envconfig-tagged runtime configuration.
package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration.
type Config struct {
	AgentName        string `env:"AGENT_NAME,default=a2a-runtime"`
	AgentDescription string `env:"AGENT_DESCRIPTION"`
	AgentVersion     string `env:"AGENT_VERSION,default=0.1.0"`
	AgentURL         string `env:"AGENT_URL"`
	Debug            bool   `env:"DEBUG,default=false"`

	StoreConfig         StoreConfig         `env:",prefix=STORE_"`
	TaskRetentionConfig TaskRetentionConfig `env:",prefix=TASK_RETENTION_"`
	ServerConfig        ServerConfig        `env:",prefix=SERVER_"`
	TelemetryConfig     TelemetryConfig     `env:",prefix=TELEMETRY_"`
}

// StoreConfig selects and configures the task store backend.
type StoreConfig struct {
	Provider string `env:"PROVIDER,default=memory" description:"Task store provider: memory or redis"`
	RedisURL string `env:"REDIS_URL,default=redis://localhost:6379/0" description:"Redis connection URL when provider=redis"`
}

// TaskRetentionConfig defines how many terminal tasks the cleanup loop
// should retain. Unused by the in-memory store's base implementation
// today but kept as wiring surface for a host-supplied cleanup job.
type TaskRetentionConfig struct {
	MaxCompletedTasks int `env:"MAX_COMPLETED_TASKS,default=0" description:"Maximum completed tasks to retain (0 = unlimited)"`
	MaxFailedTasks    int `env:"MAX_FAILED_TASKS,default=0" description:"Maximum failed tasks to retain (0 = unlimited)"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port                  string `env:"PORT,default=8080" description:"HTTP server port"`
	AgentPath             string `env:"AGENT_PATH,default=/a2a" description:"Mount point for the JSON-RPC endpoint"`
	DisableHealthcheckLog bool   `env:"DISABLE_HEALTHCHECK_LOG,default=true" description:"Disable logging for health check requests"`
}

// MetricsConfig holds metrics server configuration.
type MetricsConfig struct {
	Port string `env:"PORT,default=9090" description:"Metrics server port"`
	Host string `env:"HOST,default=" description:"Metrics server host (empty for all interfaces)"`
}

// TelemetryConfig holds telemetry configuration.
type TelemetryConfig struct {
	Enable        bool          `env:"ENABLE,default=false" description:"Enable telemetry collection"`
	MetricsConfig MetricsConfig `env:",prefix=METRICS_"`
}

// Load loads configuration from the OS environment, merging with baseConfig.
func Load(ctx context.Context, baseConfig *Config) (*Config, error) {
	return LoadWithLookuper(ctx, baseConfig, envconfig.OsLookuper())
}

// LoadWithLookuper loads configuration using a custom lookuper, merging
// with baseConfig. Exposed separately so tests can inject a fake lookuper.
func LoadWithLookuper(ctx context.Context, baseConfig *Config, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if baseConfig != nil {
		cfg = *baseConfig
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}

	return &cfg, nil
}
