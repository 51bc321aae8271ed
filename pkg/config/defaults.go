package config

import "time"

const (
	defaultListen   = ":8080"
	defaultProvider = "ollama"
	defaultUpstream = "http://localhost:11434"

	// DefaultJWTSecret is only acceptable in development; ValidateProduction
	// refuses to start with it.
	DefaultJWTSecret = "dev_insecure_change_me"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Listen:          defaultListen,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:  DefaultJWTSecret,
			JWTIssuer:  "modelgate",
			AccessTTL:  time.Hour,
			BcryptCost: 12,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "modelgate.db",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Chat:    BucketConfig{Capacity: 20, RefillPerSecond: 1, IdleTTL: 10 * time.Minute},
			Auth:    BucketConfig{Capacity: 10, RefillPerSecond: 0.2, IdleTTL: 10 * time.Minute},
			Models:  BucketConfig{Capacity: 30, RefillPerSecond: 2, IdleTTL: 10 * time.Minute},
		},
		Upstream: UpstreamConfig{
			Provider: defaultProvider,
			URL:      defaultUpstream,
			Timeout:  30 * time.Second,
		},
		Relay: RelayConfig{
			InterChunkTimeout: 60 * time.Second,
			MaxStreamDuration: 10 * time.Minute,
		},
		Events: EventsConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "modelgate.chat",
		},
	}
}
