// Package config holds the gateway configuration, loaded from a TOML file
// and MODELGATE_-prefixed environment variables on top of built-in defaults.
package config

import "time"

const (
	// EnvDevelopment is the default environment.
	EnvDevelopment = "development"

	// EnvProduction enables the stricter startup checks in
	// ValidateProduction.
	EnvProduction = "production"
)

// Config is the full gateway configuration. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Env       string          `mapstructure:"env" toml:"env"`
	Server    ServerConfig    `mapstructure:"server" toml:"server"`
	Auth      AuthConfig      `mapstructure:"auth" toml:"auth"`
	Storage   StorageConfig   `mapstructure:"storage" toml:"storage"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" toml:"ratelimit"`
	Upstream  UpstreamConfig  `mapstructure:"upstream" toml:"upstream"`
	Relay     RelayConfig     `mapstructure:"relay" toml:"relay"`
	Events    EventsConfig    `mapstructure:"events" toml:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen" toml:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" toml:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`
}

// AuthConfig holds token and password settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret" toml:"jwt_secret"`
	JWTIssuer  string        `mapstructure:"jwt_issuer" toml:"jwt_issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl" toml:"access_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost" toml:"bcrypt_cost"`
}

// StorageConfig holds user store settings.
type StorageConfig struct {
	// Driver selects the user store backend: "sqlite" or "inmemory".
	Driver     string `mapstructure:"driver" toml:"driver"`
	SQLitePath string `mapstructure:"sqlite_path" toml:"sqlite_path"`
}

// RateLimitConfig holds the admission bucket classes.
type RateLimitConfig struct {
	Enabled bool         `mapstructure:"enabled" toml:"enabled"`
	Chat    BucketConfig `mapstructure:"chat" toml:"chat"`
	Auth    BucketConfig `mapstructure:"auth" toml:"auth"`
	Models  BucketConfig `mapstructure:"models" toml:"models"`
}

// BucketConfig parameterizes one token bucket class.
type BucketConfig struct {
	Capacity        float64       `mapstructure:"capacity" toml:"capacity"`
	RefillPerSecond float64       `mapstructure:"refill_per_second" toml:"refill_per_second"`
	IdleTTL         time.Duration `mapstructure:"idle_ttl" toml:"idle_ttl"`
}

// UpstreamConfig holds inference backend settings.
type UpstreamConfig struct {
	Provider string        `mapstructure:"provider" toml:"provider"`
	URL      string        `mapstructure:"url" toml:"url"`
	Timeout  time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// RelayConfig bounds streaming responses.
type RelayConfig struct {
	InterChunkTimeout time.Duration `mapstructure:"inter_chunk_timeout" toml:"inter_chunk_timeout"`
	MaxStreamDuration time.Duration `mapstructure:"max_stream_duration" toml:"max_stream_duration"`
}

// EventsConfig holds the Kafka event stream settings.
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled" toml:"enabled"`
	Brokers []string `mapstructure:"brokers" toml:"brokers"`
	Topic   string   `mapstructure:"topic" toml:"topic"`
}
