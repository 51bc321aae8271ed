package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the effective configuration.
//
// Config precedence (highest to lowest):
//  1. Environment variables (MODELGATE_SERVER_LISTEN, MODELGATE_AUTH_JWT_SECRET, etc.)
//  2. TOML config file values
//  3. Defaults from NewDefaultConfig()
//
// configFile, when non-empty, is an explicit file path; otherwise
// modelgate.toml is searched in the working directory.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file.
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("modelgate")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine, defaults will apply. An
		// explicitly named file must exist.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MODELGATE_UPSTREAM_URL, MODELGATE_RATELIMIT_CHAT_CAPACITY, etc.
	v.SetEnvPrefix("MODELGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("env", d.Env)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	// Auth
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.jwt_issuer", d.Auth.JWTIssuer)
	v.SetDefault("auth.access_ttl", d.Auth.AccessTTL)
	v.SetDefault("auth.bcrypt_cost", d.Auth.BcryptCost)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// Rate limiting
	v.SetDefault("ratelimit.enabled", d.RateLimit.Enabled)
	setBucketDefaults(v, "ratelimit.chat", d.RateLimit.Chat)
	setBucketDefaults(v, "ratelimit.auth", d.RateLimit.Auth)
	setBucketDefaults(v, "ratelimit.models", d.RateLimit.Models)

	// Upstream
	v.SetDefault("upstream.provider", d.Upstream.Provider)
	v.SetDefault("upstream.url", d.Upstream.URL)
	v.SetDefault("upstream.timeout", d.Upstream.Timeout)

	// Relay
	v.SetDefault("relay.inter_chunk_timeout", d.Relay.InterChunkTimeout)
	v.SetDefault("relay.max_stream_duration", d.Relay.MaxStreamDuration)

	// Events
	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}

func setBucketDefaults(v *viper.Viper, prefix string, b BucketConfig) {
	v.SetDefault(prefix+".capacity", b.Capacity)
	v.SetDefault(prefix+".refill_per_second", b.RefillPerSecond)
	v.SetDefault(prefix+".idle_ttl", b.IdleTTL)
}
