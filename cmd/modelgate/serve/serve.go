// Package servecmder provides the serve command that runs the gateway.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/modelgate/api"
	"github.com/papercomputeco/modelgate/pkg/auth"
	"github.com/papercomputeco/modelgate/pkg/config"
	"github.com/papercomputeco/modelgate/pkg/eventstream"
	"github.com/papercomputeco/modelgate/pkg/eventstream/kafka"
	"github.com/papercomputeco/modelgate/pkg/eventstream/nop"
	"github.com/papercomputeco/modelgate/pkg/llm/provider"
	"github.com/papercomputeco/modelgate/pkg/logger"
	"github.com/papercomputeco/modelgate/pkg/metrics"
	"github.com/papercomputeco/modelgate/pkg/ratelimit"
	"github.com/papercomputeco/modelgate/pkg/relay"
	"github.com/papercomputeco/modelgate/pkg/storage"
	"github.com/papercomputeco/modelgate/pkg/storage/inmemory"
	"github.com/papercomputeco/modelgate/pkg/storage/sqlite"
)

type ServeCommander struct {
	configFile string
	listen     string
	upstream   string
	debug      bool
	logger     *zap.Logger
}

const serveLongDesc string = `Run the modelgate gateway.

The gateway authenticates clients, admits requests through per-identity
token buckets, and relays chat completions from the configured inference
backend, buffered or streamed over SSE.

Configuration comes from a TOML file (--config or ./modelgate.toml),
MODELGATE_-prefixed environment variables, and built-in defaults.`

const serveShortDesc string = "Run the modelgate gateway"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configFile, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the gateway to listen on (overrides config)")
	cmd.Flags().StringVarP(&cmder.upstream, "upstream", "u", "", "Upstream inference backend URL (overrides config)")

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = c.listen
	}
	if cmd.Flags().Changed("upstream") {
		cfg.Upstream.URL = c.upstream
	}
	if err := config.ValidateProduction(cfg); err != nil {
		return err
	}

	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	users, err := c.createUserStore(cfg)
	if err != nil {
		return err
	}
	defer users.Close()

	prov, err := provider.New(cfg.Upstream.Provider, provider.Config{
		BaseURL: cfg.Upstream.URL,
		Timeout: cfg.Upstream.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	limiter := ratelimit.NewStore(map[string]ratelimit.Class{
		api.ClassChat:   bucketClass(cfg.RateLimit.Chat),
		api.ClassAuth:   bucketClass(cfg.RateLimit.Auth),
		api.ClassModels: bucketClass(cfg.RateLimit.Models),
	})
	defer limiter.Close()

	events := c.createPublisher(cfg)
	defer events.Close()

	mets := metrics.New(limiter.Len)

	server := api.NewServer(
		api.Config{
			ListenAddr:       cfg.Server.Listen,
			ReadTimeout:      cfg.Server.ReadTimeout,
			ShutdownTimeout:  cfg.Server.ShutdownTimeout,
			BcryptCost:       cfg.Auth.BcryptCost,
			RateLimitEnabled: cfg.RateLimit.Enabled,
		},
		api.Deps{
			Provider: prov,
			Limiter:  limiter,
			Users:    users,
			Tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTTL),
			Events:   events,
			Relay: relay.New(relay.Config{
				InterChunkTimeout: cfg.Relay.InterChunkTimeout,
				MaxStreamDuration: cfg.Relay.MaxStreamDuration,
			}, c.logger),
			Metrics: mets,
			Logger:  c.logger,
		},
	)

	c.logger.Info("starting gateway",
		zap.String("listen", cfg.Server.Listen),
		zap.String("provider", cfg.Upstream.Provider),
		zap.String("upstream", cfg.Upstream.URL),
		zap.Bool("ratelimit", cfg.RateLimit.Enabled),
		zap.Bool("events", cfg.Events.Enabled),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("gateway error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *ServeCommander) createUserStore(cfg *config.Config) (storage.UserStore, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := sqlite.NewUserStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening user store: %w", err)
		}
		c.logger.Info("using SQLite user store", zap.String("path", cfg.Storage.SQLitePath))
		return store, nil
	case "inmemory":
		c.logger.Warn("using in-memory user store; accounts are lost on restart")
		return inmemory.NewUserStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

func (c *ServeCommander) createPublisher(cfg *config.Config) eventstream.Publisher {
	if !cfg.Events.Enabled {
		return nop.NewPublisher()
	}
	c.logger.Info("publishing chat events",
		zap.Strings("brokers", cfg.Events.Brokers),
		zap.String("topic", cfg.Events.Topic),
	)
	return kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
}

func bucketClass(b config.BucketConfig) ratelimit.Class {
	return ratelimit.Class{
		Capacity:        b.Capacity,
		RefillPerSecond: b.RefillPerSecond,
		IdleTTL:         b.IdleTTL,
	}
}
