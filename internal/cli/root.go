// Package cli implements the recurly-cli commands.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/recurly-client/pkg/client"
	"github.com/Sternrassler/recurly-client/pkg/config"
	"github.com/Sternrassler/recurly-client/pkg/logging"
	"github.com/Sternrassler/recurly-client/pkg/metrics"
	"github.com/Sternrassler/recurly-client/pkg/recurly"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	envFile     string
	debug       bool
	metricsAddr string
	purgeCache  bool
}

// NewRootCmd creates the root command with the accounts, invoices and
// subscriptions subcommands.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "recurly-cli",
		Short:         "Browse Recurly accounts, invoices and subscriptions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # First page of active accounts
  recurly-cli accounts --state active

  # Every invoice of one account
  recurly-cli invoices --account acme --all

  # At most 500 subscriptions, exposing metrics while walking
  recurly-cli subscriptions --all --limit 500 --metrics-addr :9090`,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "read settings from this .env file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.purgeCache, "purge-cache", false, "drop cached responses of the configured API key before running")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	cmd.AddCommand(newAccountsCmd(opts), newInvoicesCmd(opts), newSubscriptionsCmd(opts))
	return cmd
}

// session holds the resources of one command run.
type session struct {
	api    *recurly.Client
	logger zerolog.Logger

	client      *client.Client
	redis       *redis.Client
	stopMetrics context.CancelFunc
	metricsErr  chan error
}

// openSession loads settings, configures logging and builds the client.
// The returned session must be closed.
func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	settings, err := config.Load(opts.envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := settings.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	if opts.debug {
		logCfg.Level = logging.LevelDebug
	}
	logging.Setup(logCfg)

	s := &session{logger: logging.NewLogger("cli")}
	ctx := cmd.Context()

	if settings.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Str("addr", settings.RedisAddr).Msg("Redis unavailable, continuing without cache")
			_ = rdb.Close()
		} else {
			s.redis = rdb
		}
	}

	c, err := client.New(settings.ClientConfig(s.redis))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	s.client = c
	s.api = recurly.NewClient(c)

	if opts.purgeCache {
		n, err := c.PurgeCache(ctx)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("purge cache: %w", err)
		}
		s.logger.Info().Int("entries", n).Msg("Purged response cache")
	}

	if opts.metricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		s.stopMetrics = cancel
		s.metricsErr = make(chan error, 1)
		go func() {
			s.metricsErr <- metrics.Serve(metricsCtx, opts.metricsAddr)
		}()
		s.logger.Info().Str("addr", opts.metricsAddr).Msg("Serving metrics")
	}

	s.logger.Debug().
		Str("base_url", settings.BaseURL).
		Int("page_size", settings.PageSize).
		Bool("cache", s.redis != nil).
		Msg("Client ready")
	return s, nil
}

// Close stops the metrics server and releases connections.
func (s *session) Close() {
	if s.stopMetrics != nil {
		s.stopMetrics()
		if err := <-s.metricsErr; err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Msg("Metrics server failed")
		}
	}
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
