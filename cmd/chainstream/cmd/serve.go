package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/chainstream/core/broadcast"
	"github.com/dmitrymomot/chainstream/core/config"
	"github.com/dmitrymomot/chainstream/core/filter"
	"github.com/dmitrymomot/chainstream/core/logger"
	"github.com/dmitrymomot/chainstream/core/server"
	"github.com/dmitrymomot/chainstream/integration/redis"
	"github.com/dmitrymomot/chainstream/transport/httpapi"
	"github.com/dmitrymomot/chainstream/transport/sse"
	"github.com/dmitrymomot/chainstream/transport/ws"
)

// serveConfig aggregates every component's environment configuration.
type serveConfig struct {
	AppName     string `env:"APP_NAME" envDefault:"chainstream"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	Server    server.Config
	Broadcast broadcast.Config
	Filter    filter.Limits
	WS        ws.Config
	SSE       sse.Config
	Redis     redis.Config
	Bridge    redis.BridgeConfig
}

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broadcaster daemon",
	Long: `Serve starts the coordinator loop and the HTTP surface: websocket
and SSE subscription endpoints, the ingest endpoint, health probes and
prometheus metrics. All configuration comes from the environment (a .env
file in the working directory is honored). With REDIS_BRIDGE_ENABLED=true
the process joins the cross-process feed over Redis pub/sub.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var cfg serveConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	var logOpt logger.Option
	switch cfg.Environment {
	case "production":
		logOpt = logger.WithProduction(cfg.AppName)
	case "staging":
		logOpt = logger.WithStaging(cfg.AppName)
	default:
		logOpt = logger.WithDevelopment(cfg.AppName)
	}
	log := logger.New(logOpt, logger.WithAttr(logger.Version(Version)))

	b := broadcast.NewFromConfig(cfg.Broadcast,
		broadcast.WithLogger(log.With(logger.Component("broadcast"))),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		b.Metrics(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	apiOpts := []httpapi.Option{
		httpapi.WithLogger(log.With(logger.Component("http"))),
		httpapi.WithSubscribeHandler(ws.NewFromConfig(b, cfg.WS,
			ws.WithLimits(cfg.Filter),
			ws.WithLogger(log.With(logger.Component("ws"))),
		)),
		httpapi.WithStreamHandler(sse.NewFromConfig(b, cfg.SSE,
			sse.WithLimits(cfg.Filter),
			sse.WithLogger(log.With(logger.Component("sse"))),
		)),
		httpapi.WithMetrics(registry),
		httpapi.WithReadinessCheck("broadcaster", b.Healthcheck),
	}

	// The producer boundary: direct ingest by default, through the Redis
	// bridge when the cross-process feed is enabled.
	var publisher httpapi.Publisher = b
	var bridge *redis.Bridge
	if cfg.Bridge.Enabled {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()

		bridge = redis.NewBridgeFromConfig(client, b, cfg.Bridge,
			redis.WithBridgeLogger(log.With(logger.Component("bridge"))),
		)
		publisher = bridge

		apiOpts = append(apiOpts, httpapi.WithReadinessCheck("redis", redis.Healthcheck(client)))
		log.Info("redis bridge enabled", logger.Key("channel", cfg.Bridge.Channel))
	}

	srv, err := server.NewFromConfig(cfg.Server,
		server.WithLogger(log.With(logger.Component("server"))),
	)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	api := httpapi.New(publisher, apiOpts...)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(b.Run(ctx))
	if bridge != nil {
		eg.Go(bridge.Run(ctx))
	}
	eg.Go(srv.Run(ctx, api))

	log.Info("chainstream started",
		logger.Key("addr", cfg.Server.Addr),
		logger.Key("env", cfg.Environment),
	)

	if err := eg.Wait(); err != nil {
		log.Error("chainstream stopped with error", logger.Error(err))
		return err
	}

	log.Info("chainstream stopped")
	return nil
}
