// cmd/consumer runs the Block Executor half of chainstream: drains the
// BlockImporter and BlockEvent work queues, persists records, and
// republishes packets for the streamer's subscribers (spec §4.G).
// Split out of the teacher's single cmd/main.go, generalized from its
// flag+env loadConfig into internal/config's viper-backed Load.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chainstream/streams/internal/broker"
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/executor"
	"github.com/chainstream/streams/internal/metrics"
	"github.com/chainstream/streams/internal/records"
	"github.com/chainstream/streams/internal/repository"
	"github.com/chainstream/streams/internal/subject"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a config file overriding defaults")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("consumer: load config")
	}

	logger := newLogger(cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("consumer: connect database")
	}
	defer pool.Close()

	registry, err := subject.NewDefaultRegistry()
	if err != nil {
		logger.Fatal().Err(err).Msg("consumer: build subject registry")
	}
	builder := records.NewBuilder(registry)
	repos := repository.NewRepositories(repository.NewStore(pool))

	natsClient, err := broker.NewClient(cfg.Broker, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("consumer: connect broker")
	}
	defer natsClient.Close()

	var collector *metrics.Collector
	var opts []executor.Option
	if cfg.UseMetrics {
		collector = metrics.NewCollector()
		opts = append(opts, executor.WithMetrics(collector))

		sampleStop := make(chan struct{})
		defer close(sampleStop)
		go collector.Run(sampleStop, 15*time.Second)
	}

	blockExec := executor.New(natsClient, repos, builder, cfg, logger.With().Str("executor", "block").Logger(), opts...)
	eventExec := executor.NewBlockEventExecutor(natsClient, repos, builder, cfg, logger.With().Str("executor", "block_event").Logger(), opts...)

	if err := blockExec.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("consumer: start block executor")
	}
	if err := eventExec.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("consumer: start block-event executor")
	}

	logger.Info().Msg("consumer: running")
	waitForShutdown(logger)

	blockExec.Stop()
	eventExec.Stop()
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

func waitForShutdown(logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("consumer: shutting down")
}
