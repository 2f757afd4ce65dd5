// cmd/streamer runs chainstream's read surface: the REST query API
// (spec §4.J) and the WebSocket subscription gateway (spec §4.H/§4.I),
// both backed by the same repository pool and stream engine. Split out
// of the teacher's single cmd/main.go; HTTP/WS wiring generalized from
// internal/server/server.go's setupHTTPServer (ServeMux + CORS
// middleware + http.Server).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chainstream/streams/internal/api"
	"github.com/chainstream/streams/internal/apikey"
	"github.com/chainstream/streams/internal/broker"
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/metrics"
	"github.com/chainstream/streams/internal/repository"
	"github.com/chainstream/streams/internal/stream"
	"github.com/chainstream/streams/internal/subject"
	"github.com/chainstream/streams/internal/wsgateway"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a config file overriding defaults")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("streamer: load config")
	}

	logger := newLogger(cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("streamer: connect database")
	}
	defer pool.Close()

	registry, err := subject.NewDefaultRegistry()
	if err != nil {
		logger.Fatal().Err(err).Msg("streamer: build subject registry")
	}
	repos := repository.NewRepositories(repository.NewStore(pool))

	natsClient, err := broker.NewClient(cfg.Broker, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("streamer: connect broker")
	}
	defer natsClient.Close()

	apikeyRepo := apikey.NewRepository(pool)
	apikeys := apikey.NewManager(apikeyRepo, cfg.Roles)

	engine := stream.New(repos, natsClient, registry, cfg, logger.With().Str("component", "stream").Logger())

	var collector *metrics.Collector
	var apiOpts []api.Option
	var wsOpts []wsgateway.Option
	if cfg.UseMetrics {
		collector = metrics.NewCollector()
		apiOpts = append(apiOpts, api.WithMetrics(collector))
		wsOpts = append(wsOpts, wsgateway.WithMetrics(collector))

		sampleStop := make(chan struct{})
		defer close(sampleStop)
		go collector.Run(sampleStop, 15*time.Second)
	}

	restAPI := api.New(repos, apikeys, registry, logger.With().Str("component", "api").Logger(), apiOpts...)
	gateway := wsgateway.New(apikeys, engine, cfg.WebSocket, logger.With().Str("component", "wsgateway").Logger(), wsOpts...)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      corsMiddleware(routes(restAPI, gateway)),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("streamer: listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("streamer: http server")
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	gateway.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)
}

// routes wires the REST query surface under /api/v1 (api.API already
// owns that prefix), the WebSocket gateway at /api/v1/ws (spec §6:
// "Upgrade at `/api/v1/ws`"), and a liveness probe at /health, grounded
// on internal/server/server.go's setupHTTPServer route list.
func routes(restAPI *api.API, gateway *wsgateway.Gateway) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/v1/", restAPI)
	mux.HandleFunc("/api/v1/ws", gateway.ServeHTTP)
	mux.HandleFunc("/health", handleHealth(gateway))
	return mux
}

func handleHealth(gateway *wsgateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
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
	logger.Info().Str("signal", sig.String()).Msg("streamer: shutting down")
}
