package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/videorelay/internal/auth"
	"github.com/gestaozabele/videorelay/internal/config"
	"github.com/gestaozabele/videorelay/internal/db"
	internalhttp "github.com/gestaozabele/videorelay/internal/http"
	"github.com/gestaozabele/videorelay/internal/media"
	"github.com/gestaozabele/videorelay/internal/metrics"
	"github.com/gestaozabele/videorelay/internal/notify"
	"github.com/gestaozabele/videorelay/internal/progress"
	"github.com/gestaozabele/videorelay/internal/upload"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogger(cfg)

	ctx := context.Background()

	if err := os.MkdirAll(cfg.Upload.TempDir, 0o700); err != nil {
		return fmt.Errorf("tmp dir: %w", err)
	}

	checks := map[string]internalhttp.Check{}

	var recorder upload.Recorder = upload.NopRecorder{}
	if cfg.DBDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("db schema: %w", err)
		}
		recorder = upload.NewRepository(pool)
		checks["db"] = pool.Ping
	} else {
		log.Warn().Msg("DB_DSN ausente: histórico de uploads desabilitado")
	}

	var broker progress.Broker
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		broker = progress.NewRedisBroker(redisClient, cfg.Upload.SnapshotTTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		broker = progress.NewMemoryBroker(64, cfg.Upload.SnapshotTTL)
	}

	host, err := media.FromConfig(cfg.Media)
	if err != nil {
		return fmt.Errorf("media: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	var notifier notify.Notifier
	if slack := notify.NewSlackNotifier(cfg.SlackWebhook); slack != nil {
		notifier = slack
	}

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, time.Hour)
	}

	relay := upload.NewService(host, broker, upload.Options{
		Recorder: recorder,
		Notifier: notifier,
		Metrics:  appMetrics,
		Timeout:  cfg.Upload.Timeout,
		Logger:   log.With().Str("component", "upload").Logger(),
	})

	streamsCtx, stopStreams := context.WithCancel(ctx)
	defer stopStreams()

	handler := internalhttp.NewRouter(cfg, internalhttp.Deps{
		Relay:    relay,
		Broker:   broker,
		Uploads:  recorder,
		Metrics:  appMetrics,
		Gatherer: registry,
		JWT:      jwtManager,
		Checks:   checks,
		Done:     streamsCtx.Done(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(stopStreams)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("provider", host.Name()).Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
