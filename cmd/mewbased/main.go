// Command mewbased runs the frame-protocol server: the channel log,
// document binder store, and connection dispatcher described by
// SPEC_FULL.md, wired together the way the teacher's gRPC daemon wires its
// storage backend, metrics server, and tracing provider.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mewbase/mewbase/internal/config"
	"github.com/mewbase/mewbase/internal/logger"
	"github.com/mewbase/mewbase/internal/metrics"
	"github.com/mewbase/mewbase/internal/server"
	"github.com/mewbase/mewbase/internal/tracing"
	"github.com/mewbase/mewbase/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logger.Init(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		Rotation:   cfg.Logging.Rotation,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}); err != nil {
		panic(err)
	}
	log := logger.WithComponent("main")
	log.Info().Str("version", version.String()).Msg("starting mewbase")

	tracingCfg := tracing.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Metrics.TracingEnabled
	tracingCfg.Endpoint = cfg.Metrics.TracingEndpoint
	tracer, err := tracing.NewProvider(tracingCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing provider")
	}

	collector := metrics.NewCollector()

	srv, err := server.New(cfg, collector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, collector.GetRegistry())
		if err := metricsServer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start metrics server")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("received signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error stopping server")
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error stopping metrics server")
		}
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down tracing provider")
	}

	log.Info().Msg("mewbase stopped")
}
