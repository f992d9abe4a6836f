// Command server runs the exchange: one Engine dispatching every room's
// commands, fronted by the tcpjson reference transport and a Prometheus
// metrics endpoint.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"pitexchange/internal/config"
	"pitexchange/internal/engine"
	"pitexchange/internal/metrics"
	"pitexchange/internal/transport/tcpjson"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("loading config")
	}
	if err := cfg.Validate(); err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Logging.Format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	eng := engine.New(cfg.Game.CardsPerPile, log)
	srv := tcpjson.New(cfg.Listen.Address, cfg.Listen.Port, eng, log)

	go func() {
		if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("engine exited")
		}
	}()

	go func() {
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("transport exited")
		}
	}()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Address, cfg.Metrics.Port, log); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("metrics server exited")
			}
		}()
	}

	log.Info().
		Str("listen", cfg.Listen.Address).
		Int("port", cfg.Listen.Port).
		Int("cards_per_pile", cfg.Game.CardsPerPile).
		Msg("exchange running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
}
