package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/ecgpipe/internal/channel"
	"github.com/danmuck/ecgpipe/internal/config"
	"github.com/danmuck/ecgpipe/internal/observability"
	"github.com/danmuck/ecgpipe/internal/server"
)

func main() {
	logger := observability.InitLogger("ecgpiped").Level(config.LogLevelFromEnv())

	configPath := flag.String("config", "", "path to a TOML config file")
	capacity := flag.Int("m", 0, "buffer capacity per read/write (overrides config)")
	pipeDir := flag.String("p", "", "directory holding the channel pipes (overrides config)")
	dataDir := flag.String("d", "", "directory with ECG csv files and served files (overrides config)")
	metricsAddr := flag.String("metrics", "", "prometheus listen address (overrides config)")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load server config")
	}
	if *capacity > 0 {
		cfg.Capacity = *capacity
	}
	if *pipeDir != "" {
		cfg.PipeDir = *pipeDir
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid server config")
	}

	observability.RegisterMetrics()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
	}

	provider := channel.NewFifoProvider(cfg.PipeDir, cfg.OpenTimeoutDuration())
	srv := server.New(provider, cfg.Capacity,
		server.NewCSVStore(cfg.DataDir), server.NewFileStore(cfg.DataDir), logger)

	logger.Info().
		Int("capacity", cfg.Capacity).
		Str("pipe_dir", cfg.PipeDir).
		Str("data_dir", cfg.DataDir).
		Msg("ecgpiped starting")
	if err := srv.Run(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
