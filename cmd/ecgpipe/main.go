package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/danmuck/ecgpipe/internal/channel"
	"github.com/danmuck/ecgpipe/internal/client"
	"github.com/danmuck/ecgpipe/internal/config"
	"github.com/danmuck/ecgpipe/internal/observability"
	"github.com/danmuck/ecgpipe/internal/tools"
)

// bulkPoints is how many leading samples the bulk export mode pulls for each
// of the two leads, at the 4ms sample period.
const (
	bulkPoints   = 1000
	samplePeriod = 0.004
)

func main() {
	logger := observability.InitLogger("ecgpipe").Level(config.LogLevelFromEnv())

	configPath := flag.String("config", "", "path to a TOML config file")
	person := flag.Int("p", -1, "person id")
	seconds := flag.Float64("t", -1, "sample time in seconds")
	ecg := flag.Int("e", 1, "ecg lead (1 or 2)")
	filename := flag.String("f", "", "file to retrieve")
	newChan := flag.Bool("c", false, "request a private channel for the data requests")
	capacity := flag.Int("m", 0, "buffer capacity per read/write (overrides config)")
	attach := flag.Bool("attach", false, "attach to a running server instead of spawning one")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load client config")
	}
	if *capacity > 0 {
		cfg.Capacity = *capacity
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid client config")
	}

	var child tools.Child
	if !*attach {
		child, err = tools.ExecLauncher{Stdout: os.Stderr, Stderr: os.Stderr}.Start(
			cfg.ServerBin, "-m", strconv.Itoa(cfg.Capacity), "-p", cfg.PipeDir)
		if err != nil {
			logger.Fatal().Err(err).Str("bin", cfg.ServerBin).Msg("failed to launch server")
		}
	}

	provider := channel.NewFifoProvider(cfg.PipeDir, cfg.OpenTimeoutDuration())
	control, err := client.Connect(provider, cfg.Capacity, client.DefaultBackoff(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not attach to control channel")
	}

	active := control
	if *newChan {
		active, err = control.NewChannel()
		if err != nil {
			logger.Fatal().Err(err).Msg("private channel request failed")
		}
		logger.Info().Str("channel", active.Name()).Msg("using private channel")
	}

	run(logger, cfg, active, *person, *seconds, int32(*ecg), *filename)

	logger.Info().Str("channel", active.Name()).Msg("closing channel")
	if err := active.Quit(); err != nil {
		logger.Error().Err(err).Msg("quit failed")
	}
	if *newChan {
		logger.Info().Str("channel", control.Name()).Msg("closing channel")
		if err := control.Quit(); err != nil {
			logger.Error().Err(err).Msg("control quit failed")
		}
	}
	if child != nil {
		if err := child.Wait(); err != nil {
			logger.Warn().Err(err).Msg("server exited abnormally")
		}
	}
}

func run(logger zerolog.Logger, cfg config.ClientConfig, active *client.Session, person int, seconds float64, ecg int32, filename string) {
	switch {
	case person >= 0 && seconds >= 0:
		v, err := active.DataPoint(int32(person), seconds, ecg)
		if err != nil {
			logger.Fatal().Err(err).Msg("datapoint request failed")
		}
		fmt.Printf("For person %d, at time %g, the value of ecg %d is %g\n", person, seconds, ecg, v)
	case person >= 0:
		if err := exportSamples(active, cfg.OutputDir, int32(person)); err != nil {
			logger.Fatal().Err(err).Int("person", person).Msg("bulk export failed")
		}
		logger.Info().Int("person", person).Int("points", bulkPoints).Msg("samples exported")
	}

	if filename != "" {
		if err := fetchFile(active, cfg.OutputDir, filename); err != nil {
			logger.Fatal().Err(err).Str("file", filename).Msg("file transfer failed")
		}
	}
}

// exportSamples writes the first bulkPoints rows of both leads to
// <out>/x<person>.csv, one request per value, strictly in sequence.
func exportSamples(s *client.Session, outDir string, person int32) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(outDir, fmt.Sprintf("x%d.csv", person))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < bulkPoints; i++ {
		t := float64(i) * samplePeriod
		v1, err := s.DataPoint(person, t, 1)
		if err != nil {
			return err
		}
		v2, err := s.DataPoint(person, t, 2)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%g,%g,%g\n", t, v1, v2); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func fetchFile(s *client.Session, outDir, name string) error {
	tr, err := s.StartFile(name)
	if err != nil {
		return err
	}
	fmt.Printf("File %s has length: %d bytes\n", name, tr.Total())

	path := filepath.Join(outDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := tr.WriteTo(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
