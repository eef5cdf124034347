package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/ecgpipe/internal/channel"
)

var ErrInvalidConfig = errors.New("config: invalid")

// ServerConfig drives the ecgpiped daemon.
type ServerConfig struct {
	Capacity    int    `toml:"capacity"`
	PipeDir     string `toml:"pipe_dir"`
	DataDir     string `toml:"data_dir"`
	MetricsAddr string `toml:"metrics_addr"`
	OpenTimeout string `toml:"open_timeout"`
}

// ClientConfig drives the ecgpipe CLI.
type ClientConfig struct {
	Capacity    int    `toml:"capacity"`
	PipeDir     string `toml:"pipe_dir"`
	OutputDir   string `toml:"output_dir"`
	ServerBin   string `toml:"server_bin"`
	OpenTimeout string `toml:"open_timeout"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Capacity:    channel.DefaultCapacity,
		PipeDir:     ".",
		DataDir:     "BIMDC",
		MetricsAddr: "",
		OpenTimeout: channel.DefaultOpenTimeout.String(),
	}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Capacity:    channel.DefaultCapacity,
		PipeDir:     ".",
		OutputDir:   "received",
		ServerBin:   "ecgpiped",
		OpenTimeout: channel.DefaultOpenTimeout.String(),
	}
}

// LoadServerConfig reads a TOML config file, filling defaults for anything
// unset. A missing path yields the defaults untouched.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return ServerConfig{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return ClientConfig{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (c ServerConfig) Validate() error {
	if err := validateCapacity(c.Capacity); err != nil {
		return err
	}
	if c.PipeDir == "" {
		return fmt.Errorf("%w: missing pipe_dir", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: missing data_dir", ErrInvalidConfig)
	}
	_, err := parseTimeout(c.OpenTimeout)
	return err
}

func (c ClientConfig) Validate() error {
	if err := validateCapacity(c.Capacity); err != nil {
		return err
	}
	if c.PipeDir == "" {
		return fmt.Errorf("%w: missing pipe_dir", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: missing output_dir", ErrInvalidConfig)
	}
	_, err := parseTimeout(c.OpenTimeout)
	return err
}

// OpenTimeoutDuration returns the parsed handshake window. Validate has
// already rejected unparseable values.
func (c ServerConfig) OpenTimeoutDuration() time.Duration {
	d, _ := parseTimeout(c.OpenTimeout)
	return d
}

func (c ClientConfig) OpenTimeoutDuration() time.Duration {
	d, _ := parseTimeout(c.OpenTimeout)
	return d
}

func validateCapacity(capacity int) error {
	if capacity < channel.MinCapacity {
		return fmt.Errorf("%w: capacity %d below minimum %d", ErrInvalidConfig, capacity, channel.MinCapacity)
	}
	return nil
}

func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return channel.DefaultOpenTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: open_timeout %q: %v", ErrInvalidConfig, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: open_timeout must be positive", ErrInvalidConfig)
	}
	return d, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
