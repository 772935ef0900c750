package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("app: invalid config")

type Config struct {
	Window  WindowConfig  `toml:"window" yaml:"window"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Frame   FrameConfig   `toml:"frame" yaml:"frame"`
}

// WindowConfig is handed to renderers that own a window.
type WindowConfig struct {
	Title     string `toml:"title" yaml:"title"`
	Width     uint32 `toml:"width" yaml:"width"`
	Height    uint32 `toml:"height" yaml:"height"`
	Resizable bool   `toml:"resizable" yaml:"resizable"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json", "console" or "" to let the caller pick
}

type FrameConfig struct {
	Rate      int `toml:"rate" yaml:"rate"` // frames per second
	QueueSize int `toml:"queue_size" yaml:"queue_size"`
}

// Interval is the time budget of one frame.
func (f FrameConfig) Interval() time.Duration {
	if f.Rate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(f.Rate)
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Title:     "Recompose App",
		Width:     800,
		Height:    600,
		Resizable: true,
	}
}

func (w WindowConfig) Validate() error {
	if w.Width == 0 || w.Height == 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, w.Width, w.Height)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Window.Validate(); err != nil {
		return err
	}
	if c.Frame.Rate < 0 {
		return fmt.Errorf("%w: frame rate %d", ErrInvalidConfig, c.Frame.Rate)
	}
	if c.Frame.QueueSize < 0 {
		return fmt.Errorf("%w: queue size %d", ErrInvalidConfig, c.Frame.QueueSize)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return defaults()
}

// LoadConfig reads a TOML or YAML file, chosen by extension, over the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Window: DefaultWindowConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Frame: FrameConfig{
			Rate:      60,
			QueueSize: 256,
		},
	}
}
