// Package config loads the optional YAML configuration of the lsbsteg
// command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tuomas-lb/lsbsteg/internal/imgutil"
)

var (
	// ErrInvalidConfig indicates a value outside its allowed set
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LogConfig selects the log handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config is the full command configuration
type Config struct {
	// OutputFormat overrides the format derived from the destination path
	OutputFormat string `yaml:"output_format"`
	// PNGCompression is one of default, none, speed, best
	PNGCompression string    `yaml:"png_compression"`
	Log            LogConfig `yaml:"log"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		PNGCompression: "default",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	conf := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves the defaults in place.
	if err := dec.Decode(conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks every enumerated field.
func (c *Config) Validate() error {
	if c.OutputFormat != "" {
		if _, err := imgutil.NormalizeFormat(c.OutputFormat); err != nil {
			return fmt.Errorf("%w: output_format: %v", ErrInvalidConfig, err)
		}
	}
	if _, err := c.CompressionLevel(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// CompressionLevel maps PNGCompression to the encoder constant.
func (c *Config) CompressionLevel() (png.CompressionLevel, error) {
	switch strings.ToLower(c.PNGCompression) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	default:
		return 0, fmt.Errorf("%w: png_compression %q", ErrInvalidConfig, c.PNGCompression)
	}
}

// LogLevel maps Log.Level to a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	return level, nil
}

// NewLogger builds the logger described by Log, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
