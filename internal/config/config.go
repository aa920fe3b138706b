// Package config loads the pump command's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gferrors "github.com/vnykmshr/gopump/pkg/common/errors"
	"github.com/vnykmshr/gopump/pkg/common/validation"
	"github.com/vnykmshr/gopump/pkg/monitor"
	"github.com/vnykmshr/gopump/pkg/streaming/fsstream"
	"github.com/vnykmshr/gopump/pkg/streaming/redisstream"
	"github.com/vnykmshr/gopump/pkg/streaming/stream"
	"github.com/vnykmshr/gopump/pkg/streaming/writer"
)

const module = "config"

// Config is the file form of the pump command's settings. Command-line flags
// override the values read from a file.
type Config struct {
	MaxQueueSize int    `yaml:"max_queue_size"`
	ChunkSize    int    `yaml:"chunk_size"`
	Report       string `yaml:"report"`
	Compression  string `yaml:"compression"`

	Metrics Metrics `yaml:"metrics"`
	Redis   Redis   `yaml:"redis"`
	Log     Log     `yaml:"log"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Addr is the listen address of /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Redis configures the Redis list endpoints.
type Redis struct {
	Addr         string        `yaml:"addr"`
	Key          string        `yaml:"key"`
	PollInterval time.Duration `yaml:"poll_interval"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	EndMarker    string        `yaml:"end_marker"`
	BatchSize    int           `yaml:"batch_size"`
}

// Log configures the log handler.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxQueueSize: writer.DefaultWriteQueueMaxSize,
		ChunkSize:    stream.DefaultChunkSize,
		Report:       monitor.DefaultSchedule,
		Compression:  fsstream.Auto.String(),
		Redis: Redis{
			Addr:         "localhost:6379",
			PollInterval: redisstream.DefaultPollInterval,
			BatchSize:    redisstream.DefaultBatchSize,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the file at path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r into cfg, keeping fields the document omits.
// Unknown fields are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every field and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(validation.ValidatePositive(module, "max_queue_size", c.MaxQueueSize))
	add(validation.ValidatePositive(module, "chunk_size", c.ChunkSize))
	if c.Report != "" {
		add(monitor.ValidateSchedule(c.Report))
	}
	if _, err := fsstream.ParseCompression(c.Compression); err != nil {
		add(gferrors.NewValidationError(module, "compression", c.Compression, err.Error()).
			WithHint("use auto, none, gzip or zstd"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		add(gferrors.NewValidationError(module, "log.level", c.Log.Level, err.Error()).
			WithHint("use debug, info, warn or error"))
	}
	add(validation.ValidateNonNegative(module, "redis.poll_interval", float64(c.Redis.PollInterval)))
	add(validation.ValidateNonNegative(module, "redis.idle_timeout", float64(c.Redis.IdleTimeout)))
	add(validation.ValidateNonNegative(module, "redis.batch_size", float64(c.Redis.BatchSize)))

	return errors.Join(errs...)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
