package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/gopump/internal/testutil"
	gferrors "github.com/vnykmshr/gopump/pkg/common/errors"
)

func TestDefaultIsValid(t *testing.T) {
	testutil.AssertNoError(t, Default().Validate())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.ChunkSize, Default().ChunkSize)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pump.yaml")
	doc := `
max_queue_size: 1024
compression: zstd
redis:
  key: jobs
  poll_interval: 250ms
log:
  level: debug
`
	testutil.AssertNoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, cfg.Validate())

	testutil.AssertEqual(t, cfg.MaxQueueSize, 1024)
	testutil.AssertEqual(t, cfg.Compression, "zstd")
	testutil.AssertEqual(t, cfg.Redis.Key, "jobs")
	testutil.AssertEqual(t, cfg.Redis.PollInterval, 250*time.Millisecond)
	testutil.AssertEqual(t, cfg.Log.Level, "debug")

	// Omitted fields keep their defaults.
	testutil.AssertEqual(t, cfg.ChunkSize, Default().ChunkSize)
	testutil.AssertEqual(t, cfg.Redis.Addr, "localhost:6379")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("max_queue: 5\n"), &cfg)
	testutil.AssertError(t, err)
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg := Default()
	testutil.AssertNoError(t, Decode(strings.NewReader(""), &cfg))
	testutil.AssertEqual(t, cfg.MaxQueueSize, Default().MaxQueueSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"zero queue", func(c *Config) { c.MaxQueueSize = 0 }, "max_queue_size"},
		{"negative chunk", func(c *Config) { c.ChunkSize = -1 }, "chunk_size"},
		{"bad schedule", func(c *Config) { c.Report = "sometimes" }, "schedule"},
		{"bad compression", func(c *Config) { c.Compression = "lz4" }, "compression"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative poll", func(c *Config) { c.Redis.PollInterval = -time.Second }, "redis.poll_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()

			var verr *gferrors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			testutil.AssertEqual(t, verr.Field, tt.field)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, level, slog.LevelWarn)

	_, err = ParseLevel("chatty")
	testutil.AssertError(t, err)
}
