package main

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"lesiw.io/fs/osfs"

	"github.com/vnykmshr/gopump/pkg/streaming/fsstream"
	"github.com/vnykmshr/gopump/pkg/streaming/redisstream"
	"github.com/vnykmshr/gopump/pkg/streaming/stream"
)

var (
	redisAddr      string
	redisKey       string
	redisEndMarker string
	redisName      string
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Move lines between files and Redis lists",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Redis.Addr = redisAddr
		}
		if cmd.Flags().Changed("key") {
			cfg.Redis.Key = redisKey
		}
		if cmd.Flags().Changed("end-marker") {
			cfg.Redis.EndMarker = redisEndMarker
		}
		if cfg.Redis.Key == "" {
			return errors.New("redis: a list key is required (--key or redis.key)")
		}
		return nil
	},
}

var redisPushCmd = &cobra.Command{
	Use:   "push FILE",
	Short: "Append the lines of FILE to a Redis list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		compression, _ := fsstream.ParseCompression(cfg.Compression)

		fsys, err := osfs.New(".")
		if err != nil {
			return err
		}
		r, err := fsstream.OpenReader(ctx, fsys, args[0], compression)
		if err != nil {
			return err
		}
		src := stream.NewWithContext(ctx, stream.FromLines(r))

		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()

		w, err := redisstream.NewListWriter(client, cfg.Redis.Key, redisstream.WriterConfig{
			BatchSize: cfg.Redis.BatchSize,
			EndMarker: cfg.Redis.EndMarker,
			OnError: func(err error) {
				slog.Error("push failed", "key", cfg.Redis.Key, "err", err)
			},
		})
		if err != nil {
			_ = src.Close()
			return err
		}

		reporter, err := newReporter(false, nil)
		if err != nil {
			_ = src.Close()
			_ = w.Close()
			return err
		}

		name := pumpName(redisName)
		pumped, err := runPump[string](ctx, name, src, w, reporter)
		closeErr := w.Close()
		stopReporter(reporter)
		if err = errors.Join(err, closeErr); err != nil {
			return err
		}

		stats := w.Stats()
		slog.Info("push complete", "pump", name, "key", cfg.Redis.Key, "lines", pumped, "batches", stats.Batches)
		return nil
	},
}

var redisPullCmd = &cobra.Command{
	Use:   "pull DST",
	Short: "Pop the items of a Redis list into DST, one per line",
	Long: `Pop items from a Redis list into DST until the end marker is popped,
the list stays empty for redis.idle_timeout, or the command is interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		compression, _ := fsstream.ParseCompression(cfg.Compression)

		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()

		lines, err := redisstream.NewListSource(client, cfg.Redis.Key, redisstream.SourceConfig{
			PollInterval: cfg.Redis.PollInterval,
			EndMarker:    cfg.Redis.EndMarker,
			IdleTimeout:  cfg.Redis.IdleTimeout,
		})
		if err != nil {
			return err
		}
		src := stream.NewWithContext(ctx, stream.MapSource(lines, func(line string) []byte {
			return []byte(line + "\n")
		}))

		fsys, err := osfs.New(".")
		if err != nil {
			_ = src.Close()
			return err
		}
		w, err := fsstream.Create(ctx, fsys, args[0], fsstream.Options{
			WriteQueueMaxSize: cfg.MaxQueueSize,
			Compression:       compression,
		})
		if err != nil {
			_ = src.Close()
			return err
		}

		reporter, err := newReporter(false, nil)
		if err != nil {
			_ = src.Close()
			_ = w.Close()
			return err
		}

		name := pumpName(redisName)
		pumped, err := runPump[[]byte](ctx, name, src, w, reporter)
		closeErr := w.Close()
		stopReporter(reporter)
		if err = errors.Join(err, closeErr); err != nil {
			return err
		}

		slog.Info("pull complete", "pump", name, "key", cfg.Redis.Key, "items", pumped, "bytes", w.Stats().BytesWritten)
		return nil
	},
}

func init() {
	redisCmd.PersistentFlags().StringVar(&redisAddr, "addr", "", "Redis address (default from config, localhost:6379)")
	redisCmd.PersistentFlags().StringVar(&redisKey, "key", "", "Redis list key")
	redisCmd.PersistentFlags().StringVar(&redisEndMarker, "end-marker", "", "item marking the end of the list")
	redisCmd.PersistentFlags().StringVar(&redisName, "name", "", "pump name in logs and metrics (default: random)")

	redisCmd.AddCommand(redisPushCmd, redisPullCmd)
	rootCmd.AddCommand(redisCmd)
}
