package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"lesiw.io/fs"
	"lesiw.io/fs/osfs"

	"github.com/vnykmshr/gopump/pkg/monitor"
	"github.com/vnykmshr/gopump/pkg/streaming/fsstream"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
)

var (
	copyMaxQueue    int
	copyChunkSize   int
	copyReport      string
	copyCompression string
	copyName        string
	copyProgress    bool
)

var copyCmd = &cobra.Command{
	Use:   "copy SRC DST",
	Short: "Copy a file through a pump",
	Long: `Copy SRC to DST through a pump. Files ending in .gz or .zst are
decompressed when read and compressed when written unless --compression
says otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]

		if cmd.Flags().Changed("max-queue") {
			cfg.MaxQueueSize = copyMaxQueue
		}
		if cmd.Flags().Changed("chunk-size") {
			cfg.ChunkSize = copyChunkSize
		}
		if cmd.Flags().Changed("report") {
			cfg.Report = copyReport
		}
		if cmd.Flags().Changed("compression") {
			cfg.Compression = copyCompression
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		compression, _ := fsstream.ParseCompression(cfg.Compression)

		ctx := cmd.Context()
		fsys, err := osfs.New(".")
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		if copyProgress {
			bar = progressbar.Default(totalChunks(cmd, fsys, src, compression), "copying "+src)
		}
		reporter, err := newReporter(bar != nil, func(snap monitor.Snapshot) {
			if bar != nil {
				_ = bar.Set64(snap.Pumped)
			}
		})
		if err != nil {
			return err
		}

		name := pumpName(copyName)
		res, err := fsstream.CopyBlocking(ctx, fsys, src, dst, fsstream.Options{
			ChunkSize:         cfg.ChunkSize,
			WriteQueueMaxSize: cfg.MaxQueueSize,
			Compression:       compression,
			Name:              name,
			Metrics:           metricsConfig(),
			Logger:            slog.Default(),
			OnPump: func(p pump.Pump[[]byte]) {
				watchPump(reporter, name, p)
			},
		})
		stopReporter(reporter)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return fmt.Errorf("copy %s to %s: %w", src, dst, err)
		}

		slog.Info("copy complete",
			"pump", name,
			"src", src,
			"dst", dst,
			"chunks", res.Chunks,
			"bytes", res.Bytes,
			"duration", res.Duration)
		return nil
	},
}

// totalChunks estimates the chunk count of an uncompressed source, or -1
// when it cannot be known up front.
func totalChunks(cmd *cobra.Command, fsys fs.FS, src string, compression fsstream.Compression) int64 {
	if compression.Resolve(src) != fsstream.None {
		return -1
	}
	info, err := fs.Stat(cmd.Context(), fsys, src)
	if err != nil {
		return -1
	}
	chunk := int64(cfg.ChunkSize)
	return (info.Size() + chunk - 1) / chunk
}

func init() {
	copyCmd.Flags().IntVar(&copyMaxQueue, "max-queue", 0, "pending bytes at which the source is paused")
	copyCmd.Flags().IntVar(&copyChunkSize, "chunk-size", 0, "bytes read from the source per chunk")
	copyCmd.Flags().StringVar(&copyReport, "report", "", `progress report schedule, e.g. "@every 5s"; empty disables reports`)
	copyCmd.Flags().StringVar(&copyCompression, "compression", "", "auto, none, gzip or zstd")
	copyCmd.Flags().StringVar(&copyName, "name", "", "pump name in logs and metrics (default: random)")
	copyCmd.Flags().BoolVar(&copyProgress, "progress", false, "show a progress bar")

	rootCmd.AddCommand(copyCmd)
}
