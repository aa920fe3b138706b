package fsstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"lesiw.io/fs"

	"github.com/vnykmshr/gopump/pkg/common/validation"
	"github.com/vnykmshr/gopump/pkg/metrics"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
	"github.com/vnykmshr/gopump/pkg/streaming/stream"
	"github.com/vnykmshr/gopump/pkg/streaming/writer"
)

const module = "fsstream"

// Options configures file endpoints and copies.
type Options struct {
	// ChunkSize is the size of the chunks read from a source file.
	// Default: stream.DefaultChunkSize
	ChunkSize int

	// WriteQueueMaxSize is the number of pending bytes at which a file writer
	// reports a full queue.
	// Default: writer.DefaultWriteQueueMaxSize
	WriteQueueMaxSize int

	// Compression selects the codec. The zero value picks it by extension.
	Compression Compression

	// Name labels the copy pump in logs and metrics. Empty leaves it unnamed.
	Name string

	// Metrics, when Enabled, records pump and writer metrics under Name.
	Metrics metrics.Config

	// Logger receives copy progress records. Defaults to slog.Default().
	Logger *slog.Logger

	// OnPump is called with the copy pump right after it starts.
	OnPump func(pump.Pump[[]byte])
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:         stream.DefaultChunkSize,
		WriteQueueMaxSize: writer.DefaultWriteQueueMaxSize,
	}
}

func (o Options) withDefaults() (Options, error) {
	if o.ChunkSize == 0 {
		o.ChunkSize = stream.DefaultChunkSize
	}
	if o.WriteQueueMaxSize == 0 {
		o.WriteQueueMaxSize = writer.DefaultWriteQueueMaxSize
	}
	if err := validation.ValidatePositive(module, "chunkSize", o.ChunkSize); err != nil {
		return o, err
	}
	if err := validation.ValidatePositive(module, "writeQueueMaxSize", o.WriteQueueMaxSize); err != nil {
		return o, err
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}

// Open opens name on fsys as a readable stream of chunks, decompressing it
// according to opts.Compression. Cancelling ctx ends the stream with an error.
func Open(ctx context.Context, fsys fs.FS, name string, opts Options) (*stream.Readable[[]byte], error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	r, err := OpenReader(ctx, fsys, name, opts.Compression)
	if err != nil {
		return nil, err
	}
	return stream.NewWithContext(ctx, stream.FromReader(r, opts.ChunkSize)), nil
}

// OpenReader opens name on fsys and returns its decompressed contents.
// Closing the reader closes the file.
func OpenReader(ctx context.Context, fsys fs.FS, name string, compression Compression) (io.ReadCloser, error) {
	if err := validation.ValidateNotNil(module, "fsys", fsys); err != nil {
		return nil, err
	}

	f, err := fs.Open(ctx, fsys, name)
	if err != nil {
		return nil, err
	}
	r, err := decompress(f, compression.Resolve(name))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return r, nil
}

// FileWriter is a writable stream of chunks backed by a file. Chunks are
// written by an AsyncWriter, so Write never blocks on the file.
type FileWriter struct {
	*writer.Writable

	name string
	out  io.WriteCloser

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	closeErr  error
}

// Create creates or truncates name on fsys and returns a writer compressing
// according to opts.Compression.
func Create(ctx context.Context, fsys fs.FS, name string, opts Options) (*FileWriter, error) {
	if err := validation.ValidateNotNil(module, "fsys", fsys); err != nil {
		return nil, err
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	f, err := fs.Create(ctx, fsys, name)
	if err != nil {
		return nil, err
	}
	out, err := compress(f, opts.Compression.Resolve(name))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	fw := &FileWriter{name: name, out: out}

	config := writer.DefaultConfig()
	config.WriteQueueMaxSize = opts.WriteQueueMaxSize
	config.OnError = fw.recordError

	var aw writer.AsyncWriter
	if opts.Metrics.Enabled && opts.Name != "" {
		aw = writer.NewWithMetrics(out, config, opts.Name, opts.Metrics)
	} else {
		aw = writer.NewWithConfig(out, config)
	}
	fw.Writable = writer.NewWritable(aw)

	return fw, nil
}

// Name returns the path the writer was created with.
func (fw *FileWriter) Name() string {
	return fw.name
}

// Err returns the first write error, if any.
func (fw *FileWriter) Err() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.err
}

// Stats returns the statistics of the underlying AsyncWriter.
func (fw *FileWriter) Stats() writer.Stats {
	return fw.Writer().Stats()
}

// Close flushes pending chunks, finishes the codec and closes the file.
// It returns the first write error or the first close error. Later calls
// return the same result.
func (fw *FileWriter) Close() error {
	fw.closeOnce.Do(func() {
		flushErr := fw.Writer().Close()
		outErr := fw.out.Close()
		if err := fw.Err(); err != nil {
			fw.closeErr = err
			return
		}
		fw.closeErr = errors.Join(flushErr, outErr)
	})
	return fw.closeErr
}

func (fw *FileWriter) recordError(err error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.err == nil {
		fw.err = fmt.Errorf("write %s: %w", fw.name, err)
	}
}
