package fsstream

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"lesiw.io/fs"

	"github.com/vnykmshr/gopump/pkg/common/validation"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
)

// Result describes a finished copy.
type Result struct {
	Source      string
	Destination string

	// Chunks is the number of chunks forwarded by the pump.
	Chunks int64

	// Bytes is the number of uncompressed bytes accepted by the destination.
	Bytes int64

	Duration time.Duration
}

// Pair names one copy for CopyAll.
type Pair struct {
	Source      string
	Destination string
}

// Copy copies src to dst on fsys through a pump and reports the outcome to
// done exactly once. Copy returns right after the pump starts; done runs on a
// stream goroutine, or synchronously when src or dst cannot be opened.
//
// The pump is stopped and both files are closed when the source ends, when
// the source fails or when ctx is cancelled.
func Copy(ctx context.Context, fsys fs.FS, src, dst string, opts Options, done func(Result, error)) {
	if done == nil {
		done = func(Result, error) {}
	}
	opts, err := opts.withDefaults()
	if err != nil {
		done(Result{Source: src, Destination: dst}, err)
		return
	}

	start := time.Now()
	r, err := Open(ctx, fsys, src, opts)
	if err != nil {
		done(Result{Source: src, Destination: dst}, err)
		return
	}
	w, err := Create(ctx, fsys, dst, opts)
	if err != nil {
		_ = r.Close()
		done(Result{Source: src, Destination: dst}, err)
		return
	}

	config := pump.DefaultConfig()
	config.WriteQueueMaxSize = opts.WriteQueueMaxSize
	config.Name = opts.Name
	config.Logger = opts.Logger

	var p pump.Pump[[]byte]
	if opts.Metrics.Enabled && opts.Name != "" {
		p, err = pump.NewWithConfigAndMetrics[[]byte](r, w, config, opts.Name, opts.Metrics)
	} else {
		p, err = pump.NewWithConfig[[]byte](r, w, config)
	}
	if err != nil {
		_ = r.Close()
		_ = w.Close()
		done(Result{Source: src, Destination: dst}, err)
		return
	}

	logger := opts.Logger.With("src", src, "dst", dst)

	var (
		once      sync.Once
		mu        sync.Mutex
		stopAfter func() bool
	)
	finish := func(streamErr error) {
		once.Do(func() {
			mu.Lock()
			if stopAfter != nil {
				stopAfter()
			}
			mu.Unlock()

			p.Stop()
			_ = r.Close()
			closeErr := w.Close()

			res := Result{
				Source:      src,
				Destination: dst,
				Chunks:      p.NumberPumped(),
				Bytes:       w.Stats().BytesWritten,
				Duration:    time.Since(start),
			}
			err := streamErr
			if err == nil {
				err = closeErr
			}
			if err != nil {
				logger.Warn("copy failed", "chunks", res.Chunks, "err", err)
			} else {
				logger.Debug("copy finished", "chunks", res.Chunks, "bytes", res.Bytes, "duration", res.Duration)
			}
			done(res, err)
		})
	}

	r.OnEnd(func() { finish(nil) })
	r.OnError(finish)

	p.Start()
	if opts.OnPump != nil {
		opts.OnPump(p)
	}

	// A source paused by back-pressure does not observe cancellation itself.
	mu.Lock()
	stopAfter = context.AfterFunc(ctx, func() { finish(ctx.Err()) })
	mu.Unlock()
}

// CopyBlocking copies src to dst and waits for the copy to finish.
func CopyBlocking(ctx context.Context, fsys fs.FS, src, dst string, opts Options) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	Copy(ctx, fsys, src, dst, opts, func(res Result, err error) {
		ch <- outcome{res, err}
	})
	out := <-ch
	return out.res, out.err
}

// CopyAll runs the copies in pairs with at most parallelism copies at a time.
// The first failure cancels the copies still running. Results are returned
// in the order of pairs; entries of copies that never ran are zero.
func CopyAll(ctx context.Context, fsys fs.FS, pairs []Pair, opts Options, parallelism int) ([]Result, error) {
	if err := validation.ValidatePositive(module, "parallelism", parallelism); err != nil {
		return nil, err
	}

	parent := ctx
	results := make([]Result, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		pairOpts := opts
		if pairOpts.Name != "" {
			pairOpts.Name = opts.Name + "-" + pair.Destination
		}
		g.Go(func() error {
			res, err := CopyBlocking(ctx, fsys, pair.Source, pair.Destination, pairOpts)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, parent.Err()
}
