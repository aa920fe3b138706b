package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStreamClosed is returned when attempting to operate on a closed stream.
var ErrStreamClosed = errors.New("stream is closed")

// Source represents a pull-based data source for readable streams.
type Source[T any] interface {
	// Next returns the next element and true, or zero value and false if no more elements.
	Next(ctx context.Context) (T, bool, error)
	// Close closes the source and releases resources.
	Close() error
}

// Readable is a push-based stream over a Source. It satisfies
// pump.ReadableStream.
//
// A single emit goroutine starts on the first non-nil OnData. Items are only
// delivered while a data handler is installed and the stream is not paused;
// an item already pulled from the source when the stream stops flowing is held
// and delivered first once it flows again.
type Readable[T any] struct {
	source Source[T]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	cond       *sync.Cond
	paused     bool
	started    bool
	closed     bool
	finished   bool
	hasPending bool
	pending    T
	dataFn     func(T)
	endFn      func()
	errFn      func(error)

	emitted atomic.Int64
}

// New creates a Readable over source. Nothing is pulled until a data handler
// is installed.
func New[T any](source Source[T]) *Readable[T] {
	return NewWithContext(context.Background(), source)
}

// NewWithContext creates a Readable whose source calls receive a context
// derived from ctx. Cancelling ctx ends the stream with ctx.Err().
func NewWithContext[T any](ctx context.Context, source Source[T]) *Readable[T] {
	ctx, cancel := context.WithCancel(ctx)
	r := &Readable[T]{
		source: source,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// FromSlice creates a Readable that emits the elements of slice.
func FromSlice[T any](slice []T) *Readable[T] {
	return New[T](SliceSource(slice))
}

// FromChannel creates a Readable that emits values received from ch until it is closed.
func FromChannel[T any](ch <-chan T) *Readable[T] {
	return New[T](ChannelSource(ch))
}

// Generate creates an infinite Readable from a generator function.
func Generate[T any](generator func() T) *Readable[T] {
	return New[T](GeneratorSource(generator))
}

// Empty creates a Readable that ends immediately.
func Empty[T any]() *Readable[T] {
	return New[T](&emptySource[T]{})
}

// Pause stops delivery after the item currently being delivered, if any.
func (r *Readable[T]) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume restarts delivery.
func (r *Readable[T]) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	r.cond.Broadcast()
}

// OnData installs the data handler; nil removes it. The first non-nil handler
// starts the emit goroutine.
func (r *Readable[T]) OnData(handler func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dataFn = handler
	if handler != nil && !r.started && !r.closed {
		r.started = true
		go r.emitLoop()
	}
	r.cond.Broadcast()
}

// OnEnd installs the handler called once when the source is exhausted.
func (r *Readable[T]) OnEnd(handler func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endFn = handler
}

// OnError installs the handler called once when the source fails.
func (r *Readable[T]) OnError(handler func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errFn = handler
}

// IsPaused reports whether Pause was called without a later Resume.
func (r *Readable[T]) IsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// IsClosed reports whether the stream ended, failed or was closed.
func (r *Readable[T]) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed || r.finished
}

// Emitted returns the number of items delivered to data handlers.
func (r *Readable[T]) Emitted() int64 {
	return r.emitted.Load()
}

// Done is closed once the emit goroutine has exited and the source is closed.
func (r *Readable[T]) Done() <-chan struct{} {
	return r.done
}

// Close stops the emit goroutine without calling the end or error handlers
// and closes the source. It does not wait for the goroutine; use Done for that.
func (r *Readable[T]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.cond.Broadcast()
	r.mu.Unlock()

	r.cancel()
	if started {
		return nil
	}
	close(r.done)
	return r.source.Close()
}

func (r *Readable[T]) emitLoop() {
	defer func() {
		_ = r.source.Close()
		r.cancel()
		close(r.done)
	}()

	for {
		r.mu.Lock()
		for !r.closed && (r.paused || r.dataFn == nil) {
			r.cond.Wait()
		}
		if r.closed {
			r.mu.Unlock()
			return
		}

		if !r.hasPending {
			r.mu.Unlock()
			item, ok, err := r.source.Next(r.ctx)

			r.mu.Lock()
			if r.closed {
				r.mu.Unlock()
				return
			}
			if err != nil || !ok {
				r.finished = true
				endFn, errFn := r.endFn, r.errFn
				r.mu.Unlock()

				if err != nil {
					if errFn != nil {
						errFn(err)
					}
				} else if endFn != nil {
					endFn()
				}
				return
			}
			r.pending, r.hasPending = item, true
			// Pause or handler removal may have happened during Next.
			r.mu.Unlock()
			continue
		}

		item := r.pending
		var zero T
		r.pending, r.hasPending = zero, false
		fn := r.dataFn
		r.mu.Unlock()

		fn(item)
		r.emitted.Add(1)
	}
}
