package stream

import "sync"

// Emitter is a caller-driven readable stream. It satisfies
// pump.ReadableStream.
//
// Emit delivers synchronously on the calling goroutine while the emitter is
// flowing and otherwise buffers. Buffered items are delivered in order as
// soon as the emitter flows again, from whichever goroutine caused it (Resume
// or OnData). Only one goroutine delivers at a time.
type Emitter[T any] struct {
	mu       sync.Mutex
	buffer   []T
	paused   bool
	flushing bool
	ended    bool
	failed   error
	notified bool
	dataFn   func(T)
	endFn    func()
	errFn    func(error)
}

// NewEmitter creates a flowing Emitter with no handlers.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Emit queues item for delivery. It returns ErrStreamClosed after End or Fail.
func (e *Emitter[T]) Emit(item T) error {
	e.mu.Lock()
	if e.ended || e.failed != nil {
		e.mu.Unlock()
		return ErrStreamClosed
	}
	e.buffer = append(e.buffer, item)
	e.flushLocked()
	return nil
}

// End marks the emitter finished. The end handler runs once every buffered
// item has been delivered.
func (e *Emitter[T]) End() {
	e.mu.Lock()
	if e.ended || e.failed != nil {
		e.mu.Unlock()
		return
	}
	e.ended = true
	e.flushLocked()
}

// Fail marks the emitter failed. The error handler runs once every buffered
// item has been delivered.
func (e *Emitter[T]) Fail(err error) {
	e.mu.Lock()
	if e.ended || e.failed != nil {
		e.mu.Unlock()
		return
	}
	e.failed = err
	e.flushLocked()
}

// Pause holds further items in the buffer until Resume.
func (e *Emitter[T]) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// Resume delivers the buffered items in order and then flows again.
func (e *Emitter[T]) Resume() {
	e.mu.Lock()
	e.paused = false
	e.flushLocked()
}

// OnData installs the data handler and delivers any buffered items to it.
func (e *Emitter[T]) OnData(handler func(T)) {
	e.mu.Lock()
	e.dataFn = handler
	e.flushLocked()
}

// OnEnd installs the end handler. An end that happened while no handler was
// installed is delivered to the first one installed.
func (e *Emitter[T]) OnEnd(handler func()) {
	e.mu.Lock()
	e.endFn = handler
	e.flushLocked()
}

// OnError installs the error handler. A failure that happened while no handler
// was installed is delivered to the first one installed.
func (e *Emitter[T]) OnError(handler func(error)) {
	e.mu.Lock()
	e.errFn = handler
	e.flushLocked()
}

// Buffered returns the number of items waiting for delivery.
func (e *Emitter[T]) Buffered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffer)
}

// IsPaused reports whether Pause was called without a later Resume.
func (e *Emitter[T]) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// flushLocked delivers buffered items while flowing and then the terminal
// notification. It must be called with mu held and releases it.
func (e *Emitter[T]) flushLocked() {
	if e.flushing {
		e.mu.Unlock()
		return
	}
	e.flushing = true

	for !e.paused && e.dataFn != nil && len(e.buffer) > 0 {
		item := e.buffer[0]
		var zero T
		e.buffer[0] = zero
		e.buffer = e.buffer[1:]
		fn := e.dataFn

		e.mu.Unlock()
		fn(item)
		e.mu.Lock()
	}

	var endFn func()
	var errFn func(error)
	var err error
	if len(e.buffer) == 0 && !e.notified {
		switch {
		case e.failed != nil && e.errFn != nil:
			e.notified = true
			errFn, err = e.errFn, e.failed
		case e.ended && e.endFn != nil:
			e.notified = true
			endFn = e.endFn
		}
	}

	e.flushing = false
	e.mu.Unlock()

	if endFn != nil {
		endFn()
	}
	if errFn != nil {
		errFn(err)
	}
}
