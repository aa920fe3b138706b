package writer

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrWriterClosed is returned when attempting to write to a closed writer.
var ErrWriterClosed = errors.New("writer is closed")

// ErrBufferFull is returned when the internal buffer is full and cannot accept more data.
var ErrBufferFull = errors.New("buffer is full")

// DefaultWriteQueueMaxSize is the pending byte count at which the write queue
// reports full.
const DefaultWriteQueueMaxSize = 64 * 1024

// AsyncWriter provides asynchronous, buffered writing capabilities.
// It buffers write operations in memory and flushes them to the underlying
// writer in a background goroutine, providing non-blocking write operations.
//
// Besides the request based Write methods, an AsyncWriter has a write queue
// surface for pumps: Enqueue never blocks, IsWriteQueueFull compares the
// pending byte count with the write queue max size, and the drain handler
// fires from the background goroutine once pending bytes fall to half of it.
// Use Writable to connect an AsyncWriter to a pump.
type AsyncWriter interface {
	// Write writes data asynchronously. Returns immediately without blocking.
	// If the buffer is full and blocking is disabled, returns ErrBufferFull.
	Write(data []byte) error

	// WriteString writes a string asynchronously.
	WriteString(s string) error

	// WriteContext writes data with context support for cancellation.
	WriteContext(ctx context.Context, data []byte) error

	// Enqueue copies data into the buffer without waiting for the background
	// goroutine. After Close it reports ErrWriterClosed through Config.OnError
	// and returns it.
	Enqueue(data []byte) error

	// IsWriteQueueFull reports whether pending bytes reached the write queue max size.
	IsWriteQueueFull() bool

	// OnDrain sets the handler fired when the write queue drains after being full.
	OnDrain(handler func())

	// SetWriteQueueMaxSize changes the full threshold. Values below 1 are ignored.
	SetWriteQueueMaxSize(size int)

	// Pending returns the number of accepted bytes not yet written.
	Pending() int

	// Flush forces all buffered data to be written to the underlying writer.
	// This operation blocks until all data is flushed or context is canceled.
	Flush(ctx context.Context) error

	// Close gracefully shuts down the writer, flushing any remaining data.
	// After Close returns, no more writes are accepted.
	Close() error

	// Stats returns statistics about the writer's performance.
	Stats() Stats

	// IsClosed returns true if the writer is closed.
	IsClosed() bool

	// BufferSize returns the current number of buffered bytes.
	BufferSize() int

	// BufferCapacity returns the maximum buffer capacity.
	BufferCapacity() int
}

// Stats holds statistics about async writer performance.
type Stats struct {
	// BytesWritten is the total number of bytes accepted.
	BytesWritten int64

	// WriteCount is the total number of write operations.
	WriteCount int64

	// FlushCount is the total number of flush operations.
	FlushCount int64

	// ErrorCount is the total number of errors encountered.
	ErrorCount int64

	// BufferOverflows is the number of times the buffer was full.
	BufferOverflows int64

	// DrainCount is the number of drain notifications.
	DrainCount int64

	// AverageWriteTime is the average time per write operation.
	AverageWriteTime time.Duration

	// TotalWriteTime is the total time spent writing.
	TotalWriteTime time.Duration

	// LastWriteTime is the timestamp of the last write operation.
	LastWriteTime time.Time

	// BufferUtilization is the current buffer utilization. Enqueued data can
	// push it above 1.0.
	BufferUtilization float64
}

// Config holds configuration options for AsyncWriter.
type Config struct {
	// BufferSize is the size of the internal buffer in bytes.
	// Default: 64KB
	BufferSize int

	// WriteQueueMaxSize is the pending byte count at which IsWriteQueueFull
	// reports true. Default: DefaultWriteQueueMaxSize
	WriteQueueMaxSize int

	// FlushInterval is how often to flush the buffer automatically.
	// Set to 0 to disable automatic flushing.
	// Default: 1 second
	FlushInterval time.Duration

	// BlockOnFull determines behavior when buffer is full.
	// If true, Write operations will block until space is available.
	// If false, Write operations will return ErrBufferFull immediately.
	// Default: true
	BlockOnFull bool

	// MaxRetries is the number of times to retry failed write operations.
	// Default: 3
	MaxRetries int

	// RetryDelay is the delay between retries.
	// Default: 100ms
	RetryDelay time.Duration

	// OnError is called when write errors occur.
	OnError func(error)

	// OnFlush is called after each flush operation.
	OnFlush func(bytesWritten int, duration time.Duration)

	// OnBufferFull is called when the buffer becomes full.
	OnBufferFull func()
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:        64 * 1024, // 64KB
		WriteQueueMaxSize: DefaultWriteQueueMaxSize,
		FlushInterval:     time.Second,
		BlockOnFull:       true,
		MaxRetries:        3,
		RetryDelay:        100 * time.Millisecond,
	}
}

// writeRequest represents a write operation request.
type writeRequest struct {
	data []byte
	ctx  context.Context
	done chan error // Channel to signal completion
}

// asyncWriter implements AsyncWriter.
type asyncWriter struct {
	underlying io.Writer
	config     Config

	// Buffer and write queue state
	buffer     []byte
	inflight   int
	maxQueue   int
	needsDrain bool
	drainFn    func()
	bufferMu   sync.RWMutex

	// flushMu serializes writes to the underlying writer.
	flushMu sync.Mutex

	// Communication channels
	writeCh chan writeRequest
	flushCh chan chan error
	closeCh chan chan error
	kickCh  chan struct{}

	// Background goroutine management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	closed int32 // atomic

	// Statistics
	stats   Stats
	statsMu sync.RWMutex
}

// New creates a new AsyncWriter with default configuration.
func New(w io.Writer) AsyncWriter {
	return NewWithConfig(w, DefaultConfig())
}

// NewWithConfig creates a new AsyncWriter with the specified configuration.
func NewWithConfig(w io.Writer, config Config) AsyncWriter {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WriteQueueMaxSize <= 0 {
		config.WriteQueueMaxSize = DefaultWriteQueueMaxSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = DefaultConfig().MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())

	aw := &asyncWriter{
		underlying: w,
		config:     config,
		buffer:     make([]byte, 0, config.BufferSize),
		maxQueue:   config.WriteQueueMaxSize,
		writeCh:    make(chan writeRequest, 100), // Buffered channel for requests
		flushCh:    make(chan chan error, 10),
		closeCh:    make(chan chan error, 1),
		kickCh:     make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	aw.wg.Add(1)
	go aw.writerLoop()

	if config.FlushInterval > 0 {
		aw.wg.Add(1)
		go aw.flushLoop()
	}

	return aw
}

// Write implements AsyncWriter.Write.
func (aw *asyncWriter) Write(data []byte) error {
	return aw.WriteContext(context.Background(), data)
}

// WriteString implements AsyncWriter.WriteString.
func (aw *asyncWriter) WriteString(s string) error {
	return aw.WriteContext(context.Background(), []byte(s))
}

// WriteContext implements AsyncWriter.WriteContext.
func (aw *asyncWriter) WriteContext(ctx context.Context, data []byte) error {
	if aw.IsClosed() {
		return ErrWriterClosed
	}

	if len(data) == 0 {
		return nil
	}

	aw.bufferMu.RLock()
	wouldOverflow := len(aw.buffer)+len(data) > aw.config.BufferSize
	aw.bufferMu.RUnlock()

	if wouldOverflow && !aw.config.BlockOnFull {
		aw.updateStats(func(s *Stats) {
			s.BufferOverflows++
		})
		if aw.config.OnBufferFull != nil {
			aw.config.OnBufferFull()
		}
		return ErrBufferFull
	}

	req := writeRequest{
		data: make([]byte, len(data)),
		ctx:  ctx,
		done: make(chan error, 1),
	}
	copy(req.data, data)

	select {
	case aw.writeCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-aw.ctx.Done():
		return ErrWriterClosed
	}

	if aw.config.BlockOnFull {
		select {
		case err := <-req.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-aw.ctx.Done():
			return ErrWriterClosed
		}
	}

	return nil
}

// Enqueue implements AsyncWriter.Enqueue.
func (aw *asyncWriter) Enqueue(data []byte) error {
	if aw.IsClosed() {
		aw.updateStats(func(s *Stats) { s.ErrorCount++ })
		if aw.config.OnError != nil {
			aw.config.OnError(ErrWriterClosed)
		}
		return ErrWriterClosed
	}
	if len(data) == 0 {
		return nil
	}

	aw.bufferMu.Lock()
	aw.buffer = append(aw.buffer, data...)
	bufferLen := len(aw.buffer)
	full := bufferLen+aw.inflight >= aw.maxQueue
	if full {
		aw.needsDrain = true
	}
	aw.bufferMu.Unlock()

	aw.updateStats(func(s *Stats) {
		s.WriteCount++
		s.BytesWritten += int64(len(data))
		s.LastWriteTime = time.Now()
		if full {
			s.BufferOverflows++
		}
	})

	if full || bufferLen >= aw.config.BufferSize {
		aw.kick()
	}
	if full && aw.config.OnBufferFull != nil {
		aw.config.OnBufferFull()
	}
	return nil
}

// IsWriteQueueFull implements AsyncWriter.IsWriteQueueFull.
func (aw *asyncWriter) IsWriteQueueFull() bool {
	aw.bufferMu.Lock()
	defer aw.bufferMu.Unlock()

	full := len(aw.buffer)+aw.inflight >= aw.maxQueue
	if full {
		aw.needsDrain = true
	}
	return full
}

// OnDrain implements AsyncWriter.OnDrain.
func (aw *asyncWriter) OnDrain(handler func()) {
	aw.bufferMu.Lock()
	defer aw.bufferMu.Unlock()
	aw.drainFn = handler
}

// SetWriteQueueMaxSize implements AsyncWriter.SetWriteQueueMaxSize.
func (aw *asyncWriter) SetWriteQueueMaxSize(size int) {
	if size < 1 {
		return
	}
	aw.bufferMu.Lock()
	defer aw.bufferMu.Unlock()
	aw.maxQueue = size
}

// Pending implements AsyncWriter.Pending.
func (aw *asyncWriter) Pending() int {
	aw.bufferMu.RLock()
	defer aw.bufferMu.RUnlock()
	return len(aw.buffer) + aw.inflight
}

// Flush implements AsyncWriter.Flush.
func (aw *asyncWriter) Flush(ctx context.Context) error {
	if aw.IsClosed() {
		return ErrWriterClosed
	}

	done := make(chan error, 1)

	select {
	case aw.flushCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	case <-aw.ctx.Done():
		return ErrWriterClosed
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-aw.ctx.Done():
		return ErrWriterClosed
	}
}

// Close implements AsyncWriter.Close.
func (aw *asyncWriter) Close() error {
	if !atomic.CompareAndSwapInt32(&aw.closed, 0, 1) {
		return nil // Already closed
	}

	done := make(chan error, 1)
	aw.closeCh <- done
	err := <-done

	aw.wg.Wait()
	return err
}

// Stats implements AsyncWriter.Stats.
func (aw *asyncWriter) Stats() Stats {
	aw.statsMu.RLock()
	stats := aw.stats
	aw.statsMu.RUnlock()

	aw.bufferMu.RLock()
	stats.BufferUtilization = float64(len(aw.buffer)) / float64(aw.config.BufferSize)
	aw.bufferMu.RUnlock()

	if stats.WriteCount > 0 {
		stats.AverageWriteTime = time.Duration(int64(stats.TotalWriteTime) / stats.WriteCount)
	}

	return stats
}

// IsClosed implements AsyncWriter.IsClosed.
func (aw *asyncWriter) IsClosed() bool {
	return atomic.LoadInt32(&aw.closed) != 0
}

// BufferSize implements AsyncWriter.BufferSize.
func (aw *asyncWriter) BufferSize() int {
	aw.bufferMu.RLock()
	defer aw.bufferMu.RUnlock()
	return len(aw.buffer)
}

// BufferCapacity implements AsyncWriter.BufferCapacity.
func (aw *asyncWriter) BufferCapacity() int {
	return aw.config.BufferSize
}

func (aw *asyncWriter) kick() {
	select {
	case aw.kickCh <- struct{}{}:
	default:
	}
}

// writerLoop is the main background goroutine that handles write operations.
func (aw *asyncWriter) writerLoop() {
	defer aw.wg.Done()

	for {
		select {
		case req := <-aw.writeCh:
			err := aw.handleWriteRequest(req)
			select {
			case req.done <- err:
			default:
			}

		case <-aw.kickCh:
			_ = aw.flushBuffer()

		case done := <-aw.flushCh:
			done <- aw.flushBuffer()

		case done := <-aw.closeCh:
			// Requests accepted before Close still reach the underlying writer.
			for {
				select {
				case req := <-aw.writeCh:
					req.done <- aw.handleWriteRequest(req)
					continue
				default:
				}
				break
			}
			err := aw.flushBuffer()
			aw.cancel()
			done <- err
			return
		}
	}
}

// flushLoop automatically flushes the buffer at regular intervals.
func (aw *asyncWriter) flushLoop() {
	defer aw.wg.Done()

	ticker := time.NewTicker(aw.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = aw.flushBuffer() // Ignore error in automatic flush
		case <-aw.ctx.Done():
			return
		}
	}
}

// handleWriteRequest processes a write request.
func (aw *asyncWriter) handleWriteRequest(req writeRequest) error {
	startTime := time.Now()

	aw.bufferMu.RLock()
	overflow := len(aw.buffer)+len(req.data) > aw.config.BufferSize
	aw.bufferMu.RUnlock()

	if overflow {
		if err := aw.flushBuffer(); err != nil {
			return err
		}
	}

	aw.bufferMu.Lock()
	aw.buffer = append(aw.buffer, req.data...)
	aw.bufferMu.Unlock()

	duration := time.Since(startTime)
	aw.updateStats(func(s *Stats) {
		s.WriteCount++
		s.BytesWritten += int64(len(req.data))
		s.TotalWriteTime += duration
		s.LastWriteTime = time.Now()
	})

	return nil
}

// flushBuffer writes all buffered data to the underlying writer and fires the
// drain handler when the write queue reached its low-water mark.
func (aw *asyncWriter) flushBuffer() error {
	aw.flushMu.Lock()

	aw.bufferMu.Lock()
	if len(aw.buffer) == 0 {
		aw.bufferMu.Unlock()
		aw.flushMu.Unlock()
		return nil
	}

	data := aw.buffer
	aw.buffer = make([]byte, 0, aw.config.BufferSize)
	aw.inflight = len(data)
	aw.bufferMu.Unlock()

	startTime := time.Now()
	bytesWritten, err := aw.writeWithRetries(data)
	duration := time.Since(startTime)

	aw.bufferMu.Lock()
	aw.inflight = 0
	var drain func()
	if aw.needsDrain && len(aw.buffer) <= aw.maxQueue/2 {
		aw.needsDrain = false
		drain = aw.drainFn
	}
	aw.bufferMu.Unlock()
	aw.flushMu.Unlock()

	aw.updateStats(func(s *Stats) {
		s.FlushCount++
		if err != nil {
			s.ErrorCount++
		}
		if drain != nil {
			s.DrainCount++
		}
	})

	if aw.config.OnFlush != nil {
		aw.config.OnFlush(bytesWritten, duration)
	}
	if err != nil && aw.config.OnError != nil {
		aw.config.OnError(err)
	}
	if drain != nil {
		drain()
	}

	return err
}

// writeWithRetries writes data with retry logic.
func (aw *asyncWriter) writeWithRetries(data []byte) (int, error) {
	var totalWritten int
	var lastErr error

	for attempt := 0; attempt <= aw.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(aw.config.RetryDelay):
			case <-aw.ctx.Done():
				return totalWritten, aw.ctx.Err()
			}
		}

		written, err := aw.underlying.Write(data[totalWritten:])
		totalWritten += written

		if err != nil {
			lastErr = err
			continue
		}

		if totalWritten >= len(data) {
			return totalWritten, nil
		}
	}

	return totalWritten, lastErr
}

// updateStats safely updates statistics.
func (aw *asyncWriter) updateStats(updater func(*Stats)) {
	aw.statsMu.Lock()
	defer aw.statsMu.Unlock()
	updater(&aw.stats)
}
