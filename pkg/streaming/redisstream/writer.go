package redisstream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/gopump/pkg/common/validation"
)

const (
	// DefaultBatchSize is the maximum number of items sent by one RPUSH.
	DefaultBatchSize = 100

	// DefaultWriteQueueMaxSize is the queued item count at which a ListWriter
	// reports a full write queue.
	DefaultWriteQueueMaxSize = 1000
)

// WriterConfig configures a ListWriter.
type WriterConfig struct {
	// BatchSize caps the items carried by a single RPUSH.
	// Default: DefaultBatchSize
	BatchSize int

	// WriteQueueMaxSize is the number of queued items at which
	// IsWriteQueueFull reports true.
	// Default: DefaultWriteQueueMaxSize
	WriteQueueMaxSize int

	// EndMarker is pushed after the remaining items on Close. Empty disables it.
	EndMarker string

	// OnError is called with every failed push and with writes after Close.
	OnError func(error)
}

// WriterStats holds counters of a ListWriter.
type WriterStats struct {
	// Pushed is the number of items appended to the list.
	Pushed int64

	// Batches is the number of RPUSH commands sent.
	Batches int64

	// Errors is the number of failed pipelines.
	Errors int64

	// Dropped is the number of items lost to failed pipelines or late writes.
	Dropped int64

	// Pending is the number of queued or in-flight items.
	Pending int
}

// ListWriter appends items to the tail of a Redis list. It satisfies
// pump.WritableStream[string] and pump.QueueLimiter.
//
// Write only queues; a background goroutine pushes queued items in pipelined
// RPUSH batches. The drain handler fires on that goroutine once the queue has
// fallen to half of its max size after being reported full.
type ListWriter struct {
	client redis.UniversalClient
	key    string
	config WriterConfig

	mu         sync.Mutex
	queue      []string
	inflight   int
	maxSize    int
	needsDrain bool
	drainFn    func()
	closed     bool
	waiters    []chan struct{}

	kickCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	lastErr atomic.Pointer[error]
	pushed  atomic.Int64
	batches atomic.Int64
	errors  atomic.Int64
	dropped atomic.Int64
}

// NewListWriter starts a writer that appends to the list at key.
func NewListWriter(client redis.UniversalClient, key string, config WriterConfig) (*ListWriter, error) {
	if err := validation.ValidateNotNil(module, "client", client); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty(module, "key", key); err != nil {
		return nil, err
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.WriteQueueMaxSize == 0 {
		config.WriteQueueMaxSize = DefaultWriteQueueMaxSize
	}
	if err := validation.ValidatePositive(module, "batchSize", config.BatchSize); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive(module, "writeQueueMaxSize", config.WriteQueueMaxSize); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &ListWriter{
		client:  client,
		key:     key,
		config:  config,
		maxSize: config.WriteQueueMaxSize,
		kickCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go w.loop()

	return w, nil
}

// Write queues item for the next push. After Close the item is dropped and
// ErrWriterClosed is reported to OnError.
func (w *ListWriter) Write(item string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.dropped.Add(1)
		w.reportError(ErrWriterClosed)
		return
	}
	w.queue = append(w.queue, item)
	w.mu.Unlock()

	w.kick()
}

// IsWriteQueueFull reports whether the queued and in-flight items reached the max size.
func (w *ListWriter) IsWriteQueueFull() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	full := len(w.queue)+w.inflight >= w.maxSize
	if full {
		w.needsDrain = true
	}
	return full
}

// OnDrain sets the drain handler. A nil handler clears it.
func (w *ListWriter) OnDrain(handler func()) {
	w.mu.Lock()
	w.drainFn = handler
	w.mu.Unlock()
}

// SetWriteQueueMaxSize changes the full threshold. Non-positive sizes are ignored.
func (w *ListWriter) SetWriteQueueMaxSize(size int) {
	if size <= 0 {
		return
	}
	w.mu.Lock()
	w.maxSize = size
	w.mu.Unlock()
}

// Pending returns the number of queued or in-flight items.
func (w *ListWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue) + w.inflight
}

// Flush waits until every item written before the call has been pushed or
// dropped, or until ctx is done.
func (w *ListWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.queue) == 0 && w.inflight == 0 {
		w.mu.Unlock()
		return nil
	}
	if w.closed {
		w.mu.Unlock()
		select {
		case <-w.doneCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	w.kick()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close pushes the remaining items, then the EndMarker when configured, and
// stops the background goroutine. It returns the last push error, if any.
// Closing twice is a no-op.
func (w *ListWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.doneCh
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.cancel()

	if errp := w.lastErr.Load(); errp != nil {
		return *errp
	}
	return nil
}

// Stats returns a snapshot of the writer's counters.
func (w *ListWriter) Stats() WriterStats {
	return WriterStats{
		Pushed:  w.pushed.Load(),
		Batches: w.batches.Load(),
		Errors:  w.errors.Load(),
		Dropped: w.dropped.Load(),
		Pending: w.Pending(),
	}
}

// Key returns the list key the writer appends to.
func (w *ListWriter) Key() string {
	return w.key
}

func (w *ListWriter) kick() {
	select {
	case w.kickCh <- struct{}{}:
	default:
	}
}

func (w *ListWriter) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.kickCh:
			w.pushQueued()
		case <-w.stopCh:
			w.pushQueued()
			if w.config.EndMarker != "" {
				if err := w.client.RPush(w.ctx, w.key, w.config.EndMarker).Err(); err != nil {
					w.fail(&RedisError{"rpush", w.key, err})
				}
			}
			w.releaseWaiters()
			return
		}
	}
}

// pushQueued sends everything queued so far, one pipeline per round.
func (w *ListWriter) pushQueued() {
	for {
		w.mu.Lock()
		items := w.queue
		w.queue = nil
		w.inflight = len(items)
		w.mu.Unlock()

		if len(items) == 0 {
			w.releaseWaiters()
			return
		}

		w.push(items)

		w.mu.Lock()
		w.inflight = 0
		var drain func()
		if w.needsDrain && len(w.queue) <= w.maxSize/2 {
			w.needsDrain = false
			drain = w.drainFn
		}
		w.mu.Unlock()

		if drain != nil {
			drain()
		}
	}
}

func (w *ListWriter) push(items []string) {
	pipe := w.client.Pipeline()
	batches := 0
	for start := 0; start < len(items); start += w.config.BatchSize {
		end := min(start+w.config.BatchSize, len(items))
		values := make([]interface{}, 0, end-start)
		for _, item := range items[start:end] {
			values = append(values, item)
		}
		pipe.RPush(w.ctx, w.key, values...)
		batches++
	}

	if _, err := pipe.Exec(w.ctx); err != nil {
		w.dropped.Add(int64(len(items)))
		w.fail(&RedisError{"rpush", w.key, err})
		return
	}
	w.batches.Add(int64(batches))
	w.pushed.Add(int64(len(items)))
}

func (w *ListWriter) releaseWaiters() {
	w.mu.Lock()
	waiters := w.waiters
	w.waiters = nil
	w.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

func (w *ListWriter) fail(err error) {
	w.errors.Add(1)
	w.lastErr.Store(&err)
	w.reportError(err)
}

func (w *ListWriter) reportError(err error) {
	if w.config.OnError != nil {
		w.config.OnError(err)
	}
}
