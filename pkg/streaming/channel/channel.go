package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// BackpressureStrategy defines how Send handles a full channel.
type BackpressureStrategy int

const (
	// Block strategy blocks the producer until space is available.
	Block BackpressureStrategy = iota

	// Drop strategy drops the newest message when buffer is full.
	Drop

	// DropOldest strategy drops the oldest message when buffer is full.
	DropOldest

	// Error strategy returns an error when buffer is full.
	Error
)

// String returns the metric label of the strategy.
func (s BackpressureStrategy) String() string {
	switch s {
	case Block:
		return "block"
	case Drop:
		return "drop"
	case DropOldest:
		return "drop_oldest"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ErrChannelFull is returned when the channel buffer is full and strategy is Error.
var ErrChannelFull = errors.New("channel buffer is full")

// ErrChannelClosed is returned when attempting to operate on a closed channel.
var ErrChannelClosed = errors.New("channel is closed")

// BackpressureChannel is a buffered queue with configurable backpressure.
//
// Producers either call Send/TrySend, which apply the configured strategy, or
// treat the channel as a writable stream for a pump: Write always enqueues,
// IsWriteQueueFull reports Len() >= Cap(), and the drain handler fires once the
// queue falls to half of Cap() after a full condition was observed.
type BackpressureChannel[T any] interface {
	// Send sends a value to the channel.
	Send(ctx context.Context, value T) error

	// TrySend attempts to send a value without blocking.
	TrySend(value T) error

	// Receive receives a value from the channel.
	Receive(ctx context.Context) (T, error)

	// TryReceive attempts to receive a value without blocking.
	TryReceive() (T, bool, error)

	// Write enqueues value regardless of capacity. Writing to a closed channel
	// reports ErrChannelClosed through Config.OnError.
	Write(value T)

	// IsWriteQueueFull reports whether Len() >= Cap().
	IsWriteQueueFull() bool

	// OnDrain sets the handler fired when the queue drains after being full.
	OnDrain(handler func())

	// SetWriteQueueMaxSize changes the capacity. Values below 1 are ignored.
	SetWriteQueueMaxSize(size int)

	// Close closes the channel for sending.
	Close() error

	// IsClosed returns true if the channel is closed.
	IsClosed() bool

	// Len returns the current number of buffered elements.
	Len() int

	// Cap returns the buffer capacity.
	Cap() int

	// Stats returns channel statistics.
	Stats() Stats
}

// Stats holds statistics about channel performance.
type Stats struct {
	// SendCount is the total number of enqueued values, through Send or Write.
	SendCount int64

	// ReceiveCount is the total number of receive operations.
	ReceiveCount int64

	// DroppedCount is the total number of dropped messages.
	DroppedCount int64

	// BlockedSends is the number of sends that had to block.
	BlockedSends int64

	// FullCount is the number of times a Write filled the queue.
	FullCount int64

	// DrainCount is the number of drain notifications.
	DrainCount int64

	// AverageSendTime is the average time per send operation.
	AverageSendTime time.Duration

	// AverageReceiveTime is the average time per receive operation.
	AverageReceiveTime time.Duration

	// BufferUtilization is the current buffer utilization. Writes past
	// capacity push it above 1.0.
	BufferUtilization float64

	// LastSendTime is the timestamp of the last send operation.
	LastSendTime time.Time

	// LastReceiveTime is the timestamp of the last receive operation.
	LastReceiveTime time.Time
}

// Config holds configuration for BackpressureChannel.
type Config struct {
	// BufferSize is the capacity of the channel.
	BufferSize int

	// Strategy defines how Send handles a full channel.
	Strategy BackpressureStrategy

	// OnDrop is called when a message is dropped (for Drop/DropOldest strategies).
	OnDrop func(value interface{})

	// OnBlock is called when a send operation blocks (for Block strategy).
	OnBlock func()

	// OnFull is called when a Write fills the queue.
	OnFull func()

	// OnError is called when an error occurs.
	OnError func(error)

	// SendTimeout is the maximum time to wait for send operations (0 = no timeout).
	SendTimeout time.Duration

	// ReceiveTimeout is the maximum time to wait for receive operations (0 = no timeout).
	ReceiveTimeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:     100,
		Strategy:       Block,
		SendTimeout:    0,
		ReceiveTimeout: 0,
	}
}

// backpressureChannel implements BackpressureChannel.
type backpressureChannel[T any] struct {
	config Config
	mu     sync.RWMutex

	// Channel state
	queue    []T
	head     int
	capacity int
	closed   int32

	// Drain state
	drainFn    func()
	needsDrain bool

	// Synchronization
	sendCond *sync.Cond
	recvCond *sync.Cond

	// Statistics
	stats   Stats
	statsMu sync.RWMutex
}

// New creates a new BackpressureChannel with default configuration.
func New[T any](bufferSize int) BackpressureChannel[T] {
	config := DefaultConfig()
	config.BufferSize = bufferSize
	return NewWithConfig[T](config)
}

// NewWithConfig creates a new BackpressureChannel with the specified configuration.
func NewWithConfig[T any](config Config) BackpressureChannel[T] {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	ch := &backpressureChannel[T]{
		config:   config,
		queue:    make([]T, 0, config.BufferSize),
		capacity: config.BufferSize,
	}

	ch.sendCond = sync.NewCond(&ch.mu)
	ch.recvCond = sync.NewCond(&ch.mu)

	return ch
}

// Send implements BackpressureChannel.Send.
func (ch *backpressureChannel[T]) Send(ctx context.Context, value T) error {
	startTime := time.Now()
	defer func() {
		ch.updateSendStats(time.Since(startTime))
	}()

	if ch.IsClosed() {
		return ErrChannelClosed
	}

	if ch.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ch.config.SendTimeout)
		defer cancel()
	}

	switch ch.config.Strategy {
	case Drop:
		return ch.dropSend(value)
	case DropOldest:
		return ch.dropOldestSend(value)
	case Error:
		return ch.errorSend(value)
	default:
		return ch.blockingSend(ctx, value)
	}
}

// TrySend implements BackpressureChannel.TrySend.
func (ch *backpressureChannel[T]) TrySend(value T) error {
	if ch.IsClosed() {
		return ErrChannelClosed
	}

	switch ch.config.Strategy {
	case Drop:
		return ch.dropSend(value)
	case DropOldest:
		return ch.dropOldestSend(value)
	default:
		return ch.errorSend(value)
	}
}

// Receive implements BackpressureChannel.Receive.
func (ch *backpressureChannel[T]) Receive(ctx context.Context) (T, error) {
	startTime := time.Now()
	defer func() {
		ch.updateReceiveStats(time.Since(startTime))
	}()

	if ch.config.ReceiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ch.config.ReceiveTimeout)
		defer cancel()
	}

	return ch.blockingReceive(ctx)
}

// TryReceive implements BackpressureChannel.TryReceive.
func (ch *backpressureChannel[T]) TryReceive() (T, bool, error) {
	var zero T

	ch.mu.Lock()
	if ch.lenLocked() == 0 {
		ch.mu.Unlock()
		if ch.IsClosed() {
			return zero, false, ErrChannelClosed
		}
		return zero, false, nil
	}

	value := ch.popLocked()
	drain := ch.checkDrainLocked()
	ch.mu.Unlock()

	ch.updateStats(func(s *Stats) { s.ReceiveCount++ })
	ch.fireDrain(drain)

	return value, true, nil
}

// Write implements BackpressureChannel.Write.
func (ch *backpressureChannel[T]) Write(value T) {
	if ch.IsClosed() {
		if ch.config.OnError != nil {
			ch.config.OnError(ErrChannelClosed)
		}
		return
	}

	ch.mu.Lock()
	ch.pushLocked(value)
	full := ch.lenLocked() >= ch.capacity
	if full {
		ch.needsDrain = true
	}
	ch.recvCond.Signal()
	ch.mu.Unlock()

	ch.updateStats(func(s *Stats) {
		s.SendCount++
		s.LastSendTime = time.Now()
		if full {
			s.FullCount++
		}
	})
	if full && ch.config.OnFull != nil {
		ch.config.OnFull()
	}
}

// IsWriteQueueFull implements BackpressureChannel.IsWriteQueueFull.
func (ch *backpressureChannel[T]) IsWriteQueueFull() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	full := ch.lenLocked() >= ch.capacity
	if full {
		ch.needsDrain = true
	}
	return full
}

// OnDrain implements BackpressureChannel.OnDrain.
func (ch *backpressureChannel[T]) OnDrain(handler func()) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.drainFn = handler
}

// SetWriteQueueMaxSize implements BackpressureChannel.SetWriteQueueMaxSize.
func (ch *backpressureChannel[T]) SetWriteQueueMaxSize(size int) {
	if size < 1 {
		return
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.capacity = size
	ch.sendCond.Broadcast()
}

// Close implements BackpressureChannel.Close.
func (ch *backpressureChannel[T]) Close() error {
	if !atomic.CompareAndSwapInt32(&ch.closed, 0, 1) {
		return nil // Already closed
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.sendCond.Broadcast()
	ch.recvCond.Broadcast()

	return nil
}

// IsClosed implements BackpressureChannel.IsClosed.
func (ch *backpressureChannel[T]) IsClosed() bool {
	return atomic.LoadInt32(&ch.closed) != 0
}

// Len implements BackpressureChannel.Len.
func (ch *backpressureChannel[T]) Len() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.lenLocked()
}

// Cap implements BackpressureChannel.Cap.
func (ch *backpressureChannel[T]) Cap() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	return ch.capacity
}

// Stats implements BackpressureChannel.Stats.
func (ch *backpressureChannel[T]) Stats() Stats {
	ch.statsMu.RLock()
	stats := ch.stats
	ch.statsMu.RUnlock()

	ch.mu.RLock()
	if ch.capacity > 0 {
		stats.BufferUtilization = float64(ch.lenLocked()) / float64(ch.capacity)
	}
	ch.mu.RUnlock()

	if stats.SendCount > 0 {
		stats.AverageSendTime = time.Duration(int64(stats.AverageSendTime) / stats.SendCount)
	}
	if stats.ReceiveCount > 0 {
		stats.AverageReceiveTime = time.Duration(int64(stats.AverageReceiveTime) / stats.ReceiveCount)
	}

	return stats
}

// blockingSend sends with blocking strategy.
func (ch *backpressureChannel[T]) blockingSend(ctx context.Context, value T) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	// Wake the waiter when ctx is done; Wait alone never observes it.
	stop := context.AfterFunc(ctx, func() {
		ch.mu.Lock()
		ch.sendCond.Broadcast()
		ch.mu.Unlock()
	})
	defer stop()

	for ch.lenLocked() >= ch.capacity && !ch.IsClosed() {
		if ch.config.OnBlock != nil {
			ch.config.OnBlock()
		}
		ch.updateStats(func(s *Stats) { s.BlockedSends++ })

		if err := ctx.Err(); err != nil {
			return err
		}
		ch.sendCond.Wait()
	}

	if ch.IsClosed() {
		return ErrChannelClosed
	}

	ch.pushLocked(value)
	ch.updateStats(func(s *Stats) { s.SendCount++ })
	ch.recvCond.Signal()

	return nil
}

// dropSend sends with drop strategy.
func (ch *backpressureChannel[T]) dropSend(value T) error {
	ch.mu.Lock()
	if ch.lenLocked() >= ch.capacity {
		ch.mu.Unlock()
		ch.updateStats(func(s *Stats) { s.DroppedCount++ })
		if ch.config.OnDrop != nil {
			ch.config.OnDrop(value)
		}
		return nil
	}

	ch.pushLocked(value)
	ch.recvCond.Signal()
	ch.mu.Unlock()

	ch.updateStats(func(s *Stats) { s.SendCount++ })
	return nil
}

// dropOldestSend sends with drop oldest strategy.
func (ch *backpressureChannel[T]) dropOldestSend(value T) error {
	ch.mu.Lock()
	var dropped []T
	for ch.lenLocked() >= ch.capacity && ch.lenLocked() > 0 {
		dropped = append(dropped, ch.popLocked())
	}
	ch.pushLocked(value)
	ch.recvCond.Signal()
	ch.mu.Unlock()

	ch.updateStats(func(s *Stats) {
		s.SendCount++
		s.DroppedCount += int64(len(dropped))
	})
	if ch.config.OnDrop != nil {
		for _, old := range dropped {
			ch.config.OnDrop(old)
		}
	}
	return nil
}

// errorSend sends with error strategy.
func (ch *backpressureChannel[T]) errorSend(value T) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.lenLocked() >= ch.capacity {
		return ErrChannelFull
	}

	ch.pushLocked(value)
	ch.updateStats(func(s *Stats) { s.SendCount++ })
	ch.recvCond.Signal()

	return nil
}

// blockingReceive receives with blocking.
func (ch *backpressureChannel[T]) blockingReceive(ctx context.Context) (T, error) {
	var zero T

	ch.mu.Lock()
	stop := context.AfterFunc(ctx, func() {
		ch.mu.Lock()
		ch.recvCond.Broadcast()
		ch.mu.Unlock()
	})
	defer stop()

	for ch.lenLocked() == 0 && !ch.IsClosed() {
		if err := ctx.Err(); err != nil {
			ch.mu.Unlock()
			return zero, err
		}
		ch.recvCond.Wait()
	}

	if ch.lenLocked() == 0 {
		ch.mu.Unlock()
		return zero, ErrChannelClosed
	}

	value := ch.popLocked()
	drain := ch.checkDrainLocked()
	ch.mu.Unlock()

	ch.updateStats(func(s *Stats) { s.ReceiveCount++ })
	ch.fireDrain(drain)

	return value, nil
}

func (ch *backpressureChannel[T]) lenLocked() int {
	return len(ch.queue) - ch.head
}

// pushLocked appends a value to the queue (must hold lock).
func (ch *backpressureChannel[T]) pushLocked(value T) {
	ch.queue = append(ch.queue, value)
}

// popLocked removes the oldest value (must hold lock and have count > 0).
func (ch *backpressureChannel[T]) popLocked() T {
	var zero T
	value := ch.queue[ch.head]
	ch.queue[ch.head] = zero // Clear reference
	ch.head++

	if ch.head == len(ch.queue) {
		ch.queue = ch.queue[:0]
		ch.head = 0
	} else if ch.head > cap(ch.queue)/2 {
		n := copy(ch.queue, ch.queue[ch.head:])
		clear(ch.queue[n:])
		ch.queue = ch.queue[:n]
		ch.head = 0
	}

	ch.sendCond.Signal()
	return value
}

// checkDrainLocked returns the drain handler to fire, if the queue reached
// the low-water mark after a full condition (must hold lock).
func (ch *backpressureChannel[T]) checkDrainLocked() func() {
	if !ch.needsDrain || ch.lenLocked() > ch.capacity/2 {
		return nil
	}
	ch.needsDrain = false
	return ch.drainFn
}

func (ch *backpressureChannel[T]) fireDrain(fn func()) {
	if fn == nil {
		return
	}
	ch.updateStats(func(s *Stats) { s.DrainCount++ })
	fn()
}

// updateStats safely updates statistics.
func (ch *backpressureChannel[T]) updateStats(updater func(*Stats)) {
	ch.statsMu.Lock()
	defer ch.statsMu.Unlock()
	updater(&ch.stats)
}

// updateSendStats updates send-related statistics.
func (ch *backpressureChannel[T]) updateSendStats(duration time.Duration) {
	ch.updateStats(func(s *Stats) {
		s.AverageSendTime += duration
		s.LastSendTime = time.Now()
	})
}

// updateReceiveStats updates receive-related statistics.
func (ch *backpressureChannel[T]) updateReceiveStats(duration time.Duration) {
	ch.updateStats(func(s *Stats) {
		s.AverageReceiveTime += duration
		s.LastReceiveTime = time.Now()
	})
}
