// Package throttle limits the rate at which items reach a writable stream.
//
// A throttled Writable spends one token per write from a token bucket that
// refills at Rate tokens per second up to Burst. It reports its write queue as
// full while the bucket is empty, so a pump pauses its source until a token is
// available again, and while the wrapped stream itself is full.
package throttle

import (
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/gopump/pkg/common/validation"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
)

const module = "throttle"

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds the token bucket parameters.
type Config struct {
	// Rate is the number of tokens added per second.
	Rate float64

	// Burst is the bucket capacity. The bucket starts full.
	Burst int

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock
}

// Writable wraps a writable stream with a token bucket. It satisfies
// pump.WritableStream and pump.QueueLimiter.
type Writable[T any] struct {
	inner pump.WritableStream[T]
	clock Clock

	mu         sync.Mutex
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	drainFn    func()
	needsDrain bool
	timer      *time.Timer
	closed     bool
}

// New wraps inner with a bucket refilling at rate tokens per second up to burst.
func New[T any](inner pump.WritableStream[T], rate float64, burst int) (*Writable[T], error) {
	return NewWithConfig(inner, Config{Rate: rate, Burst: burst})
}

// NewWithConfig wraps inner using config.
func NewWithConfig[T any](inner pump.WritableStream[T], config Config) (*Writable[T], error) {
	if err := validation.ValidateNotNil(module, "inner", inner); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveFloat(module, "rate", config.Rate); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive(module, "burst", config.Burst); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	w := &Writable[T]{
		inner:      inner,
		clock:      config.Clock,
		rate:       config.Rate,
		burst:      config.Burst,
		tokens:     float64(config.Burst),
		lastUpdate: config.Clock.Now(),
	}
	inner.OnDrain(w.handleInnerDrain)
	return w, nil
}

// Write spends a token and forwards item. The balance may go negative when
// the writer ignores IsWriteQueueFull.
func (w *Writable[T]) Write(item T) {
	w.mu.Lock()
	w.updateTokens(w.clock.Now())
	w.tokens--
	w.mu.Unlock()

	w.inner.Write(item)
}

// IsWriteQueueFull reports whether the wrapped stream is full or no token is
// available. When tokens are missing a timer fires the drain handler once
// one has accumulated.
func (w *Writable[T]) IsWriteQueueFull() bool {
	innerFull := w.inner.IsWriteQueueFull()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.updateTokens(w.clock.Now())
	starved := w.tokens < 1
	if innerFull || starved {
		w.needsDrain = true
	}
	if starved && !innerFull {
		w.scheduleLocked()
	}
	return innerFull || starved
}

// OnDrain sets the drain handler.
func (w *Writable[T]) OnDrain(handler func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drainFn = handler
}

// SetWriteQueueMaxSize forwards size to the wrapped stream if it accepts one.
func (w *Writable[T]) SetWriteQueueMaxSize(size int) {
	if limiter, ok := w.inner.(pump.QueueLimiter); ok {
		limiter.SetWriteQueueMaxSize(size)
	}
}

// SetRate changes the refill rate. Non-positive rates are ignored.
func (w *Writable[T]) SetRate(rate float64) {
	if rate <= 0 || math.IsNaN(rate) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.updateTokens(w.clock.Now())
	w.rate = rate
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
		w.scheduleLocked()
	}
}

// Rate returns the refill rate in tokens per second.
func (w *Writable[T]) Rate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rate
}

// Tokens returns the current token balance.
func (w *Writable[T]) Tokens() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updateTokens(w.clock.Now())
	return w.tokens
}

// Close stops the refill timer and releases the wrapped stream's drain slot.
// It does not close the wrapped stream.
func (w *Writable[T]) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.inner.OnDrain(nil)
	return nil
}

func (w *Writable[T]) handleInnerDrain() {
	w.mu.Lock()
	if w.closed || !w.needsDrain {
		w.mu.Unlock()
		return
	}
	w.updateTokens(w.clock.Now())
	if w.tokens < 1 {
		w.scheduleLocked()
		w.mu.Unlock()
		return
	}
	w.needsDrain = false
	fn := w.drainFn
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (w *Writable[T]) handleTimer() {
	innerFull := w.inner.IsWriteQueueFull()

	w.mu.Lock()
	w.timer = nil
	if w.closed || !w.needsDrain || innerFull {
		// A full inner stream drains through handleInnerDrain.
		w.mu.Unlock()
		return
	}
	w.updateTokens(w.clock.Now())
	if w.tokens < 1 {
		w.scheduleLocked()
		w.mu.Unlock()
		return
	}
	w.needsDrain = false
	fn := w.drainFn
	w.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// scheduleLocked arms the refill timer for the next whole token (must hold lock).
func (w *Writable[T]) scheduleLocked() {
	if w.timer != nil || w.closed {
		return
	}
	wait := time.Duration(float64(time.Second) * (1 - w.tokens) / w.rate)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	w.timer = time.AfterFunc(wait, w.handleTimer)
}

// updateTokens refills the bucket for the time elapsed since the last update.
func (w *Writable[T]) updateTokens(now time.Time) {
	elapsed := now.Sub(w.lastUpdate)
	if elapsed <= 0 {
		return
	}

	tokensToAdd := elapsed.Seconds() * w.rate
	w.tokens = math.Min(w.tokens+tokensToAdd, float64(w.burst))
	w.lastUpdate = now
}
