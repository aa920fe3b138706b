package pump

import (
	"log/slog"
	"sync"

	"github.com/vnykmshr/gopump/pkg/common/validation"
)

// DefaultWriteQueueMaxSize is the back-pressure threshold used when none is given.
const DefaultWriteQueueMaxSize = 16384

const module = "pump"

// ReadableStream is the producer side of a pump.
//
// Every registration is single-slot: a new handler replaces the previous one
// and a nil handler clears it.
type ReadableStream[T any] interface {
	// Pause stops the delivery of data until Resume is called. It must take
	// effect before the next item is delivered.
	Pause()

	// Resume restarts the delivery of data.
	Resume()

	// OnData sets the handler that receives every emitted item.
	OnData(handler func(item T))

	// OnEnd sets the handler invoked once the stream has no more items.
	OnEnd(handler func())

	// OnError sets the handler invoked when the stream fails.
	OnError(handler func(err error))
}

// WritableStream is the consumer side of a pump.
type WritableStream[T any] interface {
	// Write accepts an item. Failures are reported through the stream's own
	// error channel, never through the caller.
	Write(item T)

	// IsWriteQueueFull reports whether the internal write queue reached its threshold.
	IsWriteQueueFull() bool

	// OnDrain sets the single handler invoked when the write queue has drained
	// below the stream's low-water mark. A nil handler clears it.
	OnDrain(handler func())
}

// QueueLimiter is implemented by writable streams whose full threshold can be
// configured. A pump pushes its write queue max size into such streams.
type QueueLimiter interface {
	SetWriteQueueMaxSize(size int)
}

// Pump relays items from a ReadableStream to a WritableStream, pausing the
// source while the sink's write queue is full and resuming it on drain.
//
// A pump does not stop itself when the source ends or fails: the owner must
// call Stop. Stop never resumes a source paused by back-pressure; resuming it
// is the owner's responsibility.
//
// Start and Stop may be called from any goroutine, including from the source's
// end and error handlers. When they race, the call that changed the running
// state last decides which handlers remain installed.
type Pump[T any] interface {
	// SetWriteQueueMaxSize updates the threshold used for back-pressure decisions.
	// It takes effect on the next write and does not re-evaluate a current pause.
	// A non-positive size is rejected with a *errors.ValidationError.
	SetWriteQueueMaxSize(size int) error

	// WriteQueueMaxSize returns the current threshold.
	WriteQueueMaxSize() int

	// Start installs the data handler on the source and the drain handler on
	// the sink. Starting a running pump is a no-op.
	Start() Pump[T]

	// Stop removes both handlers. Stopping a stopped pump is a no-op.
	Stop() Pump[T]

	// NumberPumped returns the number of items forwarded so far. The count
	// survives Stop and Start.
	NumberPumped() int64

	// IsRunning reports whether the pump is started.
	IsRunning() bool
}

// Config holds configuration options for a pump.
type Config struct {
	// WriteQueueMaxSize is the back-pressure threshold pushed to the sink.
	// Zero means DefaultWriteQueueMaxSize. Negative values are rejected.
	WriteQueueMaxSize int

	// Name identifies the pump in log records.
	Name string

	// Logger receives debug records for start, stop, pause and resume.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// OnPumped is called after each forwarded item.
	OnPumped func()

	// OnPause is called when the source is paused because the sink is full.
	OnPause func()

	// OnResume is called when the source is resumed on drain.
	OnResume func()
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		WriteQueueMaxSize: DefaultWriteQueueMaxSize,
	}
}

// pump implements Pump.
//
// Handlers are invoked from whatever goroutine the streams deliver on, so all
// mutable state is guarded by mu. The data and drain handlers hold mu while
// they call into the streams: a sink must therefore never fire its drain
// handler while holding a lock its own Write or IsWriteQueueFull needs, and
// must not call Start or Stop on this pump from inside Write.
type pump[T any] struct {
	source ReadableStream[T]
	sink   WritableStream[T]
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	maxSize int
	running bool
	gen     uint64 // bumped by every Start and Stop that changes running
	pumped  int64
	dataFn  func(T)
	drainFn func()
}

// New pairs source and sink with the default write queue max size.
// The returned pump is not started.
func New[T any](source ReadableStream[T], sink WritableStream[T]) (Pump[T], error) {
	return NewWithConfig(source, sink, DefaultConfig())
}

// NewWithMaxSize pairs source and sink with an explicit write queue max size.
// The returned pump is not started.
func NewWithMaxSize[T any](source ReadableStream[T], sink WritableStream[T], maxQueueSize int) (Pump[T], error) {
	if err := validation.ValidatePositive(module, "writeQueueMaxSize", maxQueueSize); err != nil {
		return nil, err
	}
	config := DefaultConfig()
	config.WriteQueueMaxSize = maxQueueSize
	return NewWithConfig(source, sink, config)
}

// NewWithConfig pairs source and sink using config. The returned pump is not started.
func NewWithConfig[T any](source ReadableStream[T], sink WritableStream[T], config Config) (Pump[T], error) {
	p, err := newPump(source, sink, config)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newPump[T any](source ReadableStream[T], sink WritableStream[T], config Config) (*pump[T], error) {
	if err := validation.ValidateNotNil(module, "source", source); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil(module, "sink", sink); err != nil {
		return nil, err
	}
	if config.WriteQueueMaxSize == 0 {
		config.WriteQueueMaxSize = DefaultWriteQueueMaxSize
	}
	if err := validation.ValidatePositive(module, "writeQueueMaxSize", config.WriteQueueMaxSize); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Name != "" {
		logger = logger.With("pump", config.Name)
	}

	p := &pump[T]{
		source:  source,
		sink:    sink,
		config:  config,
		logger:  logger,
		maxSize: config.WriteQueueMaxSize,
	}
	p.dataFn = p.handleData
	p.drainFn = p.handleDrain

	if limiter, ok := sink.(QueueLimiter); ok {
		limiter.SetWriteQueueMaxSize(p.maxSize)
	}

	return p, nil
}

// SetWriteQueueMaxSize implements Pump.SetWriteQueueMaxSize.
func (p *pump[T]) SetWriteQueueMaxSize(size int) error {
	if err := validation.ValidatePositive(module, "writeQueueMaxSize", size); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.maxSize = size
	if limiter, ok := p.sink.(QueueLimiter); ok {
		limiter.SetWriteQueueMaxSize(size)
	}
	return nil
}

// WriteQueueMaxSize implements Pump.WriteQueueMaxSize.
func (p *pump[T]) WriteQueueMaxSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxSize
}

// Start implements Pump.Start.
func (p *pump[T]) Start() Pump[T] {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return p
	}
	p.running = true
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	pumped := p.register(gen, true)
	p.logger.Debug("pump started", "pumped", pumped)
	return p
}

// Stop implements Pump.Stop.
func (p *pump[T]) Stop() Pump[T] {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return p
	}
	p.running = false
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	pumped := p.register(gen, false)
	p.logger.Debug("pump stopped", "pumped", pumped)
	return p
}

// register installs or removes both handlers for lifecycle generation gen.
// Registration runs outside mu: a source may deliver buffered items
// synchronously from OnData, and an end handler fired there may call Stop.
// If another Start or Stop ran meanwhile, its registration may have finished
// first, so the latest state is applied again until no generation changes
// during a registration.
func (p *pump[T]) register(gen uint64, running bool) int64 {
	for {
		if running {
			p.sink.OnDrain(p.drainFn)
			p.source.OnData(p.dataFn)
		} else {
			p.source.OnData(nil)
			p.sink.OnDrain(nil)
		}

		p.mu.Lock()
		if p.gen == gen {
			pumped := p.pumped
			p.mu.Unlock()
			return pumped
		}
		gen, running = p.gen, p.running
		p.mu.Unlock()
	}
}

// NumberPumped implements Pump.NumberPumped.
func (p *pump[T]) NumberPumped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pumped
}

// IsRunning implements Pump.IsRunning.
func (p *pump[T]) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// handleData forwards one item and pauses the source when the sink is full.
func (p *pump[T]) handleData(item T) {
	p.mu.Lock()
	if !p.running {
		// Late delivery from a source that captured the handler before Stop.
		p.mu.Unlock()
		return
	}

	p.sink.Write(item)
	p.pumped++

	full := p.sink.IsWriteQueueFull()
	if full {
		p.source.Pause()
		p.sink.OnDrain(p.drainFn)
	}
	pumped := p.pumped
	p.mu.Unlock()

	if p.config.OnPumped != nil {
		p.config.OnPumped()
	}
	if full {
		p.logger.Debug("sink full, source paused", "pumped", pumped)
		if p.config.OnPause != nil {
			p.config.OnPause()
		}
	}
}

// handleDrain resumes the source if the pump is still running.
func (p *pump[T]) handleDrain() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	pumped := p.pumped
	p.mu.Unlock()

	// Resume may deliver buffered items synchronously into handleData,
	// so it must run without holding mu.
	p.source.Resume()

	p.logger.Debug("sink drained, source resumed", "pumped", pumped)
	if p.config.OnResume != nil {
		p.config.OnResume()
	}
}
