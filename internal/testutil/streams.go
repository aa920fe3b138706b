package testutil

import (
	"sync"
)

// MockReadable is a manually driven readable stream. It satisfies
// pump.ReadableStream without importing it.
type MockReadable[T any] struct {
	mu          sync.Mutex
	paused      bool
	pauseCount  int
	resumeCount int
	dataFn      func(T)
	endFn       func()
	errFn       func(error)
}

// NewMockReadable creates a flowing MockReadable with no handlers.
func NewMockReadable[T any]() *MockReadable[T] {
	return &MockReadable[T]{}
}

func (m *MockReadable[T]) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.pauseCount++
}

func (m *MockReadable[T]) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	m.resumeCount++
}

func (m *MockReadable[T]) OnData(handler func(T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataFn = handler
}

func (m *MockReadable[T]) OnEnd(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endFn = handler
}

func (m *MockReadable[T]) OnError(handler func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errFn = handler
}

// Emit delivers item to the data handler. It returns false, delivering
// nothing, when the stream is paused or no handler is installed.
func (m *MockReadable[T]) Emit(item T) bool {
	m.mu.Lock()
	fn := m.dataFn
	paused := m.paused
	m.mu.Unlock()

	if paused || fn == nil {
		return false
	}
	fn(item)
	return true
}

// End invokes the end handler, if any.
func (m *MockReadable[T]) End() {
	m.mu.Lock()
	fn := m.endFn
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Fail invokes the error handler, if any.
func (m *MockReadable[T]) Fail(err error) {
	m.mu.Lock()
	fn := m.errFn
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (m *MockReadable[T]) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MockReadable[T]) PauseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCount
}

func (m *MockReadable[T]) ResumeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumeCount
}

func (m *MockReadable[T]) HasDataHandler() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dataFn != nil
}

// MockWritable records written items and reports full once the number of
// pending items reaches its max size. Drain clears the pending items.
type MockWritable[T any] struct {
	mu         sync.Mutex
	items      []T
	pending    int
	maxSize    int
	forceFull  bool
	drainFn    func()
	maxSizeSet []int
}

// NewMockWritable creates a MockWritable that never reports full until a max
// size is pushed to it or SetFull is called.
func NewMockWritable[T any]() *MockWritable[T] {
	return &MockWritable[T]{}
}

func (m *MockWritable[T]) Write(item T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	m.pending++
}

func (m *MockWritable[T]) IsWriteQueueFull() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forceFull || (m.maxSize > 0 && m.pending >= m.maxSize)
}

func (m *MockWritable[T]) OnDrain(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drainFn = handler
}

// SetWriteQueueMaxSize records size and uses it as the full threshold.
func (m *MockWritable[T]) SetWriteQueueMaxSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSize = size
	m.maxSizeSet = append(m.maxSizeSet, size)
}

// SetFull forces IsWriteQueueFull to report full regardless of pending items.
func (m *MockWritable[T]) SetFull(full bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceFull = full
}

// Drain clears the pending items and the forced full flag, then invokes the
// drain handler outside the lock. It reports whether a handler was invoked.
func (m *MockWritable[T]) Drain() bool {
	m.mu.Lock()
	m.pending = 0
	m.forceFull = false
	fn := m.drainFn
	m.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Items returns a copy of every written item in order.
func (m *MockWritable[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

func (m *MockWritable[T]) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MockWritable[T]) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

func (m *MockWritable[T]) HasDrainHandler() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drainFn != nil
}

// MaxSizeHistory returns every size pushed through SetWriteQueueMaxSize.
func (m *MockWritable[T]) MaxSizeHistory() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.maxSizeSet))
	copy(out, m.maxSizeSet)
	return out
}
