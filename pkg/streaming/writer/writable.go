package writer

// Writable adapts an AsyncWriter to the writable stream contract used by
// pump.Pump: Write enqueues without blocking and failures are reported
// through Config.OnError. It also forwards SetWriteQueueMaxSize, so a pump
// pushes its threshold into the writer.
type Writable struct {
	w AsyncWriter
}

// NewWritable returns a Writable over w.
func NewWritable(w AsyncWriter) *Writable {
	return &Writable{w: w}
}

// Write enqueues a copy of item.
func (s *Writable) Write(item []byte) {
	_ = s.w.Enqueue(item)
}

func (s *Writable) IsWriteQueueFull() bool {
	return s.w.IsWriteQueueFull()
}

func (s *Writable) OnDrain(handler func()) {
	s.w.OnDrain(handler)
}

func (s *Writable) SetWriteQueueMaxSize(size int) {
	s.w.SetWriteQueueMaxSize(size)
}

// Writer returns the underlying AsyncWriter.
func (s *Writable) Writer() AsyncWriter {
	return s.w
}
