/*
Package writer provides asynchronous buffered writing for Go applications.

AsyncWriter buffers data in memory and writes to the underlying writer in the background,
improving performance for I/O-bound workloads.

# Quick Start

	file, _ := os.Create("output.txt")
	w := writer.New(file)
	defer w.Close()

	w.WriteString("Hello, async world!")
	w.Flush(context.Background())

# Configuration

	config := writer.Config{
		BufferSize:        64 * 1024,   // flush once this much is buffered
		WriteQueueMaxSize: 64 * 1024,   // pending bytes that count as full
		FlushInterval:     time.Second, // auto-flush every second
		BlockOnFull:       true,        // Write waits for the background goroutine
		MaxRetries:        3,           // retry failed writes
	}

	w := writer.NewWithConfig(underlyingWriter, config)

# Write Queue

Write, WriteString and WriteContext hand each request to the background
goroutine. Enqueue appends to the buffer directly and never blocks, which is
what a pump needs. Pending counts bytes accepted but not yet written;
IsWriteQueueFull compares it with the write queue max size, and the drain
handler fires after the flush that brings it to half of that size:

	aw := writer.New(file)
	p, _ := pump.New[[]byte](source, writer.NewWritable(aw))
	p.Start()

Failed writes are retried MaxRetries times and then reported through OnError.
Writing to a closed writer returns ErrWriterClosed, or reports it through
OnError for Enqueue.

# Metrics

NewWithMetrics counts flushes, flushed bytes and errors in Prometheus.
*/
package writer
