/*
Package channel provides backpressure-aware channels for flow control in concurrent applications.

A BackpressureChannel is a buffered FIFO queue with two producer surfaces: Send
and TrySend apply a configurable backpressure strategy, while Write, together
with IsWriteQueueFull and OnDrain, lets the channel act as the writable end of
a pump.Pump.

Backpressure Strategies:

Block Strategy:
The default strategy that blocks producers when the buffer is full, providing natural
flow control by slowing down fast producers.

	ch := NewWithConfig[int](Config{BufferSize: 10, Strategy: Block})

	// This will block if buffer is full
	err := ch.Send(ctx, value)

Drop Strategy:
Drops new messages when the buffer is full, preserving the oldest data.

	ch := NewWithConfig[int](Config{
		BufferSize: 10,
		Strategy:   Drop,
		OnDrop: func(value interface{}) {
			slog.Warn("dropped message", "value", value)
		},
	})

DropOldest Strategy:
Drops the oldest messages when the buffer is full, preserving the newest data.

Error Strategy:
Returns ErrChannelFull immediately when the buffer is full.

Writable Stream:

Write never blocks and never drops: the buffer size is a soft limit that the
writer is expected to respect by checking IsWriteQueueFull. After a full
condition was observed, the drain handler fires once when the queue falls to
half of its capacity:

	ch := channel.New[Event](256)
	p, _ := pump.New[Event](source, ch)
	p.Start()

	for {
		ev, err := ch.Receive(ctx)
		if err != nil {
			break
		}
		handle(ev)
	}

A pump pushes its write queue max size into the channel through
SetWriteQueueMaxSize, which replaces the buffer size for both surfaces.

Statistics:

	stats := ch.Stats()
	fmt.Printf("sent=%d received=%d dropped=%d drains=%d\n",
		stats.SendCount, stats.ReceiveCount, stats.DroppedCount, stats.DrainCount)

Metrics:

NewWithMetrics records the queue length gauge and counts drops, blocks and full
writes as backpressure events.

Thread Safety:

All operations are safe for concurrent use. Drain handlers and hooks run
outside the channel lock, on the goroutine that caused them.
*/
package channel
