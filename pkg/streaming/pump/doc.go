/*
Package pump connects a readable stream to a writable stream with back-pressure.

A Pump forwards every item emitted by a ReadableStream into a WritableStream, in
emission order, and counts the items it forwarded. When the writable reports that
its write queue is full, the pump pauses the readable before the next item can
arrive, and resumes it once the writable signals a drain.

Basic Usage:

	src := stream.FromSlice([]string{"a", "b", "c"})
	ch := channel.New[string](16)

	p, err := pump.New[string](src, ch)
	if err != nil {
		return err
	}
	p.Start()

Constructing a pump never starts it. Start installs a data handler on the readable
and a drain handler on the writable; Stop removes both. A pump may be started and
stopped any number of times and NumberPumped keeps counting across restarts.

Write Queue Max Size:

The threshold that decides "full" belongs to the pump and defaults to
DefaultWriteQueueMaxSize. Writables that implement QueueLimiter receive the value
at construction and on every SetWriteQueueMaxSize call, so a new size takes effect
on the next write:

	p, _ := pump.NewWithMaxSize[[]byte](src, w, 32*1024)
	_ = p.SetWriteQueueMaxSize(8 * 1024)

Ownership:

The pump owns neither stream. It does not stop when the readable ends or fails,
and Stop never resumes a readable that is paused by back-pressure. Owners watch
OnEnd and OnError themselves:

	src.OnEnd(func() { p.Stop() })
	src.OnError(func(err error) {
		p.Stop()
		log.Printf("source failed: %v", err)
	})

Metrics:

NewWithMetrics wraps a pump with Prometheus counters for forwarded items, pauses
and resumes, and gauges for the running state and the max size:

	p, err := pump.NewWithMetrics[string](src, ch, "ingest")
*/
package pump
