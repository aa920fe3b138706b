/*
Package gopump provides back-pressure aware pumps that move items from a
readable stream to a writable stream, pausing the source while the sink is
full and resuming it when the sink drains.

Core (pkg/streaming):
  - pump: Pairs a readable and a writable stream with back-pressure
  - stream: Push-based readable streams over pull sources
  - channel: Bounded channels usable as writable streams
  - writer: Async buffered writing with drain notifications
  - throttle: Rate-limited writable stream wrapper

Endpoints (pkg/streaming):
  - fsstream: File sources and sinks with gzip and zstd codecs
  - redisstream: Redis list sources and sinks

Support:
  - monitor: Scheduled progress reports for running pumps
  - metrics: Prometheus instrumentation

Example usage:

	import (
		"github.com/vnykmshr/gopump/pkg/streaming/channel"
		"github.com/vnykmshr/gopump/pkg/streaming/pump"
		"github.com/vnykmshr/gopump/pkg/streaming/stream"
	)

	src := stream.FromSlice(items)
	ch := channel.New[Item](64)

	p, _ := pump.NewWithMaxSize[Item](src, ch, 64)
	src.OnEnd(func() { p.Stop() })
	p.Start()
*/
package gopump
