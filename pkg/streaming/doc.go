/*
Package streaming groups the stream types a pump connects.

A pump reads from a ReadableStream and writes to a WritableStream. When the
sink reports a full write queue the pump pauses the source and resumes it
once the sink fires its drain handler:

  - pump: The Pump type and the stream interfaces it consumes
  - stream: Readable streams over pull-based sources, plus a push Emitter
  - channel: Back-pressure aware channels that also act as writable streams
  - writer: Asynchronous writer and its writable stream adapter
  - throttle: Writable wrapper that limits the rate items reach its inner stream
  - fsstream: Files on an fs.FS as readable and writable streams
  - redisstream: Redis lists as readable and writable streams

Basic usage:

	src := stream.New(stream.FromReader(file, 32*1024))
	sink := writer.NewWritable(writer.New(out))

	p, err := pump.New[[]byte](src, sink)
	if err != nil {
		return err
	}
	src.OnEnd(func() { p.Stop() })
	p.Start()
*/
package streaming
