/*
Package stream provides push-based readable streams for pumps.

A Readable wraps a pull-based Source and pushes its elements to a single data
handler from one emit goroutine. It honours Pause and Resume between items, so
it can be connected to a writable through a pump.Pump:

	r := stream.FromSlice([]int{1, 2, 3})
	r.OnEnd(func() { fmt.Println("done") })
	r.OnData(func(i int) { fmt.Println(i) })
	<-r.Done()

Sources:

	stream.SliceSource([]int{1, 2, 3})
	stream.ChannelSource(ch)
	stream.GeneratorSource(func() int { return rand.Int() })
	stream.FromReader(file, 32*1024)
	stream.MapSource(src, strings.ToUpper)

FromReader copies every chunk, so items stay valid after the next read.

Emitter:

An Emitter is driven by the caller instead of a goroutine. Emit delivers
immediately while the emitter flows and buffers otherwise:

	e := stream.NewEmitter[string]()
	_ = e.Emit("hello")
	e.End()

Lifecycle:

A Readable ends with exactly one of OnEnd (source exhausted), OnError (source
or context failed) or Close (no notification). In every case the source is
closed and Done is closed afterwards.
*/
package stream
