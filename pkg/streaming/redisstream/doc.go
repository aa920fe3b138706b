/*
Package redisstream exposes Redis lists as stream endpoints.

A ListSource pops items from the head of a list and plugs into
stream.Readable, so a list can feed a pump. A ListWriter appends items to the
tail of a list from a background goroutine and implements
pump.WritableStream, so a pump can fill a list while respecting the writer's
queue limit.

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	reader, _ := redisstream.NewListReader(ctx, client, "jobs:in", redisstream.SourceConfig{
		EndMarker: "EOF",
	})
	w, _ := redisstream.NewListWriter(client, "jobs:out", redisstream.WriterConfig{})
	defer w.Close()

	p, _ := pump.New[string](reader, w)
	reader.OnEnd(func() { p.Stop() })
	p.Start()

# Ending a list

Lists have no natural end. A source ends when it pops the configured
EndMarker, when IdleTimeout passes without an item, or when its context is
cancelled. A writer pushes its EndMarker on Close, which lets a reader on the
other side finish cleanly.

Errors from Redis are wrapped in *RedisError. Sources surface them through the
readable's OnError handler; writers report them to WriterConfig.OnError.
*/
package redisstream
