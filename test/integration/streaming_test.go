package integration

import (
	"bytes"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"lesiw.io/fs"
	"lesiw.io/fs/memfs"

	"github.com/vnykmshr/gopump/internal/testutil"
	"github.com/vnykmshr/gopump/pkg/monitor"
	"github.com/vnykmshr/gopump/pkg/streaming/channel"
	"github.com/vnykmshr/gopump/pkg/streaming/fsstream"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
	"github.com/vnykmshr/gopump/pkg/streaming/redisstream"
	"github.com/vnykmshr/gopump/pkg/streaming/stream"
	"github.com/vnykmshr/gopump/pkg/streaming/throttle"
	"github.com/vnykmshr/gopump/pkg/streaming/writer"
)

// TestStreamThroughPumpIntoChannel pumps a slice into a small channel drained
// by a slow consumer and verifies ordering and back-pressure.
func TestStreamThroughPumpIntoChannel(t *testing.T) {
	const n = 200

	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	src := stream.FromSlice(items)
	defer src.Close()

	ch := channel.New[int](4)
	defer ch.Close()

	var pauses, resumes atomic.Int32
	config := pump.DefaultConfig()
	config.WriteQueueMaxSize = 4
	config.OnPause = func() { pauses.Add(1) }
	config.OnResume = func() { resumes.Add(1) }

	p, err := pump.NewWithConfig[int](src, ch, config)
	testutil.AssertNoError(t, err)
	src.OnEnd(func() { p.Stop() })
	p.Start()

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	for want := 0; want < n; want++ {
		got, err := ch.Receive(ctx)
		testutil.AssertNoError(t, err)
		if got != want {
			t.Fatalf("received %d, want %d", got, want)
		}
		if want%20 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	<-src.Done()
	testutil.AssertEqual(t, p.NumberPumped(), int64(n))
	testutil.AssertEqual(t, p.IsRunning(), false)
	if pauses.Load() == 0 {
		t.Error("expected the pump to pause at least once")
	}
	if resumes.Load() == 0 {
		t.Error("expected the pump to resume at least once")
	}
}

// TestReaderThroughPumpIntoWriter pumps chunks of a reader into an AsyncWriter.
func TestReaderThroughPumpIntoWriter(t *testing.T) {
	data := strings.Repeat("0123456789", 2000)
	src := stream.New(stream.FromReader(strings.NewReader(data), 64))
	defer src.Close()

	underlying := testutil.NewMockWriter()
	underlying.SetWriteDelay(time.Millisecond)
	config := writer.DefaultConfig()
	config.BufferSize = 256
	aw := writer.NewWithConfig(underlying, config)

	p, err := pump.NewWithMaxSize[[]byte](src, writer.NewWritable(aw), 512)
	testutil.AssertNoError(t, err)

	done := testutil.NewCallbackTracker()
	src.OnEnd(func() {
		p.Stop()
		done.Mark()
	})
	p.Start()
	done.Wait(t)

	testutil.AssertNoError(t, aw.Close())
	testutil.AssertEqual(t, underlying.String(), data)
	testutil.AssertEqual(t, p.NumberPumped(), int64(len(data)/64+1))
	if aw.Stats().DrainCount == 0 {
		t.Error("expected the writer to drain at least once")
	}
}

// TestThrottledEmitter verifies that a throttled sink holds the pump to the
// configured rate.
func TestThrottledEmitter(t *testing.T) {
	const n = 20

	ch := channel.New[int](n)
	defer ch.Close()

	sink, err := throttle.New[int](ch, 200, 5)
	testutil.AssertNoError(t, err)
	defer sink.Close()

	em := stream.NewEmitter[int]()
	p, err := pump.New[int](em, sink)
	testutil.AssertNoError(t, err)
	p.Start()
	defer p.Stop()

	start := time.Now()
	for i := 0; i < n; i++ {
		testutil.AssertNoError(t, em.Emit(i))
	}

	testutil.AssertEventually(t, func() bool { return ch.Len() == n })
	elapsed := time.Since(start)

	// 5 burst tokens, then 15 more at 200/s.
	if elapsed < 60*time.Millisecond {
		t.Errorf("pumped %d items in %v, faster than the throttle allows", n, elapsed)
	}
	for want := 0; want < n; want++ {
		got, ok, err := ch.TryReceive()
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, got, want)
	}
}

// TestFileCopiesWithReporter copies several files on an in-memory filesystem
// while a reporter watches the copy pumps.
func TestFileCopiesWithReporter(t *testing.T) {
	fsys := memfs.New()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var pairs []fsstream.Pair
	var sizes []int
	for i := 0; i < 4; i++ {
		data := bytes.Repeat([]byte(fmt.Sprintf("file %d\n", i)), 1000*(i+1))
		name := fmt.Sprintf("in-%d.log", i)
		testutil.AssertNoError(t, fs.WriteFile(ctx, fsys, name, data))
		pairs = append(pairs, fsstream.Pair{Source: name, Destination: name + ".gz"})
		sizes = append(sizes, len(data))
	}

	reporter, err := monitor.New(monitor.Config{})
	testutil.AssertNoError(t, err)

	var watched atomic.Int32
	results, err := fsstream.CopyAll(ctx, fsys, pairs, fsstream.Options{
		ChunkSize:         512,
		WriteQueueMaxSize: 2048,
		OnPump: func(p pump.Pump[[]byte]) {
			n := watched.Add(1)
			testutil.AssertNoError(t, reporter.Watch(fmt.Sprintf("copy-%d", n), p))
		},
	}, 2)
	testutil.AssertNoError(t, err)

	for i, res := range results {
		testutil.AssertEqual(t, res.Bytes, int64(sizes[i]))
	}

	var total int64
	for _, snap := range reporter.ReportNow() {
		testutil.AssertEqual(t, snap.Running, false)
		total += snap.Pumped
	}
	var chunks int64
	for _, res := range results {
		chunks += res.Chunks
	}
	testutil.AssertEqual(t, total, chunks)

	for i, pair := range pairs {
		res, err := fsstream.CopyBlocking(ctx, fsys, pair.Destination, pair.Source+".back", fsstream.Options{})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, res.Bytes, int64(sizes[i]))
	}
}

// TestRedisListRelay moves items from one Redis list to another through a
// throttled pump.
func TestRedisListRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	for i := 0; i < 30; i++ {
		_, err := mr.Push("in", fmt.Sprintf("job-%02d", i))
		testutil.AssertNoError(t, err)
	}
	_, err := mr.Push("in", "EOF")
	testutil.AssertNoError(t, err)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	src, err := redisstream.NewListReader(ctx, client, "in", redisstream.SourceConfig{EndMarker: "EOF"})
	testutil.AssertNoError(t, err)
	defer src.Close()

	out, err := redisstream.NewListWriter(client, "out", redisstream.WriterConfig{BatchSize: 4, EndMarker: "EOF"})
	testutil.AssertNoError(t, err)

	sink, err := throttle.New[string](out, 1000, 10)
	testutil.AssertNoError(t, err)
	defer sink.Close()

	p, err := pump.NewWithMaxSize[string](src, sink, 8)
	testutil.AssertNoError(t, err)

	ended := make(chan struct{})
	src.OnEnd(func() {
		p.Stop()
		close(ended)
	})
	p.Start()

	select {
	case <-ended:
	case <-ctx.Done():
		t.Fatal("relay did not finish")
	}
	testutil.AssertNoError(t, out.Close())

	items, err := mr.List("out")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(items), 31)
	testutil.AssertEqual(t, items[0], "job-00")
	testutil.AssertEqual(t, items[29], "job-29")
	testutil.AssertEqual(t, items[30], "EOF")
	testutil.AssertEqual(t, p.NumberPumped(), int64(30))
	testutil.AssertEqual(t, out.Stats().Pushed, int64(30))
}
