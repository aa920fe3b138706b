package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/gopump/internal/testutil"
)

// collector gathers items from a Readable's data handler.
type collector[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collector[T]) add(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collector[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func waitDone[T any](t *testing.T, r *Readable[T]) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(testutil.TestTimeout):
		t.Fatal("readable did not finish")
	}
}

func TestReadableFromSlice(t *testing.T) {
	r := FromSlice([]int{1, 2, 3, 4, 5})
	ended := testutil.NewCallbackTracker()
	var got collector[int]

	r.OnEnd(func() { ended.Mark() })
	r.OnData(got.add)
	waitDone(t, r)

	ended.AssertCallCount(t, 1)
	testutil.AssertSliceEqual(t, got.snapshot(), []int{1, 2, 3, 4, 5})
	testutil.AssertEqual(t, r.Emitted(), int64(5))
	testutil.AssertEqual(t, r.IsClosed(), true)
}

func TestReadableNothingPulledWithoutHandler(t *testing.T) {
	pulled := 0
	r := New[int](GeneratorSource(func() int {
		pulled++
		return pulled
	}))

	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, pulled, 0)
	testutil.AssertNoError(t, r.Close())
	waitDone(t, r)
}

func TestReadableEmpty(t *testing.T) {
	r := Empty[string]()
	ended := testutil.NewCallbackTracker()
	r.OnEnd(func() { ended.Mark() })
	r.OnData(func(string) { t.Error("empty stream delivered an item") })

	waitDone(t, r)
	ended.AssertCalled(t)
}

func TestReadablePauseFromHandler(t *testing.T) {
	r := FromSlice([]int{1, 2, 3, 4, 5, 6})
	var got collector[int]

	r.OnData(func(item int) {
		got.add(item)
		if item == 3 {
			r.Pause()
		}
	})

	testutil.AssertEventually(t, func() bool { return got.len() == 3 })
	time.Sleep(20 * time.Millisecond)
	testutil.AssertEqual(t, got.len(), 3)
	testutil.AssertEqual(t, r.IsPaused(), true)

	r.Resume()
	waitDone(t, r)
	testutil.AssertSliceEqual(t, got.snapshot(), []int{1, 2, 3, 4, 5, 6})
}

func TestReadableHandlerRemovalHoldsPendingItem(t *testing.T) {
	ch := make(chan int, 4)
	r := FromChannel(ch)
	var first, second collector[int]

	r.OnData(first.add)
	ch <- 1
	testutil.AssertEventually(t, func() bool { return first.len() == 1 })

	r.OnData(nil)
	// The goroutine has pulled or is pulling the next item; it must be kept
	// for the next handler instead of being dropped.
	ch <- 2
	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, first.len(), 1)

	r.OnData(second.add)
	ch <- 3
	close(ch)
	waitDone(t, r)

	testutil.AssertSliceEqual(t, first.snapshot(), []int{1})
	testutil.AssertSliceEqual(t, second.snapshot(), []int{2, 3})
}

func TestReadableSourceError(t *testing.T) {
	boom := errors.New("boom")
	r := New[int](&failingSource{after: 2, err: boom})
	failed := testutil.NewCallbackTracker()
	ended := testutil.NewCallbackTracker()
	var got collector[int]

	r.OnError(func(err error) { failed.Mark(err) })
	r.OnEnd(func() { ended.Mark() })
	r.OnData(got.add)
	waitDone(t, r)

	failed.AssertCallCount(t, 1)
	ended.AssertNotCalled(t)
	if !errors.Is(failed.Value().(error), boom) {
		t.Errorf("error = %v, want %v", failed.Value(), boom)
	}
	testutil.AssertSliceEqual(t, got.snapshot(), []int{0, 1})
}

func TestReadableCloseStopsGenerator(t *testing.T) {
	r := Generate(func() int { return 1 })
	ended := testutil.NewCallbackTracker()
	r.OnEnd(func() { ended.Mark() })

	var got collector[int]
	r.OnData(got.add)
	testutil.AssertEventually(t, func() bool { return got.len() > 10 })

	testutil.AssertNoError(t, r.Close())
	waitDone(t, r)
	ended.AssertNotCalled(t)
	testutil.AssertEqual(t, r.IsClosed(), true)
}

func TestReadableCloseBeforeStart(t *testing.T) {
	src := &failingSource{after: 10}
	r := New[int](src)

	testutil.AssertNoError(t, r.Close())
	waitDone(t, r)
	testutil.AssertEqual(t, src.closed, true)

	r.OnData(func(int) { t.Error("closed stream delivered") })
	testutil.AssertNoError(t, r.Close())
}

func TestReadableContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan int)
	r := NewWithContext[int](ctx, ChannelSource(ch))
	failed := testutil.NewCallbackTracker()
	r.OnError(func(err error) { failed.Mark(err) })
	r.OnData(func(int) {})

	cancel()
	waitDone(t, r)
	failed.AssertCalled(t)
	if !errors.Is(failed.Value().(error), context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", failed.Value())
	}
}

func TestFromReader(t *testing.T) {
	src := FromReader(strings.NewReader("abcdefghij"), 4)
	chunks, err := Collect(context.Background(), src)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, len(chunks), 3)
	testutil.AssertEqual(t, string(bytes.Join(chunks, nil)), "abcdefghij")
	testutil.AssertEqual(t, string(chunks[2]), "ij")
}

func TestFromReaderCopiesChunks(t *testing.T) {
	src := FromReader(strings.NewReader("aabb"), 2)
	first, _, err := src.Next(context.Background())
	testutil.AssertNoError(t, err)
	_, _, err = src.Next(context.Background())
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, string(first), "aa")
}

func TestFromReaderClosesCloser(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader("x")}
	src := FromReader(rc, 0)
	testutil.AssertNoError(t, src.Close())
	testutil.AssertEqual(t, rc.closed, true)
}

func TestFromLines(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader("one\ntwo\r\n\nthree")}
	got, err := Collect(context.Background(), FromLines(rc))
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []string{"one", "two", "", "three"})
	testutil.AssertEqual(t, rc.closed, true)
}

func TestFromLinesTooLong(t *testing.T) {
	long := strings.Repeat("x", bufio.MaxScanTokenSize+1)
	_, err := Collect(context.Background(), FromLines(strings.NewReader(long)))
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Errorf("err = %v, want bufio.ErrTooLong", err)
	}
}

func TestMapSource(t *testing.T) {
	src := MapSource(SliceSource([]int{1, 2, 3}), func(i int) string {
		return strings.Repeat("x", i)
	})
	got, err := Collect(context.Background(), src)
	testutil.AssertNoError(t, err)
	testutil.AssertSliceEqual(t, got, []string{"x", "xx", "xxx"})
}

func TestCollectPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	got, err := Collect[int](context.Background(), &failingSource{after: 1, err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	testutil.AssertSliceEqual(t, got, []int{0})
}

type failingSource struct {
	n      int
	after  int
	err    error
	closed bool
}

func (s *failingSource) Next(context.Context) (int, bool, error) {
	if s.n >= s.after {
		return 0, false, s.err
	}
	s.n++
	return s.n - 1, true, nil
}

func (s *failingSource) Close() error {
	s.closed = true
	return nil
}

type closeTracker struct {
	*strings.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}
