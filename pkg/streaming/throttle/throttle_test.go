package throttle

import (
	"errors"
	"testing"
	"time"

	"github.com/vnykmshr/gopump/internal/testutil"
	gferrors "github.com/vnykmshr/gopump/pkg/common/errors"
	"github.com/vnykmshr/gopump/pkg/streaming/channel"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
)

func TestNewValidation(t *testing.T) {
	sink := testutil.NewMockWritable[int]()

	tests := []struct {
		name  string
		inner pump.WritableStream[int]
		rate  float64
		burst int
	}{
		{"nil inner", nil, 1, 1},
		{"zero rate", sink, 0, 1},
		{"negative rate", sink, -1, 1},
		{"zero burst", sink, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New[int](tt.inner, tt.rate, tt.burst)
			if !errors.Is(err, gferrors.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
			if w != nil {
				t.Error("expected nil writable")
			}
		})
	}
}

func TestTokenAccounting(t *testing.T) {
	clock := testutil.NewMockClock(time.Time{})
	sink := testutil.NewMockWritable[int]()
	w, err := NewWithConfig[int](sink, Config{Rate: 2, Burst: 3, Clock: clock})
	testutil.AssertNoError(t, err)
	defer w.Close()

	testutil.AssertEqual(t, w.Tokens(), 3.0)

	w.Write(1)
	w.Write(2)
	w.Write(3)
	testutil.AssertEqual(t, w.Tokens(), 0.0)
	testutil.AssertSliceEqual(t, sink.Items(), []int{1, 2, 3})

	clock.Advance(250 * time.Millisecond)
	testutil.AssertEqual(t, w.Tokens(), 0.5)

	clock.Advance(10 * time.Second)
	testutil.AssertEqual(t, w.Tokens(), 3.0)
}

func TestFullWhenStarved(t *testing.T) {
	clock := testutil.NewMockClock(time.Time{})
	sink := testutil.NewMockWritable[int]()
	w, err := NewWithConfig[int](sink, Config{Rate: 1, Burst: 1, Clock: clock})
	testutil.AssertNoError(t, err)
	defer w.Close()

	testutil.AssertEqual(t, w.IsWriteQueueFull(), false)
	w.Write(1)
	testutil.AssertEqual(t, w.IsWriteQueueFull(), true)

	clock.Advance(time.Second)
	testutil.AssertEqual(t, w.IsWriteQueueFull(), false)
}

func TestFullWhenInnerFull(t *testing.T) {
	sink := testutil.NewMockWritable[int]()
	w, err := New[int](sink, 1000, 10)
	testutil.AssertNoError(t, err)
	defer w.Close()

	sink.SetFull(true)
	testutil.AssertEqual(t, w.IsWriteQueueFull(), true)
}

func TestDrainAfterRefill(t *testing.T) {
	sink := testutil.NewMockWritable[int]()
	w, err := New[int](sink, 100, 1)
	testutil.AssertNoError(t, err)
	defer w.Close()

	drained := testutil.NewCallbackTracker()
	w.OnDrain(func() { drained.Mark() })

	w.Write(1)
	testutil.AssertEqual(t, w.IsWriteQueueFull(), true)

	drained.Wait(t)
	drained.AssertCallCount(t, 1)
	testutil.AssertEqual(t, w.IsWriteQueueFull(), false)
}

func TestInnerDrainForwarded(t *testing.T) {
	sink := testutil.NewMockWritable[int]()
	w, err := New[int](sink, 1000, 100)
	testutil.AssertNoError(t, err)
	defer w.Close()

	drained := testutil.NewCallbackTracker()
	w.OnDrain(func() { drained.Mark() })

	sink.SetFull(true)
	testutil.AssertEqual(t, w.IsWriteQueueFull(), true)

	if !sink.Drain() {
		t.Fatal("throttle should own the inner drain slot")
	}
	drained.AssertCallCount(t, 1)
}

func TestSetWriteQueueMaxSizeForwarded(t *testing.T) {
	sink := testutil.NewMockWritable[int]()
	w, err := New[int](sink, 1, 1)
	testutil.AssertNoError(t, err)
	defer w.Close()

	w.SetWriteQueueMaxSize(7)
	testutil.AssertSliceEqual(t, sink.MaxSizeHistory(), []int{7})
}

func TestSetRate(t *testing.T) {
	sink := testutil.NewMockWritable[int]()
	w, err := New[int](sink, 1, 1)
	testutil.AssertNoError(t, err)
	defer w.Close()

	w.SetRate(50)
	w.SetRate(0)
	testutil.AssertEqual(t, w.Rate(), 50.0)
}

func TestCloseReleasesInnerDrain(t *testing.T) {
	sink := testutil.NewMockWritable[int]()
	w, err := New[int](sink, 1, 1)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, sink.HasDrainHandler(), true)
	testutil.AssertNoError(t, w.Close())
	testutil.AssertEqual(t, sink.HasDrainHandler(), false)
}

func TestThrottledPump(t *testing.T) {
	ch := channel.New[int](1000)
	defer ch.Close()
	w, err := New[int](ch, 200, 5)
	testutil.AssertNoError(t, err)
	defer w.Close()

	src := testutil.NewMockReadable[int]()
	p, err := pump.New[int](src, w)
	testutil.AssertNoError(t, err)
	p.Start()
	defer p.Stop()

	sent := 0
	for sent < 5 {
		if src.Emit(sent) {
			sent++
		}
	}
	testutil.AssertEqual(t, src.IsPaused(), true)

	// The refill timer resumes the source.
	testutil.AssertEventually(t, func() bool { return !src.IsPaused() })
	testutil.AssertEqual(t, src.Emit(5), true)
	testutil.AssertEqual(t, ch.Len(), 6)
}
