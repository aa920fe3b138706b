package stream

import (
	"errors"
	"testing"

	"github.com/vnykmshr/gopump/internal/testutil"
)

func TestEmitterDeliversSynchronously(t *testing.T) {
	e := NewEmitter[string]()
	var got []string
	e.OnData(func(s string) { got = append(got, s) })

	testutil.AssertNoError(t, e.Emit("a"))
	testutil.AssertSliceEqual(t, got, []string{"a"})
	testutil.AssertEqual(t, e.Buffered(), 0)
}

func TestEmitterBuffersUntilHandler(t *testing.T) {
	e := NewEmitter[int]()
	_ = e.Emit(1)
	_ = e.Emit(2)
	testutil.AssertEqual(t, e.Buffered(), 2)

	var got []int
	e.OnData(func(i int) { got = append(got, i) })
	testutil.AssertSliceEqual(t, got, []int{1, 2})
	testutil.AssertEqual(t, e.Buffered(), 0)
}

func TestEmitterPauseFromHandler(t *testing.T) {
	e := NewEmitter[int]()
	for i := 1; i <= 4; i++ {
		_ = e.Emit(i)
	}

	var got []int
	e.OnData(func(i int) {
		got = append(got, i)
		if i == 2 {
			e.Pause()
		}
	})
	testutil.AssertSliceEqual(t, got, []int{1, 2})
	testutil.AssertEqual(t, e.Buffered(), 2)
	testutil.AssertEqual(t, e.IsPaused(), true)

	_ = e.Emit(5)
	testutil.AssertEqual(t, e.Buffered(), 3)

	e.Resume()
	testutil.AssertSliceEqual(t, got, []int{1, 2, 3, 4, 5})
}

func TestEmitterEndAfterBufferedItems(t *testing.T) {
	e := NewEmitter[int]()
	ended := testutil.NewCallbackTracker()
	e.OnEnd(func() { ended.Mark() })
	e.Pause()

	_ = e.Emit(1)
	e.End()
	ended.AssertNotCalled(t)

	if err := e.Emit(2); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Emit after End = %v, want ErrStreamClosed", err)
	}

	var got []int
	e.OnData(func(i int) { got = append(got, i) })
	e.Resume()

	testutil.AssertSliceEqual(t, got, []int{1})
	ended.AssertCallCount(t, 1)

	e.End()
	ended.AssertCallCount(t, 1)
}

func TestEmitterFail(t *testing.T) {
	e := NewEmitter[int]()
	boom := errors.New("boom")

	e.Fail(boom)
	failed := testutil.NewCallbackTracker()
	e.OnError(func(err error) { failed.Mark(err) })

	failed.AssertCallCount(t, 1)
	testutil.AssertEqual(t, failed.Value(), interface{}(boom))

	e.End()
	if err := e.Emit(1); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Emit after Fail = %v, want ErrStreamClosed", err)
	}
}

func TestEmitterHandlerRemoval(t *testing.T) {
	e := NewEmitter[int]()
	var got []int
	e.OnData(func(i int) { got = append(got, i) })
	_ = e.Emit(1)

	e.OnData(nil)
	_ = e.Emit(2)
	testutil.AssertSliceEqual(t, got, []int{1})
	testutil.AssertEqual(t, e.Buffered(), 1)
}
