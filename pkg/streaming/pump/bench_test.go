package pump

import (
	"testing"

	"github.com/vnykmshr/gopump/internal/testutil"
)

func BenchmarkPumpForward(b *testing.B) {
	src := testutil.NewMockReadable[int]()
	sink := testutil.NewMockWritable[int]()
	p, err := New[int](src, sink)
	if err != nil {
		b.Fatal(err)
	}
	p.Start()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src.Emit(i)
	}
}

func BenchmarkPumpPauseResume(b *testing.B) {
	src := testutil.NewMockReadable[int]()
	sink := testutil.NewMockWritable[int]()
	p, err := NewWithMaxSize[int](src, sink, 1)
	if err != nil {
		b.Fatal(err)
	}
	p.Start()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src.Emit(i)
		sink.Drain()
	}
}
