package benchmark

import (
	"bytes"
	"context"
	"testing"

	"github.com/vnykmshr/gopump/pkg/streaming/stream"
)

// BenchmarkCollectSlice measures pulling a slice source to completion.
func BenchmarkCollectSlice(b *testing.B) {
	for _, size := range []int{10, 100, 1000, 10000} {
		data := make([]int, size)
		for i := range data {
			data[i] = i
		}

		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.Collect(context.Background(), stream.SliceSource(data))
			}
		})
	}
}

// BenchmarkReadableDelivery measures push delivery of a Readable to its data handler.
func BenchmarkReadableDelivery(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		data := make([]int, size)
		for i := range data {
			data[i] = i
		}

		b.Run(sizeLabel(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var sum int
				r := stream.FromSlice(data)
				r.OnData(func(n int) { sum += n })
				<-r.Done()
				_ = r.Close()
			}
		})
	}
}

// BenchmarkFromReader measures chunking a reader.
func BenchmarkFromReader(b *testing.B) {
	payload := bytes.Repeat([]byte("x"), 1<<20)

	for _, chunk := range []int{1024, 16 * 1024, 64 * 1024} {
		b.Run(sizeLabel(chunk), func(b *testing.B) {
			b.SetBytes(int64(len(payload)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stream.Collect(context.Background(), stream.FromReader(bytes.NewReader(payload), chunk))
			}
		})
	}
}

// sizeLabel returns a readable label for benchmark sizes.
func sizeLabel(size int) string {
	switch {
	case size >= 10000:
		return "10k"
	case size >= 1000:
		return "1k"
	case size >= 100:
		return "100"
	default:
		return "10"
	}
}
