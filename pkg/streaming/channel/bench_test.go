package channel

import (
	"context"
	"testing"
)

func BenchmarkSendReceive(b *testing.B) {
	ch := New[int](1000)
	defer ch.Close()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ch.Send(ctx, i)
		_, _ = ch.Receive(ctx)
	}
}

func BenchmarkWriteTryReceive(b *testing.B) {
	ch := New[int](1000)
	defer ch.Close()
	ch.OnDrain(func() {})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch.Write(i)
		if ch.IsWriteQueueFull() {
			for ch.Len() > 0 {
				_, _, _ = ch.TryReceive()
			}
		}
	}
}
