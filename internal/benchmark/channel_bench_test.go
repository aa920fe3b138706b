package benchmark

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/vnykmshr/gopump/pkg/streaming/channel"
)

// BenchmarkChannelSend measures blocking send performance.
func BenchmarkChannelSend(b *testing.B) {
	bufferSizes := []int{10, 100, 1000}

	for _, bufSize := range bufferSizes {
		b.Run(sizeLabel(bufSize), func(b *testing.B) {
			ch := channel.New[int](bufSize)
			defer func() { _ = ch.Close() }()

			done := drain(ch)

			b.ReportAllocs()
			b.ResetTimer()
			ctx := context.Background()
			for i := 0; i < b.N; i++ {
				_ = ch.Send(ctx, i)
			}
			b.StopTimer()

			_ = ch.Close()
			<-done
		})
	}
}

// BenchmarkChannelWrite measures the writable stream path a pump uses:
// Write followed by IsWriteQueueFull.
func BenchmarkChannelWrite(b *testing.B) {
	ch := channel.New[int](1000)
	defer func() { _ = ch.Close() }()

	done := drain(ch)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch.Write(i)
		_ = ch.IsWriteQueueFull()
	}
	b.StopTimer()

	_ = ch.Close()
	<-done
}

// BenchmarkChannelContention measures sends under concurrent producers.
func BenchmarkChannelContention(b *testing.B) {
	for _, producers := range []int{2, 4, 8} {
		b.Run(contentionLabel(producers), func(b *testing.B) {
			ch := channel.New[int](100)
			defer func() { _ = ch.Close() }()

			done := drain(ch)

			b.ReportAllocs()
			b.ResetTimer()

			var wg sync.WaitGroup
			perProducer := b.N / producers
			wg.Add(producers)
			for p := 0; p < producers; p++ {
				go func() {
					defer wg.Done()
					ctx := context.Background()
					for i := 0; i < perProducer; i++ {
						_ = ch.Send(ctx, i)
					}
				}()
			}
			wg.Wait()
			b.StopTimer()

			_ = ch.Close()
			<-done
		})
	}
}

// BenchmarkChannelStrategies measures the non-blocking back-pressure strategies
// against a full buffer.
func BenchmarkChannelStrategies(b *testing.B) {
	strategies := []channel.BackpressureStrategy{channel.Drop, channel.DropOldest, channel.Error}

	for _, strategy := range strategies {
		b.Run(strategy.String(), func(b *testing.B) {
			config := channel.DefaultConfig()
			config.BufferSize = 10
			config.Strategy = strategy
			ch := channel.NewWithConfig[int](config)
			defer func() { _ = ch.Close() }()

			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ch.Send(ctx, i)
			}
		})
	}
}

// drain receives from ch until it is closed. The returned channel is closed
// when the consumer exits.
func drain(ch channel.BackpressureChannel[int]) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx := context.Background()
		for {
			if _, err := ch.Receive(ctx); err != nil {
				return
			}
		}
	}()
	return done
}

// contentionLabel returns a readable label for contention levels.
func contentionLabel(level int) string {
	return strconv.Itoa(level) + "producers"
}
