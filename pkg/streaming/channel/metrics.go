package channel

import (
	"context"

	"github.com/vnykmshr/gopump/pkg/metrics"
)

// metricsChannel wraps a BackpressureChannel and records queue length and
// backpressure events.
type metricsChannel[T any] struct {
	BackpressureChannel[T]
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a channel recording into the registry resolved from
// metricsConfig under the given name. Drops, blocks and full writes are
// counted as backpressure events labelled with the strategy ("full" for
// writes). Existing OnDrop, OnBlock and OnFull hooks are still called.
func NewWithMetrics[T any](config Config, name string, metricsConfig metrics.Config) BackpressureChannel[T] {
	if !metricsConfig.Enabled {
		return NewWithConfig[T](config)
	}

	registry := metrics.Resolve(metricsConfig)
	events := func(kind string) {
		registry.BackpressureEvents.WithLabelValues(kind, name).Inc()
	}

	onDrop, onBlock, onFull := config.OnDrop, config.OnBlock, config.OnFull
	config.OnDrop = func(value interface{}) {
		events(config.Strategy.String())
		if onDrop != nil {
			onDrop(value)
		}
	}
	config.OnBlock = func() {
		events(config.Strategy.String())
		if onBlock != nil {
			onBlock()
		}
	}
	config.OnFull = func() {
		events("full")
		if onFull != nil {
			onFull()
		}
	}

	return &metricsChannel[T]{
		BackpressureChannel: NewWithConfig[T](config),
		name:                name,
		registry:            registry,
	}
}

func (m *metricsChannel[T]) observe() {
	m.registry.ChannelQueueLength.WithLabelValues(m.name).Set(float64(m.BackpressureChannel.Len()))
}

func (m *metricsChannel[T]) Send(ctx context.Context, value T) error {
	defer m.observe()
	return m.BackpressureChannel.Send(ctx, value)
}

func (m *metricsChannel[T]) TrySend(value T) error {
	defer m.observe()
	return m.BackpressureChannel.TrySend(value)
}

func (m *metricsChannel[T]) Write(value T) {
	defer m.observe()
	m.BackpressureChannel.Write(value)
}

func (m *metricsChannel[T]) Receive(ctx context.Context) (T, error) {
	defer m.observe()
	return m.BackpressureChannel.Receive(ctx)
}

func (m *metricsChannel[T]) TryReceive() (T, bool, error) {
	defer m.observe()
	return m.BackpressureChannel.TryReceive()
}
