package pump

import (
	"sync/atomic"

	"github.com/vnykmshr/gopump/pkg/metrics"
)

// MetricsPump wraps a Pump with Prometheus metrics collection.
type MetricsPump[T any] struct {
	pump     Pump[T]
	name     string
	registry atomic.Pointer[metrics.Registry]
	enabled  atomic.Bool
}

var _ metrics.Instrumentable = (*MetricsPump[int])(nil)

// NewWithMetrics creates a pump with metrics recorded into metrics.DefaultRegistry
// under the given name. The returned pump is not started.
func NewWithMetrics[T any](source ReadableStream[T], sink WritableStream[T], name string) (*MetricsPump[T], error) {
	return NewWithConfigAndMetrics(source, sink, DefaultConfig(), name, metrics.Config{Enabled: true})
}

// NewWithConfigAndMetrics creates a pump with custom config and metrics.
// Existing OnPumped, OnPause and OnResume hooks in config are still called.
func NewWithConfigAndMetrics[T any](source ReadableStream[T], sink WritableStream[T], config Config, name string, metricsConfig metrics.Config) (*MetricsPump[T], error) {
	mp := &MetricsPump[T]{name: name}
	mp.registry.Store(metrics.Resolve(metricsConfig))
	mp.enabled.Store(metricsConfig.Enabled)

	if config.Name == "" {
		config.Name = name
	}
	onPumped, onPause, onResume := config.OnPumped, config.OnPause, config.OnResume
	config.OnPumped = func() {
		if mp.enabled.Load() {
			mp.registry.Load().PumpItems.WithLabelValues(mp.name).Inc()
		}
		if onPumped != nil {
			onPumped()
		}
	}
	config.OnPause = func() {
		if mp.enabled.Load() {
			mp.registry.Load().PumpPauses.WithLabelValues(mp.name).Inc()
		}
		if onPause != nil {
			onPause()
		}
	}
	config.OnResume = func() {
		if mp.enabled.Load() {
			mp.registry.Load().PumpResumes.WithLabelValues(mp.name).Inc()
		}
		if onResume != nil {
			onResume()
		}
	}

	p, err := NewWithConfig(source, sink, config)
	if err != nil {
		return nil, err
	}
	mp.pump = p
	mp.updateMetrics()

	return mp, nil
}

// updateMetrics updates the current state gauges.
func (mp *MetricsPump[T]) updateMetrics() {
	if !mp.enabled.Load() {
		return
	}

	registry := mp.registry.Load()
	running := 0.0
	if mp.pump.IsRunning() {
		running = 1
	}
	registry.PumpRunning.WithLabelValues(mp.name).Set(running)
	registry.PumpWriteQueueMaxSize.WithLabelValues(mp.name).Set(float64(mp.pump.WriteQueueMaxSize()))
}

// SetWriteQueueMaxSize implements Pump.SetWriteQueueMaxSize.
func (mp *MetricsPump[T]) SetWriteQueueMaxSize(size int) error {
	if err := mp.pump.SetWriteQueueMaxSize(size); err != nil {
		return err
	}
	mp.updateMetrics()
	return nil
}

// WriteQueueMaxSize implements Pump.WriteQueueMaxSize.
func (mp *MetricsPump[T]) WriteQueueMaxSize() int {
	return mp.pump.WriteQueueMaxSize()
}

// Start implements Pump.Start.
func (mp *MetricsPump[T]) Start() Pump[T] {
	mp.pump.Start()
	mp.updateMetrics()
	return mp
}

// Stop implements Pump.Stop.
func (mp *MetricsPump[T]) Stop() Pump[T] {
	mp.pump.Stop()
	mp.updateMetrics()
	return mp
}

// NumberPumped implements Pump.NumberPumped.
func (mp *MetricsPump[T]) NumberPumped() int64 {
	return mp.pump.NumberPumped()
}

// IsRunning implements Pump.IsRunning.
func (mp *MetricsPump[T]) IsRunning() bool {
	return mp.pump.IsRunning()
}

// Name returns the metrics label value of the pump.
func (mp *MetricsPump[T]) Name() string {
	return mp.name
}

// EnableMetrics enables metrics collection.
func (mp *MetricsPump[T]) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil {
		mp.registry.Store(metrics.Resolve(config))
	}
	mp.enabled.Store(config.Enabled)
	mp.updateMetrics()
	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPump[T]) DisableMetrics() {
	mp.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPump[T]) MetricsEnabled() bool {
	return mp.enabled.Load()
}
