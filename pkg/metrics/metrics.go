// Package metrics provides Prometheus instrumentation for gopump components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for gopump components.
type Registry struct {
	// Pump Metrics
	PumpItems             *prometheus.CounterVec
	PumpPauses            *prometheus.CounterVec
	PumpResumes           *prometheus.CounterVec
	PumpRunning           *prometheus.GaugeVec
	PumpWriteQueueMaxSize *prometheus.GaugeVec

	// Channel Metrics
	BackpressureEvents *prometheus.CounterVec
	ChannelQueueLength *prometheus.GaugeVec

	// Writer Metrics
	WriterFlushes      *prometheus.CounterVec
	WriterBytesWritten *prometheus.CounterVec
	WriterErrors       *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by gopump components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg})
}

// NewRegistryWithConfig creates a metrics registry honoring the namespace and
// constant labels of config. A nil config.Registry means prometheus.DefaultRegisterer.
func NewRegistryWithConfig(config Config) *Registry {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)
	labels := config.Labels

	return &Registry{
		// Pump Metrics
		PumpItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pump",
				Name:        "items_total",
				Help:        "Total number of items forwarded from source to sink",
				ConstLabels: labels,
			},
			[]string{"pump_name"},
		),

		PumpPauses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pump",
				Name:        "pauses_total",
				Help:        "Total number of times the source was paused because the sink was full",
				ConstLabels: labels,
			},
			[]string{"pump_name"},
		),

		PumpResumes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pump",
				Name:        "resumes_total",
				Help:        "Total number of times the source was resumed on drain",
				ConstLabels: labels,
			},
			[]string{"pump_name"},
		),

		PumpRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "pump",
				Name:        "running",
				Help:        "1 while the pump is started, 0 while stopped",
				ConstLabels: labels,
			},
			[]string{"pump_name"},
		),

		PumpWriteQueueMaxSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "pump",
				Name:        "write_queue_max_size",
				Help:        "Write queue threshold used for back-pressure decisions",
				ConstLabels: labels,
			},
			[]string{"pump_name"},
		),

		// Channel Metrics
		BackpressureEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "backpressure",
				Name:        "events_total",
				Help:        "Total number of backpressure events",
				ConstLabels: labels,
			},
			[]string{"strategy", "channel_name"},
		),

		ChannelQueueLength: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "channel",
				Name:        "queue_length",
				Help:        "Current number of queued items",
				ConstLabels: labels,
			},
			[]string{"channel_name"},
		),

		// Writer Metrics
		WriterFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "flushes_total",
				Help:        "Total number of writer flushes",
				ConstLabels: labels,
			},
			[]string{"writer_name"},
		),

		WriterBytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "bytes_written_total",
				Help:        "Total bytes written to the underlying writer",
				ConstLabels: labels,
			},
			[]string{"writer_name"},
		),

		WriterErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "writer",
				Name:        "errors_total",
				Help:        "Total number of failed writes after retries",
				ConstLabels: labels,
			},
			[]string{"writer_name"},
		),
	}
}
