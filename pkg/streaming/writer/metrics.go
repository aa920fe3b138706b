package writer

import (
	"io"
	"time"

	"github.com/vnykmshr/gopump/pkg/metrics"
)

// NewWithMetrics creates an AsyncWriter that counts flushes, flushed bytes and
// errors in the registry resolved from metricsConfig under the given name.
// Existing OnFlush and OnError hooks are still called.
func NewWithMetrics(w io.Writer, config Config, name string, metricsConfig metrics.Config) AsyncWriter {
	if !metricsConfig.Enabled {
		return NewWithConfig(w, config)
	}

	registry := metrics.Resolve(metricsConfig)
	onFlush, onError := config.OnFlush, config.OnError

	config.OnFlush = func(bytesWritten int, duration time.Duration) {
		registry.WriterFlushes.WithLabelValues(name).Inc()
		registry.WriterBytesWritten.WithLabelValues(name).Add(float64(bytesWritten))
		if onFlush != nil {
			onFlush(bytesWritten, duration)
		}
	}
	config.OnError = func(err error) {
		registry.WriterErrors.WithLabelValues(name).Inc()
		if onError != nil {
			onError(err)
		}
	}

	return NewWithConfig(w, config)
}
