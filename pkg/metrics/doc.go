// Package metrics provides Prometheus instrumentation for gopump components.
//
// # Overview
//
// The metrics package instruments:
//   - Pumps (items forwarded, back-pressure pauses, drain resumes, running state)
//   - Backpressure channels (drops and blocks per strategy, queue length)
//   - Async writers (flushes, bytes written, write errors)
//
// # Quick Start
//
// Use the metrics-enabled constructors:
//
//	p, err := pump.NewWithMetrics(source, sink, "ingest")
//	ch := channel.NewWithMetrics[string](128, "events")
//	w := writer.NewWithMetrics(file, "archive")
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":9090", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	p, err := pump.NewWithConfigAndMetrics(source, sink, pump.Config{}, "ingest",
//		metrics.Config{Enabled: true, Registry: registry})
//
// # Available Metrics
//
//   - gopump_pump_items_total: Items forwarded from source to sink
//   - gopump_pump_pauses_total: Source pauses caused by a full sink
//   - gopump_pump_resumes_total: Source resumes on drain
//   - gopump_pump_running: 1 while started
//   - gopump_pump_write_queue_max_size: Current back-pressure threshold
//   - gopump_backpressure_events_total: Channel drops and blocks
//   - gopump_channel_queue_length: Items queued in a channel
//   - gopump_writer_flushes_total: Writer flushes
//   - gopump_writer_bytes_written_total: Bytes written
//   - gopump_writer_errors_total: Failed writes after retries
//
// # Runtime Control
//
// Components implementing Instrumentable support runtime control:
//
//	p.DisableMetrics()
//	p.EnableMetrics(config)
//	enabled := p.MetricsEnabled()
package metrics
