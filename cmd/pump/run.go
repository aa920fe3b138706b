package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vnykmshr/gopump/pkg/metrics"
	"github.com/vnykmshr/gopump/pkg/monitor"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
	"github.com/vnykmshr/gopump/pkg/streaming/stream"
)

// pumpName returns name, or a random one when name is empty.
func pumpName(name string) string {
	if name != "" {
		return name
	}
	return uuid.NewString()
}

func metricsConfig() metrics.Config {
	return metrics.Config{Enabled: cfg.Metrics.Addr != ""}
}

// newReporter returns a started reporter, or nil when reporting is disabled.
// With quiet set, progress goes only to onReport.
func newReporter(quiet bool, onReport func(monitor.Snapshot)) (*monitor.Reporter, error) {
	if cfg.Report == "" {
		return nil, nil
	}
	logger := slog.Default()
	if quiet {
		logger = slog.New(slog.DiscardHandler)
	}
	r, err := monitor.New(monitor.Config{
		Schedule: cfg.Report,
		Logger:   logger,
		OnReport: onReport,
	})
	if err != nil {
		return nil, err
	}
	r.Start()
	return r, nil
}

// watchPump adds p to reporter. A failure only disables progress for this
// pump, so it is logged instead of failing the command.
func watchPump(reporter *monitor.Reporter, name string, p monitor.Observable) {
	if reporter == nil {
		return
	}
	if err := reporter.Watch(name, p); err != nil {
		slog.Warn("progress reporting disabled", "pump", name, "err", err)
	}
}

func stopReporter(r *monitor.Reporter) {
	if r == nil {
		return
	}
	<-r.Stop().Done()
	r.ReportNow()
}

// runPump pumps src into sink until src ends, fails or ctx is done. It stops
// the pump and closes src before returning; closing sink is left to the caller.
func runPump[T any](ctx context.Context, name string, src *stream.Readable[T], sink pump.WritableStream[T], reporter *monitor.Reporter) (int64, error) {
	config := pump.DefaultConfig()
	config.WriteQueueMaxSize = cfg.MaxQueueSize
	config.Name = name

	p, err := pump.NewWithConfigAndMetrics[T](src, sink, config, name, metricsConfig())
	if err != nil {
		_ = src.Close()
		return 0, err
	}

	done := make(chan error, 1)
	src.OnEnd(func() { done <- nil })
	src.OnError(func(err error) { done <- err })

	if reporter != nil {
		if err := reporter.Watch(name, p); err != nil {
			_ = src.Close()
			return 0, err
		}
	}

	p.Start()
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.Stop()
	_ = src.Close()

	return p.NumberPumped(), err
}
