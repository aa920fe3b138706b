// Package monitor reports the progress of running pumps on a cron schedule.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/gopump/pkg/common/errors"
	"github.com/vnykmshr/gopump/pkg/common/validation"
)

const module = "monitor"

// DefaultSchedule reports once per second.
const DefaultSchedule = "@every 1s"

// parser accepts descriptors such as "@every 5s" and five or six field
// expressions with an optional seconds field.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Observable is the part of a pump a Reporter reads. pump.Pump satisfies it.
type Observable interface {
	NumberPumped() int64
	IsRunning() bool
}

// Snapshot is the state of one watched pump at a report.
type Snapshot struct {
	Name    string
	Pumped  int64
	Delta   int64
	Rate    float64 // items per second since the previous report
	Running bool
	Time    time.Time
}

// Config configures a Reporter.
type Config struct {
	// Schedule is a cron expression or descriptor.
	// Default: DefaultSchedule
	Schedule string

	// Logger receives one Info record per watched pump and report.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// OnReport is called with every snapshot, in name order.
	OnReport func(Snapshot)
}

// ValidateSchedule reports whether spec is a schedule a Reporter accepts.
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return gferrors.NewValidationError(module, "schedule", spec, err.Error()).
			WithHint(`use a cron expression or a descriptor such as "@every 1s"`)
	}
	return nil
}

type watched struct {
	obs      Observable
	last     int64
	lastTime time.Time
}

// Reporter periodically snapshots a set of named pumps.
type Reporter struct {
	config Config
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	watched map[string]*watched
}

// New creates a Reporter. It does not report until Start is called.
func New(config Config) (*Reporter, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}
	if err := ValidateSchedule(config.Schedule); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reporter{
		config:  config,
		logger:  logger,
		watched: make(map[string]*watched),
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
	if _, err := r.cron.AddFunc(config.Schedule, func() { r.ReportNow() }); err != nil {
		return nil, fmt.Errorf("monitor: schedule %q: %w", config.Schedule, err)
	}
	return r, nil
}

// Watch adds obs under name. Names must be unique.
func (r *Reporter) Watch(name string, obs Observable) error {
	if err := validation.ValidateNotEmpty(module, "name", name); err != nil {
		return err
	}
	if err := validation.ValidateNotNil(module, "observable", obs); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watched[name]; ok {
		return fmt.Errorf("monitor: %q already watched: %w", name, gferrors.ErrInvalidState)
	}
	r.watched[name] = &watched{obs: obs, last: obs.NumberPumped(), lastTime: time.Now()}
	return nil
}

// Unwatch removes name and reports whether it was watched.
func (r *Reporter) Unwatch(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.watched[name]
	delete(r.watched, name)
	return ok
}

// Start begins scheduled reporting. Starting a started Reporter is a no-op.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop ends scheduled reporting. The returned context is done once a report
// in progress has finished.
func (r *Reporter) Stop() context.Context {
	return r.cron.Stop()
}

// ReportNow snapshots every watched pump, logs the snapshots and passes them
// to OnReport. It returns the snapshots in name order.
func (r *Reporter) ReportNow() []Snapshot {
	now := time.Now()

	r.mu.Lock()
	names := make([]string, 0, len(r.watched))
	for name := range r.watched {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshots := make([]Snapshot, 0, len(names))
	for _, name := range names {
		w := r.watched[name]
		pumped := w.obs.NumberPumped()
		snap := Snapshot{
			Name:    name,
			Pumped:  pumped,
			Delta:   pumped - w.last,
			Running: w.obs.IsRunning(),
			Time:    now,
		}
		if elapsed := now.Sub(w.lastTime).Seconds(); elapsed > 0 {
			snap.Rate = float64(snap.Delta) / elapsed
		}
		w.last, w.lastTime = pumped, now
		snapshots = append(snapshots, snap)
	}
	r.mu.Unlock()

	for _, snap := range snapshots {
		r.logger.Info("pump progress",
			"pump", snap.Name,
			"pumped", snap.Pumped,
			"delta", snap.Delta,
			"rate", snap.Rate,
			"running", snap.Running)
		if r.config.OnReport != nil {
			r.config.OnReport(snap)
		}
	}
	return snapshots
}
