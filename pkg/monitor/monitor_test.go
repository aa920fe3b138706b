package monitor

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/vnykmshr/gopump/internal/testutil"
	gferrors "github.com/vnykmshr/gopump/pkg/common/errors"
	"github.com/vnykmshr/gopump/pkg/streaming/pump"
)

type fakePump struct {
	mu      sync.Mutex
	pumped  int64
	running bool
}

func (f *fakePump) NumberPumped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pumped
}

func (f *fakePump) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakePump) add(n int64) {
	f.mu.Lock()
	f.pumped += n
	f.mu.Unlock()
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"@every 1s", false},
		{"@hourly", false},
		{"*/5 * * * *", false},
		{"*/10 * * * * *", false},
		{"every second", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := ValidateSchedule(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, gferrors.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	r, err := New(Config{})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, r.config.Schedule, DefaultSchedule)

	_, err = New(Config{Schedule: "nonsense"})
	if !errors.Is(err, gferrors.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestWatch(t *testing.T) {
	r, err := New(Config{})
	testutil.AssertNoError(t, err)

	p := &fakePump{}
	testutil.AssertNoError(t, r.Watch("a", p))

	if err := r.Watch("a", p); !errors.Is(err, gferrors.ErrInvalidState) {
		t.Errorf("duplicate Watch err = %v, want ErrInvalidState", err)
	}
	if err := r.Watch("", p); !errors.Is(err, gferrors.ErrInvalidArgument) {
		t.Errorf("empty name err = %v, want ErrInvalidArgument", err)
	}
	if err := r.Watch("b", nil); !errors.Is(err, gferrors.ErrInvalidArgument) {
		t.Errorf("nil observable err = %v, want ErrInvalidArgument", err)
	}

	testutil.AssertEqual(t, r.Unwatch("a"), true)
	testutil.AssertEqual(t, r.Unwatch("a"), false)
	testutil.AssertEqual(t, len(r.ReportNow()), 0)
}

func TestReportNowDeltas(t *testing.T) {
	var logs bytes.Buffer
	var reported []Snapshot
	r, err := New(Config{
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
		OnReport: func(s Snapshot) { reported = append(reported, s) },
	})
	testutil.AssertNoError(t, err)

	a := &fakePump{pumped: 5, running: true}
	b := &fakePump{}
	testutil.AssertNoError(t, r.Watch("b", b))
	testutil.AssertNoError(t, r.Watch("a", a))

	a.add(10)
	snaps := r.ReportNow()
	testutil.AssertEqual(t, len(snaps), 2)
	testutil.AssertEqual(t, snaps[0].Name, "a")
	testutil.AssertEqual(t, snaps[0].Pumped, int64(15))
	testutil.AssertEqual(t, snaps[0].Delta, int64(10))
	testutil.AssertEqual(t, snaps[0].Running, true)
	testutil.AssertEqual(t, snaps[1].Name, "b")
	testutil.AssertEqual(t, snaps[1].Delta, int64(0))
	testutil.AssertEqual(t, snaps[1].Running, false)

	a.add(3)
	snaps = r.ReportNow()
	testutil.AssertEqual(t, snaps[0].Delta, int64(3))

	testutil.AssertEqual(t, len(reported), 4)
	if !strings.Contains(logs.String(), "pump=a pumped=15 delta=10") {
		t.Errorf("log output missing progress record:\n%s", logs.String())
	}
}

func TestScheduledReports(t *testing.T) {
	reports := testutil.NewCallbackTracker()
	r, err := New(Config{
		Schedule: "@every 1s",
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		OnReport: func(s Snapshot) { reports.Mark(s) },
	})
	testutil.AssertNoError(t, err)

	src := testutil.NewMockReadable[int]()
	sink := testutil.NewMockWritable[int]()
	p, err := pump.New[int](src, sink)
	testutil.AssertNoError(t, err)
	p.Start()
	src.Emit(1)
	src.Emit(2)

	testutil.AssertNoError(t, r.Watch("ints", p))
	r.Start()
	reports.Wait(t)
	<-r.Stop().Done()

	snap, _ := reports.Value().(Snapshot)
	testutil.AssertEqual(t, snap.Name, "ints")
	testutil.AssertEqual(t, snap.Pumped, int64(2))
	testutil.AssertEqual(t, snap.Running, true)
}
