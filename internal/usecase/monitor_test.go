package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"TapeWatch/internal/domain/models"
	"TapeWatch/internal/service/snapshot"
	"TapeWatch/pkg/logger"
)

type fakeProfiles struct {
	profiles map[string]models.SecurityProfile
	reprimed int
}

func (f *fakeProfiles) Profile(code string) (models.SecurityProfile, bool) {
	p, ok := f.profiles[code]
	return p, ok
}

func (f *fakeProfiles) Codes() []string {
	out := make([]string, 0, len(f.profiles))
	for code := range f.profiles {
		out = append(out, code)
	}
	return out
}

func (f *fakeProfiles) RePrime(ctx context.Context) error {
	f.reprimed++
	return nil
}

type fakeSource struct {
	prints map[string][]models.TradePrint
	fail   map[string]error
	calls  int
}

func (f *fakeSource) FetchPrints(ctx context.Context, code string, from, to time.Time) ([]models.TradePrint, error) {
	f.calls++
	if err := f.fail[code]; err != nil {
		return nil, err
	}
	return f.prints[code], nil
}

type nopMetrics struct{ errors map[string]int }

func (m *nopMetrics) RecordAlert(direction, code string)          {}
func (m *nopMetrics) RecordError(kind string)                     { m.errors[kind]++ }
func (m *nopMetrics) RecordCycle(securities int, seconds float64) {}
func (m *nopMetrics) RecordLargestRun(code string, t float64)     {}
func (m *nopMetrics) RecordLatency(op string, seconds float64)    {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func buyRun(code string, turnovers ...float64) []models.TradePrint {
	ps := make([]models.TradePrint, len(turnovers))
	for i, tv := range turnovers {
		ps[i] = models.TradePrint{
			Code:      code,
			Seq:       int64(i),
			Time:      time.Date(2024, 3, 1, 9, 30, i, 0, time.UTC),
			Turnover:  tv,
			Direction: models.DirectionBuy,
		}
	}
	return ps
}

func newTestMonitor(t *testing.T, src *fakeSource, profs *fakeProfiles, opts MonitorOptions) (*Monitor, *AlertAggregator, *nopMetrics) {
	t.Helper()
	opts.FetchBurst = 1000
	opts.FetchPerSec = 1000
	agg := NewAlertAggregator()
	mets := &nopMetrics{errors: map[string]int{}}
	m, err := NewMonitor(src, profs, agg, snapshot.NewHub(), mets, testLogger(t), opts)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	if err := m.prime(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	m.started = time.Now()
	return m, agg, mets
}

func drain(m *Monitor) []models.MonitorEvent {
	var out []models.MonitorEvent
	for {
		select {
		case ev := <-m.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestMonitorAlertBeforeCycleComplete(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{
		// Market value 100k, ratio 0.0012: threshold 120.
		"000001": {Code: "000001", Name: "one", MarketValue: 100_000},
	}}
	src := &fakeSource{prints: map[string][]models.TradePrint{
		"000001": buyRun("000001", 100, 100),
	}}
	m, agg, _ := newTestMonitor(t, src, profs, MonitorOptions{})

	m.RunCycle(context.Background())

	evs := drain(m)
	if len(evs) != 2 {
		t.Fatalf("events = %d, want alert + cycle complete", len(evs))
	}
	if evs[0].Kind != models.EventAlert || evs[1].Kind != models.EventCycleComplete {
		t.Fatalf("order = [%s %s], want [alert cycle_complete]", evs[0].Kind, evs[1].Kind)
	}
	if evs[0].Alert == nil || evs[0].Alert.Code != "000001" || evs[0].Alert.RunCount != 2 {
		t.Fatalf("alert = %+v", evs[0].Alert)
	}
	if agg.Len() != 1 {
		t.Fatalf("aggregated records = %d, want 1", agg.Len())
	}
}

func TestMonitorSkipsFailingSecurity(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{
		"000001": {Code: "000001", Name: "one", MarketValue: 100_000},
		"000002": {Code: "000002", Name: "two", MarketValue: 100_000},
	}}
	src := &fakeSource{
		prints: map[string][]models.TradePrint{
			"000001": buyRun("000001", 200),
			"000002": buyRun("000002", 200),
		},
		fail: map[string]error{"000001": errors.New("quote host down")},
	}
	m, agg, mets := newTestMonitor(t, src, profs, MonitorOptions{})

	m.RunCycle(context.Background())

	if mets.errors["fetch"] != 1 {
		t.Fatalf("fetch errors = %d, want 1", mets.errors["fetch"])
	}
	recs := agg.Records(models.DirectionNeutral)
	if len(recs) != 1 || recs[0].Code != "000002" {
		t.Fatalf("records = %+v, want only 000002", recs)
	}

	var complete *models.MonitorEvent
	for _, ev := range drain(m) {
		if ev.Kind == models.EventCycleComplete {
			complete = &ev
			break
		}
	}
	if complete == nil {
		t.Fatal("cycle must complete despite the failing security")
	}
}

func TestMonitorExcludesUnresolvedProfiles(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{
		"000001": {Code: "000001", Name: "one", MarketValue: 100_000},
		"000002": {Code: "000002", Name: "two", MarketValue: 0},
	}}
	src := &fakeSource{prints: map[string][]models.TradePrint{}}
	m, _, _ := newTestMonitor(t, src, profs, MonitorOptions{})

	if m.SessionCount() != 1 {
		t.Fatalf("sessions = %d, want 1 (zero market value excluded)", m.SessionCount())
	}
}

func TestMonitorNoProfilesFails(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{}}
	agg := NewAlertAggregator()
	m, err := NewMonitor(&fakeSource{}, profs, agg, snapshot.NewHub(),
		&nopMetrics{errors: map[string]int{}}, testLogger(t), MonitorOptions{})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("start with an empty monitored set must fail")
	}
}

func TestMonitorUnknownDetector(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{}}
	_, err := NewMonitor(&fakeSource{}, profs, NewAlertAggregator(), snapshot.NewHub(),
		&nopMetrics{errors: map[string]int{}}, testLogger(t),
		MonitorOptions{Detector: "no_such"})
	if err == nil {
		t.Fatal("unknown detector name must fail construction")
	}
}

func TestMonitorIncrementalAcrossCycles(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{
		"000001": {Code: "000001", Name: "one", MarketValue: 100_000},
	}}
	src := &fakeSource{prints: map[string][]models.TradePrint{
		"000001": buyRun("000001", 70, 70),
	}}
	m, agg, _ := newTestMonitor(t, src, profs, MonitorOptions{Incremental: true})

	// First cycle sees only the first print: below the 120 threshold.
	src.prints["000001"] = buyRun("000001", 70)
	m.RunCycle(context.Background())
	if agg.Len() != 0 {
		t.Fatalf("premature alert after first chunk")
	}

	// Second cycle grows the window; the carried run now crosses.
	src.prints["000001"] = buyRun("000001", 70, 70)
	m.RunCycle(context.Background())
	recs := agg.Records(models.DirectionBuy)
	if len(recs) != 1 || recs[0].Latest.RunCount != 2 || recs[0].Latest.Turnover != 140 {
		t.Fatalf("records = %+v", recs)
	}
}

func TestMonitorRePrime(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{
		"000001": {Code: "000001", Name: "one", MarketValue: 100_000},
	}}
	src := &fakeSource{prints: map[string][]models.TradePrint{}}
	m, _, _ := newTestMonitor(t, src, profs, MonitorOptions{})

	profs.profiles["000002"] = models.SecurityProfile{Code: "000002", Name: "two", MarketValue: 50_000}
	if err := m.RePrime(context.Background()); err != nil {
		t.Fatalf("reprime: %v", err)
	}
	if profs.reprimed != 1 {
		t.Fatalf("registry reprimed %d times, want 1", profs.reprimed)
	}
	if m.SessionCount() != 2 {
		t.Fatalf("sessions after reprime = %d, want 2", m.SessionCount())
	}
}

func TestMonitorResetConcurrentWithCycle(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{
		"000001": {Code: "000001", Name: "one", MarketValue: 100_000},
		"000002": {Code: "000002", Name: "two", MarketValue: 100_000},
	}}
	src := &fakeSource{prints: map[string][]models.TradePrint{
		"000001": buyRun("000001", 200, 200, 200),
		"000002": buyRun("000002", 50, 50),
	}}
	m, agg, _ := newTestMonitor(t, src, profs, MonitorOptions{Incremental: true})

	// Resets arrive from the HTTP side while the cycle goroutine is mid-scan;
	// carry-over access must stay serialized between the two.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			m.RunCycle(context.Background())
		}
	}()
	for i := 0; i < 50; i++ {
		agg.Reset()
	}
	<-done
	drain(m)

	// The monitor must still be fully functional afterwards.
	agg.Reset()
	m.RunCycle(context.Background())
	recs := agg.Records(models.DirectionBuy)
	if len(recs) != 1 || recs[0].Code != "000001" {
		t.Fatalf("records after concurrent resets = %+v, want only 000001", recs)
	}
}

func TestMonitorResetClearsCarryOver(t *testing.T) {
	profs := &fakeProfiles{profiles: map[string]models.SecurityProfile{
		"000001": {Code: "000001", Name: "one", MarketValue: 100_000},
	}}
	src := &fakeSource{prints: map[string][]models.TradePrint{
		"000001": buyRun("000001", 200),
	}}
	m, agg, _ := newTestMonitor(t, src, profs, MonitorOptions{Incremental: true})

	m.RunCycle(context.Background())
	if agg.Len() != 1 {
		t.Fatalf("expected one record before reset")
	}

	agg.Reset()
	if agg.Len() != 0 {
		t.Fatal("records must clear on reset")
	}

	// After reset the same (shorter) feed is consumed from scratch without
	// tripping the shrunken-window guard.
	src.prints["000001"] = buyRun("000001", 200)
	m.RunCycle(context.Background())
	if agg.Len() != 1 {
		t.Fatal("detector carry-over must restart cleanly after reset")
	}
}
