package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TapeWatch/internal/domain/models"
	drepo "TapeWatch/internal/domain/repository"
	"TapeWatch/internal/service/detector"
	"TapeWatch/internal/service/ratelimit"
	"TapeWatch/internal/service/snapshot"
	"TapeWatch/pkg/logger"
)

// MonitorOptions tunes one monitoring session.
type MonitorOptions struct {
	Interval        time.Duration // polling cycle interval
	Ratio           float64       // threshold ratio over market value
	Detector        string        // registry name, defaults to turnover_run
	Incremental     bool          // carry run state across cycles instead of full rescans
	ResetAfterAlert bool
	EventBuffer     int     // event channel capacity
	FetchBurst      float64 // per-security fetch throttle
	FetchPerSec     float64
}

func (o *MonitorOptions) withDefaults() MonitorOptions {
	out := *o
	if out.Interval <= 0 {
		out.Interval = 3 * time.Second
	}
	if out.Ratio == 0 {
		out.Ratio = detector.DefaultMarketValueRatio
	}
	if out.Detector == "" {
		out.Detector = detector.TurnoverRunDetector
	}
	if out.EventBuffer <= 0 {
		out.EventBuffer = 256
	}
	if out.FetchBurst <= 0 {
		out.FetchBurst = 5
	}
	if out.FetchPerSec <= 0 {
		out.FetchPerSec = 2
	}
	return out
}

// session is the per-security monitoring state for one run. mu serializes
// detector carry-over access between the cycle goroutine and resets arriving
// from the HTTP side.
type session struct {
	code        string
	name        string
	marketValue float64
	threshold   float64

	mu        sync.Mutex
	detectors map[models.Direction]*detector.Incremental
}

// Monitor drives the polling loop: fetch each security's prints, run the
// detector for both directions, fold alerts into the aggregator and publish
// everything as an ordered event stream.
type Monitor struct {
	source   drepo.PrintSource
	profiles drepo.ProfileRegistry
	agg      *AlertAggregator
	hub      *snapshot.Hub
	metrics  drepo.Metrics
	log      *logger.Logger
	limiter  *ratelimit.Limiter
	opts     MonitorOptions

	ctor    detector.Constructor
	events  chan models.MonitorEvent
	cycle   uint64
	started time.Time

	mu       sync.RWMutex
	sessions []*session
}

// NewMonitor assembles a monitor. Options are validated against the detector
// registry; an unknown detector name fails here, before the loop starts.
func NewMonitor(
	source drepo.PrintSource,
	profiles drepo.ProfileRegistry,
	agg *AlertAggregator,
	hub *snapshot.Hub,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts MonitorOptions,
) (*Monitor, error) {
	opts = opts.withDefaults()
	ctor, err := detector.Lookup(opts.Detector)
	if err != nil {
		return nil, err
	}
	m := &Monitor{
		source:   source,
		profiles: profiles,
		agg:      agg,
		hub:      hub,
		metrics:  metrics,
		log:      log,
		limiter:  ratelimit.New(),
		opts:     opts,
		ctor:     ctor,
		events:   make(chan models.MonitorEvent, opts.EventBuffer),
	}
	agg.OnReset(m.resetSessions)
	return m, nil
}

// Events returns the ordered notification stream. Within one cycle every
// alert event precedes that cycle's completion event.
func (m *Monitor) Events() <-chan models.MonitorEvent { return m.events }

// Start resolves the monitored set and launches the loop goroutine. It
// returns an error only when no security has a usable profile.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.prime(); err != nil {
		return err
	}
	m.started = time.Now()
	go m.run(ctx)
	return nil
}

// prime builds per-security sessions from the profile registry, excluding
// securities without a resolved market value. Exclusion happens once here,
// not every cycle.
func (m *Monitor) prime() error {
	codes := m.profiles.Codes()
	sessions := make([]*session, 0, len(codes))
	for _, code := range codes {
		prof, ok := m.profiles.Profile(code)
		if !ok || prof.MarketValue <= 0 {
			m.log.Warn("excluding security without market value", logger.String("code", code))
			continue
		}
		s := &session{
			code:        code,
			name:        prof.Name,
			marketValue: prof.MarketValue,
			threshold:   detector.Threshold(prof.MarketValue, m.opts.Ratio),
			detectors:   make(map[models.Direction]*detector.Incremental, 2),
		}
		if m.opts.Incremental {
			for _, dir := range []models.Direction{models.DirectionBuy, models.DirectionSell} {
				inc, err := m.ctor(dir, s.threshold)
				if err != nil {
					return fmt.Errorf("detector for %s/%s: %w", code, dir, err)
				}
				s.detectors[dir] = inc
			}
		}
		sessions = append(sessions, s)
	}
	if len(sessions) == 0 {
		return fmt.Errorf("monitor: no security with a resolved profile")
	}
	m.mu.Lock()
	m.sessions = sessions
	m.mu.Unlock()
	m.log.Info("monitoring set primed",
		logger.Int("securities", len(sessions)),
		logger.Int("excluded", len(codes)-len(sessions)))
	return nil
}

// RePrime reloads profiles and rebuilds the monitored set. Carry-over
// detector state for securities that survive the reload is discarded.
func (m *Monitor) RePrime(ctx context.Context) error {
	if err := m.profiles.RePrime(ctx); err != nil {
		return fmt.Errorf("reload profiles: %w", err)
	}
	if err := m.prime(); err != nil {
		return err
	}
	m.emit(models.MonitorEvent{
		Kind:    models.EventStatus,
		Time:    time.Now(),
		Message: fmt.Sprintf("re-primed, monitoring %d securities", m.SessionCount()),
	})
	return nil
}

// SessionCount reports how many securities are currently monitored.
func (m *Monitor) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// resetSessions clears detector carry-over. It runs as an aggregator reset
// hook so one reset wipes records and run state together.
func (m *Monitor) resetSessions() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.mu.Lock()
		for _, inc := range s.detectors {
			inc.Reset()
		}
		s.mu.Unlock()
	}
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped", logger.Uint64("cycles", m.cycle))
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle performs one pass over every monitored security. A failing
// security is skipped for this cycle; the pass never aborts early except on
// context cancellation.
func (m *Monitor) RunCycle(ctx context.Context) {
	start := time.Now()
	m.cycle++
	m.mu.RLock()
	sessions := m.sessions
	m.mu.RUnlock()
	scanned := 0
	for _, s := range sessions {
		if ctx.Err() != nil {
			return
		}
		if err := m.scanSecurity(ctx, s); err != nil {
			m.metrics.RecordError("fetch")
			m.log.Warn("skipping security this cycle",
				logger.String("code", s.code), logger.Error(err))
			continue
		}
		scanned++
	}
	m.metrics.RecordCycle(scanned, time.Since(start).Seconds())
	m.emit(models.MonitorEvent{
		Kind:    models.EventCycleComplete,
		Cycle:   m.cycle,
		Time:    time.Now(),
		Message: fmt.Sprintf("cycle %d: scanned %d/%d securities", m.cycle, scanned, len(sessions)),
	})
}

func (m *Monitor) scanSecurity(ctx context.Context, s *session) error {
	if err := m.throttle(ctx, s.code); err != nil {
		return err
	}

	fetchStart := time.Now()
	prints, err := m.source.FetchPrints(ctx, s.code, m.started, time.Now())
	m.metrics.RecordLatency("fetch", time.Since(fetchStart).Seconds())
	if err != nil {
		return fmt.Errorf("fetch prints: %w", err)
	}
	m.hub.Get(s.code).Publish(prints)

	for _, dir := range []models.Direction{models.DirectionBuy, models.DirectionSell} {
		scan, err := m.scanDirection(s, dir, prints)
		if err != nil {
			// Threshold errors are configuration bugs, not transient.
			m.emitError(s.code, err)
			continue
		}
		m.evaluate(s, dir, scan)
	}
	return nil
}

// scanDirection runs either a full rescan or an incremental feed depending
// on the configured strategy. Both yield the same result for the same
// cumulative history.
func (m *Monitor) scanDirection(s *session, dir models.Direction, prints []models.TradePrint) (detector.ScanResult, error) {
	if !m.opts.Incremental {
		return detector.Scan(prints, dir, s.threshold)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inc := s.detectors[dir]
	cursor := inc.Cursor()
	if cursor > int64(len(prints)) {
		// The source window shrank under us; start the carry-over fresh.
		inc.Reset()
		cursor = 0
	}
	inc.Feed(prints[cursor:])
	return inc.Result(), nil
}

func (m *Monitor) evaluate(s *session, dir models.Direction, scan detector.ScanResult) {
	if scan.QualifyingTurnover < 0 || scan.WindowTurnover < 0 {
		m.emitError(s.code, fmt.Errorf("negative turnover tally for %s/%s", s.code, dir))
		return
	}
	res, ok := detector.BuildDetection(s.code, dir, scan, s.marketValue, s.threshold)
	if !ok {
		return
	}
	alert := detector.NewAlert(res, s.name, m.opts.Detector)
	m.agg.Add(alert)
	if inc, ok := s.detectors[dir]; ok {
		s.mu.Lock()
		inc.AlertTaken()
		s.mu.Unlock()
	}
	m.metrics.RecordAlert(dir.String(), s.code)
	m.metrics.RecordLargestRun(s.code, res.Largest.Turnover)
	m.log.Info("run alert",
		logger.String("code", s.code),
		logger.String("direction", dir.String()),
		logger.Int("count", res.Largest.Count),
		logger.Any("turnover", res.Largest.Turnover))
	m.emit(models.MonitorEvent{
		Kind:  models.EventAlert,
		Cycle: m.cycle,
		Time:  alert.Time,
		Alert: alert,
	})
}

// throttle blocks until the per-security token bucket admits one fetch or
// the context is cancelled.
func (m *Monitor) throttle(ctx context.Context, code string) error {
	for !m.limiter.Allow(code, m.opts.FetchBurst, m.opts.FetchPerSec) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

func (m *Monitor) emitError(code string, err error) {
	m.metrics.RecordError("detector")
	m.log.Error("detector error", logger.String("code", code), logger.Error(err))
	m.emit(models.MonitorEvent{
		Kind:    models.EventError,
		Cycle:   m.cycle,
		Time:    time.Now(),
		Message: err.Error(),
	})
}

// emit never blocks the cycle: when the consumer has fallen this far behind
// the event is dropped and counted.
func (m *Monitor) emit(ev models.MonitorEvent) {
	select {
	case m.events <- ev:
	default:
		m.metrics.RecordError("events_dropped")
	}
}
