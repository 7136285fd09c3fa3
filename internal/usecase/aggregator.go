package usecase

import (
	"sort"
	"sync"
	"time"

	"TapeWatch/internal/domain/models"
)

type aggKey struct {
	code string
	dir  models.Direction
}

// AlertAggregator folds the stream of alerts into one record per
// (security, direction) pair so repeated firings accumulate instead of
// flooding downstream consumers. Safe for concurrent use.
type AlertAggregator struct {
	mu        sync.RWMutex
	records   map[aggKey]*models.AggregatedAlertRecord
	resetHook []func()
	now       func() time.Time
}

// NewAlertAggregator creates an empty aggregator.
func NewAlertAggregator() *AlertAggregator {
	return &AlertAggregator{
		records: make(map[aggKey]*models.AggregatedAlertRecord),
		now:     time.Now,
	}
}

// OnReset registers a hook invoked whenever the aggregator is cleared.
// Detector carry-over state hangs off these hooks so a session reset wipes
// both sides together.
func (a *AlertAggregator) OnReset(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetHook = append(a.resetHook, fn)
}

// Add folds one alert into the running record for its (code, direction) pair.
// The latest alert always replaces the stored one, totals are additive.
func (a *AlertAggregator) Add(alert *models.Alert) *models.AggregatedAlertRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := aggKey{code: alert.Code, dir: alert.Direction}
	now := a.now()
	rec, ok := a.records[k]
	if !ok {
		rec = &models.AggregatedAlertRecord{
			Code:      alert.Code,
			Name:      alert.Name,
			Direction: alert.Direction,
			FirstSeen: now,
		}
		a.records[k] = rec
	}
	rec.Occurrences++
	rec.TotalTurnover += alert.Turnover
	rec.TotalWindowPct += alert.WindowPct
	rec.TotalMarketValuePct += alert.MarketValuePct
	rec.Latest = *alert
	rec.Name = alert.Name
	rec.UpdatedAt = now

	cp := *rec
	return &cp
}

// Records returns a snapshot of all aggregated records, most recently
// updated first. dir narrows to one direction; DirectionNeutral means both.
func (a *AlertAggregator) Records(dir models.Direction) []models.AggregatedAlertRecord {
	a.mu.RLock()
	out := make([]models.AggregatedAlertRecord, 0, len(a.records))
	for k, rec := range a.records {
		if dir != models.DirectionNeutral && k.dir != dir {
			continue
		}
		out = append(out, *rec)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// TopN returns the n busiest records for one direction, ranked by occurrence
// count, then total turnover, then code for a stable order.
func (a *AlertAggregator) TopN(dir models.Direction, n int) []models.AggregatedAlertRecord {
	a.mu.RLock()
	out := make([]models.AggregatedAlertRecord, 0, len(a.records))
	for k, rec := range a.records {
		if k.dir != dir {
			continue
		}
		out = append(out, *rec)
	}
	a.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		if out[i].TotalTurnover != out[j].TotalTurnover {
			return out[i].TotalTurnover > out[j].TotalTurnover
		}
		return out[i].Code < out[j].Code
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Len reports the number of aggregated records across both directions.
func (a *AlertAggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}

// Reset clears all records and fires the registered reset hooks. Hooks run
// outside the lock.
func (a *AlertAggregator) Reset() {
	a.mu.Lock()
	a.records = make(map[aggKey]*models.AggregatedAlertRecord)
	hooks := make([]func(), len(a.resetHook))
	copy(hooks, a.resetHook)
	a.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
