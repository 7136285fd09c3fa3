package detector

import (
	"TapeWatch/internal/domain/models"
)

// Scan walks prints once and returns the maximal run of the target direction
// together with the tally of runs whose turnover exceeded threshold. Input is
// never mutated. O(n) time, O(1) space beyond the tally.
//
// The maximum is tracked by count first, cumulative turnover as tie-break: a
// longer run wins even when a shorter run carries more turnover, and
// equal-length runs are broken by turnover. This asymmetry is load-bearing
// for alert compatibility and is pinned by tests.
func Scan(prints []models.TradePrint, dir models.Direction, threshold float64) (ScanResult, error) {
	if threshold <= 0 {
		return ScanResult{}, ErrInvalidThreshold
	}
	if dir == models.DirectionNeutral {
		return ScanResult{}, nil
	}

	var (
		res ScanResult
		cur models.Run
	)
	for i := range prints {
		p := &prints[i]
		res.WindowTurnover += p.Turnover

		if p.Direction != dir {
			// Run broken by an opposing or neutral print.
			closeRun(&res, &cur, threshold)
			continue
		}

		if cur.Count == 0 {
			cur = models.Run{
				Direction: dir,
				StartSeq:  p.Seq,
				StartTime: p.Time,
			}
			res.Found = true
		}
		cur.Count++
		cur.Turnover += p.Turnover
		cur.EndSeq = p.Seq
		cur.EndTime = p.Time

		if betterRun(cur, res.Largest) {
			res.Largest = cur
		}
	}
	// The in-progress run at end of sequence is evaluated the same way.
	closeRun(&res, &cur, threshold)

	return res, nil
}

// closeRun finalizes the current run into the qualifying tally and resets it.
func closeRun(res *ScanResult, cur *models.Run, threshold float64) {
	if cur.Count == 0 {
		return
	}
	if cur.Turnover > threshold {
		res.QualifyingCount++
		res.QualifyingTurnover += cur.Turnover
	}
	*cur = models.Run{}
}

// betterRun reports whether a beats b: count first, turnover as tie-break.
func betterRun(a, b models.Run) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Turnover > b.Turnover
}
