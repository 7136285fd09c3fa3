package detector

import (
	"TapeWatch/internal/domain/models"
)

// Incremental carries run state for one (security, direction) pair across
// polling cycles so each cycle only has to feed newly arrived prints. For the
// same cumulative history, Result matches a full Scan of that history exactly,
// no matter how the prints were chunked.
type Incremental struct {
	dir       models.Direction
	threshold float64

	cur     models.Run
	max     models.Run
	cursor  int64 // prints consumed so far
	window  float64
	qualCnt int
	qualAmt float64
	found   bool

	resetAfterAlert bool
}

// IncrementalOption configures an Incremental detector.
type IncrementalOption func(*Incremental)

// WithResetAfterAlert clears the all-time maximum run once an alert has been
// taken for it, so a single long-lived run does not suppress later smaller
// but still-qualifying runs. Default is off, matching the reference behavior
// where the maximum never resets (debounce).
func WithResetAfterAlert(on bool) IncrementalOption {
	return func(inc *Incremental) { inc.resetAfterAlert = on }
}

// NewIncremental creates a carry-over detector for one direction.
func NewIncremental(dir models.Direction, threshold float64, opts ...IncrementalOption) (*Incremental, error) {
	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	inc := &Incremental{dir: dir, threshold: threshold}
	for _, opt := range opts {
		opt(inc)
	}
	return inc, nil
}

// Cursor returns how many prints have been consumed; callers slice their
// fetched window from here to feed only new arrivals.
func (inc *Incremental) Cursor() int64 { return inc.cursor }

// Feed consumes newly arrived prints in order. Prints already consumed must
// not be fed again.
func (inc *Incremental) Feed(prints []models.TradePrint) {
	for i := range prints {
		p := &prints[i]
		inc.cursor++
		inc.window += p.Turnover

		if p.Direction != inc.dir {
			inc.close()
			continue
		}

		if inc.cur.Count == 0 {
			inc.cur = models.Run{
				Direction: inc.dir,
				StartSeq:  p.Seq,
				StartTime: p.Time,
			}
			inc.found = true
		}
		inc.cur.Count++
		inc.cur.Turnover += p.Turnover
		inc.cur.EndSeq = p.Seq
		inc.cur.EndTime = p.Time

		if betterRun(inc.cur, inc.max) {
			inc.max = inc.cur
		}
	}
}

func (inc *Incremental) close() {
	if inc.cur.Count == 0 {
		return
	}
	if inc.cur.Turnover > inc.threshold {
		inc.qualCnt++
		inc.qualAmt += inc.cur.Turnover
	}
	inc.cur = models.Run{}
}

// Result evaluates the state as a full scan of everything fed so far would.
// The run still in progress is counted without being finalized, so feeding
// may continue afterwards.
func (inc *Incremental) Result() ScanResult {
	res := ScanResult{
		Largest:            inc.max,
		QualifyingCount:    inc.qualCnt,
		QualifyingTurnover: inc.qualAmt,
		WindowTurnover:     inc.window,
		Found:              inc.found,
	}
	if inc.cur.Count > 0 && inc.cur.Turnover > inc.threshold {
		res.QualifyingCount++
		res.QualifyingTurnover += inc.cur.Turnover
	}
	return res
}

// AlertTaken tells the detector an alert was emitted for the current maximum.
// Under the reset-after-alert policy this clears the all-time maximum so the
// next cycle competes fresh; otherwise it is a no-op.
func (inc *Incremental) AlertTaken() {
	if inc.resetAfterAlert {
		inc.max = models.Run{}
	}
}

// Reset clears all carry-over state, including the cursor.
func (inc *Incremental) Reset() {
	inc.cur = models.Run{}
	inc.max = models.Run{}
	inc.cursor = 0
	inc.window = 0
	inc.qualCnt = 0
	inc.qualAmt = 0
	inc.found = false
}
