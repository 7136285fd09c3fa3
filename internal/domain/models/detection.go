package models

import "time"

// Run is a maximal contiguous subsequence of prints sharing one non-neutral
// direction. A neutral print breaks a run but is never part of one.
type Run struct {
	Direction Direction `json:"direction"`
	StartSeq  int64     `json:"start_seq"`
	EndSeq    int64     `json:"end_seq"`
	Count     int       `json:"count"`
	Turnover  float64   `json:"turnover"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// DetectionResult is produced per (security, direction, scan), and only when
// the largest run's turnover exceeded the threshold.
type DetectionResult struct {
	Code      string    `json:"code"`
	Direction Direction `json:"direction"`

	// Largest run by count, with turnover as tie-break.
	Largest Run `json:"largest"`

	// Tally over all runs whose turnover exceeded the threshold.
	QualifyingCount    int     `json:"qualifying_count"`
	QualifyingTurnover float64 `json:"qualifying_turnover"`

	Threshold      float64 `json:"threshold"`
	WindowTurnover float64 `json:"window_turnover"` // all directions

	// Ratios, in percent. Zero when window turnover is zero.
	MarketValuePct float64 `json:"market_value_pct"` // largest run vs market value
	WindowPct      float64 `json:"window_pct"`       // largest run vs window turnover
	QualifyingPct  float64 `json:"qualifying_pct"`   // qualifying tally vs window turnover

	Summary string `json:"summary"`
}

// Alert is the externally visible unit, one per qualifying detection per scan.
type Alert struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"` // security display name
	Detector    string    `json:"detector"`
	Direction   Direction `json:"direction"`
	Time        time.Time `json:"time"`
	Description string    `json:"description"`

	// Carried from the detection so consumers never have to re-parse the text.
	RunCount        int     `json:"run_count"`
	QualifyingCount int     `json:"qualifying_count"`
	Turnover        float64 `json:"turnover"`
	MarketValuePct  float64 `json:"market_value_pct"`
	WindowPct       float64 `json:"window_pct"`
}

// AggregatedAlertRecord holds running totals for one (code, direction) pair
// across polling cycles. Updated additively, never replaced; cleared only by
// an explicit reset.
type AggregatedAlertRecord struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`

	Occurrences         int     `json:"occurrences"`
	TotalTurnover       float64 `json:"total_turnover"`
	TotalWindowPct      float64 `json:"total_window_pct"`
	TotalMarketValuePct float64 `json:"total_market_value_pct"`

	Latest    Alert     `json:"latest"`
	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}
