package detector

import (
	"fmt"

	"TapeWatch/internal/domain/models"
)

// DefaultMarketValueRatio is the fraction of tradable market value a run's
// turnover must exceed to alert. The reference detector computes 0.0012
// (cmv/5000*6) while its own documentation says "1/500"; 0.0012 is the
// observed behavior and is pinned by tests. Tunable via configuration.
const DefaultMarketValueRatio = 0.0012

// Threshold derives the alert threshold from a security's market value.
func Threshold(marketValue, ratio float64) float64 {
	return marketValue * ratio
}

// BuildDetection turns a raw scan into a DetectionResult, or reports false
// when the largest run did not cross the threshold. marketValue must be
// resolved by the caller; the detector never consults the registry itself.
func BuildDetection(code string, dir models.Direction, scan ScanResult, marketValue, threshold float64) (*models.DetectionResult, bool) {
	if !scan.Found || scan.Largest.Turnover <= threshold {
		return nil, false
	}

	res := &models.DetectionResult{
		Code:               code,
		Direction:          dir,
		Largest:            scan.Largest,
		QualifyingCount:    scan.QualifyingCount,
		QualifyingTurnover: scan.QualifyingTurnover,
		Threshold:          threshold,
		WindowTurnover:     scan.WindowTurnover,
	}
	if marketValue > 0 {
		res.MarketValuePct = scan.Largest.Turnover / marketValue * 100
	}
	if scan.WindowTurnover > 0 {
		res.WindowPct = scan.Largest.Turnover / scan.WindowTurnover * 100
		res.QualifyingPct = scan.QualifyingTurnover / scan.WindowTurnover * 100
	}
	res.Summary = summarize(res)
	return res, true
}

func summarize(r *models.DetectionResult) string {
	s := fmt.Sprintf(
		"%d consecutive %s prints, turnover %.0f (%.3f%% of market value, %.2f%% of window), "+
			"%d qualifying runs totaling %.0f (%.2f%% of window), threshold %.0f",
		r.Largest.Count, r.Direction, r.Largest.Turnover,
		r.MarketValuePct, r.WindowPct,
		r.QualifyingCount, r.QualifyingTurnover, r.QualifyingPct,
		r.Threshold,
	)
	if !r.Largest.StartTime.IsZero() && !r.Largest.EndTime.IsZero() {
		s += fmt.Sprintf(", %s - %s",
			r.Largest.StartTime.Format("15:04:05"), r.Largest.EndTime.Format("15:04:05"))
	}
	return s
}

// NewAlert wraps a detection into the externally visible alert unit.
func NewAlert(r *models.DetectionResult, name, detectorName string) *models.Alert {
	return &models.Alert{
		Code:            r.Code,
		Name:            name,
		Detector:        detectorName,
		Direction:       r.Direction,
		Time:            r.Largest.EndTime,
		Description:     r.Summary,
		RunCount:        r.Largest.Count,
		QualifyingCount: r.QualifyingCount,
		Turnover:        r.Largest.Turnover,
		MarketValuePct:  r.MarketValuePct,
		WindowPct:       r.WindowPct,
	}
}
