package detector

import (
	"strings"
	"testing"

	"TapeWatch/internal/domain/models"
)

func TestThresholdDefaultRatio(t *testing.T) {
	if got := Threshold(100_000_000, DefaultMarketValueRatio); got != 120_000 {
		t.Fatalf("threshold = %v, want 120000", got)
	}
}

func TestBuildDetectionBelowThreshold(t *testing.T) {
	scan := ScanResult{
		Largest:        models.Run{Direction: models.DirectionBuy, Count: 3, Turnover: 90},
		WindowTurnover: 200,
		Found:          true,
	}
	if _, ok := BuildDetection("000001", models.DirectionBuy, scan, 1_000_000, 100); ok {
		t.Fatal("run at or below threshold must not alert")
	}
	// Exactly at threshold is still excluded; the comparison is strict.
	scan.Largest.Turnover = 100
	if _, ok := BuildDetection("000001", models.DirectionBuy, scan, 1_000_000, 100); ok {
		t.Fatal("run exactly at threshold must not alert")
	}
}

func TestBuildDetectionNotFound(t *testing.T) {
	if _, ok := BuildDetection("000001", models.DirectionBuy, ScanResult{}, 1_000_000, 100); ok {
		t.Fatal("empty scan must not alert")
	}
}

func TestBuildDetectionRatios(t *testing.T) {
	scan := ScanResult{
		Largest:            models.Run{Direction: models.DirectionSell, Count: 4, Turnover: 150_000},
		QualifyingCount:    2,
		QualifyingTurnover: 250_000,
		WindowTurnover:     500_000,
		Found:              true,
	}
	res, ok := BuildDetection("600519", models.DirectionSell, scan, 100_000_000, 120_000)
	if !ok {
		t.Fatal("expected a detection")
	}
	if res.MarketValuePct != 0.15 {
		t.Fatalf("market value pct = %v, want 0.15", res.MarketValuePct)
	}
	if res.WindowPct != 30 {
		t.Fatalf("window pct = %v, want 30", res.WindowPct)
	}
	if res.QualifyingPct != 50 {
		t.Fatalf("qualifying pct = %v, want 50", res.QualifyingPct)
	}
	if !strings.Contains(res.Summary, "4 consecutive sell prints") {
		t.Fatalf("summary missing run description: %q", res.Summary)
	}
}

func TestBuildDetectionZeroDenominators(t *testing.T) {
	// Degenerate inputs must yield zero ratios, not NaN or Inf.
	scan := ScanResult{
		Largest: models.Run{Direction: models.DirectionBuy, Count: 1, Turnover: 50},
		Found:   true,
	}
	res, ok := BuildDetection("000001", models.DirectionBuy, scan, 0, 10)
	if !ok {
		t.Fatal("expected a detection")
	}
	if res.MarketValuePct != 0 || res.WindowPct != 0 || res.QualifyingPct != 0 {
		t.Fatalf("ratios = (%v, %v, %v), want all zero",
			res.MarketValuePct, res.WindowPct, res.QualifyingPct)
	}
}

func TestNewAlert(t *testing.T) {
	scan := ScanResult{
		Largest: models.Run{
			Direction: models.DirectionBuy,
			Count:     3,
			Turnover:  200_000,
		},
		QualifyingCount:    1,
		QualifyingTurnover: 200_000,
		WindowTurnover:     400_000,
		Found:              true,
	}
	res, ok := BuildDetection("000858", models.DirectionBuy, scan, 100_000_000, 120_000)
	if !ok {
		t.Fatal("expected a detection")
	}
	a := NewAlert(res, "Wuliangye", TurnoverRunDetector)
	if a.Code != "000858" || a.Name != "Wuliangye" || a.Detector != TurnoverRunDetector {
		t.Fatalf("alert identity = (%s, %s, %s)", a.Code, a.Name, a.Detector)
	}
	if a.Direction != models.DirectionBuy || a.RunCount != 3 || a.Turnover != 200_000 {
		t.Fatalf("alert payload = %+v", a)
	}
	if a.Description == "" {
		t.Fatal("alert description must carry the summary")
	}
}
