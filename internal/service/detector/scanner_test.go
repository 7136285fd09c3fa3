package detector

import (
	"testing"
	"time"

	"TapeWatch/internal/domain/models"
)

func prints(dirs []models.Direction, turnovers []float64) []models.TradePrint {
	base := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	ps := make([]models.TradePrint, len(dirs))
	for i := range dirs {
		ps[i] = models.TradePrint{
			Code:      "000001",
			Seq:       int64(i),
			Time:      base.Add(time.Duration(i) * time.Second),
			Price:     10,
			Turnover:  turnovers[i],
			Direction: dirs[i],
		}
	}
	return ps
}

func buys(n int) []models.Direction {
	ds := make([]models.Direction, n)
	for i := range ds {
		ds[i] = models.DirectionBuy
	}
	return ds
}

func TestScanInvalidThreshold(t *testing.T) {
	for _, th := range []float64{0, -1} {
		if _, err := Scan(nil, models.DirectionBuy, th); err != ErrInvalidThreshold {
			t.Fatalf("threshold %v: expected ErrInvalidThreshold, got %v", th, err)
		}
	}
}

func TestScanEmptyInput(t *testing.T) {
	res, err := Scan(nil, models.DirectionBuy, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Found {
		t.Fatalf("expected no result on empty input")
	}
}

func TestScanNoTargetDirection(t *testing.T) {
	ps := prints(
		[]models.Direction{models.DirectionSell, models.DirectionNeutral, models.DirectionSell},
		[]float64{100, 200, 300},
	)
	res, err := Scan(ps, models.DirectionBuy, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Found {
		t.Fatalf("expected no buy run in sell-only sequence")
	}
	if res.WindowTurnover != 600 {
		t.Fatalf("window turnover = %v, want 600", res.WindowTurnover)
	}
}

func TestScanSingleDirectionWholeSequence(t *testing.T) {
	ps := prints(buys(5), []float64{10, 15, 12, 18, 9})
	res, err := Scan(ps, models.DirectionBuy, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Largest.Count != 5 {
		t.Fatalf("largest count = %d, want 5", res.Largest.Count)
	}
	if res.Largest.Turnover != 64 {
		t.Fatalf("largest turnover = %v, want 64", res.Largest.Turnover)
	}
	if res.QualifyingCount != 1 || res.QualifyingTurnover != 64 {
		t.Fatalf("qualifying = (%d, %v), want (1, 64)", res.QualifyingCount, res.QualifyingTurnover)
	}
}

func TestScanQualifyingRunExample(t *testing.T) {
	// prints [2,3,4] all buy, threshold 8: the full run qualifies.
	ps := prints(buys(3), []float64{2, 3, 4})
	res, err := Scan(ps, models.DirectionBuy, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Largest.Count != 3 || res.Largest.Turnover != 9 {
		t.Fatalf("largest = (%d, %v), want (3, 9)", res.Largest.Count, res.Largest.Turnover)
	}
	if res.QualifyingCount != 1 || res.QualifyingTurnover != 9 {
		t.Fatalf("qualifying = (%d, %v), want (1, 9)", res.QualifyingCount, res.QualifyingTurnover)
	}
}

func TestScanSubThresholdRunExcluded(t *testing.T) {
	// Buy(5) Sell(1) Buy(6) Buy(6), threshold 10: only the second run qualifies.
	ps := prints(
		[]models.Direction{models.DirectionBuy, models.DirectionSell, models.DirectionBuy, models.DirectionBuy},
		[]float64{5, 1, 6, 6},
	)
	res, err := Scan(ps, models.DirectionBuy, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.QualifyingCount != 1 || res.QualifyingTurnover != 12 {
		t.Fatalf("qualifying = (%d, %v), want (1, 12)", res.QualifyingCount, res.QualifyingTurnover)
	}
	if res.Largest.Count != 2 || res.Largest.Turnover != 12 {
		t.Fatalf("largest = (%d, %v), want (2, 12)", res.Largest.Count, res.Largest.Turnover)
	}
}

func TestScanEqualLengthTieBreakByTurnover(t *testing.T) {
	// Two runs of length 2; the later one carries more turnover and wins.
	ps := prints(
		[]models.Direction{models.DirectionBuy, models.DirectionBuy, models.DirectionSell, models.DirectionBuy, models.DirectionBuy},
		[]float64{3, 3, 1, 5, 5},
	)
	res, err := Scan(ps, models.DirectionBuy, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Largest.Count != 2 || res.Largest.Turnover != 10 {
		t.Fatalf("largest = (%d, %v), want (2, 10)", res.Largest.Count, res.Largest.Turnover)
	}
	if res.Largest.StartSeq != 3 {
		t.Fatalf("largest start seq = %d, want 3", res.Largest.StartSeq)
	}
}

func TestScanLongerRunBeatsRicherShortRun(t *testing.T) {
	// A 3-print run wins over a 2-print run with strictly greater turnover.
	ps := prints(
		[]models.Direction{models.DirectionBuy, models.DirectionBuy, models.DirectionSell, models.DirectionBuy, models.DirectionBuy, models.DirectionBuy},
		[]float64{50, 50, 1, 2, 2, 2},
	)
	res, err := Scan(ps, models.DirectionBuy, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Largest.Count != 3 || res.Largest.Turnover != 6 {
		t.Fatalf("largest = (%d, %v), want (3, 6)", res.Largest.Count, res.Largest.Turnover)
	}
}

func TestScanNeutralBreaksRun(t *testing.T) {
	ps := prints(
		[]models.Direction{models.DirectionBuy, models.DirectionNeutral, models.DirectionBuy},
		[]float64{5, 100, 5},
	)
	res, err := Scan(ps, models.DirectionBuy, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Largest.Count != 1 {
		t.Fatalf("largest count = %d, want 1 (neutral must break the run)", res.Largest.Count)
	}
	if res.QualifyingCount != 2 {
		t.Fatalf("qualifying count = %d, want 2", res.QualifyingCount)
	}
	if res.WindowTurnover != 110 {
		t.Fatalf("window turnover = %v, want 110 (neutral counts toward window)", res.WindowTurnover)
	}
}

func TestScanSellDirection(t *testing.T) {
	ps := prints(
		[]models.Direction{models.DirectionSell, models.DirectionSell, models.DirectionBuy, models.DirectionSell},
		[]float64{7, 8, 100, 4},
	)
	res, err := Scan(ps, models.DirectionSell, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Largest.Count != 2 || res.Largest.Turnover != 15 {
		t.Fatalf("largest = (%d, %v), want (2, 15)", res.Largest.Count, res.Largest.Turnover)
	}
	if res.QualifyingCount != 1 || res.QualifyingTurnover != 15 {
		t.Fatalf("qualifying = (%d, %v), want (1, 15)", res.QualifyingCount, res.QualifyingTurnover)
	}
}
