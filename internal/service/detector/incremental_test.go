package detector

import (
	"math/rand"
	"testing"

	"TapeWatch/internal/domain/models"
)

func TestNewIncrementalInvalidThreshold(t *testing.T) {
	if _, err := NewIncremental(models.DirectionBuy, 0); err != ErrInvalidThreshold {
		t.Fatalf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestIncrementalMatchesFullScan(t *testing.T) {
	// Any chunking of the same history must produce the same result as one
	// full scan, including a run left open at a chunk boundary.
	ps := prints(
		[]models.Direction{
			models.DirectionBuy, models.DirectionBuy, models.DirectionSell,
			models.DirectionBuy, models.DirectionNeutral, models.DirectionBuy,
			models.DirectionBuy, models.DirectionBuy, models.DirectionSell,
			models.DirectionBuy,
		},
		[]float64{4, 7, 2, 9, 1, 3, 3, 6, 5, 8},
	)
	const threshold = 10.0

	want, err := Scan(ps, models.DirectionBuy, threshold)
	if err != nil {
		t.Fatalf("full scan: %v", err)
	}

	for _, chunks := range [][]int{{10}, {1, 9}, {4, 6}, {7, 3}, {2, 2, 2, 2, 2}, {3, 3, 3, 1}} {
		inc, err := NewIncremental(models.DirectionBuy, threshold)
		if err != nil {
			t.Fatalf("new incremental: %v", err)
		}
		off := 0
		for _, n := range chunks {
			inc.Feed(ps[off : off+n])
			off += n
		}
		got := inc.Result()
		if got != want {
			t.Fatalf("chunking %v: got %+v, want %+v", chunks, got, want)
		}
		if inc.Cursor() != int64(len(ps)) {
			t.Fatalf("chunking %v: cursor = %d, want %d", chunks, inc.Cursor(), len(ps))
		}
	}
}

func TestIncrementalMatchesFullScanRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dirs := []models.Direction{models.DirectionBuy, models.DirectionSell, models.DirectionNeutral}

	for iter := 0; iter < 50; iter++ {
		n := 1 + rng.Intn(60)
		ds := make([]models.Direction, n)
		ts := make([]float64, n)
		for i := 0; i < n; i++ {
			ds[i] = dirs[rng.Intn(len(dirs))]
			ts[i] = float64(1 + rng.Intn(20))
		}
		ps := prints(ds, ts)
		threshold := float64(5 + rng.Intn(30))

		want, err := Scan(ps, models.DirectionBuy, threshold)
		if err != nil {
			t.Fatalf("iter %d: full scan: %v", iter, err)
		}

		inc, err := NewIncremental(models.DirectionBuy, threshold)
		if err != nil {
			t.Fatalf("iter %d: new incremental: %v", iter, err)
		}
		for off := 0; off < n; {
			size := 1 + rng.Intn(n-off)
			inc.Feed(ps[off : off+size])
			off += size
		}
		if got := inc.Result(); got != want {
			t.Fatalf("iter %d: got %+v, want %+v", iter, got, want)
		}
	}
}

func TestIncrementalResultDoesNotFinalizeOpenRun(t *testing.T) {
	// Calling Result mid-stream must not disturb later feeding.
	ps := prints(buys(4), []float64{6, 6, 6, 6})
	inc, err := NewIncremental(models.DirectionBuy, 10)
	if err != nil {
		t.Fatalf("new incremental: %v", err)
	}

	inc.Feed(ps[:2])
	mid := inc.Result()
	if mid.QualifyingCount != 1 || mid.QualifyingTurnover != 12 {
		t.Fatalf("mid qualifying = (%d, %v), want (1, 12)", mid.QualifyingCount, mid.QualifyingTurnover)
	}

	inc.Feed(ps[2:])
	fin := inc.Result()
	if fin.Largest.Count != 4 || fin.Largest.Turnover != 24 {
		t.Fatalf("final largest = (%d, %v), want (4, 24)", fin.Largest.Count, fin.Largest.Turnover)
	}
	if fin.QualifyingCount != 1 || fin.QualifyingTurnover != 24 {
		t.Fatalf("final qualifying = (%d, %v), want (1, 24)", fin.QualifyingCount, fin.QualifyingTurnover)
	}
}

func TestIncrementalAlertTakenPolicy(t *testing.T) {
	breakThenSmall := prints(
		[]models.Direction{models.DirectionSell, models.DirectionBuy, models.DirectionBuy},
		[]float64{1, 7, 7},
	)

	// Default: the maximum persists and debounces later smaller runs.
	inc, err := NewIncremental(models.DirectionBuy, 10)
	if err != nil {
		t.Fatalf("new incremental: %v", err)
	}
	inc.Feed(prints(buys(3), []float64{10, 10, 10}))
	inc.AlertTaken()
	inc.Feed(breakThenSmall)
	if got := inc.Result(); got.Largest.Count != 3 {
		t.Fatalf("default policy: largest count = %d, want 3", got.Largest.Count)
	}

	// Reset-after-alert: the next run competes fresh.
	inc, err = NewIncremental(models.DirectionBuy, 10, WithResetAfterAlert(true))
	if err != nil {
		t.Fatalf("new incremental: %v", err)
	}
	inc.Feed(prints(buys(3), []float64{10, 10, 10}))
	inc.AlertTaken()
	inc.Feed(breakThenSmall)
	if got := inc.Result(); got.Largest.Count != 2 || got.Largest.Turnover != 14 {
		t.Fatalf("reset policy: largest = (%d, %v), want (2, 14)", got.Largest.Count, got.Largest.Turnover)
	}
}

func TestIncrementalReset(t *testing.T) {
	inc, err := NewIncremental(models.DirectionBuy, 10)
	if err != nil {
		t.Fatalf("new incremental: %v", err)
	}
	inc.Feed(prints(buys(3), []float64{10, 10, 10}))
	inc.Reset()

	if inc.Cursor() != 0 {
		t.Fatalf("cursor after reset = %d, want 0", inc.Cursor())
	}
	if got := inc.Result(); got != (ScanResult{}) {
		t.Fatalf("result after reset = %+v, want zero", got)
	}
}

func TestRegistry(t *testing.T) {
	ctor, err := Lookup(TurnoverRunDetector)
	if err != nil {
		t.Fatalf("lookup built-in: %v", err)
	}
	inc, err := ctor(models.DirectionSell, 100)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if inc == nil {
		t.Fatal("constructor returned nil detector")
	}

	if _, err := Lookup("no_such_detector"); err == nil {
		t.Fatal("expected error for unknown detector")
	}

	found := false
	for _, name := range Names() {
		if name == TurnoverRunDetector {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names() = %v, missing %q", Names(), TurnoverRunDetector)
	}
}
