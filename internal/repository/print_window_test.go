package repository

import (
	"context"
	"testing"
	"time"

	"TapeWatch/internal/domain/models"
)

func windowPrint(code string, seq int64, at time.Time) *models.TradePrint {
	return &models.TradePrint{
		Code:      code,
		Seq:       seq,
		Time:      at,
		Turnover:  10,
		Direction: models.DirectionBuy,
	}
}

func TestPrintWindowAppendAndFetch(t *testing.T) {
	w := NewMemoryPrintWindow(0)
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	for i := int64(0); i < 5; i++ {
		if err := w.Append(windowPrint("000001", i, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := w.FetchPrints(context.Background(), "000001", base.Add(time.Second), base.Add(3*time.Second))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 3 || got[0].Seq != 1 || got[2].Seq != 3 {
		t.Fatalf("window = %+v", got)
	}

	// Unknown code is empty, not an error.
	got, err = w.FetchPrints(context.Background(), "999999", base, base.Add(time.Hour))
	if err != nil || got != nil {
		t.Fatalf("unknown code = (%v, %v)", got, err)
	}
}

func TestPrintWindowDropsReplays(t *testing.T) {
	w := NewMemoryPrintWindow(0)
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	_ = w.Append(windowPrint("000001", 1, base))
	_ = w.Append(windowPrint("000001", 2, base.Add(time.Second)))
	// Reconnect replay of seq 1 and 2 must be ignored.
	_ = w.Append(windowPrint("000001", 1, base))
	_ = w.Append(windowPrint("000001", 2, base.Add(time.Second)))

	if w.Len("000001") != 2 {
		t.Fatalf("len = %d, want 2", w.Len("000001"))
	}
}

func TestPrintWindowCapEvictsOldest(t *testing.T) {
	w := NewMemoryPrintWindow(3)
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	for i := int64(0); i < 5; i++ {
		_ = w.Append(windowPrint("000001", i, base.Add(time.Duration(i)*time.Second)))
	}
	got, err := w.FetchPrints(context.Background(), "000001", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 3 || got[0].Seq != 2 {
		t.Fatalf("capped window = %+v", got)
	}
}

func TestPrintWindowClear(t *testing.T) {
	w := NewMemoryPrintWindow(0)
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	_ = w.Append(windowPrint("000001", 1, base))
	w.Clear()
	if w.Len("000001") != 0 {
		t.Fatal("clear must drop held prints")
	}
	// After a clear the same seqs are accepted again.
	if err := w.Append(windowPrint("000001", 1, base)); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
	if w.Len("000001") != 1 {
		t.Fatal("append after clear must take effect")
	}
}
