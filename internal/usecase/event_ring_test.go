package usecase

import (
	"testing"

	"TapeWatch/internal/domain/models"
)

func TestEventRingRecent(t *testing.T) {
	r := NewEventRing(3)
	if got := r.Recent(10); len(got) != 0 {
		t.Fatalf("empty ring = %v", got)
	}

	for i := uint64(1); i <= 5; i++ {
		r.Record(models.MonitorEvent{Kind: models.EventStatus, Cycle: i})
	}

	got := r.Recent(10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (oldest evicted)", len(got))
	}
	if got[0].Cycle != 5 || got[1].Cycle != 4 || got[2].Cycle != 3 {
		t.Fatalf("order = [%d %d %d], want newest first", got[0].Cycle, got[1].Cycle, got[2].Cycle)
	}

	if got := r.Recent(2); len(got) != 2 || got[0].Cycle != 5 {
		t.Fatalf("limited = %v", got)
	}

	r.Clear()
	if got := r.Recent(10); len(got) != 0 {
		t.Fatalf("after clear = %v", got)
	}
}
