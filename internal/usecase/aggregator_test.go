package usecase

import (
	"testing"
	"time"

	"TapeWatch/internal/domain/models"
)

func newTestAggregator() (*AlertAggregator, *time.Time) {
	agg := NewAlertAggregator()
	clock := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	agg.now = func() time.Time { return clock }
	return agg, &clock
}

func alert(code string, dir models.Direction, turnover, windowPct float64) *models.Alert {
	return &models.Alert{
		Code:           code,
		Name:           "name-" + code,
		Detector:       "turnover_run",
		Direction:      dir,
		Turnover:       turnover,
		WindowPct:      windowPct,
		MarketValuePct: windowPct / 10,
	}
}

func TestAggregatorAddFolds(t *testing.T) {
	agg, clock := newTestAggregator()

	first := agg.Add(alert("000001", models.DirectionBuy, 100, 10))
	if first.Occurrences != 1 || first.TotalTurnover != 100 {
		t.Fatalf("first add = %+v", first)
	}
	if !first.FirstSeen.Equal(*clock) {
		t.Fatalf("first seen = %v, want %v", first.FirstSeen, *clock)
	}

	*clock = clock.Add(time.Minute)
	second := agg.Add(alert("000001", models.DirectionBuy, 50, 5))
	if second.Occurrences != 2 || second.TotalTurnover != 150 || second.TotalWindowPct != 15 {
		t.Fatalf("second add = %+v", second)
	}
	if second.TotalMarketValuePct != 1.5 {
		t.Fatalf("total market value pct = %v, want 1.5", second.TotalMarketValuePct)
	}
	if second.Latest.Turnover != 50 {
		t.Fatalf("latest turnover = %v, want 50", second.Latest.Turnover)
	}
	if !second.FirstSeen.Equal(first.FirstSeen) {
		t.Fatal("first seen must not move on later adds")
	}

	// Opposite direction for the same code is a separate record.
	agg.Add(alert("000001", models.DirectionSell, 30, 3))
	if agg.Len() != 2 {
		t.Fatalf("len = %d, want 2", agg.Len())
	}
}

func TestAggregatorRecordsRecencyOrder(t *testing.T) {
	agg, clock := newTestAggregator()

	agg.Add(alert("000001", models.DirectionBuy, 10, 1))
	*clock = clock.Add(time.Minute)
	agg.Add(alert("000002", models.DirectionSell, 20, 2))
	*clock = clock.Add(time.Minute)
	agg.Add(alert("000001", models.DirectionBuy, 30, 3))

	recs := agg.Records(models.DirectionNeutral)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].Code != "000001" || recs[1].Code != "000002" {
		t.Fatalf("order = [%s %s], want most recently updated first", recs[0].Code, recs[1].Code)
	}

	sells := agg.Records(models.DirectionSell)
	if len(sells) != 1 || sells[0].Code != "000002" {
		t.Fatalf("sell filter = %+v", sells)
	}
}

func TestAggregatorTopN(t *testing.T) {
	agg, _ := newTestAggregator()

	// 000002 fires three times, 000001 and 000003 once each with 000003
	// carrying more turnover. Equal everything falls back to code order.
	agg.Add(alert("000002", models.DirectionBuy, 10, 1))
	agg.Add(alert("000002", models.DirectionBuy, 10, 1))
	agg.Add(alert("000002", models.DirectionBuy, 10, 1))
	agg.Add(alert("000001", models.DirectionBuy, 40, 4))
	agg.Add(alert("000003", models.DirectionBuy, 90, 9))
	agg.Add(alert("000009", models.DirectionSell, 999, 99))

	top := agg.TopN(models.DirectionBuy, 2)
	if len(top) != 2 {
		t.Fatalf("top = %d records, want 2", len(top))
	}
	if top[0].Code != "000002" {
		t.Fatalf("top[0] = %s, want 000002 (most occurrences)", top[0].Code)
	}
	if top[1].Code != "000003" {
		t.Fatalf("top[1] = %s, want 000003 (turnover tie-break)", top[1].Code)
	}

	all := agg.TopN(models.DirectionBuy, 0)
	if len(all) != 3 {
		t.Fatalf("n=0 should return all buy records, got %d", len(all))
	}
}

func TestAggregatorResetFiresHooks(t *testing.T) {
	agg, _ := newTestAggregator()
	agg.Add(alert("000001", models.DirectionBuy, 10, 1))

	fired := 0
	agg.OnReset(func() { fired++ })
	agg.OnReset(func() { fired++ })

	agg.Reset()
	if agg.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", agg.Len())
	}
	if fired != 2 {
		t.Fatalf("hooks fired = %d, want 2", fired)
	}
}
