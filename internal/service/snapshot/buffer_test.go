package snapshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"TapeWatch/internal/domain/models"
)

func somePrints(n int) []models.TradePrint {
	ps := make([]models.TradePrint, n)
	for i := range ps {
		ps[i] = models.TradePrint{
			Code:      "000001",
			Seq:       int64(i),
			Turnover:  float64(i + 1),
			Direction: models.DirectionBuy,
		}
	}
	return ps
}

func TestBufferCheckoutBeforePublish(t *testing.T) {
	b := NewBuffer("000001")
	v, snap, changed := b.Checkout(0)
	if changed || snap != nil || v != 0 {
		t.Fatalf("empty buffer checkout = (%d, %v, %v)", v, snap, changed)
	}
}

func TestBufferPublishCheckout(t *testing.T) {
	b := NewBuffer("000001")

	v1 := b.Publish(somePrints(3))
	if v1 != 1 {
		t.Fatalf("first publish version = %d, want 1", v1)
	}

	v, snap, changed := b.Checkout(0)
	if !changed || v != v1 {
		t.Fatalf("checkout after publish = (%d, changed=%v), want (%d, true)", v, changed, v1)
	}
	if snap.Code != "000001" || len(snap.Prints) != 3 || snap.Version != v1 {
		t.Fatalf("snapshot = %+v", snap)
	}

	// Second checkout with the seen version reports no change.
	if _, snap2, changed := b.Checkout(v); changed || snap2 != nil {
		t.Fatal("unchanged buffer must not hand out a snapshot")
	}
}

func TestBufferOldSnapshotSurvivesNextPublish(t *testing.T) {
	b := NewBuffer("000001")
	b.Publish(somePrints(2))
	_, old, _ := b.Checkout(0)

	b.Publish(somePrints(5))
	if len(old.Prints) != 2 {
		t.Fatalf("checked-out snapshot mutated by next publish: %d prints", len(old.Prints))
	}

	_, fresh, changed := b.Checkout(old.Version)
	if !changed || len(fresh.Prints) != 5 {
		t.Fatalf("fresh checkout = (%v, %d prints)", changed, len(fresh.Prints))
	}
}

func TestBufferOldSnapshotSurvivesManyPublishes(t *testing.T) {
	b := NewBuffer("000001")
	b.Publish(somePrints(2))
	_, old, _ := b.Checkout(0)

	// The producer keeps publishing while the reader still holds its
	// snapshot; none of those publishes may touch it.
	b.Publish(somePrints(5))
	b.Publish(somePrints(9))
	b.Publish(somePrints(4))

	if old.Version != 1 || len(old.Prints) != 2 {
		t.Fatalf("held snapshot = version %d with %d prints, want version 1 with 2",
			old.Version, len(old.Prints))
	}
	for i, p := range old.Prints {
		if p.Seq != int64(i) || p.Turnover != float64(i+1) {
			t.Fatalf("held snapshot print %d mutated: %+v", i, p)
		}
	}
}

func TestBufferPublishCopiesInput(t *testing.T) {
	b := NewBuffer("000001")
	src := somePrints(2)
	b.Publish(src)
	src[0].Turnover = 999

	_, snap, _ := b.Checkout(0)
	if snap.Prints[0].Turnover != 1 {
		t.Fatal("publish must copy the input slice")
	}
}

func TestHub(t *testing.T) {
	h := NewHub()
	if _, ok := h.Lookup("000001"); ok {
		t.Fatal("lookup must not create buffers")
	}
	b1 := h.Get("000001")
	if b2 := h.Get("000001"); b2 != b1 {
		t.Fatal("Get must return the same buffer per code")
	}
	h.Get("000002")
	if got := len(h.Codes()); got != 2 {
		t.Fatalf("codes = %d, want 2", got)
	}
}

func TestFeedSkipsWhileRendering(t *testing.T) {
	b := NewBuffer("000001")
	b.Publish(somePrints(1))

	block := make(chan struct{})
	var mu sync.Mutex
	var renders []uint64
	f := NewFeed(b, time.Hour, func(ctx context.Context, snap *models.Snapshot) {
		mu.Lock()
		renders = append(renders, snap.Version)
		mu.Unlock()
		<-block
	})

	if !f.Poll(context.Background()) {
		t.Fatal("first poll should render")
	}
	// Wait for the render goroutine to start.
	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(renders)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("render never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	b.Publish(somePrints(2))
	if f.Poll(context.Background()) {
		t.Fatal("poll during an in-flight render must be dropped")
	}
	close(block)

	// After the render finishes the new version is picked up.
	deadline = time.After(time.Second)
	for !f.Poll(context.Background()) {
		select {
		case <-deadline:
			t.Fatal("feed never recovered after render finished")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestFeedNoRenderWhenUnchanged(t *testing.T) {
	b := NewBuffer("000001")
	b.Publish(somePrints(1))

	done := make(chan struct{}, 2)
	f := NewFeed(b, time.Hour, func(ctx context.Context, snap *models.Snapshot) {
		done <- struct{}{}
	})

	if !f.Poll(context.Background()) {
		t.Fatal("first poll should render")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("render did not run")
	}
	if f.Poll(context.Background()) {
		t.Fatal("unchanged snapshot must not trigger a render")
	}
}
