package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TapeWatch/internal/domain/models"
)

// MemoryPrintWindow holds the session's print history per security and
// serves it through the PrintSource interface. The ingest side appends in
// arrival order; prints are assumed seq-ordered within a security, which
// both the live stream and the broker feed guarantee.
type MemoryPrintWindow struct {
	mu      sync.RWMutex
	prints  map[string][]models.TradePrint
	maxSeen map[string]int64
	cap     int // per-security cap, 0 means unbounded
}

// NewMemoryPrintWindow creates an empty window. perSecurityCap bounds how
// many prints are kept per code; older prints are evicted from the front.
func NewMemoryPrintWindow(perSecurityCap int) *MemoryPrintWindow {
	return &MemoryPrintWindow{
		prints:  make(map[string][]models.TradePrint),
		maxSeen: make(map[string]int64),
		cap:     perSecurityCap,
	}
}

// Append adds one print. Duplicate or out-of-order seqs (replays after a
// reconnect) are dropped.
func (w *MemoryPrintWindow) Append(p *models.TradePrint) error {
	if p == nil {
		return fmt.Errorf("print window: nil print")
	}
	if p.Code == "" {
		return fmt.Errorf("print window: empty code")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.maxSeen[p.Code]; ok && p.Seq <= last {
		return nil
	}
	w.maxSeen[p.Code] = p.Seq
	ps := append(w.prints[p.Code], *p)
	if w.cap > 0 && len(ps) > w.cap {
		ps = ps[len(ps)-w.cap:]
	}
	w.prints[p.Code] = ps
	return nil
}

// FetchPrints returns the prints for code within [from, to], seq order.
func (w *MemoryPrintWindow) FetchPrints(ctx context.Context, code string, from, to time.Time) ([]models.TradePrint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.RLock()
	ps := w.prints[code]
	w.mu.RUnlock()

	// Prints are time-ordered, so the window is a contiguous slice.
	lo := sort.Search(len(ps), func(i int) bool { return !ps[i].Time.Before(from) })
	hi := sort.Search(len(ps), func(i int) bool { return ps[i].Time.After(to) })
	if lo >= hi {
		return nil, nil
	}
	out := make([]models.TradePrint, hi-lo)
	copy(out, ps[lo:hi])
	return out, nil
}

// Len reports how many prints are held for code.
func (w *MemoryPrintWindow) Len(code string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.prints[code])
}

// Clear drops all held prints, typically on session reset.
func (w *MemoryPrintWindow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prints = make(map[string][]models.TradePrint)
	w.maxSeen = make(map[string]int64)
}
