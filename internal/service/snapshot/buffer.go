package snapshot

import (
	"sync"
	"time"

	"TapeWatch/internal/domain/models"
)

// Buffer holds the latest print snapshot of one security. Every publish
// builds a snapshot with its own backing array and only swaps the pointer
// under the lock, so a checked-out snapshot is immutable for as long as any
// reader holds it, no matter how many publishes happen meanwhile.
type Buffer struct {
	code string

	mu      sync.RWMutex
	current *models.Snapshot
	version uint64
	now     func() time.Time
}

// NewBuffer creates an empty buffer for one security code.
func NewBuffer(code string) *Buffer {
	return &Buffer{code: code, now: time.Now}
}

// Publish replaces the visible snapshot with a copy of prints and bumps the
// version. Snapshots handed out earlier are never written again. The copy is
// made outside the lock; the lock covers only the swap and version bump.
func (b *Buffer) Publish(prints []models.TradePrint) uint64 {
	snap := &models.Snapshot{
		Code:   b.code,
		Taken:  b.now(),
		Prints: append([]models.TradePrint(nil), prints...),
	}

	b.mu.Lock()
	b.version++
	snap.Version = b.version
	b.current = snap
	v := b.version
	b.mu.Unlock()
	return v
}

// Checkout hands out the current snapshot if it changed since lastSeen.
// When nothing changed the snapshot is nil and the caller skips its redraw.
// The returned snapshot must be treated as read-only.
func (b *Buffer) Checkout(lastSeen uint64) (uint64, *models.Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.version == lastSeen || b.version == 0 {
		return b.version, nil, false
	}
	return b.version, b.current, true
}

// Version returns the current published version without checking out.
func (b *Buffer) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Hub owns one Buffer per security code.
type Hub struct {
	mu      sync.RWMutex
	buffers map[string]*Buffer
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{buffers: make(map[string]*Buffer)}
}

// Get returns the buffer for code, creating it on first use.
func (h *Hub) Get(code string) *Buffer {
	h.mu.RLock()
	b, ok := h.buffers[code]
	h.mu.RUnlock()
	if ok {
		return b
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok = h.buffers[code]; ok {
		return b
	}
	b = NewBuffer(code)
	h.buffers[code] = b
	return b
}

// Lookup returns the buffer for code without creating one.
func (h *Hub) Lookup(code string) (*Buffer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.buffers[code]
	return b, ok
}

// Checkout checks out from the buffer for code, if one exists.
func (h *Hub) Checkout(code string, lastSeen uint64) (uint64, *models.Snapshot, bool) {
	b, ok := h.Lookup(code)
	if !ok {
		return 0, nil, false
	}
	return b.Checkout(lastSeen)
}

// Codes lists the codes with a buffer.
func (h *Hub) Codes() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.buffers))
	for code := range h.buffers {
		out = append(out, code)
	}
	return out
}
