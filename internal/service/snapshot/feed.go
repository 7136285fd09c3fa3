package snapshot

import (
	"context"
	"sync/atomic"
	"time"

	"TapeWatch/internal/domain/models"
)

// RenderFunc consumes one checked-out snapshot. It may be slow (chart
// drawing, serialization for push); the feed never blocks the producer on it.
// The snapshot is read-only and only valid for the duration of the call.
type RenderFunc func(ctx context.Context, snap *models.Snapshot)

// Feed polls a buffer and invokes the renderer when the snapshot changed.
// If a render is still in progress when the next poll fires, that poll is
// dropped rather than queued, so a slow consumer sees the freshest snapshot
// on its next turn instead of working through a backlog.
type Feed struct {
	buf      *Buffer
	interval time.Duration
	render   RenderFunc

	lastSeen  uint64
	rendering atomic.Bool
}

// NewFeed creates a feed over buf that polls at the given interval.
func NewFeed(buf *Buffer, interval time.Duration, render RenderFunc) *Feed {
	return &Feed{buf: buf, interval: interval, render: render}
}

// Run polls until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Poll(ctx)
		}
	}
}

// Poll performs one checkout-and-render pass. Returns true if a render was
// started, false when the snapshot was unchanged or a render is in flight.
func (f *Feed) Poll(ctx context.Context) bool {
	if f.rendering.Load() {
		return false
	}
	version, snap, changed := f.buf.Checkout(f.lastSeen)
	if !changed {
		return false
	}
	f.lastSeen = version
	f.rendering.Store(true)
	go func() {
		defer f.rendering.Store(false)
		f.render(ctx, snap)
	}()
	return true
}
