package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/pscheid92/liveshop/internal/platform/correlation"
)

const DefaultPublishInterval = 250 * time.Millisecond

type snapshotSource interface {
	Snapshot() domain.ShowSnapshot
	Subscribe(fn func()) (unsubscribe func())
}

// SnapshotTicker publishes the show snapshot at most once per interval, and
// only when something changed since the last publish.
type SnapshotTicker struct {
	source    snapshotSource
	publisher domain.SnapshotPublisher
	clock     clockwork.Clock
	interval  time.Duration
	metrics   *metrics.WebSocketMetrics

	dirty atomic.Bool
}

func NewSnapshotTicker(source snapshotSource, publisher domain.SnapshotPublisher, clock clockwork.Clock, interval time.Duration, m *metrics.WebSocketMetrics) *SnapshotTicker {
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	return &SnapshotTicker{
		source:    source,
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		metrics:   m,
	}
}

// Run blocks until ctx is cancelled. The first tick always publishes.
func (t *SnapshotTicker) Run(ctx context.Context) {
	unsubscribe := t.source.Subscribe(func() { t.dirty.Store(true) })
	defer unsubscribe()
	t.dirty.Store(true)

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if t.dirty.Swap(false) {
				t.publish(ctx)
			}
		}
	}
}

func (t *SnapshotTicker) publish(ctx context.Context) {
	tickCtx := correlation.WithID(ctx, correlation.NewID())
	snap := t.source.Snapshot()

	if err := t.publisher.PublishSnapshot(tickCtx, snap); err != nil {
		t.metrics.PublishErrors.Inc()
		t.dirty.Store(true)
		slog.WarnContext(tickCtx, "Ticker: publish failed", "show_id", snap.ShowID, "error", err)
		return
	}

	t.metrics.SnapshotsPublished.Inc()
	slog.DebugContext(tickCtx, "Ticker: published snapshot", "show_id", snap.ShowID, "overlay", snap.Overlay.Status, "viewers", snap.Viewers)
}
