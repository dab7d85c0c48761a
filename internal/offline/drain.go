package offline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/IsaacDSC/eeudesk/internal/connectivity"
	"github.com/IsaacDSC/eeudesk/pkg/ctxlogger"
	"github.com/jonboulle/clockwork"
)

// ReplayFunc sends one queued write. A nil error means the endpoint accepted it.
type ReplayFunc func(ctx context.Context, item Item) error

type Report struct {
	// Skipped is set when another drain was already running or the signal was offline.
	Skipped   bool `json:"skipped"`
	Replayed  int  `json:"replayed"`
	Failed    int  `json:"failed"`
	Dropped   int  `json:"dropped"`
	Remaining int  `json:"remaining"`
}

type Drainer struct {
	queue       *Queue
	replay      ReplayFunc
	signal      connectivity.Signal
	maxAttempts int
	running     atomic.Bool
}

func NewDrainer(queue *Queue, replay ReplayFunc, signal connectivity.Signal, maxAttempts int) *Drainer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Drainer{
		queue:       queue,
		replay:      replay,
		signal:      signal,
		maxAttempts: maxAttempts,
	}
}

// Drain replays the queue front to back, one item at a time. Concurrent
// calls return immediately with Skipped set.
func (d *Drainer) Drain(ctx context.Context) Report {
	if !d.signal.Online() {
		return Report{Skipped: true, Remaining: d.queue.Len()}
	}

	if !d.running.CompareAndSwap(false, true) {
		return Report{Skipped: true, Remaining: d.queue.Len()}
	}
	defer d.running.Store(false)

	l := ctxlogger.GetLogger(ctx)
	var report Report

	for _, item := range d.queue.Items() {
		if ctx.Err() != nil || !d.signal.Online() {
			break
		}

		err := d.replay(ctx, item)
		if err == nil {
			if rmErr := d.queue.Remove(ctx, item.ID); rmErr != nil {
				l.Error("Replayed write could not be removed from queue", "item_id", item.ID, "error", rmErr)
			}
			report.Replayed++
			if item.TempID != "" {
				// the placeholder id is not mapped to the server id
				l.Info("Optimistic write synced", "item_id", item.ID, "temp_id", item.TempID, "endpoint", item.Endpoint)
			}
			continue
		}

		attempts, markErr := d.queue.MarkAttempt(ctx, item.ID)
		if markErr != nil {
			l.Error("Failed to record replay attempt", "item_id", item.ID, "error", markErr)
			continue
		}

		if attempts >= d.maxAttempts {
			if rmErr := d.queue.Remove(ctx, item.ID); rmErr != nil {
				l.Error("Failed to drop queued write", "item_id", item.ID, "error", rmErr)
				continue
			}
			report.Dropped++
			l.Warn("Dropped queued write after max attempts",
				"item_id", item.ID,
				"endpoint", item.Endpoint,
				"method", item.Method,
				"attempts", attempts,
				"error", err,
			)
			continue
		}

		report.Failed++
		l.Warn("Queued write replay failed", "item_id", item.ID, "attempts", attempts, "error", err)
	}

	report.Remaining = d.queue.Len()
	if report.Replayed+report.Failed+report.Dropped > 0 {
		l.Info("Offline queue drained",
			"replayed", report.Replayed,
			"failed", report.Failed,
			"dropped", report.Dropped,
			"remaining", report.Remaining,
		)
	}
	return report
}

// Syncer drains on every offline→online transition and on a fixed interval
// while online.
type Syncer struct {
	drainer  *Drainer
	signal   connectivity.Signal
	interval time.Duration
	clock    clockwork.Clock
}

func NewSyncer(drainer *Drainer, signal connectivity.Signal, interval time.Duration, clock clockwork.Clock) *Syncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Syncer{drainer: drainer, signal: signal, interval: interval, clock: clock}
}

// Run blocks until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	reconnected := make(chan struct{}, 1)
	unsubscribe := s.signal.Subscribe(func(online bool) {
		if !online {
			return
		}
		select {
		case reconnected <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	if s.signal.Online() && s.drainer.queue.Len() > 0 {
		s.drainer.Drain(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reconnected:
			ctxlogger.GetLogger(ctx).Info("Connectivity restored, draining offline queue", "pending", s.drainer.queue.Len())
			s.drainer.Drain(ctx)
		case <-ticker.Chan():
			if s.signal.Online() && s.drainer.queue.Len() > 0 {
				s.drainer.Drain(ctx)
			}
		}
	}
}
