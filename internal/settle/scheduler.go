package settle

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

// maxIdleWait bounds how long the worker sleeps with an empty queue, so a
// missed wakeup can never stall resolution for more than one interval.
const maxIdleWait = time.Minute

// entry is a pending resolution in the expiry queue.
type entry struct {
	tradeID   string
	resolveAt time.Time
}

// expiryQueue is a min-heap of pending resolutions ordered by resolve time.
// One heap drained by one worker loop scales to large live-trade counts
// better than a timer per trade.
type expiryQueue []entry

func (q expiryQueue) Len() int            { return len(q) }
func (q expiryQueue) Less(i, j int) bool  { return q[i].resolveAt.Before(q[j].resolveAt) }
func (q expiryQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *expiryQueue) Push(x any)         { *q = append(*q, x.(entry)) }
func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// Scheduler turns a (tradeID, resolveAt) pair into a guaranteed future
// resolution: at expiry it asks the Resolver for an outcome, issues the
// single conditional completion update against the store, and publishes
// TRADE_COMPLETED only when that update won.
//
// The queue lives in process memory only; a restart loses it. Recover
// rebuilds it at startup from the store's live trades.
type Scheduler struct {
	store    domain.TradeStore
	resolver Resolver
	bus      domain.SignalBus
	logger   *slog.Logger

	mu      sync.Mutex
	queue   expiryQueue
	stopped bool

	wake chan struct{}
}

// NewScheduler creates a Scheduler. Run must be called before scheduled
// trades resolve.
func NewScheduler(store domain.TradeStore, resolver Resolver, bus domain.SignalBus, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		resolver: resolver,
		bus:      bus,
		logger:   logger.With(slog.String("component", "scheduler")),
		wake:     make(chan struct{}, 1),
	}
}

// Schedule registers a one-shot resolution firing no earlier than resolveAt.
// It never blocks on the resolution itself and returns immediately. After the
// scheduler has shut down it returns domain.ErrSchedulerStopped, since a
// silently unscheduled trade would stay live forever.
func (s *Scheduler) Schedule(tradeID string, resolveAt time.Time) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return domain.ErrSchedulerStopped
	}
	heap.Push(&s.queue, entry{tradeID: tradeID, resolveAt: resolveAt})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Recover re-schedules every live trade in the store. Trades whose expiry has
// already elapsed resolve on the next worker pass. It returns the number of
// trades recovered.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	live, err := s.store.ListByStatus(ctx, domain.StatusLive, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("settle: list live trades for recovery: %w", err)
	}

	for _, t := range live {
		if err := s.Schedule(t.ID, t.ResolveAt()); err != nil {
			return 0, fmt.Errorf("settle: recover trade %s: %w", t.ID, err)
		}
	}

	if len(live) > 0 {
		s.logger.InfoContext(ctx, "recovered pending resolutions",
			slog.Int("count", len(live)),
		)
	}
	return len(live), nil
}

// Run drains the expiry queue until ctx is cancelled. Due trades resolve in
// their own goroutines so one slow store round-trip never delays the next
// expiry. It should be called in a goroutine and returns ctx.Err() on
// shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(maxIdleWait)
	defer timer.Stop()

	for {
		now := time.Now()
		var due []entry

		s.mu.Lock()
		for len(s.queue) > 0 && !s.queue[0].resolveAt.After(now) {
			due = append(due, heap.Pop(&s.queue).(entry))
		}
		wait := maxIdleWait
		if len(s.queue) > 0 {
			if d := time.Until(s.queue[0].resolveAt); d < wait {
				wait = d
			}
		}
		s.mu.Unlock()

		for _, e := range due {
			go s.resolve(ctx, e.tradeID)
		}

		if wait < 0 {
			wait = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// resolve settles a single trade. A trade that vanished or was settled by an
// earlier fire is a silent no-op: no event, no error. A store failure leaves
// the trade live and is logged; there is no retry here, the operator (or a
// restart's Recover pass) picks it up.
func (s *Scheduler) resolve(ctx context.Context, tradeID string) {
	trade, err := s.store.GetByID(ctx, tradeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		s.logger.ErrorContext(ctx, "load trade for resolution failed, trade remains live",
			slog.String("trade_id", tradeID),
			slog.String("error", err.Error()),
		)
		return
	}
	if trade.Status == domain.StatusCompleted {
		return
	}

	outcome := s.resolver.Resolve(trade)

	completed, err := s.store.Complete(ctx, tradeID, outcome, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) || errors.Is(err, domain.ErrNotFound) {
			return
		}
		s.logger.ErrorContext(ctx, "completion update failed, trade remains live",
			slog.String("trade_id", tradeID),
			slog.String("error", err.Error()),
		)
		return
	}

	payload, err := domain.Event{Type: domain.EventTradeCompleted, Trade: completed}.Encode()
	if err != nil {
		s.logger.ErrorContext(ctx, "encode completion event failed",
			slog.String("trade_id", tradeID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, domain.TradeChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish completion event failed",
			slog.String("trade_id", tradeID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "trade completed",
		slog.String("trade_id", tradeID),
		slog.String("outcome", string(outcome)),
	)
}
