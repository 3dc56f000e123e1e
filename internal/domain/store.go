package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries. A zero Limit means no limit.
type ListOpts struct {
	Limit  int
	Offset int
}

// TradeStore persists trades. The store is the single source of truth for
// trade state; Complete is the only mutation after creation.
type TradeStore interface {
	Create(ctx context.Context, trade Trade) error
	GetByID(ctx context.Context, id string) (Trade, error)

	// ListByStatus returns trades in the given status, most recently created
	// first. An empty result is not an error.
	ListByStatus(ctx context.Context, status TradeStatus, opts ListOpts) ([]Trade, error)

	// Complete transitions a trade from live to completed, setting the outcome
	// and completion time in the same conditional update. It returns the
	// updated trade, ErrAlreadyCompleted if the trade was resolved before, or
	// ErrNotFound if no such trade exists. The guard on the current status is
	// what makes resolution at-most-once under duplicate firing.
	Complete(ctx context.Context, id string, outcome Outcome, completedAt time.Time) (Trade, error)

	// ListCompletedBefore returns completed trades whose completion time is
	// strictly before the cutoff, oldest first. Used by the archiver.
	ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]Trade, error)

	// DeleteCompletedBefore prunes completed trades older than the cutoff and
	// returns the number removed. Live trades are never touched.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
