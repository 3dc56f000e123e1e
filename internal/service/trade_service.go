// Package service orchestrates trade creation and queries. It is the only
// entry point that mutates trade state on behalf of external callers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

// Scheduler is the slice of the lifecycle scheduler the service needs:
// registering a future resolution.
type Scheduler interface {
	Schedule(tradeID string, resolveAt time.Time) error
}

// TradeService handles trade creation and the live/completed listings.
type TradeService struct {
	store     domain.TradeStore
	bus       domain.SignalBus
	scheduler Scheduler
	logger    *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(store domain.TradeStore, b domain.SignalBus, scheduler Scheduler, logger *slog.Logger) *TradeService {
	return &TradeService{
		store:     store,
		bus:       b,
		scheduler: scheduler,
		logger:    logger.With(slog.String("component", "trade_service")),
	}
}

// CreateTrade validates the request, persists a new live trade, announces it,
// and registers its resolution. If persistence fails nothing is scheduled or
// published. A scheduling failure is returned to the caller so the trade is
// never reported as successfully created while doomed to stay live.
func (s *TradeService) CreateTrade(ctx context.Context, req domain.TradeRequest) (domain.Trade, error) {
	if err := req.Validate(); err != nil {
		return domain.Trade{}, err
	}

	trade := domain.Trade{
		ID:         uuid.NewString(),
		Amount:     req.Amount,
		Direction:  req.Direction,
		ExpiryTime: req.ExpiryTime,
		Status:     domain.StatusLive,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.Create(ctx, trade); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: create trade: %w", err)
	}

	// NEW_TRADE goes out before the resolution is registered, so every
	// subscriber observes creation before this trade can ever complete.
	s.publish(ctx, domain.Event{Type: domain.EventNewTrade, Trade: trade})

	if err := s.scheduler.Schedule(trade.ID, trade.ResolveAt()); err != nil {
		// The row is already persisted; without a scheduled resolution it
		// would stay live forever, so creation must be reported as failed.
		s.logger.ErrorContext(ctx, "trade persisted but resolution not scheduled",
			slog.String("trade_id", trade.ID),
			slog.String("error", err.Error()),
		)
		return domain.Trade{}, fmt.Errorf("trade_service: schedule resolution for %s: %w", trade.ID, err)
	}

	s.logger.InfoContext(ctx, "trade placed",
		slog.String("trade_id", trade.ID),
		slog.Float64("amount", trade.Amount),
		slog.String("direction", string(trade.Direction)),
		slog.Int64("expiry_seconds", trade.ExpiryTime),
	)

	return trade, nil
}

// ListLive returns all live trades, most recently created first. An empty
// result is a normal outcome, not an error.
func (s *TradeService) ListLive(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.store.ListByStatus(ctx, domain.StatusLive, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list live: %w", err)
	}
	return trades, nil
}

// ListCompletedLog returns all completed trades, most recently created first.
func (s *TradeService) ListCompletedLog(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.store.ListByStatus(ctx, domain.StatusCompleted, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list completed: %w", err)
	}
	return trades, nil
}

// publish broadcasts an event, best-effort. Delivery failures never fail the
// request path.
func (s *TradeService) publish(ctx context.Context, evt domain.Event) {
	payload, err := evt.Encode()
	if err != nil {
		s.logger.ErrorContext(ctx, "encode event failed",
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, domain.TradeChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("type", string(evt.Type)),
			slog.String("trade_id", evt.Trade.ID),
			slog.String("error", err.Error()),
		)
	}
}
