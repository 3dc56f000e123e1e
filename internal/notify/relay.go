package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

// Relay subscribes to the trade event channel and forwards each event to the
// Notifier. It is just another bus subscriber: losing a notification never
// affects WebSocket delivery or the trade lifecycle.
type Relay struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewRelay creates a Relay bridging the signal bus to the notifier.
func NewRelay(b domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Relay {
	return &Relay{
		bus:      b,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_relay")),
	}
}

// Run consumes trade events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	events, err := r.bus.Subscribe(ctx, domain.TradeChannel)
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}

	for payload := range events {
		var evt domain.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			r.logger.WarnContext(ctx, "undecodable event payload",
				slog.String("error", err.Error()),
			)
			continue
		}

		title, message := describe(evt)
		if err := r.notifier.Notify(ctx, strings.ToLower(string(evt.Type)), title, message); err != nil {
			r.logger.WarnContext(ctx, "notification failed",
				slog.String("trade_id", evt.Trade.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return ctx.Err()
}

// describe renders a trade event as a human-readable notification.
func describe(evt domain.Event) (title, message string) {
	t := evt.Trade
	switch evt.Type {
	case domain.EventTradeCompleted:
		return "Trade completed",
			fmt.Sprintf("%s: %.2f %s resolved %s", t.ID, t.Amount, t.Direction, t.Outcome)
	default:
		return "New trade",
			fmt.Sprintf("%s: %.2f %s, expires in %ds", t.ID, t.Amount, t.Direction, t.ExpiryTime)
	}
}
