package domain

import (
	"context"
	"encoding/json"
)

// TradeChannel is the bus channel all trade lifecycle events are published on.
const TradeChannel = "trades"

// EventType identifies a trade lifecycle event.
type EventType string

const (
	EventNewTrade       EventType = "NEW_TRADE"
	EventTradeCompleted EventType = "TRADE_COMPLETED"
)

// Event is the envelope pushed to every connected WebSocket client. It always
// carries the full trade record.
type Event struct {
	Type  EventType `json:"type"`
	Trade Trade     `json:"trade"`
}

// Encode serializes the event to its wire form.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// SignalBus distributes serialized event payloads between publishers and
// subscribers. The in-process implementation serves single-process
// deployments; the Redis implementation fans events out across processes.
// For any one subscriber, payloads arrive in publish order.
type SignalBus interface {
	// Publish sends a payload to all current subscribers of the channel.
	// Delivery is best-effort; a slow or gone subscriber never fails the
	// publisher.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a read-only channel of payloads published after the
	// call. The channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
