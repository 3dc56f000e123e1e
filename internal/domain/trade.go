// Package domain defines the core entities, enums, and interfaces of the
// trade API. Store and bus implementations live in their own packages and
// depend on this one, never the other way around.
package domain

import "time"

// Direction is the side of a binary position.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// TradeStatus tracks the trade lifecycle. A trade starts live and transitions
// exactly once to completed; there is no other state.
type TradeStatus string

const (
	StatusLive      TradeStatus = "live"
	StatusCompleted TradeStatus = "completed"
)

// Outcome is the result of a resolved trade. It is empty while the trade is
// live and set atomically with the completed transition.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// Trade represents a single binary-outcome position: an amount staked on a
// direction, resolved to won or lost once the expiry window elapses.
type Trade struct {
	ID          string      `json:"id"`
	Amount      float64     `json:"amount"`
	Direction   Direction   `json:"direction"`
	ExpiryTime  int64       `json:"expiryTime"` // duration in whole seconds
	Status      TradeStatus `json:"status"`
	Outcome     Outcome     `json:"outcome,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// ResolveAt returns the earliest instant at which the trade may be resolved.
func (t Trade) ResolveAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ExpiryTime) * time.Second)
}

// TradeRequest carries the caller-supplied parameters for a new trade.
type TradeRequest struct {
	Amount     float64   `json:"amount"`
	Direction  Direction `json:"direction"`
	ExpiryTime int64     `json:"expiryTime"`
}

// Validate checks that the request is well-formed. It returns a
// *ValidationError naming the first offending field.
func (r TradeRequest) Validate() error {
	if r.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	switch r.Direction {
	case DirectionUp, DirectionDown:
	default:
		return &ValidationError{Field: "direction", Reason: `must be "up" or "down"`}
	}
	if r.ExpiryTime <= 0 {
		return &ValidationError{Field: "expiryTime", Reason: "must be a positive number of seconds"}
	}
	return nil
}
