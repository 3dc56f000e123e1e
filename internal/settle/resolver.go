// Package settle owns the trade lifecycle: deciding outcomes and driving the
// live → completed transition when a trade's expiry elapses.
package settle

import (
	"hash/fnv"
	"math/rand"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

// Resolver decides the outcome of a trade at expiry. Implementations must be
// pure functions of the trade itself: no I/O, no shared state, same trade in,
// same outcome out. That keeps the scheduler free to call it at any point
// (including a duplicate fire) without changing the result.
type Resolver interface {
	Resolve(trade domain.Trade) domain.Outcome
}

// CoinFlip is the default Resolver: a weighted coin whose draw is derived
// deterministically from the trade ID. A real settlement rule (open price vs.
// close price) slots in behind the Resolver interface without touching the
// scheduler.
type CoinFlip struct {
	winProbability float64
}

// NewCoinFlip creates a CoinFlip resolver. Probabilities outside (0, 1) fall
// back to a fair coin.
func NewCoinFlip(winProbability float64) *CoinFlip {
	if winProbability <= 0 || winProbability >= 1 {
		winProbability = 0.5
	}
	return &CoinFlip{winProbability: winProbability}
}

// Resolve hashes the trade ID into a seed and draws once. The same trade
// always resolves the same way.
func (r *CoinFlip) Resolve(trade domain.Trade) domain.Outcome {
	h := fnv.New64a()
	h.Write([]byte(trade.ID))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	if rng.Float64() < r.winProbability {
		return domain.OutcomeWon
	}
	return domain.OutcomeLost
}
