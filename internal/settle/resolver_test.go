package settle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

func TestCoinFlipIsDeterministicPerTrade(t *testing.T) {
	r := NewCoinFlip(0.5)
	trade := domain.Trade{ID: "d7f3a1b2", Amount: 100, Direction: domain.DirectionUp}

	first := r.Resolve(trade)
	require.Contains(t, []domain.Outcome{domain.OutcomeWon, domain.OutcomeLost}, first)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve(trade), "same trade must always resolve the same way")
	}
}

func TestCoinFlipIsRoughlyFair(t *testing.T) {
	r := NewCoinFlip(0.5)

	won := 0
	const n = 2000
	for i := 0; i < n; i++ {
		trade := domain.Trade{ID: fmt.Sprintf("trade-%d", i)}
		if r.Resolve(trade) == domain.OutcomeWon {
			won++
		}
	}

	// A fair coin over 2000 distinct trades lands well inside 40..60%.
	assert.Greater(t, won, n*40/100)
	assert.Less(t, won, n*60/100)
}

func TestCoinFlipRespectsWeighting(t *testing.T) {
	heavy := NewCoinFlip(0.9)

	won := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if heavy.Resolve(domain.Trade{ID: fmt.Sprintf("w-%d", i)}) == domain.OutcomeWon {
			won++
		}
	}
	assert.Greater(t, won, n*80/100)
}

func TestCoinFlipClampsBadProbability(t *testing.T) {
	for _, p := range []float64{-1, 0, 1, 2} {
		r := NewCoinFlip(p)
		assert.Equal(t, 0.5, r.winProbability, "probability %g should fall back to a fair coin", p)
	}
}
