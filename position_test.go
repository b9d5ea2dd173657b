package clearing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApplyPositionDeltaOpen(t *testing.T) {
	market := newTestMarket()
	market.AMM.CumulativeFundingRate = decimal.NewFromInt(3)
	pos := &Position{MarketIndex: 0}

	delta, err := applyPositionDelta(pos, market, decimal.NewFromInt(10), decimal.NewFromInt(505), Long)
	assert.NoError(t, err)
	assert.True(t, delta.RiskIncreasing)
	assert.True(t, pos.BaseAssetAmount.Equal(decimal.NewFromInt(10)))
	assert.True(t, pos.QuoteAssetAmount.Equal(decimal.NewFromInt(505)))
	// Opening from flat adopts the market's cumulative funding rate.
	assert.True(t, pos.LastCumulativeFundingRate.Equal(decimal.NewFromInt(3)))
}

func TestApplyPositionDeltaReduceRealizesPnL(t *testing.T) {
	market := newTestMarket()
	pos := &Position{
		MarketIndex:      0,
		BaseAssetAmount:  decimal.NewFromInt(10),
		QuoteAssetAmount: decimal.NewFromInt(500),
	}

	// Sell half at a better price: proceeds 300 against cost basis 250.
	delta, err := applyPositionDelta(pos, market, decimal.NewFromInt(5), decimal.NewFromInt(300), Short)
	assert.NoError(t, err)
	assert.True(t, delta.ReduceOnly)
	assert.False(t, delta.RiskIncreasing)
	assert.True(t, delta.PnL.Equal(decimal.NewFromInt(50)))
	assert.True(t, pos.BaseAssetAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, pos.QuoteAssetAmount.Equal(decimal.NewFromInt(250)))
}

func TestApplyPositionDeltaCloseToFlat(t *testing.T) {
	market := newTestMarket()
	pos := &Position{
		MarketIndex:      0,
		BaseAssetAmount:  decimal.NewFromInt(-10),
		QuoteAssetAmount: decimal.NewFromInt(500),
	}

	// Buy back the short for less than it sold for.
	delta, err := applyPositionDelta(pos, market, decimal.NewFromInt(10), decimal.NewFromInt(450), Long)
	assert.NoError(t, err)
	assert.True(t, delta.PnL.Equal(decimal.NewFromInt(50)))
	assert.True(t, pos.BaseAssetAmount.IsZero())
	assert.True(t, pos.QuoteAssetAmount.IsZero())
}

func TestApplyPositionDeltaFlip(t *testing.T) {
	market := newTestMarket()
	market.AMM.CumulativeFundingRate = decimal.NewFromInt(7)
	pos := &Position{
		MarketIndex:      0,
		BaseAssetAmount:  decimal.NewFromInt(4),
		QuoteAssetAmount: decimal.NewFromInt(200),
	}

	// Sell 10: close the 4-long, open a 6-short.
	delta, err := applyPositionDelta(pos, market, decimal.NewFromInt(10), decimal.NewFromInt(500), Short)
	assert.NoError(t, err)
	assert.True(t, delta.RiskIncreasing)
	assert.True(t, pos.BaseAssetAmount.Equal(decimal.NewFromInt(-6)))
	// 4/10 of the proceeds close the long: 200 against cost 200, flat PnL.
	assert.True(t, delta.PnL.IsZero())
	assert.True(t, pos.QuoteAssetAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, pos.LastCumulativeFundingRate.Equal(decimal.NewFromInt(7)))
}

func TestReduceOnlyClamp(t *testing.T) {
	// Same-direction intent never reduces.
	got := calculateBaseAssetAmountForReduceOnlyOrder(decimal.NewFromInt(5), Long, decimal.NewFromInt(10))
	assert.True(t, got.IsZero())

	// Opposing intent is capped at the exposure.
	got = calculateBaseAssetAmountForReduceOnlyOrder(decimal.NewFromInt(50), Short, decimal.NewFromInt(10))
	assert.True(t, got.Equal(decimal.NewFromInt(10)))

	got = calculateBaseAssetAmountForReduceOnlyOrder(decimal.NewFromInt(5), Long, decimal.NewFromInt(-10))
	assert.True(t, got.Equal(decimal.NewFromInt(5)))

	// Flat positions have nothing to reduce.
	got = calculateBaseAssetAmountForReduceOnlyOrder(decimal.NewFromInt(5), Long, decimal.Zero)
	assert.True(t, got.IsZero())
}

func TestWorstCaseBaseAssetAmount(t *testing.T) {
	pos := &Position{
		BaseAssetAmount: decimal.NewFromInt(5),
		OpenBids:        decimal.NewFromInt(3),
		OpenAsks:        decimal.NewFromInt(10),
	}
	// All asks filling leaves -5, worse than all bids filling at +8.
	assert.True(t, pos.WorstCaseBaseAssetAmount().Equal(decimal.NewFromInt(8)))

	pos.OpenAsks = decimal.NewFromInt(20)
	assert.True(t, pos.WorstCaseBaseAssetAmount().Equal(decimal.NewFromInt(-15)))
}

func TestMakerSurplus(t *testing.T) {
	market := newTestMarket()
	user := NewUser(decimal.NewFromInt(100000))
	idx, err := user.addNewPosition(0)
	assert.NoError(t, err)

	limit := decimal.NewFromInt(55)
	delta, err := updatePositionWithBaseAssetAmount(decimal.NewFromInt(10), Long, market, user, idx, &limit)
	assert.NoError(t, err)

	// The maker pays 550 while the curve only cost about 505.
	assert.True(t, delta.QuoteAssetAmount.Equal(decimal.NewFromInt(550)))
	assert.True(t, delta.QuoteAssetSurplus.GreaterThan(decimal.NewFromInt(44)))
	assert.True(t, delta.QuoteAssetSurplus.LessThan(decimal.NewFromInt(45)))
}
