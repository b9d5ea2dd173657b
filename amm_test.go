package clearing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMarkPrice(t *testing.T) {
	market := newTestMarket()
	mark, err := market.AMM.MarkPrice()
	assert.NoError(t, err)
	assert.True(t, mark.Equal(decimal.NewFromInt(50)))

	market.AMM.BaseAssetReserve = decimal.Zero
	_, err = market.AMM.MarkPrice()
	assert.ErrorIs(t, err, ErrMath)
}

func TestSwapBaseAssetAmountPreservesInvariant(t *testing.T) {
	market := newTestMarket()
	before := market.AMM.invariant()

	quote, err := market.AMM.swapBaseAssetAmount(decimal.NewFromInt(10), Long)
	assert.NoError(t, err)
	assert.True(t, quote.GreaterThan(decimal.Zero))
	assert.True(t, market.AMM.BaseAssetReserve.Equal(decimal.NewFromInt(990)))

	after := market.AMM.invariant()
	assert.True(t, before.Sub(after).Abs().LessThan(decimal.RequireFromString("0.001")))

	// Longs pay a rising price, so buying costs more than selling returns.
	market2 := newTestMarket()
	quoteShort, err := market2.AMM.swapBaseAssetAmount(decimal.NewFromInt(10), Short)
	assert.NoError(t, err)
	assert.True(t, quote.GreaterThan(quoteShort))
}

func TestSwapBaseAssetAmountDrainsReserve(t *testing.T) {
	market := newTestMarket()
	_, err := market.AMM.swapBaseAssetAmount(decimal.NewFromInt(1000), Long)
	assert.ErrorIs(t, err, ErrMath)
}

func TestSwapQuoteAssetAmount(t *testing.T) {
	market := newTestMarket()
	base, err := market.AMM.swapQuoteAssetAmount(decimal.NewFromInt(500), Long)
	assert.NoError(t, err)
	assert.True(t, base.GreaterThan(decimal.Zero))
	// 500 quote at a price rising from 50 buys a bit under 10 units.
	assert.True(t, base.LessThan(decimal.NewFromInt(10)))
	assert.True(t, base.GreaterThan(decimal.NewFromInt(9)))
}

func TestOracleMarkSpreadPct(t *testing.T) {
	spread, err := calculateOracleMarkSpreadPct(decimal.NewFromInt(55), decimal.NewFromInt(50))
	assert.NoError(t, err)
	assert.True(t, spread.Equal(decimal.RequireFromString("0.1")))

	_, err = calculateOracleMarkSpreadPct(decimal.NewFromInt(55), decimal.Zero)
	assert.ErrorIs(t, err, ErrMath)

	rails := PriceDivergenceGuardRails{MarkOracleDivergence: decimal.RequireFromString("0.1")}
	assert.True(t, isOracleMarkTooDivergent(spread, rails))
	assert.True(t, isOracleMarkTooDivergent(spread.Neg(), rails))
	assert.False(t, isOracleMarkTooDivergent(decimal.RequireFromString("0.05"), rails))
}

func TestLimitPriceSatisfied(t *testing.T) {
	// Average price 50.5 on a fill of 10 for 505.
	ok, err := limitPriceSatisfied(decimal.NewFromInt(55), decimal.NewFromInt(505), decimal.NewFromInt(10), Long)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = limitPriceSatisfied(decimal.NewFromInt(50), decimal.NewFromInt(505), decimal.NewFromInt(10), Long)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = limitPriceSatisfied(decimal.NewFromInt(50), decimal.NewFromInt(505), decimal.NewFromInt(10), Short)
	assert.NoError(t, err)
	assert.True(t, ok)

	_, err = limitPriceSatisfied(decimal.NewFromInt(50), decimal.NewFromInt(505), decimal.Zero, Long)
	assert.ErrorIs(t, err, ErrMath)
}

func TestBaseAssetAmountToTradeForLimit(t *testing.T) {
	market := newTestMarket()

	// Long toward a limit above the mark has room; the curve lands on the
	// limit price after trading it.
	tradeable, err := calculateBaseAssetAmountToTradeForLimit(&market.AMM, decimal.NewFromInt(55), Long)
	assert.NoError(t, err)
	assert.True(t, tradeable.GreaterThan(decimal.NewFromInt(46)))
	assert.True(t, tradeable.LessThan(decimal.NewFromInt(47)))

	_, err = market.AMM.swapBaseAssetAmount(tradeable, Long)
	assert.NoError(t, err)
	mark, _ := market.AMM.MarkPrice()
	assert.True(t, mark.Sub(decimal.NewFromInt(55)).Abs().LessThan(decimal.RequireFromString("0.001")))

	// A long limit below the mark has no room.
	market2 := newTestMarket()
	tradeable, err = calculateBaseAssetAmountToTradeForLimit(&market2.AMM, decimal.NewFromInt(45), Long)
	assert.NoError(t, err)
	assert.True(t, tradeable.IsZero())

	// A short limit below the mark has room.
	tradeable, err = calculateBaseAssetAmountToTradeForLimit(&market2.AMM, decimal.NewFromInt(45), Short)
	assert.NoError(t, err)
	assert.True(t, tradeable.GreaterThan(decimal.Zero))
}

func TestStandardizeBaseAssetAmount(t *testing.T) {
	step := decimal.RequireFromString("0.5")

	got, err := StandardizeBaseAssetAmount(decimal.RequireFromString("2.7"), step)
	assert.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("2.5")))

	got, err = StandardizeBaseAssetAmount(decimal.RequireFromString("0.4"), step)
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = StandardizeBaseAssetAmount(decimal.NewFromInt(1), decimal.Zero)
	assert.ErrorIs(t, err, ErrMath)
}

func TestSqrtDecimal(t *testing.T) {
	got, err := sqrtDecimal(decimal.NewFromInt(9))
	assert.NoError(t, err)
	assert.True(t, got.Sub(decimal.NewFromInt(3)).Abs().LessThan(decimal.RequireFromString("0.0000001")))

	got, err = sqrtDecimal(decimal.Zero)
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = sqrtDecimal(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrMath)
}
