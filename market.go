package clearing

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Clock carries the host's notion of time for one invocation.
type Clock struct {
	Now  int64  // unix seconds
	Slot uint64 // host execution slot
}

// AMM is the virtual automated market maker pricing a perp market. Trades
// move the constant-product reserves; the peg multiplier scales the reserve
// ratio into a quote price.
type AMM struct {
	BaseAssetReserve  decimal.Decimal `json:"base_asset_reserve"`
	QuoteAssetReserve decimal.Decimal `json:"quote_asset_reserve"`
	PegMultiplier     decimal.Decimal `json:"peg_multiplier"`

	BaseAssetAmountStepSize decimal.Decimal `json:"base_asset_amount_step_size"`

	// Freshness accounting. Fills are rejected unless the curve was updated
	// in the same slot, or curve updates are disabled entirely.
	LastUpdateSlot       uint64 `json:"last_update_slot"`
	CurveUpdateIntensity int    `json:"curve_update_intensity"`

	LastOraclePrice         decimal.Decimal `json:"last_oracle_price"`
	LastOracleMarkSpreadPct decimal.Decimal `json:"last_oracle_mark_spread_pct"`

	// Funding state
	CumulativeFundingRate decimal.Decimal `json:"cumulative_funding_rate"`
	LastFundingRate       decimal.Decimal `json:"last_funding_rate"`
	LastFundingRateTs     int64           `json:"last_funding_rate_ts"`
	FundingPeriod         int64           `json:"funding_period"`

	// Fee accumulators
	TotalFee                   decimal.Decimal `json:"total_fee"`
	TotalFeeMinusDistributions decimal.Decimal `json:"total_fee_minus_distributions"`
	NetRevenueSinceLastFunding decimal.Decimal `json:"net_revenue_since_last_funding"`
}

// MarkPrice is the AMM's current quoted price.
func (a *AMM) MarkPrice() (decimal.Decimal, error) {
	if a.BaseAssetReserve.Sign() <= 0 {
		return decimal.Zero, ErrMath
	}
	return a.QuoteAssetReserve.Div(a.BaseAssetReserve).Mul(a.PegMultiplier), nil
}

// invariant returns the constant product k of the reserves.
func (a *AMM) invariant() decimal.Decimal {
	return a.BaseAssetReserve.Mul(a.QuoteAssetReserve)
}

// swapBaseAssetAmount moves the reserves for a trade of baseAmount in the
// given direction and returns the quote asset amount exchanged. Long removes
// base from the reserve (trader buys), Short adds to it (trader sells).
func (a *AMM) swapBaseAssetAmount(baseAmount decimal.Decimal, direction PositionDirection) (decimal.Decimal, error) {
	if baseAmount.Sign() < 0 {
		return decimal.Zero, ErrMath
	}
	k := a.invariant()

	var newBase decimal.Decimal
	if direction == Long {
		newBase = a.BaseAssetReserve.Sub(baseAmount)
		if newBase.Sign() <= 0 {
			return decimal.Zero, ErrMath
		}
	} else {
		newBase = a.BaseAssetReserve.Add(baseAmount)
	}

	newQuote := k.Div(newBase)
	quoteDelta := newQuote.Sub(a.QuoteAssetReserve).Abs()

	a.BaseAssetReserve = newBase
	a.QuoteAssetReserve = newQuote

	return quoteDelta.Mul(a.PegMultiplier), nil
}

// swapQuoteAssetAmount moves the reserves for a trade worth quoteAmount and
// returns the base asset amount exchanged.
func (a *AMM) swapQuoteAssetAmount(quoteAmount decimal.Decimal, direction PositionDirection) (decimal.Decimal, error) {
	if quoteAmount.Sign() < 0 || a.PegMultiplier.Sign() <= 0 {
		return decimal.Zero, ErrMath
	}
	k := a.invariant()
	reserveDelta := quoteAmount.Div(a.PegMultiplier)

	var newQuote decimal.Decimal
	if direction == Long {
		// Trader pays quote in, base flows out.
		newQuote = a.QuoteAssetReserve.Add(reserveDelta)
	} else {
		newQuote = a.QuoteAssetReserve.Sub(reserveDelta)
		if newQuote.Sign() <= 0 {
			return decimal.Zero, ErrMath
		}
	}

	newBase := k.Div(newQuote)
	baseDelta := newBase.Sub(a.BaseAssetReserve).Abs()

	a.BaseAssetReserve = newBase
	a.QuoteAssetReserve = newQuote

	return baseDelta, nil
}

// Market is one perp market: the AMM curve plus record sequencing.
type Market struct {
	Index             uint64 `json:"index"`
	Initialized       bool   `json:"initialized"`
	AMM               AMM    `json:"amm"`
	NextTradeRecordID uint64 `json:"next_trade_record_id"`
}

// nextTradeRecordID returns the current trade record id and advances the
// counter.
func (m *Market) nextTradeRecordID() uint64 {
	id := m.NextTradeRecordID
	m.NextTradeRecordID++
	return id
}

// sqrtDecimal computes the square root of d. Used to solve the constant
// product curve for the reserve level at a target price.
func sqrtDecimal(d decimal.Decimal) (decimal.Decimal, error) {
	if d.Sign() < 0 {
		return decimal.Zero, ErrMath
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}
	f, ok := new(big.Float).SetPrec(192).SetString(d.String())
	if !ok {
		return decimal.Zero, ErrMath
	}
	root := new(big.Float).SetPrec(192).Sqrt(f)
	out, err := decimal.NewFromString(root.Text('f', 16))
	if err != nil {
		return decimal.Zero, ErrMath
	}
	return out, nil
}
