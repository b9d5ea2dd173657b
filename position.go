package clearing

import "github.com/shopspring/decimal"

// positionDelta is the outcome of applying one fill to a position.
type positionDelta struct {
	RiskIncreasing     bool
	ReduceOnly         bool // the fill only shed exposure
	BaseAssetAmount    decimal.Decimal
	QuoteAssetAmount   decimal.Decimal
	QuoteAssetSurplus  decimal.Decimal
	PnL                decimal.Decimal
}

// updatePositionWithBaseAssetAmount swaps baseAssetAmount against the AMM
// curve and books the result into the position. When makerLimitPrice is set
// the trader executes at their own price and the difference left on the
// curve becomes quote surplus for the market.
func updatePositionWithBaseAssetAmount(
	baseAssetAmount decimal.Decimal,
	direction PositionDirection,
	market *Market,
	user *User,
	positionIndex int,
	makerLimitPrice *decimal.Decimal,
) (positionDelta, error) {
	ammQuote, err := market.AMM.swapBaseAssetAmount(baseAssetAmount, direction)
	if err != nil {
		return positionDelta{}, err
	}

	quote := ammQuote
	surplus := decimal.Zero
	if makerLimitPrice != nil {
		quote = baseAssetAmount.Mul(*makerLimitPrice)
		// A maker long pays its limit, above the curve cost; a maker short
		// receives its limit, below the curve proceeds. The gap stays with
		// the market.
		if direction == Long {
			surplus = quote.Sub(ammQuote)
		} else {
			surplus = ammQuote.Sub(quote)
		}
		if surplus.IsNegative() {
			surplus = decimal.Zero
		}
	}

	delta, err := applyPositionDelta(&user.Positions[positionIndex], market, baseAssetAmount, quote, direction)
	if err != nil {
		return positionDelta{}, err
	}
	delta.QuoteAssetSurplus = surplus
	return delta, nil
}

// updatePositionWithQuoteAssetAmount swaps quoteAssetAmount worth of base
// against the AMM curve and books the result into the position. Used for
// market orders sized in quote currency.
func updatePositionWithQuoteAssetAmount(
	quoteAssetAmount decimal.Decimal,
	direction PositionDirection,
	market *Market,
	user *User,
	positionIndex int,
) (positionDelta, error) {
	baseOut, err := market.AMM.swapQuoteAssetAmount(quoteAssetAmount, direction)
	if err != nil {
		return positionDelta{}, err
	}
	return applyPositionDelta(&user.Positions[positionIndex], market, baseOut, quoteAssetAmount, direction)
}

// applyPositionDelta books a fill of base/quote in direction into the
// position: increase, reduce, or flip. Realized PnL comes from the
// proportional cost basis of the exposure shed.
func applyPositionDelta(pos *Position, market *Market, base, quote decimal.Decimal, direction PositionDirection) (positionDelta, error) {
	delta := positionDelta{
		BaseAssetAmount:  base,
		QuoteAssetAmount: quote,
	}

	signedBase := base
	if direction == Short {
		signedBase = base.Neg()
	}

	oldBase := pos.BaseAssetAmount
	newBase := oldBase.Add(signedBase)

	switch {
	case oldBase.IsZero() || !positionDirectionOpposes(oldBase, direction):
		// Opening or growing exposure.
		if oldBase.IsZero() {
			pos.LastCumulativeFundingRate = market.AMM.CumulativeFundingRate
		}
		pos.BaseAssetAmount = newBase
		pos.QuoteAssetAmount = pos.QuoteAssetAmount.Add(quote)
		delta.RiskIncreasing = true

	case base.LessThanOrEqual(oldBase.Abs()):
		// Shedding exposure, possibly to flat.
		if oldBase.Abs().IsZero() {
			return positionDelta{}, ErrMath
		}
		proportion := base.Div(oldBase.Abs())
		costReduced := pos.QuoteAssetAmount.Mul(proportion)
		if oldBase.Sign() > 0 {
			delta.PnL = quote.Sub(costReduced)
		} else {
			delta.PnL = costReduced.Sub(quote)
		}
		pos.BaseAssetAmount = newBase
		pos.QuoteAssetAmount = pos.QuoteAssetAmount.Sub(costReduced)
		if pos.BaseAssetAmount.IsZero() {
			pos.QuoteAssetAmount = decimal.Zero
		}
		delta.ReduceOnly = true

	default:
		// Closing through zero and opening on the other side.
		closeFraction := oldBase.Abs().Div(base)
		quoteClose := quote.Mul(closeFraction)
		quoteOpen := quote.Sub(quoteClose)
		if oldBase.Sign() > 0 {
			delta.PnL = quoteClose.Sub(pos.QuoteAssetAmount)
		} else {
			delta.PnL = pos.QuoteAssetAmount.Sub(quoteClose)
		}
		pos.BaseAssetAmount = newBase
		pos.QuoteAssetAmount = quoteOpen
		pos.LastCumulativeFundingRate = market.AMM.CumulativeFundingRate
		delta.RiskIncreasing = true
	}

	return delta, nil
}

// updateUnsettledPnL folds realized PnL (or a fee debit) into the position.
func updateUnsettledPnL(pos *Position, pnl decimal.Decimal) {
	pos.UnsettledPnL = pos.UnsettledPnL.Add(pnl)
}

// calculateBaseAssetAmountForReduceOnlyOrder clamps a reduce-only order so
// it can never increase or flip the trader's net exposure.
func calculateBaseAssetAmountForReduceOnlyOrder(
	orderBaseAssetAmount decimal.Decimal,
	direction PositionDirection,
	existingPosition decimal.Decimal,
) decimal.Decimal {
	if !positionDirectionOpposes(existingPosition, direction) {
		return decimal.Zero
	}
	return decimal.Min(orderBaseAssetAmount, existingPosition.Abs())
}
