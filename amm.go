package clearing

import "github.com/shopspring/decimal"

// calculateOracleMarkSpreadPct returns (mark - oracle) / oracle.
func calculateOracleMarkSpreadPct(markPrice, oraclePrice decimal.Decimal) (decimal.Decimal, error) {
	if oraclePrice.Sign() <= 0 {
		return decimal.Zero, ErrMath
	}
	return markPrice.Sub(oraclePrice).Div(oraclePrice), nil
}

// isOracleMarkTooDivergent reports whether the spread breaches the
// configured divergence bound.
func isOracleMarkTooDivergent(spreadPct decimal.Decimal, rails PriceDivergenceGuardRails) bool {
	return spreadPct.Abs().GreaterThanOrEqual(rails.MarkOracleDivergence)
}

// limitPriceSatisfied checks the realized average price against a limit,
// direction-aware: longs must not pay above the limit, shorts must not
// receive below it.
func limitPriceSatisfied(limitPrice, quoteAmount, baseAmount decimal.Decimal, direction PositionDirection) (bool, error) {
	if baseAmount.Sign() <= 0 {
		return false, ErrMath
	}
	avgPrice := quoteAmount.Div(baseAmount)
	if direction == Long {
		return avgPrice.LessThanOrEqual(limitPrice), nil
	}
	return avgPrice.GreaterThanOrEqual(limitPrice), nil
}

// calculateBaseAssetAmountToTradeForLimit returns how much base the AMM can
// exchange before the mark price crosses the order's limit price. Solves the
// constant product curve for the base reserve at the limit price.
func calculateBaseAssetAmountToTradeForLimit(amm *AMM, limitPrice decimal.Decimal, direction PositionDirection) (decimal.Decimal, error) {
	if limitPrice.Sign() <= 0 {
		return decimal.Zero, nil
	}

	// price(b) = k * peg / b^2, so the reserve at the limit price is
	// b' = sqrt(k * peg / limit).
	kPeg := amm.invariant().Mul(amm.PegMultiplier)
	targetReserve, err := sqrtDecimal(kPeg.Div(limitPrice))
	if err != nil {
		return decimal.Zero, err
	}

	var tradeable decimal.Decimal
	if direction == Long {
		// Buying pushes the price up toward the limit: base reserve shrinks.
		tradeable = amm.BaseAssetReserve.Sub(targetReserve)
	} else {
		// Selling pushes the price down toward the limit: base reserve grows.
		tradeable = targetReserve.Sub(amm.BaseAssetReserve)
	}

	if tradeable.Sign() <= 0 {
		return decimal.Zero, nil
	}
	return tradeable, nil
}
