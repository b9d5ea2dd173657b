package clearing

import "github.com/shopspring/decimal"

// marginRequirement is the collateral the trader must hold for their
// worst-case exposure across all markets at the given margin ratio.
func marginRequirement(user *User, markets map[uint64]*Market, marginRatio decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range user.Positions {
		pos := &user.Positions[i]
		if !pos.IsOpen() {
			continue
		}
		market, ok := markets[pos.MarketIndex]
		if !ok {
			return decimal.Zero, ErrMarketNotFound
		}
		markPrice, err := market.AMM.MarkPrice()
		if err != nil {
			return decimal.Zero, err
		}
		notional := pos.WorstCaseBaseAssetAmount().Abs().Mul(markPrice)
		total = total.Add(notional.Mul(marginRatio))
	}
	return total, nil
}

// totalCollateral is deposited collateral plus unsettled PnL.
func totalCollateral(user *User) decimal.Decimal {
	total := user.Collateral
	for i := range user.Positions {
		if user.Positions[i].IsOpen() {
			total = total.Add(user.Positions[i].UnsettledPnL)
		}
	}
	return total
}

// meetsInitialMarginRequirement reports whether the trader's collateral
// covers the initial margin on their worst-case exposure.
func meetsInitialMarginRequirement(user *User, markets map[uint64]*Market, state *State) (bool, error) {
	required, err := marginRequirement(user, markets, state.InitialMarginRatio)
	if err != nil {
		return false, err
	}
	return totalCollateral(user).GreaterThanOrEqual(required), nil
}

// calculateBaseAssetAmountUserCanExecute is the largest fill the trader's
// free collateral allows on this market, standardized to the step size.
// Pure: inspects state, mutates nothing.
func calculateBaseAssetAmountUserCanExecute(user *User, order *Order, market *Market, markets map[uint64]*Market, state *State) (decimal.Decimal, error) {
	markPrice, err := market.AMM.MarkPrice()
	if err != nil {
		return decimal.Zero, err
	}

	// Orders that shed exposure are not margin constrained.
	posIdx, err := user.positionIndex(order.MarketIndex)
	if err == nil {
		pos := &user.Positions[posIdx]
		if !pos.BaseAssetAmount.IsZero() && positionDirectionOpposes(pos.BaseAssetAmount, order.Direction) {
			return order.BaseAssetAmountUnfilled(), nil
		}
	}

	required, err := marginRequirement(user, markets, state.InitialMarginRatio)
	if err != nil {
		return decimal.Zero, err
	}
	free := totalCollateral(user).Sub(required)
	if free.Sign() <= 0 {
		return decimal.Zero, nil
	}

	maxNotional := free.Div(state.InitialMarginRatio)
	maxBase := maxNotional.Div(markPrice)

	executable := decimal.Min(maxBase, order.BaseAssetAmountUnfilled())
	return StandardizeBaseAssetAmount(executable, market.AMM.BaseAssetAmountStepSize)
}

// positionDirectionOpposes reports whether trading in direction shrinks a
// position of the given signed size.
func positionDirectionOpposes(baseAssetAmount decimal.Decimal, direction PositionDirection) bool {
	if baseAssetAmount.Sign() > 0 {
		return direction == Short
	}
	if baseAssetAmount.Sign() < 0 {
		return direction == Long
	}
	return false
}

// calculateBaseAssetAmountMarketCanExecute is the largest fill the AMM and
// the order's own price constraints allow right now. Zero means the order
// simply cannot execute yet, which is not an error.
func calculateBaseAssetAmountMarketCanExecute(order *Order, market *Market, markPrice decimal.Decimal, validOraclePrice *decimal.Decimal) (decimal.Decimal, error) {
	switch order.OrderType {
	case OrderTypeTriggerMarket:
		if !order.Triggered(markPrice) {
			return decimal.Zero, nil
		}
		return order.BaseAssetAmountUnfilled(), nil
	case OrderTypeTriggerLimit:
		if !order.Triggered(markPrice) {
			return decimal.Zero, nil
		}
		return baseAssetAmountExecutableForLimit(order, market, validOraclePrice)
	case OrderTypeLimit:
		return baseAssetAmountExecutableForLimit(order, market, validOraclePrice)
	default:
		return decimal.Zero, ErrInvalidOrder
	}
}

func baseAssetAmountExecutableForLimit(order *Order, market *Market, validOraclePrice *decimal.Decimal) (decimal.Decimal, error) {
	limitPrice, err := order.LimitPrice(validOraclePrice)
	if err != nil {
		return decimal.Zero, err
	}
	tradeable, err := calculateBaseAssetAmountToTradeForLimit(&market.AMM, limitPrice, order.Direction)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Min(tradeable, order.BaseAssetAmountUnfilled()), nil
}
