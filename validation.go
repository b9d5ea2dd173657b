package clearing

import "github.com/shopspring/decimal"

// getBaseAssetAmountForOrder derives the actual order size from the
// standardized request. Reduce-only orders are clamped to the opposing
// exposure the trader currently carries so they can never flip the position.
func getBaseAssetAmountForOrder(params *OrderParams, position *Position, standardizedAmount decimal.Decimal) decimal.Decimal {
	if params.ReduceOnly {
		return calculateBaseAssetAmountForReduceOnlyOrder(
			standardizedAmount,
			params.Direction,
			position.BaseAssetAmount,
		)
	}
	return standardizedAmount
}

// validateOrder runs full order validation: price/size sanity, trigger
// consistency, flag legality. Runs after the order is fully formed but
// before anything is committed.
func validateOrder(order *Order, market *Market, state *State, validOraclePrice *decimal.Decimal) error {
	if order.Direction != Long && order.Direction != Short {
		return ErrInvalidOrder
	}
	if order.BaseAssetAmount.IsNegative() || order.QuoteAssetAmount.IsNegative() {
		return ErrInvalidOrder
	}
	if order.Price.IsNegative() || order.TriggerPrice.IsNegative() {
		return ErrInvalidOrder
	}
	if order.PostOnly && order.ImmediateOrCancel {
		return ErrInvalidOrder
	}

	switch order.OrderType {
	case OrderTypeMarket:
		if order.PostOnly {
			return ErrInvalidOrder
		}
		if order.BaseAssetAmount.IsZero() && order.QuoteAssetAmount.IsZero() {
			return ErrOrderAmountTooSmall
		}
		if order.BaseAssetAmount.IsZero() && !order.QuoteAssetAmount.IsZero() && order.ReduceOnly {
			// Quote-sized orders have no base size to clamp against.
			return ErrInvalidOrder
		}
	case OrderTypeLimit:
		if order.Price.IsZero() && !order.HasOraclePriceOffset() {
			return ErrInvalidOrder
		}
		if err := validateSizedOrder(order, market); err != nil {
			return err
		}
	case OrderTypeTriggerMarket, OrderTypeTriggerLimit:
		if order.TriggerPrice.IsZero() {
			return ErrInvalidOrder
		}
		if order.OrderType == OrderTypeTriggerLimit && order.Price.IsZero() && !order.HasOraclePriceOffset() {
			return ErrInvalidOrder
		}
		if order.PostOnly {
			return ErrInvalidOrder
		}
		if err := validateSizedOrder(order, market); err != nil {
			return err
		}
	default:
		return ErrInvalidOrder
	}

	if order.HasOraclePriceOffset() && validOraclePrice == nil {
		return ErrInvalidOracle
	}

	return nil
}

// validateSizedOrder requires at least one step of base size, except for
// reduce-only orders whose clamp legitimately produced zero (those become
// benign no-ops at fill time).
func validateSizedOrder(order *Order, market *Market) error {
	if order.BaseAssetAmount.IsZero() {
		if order.ReduceOnly {
			return nil
		}
		return ErrOrderAmountTooSmall
	}
	if order.BaseAssetAmount.LessThan(market.AMM.BaseAssetAmountStepSize) {
		return ErrOrderAmountTooSmall
	}
	return nil
}

// orderIsCancelable applies the protection rules: a post-only order must
// rest for the configured window before it may be cancelled, so makers
// cannot quote and instantly pull.
func orderIsCancelable(order *Order, state *State, now int64) bool {
	if order.PostOnly && now-order.Ts < state.PostOnlyCancelProtectionSecs {
		return false
	}
	return true
}

// validateOrderCanBeCanceled is the strict variant used for explicit user
// cancels: a protected order yields an error instead of a silent no-op.
func validateOrderCanBeCanceled(order *Order, state *State, now int64) error {
	if !orderIsCancelable(order, state, now) {
		return ErrCantCancelPostOnlyOrder
	}
	return nil
}
