package clearing

import "github.com/shopspring/decimal"

// calculateAuctionStartPrice anchors the auction at the AMM's current quote.
func calculateAuctionStartPrice(market *Market, _ PositionDirection) (decimal.Decimal, error) {
	return market.AMM.MarkPrice()
}

// calculateAuctionEndPrice is the mark price the order's full size would
// move the curve to, simulated on a scratch copy of the reserves. Longs end
// above the start price, shorts below it.
func calculateAuctionEndPrice(market *Market, direction PositionDirection, baseAssetAmount decimal.Decimal) (decimal.Decimal, error) {
	if baseAssetAmount.Sign() <= 0 {
		return market.AMM.MarkPrice()
	}
	scratch := market.AMM
	if _, err := scratch.swapBaseAssetAmount(baseAssetAmount, direction); err != nil {
		return decimal.Zero, err
	}
	return scratch.MarkPrice()
}

// calculateAuctionPrice interpolates the two-point auction path at the
// elapsed time since placement, clamped to the configured duration.
func calculateAuctionPrice(order *Order, now int64, auctionDuration int64) (decimal.Decimal, error) {
	if auctionDuration <= 0 {
		return order.AuctionEndPrice, nil
	}

	elapsed := now - order.Ts
	if elapsed <= 0 {
		return order.AuctionStartPrice, nil
	}
	if elapsed >= auctionDuration {
		return order.AuctionEndPrice, nil
	}

	fraction := decimal.NewFromInt(elapsed).Div(decimal.NewFromInt(auctionDuration))
	delta := order.AuctionEndPrice.Sub(order.AuctionStartPrice).Mul(fraction)
	return order.AuctionStartPrice.Add(delta), nil
}

// doesAuctionSatisfyMakerOrder checks whether the interpolated auction price
// clears a resting maker order's limit: a maker bid is satisfied at or below
// its limit, a maker ask at or above it.
func doesAuctionSatisfyMakerOrder(maker *Order, auctionPrice decimal.Decimal) bool {
	if maker.Direction == Long {
		return auctionPrice.LessThanOrEqual(maker.Price)
	}
	return auctionPrice.GreaterThanOrEqual(maker.Price)
}
