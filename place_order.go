package clearing

import (
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// placeOrder validates params, claims a free order slot, and writes the new
// order. The order's worst-case exposure is booked against the position up
// front; if that increases risk the trader must still meet initial margin.
func placeOrder(
	state *State,
	user *User,
	market *Market,
	markets map[uint64]*Market,
	oracle OracleSource,
	params *OrderParams,
	referrer xid.ID,
	discountTokenBalance decimal.Decimal,
	sink EventSink,
	clock Clock,
) error {
	if state.ExchangePaused {
		return ErrExchangePaused
	}
	if !market.Initialized {
		return ErrMarketNotFound
	}

	if err := settleFundingPayment(user, markets, clock.Now); err != nil {
		return err
	}

	slot, err := user.freeOrderIndex()
	if err != nil {
		return err
	}

	if params.UserOrderID > 0 {
		if _, err := user.orderIndexByUserOrderID(params.UserOrderID); err == nil {
			return ErrUserOrderIDAlreadyInUse
		}
	}

	posIdx, err := user.positionIndexOrNew(params.MarketIndex)
	if err != nil {
		return err
	}
	position := &user.Positions[posIdx]

	worstCaseBefore := position.WorstCaseBaseAssetAmount()

	standardized, err := StandardizeBaseAssetAmount(params.BaseAssetAmount, market.AMM.BaseAssetAmountStepSize)
	if err != nil {
		return err
	}
	baseAssetAmount := getBaseAssetAmountForOrder(params, position, standardized)

	position.OpenOrders++
	increaseOpenBidsAndAsks(position, params.Direction, baseAssetAmount)

	var auctionStart, auctionEnd decimal.Decimal
	if !params.PostOnly && baseAssetAmount.Sign() > 0 {
		auctionStart, err = calculateAuctionStartPrice(market, params.Direction)
		if err != nil {
			return err
		}
		auctionEnd, err = calculateAuctionEndPrice(market, params.Direction, baseAssetAmount)
		if err != nil {
			return err
		}
	}

	order := Order{
		Status:              OrderStatusOpen,
		OrderType:           params.OrderType,
		Ts:                  clock.Now,
		OrderID:             user.nextOrderID(),
		UserOrderID:         params.UserOrderID,
		MarketIndex:         params.MarketIndex,
		Price:               params.Price,
		UserBaseAssetAmount: params.BaseAssetAmount,
		BaseAssetAmount:     baseAssetAmount,
		QuoteAssetAmount:    params.QuoteAssetAmount,
		Direction:           params.Direction,
		ReduceOnly:          params.ReduceOnly,
		PostOnly:            params.PostOnly,
		ImmediateOrCancel:   params.ImmediateOrCancel,
		DiscountTier:        calculateOrderFeeTier(&state.FeeStructure, discountTokenBalance),
		TriggerPrice:        params.TriggerPrice,
		TriggerCondition:    params.TriggerCondition,
		Referrer:            referrer,
		OraclePriceOffset:   params.OraclePriceOffset,
		AuctionStartPrice:   auctionStart,
		AuctionEndPrice:     auctionEnd,
	}

	if order.HasOraclePriceOffset() && oracle == nil {
		return ErrOracleNotFound
	}
	validOraclePrice, err := getValidOraclePrice(oracle, &state.OracleGuardRails, clock.Slot)
	if err != nil {
		return err
	}

	if err := validateOrder(&order, market, state, validOraclePrice); err != nil {
		return err
	}

	user.Orders[slot] = order

	worstCaseAfter := position.WorstCaseBaseAssetAmount()
	riskIncreasing := worstCaseAfter.Abs().GreaterThan(worstCaseBefore.Abs())

	if riskIncreasing && order.ReduceOnly {
		return ErrReduceOnlyOrderIncreasedRisk
	}
	if riskIncreasing {
		ok, err := meetsInitialMarginRequirement(user, markets, state)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientCollateral
		}
	}

	logger.Debug("order placed",
		"user", user.ID.String(),
		"order_id", order.OrderID,
		"market_index", order.MarketIndex,
		"order_type", string(order.OrderType),
		"base_asset_amount", order.BaseAssetAmount.String(),
	)

	sink.PublishOrderRecords(&OrderRecord{
		Ts:        clock.Now,
		Order:     order,
		User:      user.ID,
		Authority: user.Authority,
		Action:    OrderActionPlace,
	})
	return nil
}

// getValidOraclePrice fetches the oracle observation and filters it through
// the validity guard rails. A nil source or an invalid observation yields a
// nil price, not an error; only orders that require the oracle fail later.
func getValidOraclePrice(oracle OracleSource, rails *OracleGuardRails, slot uint64) (*decimal.Decimal, error) {
	if oracle == nil {
		return nil, nil
	}
	data, err := oracle.GetOraclePrice(slot)
	if err != nil {
		return nil, err
	}
	if !isOracleValid(data, rails.Validity) {
		return nil, nil
	}
	price := data.Price
	return &price, nil
}
