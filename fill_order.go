package clearing

import (
	"github.com/shopspring/decimal"
)

// fillOrder executes as much of an open order as the market and the trader's
// collateral allow, settling against the AMM. It returns the base and quote
// asset amounts filled; zeroes with a nil error mean the order could not
// execute yet.
func fillOrder(
	state *State,
	user *User,
	filler *User,
	market *Market,
	markets map[uint64]*Market,
	oracle OracleSource,
	orderID uint64,
	referrer *User,
	sink EventSink,
	clock Clock,
) (decimal.Decimal, decimal.Decimal, error) {
	if state.ExchangePaused {
		return decimal.Zero, decimal.Zero, ErrExchangePaused
	}
	if !market.Initialized {
		return decimal.Zero, decimal.Zero, ErrMarketNotFound
	}

	if err := settleFundingPayment(user, markets, clock.Now); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	orderIndex, err := user.orderIndexByID(orderID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	order := &user.Orders[orderIndex]
	if order.Status != OrderStatusOpen {
		return decimal.Zero, decimal.Zero, ErrOrderNotOpen
	}
	if order.MarketIndex != market.Index {
		return decimal.Zero, decimal.Zero, ErrMarketNotFound
	}

	// The curve must have been refreshed this slot unless repegging is off.
	if market.AMM.CurveUpdateIntensity > 0 && market.AMM.LastUpdateSlot != clock.Slot {
		return decimal.Zero, decimal.Zero, ErrAMMNotUpdatedInSameSlot
	}

	oracleValid := false
	var oraclePrice decimal.Decimal
	var validOraclePrice *decimal.Decimal
	if oracle != nil {
		data, err := oracle.GetOraclePrice(clock.Slot)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		oraclePrice = data.Price
		oracleValid = isOracleValid(data, state.OracleGuardRails.Validity)
		if oracleValid {
			p := data.Price
			validOraclePrice = &p
			market.AMM.LastOraclePrice = data.Price
		}
	}

	markPriceBefore, err := market.AMM.MarkPrice()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	var spreadBefore decimal.Decimal
	divergentBefore := false
	if oracleValid {
		spreadBefore, err = calculateOracleMarkSpreadPct(markPriceBefore, oraclePrice)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		market.AMM.LastOracleMarkSpreadPct = spreadBefore
		divergentBefore = isOracleMarkTooDivergent(spreadBefore, state.OracleGuardRails.PriceDivergence)
	}

	posIdx, err := user.positionIndex(order.MarketIndex)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	var delta positionDelta
	if order.OrderType == OrderTypeMarket {
		delta, err = executeMarketOrder(user, order, market, posIdx)
	} else {
		delta, err = executeNonMarketOrder(state, user, order, market, markets, posIdx, markPriceBefore, validOraclePrice)
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if delta.BaseAssetAmount.IsZero() && delta.QuoteAssetAmount.IsZero() {
		return decimal.Zero, decimal.Zero, nil
	}

	if order.ReduceOnly && delta.RiskIncreasing {
		return decimal.Zero, decimal.Zero, ErrReduceOnlyOrderIncreasedRisk
	}

	markPriceAfter, err := market.AMM.MarkPrice()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	// A fill may not push the price relationship into divergence, and a
	// risk-increasing fill may not leave an existing divergence unimproved.
	if oracleValid {
		spreadAfter, err := calculateOracleMarkSpreadPct(markPriceAfter, oraclePrice)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		divergentAfter := isOracleMarkTooDivergent(spreadAfter, state.OracleGuardRails.PriceDivergence)
		if divergentAfter && !divergentBefore {
			return decimal.Zero, decimal.Zero, ErrOracleMarkSpreadLimit
		}
		if divergentAfter && divergentBefore && delta.RiskIncreasing &&
			spreadAfter.Abs().GreaterThanOrEqual(spreadBefore.Abs()) {
			return decimal.Zero, decimal.Zero, ErrOracleMarkSpreadLimit
		}
	}

	if delta.RiskIncreasing {
		ok, err := meetsInitialMarginRequirement(user, markets, state)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if !ok {
			return decimal.Zero, decimal.Zero, ErrInsufficientCollateral
		}
	}

	tradeRecord, orderRecord, err := fulfillOrderWithAMM(state, user, filler, referrer, order, orderIndex, market, posIdx, delta, markPriceBefore, markPriceAfter, oraclePrice, clock)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	// Funding is marked against the pre-fill price so the fill itself cannot
	// move its own funding premium.
	if err := updateFundingRate(market, clock.Now, clock.Slot, &state.OracleGuardRails, state.FundingPaused, &markPriceBefore); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	// Records reach the sink only after the last fallible step, so a
	// rejected fill leaves nothing persisted.
	sink.PublishTradeRecords(tradeRecord)
	sink.PublishOrderRecords(orderRecord)

	return delta.BaseAssetAmount, delta.QuoteAssetAmount, nil
}

// executeMarketOrder fills a market order immediately for its full remaining
// size, re-clamping reduce-only orders against the position as it stands
// now. Unlike resting orders, a market order that cannot move at least one
// step is an error.
func executeMarketOrder(
	user *User,
	order *Order,
	market *Market,
	posIdx int,
) (positionDelta, error) {
	if order.BaseAssetAmount.IsZero() {
		// Quote-sized order: spend the full quote amount.
		delta, err := updatePositionWithQuoteAssetAmount(order.QuoteAssetAmount, order.Direction, market, user, posIdx)
		if err != nil {
			return positionDelta{}, err
		}
		return checkMarketOrderSlippage(order, delta)
	}

	base := order.BaseAssetAmountUnfilled()
	if order.ReduceOnly {
		base = calculateBaseAssetAmountForReduceOnlyOrder(base, order.Direction, user.Positions[posIdx].BaseAssetAmount)
	}
	if base.LessThan(market.AMM.BaseAssetAmountStepSize) {
		return positionDelta{}, ErrTradeSizeTooSmall
	}

	delta, err := updatePositionWithBaseAssetAmount(base, order.Direction, market, user, posIdx, nil)
	if err != nil {
		return positionDelta{}, err
	}
	return checkMarketOrderSlippage(order, delta)
}

// checkMarketOrderSlippage enforces an optional worst-price bound on a
// market order's realized average price.
func checkMarketOrderSlippage(order *Order, delta positionDelta) (positionDelta, error) {
	if order.Price.IsZero() {
		return delta, nil
	}
	ok, err := limitPriceSatisfied(order.Price, delta.QuoteAssetAmount, delta.BaseAssetAmount, order.Direction)
	if err != nil {
		return positionDelta{}, err
	}
	if !ok {
		return positionDelta{}, ErrSlippageOutsideLimit
	}
	return delta, nil
}

// executeNonMarketOrder fills a resting order for the smaller of what the
// curve allows at its limit price and what the trader's collateral supports.
// A zero executable size is a benign no-op, not an error.
func executeNonMarketOrder(
	state *State,
	user *User,
	order *Order,
	market *Market,
	markets map[uint64]*Market,
	posIdx int,
	markPrice decimal.Decimal,
	validOraclePrice *decimal.Decimal,
) (positionDelta, error) {
	marketCan, err := calculateBaseAssetAmountMarketCanExecute(order, market, markPrice, validOraclePrice)
	if err != nil {
		return positionDelta{}, err
	}
	if marketCan.Sign() <= 0 {
		return positionDelta{}, nil
	}

	userCan, err := calculateBaseAssetAmountUserCanExecute(user, order, market, markets, state)
	if err != nil {
		return positionDelta{}, err
	}

	base, err := StandardizeBaseAssetAmount(decimal.Min(marketCan, userCan), market.AMM.BaseAssetAmountStepSize)
	if err != nil {
		return positionDelta{}, err
	}
	if base.IsZero() {
		return positionDelta{}, nil
	}

	// A partial fill may not strand a dust remainder below one step.
	remainder := order.BaseAssetAmountUnfilled().Sub(base)
	if remainder.Sign() > 0 && remainder.LessThan(market.AMM.BaseAssetAmountStepSize) {
		return positionDelta{}, ErrOrderAmountTooSmall
	}

	var makerLimitPrice *decimal.Decimal
	if order.PostOnly {
		limit, err := order.LimitPrice(validOraclePrice)
		if err != nil {
			return positionDelta{}, err
		}
		makerLimitPrice = &limit
	}

	return updatePositionWithBaseAssetAmount(base, order.Direction, market, user, posIdx, makerLimitPrice)
}

// fillAgainstMaker routes a taker fill to a resting maker order once the
// taker's auction price clears the maker's limit. Matching and settlement
// between two accounts is not wired up yet; callers fall through to the AMM
// when zero is returned.
//
// TODO: settle taker against maker directly instead of falling back to the
// AMM once cross-account settlement lands.
func fillAgainstMaker(
	state *State,
	taker *Order,
	maker *Order,
	clock Clock,
) (decimal.Decimal, error) {
	auctionPrice, err := calculateAuctionPrice(taker, clock.Now, state.AuctionDurationSecs)
	if err != nil {
		return decimal.Zero, err
	}
	if !doesAuctionSatisfyMakerOrder(maker, auctionPrice) {
		return decimal.Zero, ErrAuctionPriceDoesNotSatisfyMaker
	}
	return decimal.Zero, nil
}

// fulfillOrderWithAMM books the settled fill: fees and rewards across user,
// filler, referrer and market, the order's filled totals, and slot
// reclamation for completed orders. The audit records are returned for the
// caller to publish once the whole fill has succeeded.
func fulfillOrderWithAMM(
	state *State,
	user *User,
	filler *User,
	referrer *User,
	order *Order,
	orderIndex int,
	market *Market,
	posIdx int,
	delta positionDelta,
	markPriceBefore decimal.Decimal,
	markPriceAfter decimal.Decimal,
	oraclePrice decimal.Decimal,
	clock Clock,
) (*TradeRecord, *OrderRecord, error) {
	fillerIsUser := filler == nil || filler.ID == user.ID
	fees := calculateFeeForOrder(
		delta.QuoteAssetAmount,
		&state.FeeStructure,
		&state.FillerRewardStructure,
		order.DiscountTier,
		order.Ts,
		clock.Now,
		referrer != nil,
		fillerIsUser,
		delta.QuoteAssetSurplus,
		order.PostOnly,
	)

	position := &user.Positions[posIdx]

	// Fees settle through unsettled PnL, never through collateral directly.
	updateUnsettledPnL(position, delta.PnL.Sub(fees.UserFee))
	if fees.UserFee.Sign() >= 0 {
		user.TotalFeePaid = user.TotalFeePaid.Add(fees.UserFee)
	} else {
		user.TotalFeeRebate = user.TotalFeeRebate.Add(fees.UserFee.Neg())
	}
	user.TotalTokenDiscount = user.TotalTokenDiscount.Add(fees.TokenDiscount)
	user.TotalRefereeDiscount = user.TotalRefereeDiscount.Add(fees.RefereeDiscount)

	if referrer != nil {
		referrer.TotalReferralReward = referrer.TotalReferralReward.Add(fees.ReferrerReward)
	}
	if !fillerIsUser && fees.FillerReward.Sign() > 0 {
		fillerPosIdx, err := filler.positionIndexOrNew(market.Index)
		if err != nil {
			return nil, nil, err
		}
		updateUnsettledPnL(&filler.Positions[fillerPosIdx], fees.FillerReward)
	}

	market.AMM.TotalFee = market.AMM.TotalFee.Add(fees.FeeToMarket)
	market.AMM.TotalFeeMinusDistributions = market.AMM.TotalFeeMinusDistributions.Add(fees.FeeToMarket)
	market.AMM.NetRevenueSinceLastFunding = market.AMM.NetRevenueSinceLastFunding.Add(fees.FeeToMarket)

	order.BaseAssetAmountFilled = order.BaseAssetAmountFilled.Add(delta.BaseAssetAmount)
	order.QuoteAssetAmountFilled = order.QuoteAssetAmountFilled.Add(delta.QuoteAssetAmount)
	order.Fee = order.Fee.Add(fees.UserFee)
	// Quote-sized orders booked no base exposure at placement, so there is
	// nothing to unwind here.
	if !order.BaseAssetAmount.IsZero() {
		decreaseOpenBidsAndAsks(position, order.Direction, delta.BaseAssetAmount)
	}

	tradeRecordID := market.nextTradeRecordID()

	logger.Debug("order filled",
		"user", user.ID.String(),
		"order_id", order.OrderID,
		"market_index", order.MarketIndex,
		"base_asset_amount", delta.BaseAssetAmount.String(),
		"quote_asset_amount", delta.QuoteAssetAmount.String(),
		"mark_price_before", markPriceBefore.String(),
		"mark_price_after", markPriceAfter.String(),
	)

	tradeRecord := &TradeRecord{
		Ts:                      clock.Now,
		RecordID:                tradeRecordID,
		UserAuthority:           user.Authority,
		User:                    user.ID,
		Direction:               order.Direction,
		BaseAssetAmount:         delta.BaseAssetAmount,
		QuoteAssetAmount:        delta.QuoteAssetAmount,
		MarkPriceBefore:         markPriceBefore,
		MarkPriceAfter:          markPriceAfter,
		Fee:                     fees.UserFee,
		TokenDiscount:           fees.TokenDiscount,
		RefereeDiscount:         fees.RefereeDiscount,
		QuoteAssetAmountSurplus: delta.QuoteAssetSurplus,
		MarketIndex:             order.MarketIndex,
		OraclePrice:             oraclePrice,
	}

	record := &OrderRecord{
		Ts:                      clock.Now,
		Order:                   *order,
		User:                    user.ID,
		Authority:               user.Authority,
		Action:                  OrderActionFill,
		TradeRecordID:           tradeRecordID,
		BaseAssetAmountFilled:   delta.BaseAssetAmount,
		QuoteAssetAmountFilled:  delta.QuoteAssetAmount,
		FillerReward:            fees.FillerReward,
		Fee:                     fees.UserFee,
		QuoteAssetAmountSurplus: delta.QuoteAssetSurplus,
	}
	if !fillerIsUser {
		record.Filler = filler.ID
	}

	// Market orders never rest; completed orders free their slot.
	filledCompletely := order.BaseAssetAmountUnfilled().IsZero() && !order.BaseAssetAmount.IsZero()
	if order.OrderType == OrderTypeMarket || order.ImmediateOrCancel || filledCompletely {
		if !order.BaseAssetAmount.IsZero() {
			decreaseOpenBidsAndAsks(position, order.Direction, order.BaseAssetAmountUnfilled())
		}
		position.OpenOrders--
		user.Orders[orderIndex] = Order{}
	}

	return tradeRecord, record, nil
}
