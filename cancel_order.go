package clearing

// cancelOrderByOrderID resolves the slot by engine-assigned order id and
// cancels it.
func cancelOrderByOrderID(
	state *State,
	user *User,
	markets map[uint64]*Market,
	orderID uint64,
	sink EventSink,
	clock Clock,
) error {
	idx, err := user.orderIndexByID(orderID)
	if err != nil {
		return err
	}
	return cancelOrder(state, user, markets, idx, sink, clock, false)
}

// cancelOrderByUserOrderID resolves the slot by the caller-assigned tag and
// cancels it.
func cancelOrderByUserOrderID(
	state *State,
	user *User,
	markets map[uint64]*Market,
	userOrderID uint8,
	sink EventSink,
	clock Clock,
) error {
	idx, err := user.orderIndexByUserOrderID(userOrderID)
	if err != nil {
		return err
	}
	return cancelOrder(state, user, markets, idx, sink, clock, false)
}

// cancelOrder releases the order slot at orderIndex: unwinds the worst-case
// exposure it reserved, emits the cancel record, and resets the slot.
// bestEffort skips the cancel-protection check and turns a protected order
// into a no-op instead of an error, for internal cleanup paths.
func cancelOrder(
	state *State,
	user *User,
	markets map[uint64]*Market,
	orderIndex int,
	sink EventSink,
	clock Clock,
	bestEffort bool,
) error {
	if state.ExchangePaused {
		return ErrExchangePaused
	}

	if err := settleFundingPayment(user, markets, clock.Now); err != nil {
		return err
	}

	order := &user.Orders[orderIndex]
	if order.Status != OrderStatusOpen {
		return ErrOrderNotOpen
	}

	if bestEffort {
		if !orderIsCancelable(order, state, clock.Now) {
			return nil
		}
	} else if err := validateOrderCanBeCanceled(order, state, clock.Now); err != nil {
		return err
	}

	posIdx, err := user.positionIndex(order.MarketIndex)
	if err != nil {
		return err
	}
	position := &user.Positions[posIdx]

	decreaseOpenBidsAndAsks(position, order.Direction, order.BaseAssetAmountUnfilled())
	position.OpenOrders--

	logger.Debug("order cancelled",
		"user", user.ID.String(),
		"order_id", order.OrderID,
		"market_index", order.MarketIndex,
	)

	sink.PublishOrderRecords(&OrderRecord{
		Ts:        clock.Now,
		Order:     *order,
		User:      user.ID,
		Authority: user.Authority,
		Action:    OrderActionCancel,
	})

	user.Orders[orderIndex] = Order{}
	return nil
}
