package clearing

import (
	"sync"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// Metrics receives engine-level counters. The zero value of the engine uses a
// no-op implementation; wire a real collector to export them.
type Metrics interface {
	OrderPlaced(marketIndex uint64)
	OrderCancelled(marketIndex uint64)
	OrderFilled(marketIndex uint64, baseVolume, quoteVolume, fee decimal.Decimal)
	OrderRejected(operation string)
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced(uint64)                                            {}
func (nopMetrics) OrderCancelled(uint64)                                         {}
func (nopMetrics) OrderFilled(uint64, decimal.Decimal, decimal.Decimal, decimal.Decimal) {}
func (nopMetrics) OrderRejected(string)                                          {}

// ClearingHouse is the single entry point to the order lifecycle engine. All
// public methods are serialized behind one mutex; each method works on value
// copies of the affected accounts and market and commits them back only when
// the whole operation succeeds, so a failed call leaves no partial state.
type ClearingHouse struct {
	mu      sync.Mutex
	state   *State
	markets map[uint64]*Market
	users   map[xid.ID]*User
	oracles map[uint64]OracleSource
	sink    EventSink
	metrics Metrics
}

// New creates a ClearingHouse. A nil state uses DefaultState, a nil sink
// discards records.
func New(state *State, sink EventSink) *ClearingHouse {
	if state == nil {
		state = DefaultState()
	}
	if sink == nil {
		sink = NewDiscardEventSink()
	}
	return &ClearingHouse{
		state:   state,
		markets: make(map[uint64]*Market),
		users:   make(map[xid.ID]*User),
		oracles: make(map[uint64]OracleSource),
		sink:    sink,
		metrics: nopMetrics{},
	}
}

// SetMetrics installs a metrics collector.
func (c *ClearingHouse) SetMetrics(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m != nil {
		c.metrics = m
	}
}

// AddMarket registers a market and its oracle source.
func (c *ClearingHouse) AddMarket(market *Market, oracle OracleSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if market == nil || !market.Initialized {
		return ErrMarketNotFound
	}
	cpy := *market
	c.markets[market.Index] = &cpy
	if oracle != nil {
		c.oracles[market.Index] = oracle
	}
	return nil
}

// AddUser registers a trader account.
func (c *ClearingHouse) AddUser(user *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cpy := *user
	c.users[user.ID] = &cpy
}

// User returns a copy of the trader account.
func (c *ClearingHouse) User(id xid.ID) (User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok {
		return User{}, ErrOrderDoesNotExist
	}
	return *u, nil
}

// Market returns a copy of the market.
func (c *ClearingHouse) Market(index uint64) (Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.markets[index]
	if !ok {
		return Market{}, ErrMarketNotFound
	}
	return *m, nil
}

// UpdateAMM refreshes a market's curve bookkeeping for the given slot, making
// it fillable when curve updates are required each slot.
func (c *ClearingHouse) UpdateAMM(marketIndex uint64, clock Clock) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.markets[marketIndex]
	if !ok {
		return ErrMarketNotFound
	}
	m.AMM.LastUpdateSlot = clock.Slot
	return nil
}

// PlaceOrder places a new order for the user. The discount token balance is
// sampled now and frozen into the order's fee tier.
func (c *ClearingHouse) PlaceOrder(userID xid.ID, params *OrderParams, referrer xid.ID, discountTokenBalance decimal.Decimal, clock Clock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, ok := c.users[userID]
	if !ok {
		return ErrOrderDoesNotExist
	}
	market, ok := c.markets[params.MarketIndex]
	if !ok {
		return ErrMarketNotFound
	}

	userCopy := *user
	marketCopy := *market
	scratch := c.scratchMarkets(params.MarketIndex, &marketCopy)

	err := placeOrder(c.state, &userCopy, &marketCopy, scratch, c.oracles[params.MarketIndex], params, referrer, discountTokenBalance, c.sink, clock)
	if err != nil {
		c.metrics.OrderRejected("place")
		return err
	}

	*user = userCopy
	*market = marketCopy
	c.metrics.OrderPlaced(params.MarketIndex)
	return nil
}

// CancelOrder cancels the user's order by engine-assigned id.
func (c *ClearingHouse) CancelOrder(userID xid.ID, orderID uint64, clock Clock) error {
	return c.cancel(userID, clock, func(user *User, markets map[uint64]*Market) error {
		return cancelOrderByOrderID(c.state, user, markets, orderID, c.sink, clock)
	})
}

// CancelOrderByUserOrderID cancels the user's order by caller-assigned tag.
func (c *ClearingHouse) CancelOrderByUserOrderID(userID xid.ID, userOrderID uint8, clock Clock) error {
	return c.cancel(userID, clock, func(user *User, markets map[uint64]*Market) error {
		return cancelOrderByUserOrderID(c.state, user, markets, userOrderID, c.sink, clock)
	})
}

func (c *ClearingHouse) cancel(userID xid.ID, clock Clock, fn func(*User, map[uint64]*Market) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, ok := c.users[userID]
	if !ok {
		return ErrOrderDoesNotExist
	}

	userCopy := *user
	if err := fn(&userCopy, c.markets); err != nil {
		c.metrics.OrderRejected("cancel")
		return err
	}

	var marketIndex uint64
	for i := range user.Orders {
		if user.Orders[i].Status == OrderStatusOpen && userCopy.Orders[i].Status != OrderStatusOpen {
			marketIndex = user.Orders[i].MarketIndex
		}
	}

	*user = userCopy
	c.metrics.OrderCancelled(marketIndex)
	return nil
}

// FillOrder executes the user's order against the AMM, crediting the filler
// account when it differs from the trader. Returns the base amount filled.
func (c *ClearingHouse) FillOrder(userID, fillerID xid.ID, orderID uint64, clock Clock) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, ok := c.users[userID]
	if !ok {
		return decimal.Zero, ErrOrderDoesNotExist
	}
	orderIndex, err := user.orderIndexByID(orderID)
	if err != nil {
		return decimal.Zero, err
	}
	marketIndex := user.Orders[orderIndex].MarketIndex
	market, ok := c.markets[marketIndex]
	if !ok {
		return decimal.Zero, ErrMarketNotFound
	}

	userCopy := *user
	marketCopy := *market

	var filler *User
	var fillerCopy User
	if !fillerID.IsNil() && fillerID != userID {
		if f, ok := c.users[fillerID]; ok {
			fillerCopy = *f
			filler = &fillerCopy
		}
	}

	var referrer *User
	var referrerCopy User
	if refID := user.Orders[orderIndex].Referrer; !refID.IsNil() {
		if r, ok := c.users[refID]; ok {
			referrerCopy = *r
			referrer = &referrerCopy
		}
	}

	scratch := c.scratchMarkets(marketIndex, &marketCopy)

	filled, quote, err := fillOrder(c.state, &userCopy, filler, &marketCopy, scratch, c.oracles[marketIndex], orderID, referrer, c.sink, clock)
	if err != nil {
		c.metrics.OrderRejected("fill")
		return decimal.Zero, err
	}
	if filled.IsZero() && quote.IsZero() {
		// A benign no-op still settled funding on the way in; keep it.
		*user = userCopy
		*market = marketCopy
		return decimal.Zero, nil
	}

	fee := userCopy.TotalFeePaid.Sub(user.TotalFeePaid)

	*user = userCopy
	*market = marketCopy
	if filler != nil {
		*c.users[fillerID] = fillerCopy
	}
	if referrer != nil {
		*c.users[referrerCopy.ID] = referrerCopy
	}

	c.metrics.OrderFilled(marketIndex, filled, quote, fee)
	return filled, nil
}

// scratchMarkets builds the market view the controllers see: the live map
// with the market under mutation replaced by its working copy, so margin
// math across markets observes the in-flight changes.
func (c *ClearingHouse) scratchMarkets(index uint64, working *Market) map[uint64]*Market {
	scratch := make(map[uint64]*Market, len(c.markets))
	for k, v := range c.markets {
		scratch[k] = v
	}
	scratch[index] = working
	return scratch
}
