package clearing

import (
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// Position is a trader's net exposure in one market, plus the worst-case
// exposure contributed by their resting orders on that market.
type Position struct {
	MarketIndex               uint64          `json:"market_index"`
	BaseAssetAmount           decimal.Decimal `json:"base_asset_amount"`
	QuoteAssetAmount          decimal.Decimal `json:"quote_asset_amount"`
	LastCumulativeFundingRate decimal.Decimal `json:"last_cumulative_funding_rate"`
	UnsettledPnL              decimal.Decimal `json:"unsettled_pnl"`
	OpenOrders                int             `json:"open_orders"`
	OpenBids                  decimal.Decimal `json:"open_bids"`
	OpenAsks                  decimal.Decimal `json:"open_asks"`
}

// IsAvailable reports whether the slot can be reused for a new market.
func (p *Position) IsAvailable() bool {
	return p.BaseAssetAmount.IsZero() &&
		p.OpenOrders == 0 &&
		p.UnsettledPnL.IsZero()
}

// IsOpen reports whether the slot currently tracks anything.
func (p *Position) IsOpen() bool {
	return !p.IsAvailable()
}

// WorstCaseBaseAssetAmount is the signed net size the trader would reach if
// all resting orders on the worse side filled.
func (p *Position) WorstCaseBaseAssetAmount() decimal.Decimal {
	allBids := p.BaseAssetAmount.Add(p.OpenBids)
	allAsks := p.BaseAssetAmount.Sub(p.OpenAsks)
	if allBids.Abs().GreaterThan(allAsks.Abs()) {
		return allBids
	}
	return allAsks
}

// User is one trader account: fixed-capacity order and position slots plus
// lifetime fee totals. Slot index is not identity; lookups are linear scans.
type User struct {
	ID        xid.ID `json:"id"`
	Authority xid.ID `json:"authority"`

	Orders    [MaxOrders]Order       `json:"orders"`
	Positions [MaxPositions]Position `json:"positions"`

	NextOrderID uint64          `json:"next_order_id"`
	Collateral  decimal.Decimal `json:"collateral"`

	TotalFeePaid         decimal.Decimal `json:"total_fee_paid"`
	TotalFeeRebate       decimal.Decimal `json:"total_fee_rebate"`
	TotalTokenDiscount   decimal.Decimal `json:"total_token_discount"`
	TotalRefereeDiscount decimal.Decimal `json:"total_referee_discount"`
	TotalReferralReward  decimal.Decimal `json:"total_referral_reward"`
}

// NewUser creates a trader account with fresh identity keys.
func NewUser(collateral decimal.Decimal) *User {
	id := xid.New()
	return &User{
		ID:          id,
		Authority:   id,
		NextOrderID: 1,
		Collateral:  collateral,
	}
}

// nextOrderID returns the current order id and advances the counter.
func (u *User) nextOrderID() uint64 {
	id := u.NextOrderID
	u.NextOrderID++
	return id
}

// orderIndexByID finds the slot holding the given order id.
func (u *User) orderIndexByID(orderID uint64) (int, error) {
	for i := range u.Orders {
		if u.Orders[i].Status == OrderStatusOpen && u.Orders[i].OrderID == orderID {
			return i, nil
		}
	}
	return 0, ErrOrderDoesNotExist
}

// orderIndexByUserOrderID finds the slot holding the given user order id.
func (u *User) orderIndexByUserOrderID(userOrderID uint8) (int, error) {
	for i := range u.Orders {
		if u.Orders[i].Status == OrderStatusOpen && u.Orders[i].UserOrderID == userOrderID {
			return i, nil
		}
	}
	return 0, ErrOrderDoesNotExist
}

// freeOrderIndex finds the first Init order slot.
func (u *User) freeOrderIndex() (int, error) {
	for i := range u.Orders {
		if u.Orders[i].Status == OrderStatusInit {
			return i, nil
		}
	}
	return 0, ErrMaxNumberOfOrders
}

// positionIndex finds the slot tracking marketIndex.
func (u *User) positionIndex(marketIndex uint64) (int, error) {
	for i := range u.Positions {
		if u.Positions[i].IsOpen() && u.Positions[i].MarketIndex == marketIndex {
			return i, nil
		}
	}
	return 0, ErrMarketNotFound
}

// addNewPosition claims the first available position slot for marketIndex.
func (u *User) addNewPosition(marketIndex uint64) (int, error) {
	for i := range u.Positions {
		if u.Positions[i].IsAvailable() {
			u.Positions[i] = Position{MarketIndex: marketIndex}
			return i, nil
		}
	}
	return 0, ErrMaxNumberOfPositions
}

// positionIndexOrNew resolves the trader's position slot for marketIndex,
// claiming a free one when the trader has no exposure there yet.
func (u *User) positionIndexOrNew(marketIndex uint64) (int, error) {
	idx, err := u.positionIndex(marketIndex)
	if err == nil {
		return idx, nil
	}
	return u.addNewPosition(marketIndex)
}

// increaseOpenBidsAndAsks grows the position's worst-case exposure on the
// order's side by amount.
func increaseOpenBidsAndAsks(p *Position, direction PositionDirection, amount decimal.Decimal) {
	if direction == Long {
		p.OpenBids = p.OpenBids.Add(amount)
	} else {
		p.OpenAsks = p.OpenAsks.Add(amount)
	}
}

// decreaseOpenBidsAndAsks shrinks the position's worst-case exposure on the
// order's side by amount. Exposure never goes negative.
func decreaseOpenBidsAndAsks(p *Position, direction PositionDirection, amount decimal.Decimal) {
	if direction == Long {
		p.OpenBids = p.OpenBids.Sub(amount)
		if p.OpenBids.IsNegative() {
			p.OpenBids = decimal.Zero
		}
	} else {
		p.OpenAsks = p.OpenAsks.Sub(amount)
		if p.OpenAsks.IsNegative() {
			p.OpenAsks = decimal.Zero
		}
	}
}
