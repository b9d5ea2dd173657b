package clearing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderSlotLookups(t *testing.T) {
	user := NewUser(decimal.NewFromInt(1000))

	idx, err := user.freeOrderIndex()
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	user.Orders[0] = Order{Status: OrderStatusOpen, OrderID: 5, UserOrderID: 9}

	idx, err = user.orderIndexByID(5)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = user.orderIndexByUserOrderID(9)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = user.orderIndexByID(6)
	assert.ErrorIs(t, err, ErrOrderDoesNotExist)

	idx, err = user.freeOrderIndex()
	assert.NoError(t, err)
	assert.Equal(t, 1, idx)

	for i := range user.Orders {
		user.Orders[i].Status = OrderStatusOpen
	}
	_, err = user.freeOrderIndex()
	assert.ErrorIs(t, err, ErrMaxNumberOfOrders)
}

func TestNextOrderIDAdvances(t *testing.T) {
	user := NewUser(decimal.NewFromInt(1000))
	assert.Equal(t, uint64(1), user.nextOrderID())
	assert.Equal(t, uint64(2), user.nextOrderID())
	assert.Equal(t, uint64(3), user.NextOrderID)
}

func TestPositionSlots(t *testing.T) {
	user := NewUser(decimal.NewFromInt(1000))

	idx, err := user.positionIndexOrNew(3)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, uint64(3), user.Positions[0].MarketIndex)

	// A zero-exposure slot with no orders is reclaimable, so the same slot
	// serves a different market next.
	idx, err = user.positionIndexOrNew(7)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	user.Positions[0].OpenOrders = 1
	idx, err = user.positionIndexOrNew(7)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = user.positionIndexOrNew(8)
	assert.NoError(t, err)
	assert.Equal(t, 1, idx)

	for i := range user.Positions {
		user.Positions[i].OpenOrders = 1
		user.Positions[i].MarketIndex = uint64(100 + i)
	}
	_, err = user.positionIndexOrNew(9)
	assert.ErrorIs(t, err, ErrMaxNumberOfPositions)
}

func TestOpenBidsAndAsksBookkeeping(t *testing.T) {
	pos := &Position{}

	increaseOpenBidsAndAsks(pos, Long, decimal.NewFromInt(5))
	increaseOpenBidsAndAsks(pos, Short, decimal.NewFromInt(3))
	assert.True(t, pos.OpenBids.Equal(decimal.NewFromInt(5)))
	assert.True(t, pos.OpenAsks.Equal(decimal.NewFromInt(3)))

	decreaseOpenBidsAndAsks(pos, Long, decimal.NewFromInt(2))
	assert.True(t, pos.OpenBids.Equal(decimal.NewFromInt(3)))

	// Exposure never goes negative.
	decreaseOpenBidsAndAsks(pos, Short, decimal.NewFromInt(10))
	assert.True(t, pos.OpenAsks.IsZero())
}

func TestOrderLimitPrice(t *testing.T) {
	order := &Order{Price: decimal.NewFromInt(55)}
	price, err := order.LimitPrice(nil)
	assert.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(55)))

	oracleRelative := &Order{OraclePriceOffset: decimal.NewFromInt(-2)}
	oracle := decimal.NewFromInt(50)
	price, err = oracleRelative.LimitPrice(&oracle)
	assert.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(48)))

	_, err = oracleRelative.LimitPrice(nil)
	assert.ErrorIs(t, err, ErrOracleNotFound)
}

func TestOrderTriggered(t *testing.T) {
	above := &Order{OrderType: OrderTypeTriggerMarket, TriggerCondition: TriggerAbove, TriggerPrice: decimal.NewFromInt(50)}
	assert.True(t, above.Triggered(decimal.NewFromInt(51)))
	assert.False(t, above.Triggered(decimal.NewFromInt(50)))

	below := &Order{OrderType: OrderTypeTriggerLimit, TriggerCondition: TriggerBelow, TriggerPrice: decimal.NewFromInt(50)}
	assert.True(t, below.Triggered(decimal.NewFromInt(49)))
	assert.False(t, below.Triggered(decimal.NewFromInt(50)))

	limit := &Order{OrderType: OrderTypeLimit}
	assert.True(t, limit.Triggered(decimal.NewFromInt(1)))
}
