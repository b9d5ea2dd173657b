package clearing

import (
	"sync"
	"testing"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type recordingMetrics struct {
	placed    int
	cancelled int
	filled    int
	rejected  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{rejected: make(map[string]int)}
}

func (r *recordingMetrics) OrderPlaced(uint64)    { r.placed++ }
func (r *recordingMetrics) OrderCancelled(uint64) { r.cancelled++ }
func (r *recordingMetrics) OrderFilled(uint64, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	r.filled++
}
func (r *recordingMetrics) OrderRejected(operation string) { r.rejected[operation]++ }

func TestEngineMetricsWiring(t *testing.T) {
	engine, user, _ := newTestEngine(100000)
	metrics := newRecordingMetrics()
	engine.SetMetrics(metrics)

	assert.NoError(t, engine.PlaceOrder(user.ID, limitLongParams(10, "55"), xid.NilID(), decimal.Zero, testClock))
	got, _ := engine.User(user.ID)
	orderID := got.Orders[0].OrderID

	_, err := engine.FillOrder(user.ID, xid.NilID(), orderID, testClock)
	assert.NoError(t, err)

	assert.NoError(t, engine.PlaceOrder(user.ID, limitLongParams(5, "45"), xid.NilID(), decimal.Zero, testClock))
	got, _ = engine.User(user.ID)
	assert.NoError(t, engine.CancelOrder(user.ID, got.Orders[0].OrderID, testClock))

	err = engine.PlaceOrder(user.ID, &OrderParams{OrderType: OrderTypeLimit, Direction: Long}, xid.NilID(), decimal.Zero, testClock)
	assert.Error(t, err)

	assert.Equal(t, 2, metrics.placed)
	assert.Equal(t, 1, metrics.filled)
	assert.Equal(t, 1, metrics.cancelled)
	assert.Equal(t, 1, metrics.rejected["place"])
}

func TestEngineUnknownUser(t *testing.T) {
	engine, _, _ := newTestEngine(100000)

	err := engine.PlaceOrder(xid.New(), limitLongParams(1, "55"), xid.NilID(), decimal.Zero, testClock)
	assert.ErrorIs(t, err, ErrOrderDoesNotExist)
}

func TestEngineUnknownMarket(t *testing.T) {
	engine, user, _ := newTestEngine(100000)

	params := limitLongParams(1, "55")
	params.MarketIndex = 9
	err := engine.PlaceOrder(user.ID, params, xid.NilID(), decimal.Zero, testClock)
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func TestEngineConcurrentPlacements(t *testing.T) {
	engine, user, _ := newTestEngine(1000000)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 4; i++ {
				assert.NoError(t, engine.PlaceOrder(user.ID, limitLongParams(1, "55"), xid.NilID(), decimal.Zero, testClock))
			}
		}()
	}
	wg.Wait()

	got, _ := engine.User(user.ID)
	open := 0
	seen := make(map[uint64]bool)
	for i := range got.Orders {
		if got.Orders[i].Status == OrderStatusOpen {
			open++
			assert.False(t, seen[got.Orders[i].OrderID], "order id assigned twice")
			seen[got.Orders[i].OrderID] = true
		}
	}
	assert.Equal(t, MaxOrders, open)
	assert.Equal(t, MaxOrders, got.Positions[0].OpenOrders)
}

func TestFailedFillLeavesAccountsUntouched(t *testing.T) {
	engine, user, _ := newTestEngine(100000)
	filler := NewUser(decimal.NewFromInt(500))
	engine.AddUser(filler)

	assert.NoError(t, engine.PlaceOrder(user.ID, marketLongParams(47), xid.NilID(), decimal.Zero, testClock))
	got, _ := engine.User(user.ID)
	before := got

	_, err := engine.FillOrder(user.ID, filler.ID, got.Orders[0].OrderID, testClock)
	assert.ErrorIs(t, err, ErrOracleMarkSpreadLimit)

	after, _ := engine.User(user.ID)
	assert.Equal(t, before, after)
	gotFiller, _ := engine.User(filler.ID)
	assert.True(t, gotFiller.Collateral.Equal(decimal.NewFromInt(500)))
}
