package clearing

import (
	"github.com/shopspring/decimal"
)

var testClock = Clock{Now: 1700000000, Slot: 100}

// newTestMarket returns a market whose curve quotes a mark price of 50 with
// one-unit step size: reserves 1000/1000 with a peg of 50.
func newTestMarket() *Market {
	return &Market{
		Index:       0,
		Initialized: true,
		AMM: AMM{
			BaseAssetReserve:        decimal.NewFromInt(1000),
			QuoteAssetReserve:       decimal.NewFromInt(1000),
			PegMultiplier:           decimal.NewFromInt(50),
			BaseAssetAmountStepSize: decimal.NewFromInt(1),
			FundingPeriod:           3600,
		},
		NextTradeRecordID: 1,
	}
}

// newTestOracle reports a fresh, confident observation at the mark price.
func newTestOracle(price int64) *StaticOracle {
	return &StaticOracle{
		Data: OraclePriceData{
			Price:                   decimal.NewFromInt(price),
			Confidence:              decimal.RequireFromString("0.5"),
			Delay:                   1,
			HasSufficientDataPoints: true,
		},
	}
}

// newTestEngine wires a ClearingHouse with one market, its oracle, a memory
// sink, and one funded trader.
func newTestEngine(collateral int64) (*ClearingHouse, *User, *MemoryEventSink) {
	sink := NewMemoryEventSink()
	engine := New(DefaultState(), sink)
	_ = engine.AddMarket(newTestMarket(), newTestOracle(50))
	user := NewUser(decimal.NewFromInt(collateral))
	engine.AddUser(user)
	return engine, user, sink
}

func limitLongParams(base int64, price string) *OrderParams {
	return &OrderParams{
		OrderType:       OrderTypeLimit,
		Direction:       Long,
		MarketIndex:     0,
		BaseAssetAmount: decimal.NewFromInt(base),
		Price:           decimal.RequireFromString(price),
	}
}

func marketLongParams(base int64) *OrderParams {
	return &OrderParams{
		OrderType:       OrderTypeMarket,
		Direction:       Long,
		MarketIndex:     0,
		BaseAssetAmount: decimal.NewFromInt(base),
	}
}
