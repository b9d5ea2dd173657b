package clearing

import (
	"sync"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// OrderAction classifies an order lifecycle record.
type OrderAction string

const (
	OrderActionPlace  OrderAction = "place"
	OrderActionCancel OrderAction = "cancel"
	OrderActionFill   OrderAction = "fill"
)

// OrderRecord is emitted exactly once per Place/Cancel/Fill outcome.
type OrderRecord struct {
	Ts                      int64           `json:"ts"`
	Order                   Order           `json:"order"`
	User                    xid.ID          `json:"user"`
	Authority               xid.ID          `json:"authority"`
	Action                  OrderAction     `json:"action"`
	Filler                  xid.ID          `json:"filler"`
	TradeRecordID           uint64          `json:"trade_record_id"`
	BaseAssetAmountFilled   decimal.Decimal `json:"base_asset_amount_filled"`
	QuoteAssetAmountFilled  decimal.Decimal `json:"quote_asset_amount_filled"`
	FillerReward            decimal.Decimal `json:"filler_reward"`
	Fee                     decimal.Decimal `json:"fee"`
	QuoteAssetAmountSurplus decimal.Decimal `json:"quote_asset_amount_surplus"`
}

// TradeRecord is emitted once per executed trade, carrying the market's
// monotonic record id.
type TradeRecord struct {
	Ts                      int64             `json:"ts"`
	RecordID                uint64            `json:"record_id"`
	UserAuthority           xid.ID            `json:"user_authority"`
	User                    xid.ID            `json:"user"`
	Direction               PositionDirection `json:"direction"`
	BaseAssetAmount         decimal.Decimal   `json:"base_asset_amount"`
	QuoteAssetAmount        decimal.Decimal   `json:"quote_asset_amount"`
	MarkPriceBefore         decimal.Decimal   `json:"mark_price_before"`
	MarkPriceAfter          decimal.Decimal   `json:"mark_price_after"`
	Fee                     decimal.Decimal   `json:"fee"`
	TokenDiscount           decimal.Decimal   `json:"token_discount"`
	RefereeDiscount         decimal.Decimal   `json:"referee_discount"`
	QuoteAssetAmountSurplus decimal.Decimal   `json:"quote_asset_amount_surplus"`
	Liquidation             bool              `json:"liquidation"`
	MarketIndex             uint64            `json:"market_index"`
	OraclePrice             decimal.Decimal   `json:"oracle_price"`
}

// EventSink receives the engine's append-only audit records. Implementations
// must treat the stream as ordered and append-only.
type EventSink interface {
	PublishOrderRecords(...*OrderRecord)
	PublishTradeRecords(...*TradeRecord)
}

// MemoryEventSink stores records in memory, useful for testing.
type MemoryEventSink struct {
	mu           sync.RWMutex
	OrderRecords []*OrderRecord
	TradeRecords []*TradeRecord
}

// NewMemoryEventSink creates a new MemoryEventSink.
func NewMemoryEventSink() *MemoryEventSink {
	return &MemoryEventSink{
		OrderRecords: make([]*OrderRecord, 0),
		TradeRecords: make([]*TradeRecord, 0),
	}
}

// PublishOrderRecords appends order records to the in-memory slice.
func (m *MemoryEventSink) PublishOrderRecords(records ...*OrderRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		cpy := new(OrderRecord)
		*cpy = *r
		m.OrderRecords = append(m.OrderRecords, cpy)
	}
}

// PublishTradeRecords appends trade records to the in-memory slice.
func (m *MemoryEventSink) PublishTradeRecords(records ...*TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		cpy := new(TradeRecord)
		*cpy = *r
		m.TradeRecords = append(m.TradeRecords, cpy)
	}
}

// OrderRecordCount returns the number of order records stored.
func (m *MemoryEventSink) OrderRecordCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.OrderRecords)
}

// TradeRecordCount returns the number of trade records stored.
func (m *MemoryEventSink) TradeRecordCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.TradeRecords)
}

// LastOrderRecord returns the most recent order record, or nil.
func (m *MemoryEventSink) LastOrderRecord() *OrderRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.OrderRecords) == 0 {
		return nil
	}
	return m.OrderRecords[len(m.OrderRecords)-1]
}

// LastTradeRecord returns the most recent trade record, or nil.
func (m *MemoryEventSink) LastTradeRecord() *TradeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.TradeRecords) == 0 {
		return nil
	}
	return m.TradeRecords[len(m.TradeRecords)-1]
}

// DiscardEventSink drops all records, useful for benchmarking.
type DiscardEventSink struct{}

// NewDiscardEventSink creates a new DiscardEventSink.
func NewDiscardEventSink() *DiscardEventSink {
	return &DiscardEventSink{}
}

// PublishOrderRecords does nothing.
func (p *DiscardEventSink) PublishOrderRecords(...*OrderRecord) {}

// PublishTradeRecords does nothing.
func (p *DiscardEventSink) PublishTradeRecords(...*TradeRecord) {}
