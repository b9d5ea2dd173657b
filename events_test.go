package clearing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMemoryEventSinkCopiesRecords(t *testing.T) {
	sink := NewMemoryEventSink()

	record := &OrderRecord{Action: OrderActionPlace, TradeRecordID: 1}
	sink.PublishOrderRecords(record)

	// Mutating the published record must not reach the stored copy.
	record.TradeRecordID = 99
	assert.Equal(t, uint64(1), sink.LastOrderRecord().TradeRecordID)
	assert.Equal(t, 1, sink.OrderRecordCount())

	trade := &TradeRecord{RecordID: 7, BaseAssetAmount: decimal.NewFromInt(10)}
	sink.PublishTradeRecords(trade)
	assert.Equal(t, 1, sink.TradeRecordCount())
	assert.Equal(t, uint64(7), sink.LastTradeRecord().RecordID)
}

func TestMemoryEventSinkEmpty(t *testing.T) {
	sink := NewMemoryEventSink()
	assert.Nil(t, sink.LastOrderRecord())
	assert.Nil(t, sink.LastTradeRecord())
}

func TestDiscardEventSink(t *testing.T) {
	sink := NewDiscardEventSink()
	sink.PublishOrderRecords(&OrderRecord{})
	sink.PublishTradeRecords(&TradeRecord{})
}
