// Package eventlog persists the engine's audit records to a Pebble store so
// the order and trade history survives restarts and can be replayed.
package eventlog

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	clearing "github.com/wphan/protocol-v2"
)

const (
	orderKeyPrefix = "order/"
	tradeKeyPrefix = "trade/"
)

// Log is a durable EventSink. Records are keyed by a monotonic sequence
// number per stream, zero padded so byte order equals append order.
type Log struct {
	mu       sync.Mutex
	db       *pebble.DB
	orderSeq uint64
	tradeSeq uint64
}

// Open opens or creates the event log at dir and restores the sequence
// counters from the highest keys present.
func Open(dir string) (*Log, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	l := &Log{db: db}
	if l.orderSeq, err = lastSequence(db, orderKeyPrefix); err != nil {
		db.Close()
		return nil, err
	}
	if l.tradeSeq, err = lastSequence(db, tradeKeyPrefix); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close flushes and closes the underlying store.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

// PublishOrderRecords appends order records durably. Write failures are
// logged and dropped; the sink contract has no error channel.
func (l *Log) PublishOrderRecords(records ...*clearing.OrderRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.orderSeq++
		l.append(orderKey(l.orderSeq), r)
	}
}

// PublishTradeRecords appends trade records durably.
func (l *Log) PublishTradeRecords(records ...*clearing.TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		l.tradeSeq++
		l.append(tradeKey(l.tradeSeq), r)
	}
}

func (l *Log) append(key []byte, record any) {
	value, err := json.Marshal(record)
	if err != nil {
		logger.Error("marshal event record", "key", string(key), "err", err)
		return
	}
	if err := l.db.Set(key, value, pebble.Sync); err != nil {
		logger.Error("write event record", "key", string(key), "err", err)
	}
}

// ReplayOrderRecords streams the persisted order records in append order.
// The callback returns false to stop early.
func (l *Log) ReplayOrderRecords(fn func(*clearing.OrderRecord) bool) error {
	return l.replay(orderKeyPrefix, func(value []byte) (bool, error) {
		var r clearing.OrderRecord
		if err := json.Unmarshal(value, &r); err != nil {
			return false, err
		}
		return fn(&r), nil
	})
}

// ReplayTradeRecords streams the persisted trade records in append order.
func (l *Log) ReplayTradeRecords(fn func(*clearing.TradeRecord) bool) error {
	return l.replay(tradeKeyPrefix, func(value []byte) (bool, error) {
		var r clearing.TradeRecord
		if err := json.Unmarshal(value, &r); err != nil {
			return false, err
		}
		return fn(&r), nil
	})
}

func (l *Log) replay(prefix string, fn func([]byte) (bool, error)) error {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("replay %s: %w", prefix, err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		keep, err := fn(iter.Value())
		if err != nil {
			return fmt.Errorf("replay %s: %w", prefix, err)
		}
		if !keep {
			break
		}
	}
	return iter.Error()
}

// lastSequence finds the highest sequence number under prefix.
func lastSequence(db *pebble.DB, prefix string) (uint64, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("restore %s sequence: %w", prefix, err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	var seq uint64
	if _, err := fmt.Sscanf(string(iter.Key()), prefix+"%d", &seq); err != nil {
		return 0, fmt.Errorf("restore %s sequence: %w", prefix, err)
	}
	return seq, iter.Error()
}

func orderKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", orderKeyPrefix, seq))
}

func tradeKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", tradeKeyPrefix, seq))
}

// upperBound is the exclusive end key for a prefix scan.
func upperBound(prefix string) []byte {
	b := []byte(prefix)
	b[len(b)-1]++
	return b
}
