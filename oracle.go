package clearing

import "github.com/shopspring/decimal"

// OraclePriceData is one externally supplied reference price observation.
type OraclePriceData struct {
	Price                    decimal.Decimal
	Confidence               decimal.Decimal
	Delay                    uint64 // slots since the observation
	HasSufficientDataPoints  bool
}

// OracleSource supplies reference prices for one market. Retrieval itself is
// the host's concern; the engine only consumes the handle.
type OracleSource interface {
	GetOraclePrice(slot uint64) (OraclePriceData, error)
}

// ValidityGuardRails bound when an oracle observation may be trusted.
type ValidityGuardRails struct {
	SlotsBeforeStale          uint64          `json:"slots_before_stale"`
	ConfidenceIntervalMaxSize decimal.Decimal `json:"confidence_interval_max_size"` // max confidence/price ratio
}

// PriceDivergenceGuardRails bound how far mark may drift from oracle.
type PriceDivergenceGuardRails struct {
	MarkOracleDivergence decimal.Decimal `json:"mark_oracle_divergence"` // max |mark-oracle|/oracle
}

// OracleGuardRails groups the oracle safety thresholds.
type OracleGuardRails struct {
	Validity        ValidityGuardRails        `json:"validity"`
	PriceDivergence PriceDivergenceGuardRails `json:"price_divergence"`
}

// isOracleValid evaluates an observation against the validity guard rails.
func isOracleValid(data OraclePriceData, rails ValidityGuardRails) bool {
	if data.Price.Sign() <= 0 {
		return false
	}
	if data.Delay > rails.SlotsBeforeStale {
		return false
	}
	if !data.HasSufficientDataPoints {
		return false
	}
	if rails.ConfidenceIntervalMaxSize.Sign() > 0 &&
		data.Confidence.Div(data.Price).GreaterThan(rails.ConfidenceIntervalMaxSize) {
		return false
	}
	return true
}

// StaticOracle is a fixed price source, useful for tests and simulation.
type StaticOracle struct {
	Data OraclePriceData
}

// GetOraclePrice returns the configured observation regardless of slot.
func (s *StaticOracle) GetOraclePrice(_ uint64) (OraclePriceData, error) {
	return s.Data, nil
}
