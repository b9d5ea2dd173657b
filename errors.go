package clearing

import "errors"

// Closed error vocabulary for the order engine. Every fallible step returns
// one of these; the first failure aborts the whole call and the caller's
// records are left untouched.
var (
	// Input validation
	ErrInvalidOrder            = errors.New("invalid order")
	ErrUserOrderIDAlreadyInUse = errors.New("user order id already in use")
	ErrOrderAmountTooSmall     = errors.New("order amount too small")
	ErrTradeSizeTooSmall       = errors.New("trade size too small")

	// State
	ErrMaxNumberOfOrders    = errors.New("max number of orders taken")
	ErrMaxNumberOfPositions = errors.New("max number of positions taken")
	ErrOrderDoesNotExist    = errors.New("order does not exist")
	ErrOrderNotOpen         = errors.New("order not open")
	ErrMarketNotFound       = errors.New("market not found")

	// Risk
	ErrInsufficientCollateral       = errors.New("insufficient collateral")
	ErrReduceOnlyOrderIncreasedRisk = errors.New("reduce only order increased risk")
	ErrCantCancelPostOnlyOrder      = errors.New("cant cancel post only order")

	// Market condition
	ErrOracleMarkSpreadLimit           = errors.New("oracle/mark spread too large")
	ErrAMMNotUpdatedInSameSlot         = errors.New("amm not updated in same slot")
	ErrSlippageOutsideLimit            = errors.New("slippage outside limit price")
	ErrInvalidOracle                   = errors.New("invalid oracle")
	ErrOracleNotFound                  = errors.New("oracle not found")
	ErrExchangePaused                  = errors.New("exchange is paused")
	ErrAuctionPriceDoesNotSatisfyMaker = errors.New("auction price does not satisfy maker")

	// Arithmetic
	ErrMath = errors.New("math error")
)
