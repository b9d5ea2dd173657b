package clearing

import (
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// PositionDirection is the side of a trading intent.
type PositionDirection int8

const (
	Long  PositionDirection = 1
	Short PositionDirection = 2
)

// OrderType classifies how an order executes.
type OrderType string

const (
	OrderTypeMarket        OrderType = "market"
	OrderTypeLimit         OrderType = "limit"
	OrderTypeTriggerMarket OrderType = "trigger_market"
	OrderTypeTriggerLimit  OrderType = "trigger_limit"
)

// OrderStatus is the lifecycle state of an order slot. There is no explicit
// filled or cancelled status: a slot that leaves Open is reset to its zero
// value, which is Init.
type OrderStatus int8

const (
	OrderStatusInit OrderStatus = 0
	OrderStatusOpen OrderStatus = 1
)

// TriggerCondition determines when a trigger order becomes executable.
type TriggerCondition int8

const (
	TriggerAbove TriggerCondition = 0
	TriggerBelow TriggerCondition = 1
)

// OrderDiscountTier is the fee schedule bucket resolved from the trader's
// discount-token balance at placement time.
type OrderDiscountTier uint8

const (
	DiscountTierNone   OrderDiscountTier = 0
	DiscountTierFirst  OrderDiscountTier = 1
	DiscountTierSecond OrderDiscountTier = 2
	DiscountTierThird  OrderDiscountTier = 3
	DiscountTierFourth OrderDiscountTier = 4
)

// OrderParams is the caller-supplied input for placing an order.
type OrderParams struct {
	OrderType         OrderType
	Direction         PositionDirection
	UserOrderID       uint8
	MarketIndex       uint64
	BaseAssetAmount   decimal.Decimal
	QuoteAssetAmount  decimal.Decimal
	Price             decimal.Decimal
	ReduceOnly        bool
	PostOnly          bool
	ImmediateOrCancel bool
	TriggerPrice      decimal.Decimal
	TriggerCondition  TriggerCondition
	OraclePriceOffset decimal.Decimal
}

// Order is one trading intent occupying a slot in a trader account.
type Order struct {
	Status            OrderStatus       `json:"status"`
	OrderType         OrderType         `json:"order_type"`
	Ts                int64             `json:"ts"`
	OrderID           uint64            `json:"order_id"`
	UserOrderID       uint8             `json:"user_order_id"`
	MarketIndex       uint64            `json:"market_index"`
	Price             decimal.Decimal   `json:"price"`
	UserBaseAssetAmount decimal.Decimal `json:"user_base_asset_amount"`
	BaseAssetAmount   decimal.Decimal   `json:"base_asset_amount"`
	QuoteAssetAmount  decimal.Decimal   `json:"quote_asset_amount"`
	BaseAssetAmountFilled  decimal.Decimal `json:"base_asset_amount_filled"`
	QuoteAssetAmountFilled decimal.Decimal `json:"quote_asset_amount_filled"`
	Fee               decimal.Decimal   `json:"fee"`
	Direction         PositionDirection `json:"direction"`
	ReduceOnly        bool              `json:"reduce_only"`
	PostOnly          bool              `json:"post_only"`
	ImmediateOrCancel bool              `json:"immediate_or_cancel"`
	DiscountTier      OrderDiscountTier `json:"discount_tier"`
	TriggerPrice      decimal.Decimal   `json:"trigger_price"`
	TriggerCondition  TriggerCondition  `json:"trigger_condition"`
	Referrer          xid.ID            `json:"referrer"`
	OraclePriceOffset decimal.Decimal   `json:"oracle_price_offset"`
	AuctionStartPrice decimal.Decimal   `json:"auction_start_price"`
	AuctionEndPrice   decimal.Decimal   `json:"auction_end_price"`
}

// BaseAssetAmountUnfilled returns the remaining unfilled base size.
func (o *Order) BaseAssetAmountUnfilled() decimal.Decimal {
	return o.BaseAssetAmount.Sub(o.BaseAssetAmountFilled)
}

// HasOraclePriceOffset reports whether the order is priced relative to the
// oracle rather than carrying an absolute limit price.
func (o *Order) HasOraclePriceOffset() bool {
	return !o.OraclePriceOffset.IsZero()
}

// LimitPrice resolves the order's effective limit price. Oracle-relative
// orders require a valid oracle price; the caller is responsible for having
// rejected them earlier when none is available.
func (o *Order) LimitPrice(validOraclePrice *decimal.Decimal) (decimal.Decimal, error) {
	if o.HasOraclePriceOffset() {
		if validOraclePrice == nil {
			return decimal.Zero, ErrOracleNotFound
		}
		return validOraclePrice.Add(o.OraclePriceOffset), nil
	}
	return o.Price, nil
}

// Triggered reports whether a trigger order's condition is satisfied at the
// given reference price. Non-trigger orders are always considered triggered.
func (o *Order) Triggered(price decimal.Decimal) bool {
	switch o.OrderType {
	case OrderTypeTriggerMarket, OrderTypeTriggerLimit:
	default:
		return true
	}
	if o.TriggerCondition == TriggerAbove {
		return price.GreaterThan(o.TriggerPrice)
	}
	return price.LessThan(o.TriggerPrice)
}

// StandardizeBaseAssetAmount rounds amount down to the market's step-size
// granularity.
func StandardizeBaseAssetAmount(amount, stepSize decimal.Decimal) (decimal.Decimal, error) {
	if stepSize.Sign() <= 0 {
		return decimal.Zero, ErrMath
	}
	steps := amount.Div(stepSize).Floor()
	return steps.Mul(stepSize), nil
}
