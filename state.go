package clearing

import "github.com/shopspring/decimal"

// State is the exchange-wide configuration consumed by every entry point:
// fee schedule, oracle guard rails, auction timing, and pause switches.
type State struct {
	ExchangePaused bool `json:"exchange_paused"`
	FundingPaused  bool `json:"funding_paused"`

	FeeStructure          FeeStructure          `json:"fee_structure"`
	FillerRewardStructure FillerRewardStructure `json:"filler_reward_structure"`
	OracleGuardRails      OracleGuardRails      `json:"oracle_guard_rails"`

	AuctionDurationSecs          int64 `json:"auction_duration_secs"`
	PostOnlyCancelProtectionSecs int64 `json:"post_only_cancel_protection_secs"`

	InitialMarginRatio decimal.Decimal `json:"initial_margin_ratio"`
}

// DefaultState returns a workable configuration: 10bps taker fee, 2.5bps
// maker rebate, 10x initial leverage, 10% oracle divergence bound.
func DefaultState() *State {
	return &State{
		FeeStructure: FeeStructure{
			FeeRate:         decimal.RequireFromString("0.001"),
			MakerRebateRate: decimal.RequireFromString("0.00025"),
			DiscountTiers: [4]DiscountTokenTier{
				{MinimumBalance: decimal.NewFromInt(1000), Discount: decimal.RequireFromString("0.20")},
				{MinimumBalance: decimal.NewFromInt(10000), Discount: decimal.RequireFromString("0.25")},
				{MinimumBalance: decimal.NewFromInt(100000), Discount: decimal.RequireFromString("0.30")},
				{MinimumBalance: decimal.NewFromInt(1000000), Discount: decimal.RequireFromString("0.40")},
			},
			ReferralDiscount: ReferralDiscount{
				ReferrerReward:  decimal.RequireFromString("0.05"),
				RefereeDiscount: decimal.RequireFromString("0.05"),
			},
		},
		FillerRewardStructure: FillerRewardStructure{
			RewardFraction:              decimal.RequireFromString("0.10"),
			TimeBasedReward:             decimal.RequireFromString("0.01"),
			TimeBasedRewardFullRampSecs: 60,
		},
		OracleGuardRails: OracleGuardRails{
			Validity: ValidityGuardRails{
				SlotsBeforeStale:          10,
				ConfidenceIntervalMaxSize: decimal.RequireFromString("0.02"),
			},
			PriceDivergence: PriceDivergenceGuardRails{
				MarkOracleDivergence: decimal.RequireFromString("0.10"),
			},
		},
		AuctionDurationSecs:          10,
		PostOnlyCancelProtectionSecs: 0,
		InitialMarginRatio:           decimal.RequireFromString("0.10"),
	}
}
