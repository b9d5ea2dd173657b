package clearing

import "github.com/shopspring/decimal"

// DiscountTokenTier lowers a trader's fee when they hold at least
// MinimumBalance of the discount token.
type DiscountTokenTier struct {
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	Discount       decimal.Decimal `json:"discount"` // fraction of the fee waived
}

// ReferralDiscount splits fee relief between referee and referrer.
type ReferralDiscount struct {
	ReferrerReward  decimal.Decimal `json:"referrer_reward"`  // fraction of the fee paid to the referrer
	RefereeDiscount decimal.Decimal `json:"referee_discount"` // fraction of the fee waived for the referee
}

// FeeStructure is the exchange-wide fee schedule.
type FeeStructure struct {
	FeeRate          decimal.Decimal      `json:"fee_rate"`          // taker fee as a fraction of quote volume
	MakerRebateRate  decimal.Decimal      `json:"maker_rebate_rate"` // post-only rebate as a fraction of quote volume
	DiscountTiers    [4]DiscountTokenTier `json:"discount_tiers"`    // first..fourth, ascending balance requirement
	ReferralDiscount ReferralDiscount     `json:"referral_discount"`
}

// FillerRewardStructure pays third-party fillers for crank work. The reward
// is the smaller of a fee share and a time-ramped flat amount, so stale
// orders stay cheap to fill but fresh fills never overpay.
type FillerRewardStructure struct {
	RewardFraction decimal.Decimal `json:"reward_fraction"` // fraction of the trader fee
	TimeBasedReward decimal.Decimal `json:"time_based_reward"` // flat reward at full ramp
	TimeBasedRewardFullRampSecs int64 `json:"time_based_reward_full_ramp_secs"`
}

// calculateOrderFeeTier resolves the discount tier from the trader's
// discount-token balance at placement time. Zero balance means no tier.
func calculateOrderFeeTier(fees *FeeStructure, discountTokenBalance decimal.Decimal) OrderDiscountTier {
	if discountTokenBalance.Sign() <= 0 {
		return DiscountTierNone
	}
	tier := DiscountTierNone
	for i := range fees.DiscountTiers {
		if discountTokenBalance.GreaterThanOrEqual(fees.DiscountTiers[i].MinimumBalance) {
			tier = OrderDiscountTier(i + 1)
		}
	}
	return tier
}

// tierDiscount returns the fee fraction waived for the tier.
func (f *FeeStructure) tierDiscount(tier OrderDiscountTier) decimal.Decimal {
	if tier == DiscountTierNone {
		return decimal.Zero
	}
	return f.DiscountTiers[tier-1].Discount
}

// orderFeeBreakdown is the per-fill fee split.
type orderFeeBreakdown struct {
	UserFee         decimal.Decimal // signed; negative is a rebate to the trader
	FeeToMarket     decimal.Decimal
	TokenDiscount   decimal.Decimal
	FillerReward    decimal.Decimal
	ReferrerReward  decimal.Decimal
	RefereeDiscount decimal.Decimal
}

// calculateFeeForOrder computes the trader fee, the filler and referrer
// rewards, and what the market keeps. Post-only fills are maker trades: the
// trader earns a rebate and the market keeps the quote surplus the maker
// price left on the curve. Conservation holds in both paths:
//
//	feeToMarket = userFee + surplus - fillerReward - referrerReward
func calculateFeeForOrder(
	quoteAssetAmount decimal.Decimal,
	fees *FeeStructure,
	fillerRewards *FillerRewardStructure,
	discountTier OrderDiscountTier,
	orderTs int64,
	now int64,
	hasReferrer bool,
	fillerIsUser bool,
	quoteAssetAmountSurplus decimal.Decimal,
	postOnly bool,
) orderFeeBreakdown {
	var b orderFeeBreakdown

	if postOnly {
		rebate := quoteAssetAmount.Mul(fees.MakerRebateRate)
		b.UserFee = rebate.Neg()
		if !fillerIsUser {
			b.FillerReward = decimal.Min(
				fillerTimeBasedReward(fillerRewards, orderTs, now),
				quoteAssetAmountSurplus,
			)
			if b.FillerReward.IsNegative() {
				b.FillerReward = decimal.Zero
			}
		}
	} else {
		rawFee := quoteAssetAmount.Mul(fees.FeeRate)
		b.TokenDiscount = rawFee.Mul(fees.tierDiscount(discountTier))
		if hasReferrer {
			b.RefereeDiscount = rawFee.Mul(fees.ReferralDiscount.RefereeDiscount)
			b.ReferrerReward = rawFee.Mul(fees.ReferralDiscount.ReferrerReward)
		}
		b.UserFee = rawFee.Sub(b.TokenDiscount).Sub(b.RefereeDiscount)
		if !fillerIsUser {
			b.FillerReward = decimal.Min(
				b.UserFee.Mul(fillerRewards.RewardFraction),
				fillerTimeBasedReward(fillerRewards, orderTs, now),
			)
			if b.FillerReward.IsNegative() {
				b.FillerReward = decimal.Zero
			}
		}
	}

	b.FeeToMarket = b.UserFee.
		Add(quoteAssetAmountSurplus).
		Sub(b.FillerReward).
		Sub(b.ReferrerReward)

	return b
}

// fillerTimeBasedReward ramps linearly with order age up to the configured
// full-ramp horizon.
func fillerTimeBasedReward(fillerRewards *FillerRewardStructure, orderTs, now int64) decimal.Decimal {
	if fillerRewards.TimeBasedRewardFullRampSecs <= 0 {
		return fillerRewards.TimeBasedReward
	}
	age := now - orderTs
	if age <= 0 {
		return decimal.Zero
	}
	if age >= fillerRewards.TimeBasedRewardFullRampSecs {
		return fillerRewards.TimeBasedReward
	}
	ramp := decimal.NewFromInt(age).Div(decimal.NewFromInt(fillerRewards.TimeBasedRewardFullRampSecs))
	return fillerRewards.TimeBasedReward.Mul(ramp)
}
