package clearing

import "github.com/shopspring/decimal"

const secondsPerDay = 86400

// settleFundingPayment applies any funding accrued since the trader's
// positions last observed the cumulative rate. Longs pay positive rates,
// shorts receive them. Runs at the top of every state-mutating entry point.
func settleFundingPayment(user *User, markets map[uint64]*Market, now int64) error {
	for i := range user.Positions {
		pos := &user.Positions[i]
		if !pos.IsOpen() || pos.BaseAssetAmount.IsZero() {
			continue
		}
		market, ok := markets[pos.MarketIndex]
		if !ok {
			return ErrMarketNotFound
		}
		delta := market.AMM.CumulativeFundingRate.Sub(pos.LastCumulativeFundingRate)
		if delta.IsZero() {
			continue
		}
		payment := pos.BaseAssetAmount.Mul(delta)
		pos.UnsettledPnL = pos.UnsettledPnL.Sub(payment)
		pos.LastCumulativeFundingRate = market.AMM.CumulativeFundingRate

		logger.Debug("funding settled",
			"market_index", pos.MarketIndex,
			"payment", payment.String(),
			"ts", now,
		)
	}
	return nil
}

// updateFundingRate recomputes the market's funding rate from the premium of
// the reference mark price over the last observed oracle price, clamped by
// the divergence guard rail, and folds it into the cumulative rate. Runs at
// the end of every successful fill with the pre-fill mark price as reference.
func updateFundingRate(market *Market, now int64, _ uint64, rails *OracleGuardRails, fundingPaused bool, refMarkPrice *decimal.Decimal) error {
	if fundingPaused {
		return nil
	}
	if market.AMM.FundingPeriod <= 0 {
		return ErrMath
	}
	if now-market.AMM.LastFundingRateTs < market.AMM.FundingPeriod {
		return nil
	}

	markPrice, err := market.AMM.MarkPrice()
	if err != nil {
		return err
	}
	if refMarkPrice != nil {
		markPrice = *refMarkPrice
	}

	oraclePrice := market.AMM.LastOraclePrice
	if oraclePrice.Sign() <= 0 {
		return nil
	}

	premium, err := calculateOracleMarkSpreadPct(markPrice, oraclePrice)
	if err != nil {
		return err
	}

	bound := rails.PriceDivergence.MarkOracleDivergence
	if bound.Sign() > 0 {
		if premium.GreaterThan(bound) {
			premium = bound
		} else if premium.LessThan(bound.Neg()) {
			premium = bound.Neg()
		}
	}

	// Pro-rate the daily premium to one funding period.
	periods := decimal.NewFromInt(secondsPerDay).Div(decimal.NewFromInt(market.AMM.FundingPeriod))
	rate := premium.Mul(oraclePrice).Div(periods)

	market.AMM.LastFundingRate = rate
	market.AMM.CumulativeFundingRate = market.AMM.CumulativeFundingRate.Add(rate)
	market.AMM.LastFundingRateTs = now
	market.AMM.NetRevenueSinceLastFunding = decimal.Zero

	return nil
}
