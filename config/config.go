// Package config loads exchange configuration from YAML files into the
// engine's State.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	clearing "github.com/wphan/protocol-v2"
)

// Config is the YAML shape of the exchange configuration. Decimal fields are
// strings so operators can write exact values like "0.001".
type Config struct {
	ExchangePaused bool `yaml:"exchange_paused"`
	FundingPaused  bool `yaml:"funding_paused"`

	Fees         FeesConfig         `yaml:"fees"`
	FillerReward FillerRewardConfig `yaml:"filler_reward"`
	Oracle       OracleConfig       `yaml:"oracle"`

	AuctionDurationSecs          int64 `yaml:"auction_duration_secs"`
	PostOnlyCancelProtectionSecs int64 `yaml:"post_only_cancel_protection_secs"`

	InitialMarginRatio string `yaml:"initial_margin_ratio"`
}

// FeesConfig is the fee schedule section.
type FeesConfig struct {
	FeeRate         string               `yaml:"fee_rate"`
	MakerRebateRate string               `yaml:"maker_rebate_rate"`
	DiscountTiers   []DiscountTierConfig `yaml:"discount_tiers"`
	ReferrerReward  string               `yaml:"referrer_reward"`
	RefereeDiscount string               `yaml:"referee_discount"`
}

// DiscountTierConfig is one discount-token tier.
type DiscountTierConfig struct {
	MinimumBalance string `yaml:"minimum_balance"`
	Discount       string `yaml:"discount"`
}

// FillerRewardConfig is the filler reward section.
type FillerRewardConfig struct {
	RewardFraction              string `yaml:"reward_fraction"`
	TimeBasedReward             string `yaml:"time_based_reward"`
	TimeBasedRewardFullRampSecs int64  `yaml:"time_based_reward_full_ramp_secs"`
}

// OracleConfig is the oracle guard rail section.
type OracleConfig struct {
	SlotsBeforeStale          uint64 `yaml:"slots_before_stale"`
	ConfidenceIntervalMaxSize string `yaml:"confidence_interval_max_size"`
	MarkOracleDivergence      string `yaml:"mark_oracle_divergence"`
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for structural problems before any
// decimal parsing happens.
func (c *Config) Validate() error {
	if len(c.Fees.DiscountTiers) > 4 {
		return fmt.Errorf("config: at most 4 discount tiers, got %d", len(c.Fees.DiscountTiers))
	}
	if c.AuctionDurationSecs < 0 {
		return fmt.Errorf("config: auction_duration_secs must not be negative")
	}
	if c.PostOnlyCancelProtectionSecs < 0 {
		return fmt.Errorf("config: post_only_cancel_protection_secs must not be negative")
	}
	return nil
}

// State converts the configuration into an engine State. Empty decimal
// strings fall back to the defaults.
func (c *Config) State() (*clearing.State, error) {
	state := clearing.DefaultState()

	state.ExchangePaused = c.ExchangePaused
	state.FundingPaused = c.FundingPaused
	if c.AuctionDurationSecs > 0 {
		state.AuctionDurationSecs = c.AuctionDurationSecs
	}
	state.PostOnlyCancelProtectionSecs = c.PostOnlyCancelProtectionSecs

	var err error
	if state.InitialMarginRatio, err = parseDecimal("initial_margin_ratio", c.InitialMarginRatio, state.InitialMarginRatio); err != nil {
		return nil, err
	}
	if state.InitialMarginRatio.Sign() <= 0 {
		return nil, fmt.Errorf("config: initial_margin_ratio must be positive")
	}

	if state.FeeStructure.FeeRate, err = parseDecimal("fee_rate", c.Fees.FeeRate, state.FeeStructure.FeeRate); err != nil {
		return nil, err
	}
	if state.FeeStructure.MakerRebateRate, err = parseDecimal("maker_rebate_rate", c.Fees.MakerRebateRate, state.FeeStructure.MakerRebateRate); err != nil {
		return nil, err
	}
	if state.FeeStructure.ReferralDiscount.ReferrerReward, err = parseDecimal("referrer_reward", c.Fees.ReferrerReward, state.FeeStructure.ReferralDiscount.ReferrerReward); err != nil {
		return nil, err
	}
	if state.FeeStructure.ReferralDiscount.RefereeDiscount, err = parseDecimal("referee_discount", c.Fees.RefereeDiscount, state.FeeStructure.ReferralDiscount.RefereeDiscount); err != nil {
		return nil, err
	}

	for i, tier := range c.Fees.DiscountTiers {
		minBalance, err := parseDecimal(fmt.Sprintf("discount_tiers[%d].minimum_balance", i), tier.MinimumBalance, decimal.Zero)
		if err != nil {
			return nil, err
		}
		disc, err := parseDecimal(fmt.Sprintf("discount_tiers[%d].discount", i), tier.Discount, decimal.Zero)
		if err != nil {
			return nil, err
		}
		if disc.IsNegative() || disc.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("config: discount_tiers[%d].discount must be in [0, 1]", i)
		}
		state.FeeStructure.DiscountTiers[i] = clearing.DiscountTokenTier{
			MinimumBalance: minBalance,
			Discount:       disc,
		}
	}

	if state.FillerRewardStructure.RewardFraction, err = parseDecimal("reward_fraction", c.FillerReward.RewardFraction, state.FillerRewardStructure.RewardFraction); err != nil {
		return nil, err
	}
	if state.FillerRewardStructure.TimeBasedReward, err = parseDecimal("time_based_reward", c.FillerReward.TimeBasedReward, state.FillerRewardStructure.TimeBasedReward); err != nil {
		return nil, err
	}
	if c.FillerReward.TimeBasedRewardFullRampSecs > 0 {
		state.FillerRewardStructure.TimeBasedRewardFullRampSecs = c.FillerReward.TimeBasedRewardFullRampSecs
	}

	if c.Oracle.SlotsBeforeStale > 0 {
		state.OracleGuardRails.Validity.SlotsBeforeStale = c.Oracle.SlotsBeforeStale
	}
	if state.OracleGuardRails.Validity.ConfidenceIntervalMaxSize, err = parseDecimal("confidence_interval_max_size", c.Oracle.ConfidenceIntervalMaxSize, state.OracleGuardRails.Validity.ConfidenceIntervalMaxSize); err != nil {
		return nil, err
	}
	if state.OracleGuardRails.PriceDivergence.MarkOracleDivergence, err = parseDecimal("mark_oracle_divergence", c.Oracle.MarkOracleDivergence, state.OracleGuardRails.PriceDivergence.MarkOracleDivergence); err != nil {
		return nil, err
	}

	return state, nil
}

func parseDecimal(name, raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", name, err)
	}
	return d, nil
}
