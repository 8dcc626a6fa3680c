/*
This file defines the pool-level configuration surface: flow-model sensitivities
and the boost multiplier tables. Runtime pool state (balance, budget, lifecycle)
lives in the ledger package; everything here is read-only configuration.
*/

package types

import (
	"fmt"
	"sort"
)

// FlowParameters tunes the stock-flow model for one pool. All rates are daily
// fractions of TVL.
type FlowParameters struct {
	// BaseInflowRate is the organic daily deposit rate applied regardless of signals.
	BaseInflowRate float64 `json:"base_inflow_rate" yaml:"base_inflow_rate"`

	// BaseOutflowRate is the organic daily withdrawal rate.
	BaseOutflowRate float64 `json:"base_outflow_rate" yaml:"base_outflow_rate"`

	// APYSensitivity scales the response to the gap between effective APY and
	// APYThreshold.
	APYSensitivity float64 `json:"apy_sensitivity" yaml:"apy_sensitivity"`

	// PriceSensitivity scales the response to price momentum.
	PriceSensitivity float64 `json:"price_sensitivity" yaml:"price_sensitivity"`

	// MomentumFactor is the steepness of the sigmoid applied to the daily price
	// change when computing momentum.
	MomentumFactor float64 `json:"momentum_factor" yaml:"momentum_factor"`

	// APYThreshold is the effective APY at which stakers are indifferent:
	// above it yield attracts deposits, below it drives withdrawals.
	APYThreshold float64 `json:"apy_threshold" yaml:"apy_threshold"`

	// SmallPoolFloorUSD and LargePoolCeilingUSD bound the liquidity-scale
	// piecewise function. Pools below the floor react more strongly to yield
	// signals (SmallPoolAmplifier), pools above the ceiling react less
	// (LargePoolDampener), pools in between use scale 1.0.
	SmallPoolFloorUSD  float64 `json:"small_pool_floor_usd" yaml:"small_pool_floor_usd"`
	LargePoolCeilingUSD float64 `json:"large_pool_ceiling_usd" yaml:"large_pool_ceiling_usd"`
	SmallPoolAmplifier float64 `json:"small_pool_amplifier" yaml:"small_pool_amplifier"`
	LargePoolDampener  float64 `json:"large_pool_dampener" yaml:"large_pool_dampener"`

	// NoiseStdDev, when positive, adds seeded Gaussian noise to the daily
	// inflow and outflow rates. Zero disables the noise term entirely.
	NoiseStdDev float64 `json:"noise_std_dev" yaml:"noise_std_dev"`
}

// Validate checks the flow parameters for internal consistency.
func (f FlowParameters) Validate() error {
	if f.BaseInflowRate < 0 || f.BaseOutflowRate < 0 {
		return fmt.Errorf("base flow rates must be non-negative (inflow=%f outflow=%f)", f.BaseInflowRate, f.BaseOutflowRate)
	}
	if f.SmallPoolFloorUSD < 0 || f.LargePoolCeilingUSD < 0 {
		return fmt.Errorf("liquidity scale breakpoints must be non-negative")
	}
	if f.LargePoolCeilingUSD > 0 && f.SmallPoolFloorUSD > f.LargePoolCeilingUSD {
		return fmt.Errorf("small pool floor %f exceeds large pool ceiling %f", f.SmallPoolFloorUSD, f.LargePoolCeilingUSD)
	}
	if f.NoiseStdDev < 0 {
		return fmt.Errorf("noise std dev must be non-negative, got %f", f.NoiseStdDev)
	}
	return nil
}

// PoolConfig is the scenario-level definition of one asset pool.
type PoolConfig struct {
	Asset Asset `json:"asset" yaml:"asset"`

	// InitialBalance is the pool TVL at t=0, in USD.
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`

	// InitialBudget seeds the allocated security budget at t=0. Later grants
	// arrive through the replenishment schedule.
	InitialBudget float64 `json:"initial_budget" yaml:"initial_budget"`

	// InitialLifecycle is either PoolActive or PoolInactive. Inactive pools
	// wait for an activation schedule entry.
	InitialLifecycle PoolLifecycle `json:"initial_lifecycle" yaml:"initial_lifecycle"`

	// TargetYield is the initial target APY, overridden over time by the
	// target-yield schedule.
	TargetYield float64 `json:"target_yield" yaml:"target_yield"`

	// MaxCap, when positive, suspends deposit processing for any day on which
	// TVL is at or above the cap. Zero means uncapped.
	MaxCap float64 `json:"max_cap" yaml:"max_cap"`

	Flow FlowParameters `json:"flow" yaml:"flow"`
}

// Validate checks a pool config before ledger registration.
func (p PoolConfig) Validate() error {
	if p.Asset == "" {
		return fmt.Errorf("pool config missing asset")
	}
	if p.InitialBalance < 0 {
		return fmt.Errorf("pool %s: initial balance must be non-negative, got %f", p.Asset, p.InitialBalance)
	}
	if p.InitialBudget < 0 {
		return fmt.Errorf("pool %s: initial budget must be non-negative, got %f", p.Asset, p.InitialBudget)
	}
	switch p.InitialLifecycle {
	case PoolActive, PoolInactive:
	default:
		return fmt.Errorf("pool %s: initial lifecycle must be active or inactive, got %q", p.Asset, p.InitialLifecycle)
	}
	if p.TargetYield < 0 {
		return fmt.Errorf("pool %s: target yield must be non-negative, got %f", p.Asset, p.TargetYield)
	}
	if p.MaxCap < 0 {
		return fmt.Errorf("pool %s: max cap must be non-negative, got %f", p.Asset, p.MaxCap)
	}
	if err := p.Flow.Validate(); err != nil {
		return fmt.Errorf("pool %s: %w", p.Asset, err)
	}
	return nil
}

// ShareTier is one rung of the pool-share boost ladder.
type ShareTier struct {
	// Threshold is the minimum agent_balance / pool_balance fraction for the tier.
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// Multiplier applied when the threshold is met or exceeded.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// BoostParameters holds the lock-period and pool-share multiplier tables shared
// by every pool.
type BoostParameters struct {
	// LockPeriodMultipliers maps lock duration in days to a reward multiplier.
	// Period 0 is the unlocked bucket and must be present with multiplier 1.0.
	LockPeriodMultipliers map[int]float64 `json:"lock_period_multipliers" yaml:"lock_period_multipliers"`

	// ShareTiers must be sorted ascending by threshold, with multipliers
	// non-decreasing. An agent below the lowest threshold gets 1.0.
	ShareTiers []ShareTier `json:"share_tiers" yaml:"share_tiers"`
}

// Validate enforces the monotonicity requirements on both tables.
func (b BoostParameters) Validate() error {
	mult, ok := b.LockPeriodMultipliers[0]
	if !ok {
		return fmt.Errorf("lock period table must include period 0 (unlocked bucket)")
	}
	if mult != 1.0 {
		return fmt.Errorf("lock period 0 multiplier must be 1.0, got %f", mult)
	}
	periods := make([]int, 0, len(b.LockPeriodMultipliers))
	for period, m := range b.LockPeriodMultipliers {
		if period < 0 {
			return fmt.Errorf("lock period must be non-negative, got %d", period)
		}
		if m < 1.0 {
			return fmt.Errorf("lock period %d multiplier must be >= 1.0, got %f", period, m)
		}
		periods = append(periods, period)
	}
	sort.Ints(periods)
	for i := 1; i < len(periods); i++ {
		if b.LockPeriodMultipliers[periods[i]] < b.LockPeriodMultipliers[periods[i-1]] {
			return fmt.Errorf("lock multipliers must be non-decreasing in period (period %d)", periods[i])
		}
	}

	for i, tier := range b.ShareTiers {
		if tier.Threshold <= 0 || tier.Threshold > 1 {
			return fmt.Errorf("share tier %d: threshold must be in (0, 1], got %f", i, tier.Threshold)
		}
		if tier.Multiplier < 1.0 {
			return fmt.Errorf("share tier %d: multiplier must be >= 1.0, got %f", i, tier.Multiplier)
		}
		if i > 0 {
			if tier.Threshold <= b.ShareTiers[i-1].Threshold {
				return fmt.Errorf("share tiers must be strictly ascending by threshold (tier %d)", i)
			}
			if tier.Multiplier < b.ShareTiers[i-1].Multiplier {
				return fmt.Errorf("share tier multipliers must be non-decreasing (tier %d)", i)
			}
		}
	}
	return nil
}

// LockPeriods returns the configured lock periods sorted ascending.
func (b BoostParameters) LockPeriods() []int {
	periods := make([]int, 0, len(b.LockPeriodMultipliers))
	for period := range b.LockPeriodMultipliers {
		periods = append(periods, period)
	}
	sort.Ints(periods)
	return periods
}
