/*

This file contains the default economic parameters for the simulator.

These values reproduce the calibrated baseline staking economy: a native token
pool plus two deposited-asset pools, boost tables that reward long locks and
concentrated positions, and flow sensitivities tuned so pools react to yield
and price signals without oscillating.

Scenario files may override any of these; the defaults are used when a
scenario omits the corresponding section.

*/

package config

import (
	"github.com/avail-network/stakesim/internal/types"
)

// DefaultExcessBudgetRatio triggers the excess-budget diagnostic when a pool's
// remaining budget exceeds this multiple of its daily reward demand.
// Rationale: a 10x buffer is one-and-a-half weeks of runway; anything beyond
// that sitting idle means the replenishment schedule is mis-sized.
const DefaultExcessBudgetRatio = 10.0

// DefaultDeltaDays is the simulated duration of one timestep. The model is a
// daily-clock simulation; fractional steps are supported by the reward math
// but untested territory for the flow calibration.
const DefaultDeltaDays = 1.0

// DefaultBoostParameters provides the baseline lock-period and pool-share
// multiplier tables.
var DefaultBoostParameters = types.BoostParameters{
	LockPeriodMultipliers: map[int]float64{
		0: 1.0, // Unlocked balance earns the base rate.

		30: 1.05, // A month commits through short-term volatility; worth a nudge.

		60: 1.1, // Two months doubles the 30-day bonus.

		180: 1.5, // Half-year locks anchor the pool's TVL floor and get the
		// headline boost used in marketing material.
	},

	ShareTiers: []types.ShareTier{
		{Threshold: 0.01, Multiplier: 1.1},
		// Rationale: holding 1% of a pool already represents meaningful
		// alignment; the small bump rewards it without distorting payouts.

		{Threshold: 0.10, Multiplier: 2.5},
		// Rationale: a 10% holder is an anchor staker whose exit would move
		// the pool. The steep tier makes anchor positions sticky. Combined
		// with a 180-day lock this deliberately exceeds 2x overall.
	},
}

// DefaultFlowParameters is the baseline stock-flow tuning applied to pools
// whose scenario omits flow settings.
var DefaultFlowParameters = types.FlowParameters{
	BaseInflowRate: 0.001, // 0.1%/day organic deposits.
	// Rationale: matches observed steady-state growth of mature staking pools
	// absent any yield or price signal.

	BaseOutflowRate: 0.0005, // 0.05%/day organic withdrawals.
	// Rationale: organic churn runs at roughly half the organic inflow, so a
	// signal-neutral pool drifts slowly upward.

	APYSensitivity: 0.05,
	// Rationale: a 1-point APY gap moves daily flow by 5 bps at scale 1.0.
	// Larger values made pools overshoot their equilibrium in calibration.

	PriceSensitivity: 0.5,
	// Rationale: momentum chasing is real but secondary to yield; half-weight
	// keeps price action from dominating flow decisions.

	MomentumFactor: 10.0,
	// Rationale: sigmoid steepness such that a 10% daily move produces
	// momentum of about 0.46, i.e. strong but not saturated.

	APYThreshold: 0.05, // 5% is the indifference yield.
	// Rationale: stakers compare against broad-market risk-free staking
	// yields; above 5% a pool attracts capital, below it bleeds.

	SmallPoolFloorUSD:   1_000_000,
	LargePoolCeilingUSD: 1_000_000_000,
	// Rationale: below $1M TVL, marginal capital is large relative to the
	// pool so reactions amplify; above $1B the marginal staker barely moves
	// the needle.

	SmallPoolAmplifier: 2.0,
	LargePoolDampener:  0.5,

	NoiseStdDev: 0, // Deterministic by default; scenarios opt in to noise.
}

// DefaultLockPreferences maps the standard agent classes to their relock
// behavior for the native asset. Used by scenarios that reference the
// built-in classes without overriding preferences.
var DefaultLockPreferences = map[string]int{
	"avl_maxi":      180, // Conviction holders relock at maximum boost.
	"long_term":     60,
	"medium_term":   30,
	"yield_tourist": 0, // Tourists never lock; they need the exit open.
}
