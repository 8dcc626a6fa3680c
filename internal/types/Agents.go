/*
This file defines staker agents and their per-asset allocations, including the
locked-stake records that back the lock-period boost.

An agent models a behavioral class of stakers (restake-everything maximalists,
yield tourists, ...) rather than an individual wallet. Deposits attributed to an
agent grow its class balance; there is no per-wallet identity.
*/

package types

// LockedStake is one time-locked tranche of an agent's per-asset balance.
// It is destroyed (merged back into the unlocked balance) once the current
// timestep reaches UnlockTimestep.
type LockedStake struct {
	Amount         float64 `json:"amount"`
	LockPeriodDays int     `json:"lock_period_days"`
	StartTimestep  int     `json:"start_timestep"`
	UnlockTimestep int     `json:"unlock_timestep"`
}

// AssetAllocation is one agent's position in one pool. Balance always covers
// the sum of locked stake amounts; locking only ever converts unlocked balance
// into locked balance.
type AssetAllocation struct {
	Balance      float64       `json:"balance"`
	LockedStakes []LockedStake `json:"locked_stakes,omitempty"`
}

// LockedBalance is the sum of all outstanding locked stake amounts.
func (a *AssetAllocation) LockedBalance() float64 {
	total := 0.0
	for _, stake := range a.LockedStakes {
		total += stake.Amount
	}
	return total
}

// UnlockedBalance is the freely withdrawable portion of the balance.
func (a *AssetAllocation) UnlockedBalance() float64 {
	unlocked := a.Balance - a.LockedBalance()
	if unlocked < 0 {
		return 0
	}
	return unlocked
}

// RewardTotals tracks cumulative rewards for one agent/asset pair, split by
// destination.
type RewardTotals struct {
	// Restaked rewards re-entered the pool under lock.
	Restaked float64 `json:"restaked"`
	// Liquid rewards were paid out claimable, outside pool TVL.
	Liquid float64 `json:"liquid"`
}

// Total is the cumulative reward paid regardless of destination.
func (r RewardTotals) Total() float64 {
	return r.Restaked + r.Liquid
}

// Agent is one behavioral staker class.
type Agent struct {
	Name string `json:"name"`

	// Assets holds the agent's position per pool. Absent entries mean zero.
	Assets map[Asset]*AssetAllocation `json:"assets"`

	// LockPreferences gives the lock period (days) applied when this agent's
	// restaked rewards are re-locked. Assets without an entry relock at 0.
	LockPreferences map[Asset]int `json:"lock_preferences"`

	// RestakeRatio in [0, 1] is the fraction of each reward payment that is
	// reinvested into the pool rather than paid out liquid.
	RestakeRatio float64 `json:"restake_ratio"`

	// Rewards accumulates lifetime payouts per asset.
	Rewards map[Asset]*RewardTotals `json:"rewards"`
}

// Allocation returns the agent's allocation for the asset, creating an empty
// one on first use.
func (ag *Agent) Allocation(asset Asset) *AssetAllocation {
	if ag.Assets == nil {
		ag.Assets = make(map[Asset]*AssetAllocation)
	}
	alloc, ok := ag.Assets[asset]
	if !ok {
		alloc = &AssetAllocation{}
		ag.Assets[asset] = alloc
	}
	return alloc
}

// LockPreference returns the agent's configured relock period for the asset,
// defaulting to 0 (unlocked).
func (ag *Agent) LockPreference(asset Asset) int {
	if ag.LockPreferences == nil {
		return 0
	}
	return ag.LockPreferences[asset]
}

// RewardTotalsFor returns the agent's cumulative reward record for the asset,
// creating it on first use.
func (ag *Agent) RewardTotalsFor(asset Asset) *RewardTotals {
	if ag.Rewards == nil {
		ag.Rewards = make(map[Asset]*RewardTotals)
	}
	totals, ok := ag.Rewards[asset]
	if !ok {
		totals = &RewardTotals{}
		ag.Rewards[asset] = totals
	}
	return totals
}
