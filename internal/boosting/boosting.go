/*
This file implements the lock and boost subsystem: time-locked stake tranches
per agent, the unlock pass, and the lock-period / pool-share reward multipliers.

Locking never changes an agent's total balance, only its composition: a lock
consumes unlocked balance and creates a LockedStake tranche that merges back
when it matures. There is no early unlock.
*/

package boosting

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avail-network/stakesim/internal/logger"
	"github.com/avail-network/stakesim/internal/types"
)

// Subsystem evaluates locks and multipliers against one shared boost table.
type Subsystem struct {
	params types.BoostParameters
	logger zerolog.Logger
}

// New validates the boost tables and returns the subsystem.
func New(params types.BoostParameters) (*Subsystem, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid boost parameters: %w", err)
	}
	return &Subsystem{
		params: params,
		logger: logger.GetForComponent("boosting"),
	}, nil
}

// Params returns the boost tables the subsystem was built with.
func (s *Subsystem) Params() types.BoostParameters {
	return s.params
}

// Lock converts part of an agent's unlocked balance into a locked tranche.
// A period of 0 is legal and a no-op: the amount simply stays unlocked.
func (s *Subsystem) Lock(agent *types.Agent, asset types.Asset, amount float64, lockPeriodDays int, timestep int) error {
	if amount <= 0 {
		return fmt.Errorf("lock amount must be positive, got %f", amount)
	}
	if _, ok := s.params.LockPeriodMultipliers[lockPeriodDays]; !ok {
		return fmt.Errorf("%w: %d days not in configured set %v",
			types.ErrInvalidLockPeriod, lockPeriodDays, s.params.LockPeriods())
	}

	alloc := agent.Allocation(asset)
	if unlocked := alloc.UnlockedBalance(); amount > unlocked {
		return fmt.Errorf("%w: agent=%s asset=%s requested=%f unlocked=%f",
			types.ErrInsufficientUnlockedBalance, agent.Name, asset, amount, unlocked)
	}

	if lockPeriodDays == 0 {
		return nil
	}

	alloc.LockedStakes = append(alloc.LockedStakes, types.LockedStake{
		Amount:         amount,
		LockPeriodDays: lockPeriodDays,
		StartTimestep:  timestep,
		UnlockTimestep: timestep + lockPeriodDays,
	})

	s.logger.Debug().
		Str("agent", agent.Name).
		Str("asset", string(asset)).
		Float64("amount", amount).
		Int("period_days", lockPeriodDays).
		Int("unlock_timestep", timestep+lockPeriodDays).
		Msg("Stake locked")
	return nil
}

// ProcessUnlocks removes every matured tranche for the agent/asset and returns
// the total amount released back to the unlocked balance. Idempotent: a second
// call at the same timestep releases nothing.
func (s *Subsystem) ProcessUnlocks(agent *types.Agent, asset types.Asset, timestep int) float64 {
	alloc, ok := agent.Assets[asset]
	if !ok || len(alloc.LockedStakes) == 0 {
		return 0
	}

	released := 0.0
	remaining := alloc.LockedStakes[:0]
	for _, stake := range alloc.LockedStakes {
		if stake.UnlockTimestep <= timestep {
			released += stake.Amount
			continue
		}
		remaining = append(remaining, stake)
	}
	alloc.LockedStakes = remaining

	if released > 0 {
		s.logger.Debug().
			Str("agent", agent.Name).
			Str("asset", string(asset)).
			Int("timestep", timestep).
			Float64("released", released).
			Msg("Matured stakes unlocked")
	}
	return released
}

// LockMultiplier computes the amount-weighted average multiplier across the
// agent's lock buckets, with the unlocked balance counting as the period-0
// bucket. Returns 1.0 for an empty allocation.
func (s *Subsystem) LockMultiplier(agent *types.Agent, asset types.Asset) float64 {
	alloc, ok := agent.Assets[asset]
	if !ok || alloc.Balance <= 0 {
		return 1.0
	}

	weighted := alloc.UnlockedBalance() * s.params.LockPeriodMultipliers[0]
	for _, stake := range alloc.LockedStakes {
		mult, ok := s.params.LockPeriodMultipliers[stake.LockPeriodDays]
		if !ok {
			// Tranche periods are validated at lock time, so this only
			// happens if the table changed mid-run.
			mult = 1.0
		}
		weighted += stake.Amount * mult
	}
	return weighted / alloc.Balance
}

// ShareMultiplier returns the multiplier of the highest tier whose threshold
// the agent's pool share meets or exceeds, or 1.0 below the lowest tier.
func (s *Subsystem) ShareMultiplier(agentBalance, poolTotalBalance float64) float64 {
	if agentBalance <= 0 || poolTotalBalance <= 0 {
		return 1.0
	}
	share := agentBalance / poolTotalBalance

	multiplier := 1.0
	for _, tier := range s.params.ShareTiers {
		if share >= tier.Threshold {
			multiplier = tier.Multiplier
		}
	}
	return multiplier
}

// BoostMultiplier is the combined lock x share multiplier. No upper clamp:
// concentrated, long-locked positions can legitimately exceed 2x.
func (s *Subsystem) BoostMultiplier(agent *types.Agent, asset types.Asset, poolTotalBalance float64) float64 {
	alloc, ok := agent.Assets[asset]
	if !ok {
		return 1.0
	}
	return s.LockMultiplier(agent, asset) * s.ShareMultiplier(alloc.Balance, poolTotalBalance)
}

// LockDistribution returns the amount held per lock-period bucket, with the
// unlocked balance in bucket 0. Used for snapshots.
func (s *Subsystem) LockDistribution(agent *types.Agent, asset types.Asset) map[int]float64 {
	alloc, ok := agent.Assets[asset]
	if !ok || alloc.Balance <= 0 {
		return nil
	}
	dist := map[int]float64{0: alloc.UnlockedBalance()}
	for _, stake := range alloc.LockedStakes {
		dist[stake.LockPeriodDays] += stake.Amount
	}
	return dist
}
