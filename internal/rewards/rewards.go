/*
This file implements the reward allocation engine: per-pool daily reward
computation, boost application, budget-constrained pro-rata scaling, and the
restake/liquid split.

Fairness policy under budget scarcity: every agent's payout is scaled by the
same remaining/total_desired factor, preserving relative shares, and the pool
pays out exactly its remaining budget. A hard reward freeze is never used.
*/

package rewards

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/avail-network/stakesim/internal/boosting"
	"github.com/avail-network/stakesim/internal/ledger"
	"github.com/avail-network/stakesim/internal/logger"
	"github.com/avail-network/stakesim/internal/types"
)

const daysPerYear = 365.0

// AgentPayout details one agent's reward for one pool and timestep.
type AgentPayout struct {
	RawReward  float64
	Paid       float64
	Restaked   float64
	Liquid     float64
	Multiplier float64
}

// Result summarizes one pool's reward phase for one timestep.
type Result struct {
	Asset           types.Asset
	BaseDailyReward float64
	TotalDesired    float64
	TotalPaid       float64
	// ScaleFactor is 1.0 when the budget covered demand, otherwise
	// remaining/total_desired.
	ScaleFactor float64
	// RealizedAPY annualizes the total paid against the pre-reward TVL.
	RealizedAPY float64
	Payouts     map[string]AgentPayout
	// Excess is non-nil when the remaining budget dwarfs daily demand.
	Excess *types.ExcessBudgetSignal
}

// Engine allocates rewards against the ledger's budgets.
type Engine struct {
	ledger *ledger.Ledger
	boost  *boosting.Subsystem

	// deltaDays is the simulated duration of one timestep.
	deltaDays float64
	// excessRatio triggers the excess-budget diagnostic when
	// remaining > excessRatio x total_desired after payout.
	excessRatio float64

	logger zerolog.Logger
}

// Config carries the engine's dependencies and tuning.
type Config struct {
	Ledger      *ledger.Ledger
	Boost       *boosting.Subsystem
	DeltaDays   float64
	ExcessRatio float64
}

// NewEngine validates the configuration and returns a reward engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("reward engine requires a ledger")
	}
	if cfg.Boost == nil {
		return nil, fmt.Errorf("reward engine requires the boosting subsystem")
	}
	if cfg.DeltaDays <= 0 {
		return nil, fmt.Errorf("delta days must be positive, got %f", cfg.DeltaDays)
	}
	if cfg.ExcessRatio <= 0 {
		return nil, fmt.Errorf("excess budget ratio must be positive, got %f", cfg.ExcessRatio)
	}
	return &Engine{
		ledger:      cfg.Ledger,
		boost:       cfg.Boost,
		deltaDays:   cfg.DeltaDays,
		excessRatio: cfg.ExcessRatio,
		logger:      logger.GetForComponent("reward_engine"),
	}, nil
}

// Allocate runs the full reward phase for one active pool. agentOrder fixes
// the iteration order over agents; it must be stable across runs for
// determinism. Restaked rewards are credited to pool TVL and re-locked at the
// agent's configured preference before returning.
func (e *Engine) Allocate(agents map[string]*types.Agent, agentOrder []string, asset types.Asset, timestep int) (Result, error) {
	pool, err := e.ledger.Pool(asset)
	if err != nil {
		return Result{}, err
	}
	if pool.Lifecycle != types.PoolActive {
		return Result{Asset: asset, ScaleFactor: 1.0}, nil
	}

	result := Result{
		Asset:       asset,
		ScaleFactor: 1.0,
		Payouts:     make(map[string]AgentPayout),
	}

	preRewardBalance := pool.Balance
	if preRewardBalance <= 0 || pool.TargetYield <= 0 {
		return result, nil
	}

	result.BaseDailyReward = pool.TargetYield * preRewardBalance * (e.deltaDays / daysPerYear)

	// Raw rewards are computed purely from TVL, yield and multipliers. Budget
	// availability only ever scales them down, never up.
	for _, name := range agentOrder {
		agent := agents[name]
		alloc, ok := agent.Assets[asset]
		if !ok || alloc.Balance <= 0 {
			continue
		}
		multiplier := e.boost.BoostMultiplier(agent, asset, preRewardBalance)
		raw := result.BaseDailyReward * (alloc.Balance / preRewardBalance) * multiplier
		result.Payouts[name] = AgentPayout{RawReward: raw, Multiplier: multiplier}
		result.TotalDesired += raw
	}

	if result.TotalDesired <= 0 {
		return result, nil
	}

	remaining := pool.RemainingBudget()
	if result.TotalDesired > remaining {
		if remaining > 0 {
			result.ScaleFactor = remaining / result.TotalDesired
		} else {
			result.ScaleFactor = 0
		}
		e.logger.Warn().
			Str("asset", string(asset)).
			Int("timestep", timestep).
			Float64("total_desired", result.TotalDesired).
			Float64("remaining", remaining).
			Float64("scale_factor", result.ScaleFactor).
			Msg("Budget scarce, scaling rewards pro-rata")
	}

	totalRestaked := 0.0
	for _, name := range agentOrder {
		payout, ok := result.Payouts[name]
		if !ok {
			continue
		}
		agent := agents[name]

		payout.Paid = payout.RawReward * result.ScaleFactor
		payout.Restaked = payout.Paid * agent.RestakeRatio
		payout.Liquid = payout.Paid - payout.Restaked
		result.Payouts[name] = payout
		result.TotalPaid += payout.Paid

		if payout.Paid <= 0 {
			continue
		}

		totals := agent.RewardTotalsFor(asset)
		totals.Restaked += payout.Restaked
		totals.Liquid += payout.Liquid

		if payout.Restaked > 0 {
			alloc := agent.Allocation(asset)
			alloc.Balance += payout.Restaked
			totalRestaked += payout.Restaked

			// Freshly minted reward is always unlocked, so this lock cannot
			// fail on balance. A failure here means a bad lock preference.
			if pref := agent.LockPreference(asset); pref > 0 {
				if err := e.boost.Lock(agent, asset, payout.Restaked, pref, timestep); err != nil {
					return Result{}, fmt.Errorf("relocking reward for agent %s: %w", name, err)
				}
			}
		}
	}

	// Guard against float accumulation pushing the debit past the exact
	// remaining budget.
	result.TotalPaid = math.Min(result.TotalPaid, remaining)

	if err := e.ledger.DebitBudget(asset, result.TotalPaid); err != nil {
		return Result{}, fmt.Errorf("timestep %d: %w", timestep, err)
	}
	if totalRestaked > 0 {
		if err := e.ledger.Credit(asset, totalRestaked); err != nil {
			return Result{}, fmt.Errorf("crediting restaked rewards: %w", err)
		}
	}

	result.RealizedAPY = (result.TotalPaid / preRewardBalance) * (daysPerYear / e.deltaDays)

	remainingAfter := pool.RemainingBudget()
	if remainingAfter > e.excessRatio*result.TotalDesired {
		result.Excess = &types.ExcessBudgetSignal{
			Asset:        asset,
			Remaining:    remainingAfter,
			TotalDesired: result.TotalDesired,
			Ratio:        remainingAfter / result.TotalDesired,
		}
		e.logger.Warn().
			Str("asset", string(asset)).
			Int("timestep", timestep).
			Float64("remaining", remainingAfter).
			Float64("total_desired", result.TotalDesired).
			Float64("ratio", result.Excess.Ratio).
			Msg("Excess budget utilization: remaining budget far exceeds daily demand")
	}

	return result, nil
}
