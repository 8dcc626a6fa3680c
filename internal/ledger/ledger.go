/*
This file implements the pool ledger: the authoritative owner of per-asset pool
state (TVL, security budget, lifecycle). All mutation of pool balances and
budgets in the system goes through this package.

Budget counters are carried as SDK legacy decimals so the spent <= allocated
invariant is checked exactly, with no float drift across long runs.
*/

package ledger

import (
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/avail-network/stakesim/internal/logger"
	"github.com/avail-network/stakesim/internal/types"
	"github.com/avail-network/stakesim/internal/utils"
)

// Pool is the live state of one asset pool. Fields are mutated only by Ledger
// methods; readers take values through the accessors.
type Pool struct {
	Asset       types.Asset
	Lifecycle   types.PoolLifecycle
	Balance     float64
	TargetYield float64
	MaxCap      float64
	Flow        types.FlowParameters

	allocatedBudget sdkmath.LegacyDec
	spentBudget     sdkmath.LegacyDec
}

// AllocatedBudget returns the cumulative budget ever granted, as float64.
func (p *Pool) AllocatedBudget() float64 {
	v, err := utils.LegacyDecToFloat64(p.allocatedBudget)
	if err != nil {
		return 0
	}
	return v
}

// SpentBudget returns the cumulative rewards paid out, as float64.
func (p *Pool) SpentBudget() float64 {
	v, err := utils.LegacyDecToFloat64(p.spentBudget)
	if err != nil {
		return 0
	}
	return v
}

// RemainingBudget returns allocated minus spent, as float64.
func (p *Pool) RemainingBudget() float64 {
	v, err := utils.LegacyDecToFloat64(p.allocatedBudget.Sub(p.spentBudget))
	if err != nil {
		return 0
	}
	return v
}

// Ledger owns every pool in the simulation.
type Ledger struct {
	pools  map[types.Asset]*Pool
	assets []types.Asset
	logger zerolog.Logger
}

// New builds a ledger from the scenario pool configs. Every config is
// validated; duplicate assets are rejected.
func New(configs []types.PoolConfig) (*Ledger, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one pool config is required")
	}

	l := &Ledger{
		pools:  make(map[types.Asset]*Pool, len(configs)),
		logger: logger.GetForComponent("pool_ledger"),
	}

	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, exists := l.pools[cfg.Asset]; exists {
			return nil, fmt.Errorf("duplicate pool config for asset %s", cfg.Asset)
		}

		initialBudget, err := utils.Float64ToLegacyDec(cfg.InitialBudget)
		if err != nil {
			return nil, fmt.Errorf("pool %s: invalid initial budget: %w", cfg.Asset, err)
		}

		l.pools[cfg.Asset] = &Pool{
			Asset:           cfg.Asset,
			Lifecycle:       cfg.InitialLifecycle,
			Balance:         cfg.InitialBalance,
			TargetYield:     cfg.TargetYield,
			MaxCap:          cfg.MaxCap,
			Flow:            cfg.Flow,
			allocatedBudget: initialBudget,
			spentBudget:     sdkmath.LegacyZeroDec(),
		}
		l.assets = append(l.assets, cfg.Asset)
	}

	sort.Slice(l.assets, func(i, j int) bool { return l.assets[i] < l.assets[j] })

	l.logger.Info().Int("pools", len(l.pools)).Msg("Pool ledger initialized")
	return l, nil
}

// Assets returns every registered asset in sorted order. Iteration order over
// pools must always use this to keep runs deterministic.
func (l *Ledger) Assets() []types.Asset {
	out := make([]types.Asset, len(l.assets))
	copy(out, l.assets)
	return out
}

// Pool returns the live pool for the asset, or ErrUnknownAsset.
func (l *Ledger) Pool(asset types.Asset) (*Pool, error) {
	pool, ok := l.pools[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownAsset, asset)
	}
	return pool, nil
}

// ApplyReplenishment adds to a pool's allocated budget. The allocated budget
// only ever increases; there is no upper bound. Routing to a deleted pool is
// rejected with ErrPoolDeleted so the caller can record the diagnostic.
func (l *Ledger) ApplyReplenishment(asset types.Asset, amount float64, timestep int) error {
	pool, err := l.Pool(asset)
	if err != nil {
		return err
	}
	if pool.Lifecycle == types.PoolDeleted {
		return fmt.Errorf("%w: %s", types.ErrPoolDeleted, asset)
	}
	if amount <= 0 {
		return fmt.Errorf("replenishment amount must be positive, got %f for %s", amount, asset)
	}

	amountDec, err := utils.Float64ToLegacyDec(amount)
	if err != nil {
		return fmt.Errorf("replenishment for %s: %w", asset, err)
	}
	pool.allocatedBudget = pool.allocatedBudget.Add(amountDec)

	l.logger.Info().
		Str("asset", string(asset)).
		Int("timestep", timestep).
		Float64("amount", amount).
		Float64("allocated_budget", pool.AllocatedBudget()).
		Msg("Budget replenished")
	return nil
}

// SetTargetYield updates a pool's target APY, effective immediately.
func (l *Ledger) SetTargetYield(asset types.Asset, apy float64, timestep int) error {
	pool, err := l.Pool(asset)
	if err != nil {
		return err
	}
	if pool.Lifecycle == types.PoolDeleted {
		return fmt.Errorf("%w: %s", types.ErrPoolDeleted, asset)
	}
	if apy < 0 {
		return fmt.Errorf("target yield must be non-negative, got %f for %s", apy, asset)
	}

	l.logger.Info().
		Str("asset", string(asset)).
		Int("timestep", timestep).
		Float64("previous", pool.TargetYield).
		Float64("target_yield", apy).
		Msg("Target yield updated")
	pool.TargetYield = apy
	return nil
}

// legalTransitions is the lifecycle state machine: inactive pools can only be
// activated, active and paused pools can toggle and be deleted, deleted is
// terminal.
var legalTransitions = map[types.PoolLifecycle][]types.PoolLifecycle{
	types.PoolInactive: {types.PoolActive},
	types.PoolActive:   {types.PoolPaused, types.PoolDeleted},
	types.PoolPaused:   {types.PoolActive, types.PoolDeleted},
	types.PoolDeleted:  {},
}

// SetLifecycle applies a lifecycle transition. Deleting a pool zeroes its
// balance and releases it from all further flow and reward processing.
func (l *Ledger) SetLifecycle(asset types.Asset, state types.PoolLifecycle, timestep int) error {
	pool, err := l.Pool(asset)
	if err != nil {
		return err
	}

	allowed := false
	for _, next := range legalTransitions[pool.Lifecycle] {
		if next == state {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s for %s", types.ErrInvalidLifecycleTransition, pool.Lifecycle, state, asset)
	}

	l.logger.Info().
		Str("asset", string(asset)).
		Int("timestep", timestep).
		Str("from", string(pool.Lifecycle)).
		Str("to", string(state)).
		Msg("Pool lifecycle transition")

	pool.Lifecycle = state
	if state == types.PoolDeleted {
		pool.Balance = 0
	}
	return nil
}

// DebitBudget records a reward payout against a pool's budget. Callers must
// pre-clamp payouts to the remaining budget; this failing with
// ErrBudgetExceeded indicates a defect and the run must halt.
func (l *Ledger) DebitBudget(asset types.Asset, amount float64) error {
	pool, err := l.Pool(asset)
	if err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("budget debit must be non-negative, got %f for %s", amount, asset)
	}
	if amount == 0 {
		return nil
	}

	amountDec, err := utils.Float64ToLegacyDec(amount)
	if err != nil {
		return fmt.Errorf("budget debit for %s: %w", asset, err)
	}

	remaining := pool.allocatedBudget.Sub(pool.spentBudget)
	if amountDec.GT(remaining) {
		return fmt.Errorf("%w: asset=%s amount=%s remaining=%s",
			types.ErrBudgetExceeded, asset, amountDec.String(), remaining.String())
	}

	pool.spentBudget = pool.spentBudget.Add(amountDec)
	return nil
}

// Credit adds deposits or restaked rewards to a pool's TVL.
func (l *Ledger) Credit(asset types.Asset, amount float64) error {
	pool, err := l.Pool(asset)
	if err != nil {
		return err
	}
	if pool.Lifecycle == types.PoolDeleted {
		return fmt.Errorf("%w: %s", types.ErrPoolDeleted, asset)
	}
	if amount < 0 {
		return fmt.Errorf("credit must be non-negative, got %f for %s", amount, asset)
	}
	pool.Balance += amount
	return nil
}

// Debit removes withdrawals from a pool's TVL, clamping at zero.
func (l *Ledger) Debit(asset types.Asset, amount float64) error {
	pool, err := l.Pool(asset)
	if err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("debit must be non-negative, got %f for %s", amount, asset)
	}
	pool.Balance -= amount
	if pool.Balance < 0 {
		pool.Balance = 0
	}
	return nil
}

// TotalTVL sums all pool balances.
func (l *Ledger) TotalTVL() float64 {
	total := 0.0
	for _, asset := range l.assets {
		total += l.pools[asset].Balance
	}
	return total
}
