/*
This file implements the simulation step orchestrator. It owns the single live
GlobalState (timestep, ledger, agents, last-seen signals) and advances the
daily clock through a fixed six-phase pipeline:

 1. budget replenishment and yield-target schedule entries
 2. admin lifecycle actions (activate / pause / resume / delete)
 3. unlock pass for all agents and assets
 4. reward allocation for all active pools
 5. flow engine for all active and paused pools
 6. immutable snapshot emission

The order is load-bearing: rewards must see the day's post-unlock lock
composition, and flows must see the day's post-reward balances.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avail-network/stakesim/internal/boosting"
	"github.com/avail-network/stakesim/internal/flows"
	"github.com/avail-network/stakesim/internal/ledger"
	"github.com/avail-network/stakesim/internal/logger"
	"github.com/avail-network/stakesim/internal/rewards"
	"github.com/avail-network/stakesim/internal/types"
)

// SignalSource serves the precomputed price/sentiment inputs per timestep.
type SignalSource interface {
	At(timestep int) (map[types.Asset]types.MarketSignal, error)
}

// Recorder receives every emitted snapshot. Implementations must not retain
// references into live state; snapshots are already deep-copied values.
type Recorder interface {
	RecordStep(snapshot types.StepSnapshot) error
}

// Config carries the orchestrator's dependencies, injected by the caller.
type Config struct {
	Ledger   *ledger.Ledger
	Boost    *boosting.Subsystem
	Rewards  *rewards.Engine
	Flows    *flows.Engine
	Agents   map[string]*types.Agent
	Schedule types.Schedule
	Signals  SignalSource
	// Recorder is optional; nil discards snapshots after returning them.
	Recorder Recorder
}

// Engine is the step orchestrator. Not safe for concurrent use: the simulation
// is single-threaded by design and one timestep fully completes before the
// next begins.
type Engine struct {
	runID      string
	ledger     *ledger.Ledger
	boost      *boosting.Subsystem
	rewards    *rewards.Engine
	flows      *flows.Engine
	agents     map[string]*types.Agent
	agentOrder []string
	schedule   types.Schedule
	signals    SignalSource
	recorder   Recorder

	timestep    int
	lastSignals map[types.Asset]types.MarketSignal

	logger zerolog.Logger
}

// New validates all dependencies and primes the engine with the t=0 signals.
func New(cfg Config) (*Engine, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine requires a ledger")
	}
	if cfg.Boost == nil {
		return nil, fmt.Errorf("engine requires the boosting subsystem")
	}
	if cfg.Rewards == nil {
		return nil, fmt.Errorf("engine requires the reward engine")
	}
	if cfg.Flows == nil {
		return nil, fmt.Errorf("engine requires the flow engine")
	}
	if cfg.Signals == nil {
		return nil, fmt.Errorf("engine requires a signal source")
	}
	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("engine requires at least one agent")
	}

	for name, agent := range cfg.Agents {
		if agent == nil {
			return nil, fmt.Errorf("agent %s is nil", name)
		}
		if agent.RestakeRatio < 0 || agent.RestakeRatio > 1 {
			return nil, fmt.Errorf("agent %s: restake ratio must be in [0, 1], got %f", name, agent.RestakeRatio)
		}
	}

	// Agent iteration order is fixed up front: map iteration would make runs
	// non-reproducible.
	agentOrder := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		agentOrder = append(agentOrder, name)
	}
	sort.Strings(agentOrder)

	initial, err := cfg.Signals.At(0)
	if err != nil {
		return nil, fmt.Errorf("loading initial signals: %w", err)
	}

	e := &Engine{
		runID:       uuid.New().String(),
		ledger:      cfg.Ledger,
		boost:       cfg.Boost,
		rewards:     cfg.Rewards,
		flows:       cfg.Flows,
		agents:      cfg.Agents,
		agentOrder:  agentOrder,
		schedule:    cfg.Schedule,
		signals:     cfg.Signals,
		recorder:    cfg.Recorder,
		lastSignals: initial,
		logger:      logger.GetForComponent("orchestrator"),
	}

	e.logger.Info().
		Str("run_id", e.runID).
		Int("agents", len(agentOrder)).
		Int("pools", len(cfg.Ledger.Assets())).
		Msg("Simulation engine initialized")
	return e, nil
}

// RunID identifies this run in logs and persisted snapshots.
func (e *Engine) RunID() string {
	return e.runID
}

// Timestep returns the last completed timestep (0 before the first step).
func (e *Engine) Timestep() int {
	return e.timestep
}

// Step advances the clock by one day and returns the day's snapshot. A
// returned error means an invariant or configuration violation; the run must
// not continue past it.
func (e *Engine) Step() (types.StepSnapshot, error) {
	t := e.timestep + 1

	signals, err := e.signals.At(t)
	if err != nil {
		return types.StepSnapshot{}, fmt.Errorf("timestep %d: %w", t, err)
	}

	var diags types.StepDiagnostics

	// Phase 1: budget replenishment and yield targets.
	if err := e.applySchedules(t, &diags); err != nil {
		return types.StepSnapshot{}, err
	}

	// Phase 2: admin lifecycle actions.
	e.applyAdminActions(t, &diags)

	// Phase 3: unlock pass. Runs for every pool including deleted ones:
	// committed unlocks are honored so stakes are never stranded.
	for _, name := range e.agentOrder {
		for _, asset := range e.ledger.Assets() {
			e.boost.ProcessUnlocks(e.agents[name], asset, t)
		}
	}

	// Phase 4: reward allocation for active pools.
	rewardResults := make(map[types.Asset]rewards.Result)
	for _, asset := range e.ledger.Assets() {
		pool, err := e.ledger.Pool(asset)
		if err != nil {
			return types.StepSnapshot{}, err
		}
		if pool.Lifecycle != types.PoolActive {
			continue
		}
		result, err := e.rewards.Allocate(e.agents, e.agentOrder, asset, t)
		if err != nil {
			e.logger.Error().Err(err).
				Str("asset", string(asset)).
				Int("timestep", t).
				Msg("Reward allocation failed, halting run")
			return types.StepSnapshot{}, err
		}
		if result.Excess != nil {
			diags.ExcessBudget = append(diags.ExcessBudget, *result.Excess)
		}
		rewardResults[asset] = result
	}

	// Phase 5: flows for active and paused pools.
	flowResults := make(map[types.Asset]types.FlowRecord)
	for _, asset := range e.ledger.Assets() {
		pool, err := e.ledger.Pool(asset)
		if err != nil {
			return types.StepSnapshot{}, err
		}
		if pool.Lifecycle != types.PoolActive && pool.Lifecycle != types.PoolPaused {
			continue
		}

		// Flows respond to the yield actually realized in this step's reward
		// phase; the target is only a fallback when nothing was staked.
		currentAPY := pool.TargetYield
		if result, ok := rewardResults[asset]; ok && result.TotalDesired > 0 {
			currentAPY = result.RealizedAPY
		}

		record, err := e.flows.Apply(e.agents, e.agentOrder, asset, currentAPY, signals[asset], e.lastSignals[asset].Price, t)
		if err != nil {
			return types.StepSnapshot{}, err
		}
		flowResults[asset] = record
	}

	// Phase 6: snapshot emission.
	e.timestep = t
	e.lastSignals = signals
	snapshot := e.buildSnapshot(t, signals, rewardResults, flowResults, diags)

	if e.recorder != nil {
		if err := e.recorder.RecordStep(snapshot); err != nil {
			return types.StepSnapshot{}, fmt.Errorf("recording snapshot for timestep %d: %w", t, err)
		}
	}
	return snapshot, nil
}

// Run advances the clock n timesteps, checking for cancellation between
// steps, and returns every emitted snapshot in order.
func (e *Engine) Run(ctx context.Context, n int) ([]types.StepSnapshot, error) {
	if n <= 0 {
		return nil, fmt.Errorf("run length must be positive, got %d", n)
	}

	start := time.Now()
	snapshots := make([]types.StepSnapshot, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return snapshots, ctx.Err()
		default:
		}

		snapshot, err := e.Step()
		if err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, snapshot)
	}

	e.logBudgetSummary()
	e.logger.Info().
		Str("run_id", e.runID).
		Int("timesteps", n).
		Dur("elapsed", time.Since(start)).
		Msg("Simulation run complete")
	return snapshots, nil
}

// applySchedules consumes the day's replenishment and yield-target entries.
// Entries targeting deleted or unknown pools become diagnostics; malformed
// amounts are configuration errors and fatal.
func (e *Engine) applySchedules(t int, diags *types.StepDiagnostics) error {
	for _, asset := range sortedAssets(e.schedule.ReplenishmentsAt(t)) {
		amount := e.schedule.ReplenishmentsAt(t)[asset]
		if err := e.ledger.ApplyReplenishment(asset, amount, t); err != nil {
			if isRejection(err) {
				e.recordRejection(diags, t, asset, "replenishment", err)
				continue
			}
			return fmt.Errorf("timestep %d: %w", t, err)
		}
	}

	for _, asset := range sortedAssets(e.schedule.TargetYieldsAt(t)) {
		apy := e.schedule.TargetYieldsAt(t)[asset]
		if err := e.ledger.SetTargetYield(asset, apy, t); err != nil {
			if isRejection(err) {
				e.recordRejection(diags, t, asset, "target_yield", err)
				continue
			}
			return fmt.Errorf("timestep %d: %w", t, err)
		}
	}
	return nil
}

// applyAdminActions consumes the day's lifecycle actions in schedule order.
// Illegal transitions are rejections, never fatal: schedules may legitimately
// reference pools deleted earlier in the run.
func (e *Engine) applyAdminActions(t int, diags *types.StepDiagnostics) {
	for _, action := range e.schedule.AdminActionsAt(t) {
		var target types.PoolLifecycle
		switch action.Action {
		case types.AdminActivate, types.AdminResume:
			target = types.PoolActive
		case types.AdminPause:
			target = types.PoolPaused
		case types.AdminDelete:
			target = types.PoolDeleted
		default:
			e.recordRejection(diags, t, action.Asset, string(action.Action),
				fmt.Errorf("unknown admin action %q", action.Action))
			continue
		}

		if err := e.ledger.SetLifecycle(action.Asset, target, t); err != nil {
			e.recordRejection(diags, t, action.Asset, string(action.Action), err)
		}
	}
}

func (e *Engine) recordRejection(diags *types.StepDiagnostics, t int, asset types.Asset, op string, err error) {
	e.logger.Warn().
		Int("timestep", t).
		Str("asset", string(asset)).
		Str("operation", op).
		Err(err).
		Msg("Schedule entry rejected")
	diags.Rejections = append(diags.Rejections, types.RejectedOperation{
		Timestep:  t,
		Asset:     asset,
		Operation: op,
		Reason:    err.Error(),
	})
}

// logBudgetSummary reports end-of-run budget utilization per pool.
func (e *Engine) logBudgetSummary() {
	for _, asset := range e.ledger.Assets() {
		pool, err := e.ledger.Pool(asset)
		if err != nil {
			continue
		}
		allocated := pool.AllocatedBudget()
		utilization := 0.0
		if allocated > 0 {
			utilization = pool.SpentBudget() / allocated
		}
		e.logger.Info().
			Str("asset", string(asset)).
			Str("lifecycle", string(pool.Lifecycle)).
			Float64("tvl", pool.Balance).
			Float64("allocated_budget", allocated).
			Float64("spent_budget", pool.SpentBudget()).
			Float64("utilization", utilization).
			Msg("Budget summary")
	}
}

func sortedAssets(m map[types.Asset]float64) []types.Asset {
	assets := make([]types.Asset, 0, len(m))
	for asset := range m {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

// isRejection reports whether an error is an expected schedule rejection
// rather than a fatal invariant or configuration problem.
func isRejection(err error) bool {
	return errors.Is(err, types.ErrUnknownAsset) ||
		errors.Is(err, types.ErrPoolDeleted) ||
		errors.Is(err, types.ErrInvalidLifecycleTransition)
}
