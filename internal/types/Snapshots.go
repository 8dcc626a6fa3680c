/*
This file defines the immutable per-timestep snapshot emitted by the
orchestrator. The snapshot is the only interface downstream consumers
(persistence, dashboard, analysis) see; the live simulation state is never
shared outside the engine.
*/

package types

import "time"

// PoolSnapshot captures one pool's state and per-step activity after a
// completed timestep.
type PoolSnapshot struct {
	Asset           Asset         `json:"asset"`
	Lifecycle       PoolLifecycle `json:"lifecycle"`
	Balance         float64       `json:"balance"`
	AllocatedBudget float64       `json:"allocated_budget"`
	SpentBudget     float64       `json:"spent_budget"`
	RemainingBudget float64       `json:"remaining_budget"`
	TargetYield     float64       `json:"target_yield"`
	Price           float64       `json:"price"`
	Sentiment       float64       `json:"sentiment"`

	Rewards RewardRecord `json:"rewards"`
	Flows   FlowRecord   `json:"flows"`
}

// RewardRecord summarizes one pool's reward phase for one timestep.
type RewardRecord struct {
	BaseDailyReward float64 `json:"base_daily_reward"`
	TotalDesired    float64 `json:"total_desired"`
	TotalPaid       float64 `json:"total_paid"`
	// ScaleFactor is 1.0 when budget was sufficient, remaining/total_desired
	// when payouts were scaled pro-rata.
	ScaleFactor float64 `json:"scale_factor"`
	// RealizedAPY is the annualized yield actually paid this step.
	RealizedAPY float64 `json:"realized_apy"`
}

// FlowRecord summarizes one pool's flow phase for one timestep.
type FlowRecord struct {
	Momentum     float64 `json:"momentum"`
	EffectiveAPY float64 `json:"effective_apy"`
	APYGap       float64 `json:"apy_gap"`
	InflowRate   float64 `json:"inflow_rate"`
	OutflowRate  float64 `json:"outflow_rate"`
	Deposit      float64 `json:"deposit"`
	Withdrawal   float64 `json:"withdrawal"`
	// DepositsSkipped is set when the pool skipped deposit processing this
	// step (paused lifecycle or max-cap reached).
	DepositsSkipped bool `json:"deposits_skipped,omitempty"`
}

// AgentAssetSnapshot captures one agent's position in one pool after a step.
type AgentAssetSnapshot struct {
	Balance  float64 `json:"balance"`
	Locked   float64 `json:"locked"`
	Unlocked float64 `json:"unlocked"`
	// LockDistribution maps lock period (days) to the amount currently locked
	// in that bucket. Bucket 0 is the unlocked balance.
	LockDistribution map[int]float64 `json:"lock_distribution,omitempty"`
	BoostMultiplier  float64         `json:"boost_multiplier"`

	// Per-step reward split and lifetime totals.
	RewardPaid         float64 `json:"reward_paid"`
	RewardRestaked     float64 `json:"reward_restaked"`
	RewardLiquid       float64 `json:"reward_liquid"`
	CumulativeRestaked float64 `json:"cumulative_restaked"`
	CumulativeLiquid   float64 `json:"cumulative_liquid"`
}

// AgentSnapshot captures one agent's positions across all assets.
type AgentSnapshot struct {
	Name   string                       `json:"name"`
	Assets map[Asset]AgentAssetSnapshot `json:"assets"`
}

// ExcessBudgetSignal is the non-fatal diagnostic raised when a pool's remaining
// budget dwarfs its daily reward demand, indicating a mis-sized replenishment
// schedule.
type ExcessBudgetSignal struct {
	Asset        Asset   `json:"asset"`
	Remaining    float64 `json:"remaining"`
	TotalDesired float64 `json:"total_desired"`
	Ratio        float64 `json:"ratio"`
}

// RejectedOperation records a schedule entry or flow that was dropped because
// it targeted a deleted or unregistered pool, or requested an illegal
// lifecycle transition.
type RejectedOperation struct {
	Timestep  int    `json:"timestep"`
	Asset     Asset  `json:"asset"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// StepDiagnostics aggregates the observability events of one timestep.
type StepDiagnostics struct {
	ExcessBudget []ExcessBudgetSignal `json:"excess_budget,omitempty"`
	Rejections   []RejectedOperation  `json:"rejections,omitempty"`
}

// StepSnapshot is the complete immutable record of one simulated day.
type StepSnapshot struct {
	RunID     string    `json:"run_id"`
	Timestep  int       `json:"timestep"`
	Timestamp time.Time `json:"timestamp"`

	Pools       map[Asset]PoolSnapshot   `json:"pools"`
	Agents      map[string]AgentSnapshot `json:"agents"`
	Diagnostics StepDiagnostics          `json:"diagnostics"`

	// TotalTVL is the sum of all pool balances, for quick dashboard reads.
	TotalTVL float64 `json:"total_tvl"`
}
