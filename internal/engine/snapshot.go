package engine

import (
	"time"

	"github.com/avail-network/stakesim/internal/rewards"
	"github.com/avail-network/stakesim/internal/types"
)

// buildSnapshot assembles the immutable record of a completed timestep. All
// values are copied out of the live state; nothing in the snapshot aliases
// engine-owned memory.
func (e *Engine) buildSnapshot(
	t int,
	signals map[types.Asset]types.MarketSignal,
	rewardResults map[types.Asset]rewards.Result,
	flowResults map[types.Asset]types.FlowRecord,
	diags types.StepDiagnostics,
) types.StepSnapshot {
	snapshot := types.StepSnapshot{
		RunID:       e.runID,
		Timestep:    t,
		Timestamp:   time.Now().UTC(),
		Pools:       make(map[types.Asset]types.PoolSnapshot, len(e.ledger.Assets())),
		Agents:      make(map[string]types.AgentSnapshot, len(e.agentOrder)),
		Diagnostics: diags,
	}

	for _, asset := range e.ledger.Assets() {
		pool, err := e.ledger.Pool(asset)
		if err != nil {
			continue
		}

		ps := types.PoolSnapshot{
			Asset:           asset,
			Lifecycle:       pool.Lifecycle,
			Balance:         pool.Balance,
			AllocatedBudget: pool.AllocatedBudget(),
			SpentBudget:     pool.SpentBudget(),
			RemainingBudget: pool.RemainingBudget(),
			TargetYield:     pool.TargetYield,
			Price:           signals[asset].Price,
			Sentiment:       signals[asset].Sentiment,
			Flows:           flowResults[asset],
		}
		if result, ok := rewardResults[asset]; ok {
			ps.Rewards = types.RewardRecord{
				BaseDailyReward: result.BaseDailyReward,
				TotalDesired:    result.TotalDesired,
				TotalPaid:       result.TotalPaid,
				ScaleFactor:     result.ScaleFactor,
				RealizedAPY:     result.RealizedAPY,
			}
		}
		snapshot.Pools[asset] = ps
		snapshot.TotalTVL += pool.Balance
	}

	for _, name := range e.agentOrder {
		agent := e.agents[name]
		as := types.AgentSnapshot{
			Name:   name,
			Assets: make(map[types.Asset]types.AgentAssetSnapshot),
		}

		for _, asset := range e.ledger.Assets() {
			alloc, ok := agent.Assets[asset]
			if !ok {
				continue
			}
			pool, err := e.ledger.Pool(asset)
			if err != nil {
				continue
			}

			aas := types.AgentAssetSnapshot{
				Balance:          alloc.Balance,
				Locked:           alloc.LockedBalance(),
				Unlocked:         alloc.UnlockedBalance(),
				LockDistribution: e.boost.LockDistribution(agent, asset),
				BoostMultiplier:  e.boost.BoostMultiplier(agent, asset, pool.Balance),
			}
			if result, ok := rewardResults[asset]; ok {
				if payout, ok := result.Payouts[name]; ok {
					aas.RewardPaid = payout.Paid
					aas.RewardRestaked = payout.Restaked
					aas.RewardLiquid = payout.Liquid
				}
			}
			if totals, ok := agent.Rewards[asset]; ok {
				aas.CumulativeRestaked = totals.Restaked
				aas.CumulativeLiquid = totals.Liquid
			}
			as.Assets[asset] = aas
		}
		snapshot.Agents[name] = as
	}

	return snapshot
}
