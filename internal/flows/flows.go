/*
This file implements the stock-flow engine: it turns price momentum, market
sentiment and yield attractiveness into daily deposit and withdrawal volumes
per pool, then attributes those volumes across the agent classes.

New depositors are modeled as growth of the existing agent-class balances, not
as new agent identities, so attribution is proportional to each agent's current
unlocked share of the pool.
*/

package flows

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/avail-network/stakesim/internal/ledger"
	"github.com/avail-network/stakesim/internal/logger"
	"github.com/avail-network/stakesim/internal/types"
)

// Signal weights from the calibrated flow model. Sentiment nudges the
// perceived APY and both flow rates; momentum contributes through a fixed
// share of the price sensitivity.
const (
	sentimentAPYWeight  = 0.05
	momentumRateWeight  = 0.05
	sentimentRateWeight = 0.01
)

// Engine computes and applies daily flows for all pools.
type Engine struct {
	ledger *ledger.Ledger
	// rng feeds the optional Gaussian noise term on flow rates. Seeded once
	// at construction so runs stay reproducible.
	rng    *rand.Rand
	logger zerolog.Logger
}

// NewEngine returns a flow engine. The seed only matters for pools configured
// with a non-zero noise term.
func NewEngine(l *ledger.Ledger, seed int64) (*Engine, error) {
	if l == nil {
		return nil, fmt.Errorf("flow engine requires a ledger")
	}
	return &Engine{
		ledger: l,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger.GetForComponent("flow_engine"),
	}, nil
}

// Momentum maps the daily price change through a bounded sigmoid into (-1, 1).
// Zero when there is no prior price to compare against.
func Momentum(price, prevPrice, momentumFactor float64) float64 {
	if prevPrice <= 0 {
		return 0
	}
	changePct := (price - prevPrice) / prevPrice
	return 2.0/(1.0+math.Exp(-momentumFactor*changePct)) - 1.0
}

// LiquidityScale amplifies yield sensitivity for small pools and dampens it
// for very large ones, identity in between. Breakpoints of zero disable the
// corresponding branch.
func LiquidityScale(tvl float64, cfg types.FlowParameters) float64 {
	if cfg.SmallPoolFloorUSD > 0 && tvl < cfg.SmallPoolFloorUSD {
		return cfg.SmallPoolAmplifier
	}
	if cfg.LargePoolCeilingUSD > 0 && tvl > cfg.LargePoolCeilingUSD {
		return cfg.LargePoolDampener
	}
	return 1.0
}

// Apply runs the flow phase for one pool: computes the day's deposit and
// withdrawal volumes from the signals and mutates the ledger and agent
// balances. currentAPY is the yield actually realized this step.
//
// Paused pools process withdrawals but skip deposits (pausing blocks entries,
// not exits). Pools at or above their max cap also skip deposits for the day.
func (e *Engine) Apply(
	agents map[string]*types.Agent,
	agentOrder []string,
	asset types.Asset,
	currentAPY float64,
	signal types.MarketSignal,
	prevPrice float64,
	timestep int,
) (types.FlowRecord, error) {
	pool, err := e.ledger.Pool(asset)
	if err != nil {
		return types.FlowRecord{}, err
	}
	if pool.Lifecycle != types.PoolActive && pool.Lifecycle != types.PoolPaused {
		return types.FlowRecord{}, nil
	}

	cfg := pool.Flow
	tvl := pool.Balance

	record := types.FlowRecord{
		Momentum:     Momentum(signal.Price, prevPrice, cfg.MomentumFactor),
		EffectiveAPY: currentAPY + signal.Sentiment*sentimentAPYWeight,
	}
	record.APYGap = record.EffectiveAPY - cfg.APYThreshold

	scale := LiquidityScale(tvl, cfg)

	record.InflowRate = cfg.BaseInflowRate +
		cfg.APYSensitivity*math.Max(record.APYGap, 0)*scale +
		cfg.PriceSensitivity*math.Max(record.Momentum, 0)*momentumRateWeight +
		signal.Sentiment*sentimentRateWeight
	record.OutflowRate = cfg.BaseOutflowRate +
		cfg.APYSensitivity*math.Max(-record.APYGap, 0)*scale +
		cfg.PriceSensitivity*math.Max(-record.Momentum, 0)*momentumRateWeight +
		(-signal.Sentiment)*sentimentRateWeight

	if cfg.NoiseStdDev > 0 {
		record.InflowRate += e.rng.NormFloat64() * cfg.NoiseStdDev
		record.OutflowRate += e.rng.NormFloat64() * cfg.NoiseStdDev
	}
	record.InflowRate = math.Max(record.InflowRate, 0)
	record.OutflowRate = math.Max(record.OutflowRate, 0)

	// Aggregate agent positions once; withdrawals can only come from
	// unlocked balances. Shares are fixed against the pre-flow composition so
	// attribution sums exactly to the pool-level volumes.
	unlockedBy := make(map[string]float64, len(agentOrder))
	balanceBy := make(map[string]float64, len(agentOrder))
	totalUnlocked := 0.0
	totalBalance := 0.0
	for _, name := range agentOrder {
		if alloc, ok := agents[name].Assets[asset]; ok {
			unlockedBy[name] = alloc.UnlockedBalance()
			balanceBy[name] = alloc.Balance
			totalUnlocked += unlockedBy[name]
			totalBalance += alloc.Balance
		}
	}

	deposit := record.InflowRate * tvl
	depositsBlocked := pool.Lifecycle == types.PoolPaused ||
		(pool.MaxCap > 0 && tvl >= pool.MaxCap)
	if depositsBlocked {
		record.DepositsSkipped = true
		deposit = 0
	}
	if deposit > 0 && totalBalance <= 0 {
		// No agent classes to attribute growth to.
		deposit = 0
	}

	withdrawal := math.Min(record.OutflowRate*tvl, tvl)
	withdrawal = math.Min(withdrawal, totalUnlocked)

	// Attribute withdrawals by unlocked share; deposits by unlocked share,
	// falling back to total-balance share when everything is locked.
	for _, name := range agentOrder {
		alloc, ok := agents[name].Assets[asset]
		if !ok {
			continue
		}

		if withdrawal > 0 && totalUnlocked > 0 {
			alloc.Balance -= withdrawal * (unlockedBy[name] / totalUnlocked)
			if alloc.Balance < 0 {
				alloc.Balance = 0
			}
		}
		if deposit > 0 {
			if totalUnlocked > 0 {
				alloc.Balance += deposit * (unlockedBy[name] / totalUnlocked)
			} else {
				alloc.Balance += deposit * (balanceBy[name] / totalBalance)
			}
		}
	}

	if withdrawal > 0 {
		if err := e.ledger.Debit(asset, withdrawal); err != nil {
			return types.FlowRecord{}, err
		}
	}
	if deposit > 0 {
		if err := e.ledger.Credit(asset, deposit); err != nil {
			return types.FlowRecord{}, err
		}
	}

	record.Deposit = deposit
	record.Withdrawal = withdrawal

	e.logger.Debug().
		Str("asset", string(asset)).
		Int("timestep", timestep).
		Float64("momentum", record.Momentum).
		Float64("effective_apy", record.EffectiveAPY).
		Float64("deposit", deposit).
		Float64("withdrawal", withdrawal).
		Float64("tvl", pool.Balance).
		Msg("Flow step applied")

	return record, nil
}
