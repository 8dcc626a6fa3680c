package rewards

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avail-network/stakesim/internal/boosting"
	"github.com/avail-network/stakesim/internal/ledger"
	"github.com/avail-network/stakesim/internal/types"
)

// unboostedParams has no share tiers so payouts follow balances exactly.
func unboostedParams() types.BoostParameters {
	return types.BoostParameters{
		LockPeriodMultipliers: map[int]float64{0: 1.0, 180: 1.5},
	}
}

func newTestEngine(t *testing.T, initialBudget float64, boostParams types.BoostParameters) (*Engine, *ledger.Ledger, *boosting.Subsystem) {
	t.Helper()

	l, err := ledger.New([]types.PoolConfig{{
		Asset:            types.AssetAVL,
		InitialBalance:   10_000,
		InitialBudget:    initialBudget,
		InitialLifecycle: types.PoolActive,
		TargetYield:      0.10,
	}})
	require.NoError(t, err)

	boost, err := boosting.New(boostParams)
	require.NoError(t, err)

	engine, err := NewEngine(Config{
		Ledger:      l,
		Boost:       boost,
		DeltaDays:   1.0,
		ExcessRatio: 10.0,
	})
	require.NoError(t, err)
	return engine, l, boost
}

func singleAgent(balance, restakeRatio float64, lockPref int) (map[string]*types.Agent, []string) {
	agent := &types.Agent{
		Name:         "staker",
		RestakeRatio: restakeRatio,
		Assets: map[types.Asset]*types.AssetAllocation{
			types.AssetAVL: {Balance: balance},
		},
	}
	if lockPref > 0 {
		agent.LockPreferences = map[types.Asset]int{types.AssetAVL: lockPref}
	}
	return map[string]*types.Agent{"staker": agent}, []string{"staker"}
}

func TestNewEngineValidation(t *testing.T) {
	l, err := ledger.New([]types.PoolConfig{{
		Asset: types.AssetAVL, InitialLifecycle: types.PoolActive,
	}})
	require.NoError(t, err)
	boost, err := boosting.New(unboostedParams())
	require.NoError(t, err)

	_, err = NewEngine(Config{Boost: boost, DeltaDays: 1, ExcessRatio: 10})
	require.Error(t, err)
	_, err = NewEngine(Config{Ledger: l, DeltaDays: 1, ExcessRatio: 10})
	require.Error(t, err)
	_, err = NewEngine(Config{Ledger: l, Boost: boost, DeltaDays: 0, ExcessRatio: 10})
	require.Error(t, err)
	_, err = NewEngine(Config{Ledger: l, Boost: boost, DeltaDays: 1, ExcessRatio: 0})
	require.Error(t, err)
}

func TestFullPayoutWhenBudgetSufficient(t *testing.T) {
	engine, l, _ := newTestEngine(t, 1_000, unboostedParams())
	agents, order := singleAgent(10_000, 0, 0)

	result, err := engine.Allocate(agents, order, types.AssetAVL, 1)
	require.NoError(t, err)

	// 10,000 TVL at 10% APY over one day.
	expected := 10_000 * 0.10 / 365
	require.InDelta(t, expected, result.BaseDailyReward, 1e-9)
	require.InDelta(t, expected, result.TotalDesired, 1e-9)
	require.InDelta(t, expected, result.TotalPaid, 1e-9)
	require.InDelta(t, 1.0, result.ScaleFactor, 1e-9)

	pool, _ := l.Pool(types.AssetAVL)
	require.InDelta(t, expected, pool.SpentBudget(), 1e-6)

	// Restake ratio 0: reward is fully liquid and TVL is untouched.
	require.InDelta(t, 10_000, pool.Balance, 1e-9)
	require.InDelta(t, expected, agents["staker"].Rewards[types.AssetAVL].Liquid, 1e-9)
	require.Zero(t, agents["staker"].Rewards[types.AssetAVL].Restaked)
}

func TestProRataScalingUnderScarcity(t *testing.T) {
	engine, l, _ := newTestEngine(t, 1.0, unboostedParams())

	agents := map[string]*types.Agent{
		"large": {Name: "large", Assets: map[types.Asset]*types.AssetAllocation{
			types.AssetAVL: {Balance: 9_000},
		}},
		"small": {Name: "small", Assets: map[types.Asset]*types.AssetAllocation{
			types.AssetAVL: {Balance: 1_000},
		}},
	}
	order := []string{"large", "small"}

	result, err := engine.Allocate(agents, order, types.AssetAVL, 1)
	require.NoError(t, err)

	require.Greater(t, result.TotalDesired, 1.0)
	require.InDelta(t, 1.0, result.TotalPaid, 1e-9)
	require.InDelta(t, 1.0/result.TotalDesired, result.ScaleFactor, 1e-9)

	// Every agent is scaled by the identical factor.
	large := result.Payouts["large"]
	small := result.Payouts["small"]
	require.InDelta(t, large.Paid/large.RawReward, small.Paid/small.RawReward, 1e-9)
	require.InDelta(t, 9.0, large.Paid/small.Paid, 1e-9)

	// Budget is exhausted to exactly zero until the next replenishment.
	pool, _ := l.Pool(types.AssetAVL)
	require.InDelta(t, 1.0, pool.SpentBudget(), 1e-6)
	require.InDelta(t, 0.0, pool.RemainingBudget(), 1e-6)

	// A second day with an exhausted budget pays nothing but stays healthy.
	result, err = engine.Allocate(agents, order, types.AssetAVL, 2)
	require.NoError(t, err)
	require.Zero(t, result.TotalPaid)
	require.Zero(t, result.ScaleFactor)
}

func TestRestakedRewardsRelockAndGrowTVL(t *testing.T) {
	engine, l, _ := newTestEngine(t, 1_000, unboostedParams())
	agents, order := singleAgent(10_000, 1.0, 180)

	result, err := engine.Allocate(agents, order, types.AssetAVL, 5)
	require.NoError(t, err)

	paid := result.TotalPaid
	require.Greater(t, paid, 0.0)

	alloc := agents["staker"].Assets[types.AssetAVL]
	require.InDelta(t, 10_000+paid, alloc.Balance, 1e-9)
	require.InDelta(t, paid, alloc.LockedBalance(), 1e-9)
	require.Len(t, alloc.LockedStakes, 1)
	require.Equal(t, 185, alloc.LockedStakes[0].UnlockTimestep)

	// Restaked rewards re-enter pool TVL; liquid payouts would not.
	pool, _ := l.Pool(types.AssetAVL)
	require.InDelta(t, 10_000+paid, pool.Balance, 1e-9)

	totals := agents["staker"].Rewards[types.AssetAVL]
	require.InDelta(t, paid, totals.Restaked, 1e-9)
	require.Zero(t, totals.Liquid)
}

func TestBoostShiftsSharesNotTotal(t *testing.T) {
	params := unboostedParams()
	engine, _, boost := newTestEngine(t, 1_000, params)

	agents := map[string]*types.Agent{
		"locked": {Name: "locked", Assets: map[types.Asset]*types.AssetAllocation{
			types.AssetAVL: {Balance: 5_000},
		}},
		"plain": {Name: "plain", Assets: map[types.Asset]*types.AssetAllocation{
			types.AssetAVL: {Balance: 5_000},
		}},
	}
	order := []string{"locked", "plain"}
	require.NoError(t, boost.Lock(agents["locked"], types.AssetAVL, 5_000, 180, 0))

	result, err := engine.Allocate(agents, order, types.AssetAVL, 1)
	require.NoError(t, err)

	// Equal balances, but the locked agent carries a 1.5x multiplier.
	require.InDelta(t, 1.5, result.Payouts["locked"].Multiplier, 1e-9)
	require.InDelta(t, 1.0, result.Payouts["plain"].Multiplier, 1e-9)
	require.InDelta(t, 1.5, result.Payouts["locked"].Paid/result.Payouts["plain"].Paid, 1e-9)
}

func TestExcessBudgetDiagnosticDoesNotInflateRewards(t *testing.T) {
	// A grotesquely oversized budget must raise the diagnostic without
	// changing the raw reward, which depends only on TVL, yield and boost.
	oversized, _, _ := newTestEngine(t, 1_000_000, unboostedParams())
	// 30 covers the ~2.74 daily demand without tripping the 10x threshold.
	lean, _, _ := newTestEngine(t, 30, unboostedParams())

	agentsA, order := singleAgent(10_000, 0, 0)
	agentsB, _ := singleAgent(10_000, 0, 0)

	resultOversized, err := oversized.Allocate(agentsA, order, types.AssetAVL, 1)
	require.NoError(t, err)
	resultLean, err := lean.Allocate(agentsB, order, types.AssetAVL, 1)
	require.NoError(t, err)

	require.NotNil(t, resultOversized.Excess)
	require.Greater(t, resultOversized.Excess.Ratio, 10.0)
	require.Equal(t, types.AssetAVL, resultOversized.Excess.Asset)
	require.Nil(t, resultLean.Excess)

	require.InDelta(t, resultLean.Payouts["staker"].RawReward,
		resultOversized.Payouts["staker"].RawReward, 1e-9)
	require.InDelta(t, resultLean.TotalPaid, resultOversized.TotalPaid, 1e-9)
}

func TestInactivePoolPaysNothing(t *testing.T) {
	engine, l, _ := newTestEngine(t, 1_000, unboostedParams())
	require.NoError(t, l.SetLifecycle(types.AssetAVL, types.PoolPaused, 1))

	agents, order := singleAgent(10_000, 0, 0)
	result, err := engine.Allocate(agents, order, types.AssetAVL, 1)
	require.NoError(t, err)
	require.Zero(t, result.TotalPaid)
	require.Empty(t, result.Payouts)

	pool, _ := l.Pool(types.AssetAVL)
	require.Zero(t, pool.SpentBudget())
}

func TestEmptyPoolIsANoOp(t *testing.T) {
	engine, l, _ := newTestEngine(t, 1_000, unboostedParams())
	pool, _ := l.Pool(types.AssetAVL)
	pool.Balance = 0

	agents, order := singleAgent(0, 0, 0)
	result, err := engine.Allocate(agents, order, types.AssetAVL, 1)
	require.NoError(t, err)
	require.Zero(t, result.TotalDesired)
	require.Zero(t, result.TotalPaid)
}
