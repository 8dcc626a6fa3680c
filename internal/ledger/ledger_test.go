package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avail-network/stakesim/internal/types"
)

func testPoolConfigs() []types.PoolConfig {
	return []types.PoolConfig{
		{
			Asset:            types.AssetAVL,
			InitialBalance:   10_000,
			InitialBudget:    1_000,
			InitialLifecycle: types.PoolActive,
			TargetYield:      0.10,
		},
		{
			Asset:            types.AssetETH,
			InitialBalance:   50_000,
			InitialBudget:    500,
			InitialLifecycle: types.PoolActive,
			TargetYield:      0.05,
		},
		{
			Asset:            types.AssetBTC,
			InitialBalance:   0,
			InitialBudget:    0,
			InitialLifecycle: types.PoolInactive,
			TargetYield:      0.05,
		},
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	dup := testPoolConfigs()
	dup = append(dup, dup[0])
	_, err = New(dup)
	require.ErrorContains(t, err, "duplicate")

	bad := testPoolConfigs()
	bad[0].InitialBalance = -1
	_, err = New(bad)
	require.Error(t, err)

	bad = testPoolConfigs()
	bad[0].InitialLifecycle = types.PoolDeleted
	_, err = New(bad)
	require.Error(t, err)
}

func TestAssetsSorted(t *testing.T) {
	l, err := New(testPoolConfigs())
	require.NoError(t, err)
	require.Equal(t, []types.Asset{types.AssetAVL, types.AssetBTC, types.AssetETH}, l.Assets())
}

func TestReplenishmentIsMonotonic(t *testing.T) {
	l, err := New(testPoolConfigs())
	require.NoError(t, err)

	pool, err := l.Pool(types.AssetAVL)
	require.NoError(t, err)
	require.InDelta(t, 1_000, pool.AllocatedBudget(), 1e-9)

	require.NoError(t, l.ApplyReplenishment(types.AssetAVL, 5_000_000, 30))
	require.InDelta(t, 5_001_000, pool.AllocatedBudget(), 1e-9)

	require.Error(t, l.ApplyReplenishment(types.AssetAVL, -5, 31))
	require.Error(t, l.ApplyReplenishment(types.AssetAVL, 0, 31))

	err = l.ApplyReplenishment("DOGE", 100, 31)
	require.ErrorIs(t, err, types.ErrUnknownAsset)
}

func TestDebitBudgetInvariantGuard(t *testing.T) {
	l, err := New(testPoolConfigs())
	require.NoError(t, err)
	pool, _ := l.Pool(types.AssetETH)

	require.NoError(t, l.DebitBudget(types.AssetETH, 200))
	require.InDelta(t, 200, pool.SpentBudget(), 1e-9)
	require.InDelta(t, 300, pool.RemainingBudget(), 1e-9)

	// Spending more than the remaining budget is a defect, never a silent clamp.
	err = l.DebitBudget(types.AssetETH, 300.0001)
	require.ErrorIs(t, err, types.ErrBudgetExceeded)
	require.InDelta(t, 200, pool.SpentBudget(), 1e-9)

	// Spending exactly the remaining budget is legal.
	require.NoError(t, l.DebitBudget(types.AssetETH, 300))
	require.InDelta(t, 0, pool.RemainingBudget(), 1e-9)

	require.NoError(t, l.DebitBudget(types.AssetETH, 0))
	require.Error(t, l.DebitBudget(types.AssetETH, -1))
}

func TestLifecycleTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    types.PoolLifecycle
		to      types.PoolLifecycle
		allowed bool
	}{
		{"activate inactive", types.PoolInactive, types.PoolActive, true},
		{"pause active", types.PoolActive, types.PoolPaused, true},
		{"resume paused", types.PoolPaused, types.PoolActive, true},
		{"delete active", types.PoolActive, types.PoolDeleted, true},
		{"delete paused", types.PoolPaused, types.PoolDeleted, true},
		{"pause inactive", types.PoolInactive, types.PoolPaused, false},
		{"delete inactive", types.PoolInactive, types.PoolDeleted, false},
		{"reactivate deleted", types.PoolDeleted, types.PoolActive, false},
		{"self transition", types.PoolActive, types.PoolActive, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := New(testPoolConfigs())
			require.NoError(t, err)
			pool, _ := l.Pool(types.AssetAVL)

			// Walk the pool into the starting state.
			switch tc.from {
			case types.PoolInactive:
				pool.Lifecycle = types.PoolInactive
			case types.PoolPaused:
				require.NoError(t, l.SetLifecycle(types.AssetAVL, types.PoolPaused, 1))
			case types.PoolDeleted:
				require.NoError(t, l.SetLifecycle(types.AssetAVL, types.PoolDeleted, 1))
			}

			err = l.SetLifecycle(types.AssetAVL, tc.to, 2)
			if tc.allowed {
				require.NoError(t, err)
				require.Equal(t, tc.to, pool.Lifecycle)
			} else {
				require.ErrorIs(t, err, types.ErrInvalidLifecycleTransition)
				require.Equal(t, tc.from, pool.Lifecycle)
			}
		})
	}
}

func TestDeleteZeroesBalanceAndRejectsRouting(t *testing.T) {
	l, err := New(testPoolConfigs())
	require.NoError(t, err)
	pool, _ := l.Pool(types.AssetAVL)

	require.NoError(t, l.SetLifecycle(types.AssetAVL, types.PoolDeleted, 100))
	require.Zero(t, pool.Balance)

	err = l.ApplyReplenishment(types.AssetAVL, 100, 101)
	require.ErrorIs(t, err, types.ErrPoolDeleted)

	err = l.SetTargetYield(types.AssetAVL, 0.2, 101)
	require.ErrorIs(t, err, types.ErrPoolDeleted)

	err = l.Credit(types.AssetAVL, 100)
	require.ErrorIs(t, err, types.ErrPoolDeleted)
	require.Zero(t, pool.Balance)
}

func TestCreditDebitClampsAtZero(t *testing.T) {
	l, err := New(testPoolConfigs())
	require.NoError(t, err)
	pool, _ := l.Pool(types.AssetAVL)

	require.NoError(t, l.Credit(types.AssetAVL, 500))
	require.InDelta(t, 10_500, pool.Balance, 1e-9)

	require.NoError(t, l.Debit(types.AssetAVL, 1_000_000))
	require.Zero(t, pool.Balance)

	require.Error(t, l.Credit(types.AssetAVL, -1))
	require.Error(t, l.Debit(types.AssetAVL, -1))
}

func TestTotalTVL(t *testing.T) {
	l, err := New(testPoolConfigs())
	require.NoError(t, err)
	require.InDelta(t, 60_000, l.TotalTVL(), 1e-9)
}
