package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avail-network/stakesim/internal/types"
)

const baselineScenarioYAML = `
name: baseline
days: 180
seed: 42

pools:
  - asset: AVL
    initial_balance: 10000000
    initial_budget: 1000000
    target_yield: 0.10
  - asset: ETH
    initial_balance: 50000000
    initial_budget: 500000
    lifecycle: active
    target_yield: 0.05
    max_cap: 100000000
  - asset: BTC
    initial_balance: 0
    initial_budget: 0
    lifecycle: inactive
    target_yield: 0.04

agents:
  - name: avl_maxi
    restake_ratio: 1.0
    lock_preferences:
      AVL: 180
    balances:
      AVL: 6000000
  - name: yield_tourist
    restake_ratio: 0.0
    balances:
      AVL: 4000000
      ETH: 50000000

schedule:
  replenishments:
    30:
      AVL: 5000000
    60:
      AVL: 5000000
  target_yields:
    90:
      AVL: 0.08
  admin_actions:
    30:
      - action: pause
        asset: ETH
    50:
      - action: resume
        asset: ETH
    100:
      - action: delete
        asset: ETH
    120:
      - action: activate
        asset: BTC

signals:
  AVL:
    process: trend_with_noise
    starting_price: 2.0
    annual_growth_pct: 0.5
    volatility: 0.05
    sentiment: 0.2
  ETH:
    process: compound
    starting_price: 3000
    annual_growth_pct: 0.2
  BTC:
    process: constant
    starting_price: 60000
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, baselineScenarioYAML))
	require.NoError(t, err)

	require.Equal(t, "baseline", scenario.Name)
	require.Equal(t, 180, scenario.Days)
	require.Equal(t, int64(42), scenario.Seed)
	require.Len(t, scenario.Pools, 3)
	require.Len(t, scenario.Agents, 2)

	// Omitted sections pick up the calibrated defaults.
	require.InDelta(t, DefaultDeltaDays, scenario.DeltaDays, 1e-9)
	require.InDelta(t, DefaultExcessBudgetRatio, scenario.ExcessBudgetRatio, 1e-9)
	require.Equal(t, DefaultBoostParameters, *scenario.Boost)
	require.Equal(t, DefaultFlowParameters, *scenario.Pools[0].Flow)

	// Lifecycle defaults to active when omitted.
	require.Equal(t, types.PoolActive, scenario.Pools[0].Lifecycle)
	require.Equal(t, types.PoolInactive, scenario.Pools[2].Lifecycle)

	require.InDelta(t, 5_000_000, scenario.Schedule.ReplenishmentsAt(30)[types.AssetAVL], 1e-9)
	require.InDelta(t, 0.08, scenario.Schedule.TargetYieldsAt(90)[types.AssetAVL], 1e-9)
	require.Equal(t, []types.AdminAction{
		{Action: types.AdminPause, Asset: types.AssetETH},
	}, scenario.Schedule.AdminActionsAt(30))
	require.Nil(t, scenario.Schedule.AdminActionsAt(31))
}

func TestLoadScenarioFileErrors(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadScenario(writeScenario(t, "pools: [not: valid: yaml"))
	require.Error(t, err)
}

func TestScenarioValidation(t *testing.T) {
	load := func(t *testing.T, mutate func(*Scenario)) error {
		t.Helper()
		scenario, err := LoadScenario(writeScenario(t, baselineScenarioYAML))
		require.NoError(t, err)
		mutate(scenario)
		return scenario.Validate()
	}

	cases := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"zero days", func(s *Scenario) { s.Days = 0 }, "days"},
		{"no pools", func(s *Scenario) { s.Pools = nil }, "pool"},
		{"no agents", func(s *Scenario) { s.Agents = nil }, "agent"},
		{"duplicate pool", func(s *Scenario) {
			s.Pools = append(s.Pools, s.Pools[0])
		}, "duplicate pool"},
		{"duplicate agent", func(s *Scenario) {
			s.Agents = append(s.Agents, s.Agents[0])
		}, "duplicate agent"},
		{"pool without signals", func(s *Scenario) {
			delete(s.Signals, types.AssetBTC)
		}, "signal"},
		{"restake ratio out of range", func(s *Scenario) {
			s.Agents[0].RestakeRatio = 1.1
		}, "restake ratio"},
		{"balance in unknown pool", func(s *Scenario) {
			s.Agents[0].Balances["DOGE"] = 100
		}, "no pool"},
		{"lock preference not in boost table", func(s *Scenario) {
			s.Agents[0].LockPreferences[types.AssetAVL] = 45
		}, "lock preference"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := load(t, tc.mutate)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestPoolConfigsRoundTrip(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, baselineScenarioYAML))
	require.NoError(t, err)

	configs := scenario.PoolConfigs()
	require.Len(t, configs, 3)
	require.Equal(t, types.AssetAVL, configs[0].Asset)
	require.InDelta(t, 10_000_000, configs[0].InitialBalance, 1e-9)
	require.InDelta(t, 1_000_000, configs[0].InitialBudget, 1e-9)
	require.InDelta(t, 100_000_000, configs[1].MaxCap, 1e-9)
	require.Equal(t, types.PoolInactive, configs[2].InitialLifecycle)
	for _, cfg := range configs {
		require.NoError(t, cfg.Validate())
	}
}

func TestBuildAgentsStartUnlocked(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, baselineScenarioYAML))
	require.NoError(t, err)

	agents := scenario.BuildAgents()
	require.Len(t, agents, 2)

	maxi := agents["avl_maxi"]
	require.Equal(t, 1.0, maxi.RestakeRatio)
	require.Equal(t, 180, maxi.LockPreferences[types.AssetAVL])

	alloc := maxi.Assets[types.AssetAVL]
	require.InDelta(t, 6_000_000, alloc.Balance, 1e-9)
	require.Zero(t, alloc.LockedBalance())
	require.InDelta(t, 6_000_000, alloc.UnlockedBalance(), 1e-9)

	tourist := agents["yield_tourist"]
	require.Empty(t, tourist.LockPreferences)
	require.InDelta(t, 50_000_000, tourist.Assets[types.AssetETH].Balance, 1e-9)
}
