/*
This file loads simulation scenarios from YAML. A scenario is the complete
declarative description of one run: pools, agent classes, boost tables, the
three external schedules and the signal series per asset.
*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avail-network/stakesim/internal/prices"
	"github.com/avail-network/stakesim/internal/types"
)

// PoolScenario describes one pool in a scenario file. Flow is optional;
// DefaultFlowParameters apply when omitted.
type PoolScenario struct {
	Asset          types.Asset           `yaml:"asset"`
	InitialBalance float64               `yaml:"initial_balance"`
	InitialBudget  float64               `yaml:"initial_budget"`
	Lifecycle      types.PoolLifecycle   `yaml:"lifecycle"`
	TargetYield    float64               `yaml:"target_yield"`
	MaxCap         float64               `yaml:"max_cap"`
	Flow           *types.FlowParameters `yaml:"flow,omitempty"`
}

// AgentScenario describes one agent class in a scenario file.
type AgentScenario struct {
	Name            string                  `yaml:"name"`
	RestakeRatio    float64                 `yaml:"restake_ratio"`
	LockPreferences map[types.Asset]int     `yaml:"lock_preferences,omitempty"`
	Balances        map[types.Asset]float64 `yaml:"balances"`
}

// Scenario is the full declarative run description.
type Scenario struct {
	Name string `yaml:"name"`
	Days int    `yaml:"days"`
	Seed int64  `yaml:"seed"`

	// DeltaDays and ExcessBudgetRatio default to the calibrated constants
	// when zero.
	DeltaDays         float64 `yaml:"delta_days,omitempty"`
	ExcessBudgetRatio float64 `yaml:"excess_budget_ratio,omitempty"`

	Pools  []PoolScenario  `yaml:"pools"`
	Agents []AgentScenario `yaml:"agents"`

	// Boost defaults to DefaultBoostParameters when omitted.
	Boost *types.BoostParameters `yaml:"boost,omitempty"`

	Schedule types.Schedule `yaml:"schedule,omitempty"`

	Signals map[types.Asset]prices.SeriesConfig `yaml:"signals"`
}

// LoadScenario reads, parses and validates a scenario file, applying defaults
// for omitted sections.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario file %s: %w", path, err)
	}

	scenario.applyDefaults()
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func (s *Scenario) applyDefaults() {
	if s.DeltaDays == 0 {
		s.DeltaDays = DefaultDeltaDays
	}
	if s.ExcessBudgetRatio == 0 {
		s.ExcessBudgetRatio = DefaultExcessBudgetRatio
	}
	if s.Boost == nil {
		boost := DefaultBoostParameters
		s.Boost = &boost
	}
	for i := range s.Pools {
		if s.Pools[i].Lifecycle == "" {
			s.Pools[i].Lifecycle = types.PoolActive
		}
		if s.Pools[i].Flow == nil {
			flow := DefaultFlowParameters
			s.Pools[i].Flow = &flow
		}
	}
}

// Validate cross-checks the scenario sections against each other.
func (s *Scenario) Validate() error {
	if s.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", s.Days)
	}
	if len(s.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}
	if len(s.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}

	if err := s.Boost.Validate(); err != nil {
		return err
	}

	poolAssets := make(map[types.Asset]bool, len(s.Pools))
	for _, pool := range s.Pools {
		if poolAssets[pool.Asset] {
			return fmt.Errorf("duplicate pool for asset %s", pool.Asset)
		}
		poolAssets[pool.Asset] = true

		if _, ok := s.Signals[pool.Asset]; !ok {
			return fmt.Errorf("pool %s has no signal series", pool.Asset)
		}
	}

	seenAgents := make(map[string]bool, len(s.Agents))
	for _, agent := range s.Agents {
		if agent.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
		if seenAgents[agent.Name] {
			return fmt.Errorf("duplicate agent %s", agent.Name)
		}
		seenAgents[agent.Name] = true

		if agent.RestakeRatio < 0 || agent.RestakeRatio > 1 {
			return fmt.Errorf("agent %s: restake ratio must be in [0, 1], got %f", agent.Name, agent.RestakeRatio)
		}
		for asset := range agent.Balances {
			if !poolAssets[asset] {
				return fmt.Errorf("agent %s holds %s which has no pool", agent.Name, asset)
			}
		}
		for asset, period := range agent.LockPreferences {
			if !poolAssets[asset] {
				return fmt.Errorf("agent %s has lock preference for %s which has no pool", agent.Name, asset)
			}
			if _, ok := s.Boost.LockPeriodMultipliers[period]; !ok {
				return fmt.Errorf("agent %s: lock preference %d days for %s not in the configured lock periods", agent.Name, period, asset)
			}
		}
	}

	return nil
}

// PoolConfigs converts the scenario's pool section into ledger configs.
func (s *Scenario) PoolConfigs() []types.PoolConfig {
	configs := make([]types.PoolConfig, 0, len(s.Pools))
	for _, pool := range s.Pools {
		configs = append(configs, types.PoolConfig{
			Asset:            pool.Asset,
			InitialBalance:   pool.InitialBalance,
			InitialBudget:    pool.InitialBudget,
			InitialLifecycle: pool.Lifecycle,
			TargetYield:      pool.TargetYield,
			MaxCap:           pool.MaxCap,
			Flow:             *pool.Flow,
		})
	}
	return configs
}

// BuildAgents materializes the scenario's agent classes. Balances start fully
// unlocked; locks accrue through restaking during the run.
func (s *Scenario) BuildAgents() map[string]*types.Agent {
	agents := make(map[string]*types.Agent, len(s.Agents))
	for _, spec := range s.Agents {
		agent := &types.Agent{
			Name:            spec.Name,
			RestakeRatio:    spec.RestakeRatio,
			LockPreferences: spec.LockPreferences,
			Assets:          make(map[types.Asset]*types.AssetAllocation),
		}
		for asset, balance := range spec.Balances {
			agent.Assets[asset] = &types.AssetAllocation{Balance: balance}
		}
		agents[spec.Name] = agent
	}
	return agents
}
