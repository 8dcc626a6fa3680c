package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/avail-network/stakesim/internal/boosting"
	"github.com/avail-network/stakesim/internal/config"
	"github.com/avail-network/stakesim/internal/engine"
	"github.com/avail-network/stakesim/internal/flows"
	"github.com/avail-network/stakesim/internal/ledger"
	"github.com/avail-network/stakesim/internal/logger"
	"github.com/avail-network/stakesim/internal/prices"
	"github.com/avail-network/stakesim/internal/rewards"
	"github.com/avail-network/stakesim/internal/state"
	"github.com/avail-network/stakesim/internal/web"
)

// main is the entry point for the staking economy simulator.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Staking economy simulator starting...")

	scenario, err := config.LoadScenario(config.ScenarioPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scenario")
	}
	log.Info().
		Str("scenario", scenario.Name).
		Int("days", scenario.Days).
		Int64("seed", scenario.Seed).
		Msg("Scenario loaded")

	// --- 2. Persistence (optional) ---
	if config.DBEnabled {
		dbCfg := state.DBConfig{
			Host: config.DBHost, Port: config.DBPort,
			User: config.DBUser, Password: config.DBPassword,
			DBName: config.DBName, SSLMode: config.DBSSLMode,
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}

		webServer := web.NewWebServer(config.WebPort)
		go func() {
			log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting simulation dashboard")
			if err := webServer.Start(); err != nil {
				log.Error().Err(err).Msg("Web server failed to start")
			}
		}()
	}

	// --- 3. Component Assembly with Dependency Injection ---
	poolLedger, err := ledger.New(scenario.PoolConfigs())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pool ledger")
	}

	boost, err := boosting.New(*scenario.Boost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build boosting subsystem")
	}

	rewardEngine, err := rewards.NewEngine(rewards.Config{
		Ledger:      poolLedger,
		Boost:       boost,
		DeltaDays:   scenario.DeltaDays,
		ExcessRatio: scenario.ExcessBudgetRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build reward engine")
	}

	flowEngine, err := flows.NewEngine(poolLedger, scenario.Seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build flow engine")
	}

	signals, err := prices.NewSource(scenario.Signals, scenario.Days, scenario.Seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build signal source")
	}

	var recorder engine.Recorder
	if config.DBEnabled {
		recorder = state.Recorder{}
	}

	sim, err := engine.New(engine.Config{
		Ledger:   poolLedger,
		Boost:    boost,
		Rewards:  rewardEngine,
		Flows:    flowEngine,
		Agents:   scenario.BuildAgents(),
		Schedule: scenario.Schedule,
		Signals:  signals,
		Recorder: recorder,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create simulation engine")
	}

	if config.DBEnabled {
		if _, err := state.RegisterRun(sim.RunID(), scenario.Name, scenario.Days, scenario.Seed, scenario); err != nil {
			log.Fatal().Err(err).Msg("Failed to register run")
		}
	}

	// --- 4. Run ---
	snapshots, err := sim.Run(context.Background(), scenario.Days)
	if err != nil {
		log.Fatal().Err(err).
			Int("completed_timesteps", len(snapshots)).
			Msg("Simulation halted")
	}

	if config.DBEnabled {
		if err := state.CompleteRun(sim.RunID()); err != nil {
			log.Error().Err(err).Msg("Failed to mark run complete")
		}
	}

	final := snapshots[len(snapshots)-1]
	log.Info().
		Str("run_id", sim.RunID()).
		Int("timesteps", len(snapshots)).
		Float64("final_total_tvl", final.TotalTVL).
		Msg("Simulation finished")
}
