package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. Populated at startup by LoadConfig.
var (
	// ScenarioPath is the YAML scenario file describing pools, agents,
	// schedules and signal series.
	ScenarioPath string

	// DBEnabled controls whether snapshots are persisted to PostgreSQL. When
	// false the run is in-memory only and the dashboard is not started.
	DBEnabled bool

	// DBHost, DBPort, DBUser, DBPassword, DBName, DBSSLMode configure the
	// PostgreSQL connection. Only required when DBEnabled.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// WebPort is the dashboard listen port.
	WebPort string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. SCENARIO_PATH is required; the database block is
// required only when DB_ENABLED is true.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ScenarioPath, err = getEnv("SCENARIO_PATH")
	if err != nil {
		return err
	}

	DBEnabled = os.Getenv("DB_ENABLED") == "true"
	if DBEnabled {
		DBHost, err = getEnv("DB_HOST")
		if err != nil {
			return err
		}
		DBPort, err = getEnvAsInt("DB_PORT")
		if err != nil {
			return err
		}
		DBUser, err = getEnv("DB_USER")
		if err != nil {
			return err
		}
		DBPassword = os.Getenv("DB_PASSWORD")
		DBName, err = getEnv("DB_NAME")
		if err != nil {
			return err
		}
		DBSSLMode = os.Getenv("DB_SSLMODE")
		if DBSSLMode == "" {
			DBSSLMode = "disable"
		}
	}

	WebPort = os.Getenv("WEB_PORT")
	if WebPort == "" {
		WebPort = "8080"
	}

	log.Debug().
		Str("ScenarioPath", ScenarioPath).
		Bool("DBEnabled", DBEnabled).
		Str("WebPort", WebPort).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if
// not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
