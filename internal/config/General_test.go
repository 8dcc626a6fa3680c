package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("WEB_PORT", "")
	t.Setenv("SCENARIO_PATH", "scenarios/baseline.yaml")
	require.NoError(t, LoadConfig())
	require.Equal(t, "scenarios/baseline.yaml", ScenarioPath)
	require.False(t, DBEnabled)
	require.Equal(t, "8080", WebPort)
}

func TestLoadConfigDatabaseBlock(t *testing.T) {
	t.Setenv("SCENARIO_PATH", "scenarios/baseline.yaml")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "stakesim")
	t.Setenv("DB_NAME", "stakesim")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("WEB_PORT", "9090")

	require.NoError(t, LoadConfig())
	require.True(t, DBEnabled)
	require.Equal(t, "localhost", DBHost)
	require.Equal(t, 5432, DBPort)
	require.Equal(t, "disable", DBSSLMode)
	require.Equal(t, "9090", WebPort)

	t.Setenv("DB_PORT", "not-a-port")
	require.Error(t, LoadConfig())
}
