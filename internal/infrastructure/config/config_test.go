package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the variables the tests touch. Viper ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MARMOLERIA_APP_ENV",
		"MARMOLERIA_APP_PORT",
		"MARMOLERIA_DATABASE_DRIVER",
		"MARMOLERIA_DATABASE_HOST",
		"MARMOLERIA_DATABASE_PASSWORD",
		"MARMOLERIA_DATABASE_SSLMODE",
		"MARMOLERIA_DATABASE_MAX_OPEN_CONNS",
		"MARMOLERIA_DATABASE_MAX_IDLE_CONNS",
		"MARMOLERIA_JWT_SECRET",
		"MARMOLERIA_HTTP_ACTOR_HEADER",
		"MARMOLERIA_LEDGER_LOCK_TIMEOUT",
		"MARMOLERIA_LEDGER_ELIGIBLE_CONTAINER_STATUSES",
		"MARMOLERIA_TRACKING_ENABLED",
		"MARMOLERIA_TRACKING_ENDPOINT",
		"MARMOLERIA_TEXTGEN_ENABLED",
		"MARMOLERIA_TELEMETRY_SAMPLING_RATIO",
		"MARMOLERIA_TELEMETRY_PROFILING_ENABLED",
		"MARMOLERIA_TELEMETRY_PROFILING_SERVER_ADDRESS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "marmoleria-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "marmoleria", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 2*time.Second, cfg.Ledger.LockTimeout)
		assert.Equal(t, []string{"ARRIVED", "IN_PORT"}, cfg.Ledger.EligibleContainerStatuses)
		assert.Equal(t, []string{"WAREHOUSE", "FREE_ZONE", "CONTAINER"}, cfg.Ledger.DefaultSourceOrder)
		assert.Equal(t, "retail", cfg.Catalog.DefaultProfile)
		assert.Equal(t, "COP", cfg.Sales.Currency)
		assert.Equal(t, time.Second, cfg.HTTP.BusyRetryAfter)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})

	t.Run("loads values from environment variables with MARMOLERIA prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_APP_PORT", "9000")
		t.Setenv("MARMOLERIA_DATABASE_DRIVER", "sqlite")
		t.Setenv("MARMOLERIA_LEDGER_LOCK_TIMEOUT", "750ms")
		t.Setenv("MARMOLERIA_LEDGER_ELIGIBLE_CONTAINER_STATUSES", "ARRIVED")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, 750*time.Millisecond, cfg.Ledger.LockTimeout)
		assert.Equal(t, []string{"ARRIVED"}, cfg.Ledger.EligibleContainerStatuses)
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("MARMOLERIA_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("tracking requires an endpoint", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_TRACKING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tracking.endpoint")
	})

	t.Run("text generation requires an api key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_TEXTGEN_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "textgen.api_key")
	})

	t.Run("profiling requires a server address", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_TELEMETRY_PROFILING_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "profiling_server_address")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARMOLERIA_APP_ENV", "production")
		t.Setenv("MARMOLERIA_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("MARMOLERIA_DATABASE_PASSWORD", "secure-password")
		t.Setenv("MARMOLERIA_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.App.IsProduction())
	})

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MARMOLERIA_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MARMOLERIA_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("actor header is refused in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MARMOLERIA_HTTP_ACTOR_HEADER", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http.actor_header")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MARMOLERIA_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("sqlite needs no database password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("MARMOLERIA_DATABASE_DRIVER", "sqlite")
		t.Setenv("MARMOLERIA_DATABASE_PASSWORD", "")

		_, err := Load()
		require.NoError(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
