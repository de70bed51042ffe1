package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"ERP_APP_NAME",
	"ERP_APP_ENV",
	"ERP_APP_PORT",
	"ERP_DATABASE_DRIVER",
	"ERP_DATABASE_HOST",
	"ERP_DATABASE_PORT",
	"ERP_DATABASE_USER",
	"ERP_DATABASE_PASSWORD",
	"ERP_DATABASE_DBNAME",
	"ERP_DATABASE_SSLMODE",
	"ERP_DATABASE_MAX_OPEN_CONNS",
	"ERP_DATABASE_MAX_IDLE_CONNS",
	"ERP_REDIS_ENABLED",
	"ERP_LEDGER_BASE_CURRENCY",
	"ERP_LEDGER_DEFAULT_SCALE",
	"ERP_LEDGER_LOCK_TIMEOUT",
	"ERP_LEDGER_SEQUENCE_BACKEND",
	"ERP_LEDGER_ACCOUNTS_RETAINED_EARNINGS",
	"ERP_RETENTION_ARCHIVE_SINK",
	"ERP_STORAGE_BUCKET",
	"ERP_TELEMETRY_DB_LOG_FULL_SQL",
	"ERP_TELEMETRY_SAMPLING_RATIO",
}

// isolateEnv clears every key the tests touch; t.Setenv restores them afterwards.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "erp-ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	})

	t.Run("applies ledger defaults", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "USD", cfg.Ledger.BaseCurrency)
		assert.Equal(t, "USD", cfg.Ledger.ClosingCurrency)
		assert.Equal(t, int32(2), cfg.Ledger.DefaultScale)
		assert.Equal(t, 5*time.Second, cfg.Ledger.LockTimeout)
		assert.Equal(t, 2*time.Second, cfg.Ledger.AuditTimeout)
		assert.Equal(t, "db", cfg.Ledger.SequenceBackend)
		assert.Equal(t, "3010", cfg.Ledger.ControlAccounts.RetainedEarnings)
		assert.Equal(t, "2000", cfg.Ledger.ControlAccounts.AccountsPayable)
		assert.Equal(t, "1200", cfg.Ledger.ControlAccounts.AccountsReceivable)
		assert.Equal(t, "table", cfg.Retention.ArchiveSink)
		assert.Equal(t, 500, cfg.Retention.BatchSize)
	})

	t.Run("loads values from environment variables with ERP prefix", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("ERP_APP_NAME", "test-ledger")
		t.Setenv("ERP_APP_PORT", "9000")
		t.Setenv("ERP_DATABASE_HOST", "testdb.local")
		t.Setenv("ERP_DATABASE_PORT", "5433")
		t.Setenv("ERP_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("ERP_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("ERP_LEDGER_BASE_CURRENCY", "eur")
		t.Setenv("ERP_LEDGER_DEFAULT_SCALE", "4")
		t.Setenv("ERP_LEDGER_LOCK_TIMEOUT", "750ms")
		t.Setenv("ERP_LEDGER_ACCOUNTS_RETAINED_EARNINGS", "3900")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-ledger", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "EUR", cfg.Ledger.BaseCurrency)
		assert.Equal(t, "EUR", cfg.Ledger.ClosingCurrency)
		assert.Equal(t, int32(4), cfg.Ledger.DefaultScale)
		assert.Equal(t, 750*time.Millisecond, cfg.Ledger.LockTimeout)
		assert.Equal(t, "3900", cfg.Ledger.ControlAccounts.RetainedEarnings)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("ERP_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("ERP_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("ERP_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})
}

func TestLoad_LedgerValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "scale above six",
			env:     map[string]string{"ERP_LEDGER_DEFAULT_SCALE": "7"},
			wantErr: "ledger.default_scale must be between 2 and 6",
		},
		{
			name:    "scale below two",
			env:     map[string]string{"ERP_LEDGER_DEFAULT_SCALE": "1"},
			wantErr: "ledger.default_scale must be between 2 and 6",
		},
		{
			name:    "negative lock timeout",
			env:     map[string]string{"ERP_LEDGER_LOCK_TIMEOUT": "-1s"},
			wantErr: "ledger.lock_timeout must be positive",
		},
		{
			name:    "redis sequences without redis",
			env:     map[string]string{"ERP_LEDGER_SEQUENCE_BACKEND": "redis"},
			wantErr: "requires redis.enabled=true",
		},
		{
			name:    "unknown sequence backend",
			env:     map[string]string{"ERP_LEDGER_SEQUENCE_BACKEND": "etcd"},
			wantErr: "ledger.sequence_backend must be db or redis",
		},
		{
			name:    "s3 archive without bucket",
			env:     map[string]string{"ERP_RETENTION_ARCHIVE_SINK": "s3"},
			wantErr: "storage.bucket is required",
		},
		{
			name:    "sampling ratio out of range",
			env:     map[string]string{"ERP_TELEMETRY_SAMPLING_RATIO": "1.5"},
			wantErr: "telemetry.sampling_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("redis sequences with redis enabled", func(t *testing.T) {
		isolateEnv(t)
		t.Setenv("ERP_LEDGER_SEQUENCE_BACKEND", "redis")
		t.Setenv("ERP_REDIS_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "redis", cfg.Ledger.SequenceBackend)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("ERP_APP_ENV", "production")
		t.Setenv("ERP_DATABASE_PASSWORD", "secure-password")
		t.Setenv("ERP_DATABASE_SSLMODE", "require")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase(t)
		os.Unsetenv("ERP_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase(t)
		t.Setenv("ERP_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase(t)
		t.Setenv("ERP_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver must be postgres in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase(t)
		t.Setenv("ERP_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestParseCurrencyScales(t *testing.T) {
	scales := parseCurrencyScales(map[string]string{"bhd": "3", "usd": " 2 ", "xxx": "abc"})
	assert.Equal(t, int32(3), scales["BHD"])
	assert.Equal(t, int32(2), scales["USD"])
	assert.Equal(t, int32(-1), scales["XXX"])
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid postgres DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
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
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite uses the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "sqlite", Path: "file::memory:?cache=shared"}
		assert.Equal(t, "file::memory:?cache=shared", cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
