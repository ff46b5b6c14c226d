package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("CRS_COMMITTED_SOURCE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, CommittedStatic, cfg.CRSCommittedSource)
	assert.True(t, cfg.CCNEnforceTransitions)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 30*time.Second, cfg.AppRequestTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/costdesk.db")
	t.Setenv("CCN_ENFORCE_TRANSITIONS", "false")
	t.Setenv("CRS_COMMITTED_SOURCE", "purchase_orders")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "/tmp/costdesk.db", cfg.SQLitePath)
	assert.False(t, cfg.CCNEnforceTransitions)
	assert.Equal(t, CommittedPurchaseOrders, cfg.CRSCommittedSource)
}

func TestValidateFillsBlankChoices(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, CommittedStatic, cfg.CRSCommittedSource)
}

func TestConfigValidate(t *testing.T) {
	base := Config{StorageDriver: DriverMemory, CRSCommittedSource: CommittedStatic}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.StorageDriver = "etcd" }, "STORAGE_DRIVER"},
		{"postgres without dsn", func(c *Config) { c.StorageDriver = DriverPostgres }, "PG_DSN"},
		{"sqlite without path", func(c *Config) { c.StorageDriver = DriverSQLite }, "SQLITE_PATH"},
		{"unknown committed source", func(c *Config) { c.CRSCommittedSource = "erp" }, "CRS_COMMITTED_SOURCE"},
		{"negative rate limit", func(c *Config) { c.RateLimitPerMinute = -1 }, "RATE_LIMIT_PER_MINUTE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestValidateWorker(t *testing.T) {
	cfg := Config{StorageDriver: DriverRedis, RedisAddr: "127.0.0.1:6379"}
	require.NoError(t, cfg.ValidateWorker())

	cfg.StorageDriver = DriverMemory
	require.ErrorContains(t, cfg.ValidateWorker(), "not memory")

	cfg = Config{StorageDriver: DriverPostgres, PGDSN: "postgres://localhost/costdesk"}
	require.ErrorContains(t, cfg.ValidateWorker(), "REDIS_ADDR")

	blank := Config{RedisAddr: "127.0.0.1:6379"}
	require.ErrorContains(t, blank.ValidateWorker(), "not memory")
}
