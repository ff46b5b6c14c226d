package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Sources for the committed column of the CRS report.
const (
	CommittedStatic         = "static"
	CommittedPurchaseOrders = "purchase_orders"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"costdesk.db"`
	PGDSN         string `envconfig:"PG_DSN"`
	PGMaxConns    int32  `envconfig:"PG_MAX_CONNS" default:"10"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	GotenbergURL string `envconfig:"GOTENBERG_URL"`

	CRSReferenceFile   string        `envconfig:"CRS_REFERENCE_FILE"`
	CRSCommittedSource string        `envconfig:"CRS_COMMITTED_SOURCE" default:"static"`
	CRSSnapshotTTL     time.Duration `envconfig:"CRS_SNAPSHOT_TTL" default:"2160h"`
	CRSSnapshotCron    string        `envconfig:"CRS_SNAPSHOT_CRON" default:"0 2 * * *"`

	CCNEnforceTransitions bool `envconfig:"CCN_ENFORCE_TRANSITIONS" default:"true"`

	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	WorkerConcurrency  int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerMetricsAddr  string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads .env when present, then the process environment.
// Variables already set in the environment win over .env entries.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("app: load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option combinations that envconfig cannot express.
// envconfig keeps a variable that is set but empty, so blank driver and
// committed source fall back to their defaults here.
func (c *Config) Validate() error {
	if c.StorageDriver == "" {
		c.StorageDriver = DriverMemory
	}
	if c.CRSCommittedSource == "" {
		c.CRSCommittedSource = CommittedStatic
	}
	switch c.StorageDriver {
	case DriverMemory, DriverRedis:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("app: SQLITE_PATH must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.PGDSN == "" {
			return errors.New("app: PG_DSN must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("app: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.CRSCommittedSource {
	case CommittedStatic, CommittedPurchaseOrders:
	default:
		return fmt.Errorf("app: unknown CRS_COMMITTED_SOURCE %q", c.CRSCommittedSource)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("app: RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// ValidateWorker checks the options the background worker needs on top of
// Validate. The worker runs in its own process, so an in-memory store would
// snapshot an empty dataset.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.StorageDriver == DriverMemory {
		return errors.New("app: the worker needs a shared STORAGE_DRIVER, not memory")
	}
	if c.RedisAddr == "" {
		return errors.New("app: REDIS_ADDR must be set for the worker")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
