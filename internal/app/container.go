package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/costdesk/costdesk/internal/ccn"
	"github.com/costdesk/costdesk/internal/crs"
	"github.com/costdesk/costdesk/internal/dashboard"
	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/observability"
	"github.com/costdesk/costdesk/internal/platform/cache"
	"github.com/costdesk/costdesk/internal/platform/db"
	"github.com/costdesk/costdesk/internal/procurement"
	"github.com/costdesk/costdesk/internal/shared"
	"github.com/costdesk/costdesk/internal/storage"
	"github.com/costdesk/costdesk/jobs"
	"github.com/costdesk/costdesk/report"
)

// Container holds the stores and the infrastructure they were built on.
// Redis, Pool, Jobs, Inspector, Snapshots and PDF are nil when not configured.
type Container struct {
	Config *Config
	Logger *slog.Logger

	Backend   storage.Backend
	Redis     *redis.Client
	Pool      *pgxpool.Pool
	Approvals *shared.ApprovalRecorder
	Jobs      *jobs.Client
	Inspector *asynq.Inspector
	PDF       *report.Client

	Estimations    *estimation.Store
	CCNs           *ccn.Store
	PurchaseOrders *procurement.Store
	CRS            *crs.Service
	Snapshots      *crs.SnapshotStore
	Dashboard      *dashboard.Service

	closers []func() error
}

// BuildOption overrides parts of the container, mainly for tests.
type BuildOption func(*buildOptions)

type buildOptions struct {
	backend storage.Backend
	redis   *redis.Client
}

// WithBackend skips STORAGE_DRIVER and uses backend.
func WithBackend(backend storage.Backend) BuildOption {
	return func(o *buildOptions) { o.backend = backend }
}

// WithRedis uses client instead of dialing REDIS_ADDR. The caller keeps ownership.
func WithRedis(client *redis.Client) BuildOption {
	return func(o *buildOptions) { o.redis = client }
}

// Build connects the configured infrastructure and loads every store.
// On error the resources opened so far are released.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...BuildOption) (c *Container, err error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	c = &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	if err := c.connectRedis(ctx, o.redis); err != nil {
		return nil, err
	}
	if o.backend != nil {
		c.Backend = o.backend
	} else if err := c.openBackend(ctx); err != nil {
		return nil, err
	}

	if c.Redis != nil {
		redisOpt := asynqRedisOpt(cfg, o.redis)
		client, err := jobs.NewClient(redisOpt)
		if err != nil {
			return nil, fmt.Errorf("app: jobs client: %w", err)
		}
		c.Jobs = client
		c.closers = append(c.closers, client.Close)
		c.Inspector = asynq.NewInspector(redisOpt)
		c.closers = append(c.closers, c.Inspector.Close)
		c.Snapshots = crs.NewSnapshotStore(c.Redis, cfg.CRSSnapshotTTL)
	}
	if cfg.GotenbergURL != "" {
		c.PDF = report.NewClient(cfg.GotenbergURL)
	}

	c.Estimations = estimation.NewStore(ctx, c.Backend, logger.With(slog.String("store", "estimations")))
	c.PurchaseOrders = procurement.NewStore(ctx, c.Backend, logger.With(slog.String("store", "purchase_orders")))

	ccnOpts := []ccn.Option{ccn.WithTransitionGuard(cfg.CCNEnforceTransitions)}
	if c.Jobs != nil {
		ccnOpts = append(ccnOpts, ccn.WithNotifier(ccn.NewQueueNotifier(c.Jobs)))
	}
	if c.Approvals != nil {
		ccnOpts = append(ccnOpts, ccn.WithApprovalRecorder(c.Approvals))
	}
	c.CCNs = ccn.NewStore(ctx, c.Backend, logger.With(slog.String("store", "ccns")), ccnOpts...)

	reference, err := c.reference()
	if err != nil {
		return nil, err
	}
	c.CRS = crs.NewService(c.Estimations, reference)
	c.Dashboard = dashboard.NewService(c.Estimations, c.CCNs, c.PurchaseOrders, c.CRS)
	return c, nil
}

// asynqRedisOpt points the queue at the same Redis the stores use. An injected
// client wins over the configured address and credentials.
func asynqRedisOpt(cfg *Config, injected *redis.Client) asynq.RedisClientOpt {
	if injected != nil {
		opts := injected.Options()
		return asynq.RedisClientOpt{Addr: opts.Addr, Username: opts.Username, Password: opts.Password, DB: opts.DB}
	}
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func (c *Container) connectRedis(ctx context.Context, injected *redis.Client) error {
	if injected != nil {
		c.Redis = injected
		return nil
	}
	cfg := c.Config
	if cfg.RedisAddr == "" {
		if cfg.StorageDriver == DriverRedis {
			return errors.New("app: REDIS_ADDR must be set for the redis driver")
		}
		return nil
	}
	client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		if cfg.StorageDriver == DriverRedis {
			return fmt.Errorf("app: connect redis: %w", err)
		}
		c.Logger.Warn("redis unavailable, jobs and snapshots disabled", slog.Any("error", err))
		return nil
	}
	c.Redis = client
	c.closers = append(c.closers, client.Close)
	return nil
}

func (c *Container) openBackend(ctx context.Context) error {
	cfg := c.Config
	switch cfg.StorageDriver {
	case DriverMemory:
		c.Backend = storage.NewMemory()
	case DriverSQLite:
		backend, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("app: open sqlite: %w", err)
		}
		c.Backend = backend
		c.closers = append(c.closers, backend.Close)
	case DriverRedis:
		c.Backend = storage.NewRedis(c.Redis, storage.DefaultRedisPrefix)
	case DriverPostgres:
		pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
		if err != nil {
			return fmt.Errorf("app: connect postgres: %w", err)
		}
		c.Pool = pool
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		backend := storage.NewPostgres(pool)
		if err := backend.Migrate(ctx); err != nil {
			return err
		}
		c.Backend = backend
		recorder := shared.NewApprovalRecorder(pool, c.Logger)
		if err := recorder.Migrate(ctx); err != nil {
			return fmt.Errorf("app: migrate approvals: %w", err)
		}
		c.Approvals = recorder
	default:
		return fmt.Errorf("app: unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	c.Logger.Info("storage ready", slog.String("driver", cfg.StorageDriver))
	return nil
}

func (c *Container) reference() (crs.Reference, error) {
	table := crs.DefaultTable()
	if path := c.Config.CRSReferenceFile; path != "" {
		loaded, err := crs.LoadTable(path)
		if err != nil {
			return nil, fmt.Errorf("app: crs reference: %w", err)
		}
		table = loaded
	}
	if c.Config.CRSCommittedSource == CommittedPurchaseOrders {
		return crs.NewCommitmentOverlay(table, c.PurchaseOrders), nil
	}
	return table, nil
}

// Reloaders lists the stores in the order a full refresh should reload them.
func (c *Container) Reloaders() []crs.Reloader {
	return []crs.Reloader{c.Estimations, c.CCNs, c.PurchaseOrders}
}

// TrackStores exports the size of each collection on metrics.
func (c *Container) TrackStores(metrics *observability.Metrics) error {
	ctx := context.Background()
	return errors.Join(
		metrics.TrackCollection(storage.KeyEstimations, func() int { return len(c.Estimations.List(ctx)) }),
		metrics.TrackCollection(storage.KeyCostChangeNotes, func() int { return len(c.CCNs.List(ctx)) }),
		metrics.TrackCollection(storage.KeyPurchaseOrders, func() int { return len(c.PurchaseOrders.List(ctx)) }),
	)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
