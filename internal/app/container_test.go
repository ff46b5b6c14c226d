package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costdesk/costdesk/internal/crs"
	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/observability"
	"github.com/costdesk/costdesk/internal/procurement"
)

func testConfig() *Config {
	return &Config{
		StorageDriver:         DriverMemory,
		CRSCommittedSource:    CommittedStatic,
		CCNEnforceTransitions: true,
		RateLimitPerMinute:    0,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildContainer(t *testing.T, cfg *Config, opts ...BuildOption) *Container {
	t.Helper()
	c, err := Build(t.Context(), cfg, discardLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, reader))
	return rr
}

func TestBuildMemoryWithoutRedis(t *testing.T) {
	c := buildContainer(t, testConfig())
	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Jobs)
	assert.Nil(t, c.Snapshots)
	assert.Nil(t, c.PDF)
	assert.Len(t, c.Reloaders(), 3)
}

func TestRouterServesEveryArea(t *testing.T) {
	c := buildContainer(t, testConfig())
	metrics := observability.NewMetrics()
	require.NoError(t, c.TrackStores(metrics))
	router := c.Router(metrics)

	rr := serve(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = serve(t, router, http.MethodPost, "/estimations", `{"projectId":"P1","costHead":"OM01 - Material Cost","status":"submitted","items":[{"description":"cement","quantity":10,"unitCost":100}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(t, router, http.MethodPost, "/ccns", `{"projectId":"P1","changeType":"increase","category":"material","initiatedBy":"site","reason":"steel price","items":[{"referenceType":"estimation","itemDescription":"rebar","originalCost":100,"revisedCost":150}]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(t, router, http.MethodGet, "/reports/crs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var report crs.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.NotEmpty(t, report.Rows)
	assert.Equal(t, "OM01", report.Rows[0].SlNo)

	rr = serve(t, router, http.MethodGet, "/reports/crs/export.pdf", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = serve(t, router, http.MethodGet, "/reports/dashboard?project_id=P1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"projectId":"P1"`)

	rr = serve(t, router, http.MethodGet, "/purchase-orders?project_id=P1", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, router, http.MethodGet, "/jobs/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `costdesk_store_records{collection="estimations"} 1`)
	assert.Contains(t, rr.Body.String(), `costdesk_http_requests_total{code="201"`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	router := buildContainer(t, cfg).Router(nil)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(t, router, http.MethodGet, "/healthz", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(t, router, http.MethodGet, "/healthz", "").Code)
}

func TestBuildRedisDriverPersists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.StorageDriver = DriverRedis
	first := buildContainer(t, cfg, WithRedis(client))
	require.NotNil(t, first.Jobs)
	require.NotNil(t, first.Snapshots)

	_, err := first.Estimations.Add(t.Context(), estimation.Draft{ProjectID: "P1", CostHead: "OM02 - Manpower Cost"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("costdesk:estimations"))

	second := buildContainer(t, cfg, WithRedis(client))
	assert.Len(t, second.Estimations.List(t.Context()), 1)
}

func TestAsynqOptionsFollowInjectedClient(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "10.0.0.1:6379"
	cfg.RedisPassword = "from-env"
	cfg.RedisDB = 1

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6390", Password: "secret", DB: 4})
	t.Cleanup(func() { _ = client.Close() })

	opt := asynqRedisOpt(cfg, client)
	assert.Equal(t, "127.0.0.1:6390", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 4, opt.DB)

	opt = asynqRedisOpt(cfg, nil)
	assert.Equal(t, "10.0.0.1:6379", opt.Addr)
	assert.Equal(t, "from-env", opt.Password)
	assert.Equal(t, 1, opt.DB)
}

func TestBuildSQLiteDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = DriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "costdesk.db")

	c, err := Build(t.Context(), cfg, discardLogger())
	require.NoError(t, err)
	_, err = c.Estimations.Add(t.Context(), estimation.Draft{ProjectID: "P1"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened := buildContainer(t, cfg)
	assert.Len(t, reopened.Estimations.List(t.Context()), 1)
}

func TestCommittedFromPurchaseOrders(t *testing.T) {
	cfg := testConfig()
	cfg.CRSCommittedSource = CommittedPurchaseOrders
	c := buildContainer(t, cfg)
	ctx := t.Context()

	_, err := c.Estimations.Add(ctx, estimation.Draft{ProjectID: "P1", CostHead: "OM01 - Material Cost", Status: estimation.StatusApproved, Items: []estimation.Item{{Quantity: 1, UnitCost: 1000}}})
	require.NoError(t, err)
	po, err := c.PurchaseOrders.Create(ctx, procurement.Draft{ProjectID: "P1", Items: []procurement.Item{{Quantity: 1, UnitCost: 800, CostHead: "OM01 - Material Cost"}}})
	require.NoError(t, err)
	_, err = c.PurchaseOrders.Submit(ctx, po.ID)
	require.NoError(t, err)
	_, err = c.PurchaseOrders.Approve(ctx, po.ID, "pm")
	require.NoError(t, err)

	rows, err := c.CRS.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, "MATERIAL COST", rows[0].Particulars)
	require.NotNil(t, rows[0].Committed)
	assert.Equal(t, 800.0, *rows[0].Committed)
	require.NotNil(t, rows[0].Actual)
	assert.Equal(t, 45000.0, *rows[0].Actual)
}

func TestBuildRejectsMissingReferenceFile(t *testing.T) {
	cfg := testConfig()
	cfg.CRSReferenceFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Build(t.Context(), cfg, discardLogger())
	require.ErrorContains(t, err, "crs reference")
}
