package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/costdesk/costdesk/internal/ccn"
	"github.com/costdesk/costdesk/internal/crs"
	"github.com/costdesk/costdesk/internal/dashboard"
	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/observability"
	"github.com/costdesk/costdesk/internal/platform/httpx"
	"github.com/costdesk/costdesk/internal/procurement"
	"github.com/costdesk/costdesk/internal/shared"
	"github.com/costdesk/costdesk/jobs"
	"github.com/costdesk/costdesk/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	EstimationHandler    *estimation.Handler
	CCNHandler           *ccn.Handler
	PurchaseOrderHandler *procurement.Handler
	CRSHandler           *crs.Handler
	DashboardHandler     *dashboard.Handler
	ReportHandler        *report.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with the costdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.EstimationHandler != nil {
		params.EstimationHandler.MountRoutes(r)
	}
	if params.CCNHandler != nil {
		params.CCNHandler.MountRoutes(r)
	}
	if params.PurchaseOrderHandler != nil {
		params.PurchaseOrderHandler.MountRoutes(r)
	}
	if params.CRSHandler != nil {
		params.CRSHandler.MountRoutes(r)
	}
	if params.DashboardHandler != nil {
		params.DashboardHandler.MountRoutes(r)
	}
	if params.ReportHandler != nil {
		r.Route("/reports/pdf", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	return r
}

// Router builds every handler on top of the container's stores.
func (c *Container) Router(metrics *observability.Metrics) http.Handler {
	validate := shared.NewValidator()
	logger := c.Logger

	var pdf crs.PDFRenderer
	var reportHandler *report.Handler
	if c.PDF != nil {
		pdf = c.PDF
		reportHandler = report.NewHandler(c.PDF, logger)
	}
	var enqueuer crs.SnapshotEnqueuer
	if c.Jobs != nil {
		enqueuer = c.Jobs
	}
	ccnHandler := ccn.NewHandler(logger, c.CCNs, validate)
	if c.Approvals != nil {
		ccnHandler.WithApprovalHistory(c.Approvals)
	}
	var inspector jobs.QueueInspector
	if c.Inspector != nil {
		inspector = c.Inspector
	}

	return NewRouter(RouterParams{
		Logger:               logger,
		Config:               c.Config,
		Metrics:              metrics,
		EstimationHandler:    estimation.NewHandler(logger, c.Estimations, validate),
		CCNHandler:           ccnHandler,
		PurchaseOrderHandler: procurement.NewHandler(logger, c.PurchaseOrders, c.Estimations, validate),
		CRSHandler:           crs.NewHandler(logger, c.CRS, pdf, c.Snapshots, enqueuer),
		DashboardHandler:     dashboard.NewHandler(logger, c.Dashboard),
		ReportHandler:        reportHandler,
		JobHandler:           jobs.NewHandler(inspector, logger),
	})
}
