package crs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/costdesk/costdesk/internal/platform/httpx"
	"github.com/costdesk/costdesk/jobs"
)

// PDFRenderer converts a report into a PDF document.
type PDFRenderer interface {
	RenderCRS(ctx context.Context, report Report) ([]byte, error)
}

// SnapshotEnqueuer schedules snapshot tasks.
type SnapshotEnqueuer interface {
	EnqueueCRSSnapshot(ctx context.Context, payload jobs.CRSSnapshotPayload) (*asynq.TaskInfo, error)
}

// Handler serves the CRS report, its exports and stored snapshots.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	pdf       PDFRenderer
	snapshots *SnapshotStore
	jobs      SnapshotEnqueuer
}

// NewHandler constructs handler. pdf, snapshots and jobsClient may be nil;
// the matching endpoints then answer 503.
func NewHandler(logger *slog.Logger, service *Service, pdf PDFRenderer, snapshots *SnapshotStore, jobsClient SnapshotEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, pdf: pdf, snapshots: snapshots, jobs: jobsClient}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports/crs", func(r chi.Router) {
		r.Get("/", h.show)
		r.Get("/export.csv", h.exportCSV)
		r.Get("/export.xlsx", h.exportXLSX)
		r.Get("/export.pdf", h.exportPDF)
		r.Post("/snapshots", h.triggerSnapshot)
		r.Get("/snapshots/{date}", h.showSnapshot)
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(report, "csv"))
	if err := WriteCSV(w, report); err != nil {
		h.logger.Error("crs export csv", slog.Any("error", err))
	}
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	body, err := WriteXLSX(report)
	if err != nil {
		h.logger.Error("crs export xlsx", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", attachment(report, "xlsx"), body)
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf rendering is not configured")
		return
	}
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	body, err := h.pdf.RenderCRS(r.Context(), report)
	if err != nil {
		h.logger.Error("crs export pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering failed")
		return
	}
	writeFile(w, "application/pdf", attachment(report, "pdf"), body)
}

func (h *Handler) triggerSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue is not configured")
		return
	}
	payload := jobs.CRSSnapshotPayload{Date: r.URL.Query().Get("date"), RequestedBy: r.URL.Query().Get("requested_by")}
	if _, err := payload.SnapshotDate(time.Now()); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: date must be YYYY-MM-DD", httpx.ErrValidation))
		return
	}
	info, err := h.jobs.EnqueueCRSSnapshot(r.Context(), payload)
	if err != nil {
		h.logger.Error("enqueue crs snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": info.ID, "queue": info.Queue})
}

func (h *Handler) showSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "snapshot store is not configured")
		return
	}
	date, err := time.Parse(time.DateOnly, chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: date must be YYYY-MM-DD", httpx.ErrValidation))
		return
	}
	report, err := h.snapshots.Load(r.Context(), date)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			h.logger.Error("load crs snapshot", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) (Report, bool) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.logger.Error("crs report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return Report{}, false
	}
	return report, true
}

func attachment(report Report, ext string) string {
	return fmt.Sprintf(`attachment; filename="crs-%s.%s"`, report.GeneratedAt.UTC().Format("20060102"), ext)
}

func writeFile(w http.ResponseWriter, contentType, disposition string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
