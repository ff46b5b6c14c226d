// Package cli implements the operational commands of the costdesk binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/costdesk/costdesk/internal/crs"
	"github.com/costdesk/costdesk/internal/dashboard"
)

// Exit codes shared by the report commands.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitOverrun = 10
)

// CRSReporter produces the CRS report.
type CRSReporter interface {
	Report(ctx context.Context) (crs.Report, error)
}

// CCNReporter produces the per-project CCN report.
type CCNReporter interface {
	CCNReport(ctx context.Context, projectID string) dashboard.CCNReport
}

// ReportCLI prints reports without going through the HTTP server.
type ReportCLI struct {
	crs  CRSReporter
	ccns CCNReporter
}

// NewReportCLI constructs the helper.
func NewReportCLI(crsReporter CRSReporter, ccnReporter CCNReporter) *ReportCLI {
	return &ReportCLI{crs: crsReporter, ccns: ccnReporter}
}

// CRSOptions defines the flags of the report crs command.
type CRSOptions struct {
	Format        string
	FailOnOverrun bool
	Stdout        io.Writer
	Stderr        io.Writer
}

// CRSCommand writes the CRS report as csv, xlsx or json. With FailOnOverrun it
// exits with ExitOverrun when the anticipated total exceeds the estimate.
func (c *ReportCLI) CRSCommand(ctx context.Context, opts CRSOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" && format != "json" {
		_, _ = fmt.Fprintf(stderr, "report crs: unsupported format %q (expected csv, xlsx or json)\n", opts.Format)
		return ExitError
	}
	report, err := c.crs.Report(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "report crs: %v\n", err)
		return ExitError
	}
	switch format {
	case "csv":
		err = crs.WriteCSV(stdout, report)
	case "xlsx":
		var data []byte
		if data, err = crs.WriteXLSX(report); err == nil {
			_, err = stdout.Write(data)
		}
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "report crs: write %s: %v\n", format, err)
		return ExitError
	}
	if opts.FailOnOverrun && report.Summary.TotalVariance > 0 {
		_, _ = fmt.Fprintf(stderr, "report crs: anticipated cost exceeds estimate by %.2f\n", report.Summary.TotalVariance)
		return ExitOverrun
	}
	return ExitOK
}

// CCNOptions defines the flags of the report ccn command.
type CCNOptions struct {
	ProjectID  string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CCNCommand prints the CCN summary and budget impact of a project.
func (c *ReportCLI) CCNCommand(ctx context.Context, opts CCNOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	projectID := strings.TrimSpace(opts.ProjectID)
	if projectID == "" {
		_, _ = fmt.Fprintln(stderr, "report ccn: --project is required")
		return ExitError
	}
	report := c.ccns.CCNReport(ctx, projectID)
	if opts.JSONOutput {
		if err := json.NewEncoder(stdout).Encode(report); err != nil {
			_, _ = fmt.Fprintf(stderr, "report ccn: encode json: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
	renderCCNHuman(stdout, report)
	return ExitOK
}

func renderCCNHuman(out io.Writer, r dashboard.CCNReport) {
	s, b := r.Summary, r.BudgetImpact
	_, _ = fmt.Fprintf(out, "CCN report for project %s\n", r.ProjectID)
	_, _ = fmt.Fprintf(out, "Notes: %d total, %d pending, %d approved, %d rejected (all projects)\n",
		s.TotalCCNs, s.PendingApproval, s.Approved, s.Rejected)
	_, _ = fmt.Fprintf(out, "Budget: original %.2f, revised %.2f, variance %.2f (%.2f%%)\n",
		b.OriginalBudget, b.RevisedBudget, b.TotalVariance, b.VariancePercent)
	_, _ = fmt.Fprintf(out, "Pending variance: %.2f\n", b.PendingVariance)
	if len(r.Notes) == 0 {
		_, _ = fmt.Fprintln(out, "No cost change notes.")
		return
	}
	for _, n := range r.Notes {
		_, _ = fmt.Fprintf(out, " - %s [%s] %s %.2f\n", n.CCNNumber, n.Status, n.ChangeType, n.TotalVariance)
	}
}
