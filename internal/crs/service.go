package crs

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/costdesk/costdesk/internal/costhead"
)

// TotalsSource reports estimated totals per cost-head label.
type TotalsSource interface {
	TotalsByCostHead(ctx context.Context) map[string]float64
}

// Service derives CRS rows. Every call recomputes from the current sources.
type Service struct {
	totals    TotalsSource
	reference Reference
	now       func() time.Time
}

// NewService constructs the derivation service.
func NewService(totals TotalsSource, reference Reference) *Service {
	if reference == nil {
		reference = StaticTable{}
	}
	return &Service{totals: totals, reference: reference, now: time.Now}
}

// Rows returns at most six rows in cost-head order, dropping heads with no
// estimate, commitment or actual.
func (s *Service) Rows(ctx context.Context) ([]Row, error) {
	lines, err := s.lines(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, l.row())
	}
	return rows, nil
}

// Summary totals the surviving rows from their uncollapsed figures.
func (s *Service) Summary(ctx context.Context) (ProjectSummary, error) {
	lines, err := s.lines(ctx)
	if err != nil {
		return ProjectSummary{}, err
	}
	return summarize(lines), nil
}

// Report computes rows and summary from a single read of the sources.
func (s *Service) Report(ctx context.Context) (Report, error) {
	lines, err := s.lines(ctx)
	if err != nil {
		return Report{}, err
	}
	rows := make([]Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, l.row())
	}
	return Report{GeneratedAt: s.now().UTC(), Rows: rows, Summary: summarize(lines)}, nil
}

func (s *Service) lines(ctx context.Context) ([]line, error) {
	var totals map[string]float64
	if s.totals != nil {
		totals = s.totals.TotalsByCostHead(ctx)
	}
	heads := costhead.All()
	out := make([]line, 0, len(heads))
	for _, h := range heads {
		fig, err := s.reference.Figures(ctx, h.Label)
		if err != nil {
			return nil, fmt.Errorf("crs: reference figures for %s: %w", h.Label, err)
		}
		l := derive(h, totals[h.Label], fig)
		if l.estimate == 0 && l.committed == 0 && l.actual == 0 {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func derive(h costhead.Head, estimate float64, fig Figures) line {
	l := line{
		code:      h.Code,
		label:     h.Label,
		estimate:  estimate,
		committed: fig.Committed,
		actual:    fig.Actual,
	}
	l.uncommitted = math.Max(0, l.estimate-l.committed)
	l.anticipated = l.actual + l.uncommitted
	l.variance = l.anticipated - l.estimate
	if l.estimate > 0 {
		l.variancePct = l.variance / l.estimate * 100
	}
	return l
}

func (l line) row() Row {
	r := Row{
		SlNo:        l.code,
		Particulars: l.label,
		Estimate:    nonZero(l.estimate),
		Committed:   nonZero(l.committed),
		Uncommitted: nonZero(l.uncommitted),
		Actual:      nonZero(l.actual),
		Anticipated: nonZero(l.anticipated),
		Variance:    nonZero(math.Abs(l.variance)),
	}
	if r.Variance != nil {
		r.Variance = ptr(l.variance)
	}
	if math.Abs(l.variancePct) >= 0.01 {
		r.VariancePercent = ptr(l.variancePct)
	}
	return r
}

func summarize(lines []line) ProjectSummary {
	var sum ProjectSummary
	for _, l := range lines {
		sum.TotalEstimate += l.estimate
		sum.TotalCommitted += l.committed
		sum.TotalActual += l.actual
		sum.TotalVariance += l.variance
	}
	if sum.TotalEstimate != 0 {
		sum.VariancePercent = sum.TotalVariance / sum.TotalEstimate * 100
	}
	return sum
}

func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return ptr(v)
}

func ptr(v float64) *float64 {
	return &v
}
