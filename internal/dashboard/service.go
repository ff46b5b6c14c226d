// Package dashboard assembles per-project overview figures from the stores.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/costdesk/costdesk/internal/ccn"
	"github.com/costdesk/costdesk/internal/crs"
	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/procurement"
)

// EstimationReader is the estimation store surface used here.
type EstimationReader interface {
	ListByProject(ctx context.Context, projectID string) []estimation.Estimation
}

// CCNReader is the CCN store surface used here.
type CCNReader interface {
	ListByProject(ctx context.Context, projectID string) []ccn.CostChangeNote
	Summary(ctx context.Context) ccn.Summary
	BudgetImpact(ctx context.Context, projectID string) ccn.BudgetImpact
}

// PurchaseOrderReader is the purchase order store surface used here.
type PurchaseOrderReader interface {
	ListByProject(ctx context.Context, projectID string) []procurement.PurchaseOrder
}

// CRSSummarizer produces the project summary of the CRS report.
type CRSSummarizer interface {
	Summary(ctx context.Context) (crs.ProjectSummary, error)
}

// EstimationStats counts project estimations.
type EstimationStats struct {
	Count         int                       `json:"count"`
	ByStatus      map[estimation.Status]int `json:"byStatus"`
	TotalAmount   float64                   `json:"totalAmount"`
	CountedAmount float64                   `json:"countedAmount"`
}

// CCNStats counts project cost change notes.
type CCNStats struct {
	Count    int                `json:"count"`
	ByStatus map[ccn.Status]int `json:"byStatus"`
	Impact   ccn.BudgetImpact   `json:"budgetImpact"`
}

// PurchaseOrderStats counts project purchase orders.
type PurchaseOrderStats struct {
	Count          int                        `json:"count"`
	ByStatus       map[procurement.Status]int `json:"byStatus"`
	ApprovedValue  float64                    `json:"approvedValue"`
	OutstandingPOs int                        `json:"outstanding"`
}

// Overview is the dashboard payload of one project.
type Overview struct {
	ProjectID      string             `json:"projectId"`
	Estimations    EstimationStats    `json:"estimations"`
	CCNs           CCNStats           `json:"ccns"`
	PurchaseOrders PurchaseOrderStats `json:"purchaseOrders"`
	CRS            crs.ProjectSummary `json:"crs"`
}

// CCNReport is the CCN report payload of one project.
type CCNReport struct {
	ProjectID    string               `json:"projectId"`
	Summary      ccn.Summary          `json:"summary"`
	BudgetImpact ccn.BudgetImpact     `json:"budgetImpact"`
	Notes        []ccn.CostChangeNote `json:"ccns"`
}

// Service reads the stores concurrently.
type Service struct {
	estimations EstimationReader
	ccns        CCNReader
	pos         PurchaseOrderReader
	crs         CRSSummarizer
}

// NewService constructs Service.
func NewService(estimations EstimationReader, ccns CCNReader, pos PurchaseOrderReader, crsSummary CRSSummarizer) *Service {
	return &Service{estimations: estimations, ccns: ccns, pos: pos, crs: crsSummary}
}

// Overview gathers the figures of projectID. The CRS summary covers all projects.
func (s *Service) Overview(ctx context.Context, projectID string) (Overview, error) {
	out := Overview{ProjectID: projectID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Estimations = estimationStats(s.estimations.ListByProject(gctx, projectID))
		return nil
	})
	g.Go(func() error {
		out.CCNs = ccnStats(s.ccns.ListByProject(gctx, projectID))
		out.CCNs.Impact = s.ccns.BudgetImpact(gctx, projectID)
		return nil
	})
	g.Go(func() error {
		out.PurchaseOrders = purchaseOrderStats(s.pos.ListByProject(gctx, projectID))
		return nil
	})
	g.Go(func() error {
		summary, err := s.crs.Summary(gctx)
		if err != nil {
			return err
		}
		out.CRS = summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// CCNReport gathers the store summary, the budget impact and the notes of projectID.
func (s *Service) CCNReport(ctx context.Context, projectID string) CCNReport {
	out := CCNReport{ProjectID: projectID}
	var g errgroup.Group
	g.Go(func() error { out.Summary = s.ccns.Summary(ctx); return nil })
	g.Go(func() error { out.BudgetImpact = s.ccns.BudgetImpact(ctx, projectID); return nil })
	g.Go(func() error { out.Notes = s.ccns.ListByProject(ctx, projectID); return nil })
	_ = g.Wait()
	return out
}

func estimationStats(list []estimation.Estimation) EstimationStats {
	stats := EstimationStats{Count: len(list), ByStatus: map[estimation.Status]int{}}
	for _, e := range list {
		stats.ByStatus[e.Status]++
		stats.TotalAmount += e.TotalAmount
		if e.Status == estimation.StatusApproved || e.Status == estimation.StatusSubmitted {
			stats.CountedAmount += e.TotalAmount
		}
	}
	return stats
}

func ccnStats(list []ccn.CostChangeNote) CCNStats {
	stats := CCNStats{Count: len(list), ByStatus: map[ccn.Status]int{}}
	for _, n := range list {
		stats.ByStatus[n.Status]++
	}
	return stats
}

func purchaseOrderStats(list []procurement.PurchaseOrder) PurchaseOrderStats {
	stats := PurchaseOrderStats{Count: len(list), ByStatus: map[procurement.Status]int{}}
	for _, po := range list {
		stats.ByStatus[po.Status]++
		switch po.Status {
		case procurement.StatusApproved:
			stats.ApprovedValue += po.TotalValue
		case procurement.StatusDraft, procurement.StatusSubmitted:
			stats.OutstandingPOs++
		}
	}
	return stats
}
