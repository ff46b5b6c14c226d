package ccn

import "context"

// Summary aggregates counts over every note and money over approved notes.
func (s *Store) Summary(ctx context.Context) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out Summary
	out.TotalCCNs = len(s.items)
	for _, n := range s.items {
		switch {
		case n.Status.pending():
			out.PendingApproval++
		case n.Status == StatusApproved:
			out.Approved++
			out.TotalVariance += n.TotalVariance
			if n.TotalVariance > 0 {
				out.TotalIncrease += n.TotalVariance
			} else if n.TotalVariance < 0 {
				out.TotalDecrease += -n.TotalVariance
			}
		case n.Status == StatusRejected:
			out.Rejected++
		}
	}
	return out
}

// BudgetImpact computes how approved notes of a project move its budget.
// Pending variance covers submitted and under-review notes.
func (s *Store) BudgetImpact(ctx context.Context, projectID string) BudgetImpact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out BudgetImpact
	for _, n := range s.items {
		if n.ProjectID != projectID {
			continue
		}
		switch {
		case n.Status == StatusApproved:
			out.OriginalBudget += n.TotalOriginalCost
			out.RevisedBudget += n.TotalRevisedCost
			out.ApprovedVariance += n.TotalVariance
		case n.Status.pending():
			out.PendingVariance += n.TotalVariance
		}
	}
	out.TotalVariance = out.RevisedBudget - out.OriginalBudget
	if out.OriginalBudget != 0 {
		out.VariancePercent = out.TotalVariance / out.OriginalBudget * 100
	}
	return out
}
