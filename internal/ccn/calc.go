package ccn

// deriveItems copies items and fills variance fields from original and revised cost.
func deriveItems(items []Item, newID func() string) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = newID()
		}
		item.Variance = item.RevisedCost - item.OriginalCost
		item.VariancePercent = 0
		if item.OriginalCost != 0 {
			item.VariancePercent = item.Variance / item.OriginalCost * 100
		}
		out[i] = item
	}
	return out
}

// applyTotals recomputes the note totals from its items.
func applyTotals(n *CostChangeNote) {
	n.TotalOriginalCost, n.TotalRevisedCost, n.TotalVariance = 0, 0, 0
	for _, item := range n.Items {
		n.TotalOriginalCost += item.OriginalCost
		n.TotalRevisedCost += item.RevisedCost
		n.TotalVariance += item.Variance
	}
}

func clone(n CostChangeNote) CostChangeNote {
	n.Items = append([]Item(nil), n.Items...)
	if n.Items == nil {
		n.Items = []Item{}
	}
	n.Attachments = append([]string(nil), n.Attachments...)
	if n.Attachments == nil {
		n.Attachments = []string{}
	}
	if n.ApprovedAt != nil {
		at := *n.ApprovedAt
		n.ApprovedAt = &at
	}
	return n
}
