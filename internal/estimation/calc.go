package estimation

// priceItems copies items and recomputes every line total.
func priceItems(items []Item, newID func() string) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = newID()
		}
		item.TotalCost = item.Quantity * item.UnitCost
		out[i] = item
	}
	return out
}

// sumItems returns the estimation total for the given lines.
func sumItems(items []Item) float64 {
	var total float64
	for _, item := range items {
		total += item.TotalCost
	}
	return total
}

func clone(e Estimation) Estimation {
	e.Items = append([]Item(nil), e.Items...)
	if e.Items == nil {
		e.Items = []Item{}
	}
	return e
}
