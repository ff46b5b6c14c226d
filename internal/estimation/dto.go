package estimation

// ItemRequest is the JSON shape of an estimation line.
type ItemRequest struct {
	ID          string  `json:"id,omitempty"`
	ProductCode string  `json:"productCode,omitempty"`
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Unit        string  `json:"unit"`
	UnitCost    float64 `json:"unitCost" validate:"gte=0"`
	TotalCost   float64 `json:"totalCost,omitempty"`
	CostHead    string  `json:"costHead,omitempty"`
}

// CreateRequest is the body of POST /estimations.
type CreateRequest struct {
	ProjectID   string        `json:"projectId" validate:"required"`
	CostHead    string        `json:"costHead" validate:"required,costhead"`
	Category    string        `json:"category"`
	Vendor      string        `json:"vendor"`
	EstimatedBy string        `json:"estimatedBy"`
	Items       []ItemRequest `json:"items" validate:"dive"`
	Notes       string        `json:"notes"`
	Status      Status        `json:"status" validate:"omitempty,oneof=draft submitted"`
}

// UpdateRequest is the body of PATCH /estimations/{id}.
type UpdateRequest struct {
	ProjectID   *string        `json:"projectId,omitempty" validate:"omitempty,min=1"`
	CostHead    *string        `json:"costHead,omitempty" validate:"omitempty,costhead"`
	Category    *string        `json:"category,omitempty"`
	Vendor      *string        `json:"vendor,omitempty"`
	EstimatedBy *string        `json:"estimatedBy,omitempty"`
	Items       *[]ItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	Notes       *string        `json:"notes,omitempty"`
	Status      *Status        `json:"status,omitempty" validate:"omitempty,oneof=draft submitted approved rejected"`
}

func (r CreateRequest) draft() Draft {
	return Draft{
		ProjectID:   r.ProjectID,
		CostHead:    r.CostHead,
		Category:    r.Category,
		Vendor:      r.Vendor,
		EstimatedBy: r.EstimatedBy,
		Items:       toItems(r.Items, r.CostHead),
		Notes:       r.Notes,
		Status:      r.Status,
	}
}

func (r UpdateRequest) patch() Patch {
	p := Patch{
		ProjectID:   r.ProjectID,
		CostHead:    r.CostHead,
		Category:    r.Category,
		Vendor:      r.Vendor,
		EstimatedBy: r.EstimatedBy,
		Notes:       r.Notes,
		Status:      r.Status,
	}
	if r.Items != nil {
		head := ""
		if r.CostHead != nil {
			head = *r.CostHead
		}
		items := toItems(*r.Items, head)
		p.Items = &items
	}
	return p
}

func toItems(in []ItemRequest, head string) []Item {
	out := make([]Item, 0, len(in))
	for _, it := range in {
		line := Item{
			ID:          it.ID,
			ProductCode: it.ProductCode,
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitCost:    it.UnitCost,
			CostHead:    it.CostHead,
		}
		if line.CostHead == "" {
			line.CostHead = head
		}
		out = append(out, line)
	}
	return out
}
