package ccn

// ItemRequest is the JSON shape of a CCN line.
type ItemRequest struct {
	ID              string        `json:"id,omitempty"`
	ReferenceType   ReferenceType `json:"referenceType" validate:"required,oneof=estimation purchase_order actual_cost"`
	ReferenceID     string        `json:"referenceId"`
	ReferenceNumber string        `json:"referenceNumber"`
	ItemDescription string        `json:"itemDescription" validate:"required"`
	OriginalCost    float64       `json:"originalCost" validate:"gte=0"`
	RevisedCost     float64       `json:"revisedCost" validate:"gte=0"`
	Variance        float64       `json:"variance,omitempty"`
	VariancePercent float64       `json:"variancePercent,omitempty"`
	Reason          string        `json:"reason"`
	CostHead        string        `json:"costHead" validate:"omitempty,costhead"`
}

// CreateRequest is the body of POST /ccns.
type CreateRequest struct {
	CCNNumber        string        `json:"ccnNumber"`
	ProjectID        string        `json:"projectId" validate:"required"`
	ChangeType       ChangeType    `json:"changeType" validate:"required,oneof=increase decrease scope_change"`
	Category         Category      `json:"category" validate:"required,oneof=material labor equipment overhead other"`
	InitiatedBy      string        `json:"initiatedBy" validate:"required"`
	Reason           string        `json:"reason" validate:"required"`
	Justification    string        `json:"justification"`
	Items            []ItemRequest `json:"items" validate:"dive"`
	Attachments      []string      `json:"attachments"`
	Status           Status        `json:"status" validate:"omitempty,oneof=draft submitted"`
	ApprovalRequired bool          `json:"approvalRequired"`
	Urgency          Urgency       `json:"urgency" validate:"omitempty,oneof=low medium high critical"`
	EffectiveDate    string        `json:"effectiveDate" validate:"omitempty,datetime=2006-01-02"`
	Notes            string        `json:"notes"`
}

// UpdateRequest is the body of PATCH /ccns/{id}.
type UpdateRequest struct {
	ProjectID        *string        `json:"projectId,omitempty" validate:"omitempty,min=1"`
	ChangeType       *ChangeType    `json:"changeType,omitempty" validate:"omitempty,oneof=increase decrease scope_change"`
	Category         *Category      `json:"category,omitempty" validate:"omitempty,oneof=material labor equipment overhead other"`
	InitiatedBy      *string        `json:"initiatedBy,omitempty"`
	Reason           *string        `json:"reason,omitempty"`
	Justification    *string        `json:"justification,omitempty"`
	Items            *[]ItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	Attachments      *[]string      `json:"attachments,omitempty"`
	Status           *Status        `json:"status,omitempty" validate:"omitempty,oneof=draft submitted under_review approved rejected"`
	ApprovalRequired *bool          `json:"approvalRequired,omitempty"`
	Urgency          *Urgency       `json:"urgency,omitempty" validate:"omitempty,oneof=low medium high critical"`
	EffectiveDate    *string        `json:"effectiveDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes            *string        `json:"notes,omitempty"`
}

// DecisionRequest is the body of the submit, approve and reject actions.
type DecisionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (r CreateRequest) draft() Draft {
	return Draft{
		CCNNumber:        r.CCNNumber,
		ProjectID:        r.ProjectID,
		ChangeType:       r.ChangeType,
		Category:         r.Category,
		InitiatedBy:      r.InitiatedBy,
		Reason:           r.Reason,
		Justification:    r.Justification,
		Items:            toItems(r.Items),
		Attachments:      r.Attachments,
		Status:           r.Status,
		ApprovalRequired: r.ApprovalRequired,
		Urgency:          r.Urgency,
		EffectiveDate:    r.EffectiveDate,
		Notes:            r.Notes,
	}
}

func (r UpdateRequest) patch() Patch {
	p := Patch{
		ProjectID:        r.ProjectID,
		ChangeType:       r.ChangeType,
		Category:         r.Category,
		InitiatedBy:      r.InitiatedBy,
		Reason:           r.Reason,
		Justification:    r.Justification,
		Attachments:      r.Attachments,
		Status:           r.Status,
		ApprovalRequired: r.ApprovalRequired,
		Urgency:          r.Urgency,
		EffectiveDate:    r.EffectiveDate,
		Notes:            r.Notes,
	}
	if r.Items != nil {
		items := toItems(*r.Items)
		p.Items = &items
	}
	return p
}

func toItems(in []ItemRequest) []Item {
	out := make([]Item, 0, len(in))
	for _, it := range in {
		out = append(out, Item{
			ID:              it.ID,
			ReferenceType:   it.ReferenceType,
			ReferenceID:     it.ReferenceID,
			ReferenceNumber: it.ReferenceNumber,
			ItemDescription: it.ItemDescription,
			OriginalCost:    it.OriginalCost,
			RevisedCost:     it.RevisedCost,
			Reason:          it.Reason,
			CostHead:        it.CostHead,
		})
	}
	return out
}
