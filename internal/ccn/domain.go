package ccn

import (
	"fmt"
	"time"

	"github.com/costdesk/costdesk/internal/shared"
)

// ChangeType classifies the direction of a cost change.
type ChangeType string

const (
	ChangeIncrease    ChangeType = "increase"
	ChangeDecrease    ChangeType = "decrease"
	ChangeScopeChange ChangeType = "scope_change"
)

// Category groups cost change notes by cost nature.
type Category string

const (
	CategoryMaterial  Category = "material"
	CategoryLabor     Category = "labor"
	CategoryEquipment Category = "equipment"
	CategoryOverhead  Category = "overhead"
	CategoryOther     Category = "other"
)

// Status enumerates the approval workflow states.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// pending reports whether the note awaits a decision.
func (s Status) pending() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

// Urgency ranks how quickly a decision is needed.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ReferenceType names the record an item revises.
type ReferenceType string

const (
	ReferenceEstimation    ReferenceType = "estimation"
	ReferencePurchaseOrder ReferenceType = "purchase_order"
	ReferenceActualCost    ReferenceType = "actual_cost"
)

// Item is one revised cost line.
type Item struct {
	ID              string        `json:"id,omitempty"`
	ReferenceType   ReferenceType `json:"referenceType"`
	ReferenceID     string        `json:"referenceId"`
	ReferenceNumber string        `json:"referenceNumber"`
	ItemDescription string        `json:"itemDescription"`
	OriginalCost    float64       `json:"originalCost"`
	RevisedCost     float64       `json:"revisedCost"`
	Variance        float64       `json:"variance"`
	VariancePercent float64       `json:"variancePercent"`
	Reason          string        `json:"reason"`
	CostHead        string        `json:"costHead"`
}

// CostChangeNote is a formal request to revise costs of a project.
type CostChangeNote struct {
	ID                string     `json:"id"`
	CCNNumber         string     `json:"ccnNumber"`
	ProjectID         string     `json:"projectId"`
	ChangeType        ChangeType `json:"changeType"`
	Category          Category   `json:"category"`
	InitiatedBy       string     `json:"initiatedBy"`
	Reason            string     `json:"reason"`
	Justification     string     `json:"justification"`
	Items             []Item     `json:"items"`
	Attachments       []string   `json:"attachments"`
	Status            Status     `json:"status"`
	ApprovalRequired  bool       `json:"approvalRequired"`
	Urgency           Urgency    `json:"urgency"`
	EffectiveDate     string     `json:"effectiveDate"`
	Notes             string     `json:"notes"`
	TotalVariance     float64    `json:"totalVariance"`
	TotalOriginalCost float64    `json:"totalOriginalCost"`
	TotalRevisedCost  float64    `json:"totalRevisedCost"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ApprovedBy        string     `json:"approvedBy,omitempty"`
	ApprovedAt        *time.Time `json:"approvedAt,omitempty"`
	RejectionReason   string     `json:"rejectionReason,omitempty"`
}

// Draft carries the caller-authored fields of a new note.
type Draft struct {
	CCNNumber        string
	ProjectID        string
	ChangeType       ChangeType
	Category         Category
	InitiatedBy      string
	Reason           string
	Justification    string
	Items            []Item
	Attachments      []string
	Status           Status
	ApprovalRequired bool
	Urgency          Urgency
	EffectiveDate    string
	Notes            string
}

// Patch lists fields to merge into an existing note. Nil fields are left untouched.
type Patch struct {
	ProjectID        *string
	ChangeType       *ChangeType
	Category         *Category
	InitiatedBy      *string
	Reason           *string
	Justification    *string
	Items            *[]Item
	Attachments      *[]string
	Status           *Status
	ApprovalRequired *bool
	Urgency          *Urgency
	EffectiveDate    *string
	Notes            *string
}

// Summary aggregates every stored note. Money fields cover approved notes only.
type Summary struct {
	TotalCCNs       int     `json:"totalCCNs"`
	PendingApproval int     `json:"pendingApproval"`
	Approved        int     `json:"approved"`
	Rejected        int     `json:"rejected"`
	TotalVariance   float64 `json:"totalVariance"`
	TotalIncrease   float64 `json:"totalIncrease"`
	TotalDecrease   float64 `json:"totalDecrease"`
}

// BudgetImpact describes how approved notes move a project budget.
type BudgetImpact struct {
	OriginalBudget   float64 `json:"originalBudget"`
	RevisedBudget    float64 `json:"revisedBudget"`
	TotalVariance    float64 `json:"totalVariance"`
	VariancePercent  float64 `json:"variancePercent"`
	ApprovedVariance float64 `json:"approvedVariance"`
	PendingVariance  float64 `json:"pendingVariance"`
}

var (
	// ErrNotFound is returned when a note id is unknown.
	ErrNotFound = fmt.Errorf("ccn: %w", shared.ErrNotFound)
	// ErrInvalidTransition is returned when the transition guard rejects a status change.
	ErrInvalidTransition = fmt.Errorf("ccn: %w", shared.ErrInvalidTransition)
)
