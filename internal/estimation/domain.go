package estimation

import (
	"fmt"
	"time"

	"github.com/costdesk/costdesk/internal/shared"
)

// Status enumerates estimation lifecycle values.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// counted reports whether estimations in this status feed cost-head totals.
func (s Status) counted() bool {
	return s == StatusApproved || s == StatusSubmitted
}

// Item is a single estimated cost line.
type Item struct {
	ID          string  `json:"id"`
	ProductCode string  `json:"productCode,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitCost    float64 `json:"unitCost"`
	TotalCost   float64 `json:"totalCost"`
	CostHead    string  `json:"costHead"`
}

// Estimation groups cost lines for one cost head of a project.
type Estimation struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	CostHead    string    `json:"costHead"`
	Category    string    `json:"category"`
	Vendor      string    `json:"vendor"`
	EstimatedBy string    `json:"estimatedBy"`
	Items       []Item    `json:"items"`
	Notes       string    `json:"notes"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	TotalAmount float64   `json:"totalAmount"`
}

// Draft carries the caller-authored fields of a new estimation.
type Draft struct {
	ProjectID   string
	CostHead    string
	Category    string
	Vendor      string
	EstimatedBy string
	Items       []Item
	Notes       string
	Status      Status
}

// Patch lists fields to merge into an existing estimation. Nil fields are left untouched.
type Patch struct {
	ProjectID   *string
	CostHead    *string
	Category    *string
	Vendor      *string
	EstimatedBy *string
	Items       *[]Item
	Notes       *string
	Status      *Status
}

// ErrNotFound is returned when an estimation id is unknown.
var ErrNotFound = fmt.Errorf("estimation: %w", shared.ErrNotFound)
