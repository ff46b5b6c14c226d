package procurement

import (
	"errors"
	"fmt"
	"time"

	"github.com/costdesk/costdesk/internal/shared"
)

// Purchase order lifecycle statuses.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusCancelled:
		return true
	}
	return false
}

// Item is a purchase order line, optionally drawn from an estimation item.
type Item struct {
	EstimationItemID string  `json:"estimationItemId,omitempty"`
	EstimationRef    string  `json:"estimationRef,omitempty"`
	Description      string  `json:"description"`
	Quantity         float64 `json:"quantity"`
	Unit             string  `json:"unit"`
	UnitCost         float64 `json:"unitCost"`
	TotalCost        float64 `json:"totalCost"`
	CostHead         string  `json:"costHead"`
}

// PurchaseOrder commits spend with a vendor.
type PurchaseOrder struct {
	ID           string     `json:"id"`
	PONumber     string     `json:"poNumber"`
	ProjectID    string     `json:"projectId"`
	Vendor       string     `json:"vendor"`
	DeliveryDate string     `json:"deliveryDate"`
	Terms        string     `json:"terms"`
	Status       Status     `json:"status"`
	Items        []Item     `json:"items"`
	Notes        string     `json:"notes"`
	TotalValue   float64    `json:"totalValue"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	ApprovedBy   string     `json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
}

// Draft carries the caller-authored fields of a new purchase order.
type Draft struct {
	PONumber     string
	ProjectID    string
	Vendor       string
	DeliveryDate string
	Terms        string
	Items        []Item
	Notes        string
}

// Patch lists fields to merge into a draft purchase order.
type Patch struct {
	Vendor       *string
	DeliveryDate *string
	Terms        *string
	Items        *[]Item
	Notes        *string
}

var (
	// ErrInvalidState indicates the purchase order status forbids the operation.
	ErrInvalidState = fmt.Errorf("procurement: invalid state: %w", shared.ErrInvalidTransition)
	// ErrNotFound is returned when a purchase order id is unknown.
	ErrNotFound = fmt.Errorf("procurement: %w", shared.ErrNotFound)
	// ErrNoItems is returned when a purchase order has no lines.
	ErrNoItems = errors.New("procurement: purchase order needs at least one item")
)
