package crs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/costdesk/costdesk/internal/costhead"
)

// Reference supplies actual and committed figures per cost-head label.
type Reference interface {
	Figures(ctx context.Context, label string) (Figures, error)
}

// StaticTable is a fixed reference table keyed by label.
type StaticTable map[string]Figures

// Figures returns the figures for label, or zero figures when absent.
func (t StaticTable) Figures(_ context.Context, label string) (Figures, error) {
	return t[label], nil
}

// DefaultTable returns the built-in reference figures.
func DefaultTable() StaticTable {
	return StaticTable{
		"MATERIAL COST":       {Actual: 45000, Committed: 42000},
		"MANPOWER COST":       {Actual: 18000, Committed: 15000},
		"SUBCONTRACTING COST": {Actual: 25000, Committed: 28000},
		"EQUIPMENT COST":      {Actual: 12000, Committed: 10000},
		"TRANSPORTATION COST": {Actual: 8000, Committed: 7500},
		"MISCELLANEOUS COST":  {Actual: 5000, Committed: 4500},
	}
}

// LoadTable reads a YAML reference table mapping labels to figures. Labels are
// matched case-insensitively against the canonical cost heads.
func LoadTable(path string) (StaticTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("crs: read reference table: %w", err)
	}
	var parsed map[string]Figures
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("crs: parse reference table %s: %w", path, err)
	}
	table := make(StaticTable, len(parsed))
	for label, figures := range parsed {
		key := strings.TrimSpace(label)
		if head, ok := costhead.ByLabel(key); ok {
			key = head.Label
		}
		table[key] = figures
	}
	return table, nil
}

// CommittedSource reports committed spend per cost-head label.
type CommittedSource interface {
	CommittedByCostHead(ctx context.Context) map[string]float64
}

// CommitmentOverlay keeps the base actual figures and takes committed amounts
// from live purchase orders.
type CommitmentOverlay struct {
	base      Reference
	committed CommittedSource
}

// NewCommitmentOverlay combines a base reference with a committed source.
func NewCommitmentOverlay(base Reference, committed CommittedSource) *CommitmentOverlay {
	return &CommitmentOverlay{base: base, committed: committed}
}

// Figures implements Reference.
func (o *CommitmentOverlay) Figures(ctx context.Context, label string) (Figures, error) {
	var fig Figures
	if o.base != nil {
		var err error
		if fig, err = o.base.Figures(ctx, label); err != nil {
			return Figures{}, err
		}
	}
	fig.Committed = 0
	if o.committed != nil {
		fig.Committed = o.committed.CommittedByCostHead(ctx)[label]
	}
	return fig, nil
}
