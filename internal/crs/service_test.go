package crs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/costdesk/costdesk/internal/estimation"
	"github.com/costdesk/costdesk/internal/storage"
)

type fixedTotals map[string]float64

func (f fixedTotals) TotalsByCostHead(context.Context) map[string]float64 { return f }

type brokenReference struct{}

func (brokenReference) Figures(context.Context, string) (Figures, error) {
	return Figures{}, errors.New("feed unavailable")
}

func f64(v float64) *float64 { return &v }

func TestEndToEndMaterialRow(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := estimation.NewStore(t.Context(), storage.NewMemory(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := store.Add(t.Context(), estimation.Draft{
		CostHead: "OM01 - Material Cost",
		Status:   estimation.StatusApproved,
		Items:    []estimation.Item{{Quantity: 10, UnitCost: 100, TotalCost: 1000}},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"MATERIAL COST": 1000}, store.TotalsByCostHead(t.Context()))

	svc := NewService(store, StaticTable{"MATERIAL COST": {Actual: 1200, Committed: 800}})
	rows, err := svc.Rows(t.Context())
	require.NoError(t, err)

	want := []Row{{
		SlNo:            "OM01",
		Particulars:     "MATERIAL COST",
		Estimate:        f64(1000),
		Committed:       f64(800),
		Uncommitted:     f64(200),
		Actual:          f64(1200),
		Anticipated:     f64(1400),
		Variance:        f64(400),
		VariancePercent: f64(40),
	}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRowsOrderAndDropping(t *testing.T) {
	defer goleak.VerifyNone(t)

	totals := fixedTotals{
		"EQUIPMENT COST":     500,
		"MATERIAL COST":      100,
		"MISCELLANEOUS COST": 0,
		"UNMAPPED":           999,
	}
	ref := StaticTable{
		"TRANSPORTATION COST": {Actual: 50},
		"MANPOWER COST":       {Committed: 10},
	}
	rows, err := NewService(totals, ref).Rows(t.Context())
	require.NoError(t, err)

	var codes []string
	for _, r := range rows {
		codes = append(codes, r.SlNo)
	}
	assert.Equal(t, []string{"OM01", "OM02", "OM04", "OM05"}, codes)
	assert.LessOrEqual(t, len(rows), 6)
}

func TestNullCollapsing(t *testing.T) {
	tests := []struct {
		name     string
		estimate float64
		fig      Figures
		want     Row
	}{
		{
			name:     "fully committed estimate",
			estimate: 1000,
			fig:      Figures{Committed: 1000, Actual: 1000},
			want: Row{SlNo: "OM01", Particulars: "MATERIAL COST", Estimate: f64(1000), Committed: f64(1000),
				Actual: f64(1000), Anticipated: f64(1000)},
		},
		{
			name: "actual only",
			fig:  Figures{Actual: 250},
			want: Row{SlNo: "OM01", Particulars: "MATERIAL COST", Actual: f64(250), Anticipated: f64(250), Variance: f64(250)},
		},
		{
			name:     "over committed keeps uncommitted at zero",
			estimate: 100,
			fig:      Figures{Committed: 150, Actual: 40},
			want: Row{SlNo: "OM01", Particulars: "MATERIAL COST", Estimate: f64(100), Committed: f64(150),
				Actual: f64(40), Anticipated: f64(40), Variance: f64(-60), VariancePercent: f64(-60)},
		},
		{
			name:     "tiny percent is null",
			estimate: 1000000,
			fig:      Figures{Committed: 1000000, Actual: 1000050},
			want: Row{SlNo: "OM01", Particulars: "MATERIAL COST", Estimate: f64(1000000), Committed: f64(1000000),
				Actual: f64(1000050), Anticipated: f64(1000050), Variance: f64(50)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(fixedTotals{"MATERIAL COST": tt.estimate}, StaticTable{"MATERIAL COST": tt.fig})
			rows, err := svc.Rows(t.Context())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			if diff := cmp.Diff(tt.want, rows[0]); diff != "" {
				t.Fatalf("row mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSummaryUsesUncollapsedValues(t *testing.T) {
	totals := fixedTotals{"MATERIAL COST": 1000, "MANPOWER COST": 500}
	ref := StaticTable{
		"MATERIAL COST": {Actual: 1200, Committed: 800},
		"MANPOWER COST": {Actual: 500, Committed: 500},
	}
	sum, err := NewService(totals, ref).Summary(t.Context())
	require.NoError(t, err)
	assert.Equal(t, ProjectSummary{
		TotalEstimate:   1500,
		TotalCommitted:  1300,
		TotalActual:     1700,
		TotalVariance:   400,
		VariancePercent: 400.0 / 1500.0 * 100,
	}, sum)

	empty, err := NewService(fixedTotals{}, StaticTable{}).Summary(t.Context())
	require.NoError(t, err)
	assert.Equal(t, ProjectSummary{}, empty)
}

func TestDefaultTableRows(t *testing.T) {
	rows, err := NewService(fixedTotals{}, DefaultTable()).Rows(t.Context())
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "OM06", rows[5].SlNo)
	assert.Nil(t, rows[0].Estimate)
	assert.Equal(t, 45000.0, *rows[0].Anticipated)
}

func TestReferenceErrorPropagates(t *testing.T) {
	_, err := NewService(fixedTotals{}, brokenReference{}).Report(t.Context())
	require.ErrorContains(t, err, "feed unavailable")
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
material cost:
  actual: 1200
  committed: 800
"  Equipment Cost ":
  actual: 10
SITE OVERHEAD:
  committed: 5
`), 0o600))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, StaticTable{
		"MATERIAL COST":  {Actual: 1200, Committed: 800},
		"EQUIPMENT COST": {Actual: 10},
		"SITE OVERHEAD":  {Committed: 5},
	}, table)

	require.NoError(t, os.WriteFile(path, []byte("material: [1, 2"), 0o600))
	_, err = LoadTable(path)
	require.Error(t, err)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

type committedFunc func() map[string]float64

func (f committedFunc) CommittedByCostHead(context.Context) map[string]float64 { return f() }

func TestCommitmentOverlay(t *testing.T) {
	overlay := NewCommitmentOverlay(DefaultTable(), committedFunc(func() map[string]float64 {
		return map[string]float64{"MATERIAL COST": 300}
	}))

	fig, err := overlay.Figures(t.Context(), "MATERIAL COST")
	require.NoError(t, err)
	assert.Equal(t, Figures{Actual: 45000, Committed: 300}, fig)

	fig, err = overlay.Figures(t.Context(), "MANPOWER COST")
	require.NoError(t, err)
	assert.Equal(t, Figures{Actual: 18000}, fig)
}
