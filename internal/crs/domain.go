// Package crs derives the contract review sheet: per cost head estimate,
// commitment and actual figures with their projected variance.
package crs

import "time"

// Figures are the externally sourced amounts for one cost head.
type Figures struct {
	Actual    float64 `json:"actual" yaml:"actual"`
	Committed float64 `json:"committed" yaml:"committed"`
}

// Row is one cost head line of the report. Nil numbers render as null.
type Row struct {
	SlNo            string   `json:"slNo"`
	Particulars     string   `json:"particulars"`
	Estimate        *float64 `json:"estimate"`
	Committed       *float64 `json:"committed"`
	Uncommitted     *float64 `json:"uncommitted"`
	Actual          *float64 `json:"actual"`
	Anticipated     *float64 `json:"anticipated"`
	Variance        *float64 `json:"variance"`
	VariancePercent *float64 `json:"variancePercent"`
}

// ProjectSummary totals the surviving rows.
type ProjectSummary struct {
	TotalEstimate   float64 `json:"totalEstimate"`
	TotalCommitted  float64 `json:"totalCommitted"`
	TotalActual     float64 `json:"totalActual"`
	TotalVariance   float64 `json:"totalVariance"`
	VariancePercent float64 `json:"variancePercent"`
}

// Report bundles rows and summary computed at one instant.
type Report struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Rows        []Row          `json:"rows"`
	Summary     ProjectSummary `json:"summary"`
}

// line holds the uncollapsed figures of a row.
type line struct {
	code        string
	label       string
	estimate    float64
	committed   float64
	uncommitted float64
	actual      float64
	anticipated float64
	variance    float64
	variancePct float64
}
