package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/costdesk/costdesk/internal/crs"
)

var crsTemplate = template.Must(template.New("crs").Funcs(template.FuncMap{
	"amount": formatAmount,
	"pct":    formatPercent,
	"money":  func(v float64) string { return formatAmount(&v) },
	"ptr":    func(v float64) *float64 { return &v },
	"date":   func(t time.Time) string { return t.UTC().Format("02 Jan 2006 15:04 MST") },
}).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Contract Review Sheet</title>
<style>
body { font-family: sans-serif; font-size: 11px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 6px; }
th { background: #333; color: #fff; }
td.num { text-align: right; }
tr.total td { font-weight: bold; }
</style></head>
<body>
<h1>Contract Review Sheet</h1>
<p>Generated {{date .GeneratedAt}}</p>
<table>
<thead><tr><th>Sl No</th><th>Particulars</th><th>Estimate</th><th>Committed</th><th>Uncommitted</th><th>Actual</th><th>Anticipated</th><th>Variance</th><th>Variance %</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.SlNo}}</td><td>{{.Particulars}}</td><td class="num">{{amount .Estimate}}</td><td class="num">{{amount .Committed}}</td><td class="num">{{amount .Uncommitted}}</td><td class="num">{{amount .Actual}}</td><td class="num">{{amount .Anticipated}}</td><td class="num">{{amount .Variance}}</td><td class="num">{{pct .VariancePercent}}</td></tr>
{{- end}}
<tr class="total"><td></td><td>TOTAL</td><td class="num">{{money .Summary.TotalEstimate}}</td><td class="num">{{money .Summary.TotalCommitted}}</td><td></td><td class="num">{{money .Summary.TotalActual}}</td><td></td><td class="num">{{money .Summary.TotalVariance}}</td><td class="num">{{pct (ptr .Summary.VariancePercent)}}</td></tr>
</tbody></table>
</body></html>
`))

var printer = message.NewPrinter(language.English)

// RenderCRSHTML returns the printable HTML of a CRS report.
func RenderCRSHTML(r crs.Report) (string, error) {
	var buf bytes.Buffer
	if err := crsTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("report: render crs html: %w", err)
	}
	return buf.String(), nil
}

// RenderCRS converts a CRS report to PDF.
func (c *Client) RenderCRS(ctx context.Context, r crs.Report) ([]byte, error) {
	html, err := RenderCRSHTML(r)
	if err != nil {
		return nil, err
	}
	pdf, err := c.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("report: render crs pdf: %w", err)
	}
	return pdf, nil
}

func formatAmount(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.2f", *v)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.2f%%", *v)
}
