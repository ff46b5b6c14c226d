package crs

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport(t *testing.T) Report {
	t.Helper()
	svc := NewService(fixedTotals{"MATERIAL COST": 1000, "EQUIPMENT COST": 250.5}, StaticTable{
		"MATERIAL COST":  {Actual: 1200, Committed: 800},
		"EQUIPMENT COST": {Committed: 250.5},
	})
	svc.now = func() time.Time { return time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC) }
	report, err := svc.Report(t.Context())
	require.NoError(t, err)
	return report
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport(t)))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "# Report: Contract Review Sheet", lines[0])
	assert.Equal(t, "# Generated: 2024-02-29T12:00:00Z", lines[1])
	assert.Equal(t, "Sl No,Particulars,Estimate,Committed,Uncommitted,Actual,Anticipated,Variance,Variance %", lines[2])
	assert.Equal(t, "OM01,MATERIAL COST,1000.00,800.00,200.00,1200.00,1400.00,400.00,40.00", lines[3])
	assert.Equal(t, "OM04,EQUIPMENT COST,250.50,250.50,,,,-250.50,-100.00", lines[4])
	assert.Equal(t, ",TOTAL,1250.50,1050.50,,1200.00,,149.50,11.96", lines[5])
}

func TestWriteXLSX(t *testing.T) {
	body, err := WriteXLSX(sampleReport(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("CRS")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 7)
	assert.Equal(t, "Contract Review Sheet", rows[0][0])
	assert.Equal(t, exportHeader, rows[3])
	assert.Equal(t, "OM01", rows[4][0])
	assert.Equal(t, "MATERIAL COST", rows[4][1])
	assert.Equal(t, "TOTAL", rows[6][1])

	raw, err := f.GetCellValue("CRS", "H5", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "400", raw)
	empty, err := f.GetCellValue("CRS", "F6")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
