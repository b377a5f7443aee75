package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aidanvyas/asset-pricing-code/internal/audit"
	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

func month(y int, m time.Month) time.Time {
	return contracts.MonthEnd(contracts.MonthIndex(time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"fixed", Fixed(1.23456, 2), "1.23"},
		{"fixed pads", Fixed(2, 2), "2.00"},
		{"fixed nan", Fixed(math.NaN(), 2), ""},
		{"fixed inf", Fixed(math.Inf(1), 2), ""},
		{"percent", Percent(0.0123, 2), "1.23%"},
		{"percent nan", Percent(math.NaN(), 2), ""},
		{"starred", Starred(0.0123, 2.0, 2), "1.23%**"},
		{"starred insignificant", Starred(0.0123, 1.0, 2), "1.23%"},
		{"starred nan", Starred(math.NaN(), 3, 2), ""},
		{"tstat", TStat(-2.345), "[-2.35]"},
		{"tstat nan", TStat(math.NaN()), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestPivot(t *testing.T) {
	jan, feb := month(2001, time.January), month(2001, time.February)
	table := contracts.NewReturnTable(
		contracts.PortfolioReturn{Date: jan, Label: "2", Return: 0.02},
		contracts.PortfolioReturn{Date: jan, Label: "1", Return: 0.01},
		contracts.PortfolioReturn{Date: feb, Label: "1", Return: -0.01},
		contracts.PortfolioReturn{Date: feb, Label: "2", Return: 0.03},
	)
	hl := contracts.Series{Name: "H-L", Dates: []time.Time{jan}, Values: []float64{0.01}}

	out := Pivot("BE_ME_q2_all", table, hl)

	assert.Equal(t, []string{"date", "1", "2", "H-L"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"2001-01-31", "0.01", "0.02", "0.01"}, out.Rows[0])
	assert.Equal(t, []string{"2001-02-28", "-0.01", "0.03", ""}, out.Rows[1])
}

func TestSeriesTable_Union(t *testing.T) {
	jan, feb := month(2001, time.January), month(2001, time.February)
	a := contracts.Series{Name: "SMB", Dates: []time.Time{jan, feb}, Values: []float64{0.01, 0.02}}
	b := contracts.Series{Name: "HML", Dates: []time.Time{feb}, Values: []float64{0.03}}

	out := SeriesTable("factors", a, b)

	assert.Equal(t, []string{"date", "SMB", "HML"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"2001-01-31", "0.01", ""}, out.Rows[0])
	assert.Equal(t, []string{"2001-02-28", "0.02", "0.03"}, out.Rows[1])
}

func TestMatrixTable(t *testing.T) {
	counts := [][]int{{1, 1}, {0, 0}}
	m := contracts.TransitionMatrix{
		Name:          "BE_ME_q2_all",
		Labels:        []string{"1", "2"},
		Counts:        counts,
		Probabilities: contracts.RowPercentages(counts),
		Links:         2,
	}

	out := MatrixTable("transitions", m, 2)

	assert.Equal(t, []string{"past \\ current", "1", "2", "n"}, out.Columns)
	assert.Equal(t, []string{"1", "50.00", "50.00", "2"}, out.Rows[0])
	assert.Equal(t, []string{"2", "", "", "0"}, out.Rows[1])
}

func TestSummaryTable(t *testing.T) {
	rows := []audit.Summary{{
		Name: "H-L", N: 120,
		TotalMean: 0.005, TotalT: 3, ExcessMean: 0.005, ExcessT: 3,
		Volatility: 0.04, Alpha: 0.004, AlphaT: 1.7, Beta: -0.1,
		Sharpe: 0.4, Appraisal: 0.35, CapShare: math.NaN(),
	}}

	out := SummaryTable("summary", rows, 2)

	require.Len(t, out.Rows, 1)
	row := out.Rows[0]
	assert.Len(t, row, len(out.Columns))
	assert.Equal(t, "H-L", row[0])
	assert.Equal(t, "0.50%***", row[1])
	assert.Equal(t, "[3.00]", row[2])
	assert.Equal(t, "0.40%*", row[9])
	assert.Equal(t, "", row[14])
}

func TestRegressionTables(t *testing.T) {
	fm := &audit.FamaMacBethResult{
		Coefficients: []audit.Coefficient{{Name: audit.Intercept, Value: 2, T: 2}},
		Periods:      24,
		Observations: 1000,
	}
	out := FamaMacBethTable("fm", fm, 2)
	assert.Equal(t, []string{"constant", "2.0000**", "2.00"}, out.Rows[0])
	assert.Equal(t, []string{"periods", "24", ""}, out.Rows[1])

	sp := &audit.SpanningResult{
		Factor:       "UMD",
		Coefficients: []audit.Coefficient{{Name: "Mkt-RF", Value: -0.25, T: -3}},
		R2:           0.1,
		N:            600,
	}
	out = SpanningTable("span", sp, 2)
	assert.Equal(t, "UMD", out.Title)
	assert.Equal(t, []string{"R2", "0.10", ""}, out.Rows[1])
}

func TestDescribeTable(t *testing.T) {
	rows := []audit.Description{{
		Variable: "BE_ME", Periods: 3, Count: 3, Mean: 2, StdDev: 1, Min: 1,
		Percentiles: []float64{3}, Max: 4,
	}}
	out := DescribeTable("describe", rows, []float64{50}, 1)

	assert.Equal(t, []string{"Variable", "periods", "count", "mean", "std", "min", "50%", "max"}, out.Columns)
	assert.Equal(t, []string{"BE_ME", "3", "3", "2.0", "1.0", "1.0", "3.0", "4.0"}, out.Rows[0])
}

func sample() Table {
	return Table{
		Name:    "sample",
		Columns: []string{"Portfolio", "Return"},
		Rows:    [][]string{{"1", "0.5"}, {"2", "1.25%"}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"Portfolio,Return", "1,0.5", "2,1.25%"}, lines)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []Table{sample()}))

	var back []Table
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	require.Len(t, back, 1)
	assert.Equal(t, sample(), back[0])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	second := sample()
	second.Name = "other"
	require.NoError(t, WriteXLSX(path, []Table{sample(), second}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"sample", "other"}, f.GetSheetList())
	rows, err := f.GetRows("other")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Portfolio", "Return"}, rows[0])
	assert.Equal(t, "1.25%", rows[2][1])
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("x", 40)

	assert.Equal(t, strings.Repeat("x", 31), sheetName(long, used))
	assert.Equal(t, strings.Repeat("x", 29)+"~2", sheetName(long, used))
	assert.Equal(t, "a_b", sheetName("a/b", used))
	assert.Equal(t, "Sheet", sheetName("", used))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sample())

	out := buf.String()
	assert.Contains(t, out, "sample")
	assert.Contains(t, out, "1.25%")
}

func TestExporter(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	e := NewExporter(logger.Nop(), dir, []string{FormatCSV, FormatJSON, FormatXLSX, FormatConsole}, &console)

	require.NoError(t, e.Export("sorts", sample()))

	for _, p := range []string{
		filepath.Join(dir, "sorts", "sample.csv"),
		filepath.Join(dir, "sorts.json"),
		filepath.Join(dir, "sorts.xlsx"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	assert.Contains(t, console.String(), "1.25%")
}

func TestExporter_UnknownFormat(t *testing.T) {
	e := NewExporter(logger.Nop(), t.TempDir(), []string{"pdf"}, nil)
	err := e.Export("sorts", sample())
	assert.True(t, errors.Is(err, contracts.ErrInvalidConfig))
}
