package report

import (
	"strconv"

	"github.com/aidanvyas/asset-pricing-code/internal/audit"
	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/factors"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/transitions"
)

// Table is a formatted two-dimensional report
// ⭐ SSOT: 모든 출력 형식(CSV, XLSX, JSON, 콘솔)은 Table 하나에서 렌더링
type Table struct {
	Name    string     `json:"name"`
	Title   string     `json:"title,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Pivot widens a long return table to date × label, with optional extra series
// (e.g. H-L) appended as columns. 값은 전체 정밀도 소수
func Pivot(name string, table *contracts.ReturnTable, extra ...contracts.Series) Table {
	labels := table.Labels()
	t := Table{Name: name, Columns: append([]string{"date"}, labels...)}
	byMonth := make([]map[int]float64, len(extra))
	for j, s := range extra {
		t.Columns = append(t.Columns, s.Name)
		byMonth[j] = s.ByMonth()
	}

	for _, d := range table.Dates() {
		row := make([]string, 0, len(t.Columns))
		row = append(row, d.Format("2006-01-02"))
		for _, l := range labels {
			row = append(row, s0_data.FormatFloat(table.Value(d, l)))
		}
		for j := range extra {
			v, ok := byMonth[j][contracts.MonthIndex(d)]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, s0_data.FormatFloat(v))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SeriesTable lays out several monthly series side by side over their union of months
func SeriesTable(name string, series ...contracts.Series) Table {
	t := Table{Name: name, Columns: []string{"date"}}
	union := contracts.NewReturnTable()
	for _, s := range series {
		t.Columns = append(t.Columns, s.Name)
		for i, d := range s.Dates {
			union.Add(contracts.PortfolioReturn{Date: d, Label: s.Name, Return: s.Values[i]})
		}
	}
	for _, d := range union.Dates() {
		row := []string{d.Format("2006-01-02")}
		for _, s := range series {
			row = append(row, s0_data.FormatFloat(union.Value(d, s.Name)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SummaryTable renders summary statistics in the published layout
func SummaryTable(name string, rows []audit.Summary, places int) Table {
	t := Table{
		Name: name,
		Columns: []string{
			"Portfolio", "Total Return", "Total t-stat", "Excess Return", "t-stat",
			"Std Dev", "Skew", "Kurtosis", "Sharpe Ratio", "CAPM Alpha", "Alpha t-stat",
			"Beta", "Tracking Error", "Appraisal Ratio", "Cap Share",
		},
	}
	for _, s := range rows {
		t.Rows = append(t.Rows, []string{
			s.Name,
			Starred(s.TotalMean, s.TotalT, places),
			TStat(s.TotalT),
			Starred(s.ExcessMean, s.ExcessT, places),
			TStat(s.ExcessT),
			Percent(s.Volatility, places),
			Fixed(s.Skew, places),
			Fixed(s.Kurtosis, places),
			Fixed(s.Sharpe, places),
			Starred(s.Alpha, s.AlphaT, places),
			TStat(s.AlphaT),
			Fixed(s.Beta, places),
			Percent(s.TrackingError, places),
			Fixed(s.Appraisal, places),
			Fixed(s.CapShare, places),
		})
	}
	return t
}

// MatrixTable renders a transition matrix: one row per past bucket, probabilities in percent
func MatrixTable(name string, m contracts.TransitionMatrix, places int) Table {
	t := Table{Name: name, Title: m.Name, Columns: append([]string{"past \\ current"}, m.Labels...)}
	t.Columns = append(t.Columns, "n")
	for i, label := range m.Labels {
		row := []string{label}
		for j := range m.Labels {
			row = append(row, Fixed(m.Probabilities[i][j], places))
		}
		row = append(row, strconv.Itoa(m.RowTotal(i)))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CornerTable renders time-averaged corner returns in percent
func CornerTable(name string, c transitions.CornerReturns, places int) Table {
	t := Table{Name: name, Columns: append([]string{"past \\ current"}, c.Labels...)}
	for i, label := range c.Labels {
		row := []string{label}
		for j := range c.Labels {
			row = append(row, Percent(c.Returns[i][j], places))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ComparisonTable renders replicated-vs-published correlations
func ComparisonTable(name string, rows []factors.Comparison, places int) Table {
	t := Table{Name: name, Columns: []string{"Factor", "Pearson", "Spearman", "N"}}
	for _, c := range rows {
		t.Rows = append(t.Rows, []string{c.Factor, Fixed(c.Pearson, places), Fixed(c.Spearman, places), strconv.Itoa(c.N)})
	}
	return t
}

// FamaMacBethTable renders mean slopes (percent) and t-statistics
func FamaMacBethTable(name string, res *audit.FamaMacBethResult, places int) Table {
	t := regressionTable(name, res.Coefficients, places)
	t.Rows = append(t.Rows,
		[]string{"periods", strconv.Itoa(res.Periods), ""},
		[]string{"observations", strconv.Itoa(res.Observations), ""},
	)
	return t
}

// SpanningTable renders one spanning regression with its R²
func SpanningTable(name string, res *audit.SpanningResult, places int) Table {
	t := regressionTable(name, res.Coefficients, places)
	t.Title = res.Factor
	t.Rows = append(t.Rows,
		[]string{"R2", Fixed(res.R2, places), ""},
		[]string{"N", strconv.Itoa(res.N), ""},
	)
	return t
}

func regressionTable(name string, coefs []audit.Coefficient, places int) Table {
	t := Table{Name: name, Columns: []string{"Variable", "Coefficient", "T-Statistic"}}
	for _, c := range coefs {
		t.Rows = append(t.Rows, []string{c.Name, Fixed(c.Value, places+2) + audit.Stars(c.T), Fixed(c.T, 2)})
	}
	return t
}

// DescribeTable renders time-averaged cross-sectional statistics
func DescribeTable(name string, rows []audit.Description, percentiles []float64, places int) Table {
	t := Table{Name: name, Columns: []string{"Variable", "periods", "count", "mean", "std", "min"}}
	for _, p := range percentiles {
		t.Columns = append(t.Columns, strconv.FormatFloat(p, 'f', -1, 64)+"%")
	}
	t.Columns = append(t.Columns, "max")

	for _, d := range rows {
		row := []string{d.Variable, strconv.Itoa(d.Periods), Fixed(d.Count, 0), Fixed(d.Mean, places),
			Fixed(d.StdDev, places), Fixed(d.Min, places)}
		for _, v := range d.Percentiles {
			row = append(row, Fixed(v, places))
		}
		row = append(row, Fixed(d.Max, places))
		t.Rows = append(t.Rows, row)
	}
	return t
}
