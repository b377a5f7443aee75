package audit

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/factors"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

func months(n int) []time.Time {
	first := contracts.MonthIndex(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	out := make([]time.Time, n)
	for i := range out {
		out[i] = contracts.MonthEnd(first + i)
	}
	return out
}

// capmFixture: 초과수익 = 0.002 + 1.5·mkt + e, e 는 상수항 및 mkt 와 직교
func capmFixture() (contracts.Series, *contracts.Benchmark) {
	dates := months(4)
	mkt := []float64{0.02, -0.02, 0.04, -0.04}
	e := []float64{0.001, 0.001, -0.001, -0.001}
	rf := []float64{0.001, 0.001, 0.001, 0.001}

	values := make([]float64, 4)
	for i := range values {
		values[i] = rf[i] + 0.002 + 1.5*mkt[i] + e[i]
	}
	bench := contracts.NewBenchmark(
		contracts.Series{Name: contracts.BenchmarkMarket, Dates: dates, Values: mkt},
		contracts.Series{Name: contracts.BenchmarkRiskFree, Dates: dates, Values: rf},
	)
	return contracts.Series{Name: "10", Dates: dates, Values: values}, bench
}

func TestStars(t *testing.T) {
	tests := []struct {
		t    float64
		want string
	}{
		{3.1, "***"},
		{-2.58, "***"},
		{2.0, "**"},
		{1.7, "*"},
		{-1.5, ""},
		{math.NaN(), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stars(tt.t), "t=%v", tt.t)
	}
}

func TestSummarize(t *testing.T) {
	series, bench := capmFixture()

	s, err := NewSummarizer(logger.Nop()).Summarize(series, bench, 12.5)
	require.NoError(t, err)

	assert.Equal(t, 4, s.N)
	assert.InDelta(t, math.Pow(1.003, 12)-1, s.TotalMean, 1e-12)
	assert.InDelta(t, math.Pow(1.002, 12)-1, s.ExcessMean, 1e-12)
	assert.InDelta(t, 1.5, s.Beta, 1e-9)
	assert.InDelta(t, math.Pow(1.002, 12)-1, s.Alpha, 1e-9)
	assert.InDelta(t, 2*math.Sqrt2, s.AlphaT, 1e-6)
	assert.InDelta(t, 0.004, s.TrackingError, 1e-9)
	assert.InDelta(t, 6.0, s.Appraisal, 1e-6)
	assert.InDelta(t, s.ExcessMean/s.Volatility, s.Sharpe, 1e-12)
	assert.Equal(t, 12.5, s.CapShare)
	assert.Equal(t, "***", Stars(s.AlphaT))
}

func TestSummarize_LongShortNotRiskFreeAdjusted(t *testing.T) {
	series, bench := capmFixture()
	series.Name = factors.LongShortName

	s, err := NewSummarizer(logger.Nop()).Summarize(series, bench, math.NaN())
	require.NoError(t, err)
	assert.InDelta(t, s.TotalMean, s.ExcessMean, 1e-15)
}

func TestSummarize_InsufficientData(t *testing.T) {
	series, bench := capmFixture()
	series.Values[0], series.Values[1] = math.NaN(), math.NaN()

	_, err := NewSummarizer(logger.Nop()).Summarize(series, bench, 0)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientData))
}

func TestSummarizeSort(t *testing.T) {
	series, bench := capmFixture()
	table := contracts.NewReturnTable()
	for i, d := range series.Dates {
		table.Add(contracts.PortfolioReturn{Date: d, Label: "1", Return: series.Values[i]})
		table.Add(contracts.PortfolioReturn{Date: d, Label: "2", Return: series.Values[i] + 0.01})
	}
	ls, err := factors.Combine(table, "2", "1", 1, contracts.Window{})
	require.NoError(t, err)

	out := &factors.SortOutput{
		Config:    contracts.SortConfig{Quantiles: 2, Factor: "X", Sign: 1},
		Table:     table,
		LongShort: ls,
		CapShare:  map[string]float64{"1": 40, "2": 60},
	}
	rows, err := NewSummarizer(logger.Nop()).SummarizeSort(out, bench)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[0].Name)
	assert.Equal(t, 60.0, rows[1].CapShare)
	assert.Equal(t, factors.LongShortName, rows[2].Name)
	assert.True(t, math.IsNaN(rows[2].CapShare))
	assert.InDelta(t, math.Pow(1.01, 12)-1, rows[2].TotalMean, 1e-12)
}

func TestOLS(t *testing.T) {
	x1 := []float64{1, 2, 3, 4, 5}
	x2 := []float64{2, 1, 4, 3, 6}
	y := make([]float64, len(x1))
	for i := range y {
		y[i] = 1 + 2*x1[i] - 3*x2[i]
	}

	fit, err := OLS(y, [][]float64{x1, x2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, -3}, fit.Coef, 1e-9)
	assert.InDelta(t, 1, fit.R2, 1e-12)
	assert.Equal(t, 5, fit.N)

	_, err = OLS(y[:3], [][]float64{x1[:3], x2[:3]})
	assert.True(t, errors.Is(err, contracts.ErrInsufficientData))

	_, err = OLS(y, [][]float64{x1, x1})
	assert.True(t, errors.Is(err, contracts.ErrInsufficientData))
}

func TestWinsorize(t *testing.T) {
	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i + 1)
	}
	values = append(values, math.NaN())

	out := Winsorize(values, WinsorLow, WinsorHigh)
	assert.Equal(t, 2.0, out[0])
	assert.Equal(t, 50.0, out[49])
	assert.Equal(t, 100.0, out[100])
	assert.True(t, math.IsNaN(out[101]))
}

func TestFamaMacBeth(t *testing.T) {
	d := months(3)
	// 기간별 y = a + b·x, 세 번째 기간은 관측치 2개로 제외
	type cs struct {
		a, b float64
		x    []float64
	}
	sections := []cs{
		{0.01, 0.02, []float64{1, 1, 3, 3}},
		{0.03, 0.04, []float64{1, 1, 3, 3}},
		{0.50, 0.50, []float64{1, 3}},
	}
	var rows []contracts.Observation
	var x []float64
	entity := int64(0)
	for p, s := range sections {
		for _, v := range s.x {
			entity++
			rows = append(rows, contracts.Observation{Entity: entity, Date: d[p], Return: s.a + s.b*v})
			x = append(x, v)
		}
	}
	// 결측 행은 제외
	rows = append(rows, contracts.Observation{Entity: 99, Date: d[0], Return: 1})
	x = append(x, math.NaN())

	panel, err := s0_data.NewPanel(rows).WithColumn("X", x)
	require.NoError(t, err)

	res, err := NewRegressor(logger.Nop()).FamaMacBeth(panel, s0_data.FieldReturn, []string{"X"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Periods)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 10, res.Observations)
	require.Len(t, res.Coefficients, 2)
	assert.Equal(t, Intercept, res.Coefficients[0].Name)
	assert.InDelta(t, 2.0, res.Coefficients[0].Value, 1e-9)
	assert.InDelta(t, 2.0, res.Coefficients[0].T, 1e-6)
	assert.Equal(t, "X", res.Coefficients[1].Name)
	assert.InDelta(t, 3.0, res.Coefficients[1].Value, 1e-9)
	assert.InDelta(t, 3.0, res.Coefficients[1].T, 1e-6)
}

func TestSpanning(t *testing.T) {
	dates := months(6)
	a := []float64{0.01, -0.02, 0.03, 0.00, 0.02, -0.01}
	b := []float64{0.00, 0.01, -0.01, 0.02, 0.01, 0.03}
	f := make([]float64, len(a))
	for i := range f {
		f[i] = 0.001 + 0.5*a[i] + 0.2*b[i]
	}
	f[5] = math.NaN()

	res, err := NewRegressor(logger.Nop()).Spanning(
		contracts.Series{Name: "UMD", Dates: dates, Values: f},
		[]contracts.Series{
			{Name: "Mkt-RF", Dates: dates, Values: a},
			{Name: "HML", Dates: dates, Values: b},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "UMD", res.Factor)
	assert.Equal(t, 5, res.N)
	require.Len(t, res.Coefficients, 3)
	assert.InDelta(t, 0.1, res.Coefficients[0].Value, 1e-9)
	assert.InDelta(t, 0.5, res.Coefficients[1].Value, 1e-9)
	assert.Equal(t, "HML", res.Coefficients[2].Name)
	assert.InDelta(t, 0.2, res.Coefficients[2].Value, 1e-9)
	assert.InDelta(t, 1, res.R2, 1e-9)
}

func TestDescribe(t *testing.T) {
	d := months(2)
	rows := []contracts.Observation{
		{Entity: 1, Date: d[0]}, {Entity: 2, Date: d[0]}, {Entity: 3, Date: d[0]},
		{Entity: 1, Date: d[1]}, {Entity: 2, Date: d[1]}, {Entity: 3, Date: d[1]}, {Entity: 4, Date: d[1]},
	}
	panel, err := s0_data.NewPanel(rows).WithColumn("X", []float64{1, 2, 3, 3, 4, 5, math.NaN()})
	require.NoError(t, err)

	out, err := NewDescriber(logger.Nop(), 4).Describe(context.Background(), panel, []string{"X"}, []float64{50})
	require.NoError(t, err)
	require.Len(t, out, 1)

	x := out[0]
	assert.Equal(t, "X", x.Variable)
	assert.Equal(t, 2, x.Periods)
	assert.InDelta(t, 3, x.Count, 1e-12)
	assert.InDelta(t, 3, x.Mean, 1e-12)
	assert.InDelta(t, 1, x.StdDev, 1e-12)
	assert.InDelta(t, 2, x.Min, 1e-12)
	assert.InDelta(t, 4, x.Max, 1e-12)
	assert.InDeltaSlice(t, []float64{3}, x.Percentiles, 1e-12)
}

func TestDescribe_MissingColumn(t *testing.T) {
	panel := s0_data.NewPanel([]contracts.Observation{{Entity: 1, Date: months(1)[0]}})
	_, err := NewDescriber(logger.Nop(), 2).Describe(context.Background(), panel, []string{"NOPE"}, nil)
	assert.True(t, errors.Is(err, contracts.ErrMissingColumn))
}
