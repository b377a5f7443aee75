package audit

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/portfolio"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/s1_universe"
	"github.com/aidanvyas/asset-pricing-code/internal/s2_signals"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Intercept is the name of the constant regressor
const Intercept = "constant"

// Winsorisation bounds (percent)
const (
	WinsorLow  = 1.0
	WinsorHigh = 99.0
)

// Controls are the Fama-MacBeth control variables in report order
func Controls() []string {
	return []string{s2_signals.FactorLogDecME, s2_signals.FactorBookToMarket, contracts.MomentumFactor, s2_signals.FactorInvestment}
}

// OLSResult is an ordinary least squares fit with an intercept in position 0
type OLSResult struct {
	Coef   []float64
	StdErr []float64
	T      []float64
	R2     float64
	N      int
}

// OLS regresses y on the columns of x plus an intercept.
// x[j] 는 j 번째 설명변수 (길이 n). 관측치가 계수 수 이하이거나 특이행렬이면 에러
func OLS(y []float64, x [][]float64) (*OLSResult, error) {
	n, k := len(y), len(x)+1
	if n <= k {
		return nil, fmt.Errorf("%w: %d observations for %d coefficients", contracts.ErrInsufficientData, n, k)
	}
	design := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
	}
	for j, col := range x {
		if len(col) != n {
			return nil, fmt.Errorf("ols regressor %d: %w", j, contracts.ErrLengthMismatch)
		}
		for i, v := range col {
			design.Set(i, j+1, v)
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: singular design matrix: %v", contracts.ErrInsufficientData, err)
	}
	var xty, beta mat.VecDense
	xty.MulVec(design.T(), yv)
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(design, &beta)
	resid := make([]float64, n)
	floats.SubTo(resid, y, fitted.RawVector().Data)
	ssr := floats.Dot(resid, resid)

	yMean := stat.Mean(y, nil)
	sst := 0.0
	for _, v := range y {
		sst += (v - yMean) * (v - yMean)
	}

	s2 := ssr / float64(n-k)
	out := &OLSResult{
		Coef:   make([]float64, k),
		StdErr: make([]float64, k),
		T:      make([]float64, k),
		R2:     1 - ssr/sst,
		N:      n,
	}
	for j := 0; j < k; j++ {
		out.Coef[j] = beta.AtVec(j)
		out.StdErr[j] = math.Sqrt(s2 * inv.At(j, j))
		out.T[j] = out.Coef[j] / out.StdErr[j]
	}
	return out, nil
}

// Coefficient is one row of a regression table
type Coefficient struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	T     float64 `json:"t"`
}

// FamaMacBethResult is the time-series average of monthly cross-sectional slopes
type FamaMacBethResult struct {
	Coefficients []Coefficient `json:"coefficients"` // 평균 계수 (%), t = mean / (sd/√T)
	Periods      int           `json:"periods"`
	Skipped      int           `json:"skipped"`
	Observations int           `json:"observations"`
}

// SpanningResult is a time-series regression of one factor on others
type SpanningResult struct {
	Factor       string        `json:"factor"`
	Coefficients []Coefficient `json:"coefficients"` // 절편은 월 % 단위
	R2           float64       `json:"r2"`
	N            int           `json:"n"`
}

// Regressor runs Fama-MacBeth and spanning regressions
// ⭐ SSOT: S6 회귀 분석은 여기서만
type Regressor struct {
	signals *s2_signals.Builder
	aligner *s0_data.Aligner
	logger  *logger.Logger
}

// NewRegressor creates a new regressor
func NewRegressor(log *logger.Logger) *Regressor {
	return &Regressor{
		signals: s2_signals.NewBuilder(log),
		aligner: s0_data.NewAligner(log, contracts.DefaultFiscalLag),
		logger:  log,
	}
}

// Prepare builds the Fama-MacBeth panel: monthly common-share rows with the June
// controls and predictors broadcast, MOMENTUM [12, 1], and BE_ME > 0
func (r *Regressor) Prepare(ds *s0_data.Dataset, predictors []string) (*s0_data.Panel, error) {
	annual := []string{s2_signals.FactorLogDecME, s2_signals.FactorBookToMarket, s2_signals.FactorInvestment}
	annual = append(annual, predictors...)

	snapshot := ds.Snapshot
	for _, name := range annual {
		values, err := r.signals.Annual(ds.Snapshot, name)
		if err != nil {
			return nil, fmt.Errorf("fama-macbeth variable %s: %w", name, err)
		}
		if snapshot, err = snapshot.WithColumn(name, values); err != nil {
			return nil, err
		}
	}

	monthly := ds.Monthly.Filter(func(i int) bool {
		return s1_universe.CommonShare.Keep(ds.Monthly.Row(i))
	})
	mom, err := r.signals.Momentum().Momentum(monthly, 12, 1)
	if err != nil {
		return nil, err
	}
	if monthly, err = monthly.WithColumn(contracts.MomentumFactor, mom); err != nil {
		return nil, err
	}
	aligned, err := r.aligner.Align(monthly, snapshot, annual, nil)
	if err != nil {
		return nil, err
	}
	return aligned.Filter(func(i int) bool {
		return aligned.Value(s2_signals.FactorBookToMarket, i) > 0
	}), nil
}

// FamaMacBeth regresses dependent on variables each period and averages the slopes.
// 결측 행 제거 → 전체 표본 1/99% 윈저라이즈 → 기간별 OLS (n <= k 기간 제외)
func (r *Regressor) FamaMacBeth(panel *s0_data.Panel, dependent string, variables []string) (*FamaMacBethResult, error) {
	start := time.Now()
	log := r.logger.WithStage(contracts.StageAudit)

	y, err := panel.Float(dependent)
	if err != nil {
		return nil, err
	}
	cols := make([][]float64, len(variables))
	for j, name := range variables {
		if cols[j], err = panel.Float(name); err != nil {
			return nil, err
		}
	}

	complete := panel.Filter(func(i int) bool {
		if !contracts.IsFinite(y[i]) {
			return false
		}
		for _, c := range cols {
			if !contracts.IsFinite(c[i]) {
				return false
			}
		}
		return true
	})
	if y, err = complete.Float(dependent); err != nil {
		return nil, err
	}
	for j, name := range variables {
		values, err := complete.Float(name)
		if err != nil {
			return nil, err
		}
		cols[j] = Winsorize(values, WinsorLow, WinsorHigh)
	}

	byPeriod := complete.ByPeriod()
	months := make([]int, 0, len(byPeriod))
	for m := range byPeriod {
		months = append(months, m)
	}
	sort.Ints(months)

	k := len(variables) + 1
	slopes := make([][]float64, k)
	skipped := 0
	for _, m := range months {
		idx := byPeriod[m]
		py := pick(y, idx)
		px := make([][]float64, len(cols))
		for j, c := range cols {
			px[j] = pick(c, idx)
		}
		fit, err := OLS(py, px)
		if err != nil {
			skipped++
			continue
		}
		for j := range slopes {
			slopes[j] = append(slopes[j], fit.Coef[j])
		}
	}

	periods := len(slopes[0])
	if periods < 2 {
		return nil, fmt.Errorf("%w: %d usable cross-sections", contracts.ErrInsufficientData, periods)
	}
	names := append([]string{Intercept}, variables...)
	out := &FamaMacBethResult{Periods: periods, Skipped: skipped, Observations: complete.Len()}
	for j, s := range slopes {
		mean, sd := stat.MeanStdDev(s, nil)
		out.Coefficients = append(out.Coefficients, Coefficient{
			Name:  names[j],
			Value: 100 * mean,
			T:     tStat(mean, sd, periods),
		})
	}

	log.WithFields(map[string]interface{}{
		"variables":    len(variables),
		"periods":      periods,
		"skipped":      skipped,
		"observations": out.Observations,
	}).Timed(start, "Fama-MacBeth regression complete")
	return out, nil
}

// Spanning regresses factor on the explanatory series over their common months
func (r *Regressor) Spanning(factor contracts.Series, explanatory []contracts.Series) (*SpanningResult, error) {
	byMonth := make([]map[int]float64, len(explanatory))
	for j, s := range explanatory {
		byMonth[j] = s.ByMonth()
	}

	var y []float64
	x := make([][]float64, len(explanatory))
	for i, d := range factor.Dates {
		v := factor.Values[i]
		if !contracts.IsFinite(v) {
			continue
		}
		m := contracts.MonthIndex(d)
		row := make([]float64, len(explanatory))
		ok := true
		for j := range explanatory {
			row[j], ok = byMonth[j][m]
			if !ok || !contracts.IsFinite(row[j]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		y = append(y, v)
		for j := range row {
			x[j] = append(x[j], row[j])
		}
	}

	fit, err := OLS(y, x)
	if err != nil {
		return nil, fmt.Errorf("spanning %s: %w", factor.Name, err)
	}
	out := &SpanningResult{Factor: factor.Name, R2: fit.R2, N: fit.N}
	out.Coefficients = append(out.Coefficients, Coefficient{Name: Intercept, Value: 100 * fit.Coef[0], T: fit.T[0]})
	for j, s := range explanatory {
		out.Coefficients = append(out.Coefficients, Coefficient{Name: s.Name, Value: fit.Coef[j+1], T: fit.T[j+1]})
	}

	r.logger.WithStage(contracts.StageAudit).WithFields(map[string]interface{}{
		"factor": factor.Name,
		"n":      fit.N,
		"r2":     fit.R2,
	}).Info("Spanning regression complete")
	return out, nil
}

// Winsorize clips values to their [lo, hi] percentiles (NaN 은 그대로)
func Winsorize(values []float64, lo, hi float64) []float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	low := portfolio.Percentile(sorted, lo)
	high := portfolio.Percentile(sorted, hi)

	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = v
		case v < low:
			out[i] = low
		case v > high:
			out[i] = high
		default:
			out[i] = v
		}
	}
	return out
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
