package audit

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/factors"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// MonthsPerYear annualises monthly statistics
const MonthsPerYear = 12

// MinObservations is the shortest series a summary is computed for
const MinObservations = 3

// Summary is one row of a portfolio summary table
// 수익률은 소수, 연환산은 복리 (1+m)^12 − 1
type Summary struct {
	Name string `json:"name"`
	N    int    `json:"n"`

	// 수익률
	TotalMean  float64 `json:"total_mean"`
	TotalT     float64 `json:"total_t"`
	ExcessMean float64 `json:"excess_mean"`
	ExcessT    float64 `json:"excess_t"`

	// 리스크
	Volatility float64 `json:"volatility"`
	Skew       float64 `json:"skew"`
	Kurtosis   float64 `json:"kurtosis"`
	Sharpe     float64 `json:"sharpe"`

	// CAPM
	Alpha         float64 `json:"alpha"`
	AlphaT        float64 `json:"alpha_t"`
	Beta          float64 `json:"beta"`
	TrackingError float64 `json:"tracking_error"`
	Appraisal     float64 `json:"appraisal"`

	CapShare float64 `json:"cap_share"` // 평균 시가총액 비중 (%), H-L 은 NaN
}

// Stars returns the significance marker of a t-statistic
func Stars(t float64) string {
	switch a := math.Abs(t); {
	case a >= 2.58:
		return "***"
	case a >= 1.96:
		return "**"
	case a >= 1.64:
		return "*"
	}
	return ""
}

// Summarizer computes summary tables of portfolio return series
// ⭐ SSOT: S6 성과 통계는 여기서만
type Summarizer struct {
	logger *logger.Logger
}

// NewSummarizer creates a new summarizer
func NewSummarizer(log *logger.Logger) *Summarizer {
	return &Summarizer{logger: log}
}

// SummarizeSort summarises every quantile of a sort plus its long-short series
func (s *Summarizer) SummarizeSort(out *factors.SortOutput, bench *contracts.Benchmark) ([]Summary, error) {
	start := time.Now()
	labels := out.Table.Labels()
	rows := make([]Summary, 0, len(labels)+1)
	for _, label := range labels {
		share, ok := out.CapShare[label]
		if !ok {
			share = math.NaN()
		}
		sum, err := s.Summarize(out.Table.Series(label), bench, share)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", label, err)
		}
		rows = append(rows, sum)
	}
	ls, err := s.Summarize(out.LongShort, bench, math.NaN())
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", out.LongShort.Name, err)
	}
	rows = append(rows, ls)

	s.logger.WithStage(contracts.StageAudit).WithFields(map[string]interface{}{
		"sort": out.Config.Name(),
		"rows": len(rows),
	}).Timed(start, "Summary table complete")
	return rows, nil
}

// Summarize computes the summary statistics of one monthly series over the months
// it shares with the benchmark's RF and Mkt-RF columns.
// H-L 은 무위험 수익률을 빼지 않음
func (s *Summarizer) Summarize(series contracts.Series, bench *contracts.Benchmark, capShare float64) (Summary, error) {
	rf, err := bench.RiskFree()
	if err != nil {
		return Summary{}, err
	}
	mkt, err := bench.MarketExcess()
	if err != nil {
		return Summary{}, err
	}

	rfBy, mktBy := rf.ByMonth(), mkt.ByMonth()
	var total, excess, market []float64
	for i, d := range series.Dates {
		v := series.Values[i]
		m := contracts.MonthIndex(d)
		r, okR := rfBy[m]
		x, okX := mktBy[m]
		if !contracts.IsFinite(v) || !okR || !okX || !contracts.IsFinite(r) || !contracts.IsFinite(x) {
			continue
		}
		total = append(total, v)
		market = append(market, x)
		if series.Name == factors.LongShortName {
			excess = append(excess, v)
		} else {
			excess = append(excess, v-r)
		}
	}

	n := len(total)
	if n < MinObservations {
		return Summary{}, fmt.Errorf("%w: %s has %d months with benchmark data", contracts.ErrInsufficientData, series.Name, n)
	}

	out := Summary{Name: series.Name, N: n, CapShare: capShare}
	totalMean, totalSD := stat.MeanStdDev(total, nil)
	excessMean, excessSD := stat.MeanStdDev(excess, nil)
	out.TotalT = tStat(totalMean, totalSD, n)
	out.ExcessT = tStat(excessMean, excessSD, n)
	out.Skew = stat.Skew(excess, nil)
	out.Kurtosis = stat.ExKurtosis(excess, nil)

	capm := simpleOLS(market, excess)
	out.AlphaT = capm.alphaT
	out.Beta = capm.beta

	out.TotalMean = compound(totalMean)
	out.ExcessMean = compound(excessMean)
	out.Volatility = excessSD * math.Sqrt(MonthsPerYear)
	out.Sharpe = out.ExcessMean / out.Volatility
	out.Alpha = compound(capm.alpha)
	out.TrackingError = capm.residSD * math.Sqrt(MonthsPerYear)
	out.Appraisal = capm.alpha / capm.residSD * math.Sqrt(MonthsPerYear)
	return out, nil
}

// compound annualises a monthly mean
func compound(m float64) float64 {
	return math.Pow(1+m, MonthsPerYear) - 1
}

// tStat returns mean / (sd/√n)
func tStat(mean, sd float64, n int) float64 {
	return mean / (sd / math.Sqrt(float64(n)))
}

type capmFit struct {
	alpha, beta float64
	alphaT      float64
	residSD     float64 // 잔차 표본 표준편차
}

// simpleOLS regresses y on x with an intercept
func simpleOLS(x, y []float64) capmFit {
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	n := float64(len(x))

	resid := make([]float64, len(x))
	ssr := 0.0
	for i := range x {
		resid[i] = y[i] - alpha - beta*x[i]
		ssr += resid[i] * resid[i]
	}
	xMean, xVar := stat.MeanVariance(x, nil)
	sxx := xVar * (n - 1)
	s2 := ssr / (n - 2)
	seAlpha := math.Sqrt(s2 * (1/n + xMean*xMean/sxx))

	return capmFit{
		alpha:   alpha,
		beta:    beta,
		alphaT:  alpha / seAlpha,
		residSD: stat.StdDev(resid, nil),
	}
}
