package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/montanaflynn/stats"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/portfolio"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// DefaultPercentiles are the reported cross-sectional percentiles
var DefaultPercentiles = []float64{1, 5, 25, 50, 75, 95, 99}

// Description is the time-series average of per-period cross-sectional statistics
type Description struct {
	Variable    string    `json:"variable"`
	Periods     int       `json:"periods"`
	Count       float64   `json:"count"`
	Mean        float64   `json:"mean"`
	StdDev      float64   `json:"std"`
	Min         float64   `json:"min"`
	Percentiles []float64 `json:"percentiles"` // DefaultPercentiles 순서
	Max         float64   `json:"max"`
}

// periodStats is one (period, variable) cross-section
type periodStats struct {
	count, mean, sd, min, max float64
	pct                       []float64
	ok                        bool
}

// Describer computes descriptive statistics over (period, variable) with a bounded pool
type Describer struct {
	workers int
	logger  *logger.Logger
}

// NewDescriber creates a new describer with at most workers concurrent tasks
func NewDescriber(log *logger.Logger, workers int) *Describer {
	if workers < 1 {
		workers = 1
	}
	return &Describer{workers: workers, logger: log}
}

// Describe computes count, mean, sd, min, percentiles and max of every variable per
// period and averages them over periods. 값이 없는 기간은 평균에서 제외
func (d *Describer) Describe(ctx context.Context, panel *s0_data.Panel, variables []string, percentiles []float64) ([]Description, error) {
	start := time.Now()
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}

	columns := make([][]float64, len(variables))
	for j, name := range variables {
		col, err := panel.Float(name)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, err)
		}
		columns[j] = col
	}

	byPeriod := panel.ByPeriod()
	months := make([]int, 0, len(byPeriod))
	for m := range byPeriod {
		months = append(months, m)
	}
	sort.Ints(months)

	// 결과 슬롯은 (변수, 기간) 별로 분리되어 잠금 불필요
	results := make([][]periodStats, len(variables))
	for j := range results {
		results[j] = make([]periodStats, len(months))
	}

	pool := pond.NewPool(d.workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for j := range variables {
		for p, m := range months {
			j, p, m := j, p, m
			group.Submit(func() {
				if groupCtx.Err() != nil {
					return
				}
				results[j][p] = crossSection(columns[j], byPeriod[m], percentiles)
			})
		}
	}
	if err := group.Wait(); err != nil && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, fmt.Errorf("describe: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Description, len(variables))
	for j, name := range variables {
		out[j] = average(name, results[j], len(percentiles))
	}

	d.logger.WithStage(contracts.StageAudit).WithFields(map[string]interface{}{
		"variables": len(variables),
		"periods":   len(months),
		"workers":   d.workers,
	}).Timed(start, "Descriptive statistics complete")
	return out, nil
}

func crossSection(column []float64, idx []int, percentiles []float64) periodStats {
	values := make([]float64, 0, len(idx))
	for _, i := range idx {
		if contracts.IsFinite(column[i]) {
			values = append(values, column[i])
		}
	}
	if len(values) == 0 {
		return periodStats{}
	}
	sort.Float64s(values)

	s := periodStats{count: float64(len(values)), ok: true, sd: math.NaN()}
	s.mean, _ = stats.Mean(values)
	s.min, _ = stats.Min(values)
	s.max, _ = stats.Max(values)
	if len(values) > 1 {
		s.sd, _ = stats.StandardDeviationSample(values)
	}
	s.pct = make([]float64, len(percentiles))
	for k, p := range percentiles {
		s.pct[k] = portfolio.Percentile(values, p)
	}
	return s
}

// average takes the mean of each statistic over the periods that have data
func average(name string, periods []periodStats, nPct int) Description {
	var count, mean, sd, lo, hi []float64
	pct := make([][]float64, nPct)
	for _, s := range periods {
		if !s.ok {
			continue
		}
		count = append(count, s.count)
		mean = append(mean, s.mean)
		lo = append(lo, s.min)
		hi = append(hi, s.max)
		if !math.IsNaN(s.sd) {
			sd = append(sd, s.sd)
		}
		for k, v := range s.pct {
			pct[k] = append(pct[k], v)
		}
	}

	out := Description{
		Variable:    name,
		Periods:     len(count),
		Count:       meanOrNaN(count),
		Mean:        meanOrNaN(mean),
		StdDev:      meanOrNaN(sd),
		Min:         meanOrNaN(lo),
		Max:         meanOrNaN(hi),
		Percentiles: make([]float64, nPct),
	}
	for k := range pct {
		out.Percentiles[k] = meanOrNaN(pct[k])
	}
	return out
}

func meanOrNaN(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return math.NaN()
	}
	return m
}
