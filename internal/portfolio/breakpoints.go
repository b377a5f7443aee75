package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// BreakpointSet is the ordered cut points of one period (and group)
type BreakpointSet struct {
	Percentiles []float64 `json:"percentiles"`
	Values      []float64 `json:"values"`
	Population  int       `json:"population"`
}

type groupKey struct {
	month int
	group string
}

// Breakpoints holds one BreakpointSet per (period, group)
type Breakpoints struct {
	sets map[groupKey]BreakpointSet
}

// Get returns the set for a period and group
func (b *Breakpoints) Get(month int, group string) (BreakpointSet, bool) {
	s, ok := b.sets[groupKey{month: month, group: group}]
	return s, ok
}

// Len returns the number of (period, group) sets
func (b *Breakpoints) Len() int {
	return len(b.sets)
}

// Months returns the periods that have at least one set, ascending
func (b *Breakpoints) Months() []int {
	seen := make(map[int]struct{})
	for k := range b.sets {
		seen[k.month] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// QuantilePercentiles returns [100·i/q for i in 1..q-1]
func QuantilePercentiles(q int) []float64 {
	if q < 2 {
		return nil
	}
	out := make([]float64, q-1)
	for i := 1; i < q; i++ {
		out[i-1] = 100 * float64(i) / float64(q)
	}
	return out
}

// Percentile interpolates linearly between closest ranks, h = (n-1)·p/100
// sorted 는 오름차순, NaN 없음
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p / 100
	lo := math.Floor(h)
	if lo < 0 {
		return sorted[0]
	}
	if int(lo) >= n-1 {
		return sorted[n-1]
	}
	frac := h - lo
	i := int(lo)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// Engine computes cross-sectional percentile breakpoints
// ⭐ SSOT: S3 브레이크포인트 계산은 여기서만
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new breakpoint engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Compute returns breakpoints per (period, group) over the reference population.
// reference 가 nil 이면 전체, group 이 nil 이면 기간별 단일 그룹.
// 비유한 값(NaN, ±Inf)은 모집단에서 제외. 모집단이 비면 해당 기간 세트 없음
func (e *Engine) Compute(panel *s0_data.Panel, values []float64, percentiles []float64, reference func(i int) bool, group func(i int) string) (*Breakpoints, error) {
	if len(values) != panel.Len() {
		return nil, fmt.Errorf("%w: %d factor values for %d rows", contracts.ErrLengthMismatch, len(values), panel.Len())
	}
	if len(percentiles) == 0 {
		return nil, fmt.Errorf("%w: no percentiles requested", contracts.ErrInvalidConfig)
	}
	for i, p := range percentiles {
		if p <= 0 || p >= 100 || (i > 0 && p <= percentiles[i-1]) {
			return nil, fmt.Errorf("%w: percentiles must be strictly increasing in (0, 100), got %v", contracts.ErrInvalidConfig, percentiles)
		}
	}

	population := make(map[groupKey][]float64)
	for i, o := range panel.Rows() {
		if reference != nil && !reference(i) {
			continue
		}
		v := values[i]
		if !contracts.IsFinite(v) {
			continue
		}
		k := groupKey{month: contracts.MonthIndex(o.Date)}
		if group != nil {
			k.group = group(i)
		}
		population[k] = append(population[k], v)
	}

	bp := &Breakpoints{sets: make(map[groupKey]BreakpointSet, len(population))}
	for k, vals := range population {
		sort.Float64s(vals)
		set := BreakpointSet{
			Percentiles: percentiles,
			Values:      make([]float64, len(percentiles)),
			Population:  len(vals),
		}
		for j, p := range percentiles {
			set.Values[j] = Percentile(vals, p)
		}
		bp.sets[k] = set
	}

	e.logger.WithFields(map[string]interface{}{
		"sets":        bp.Len(),
		"percentiles": percentiles,
	}).Debug("Computed breakpoints")

	return bp, nil
}
