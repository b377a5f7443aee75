package portfolio

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
)

// 2×3 정렬 라벨과 분위
var (
	SizeLabels       = []string{"S", "B"}
	SizePercentiles  = []float64{50}
	ValueLabels      = []string{"L", "M", "H"}
	ValuePercentiles = []float64{30, 70}
)

// RankLabels returns "1".."q"
func RankLabels(q int) []string {
	out := make([]string, q)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

// AssignBucket maps a value onto labels given ascending boundaries.
// 첫 번째로 value <= boundary 인 구간, 마지막 경계 초과는 최상위, NaN 은 ""
func AssignBucket(value float64, boundaries []float64, labels []string) string {
	if math.IsNaN(value) || len(labels) != len(boundaries)+1 {
		return ""
	}
	for i, b := range boundaries {
		if value <= b {
			return labels[i]
		}
	}
	return labels[len(labels)-1]
}

// Assign labels every eligible row against its period (and group) breakpoints.
// 브레이크포인트가 없는 기간, 비적격 행, 결측 값은 모두 ""
func (e *Engine) Assign(panel *s0_data.Panel, values []float64, bp *Breakpoints, labels []string, eligible func(i int) bool, group func(i int) string) ([]string, error) {
	if len(values) != panel.Len() {
		return nil, fmt.Errorf("%w: %d factor values for %d rows", contracts.ErrLengthMismatch, len(values), panel.Len())
	}

	out := make([]string, panel.Len())
	missing := 0
	for i, o := range panel.Rows() {
		if eligible != nil && !eligible(i) {
			continue
		}
		g := ""
		if group != nil {
			g = group(i)
		}
		set, ok := bp.Get(contracts.MonthIndex(o.Date), g)
		if !ok {
			missing++
			continue
		}
		out[i] = AssignBucket(values[i], set.Values, labels)
	}

	if missing > 0 {
		e.logger.WithFields(map[string]interface{}{
			"rows": missing,
		}).Debug("Rows without breakpoints left unassigned")
	}
	return out, nil
}

// Concat joins per-dimension labels; any empty part gives ""
func Concat(parts ...[]string) []string {
	if len(parts) == 0 {
		return nil
	}
	out := make([]string, len(parts[0]))
	for i := range out {
		label := ""
		for _, p := range parts {
			if p[i] == "" {
				label = ""
				break
			}
			label += p[i]
		}
		out[i] = label
	}
	return out
}
