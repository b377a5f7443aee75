package transitions

import (
	"math"
	"sort"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/portfolio"
)

// BuildMatrix counts links inside window over labels × labels and row-normalises to percent.
// 라벨 집합 밖의 링크는 무시, 합계 0 인 행은 NaN 으로 유지
func BuildMatrix(name string, links []contracts.TransitionLink, labels []string, window contracts.Window) contracts.TransitionMatrix {
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}

	total := 0
	for _, l := range links {
		if !window.Contains(l.Date) {
			continue
		}
		i, ok := pos[l.Past]
		if !ok {
			continue
		}
		j, ok := pos[l.Current]
		if !ok {
			continue
		}
		counts[i][j]++
		total++
	}

	return contracts.TransitionMatrix{
		Name:          name,
		Labels:        append([]string(nil), labels...),
		Counts:        counts,
		Probabilities: contracts.RowPercentages(counts),
		Links:         total,
	}
}

// CornerReturns is the time-averaged value-weighted return of each (past, current) cell
type CornerReturns struct {
	Labels  []string    `json:"labels"`
	Returns [][]float64 `json:"returns"` // 월평균 (소수), 관측 없으면 NaN
	Months  [][]int     `json:"months"`  // 평균에 쓰인 월 수
}

type cornerKey struct {
	month         int
	past, current string
}

// BuildCornerReturns value-weights link returns per (month, past, current) and
// averages each cell over the months inside window
func BuildCornerReturns(links []contracts.TransitionLink, labels []string, window contracts.Window) CornerReturns {
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	type bucket struct{ values, weights []float64 }
	cells := make(map[cornerKey]*bucket)
	for _, l := range links {
		if !window.Contains(l.Date) {
			continue
		}
		if _, ok := pos[l.Past]; !ok {
			continue
		}
		if _, ok := pos[l.Current]; !ok {
			continue
		}
		k := cornerKey{month: contracts.MonthIndex(l.Date), past: l.Past, current: l.Current}
		b, ok := cells[k]
		if !ok {
			b = &bucket{}
			cells[k] = b
		}
		b.values = append(b.values, l.Return)
		b.weights = append(b.weights, l.Weight)
	}

	keys := make([]cornerKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].month < keys[j].month })

	n := len(labels)
	sums := make([][]float64, n)
	out := CornerReturns{Labels: append([]string(nil), labels...), Returns: make([][]float64, n), Months: make([][]int, n)}
	for i := 0; i < n; i++ {
		sums[i] = make([]float64, n)
		out.Returns[i] = make([]float64, n)
		out.Months[i] = make([]int, n)
	}
	for _, k := range keys {
		b := cells[k]
		r := portfolio.WeightedMean(b.values, b.weights)
		if math.IsNaN(r) {
			continue
		}
		i, j := pos[k.past], pos[k.current]
		sums[i][j] += r
		out.Months[i][j]++
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if out.Months[i][j] == 0 {
				out.Returns[i][j] = math.NaN()
				continue
			}
			out.Returns[i][j] = sums[i][j] / float64(out.Months[i][j])
		}
	}
	return out
}
