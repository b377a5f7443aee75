package factors

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Comparison is the agreement of one replicated factor with its published counterpart
type Comparison struct {
	Factor   string  `json:"factor"`
	Pearson  float64 `json:"pearson"`
	Spearman float64 `json:"spearman"`
	N        int     `json:"n"`
}

// Comparer correlates replicated factors with a published benchmark
type Comparer struct {
	logger *logger.Logger
}

// NewComparer creates a new comparer
func NewComparer(log *logger.Logger) *Comparer {
	return &Comparer{logger: log}
}

// Compare matches every replicated factor with the benchmark column of the same name
// from start onward. 벤치마크에 없는 팩터는 건너뜀
func (c *Comparer) Compare(rep *Replication, bench *contracts.Benchmark, start time.Time) []Comparison {
	log := c.logger.WithStage(contracts.StageFactors)

	out := make([]Comparison, 0, len(rep.Factors))
	for _, mine := range rep.Factors {
		published, err := bench.Factor(mine.Name)
		if err != nil {
			log.WithField("factor", mine.Name).Warn("Benchmark column missing, skipping comparison")
			continue
		}
		cmp := Correlate(mine, published, start)
		out = append(out, cmp)

		log.WithFields(map[string]interface{}{
			"factor":   cmp.Factor,
			"pearson":  cmp.Pearson,
			"spearman": cmp.Spearman,
			"n":        cmp.N,
		}).Info("Compared with published factor")
	}
	return out
}

// Correlate returns Pearson and Spearman correlations over the months both series
// cover on or after start. 관측치가 3개 미만이면 NaN
func Correlate(a, b contracts.Series, start time.Time) Comparison {
	dates, av, bv := contracts.InnerJoin(a, b)

	var x, y []float64
	for i, d := range dates {
		if d.Before(start) || math.IsNaN(av[i]) || math.IsNaN(bv[i]) {
			continue
		}
		x = append(x, av[i])
		y = append(y, bv[i])
	}

	cmp := Comparison{Factor: a.Name, N: len(x), Pearson: math.NaN(), Spearman: math.NaN()}
	if len(x) < 3 {
		return cmp
	}
	cmp.Pearson = stat.Correlation(x, y, nil)
	cmp.Spearman = stat.Correlation(Ranks(x), Ranks(y), nil)
	return cmp
}

// Ranks returns 1-based ranks with ties sharing their average rank
func Ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return xs[idx[i]] < xs[idx[j]] })

	ranks := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}
