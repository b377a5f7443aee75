package contracts

import (
	"fmt"
	"sort"
)

// Benchmark column names of the published factor file
const (
	BenchmarkMarket   = "Mkt-RF"
	BenchmarkRiskFree = "RF"
)

// Benchmark holds published factor series in decimal units
// ⭐ SSOT: 원본 파일은 퍼센트, 로딩 시 /100 변환
type Benchmark struct {
	factors map[string]Series
}

// NewBenchmark builds a benchmark from named series (already decimal)
func NewBenchmark(series ...Series) *Benchmark {
	b := &Benchmark{factors: make(map[string]Series, len(series))}
	for _, s := range series {
		b.factors[s.Name] = s
	}
	return b
}

// Factor returns one benchmark series by column name
func (b *Benchmark) Factor(name string) (Series, error) {
	s, ok := b.factors[name]
	if !ok {
		return Series{}, fmt.Errorf("%w: benchmark has no %q column", ErrUnknownFactor, name)
	}
	return s, nil
}

// Names returns the available columns in sorted order
func (b *Benchmark) Names() []string {
	names := make([]string, 0, len(b.factors))
	for n := range b.factors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RiskFree returns the risk-free series
func (b *Benchmark) RiskFree() (Series, error) {
	return b.Factor(BenchmarkRiskFree)
}

// MarketExcess returns the market excess-return series
func (b *Benchmark) MarketExcess() (Series, error) {
	return b.Factor(BenchmarkMarket)
}
