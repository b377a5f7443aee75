package portfolio

import (
	"fmt"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/s1_universe"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// LabelPortfolio is the combined bucket label column
const LabelPortfolio = "portfolio"

// Dimension is one sorting axis of a portfolio formation
type Dimension struct {
	Name        string             // 라벨 컬럼 이름
	Values      []float64          // 형성 패널 행별 팩터 값
	Percentiles []float64          // 브레이크포인트 분위
	Labels      []string           // len = len(Percentiles) + 1
	Reference   func(i int) bool   // 브레이크포인트 모집단 (nil = 전체)
	Group       func(i int) string // 기간 내 그룹 (nil = 없음)
}

// RankDimension builds a "1".."q" quantile dimension
func RankDimension(name string, values []float64, q int, reference func(i int) bool) Dimension {
	return Dimension{
		Name:        name,
		Values:      values,
		Percentiles: QuantilePercentiles(q),
		Labels:      RankLabels(q),
		Reference:   reference,
	}
}

// SortResult is the output of one formation + aggregation pass
type SortResult struct {
	Formation *s0_data.Panel         // 형성 패널 + 차원별 라벨 + portfolio
	Holdings  *s0_data.Panel         // 투자 가능 월별 행 (portfolio 라벨 보유)
	Table     *contracts.ReturnTable // (기간, 라벨) 가치가중 수익률
}

// Labels returns the portfolio label column of the holdings
func (r *SortResult) Labels() []string {
	labels, _ := r.Holdings.Labels(LabelPortfolio)
	return labels
}

// Sorter is the shared breakpoint → bucket → aggregate pipeline
// ⭐ SSOT: 모든 팩터 정렬은 이 파이프라인 하나로 처리
type Sorter struct {
	engine     *Engine
	aggregator *Aggregator
	aligner    *s0_data.Aligner
	universe   *s1_universe.Builder
	logger     *logger.Logger
}

// NewSorter creates a new sorter using the June rebalance convention
func NewSorter(log *logger.Logger) *Sorter {
	return &Sorter{
		engine:     NewEngine(log),
		aggregator: NewAggregator(log),
		aligner:    s0_data.NewAligner(log, contracts.DefaultFiscalLag),
		universe:   s1_universe.NewBuilder(log),
		logger:     log,
	}
}

// Engine exposes the breakpoint engine
func (s *Sorter) Engine() *Engine {
	return s.engine
}

// Aggregator exposes the value-weighted aggregator
func (s *Sorter) Aggregator() *Aggregator {
	return s.aggregator
}

// ReferenceMask returns the breakpoint population predicate for a reference universe
func (s *Sorter) ReferenceMask(panel *s0_data.Panel, ref contracts.ReferenceUniverse, extra ...s1_universe.Rule) func(i int) bool {
	rules := append(s1_universe.ReferenceRules(ref), extra...)
	mask, _ := s.universe.Mask(panel, string(ref), rules...)
	return func(i int) bool { return mask[i] }
}

// Form computes breakpoints and labels for every dimension, then the combined label
func (s *Sorter) Form(panel *s0_data.Panel, eligible func(i int) bool, dims ...Dimension) (*s0_data.Panel, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no sort dimensions", contracts.ErrInvalidConfig)
	}

	parts := make([][]string, 0, len(dims))
	out := panel
	for _, d := range dims {
		if len(d.Labels) != len(d.Percentiles)+1 {
			return nil, fmt.Errorf("%w: dimension %s has %d labels for %d breakpoints",
				contracts.ErrInvalidConfig, d.Name, len(d.Labels), len(d.Percentiles))
		}
		bp, err := s.engine.Compute(panel, d.Values, d.Percentiles, d.Reference, d.Group)
		if err != nil {
			return nil, fmt.Errorf("breakpoints %s: %w", d.Name, err)
		}
		labels, err := s.engine.Assign(panel, d.Values, bp, d.Labels, eligible, d.Group)
		if err != nil {
			return nil, fmt.Errorf("assign %s: %w", d.Name, err)
		}
		if out, err = out.WithLabels(d.Name, labels); err != nil {
			return nil, err
		}
		parts = append(parts, labels)
	}
	return out.WithLabels(LabelPortfolio, Concat(parts...))
}

// SortAnnual forms portfolios on the June snapshot and holds them for the next twelve months
func (s *Sorter) SortAnnual(monthly, snapshot *s0_data.Panel, dims ...Dimension) (*SortResult, error) {
	start := time.Now()

	formed, err := s.Form(snapshot, func(i int) bool {
		return s1_universe.ValidSnapshot(snapshot.Row(i))
	}, dims...)
	if err != nil {
		return nil, err
	}

	carry := []string{LabelPortfolio}
	for _, d := range dims {
		carry = append(carry, d.Name)
	}
	aligned, err := s.aligner.Align(monthly, formed, nil, carry)
	if err != nil {
		return nil, fmt.Errorf("broadcast june portfolios: %w", err)
	}

	result, err := s.hold(aligned)
	if err != nil {
		return nil, err
	}
	result.Formation = formed
	s.logger.WithStage(contracts.StagePortfolio).Timed(start, "Annual sort complete")
	return result, nil
}

// SortMonthly forms portfolios every month on the monthly panel (momentum style)
func (s *Sorter) SortMonthly(monthly *s0_data.Panel, dims ...Dimension) (*SortResult, error) {
	start := time.Now()

	formed, err := s.Form(monthly, func(i int) bool {
		return s1_universe.ValidMonthly(monthly.Row(i))
	}, dims...)
	if err != nil {
		return nil, err
	}

	result, err := s.hold(formed)
	if err != nil {
		return nil, err
	}
	result.Formation = formed
	s.logger.WithStage(contracts.StagePortfolio).Timed(start, "Monthly sort complete")
	return result, nil
}

// hold keeps investable labelled rows and aggregates them
func (s *Sorter) hold(panel *s0_data.Panel) (*SortResult, error) {
	labels, err := panel.Labels(LabelPortfolio)
	if err != nil {
		return nil, err
	}
	holdings := panel.Filter(func(i int) bool {
		return labels[i] != "" && s1_universe.Investable(panel.Row(i))
	})
	held, _ := holdings.Labels(LabelPortfolio)

	table, err := s.aggregator.Aggregate(holdings, held, s0_data.FieldReturn, s0_data.FieldWeight)
	if err != nil {
		return nil, err
	}

	s.logger.WithStage(contracts.StagePortfolio).WithFields(map[string]interface{}{
		"rows":     panel.Len(),
		"holdings": holdings.Len(),
		"cells":    table.Len(),
	}).Debug("Held portfolios")

	return &SortResult{Holdings: holdings, Table: table}, nil
}
