package transitions

import (
	"fmt"
	"math"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/factors"
	"github.com/aidanvyas/asset-pricing-code/internal/industry"
	"github.com/aidanvyas/asset-pricing-code/internal/portfolio"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/s1_universe"
	"github.com/aidanvyas/asset-pricing-code/internal/s2_signals"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Variant selects how the past and current buckets are defined
type Variant string

const (
	// VariantStandard links a bucket to the same sort shift rows earlier
	VariantStandard Variant = "standard"

	// VariantMultiYear links the current bucket to the bucket of the trailing multi-year average
	VariantMultiYear Variant = "multi_year"

	// VariantReturns links the trailing 12-month return quantile to the past factor bucket
	VariantReturns Variant = "returns"

	// VariantIndustryAdjusted sorts on factor / industry median
	VariantIndustryAdjusted Variant = "industry_adjusted"

	// VariantIndustry uses per-industry breakpoints and one matrix per industry
	VariantIndustry Variant = "industry"
)

// IsValid reports whether the variant is known
func (v Variant) IsValid() bool {
	switch v {
	case VariantStandard, VariantMultiYear, VariantReturns, VariantIndustryAdjusted, VariantIndustry:
		return true
	}
	return false
}

// annualOnly reports whether the variant needs a June snapshot factor
func (v Variant) annualOnly() bool {
	return v != VariantStandard
}

const (
	labelPast     = "past_portfolio"
	labelIndustry = "industry"

	// ReturnWindow is the number of monthly rows summed for the return-quantile bucket
	ReturnWindow = 12
)

// Options parameterises one transition study
type Options struct {
	Variant Variant
	Scheme  industry.Scheme // 산업 분류 (industry 변형)
	Span    int             // 다년 평균 연수 (0 = 5)
	Window  contracts.Window
}

// Result is the output of one transition study
type Result struct {
	Config     contracts.SortConfig
	Variant    Variant
	Shift      int
	Links      []contracts.TransitionLink
	Matrix     contracts.TransitionMatrix
	Corners    CornerReturns
	ByIndustry map[string]contracts.TransitionMatrix
}

// JobName is the persisted job identifier of a transition study
func JobName(cfg contracts.SortConfig, v Variant) string {
	return fmt.Sprintf("transitions/%s/%s", v, cfg.Name())
}

// Analyzer runs transition studies on top of the shared sort pipeline
// ⭐ SSOT: 전이 변형(표준, 다년, 수익률, 산업 조정, 산업별)은 여기서만
type Analyzer struct {
	runner  *factors.Runner
	tracker *Tracker
	aligner *s0_data.Aligner
	logger  *logger.Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{
		runner:  factors.NewRunner(log),
		tracker: NewTracker(log),
		aligner: s0_data.NewAligner(log, contracts.DefaultFiscalLag),
		logger:  log,
	}
}

// Tracker exposes the transition tracker
func (a *Analyzer) Tracker() *Tracker {
	return a.tracker
}

// Run builds links, the transition matrix and corner returns for cfg
func (a *Analyzer) Run(ds *s0_data.Dataset, cfg contracts.SortConfig, opts Options) (*Result, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Variant == "" {
		opts.Variant = VariantStandard
	}
	if opts.Scheme == 0 {
		opts.Scheme = industry.FF12
	}
	if !opts.Variant.IsValid() {
		return nil, fmt.Errorf("%w: unknown transition variant %q", contracts.ErrInvalidConfig, opts.Variant)
	}
	if opts.Variant.annualOnly() && cfg.IsMomentum() {
		return nil, fmt.Errorf("%w: %s transitions need an annual factor, got %s",
			contracts.ErrInvalidConfig, opts.Variant, cfg.Factor)
	}

	result := &Result{Config: cfg, Variant: opts.Variant, Shift: Shift(cfg)}
	var err error
	switch opts.Variant {
	case VariantStandard:
		result.Links, err = a.standard(ds, cfg, result.Shift)
	case VariantMultiYear:
		result.Links, err = a.multiYear(ds, cfg, opts.Span, result.Shift)
	case VariantReturns:
		result.Links, err = a.returns(ds, cfg, result.Shift)
	case VariantIndustryAdjusted:
		result.Links, err = a.industryAdjusted(ds, cfg, opts.Scheme, result.Shift)
	case VariantIndustry:
		result.Links, result.ByIndustry, err = a.perIndustry(ds, cfg, opts.Scheme, result.Shift, opts.Window)
	}
	if err != nil {
		return nil, fmt.Errorf("%s transitions for %s: %w", opts.Variant, cfg.Name(), err)
	}

	labels := portfolio.RankLabels(cfg.Quantiles)
	result.Matrix = BuildMatrix(cfg.Name(), result.Links, labels, opts.Window)
	result.Corners = BuildCornerReturns(result.Links, labels, opts.Window)

	a.logger.WithStage(contracts.StageTransitions).WithFields(map[string]interface{}{
		"sort":    cfg.Name(),
		"variant": string(opts.Variant),
		"shift":   result.Shift,
		"links":   result.Matrix.Links,
	}).Timed(start, "Transition matrix complete")
	return result, nil
}

// standard: 같은 정렬의 shift 행 이전 버킷
func (a *Analyzer) standard(ds *s0_data.Dataset, cfg contracts.SortConfig, shift int) ([]contracts.TransitionLink, error) {
	sorted, err := a.runner.Form(ds, cfg)
	if err != nil {
		return nil, err
	}
	labels := sorted.Labels()
	return a.tracker.Link(sorted.Holdings, labels, labels, shift)
}

// multiYear: 현재 버킷은 단년 값, 과거 버킷은 직전 span 년 평균의 별도 브레이크포인트.
// 다년 평균이 없는 6월 행은 두 정렬 모두에서 제외
func (a *Analyzer) multiYear(ds *s0_data.Dataset, cfg contracts.SortConfig, span, shift int) ([]contracts.TransitionLink, error) {
	if span == 0 {
		span = s2_signals.DefaultMultiYearSpan
	}
	values, err := a.runner.Values(ds, cfg)
	if err != nil {
		return nil, err
	}
	multi, err := s2_signals.MultiYearAverage(ds.Snapshot, values, span)
	if err != nil {
		return nil, err
	}
	current := make([]float64, len(values))
	for i := range values {
		current[i] = values[i]
		if !contracts.IsFinite(multi[i]) {
			current[i] = math.NaN()
		}
	}

	sorted, err := a.runner.FormValues(ds, cfg, current)
	if err != nil {
		return nil, err
	}

	pastLabels, err := a.snapshotLabels(ds.Snapshot, multi, cfg, nil)
	if err != nil {
		return nil, err
	}
	past, err := a.broadcast(sorted.Holdings, ds.Snapshot, labelPast, pastLabels)
	if err != nil {
		return nil, err
	}
	return a.tracker.Link(sorted.Holdings, sorted.Labels(), past, shift)
}

// returns: 현재 버킷은 보유 행의 12개월 누적 수익률 분위 (보유 행 전체 브레이크포인트)
func (a *Analyzer) returns(ds *s0_data.Dataset, cfg contracts.SortConfig, shift int) ([]contracts.TransitionLink, error) {
	sorted, err := a.runner.Form(ds, cfg)
	if err != nil {
		return nil, err
	}
	holdings := sorted.Holdings

	ret12, err := a.runner.Signals().Momentum().TrailingSum(holdings, s0_data.FieldReturn, ReturnWindow)
	if err != nil {
		return nil, err
	}
	engine := a.runner.Sorter().Engine()
	bp, err := engine.Compute(holdings, ret12, portfolio.QuantilePercentiles(cfg.Quantiles), nil, nil)
	if err != nil {
		return nil, err
	}
	current, err := engine.Assign(holdings, ret12, bp, portfolio.RankLabels(cfg.Quantiles), func(i int) bool {
		return s1_universe.ValidMonthly(holdings.Row(i))
	}, nil)
	if err != nil {
		return nil, err
	}
	return a.tracker.Link(holdings, current, sorted.Labels(), shift)
}

// industryAdjusted: factor / 같은 기간·산업 중앙값으로 정렬
func (a *Analyzer) industryAdjusted(ds *s0_data.Dataset, cfg contracts.SortConfig, scheme industry.Scheme, shift int) ([]contracts.TransitionLink, error) {
	values, err := a.runner.Values(ds, cfg)
	if err != nil {
		return nil, err
	}
	industries, err := industry.Assign(scheme, ds.Snapshot.Rows())
	if err != nil {
		return nil, err
	}
	ref := a.runner.Sorter().ReferenceMask(ds.Snapshot, cfg.Reference, s1_universe.PositiveDecME)
	adjusted, err := a.runner.Signals().Industry().Adjust(ds.Snapshot, values, industries, ref)
	if err != nil {
		return nil, err
	}
	// 기준 모집단 행만 버킷 배정 (NYSE_ONLY면 NYSE 종목만 전이 대상)
	for i := range adjusted {
		if !ref(i) {
			adjusted[i] = math.NaN()
		}
	}

	sorted, err := a.runner.FormValues(ds, cfg, adjusted)
	if err != nil {
		return nil, err
	}
	labels := sorted.Labels()
	return a.tracker.Link(sorted.Holdings, labels, labels, shift)
}

// perIndustry: 산업별 브레이크포인트로 정렬하고 산업마다 따로 연결
func (a *Analyzer) perIndustry(ds *s0_data.Dataset, cfg contracts.SortConfig, scheme industry.Scheme, shift int, window contracts.Window) ([]contracts.TransitionLink, map[string]contracts.TransitionMatrix, error) {
	values, err := a.runner.Values(ds, cfg)
	if err != nil {
		return nil, nil, err
	}
	industries, err := industry.Assign(scheme, ds.Snapshot.Rows())
	if err != nil {
		return nil, nil, err
	}
	names, err := industry.Industries(scheme)
	if err != nil {
		return nil, nil, err
	}

	group := func(i int) string { return industries[i] }
	labels, err := a.snapshotLabels(ds.Snapshot, values, cfg, group)
	if err != nil {
		return nil, nil, err
	}
	formed, err := ds.Snapshot.WithLabels(portfolio.LabelPortfolio, labels)
	if err != nil {
		return nil, nil, err
	}
	formed, err = formed.WithLabels(labelIndustry, industries)
	if err != nil {
		return nil, nil, err
	}

	monthly, err := a.aligner.Align(ds.Monthly, formed, nil, []string{portfolio.LabelPortfolio, labelIndustry})
	if err != nil {
		return nil, nil, err
	}
	held, _ := monthly.Labels(portfolio.LabelPortfolio)
	holdings := monthly.Filter(func(i int) bool {
		return held[i] != "" && s1_universe.Investable(monthly.Row(i))
	})
	memberOf, _ := holdings.Labels(labelIndustry)

	buckets := portfolio.RankLabels(cfg.Quantiles)
	var all []contracts.TransitionLink
	byIndustry := make(map[string]contracts.TransitionMatrix, len(names))
	for _, name := range names {
		rows := holdings.Filter(func(i int) bool { return memberOf[i] == name })
		if rows.Len() == 0 {
			continue
		}
		current, _ := rows.Labels(portfolio.LabelPortfolio)
		links, err := a.tracker.Link(rows, current, current, shift)
		if err != nil {
			return nil, nil, err
		}
		byIndustry[name] = BuildMatrix(name, links, buckets, window)
		all = append(all, links...)
	}
	return all, byIndustry, nil
}

// snapshotLabels forms rank labels on the June snapshot (optionally within groups)
func (a *Analyzer) snapshotLabels(snapshot *s0_data.Panel, values []float64, cfg contracts.SortConfig, group func(i int) string) ([]string, error) {
	base := a.runner.Sorter().ReferenceMask(snapshot, cfg.Reference, s1_universe.PositiveDecME)
	ref := func(i int) bool { return base(i) && contracts.IsFinite(values[i]) }

	engine := a.runner.Sorter().Engine()
	bp, err := engine.Compute(snapshot, values, portfolio.QuantilePercentiles(cfg.Quantiles), ref, group)
	if err != nil {
		return nil, err
	}
	return engine.Assign(snapshot, values, bp, portfolio.RankLabels(cfg.Quantiles), func(i int) bool {
		return s1_universe.ValidSnapshot(snapshot.Row(i))
	}, group)
}

// broadcast carries June labels onto monthly rows through the fiscal-year key
func (a *Analyzer) broadcast(monthly, snapshot *s0_data.Panel, name string, labels []string) ([]string, error) {
	formed, err := snapshot.WithLabels(name, labels)
	if err != nil {
		return nil, err
	}
	aligned, err := a.aligner.Align(monthly, formed, nil, []string{name})
	if err != nil {
		return nil, err
	}
	return aligned.Labels(name)
}
