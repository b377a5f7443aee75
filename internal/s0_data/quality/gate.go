package quality

import (
	"sort"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Coverage items
const (
	ItemReturn       = "return"        // 월별 retadj 유한값
	ItemMarketEquity = "market_equity" // 월별 me > 0
	ItemWeight       = "weight"        // 월별 wt > 0 (첫 등장 제외)
	ItemDecME        = "dec_me"        // 스냅샷 dec_me > 0
	ItemBookEquity   = "book_equity"   // 스냅샷 BE 유한값
	ItemBenchmark    = "benchmark"     // 패널 월 중 RF, Mkt-RF 가 있는 비율
)

// columnBE is the Compustat book equity column of the snapshot
const columnBE = "BE"

// Gate validates input coverage before any sort runs
type Gate struct {
	config Config
	logger *logger.Logger
}

// Config holds minimum coverage per item
type Config struct {
	MinReturnCoverage       float64 `yaml:"min_return_coverage"`
	MinMarketEquityCoverage float64 `yaml:"min_market_equity_coverage"`
	MinWeightCoverage       float64 `yaml:"min_weight_coverage"`
	MinDecMECoverage        float64 `yaml:"min_dec_me_coverage"`
	MinBookCoverage         float64 `yaml:"min_book_coverage"`
	MinBenchmarkCoverage    float64 `yaml:"min_benchmark_coverage"`
}

// DefaultConfig returns thresholds that processed WRDS extracts meet
func DefaultConfig() Config {
	return Config{
		MinReturnCoverage:       0.95,
		MinMarketEquityCoverage: 0.95,
		MinWeightCoverage:       0.90,
		MinDecMECoverage:        0.80,
		MinBookCoverage:         0.60,
		MinBenchmarkCoverage:    0.95,
	}
}

// NewGate creates a new Gate instance
func NewGate(log *logger.Logger, config Config) *Gate {
	return &Gate{config: config, logger: log}
}

// Check measures coverage of a loaded dataset inside window
// ⭐ SSOT: S0 → S1 품질 검증
func (g *Gate) Check(ds *s0_data.Dataset, window contracts.Window) *contracts.DataQualitySnapshot {
	monthly := ds.Monthly.Filter(func(i int) bool { return window.Contains(ds.Monthly.Row(i).Date) })
	snapshot := &contracts.DataQualitySnapshot{
		MonthlyRows: monthly.Len(),
		Entities:    len(monthly.Entities()),
		Coverage:    make(map[string]float64),
	}
	if periods := monthly.Periods(); len(periods) > 0 {
		snapshot.Start = periods[0]
		snapshot.End = periods[len(periods)-1]
	}

	var returned, positiveME, weighted, seen int
	for _, o := range monthly.Rows() {
		if contracts.IsFinite(o.Return) {
			returned++
		}
		if o.HasPositiveME() {
			positiveME++
		}
		// 첫 등장 월은 wt 가 정의되지 않음
		if o.Count >= 1 {
			seen++
			if o.Weight > 0 {
				weighted++
			}
		}
	}
	snapshot.Coverage[ItemReturn] = ratio(returned, monthly.Len())
	snapshot.Coverage[ItemMarketEquity] = ratio(positiveME, monthly.Len())
	snapshot.Coverage[ItemWeight] = ratio(weighted, seen)

	if ds.Snapshot != nil {
		snapshot.SnapshotRows = ds.Snapshot.Len()
		var dec, book int
		for i, o := range ds.Snapshot.Rows() {
			if o.DecME > 0 {
				dec++
			}
			if contracts.IsFinite(ds.Snapshot.Value(columnBE, i)) {
				book++
			}
		}
		snapshot.Coverage[ItemDecME] = ratio(dec, ds.Snapshot.Len())
		snapshot.Coverage[ItemBookEquity] = ratio(book, ds.Snapshot.Len())
	}
	snapshot.Coverage[ItemBenchmark] = benchmarkCoverage(monthly, ds.Benchmark)

	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Failures = g.failures(snapshot.Coverage)
	snapshot.Passed = len(snapshot.Failures) == 0

	log := g.logger.WithStage(contracts.StageData).WithFields(map[string]interface{}{
		"monthly_rows":  snapshot.MonthlyRows,
		"snapshot_rows": snapshot.SnapshotRows,
		"entities":      snapshot.Entities,
		"score":         snapshot.QualityScore,
	})
	if snapshot.Passed {
		log.Info("Data quality gate passed")
	} else {
		log.WithField("failures", snapshot.Failures).Warn("Data quality gate failed")
	}
	return snapshot
}

// benchmarkCoverage is the share of panel months with both RF and Mkt-RF
func benchmarkCoverage(monthly *s0_data.Panel, bench *contracts.Benchmark) float64 {
	periods := monthly.Periods()
	if bench == nil || len(periods) == 0 {
		return 0
	}
	rf, err := bench.RiskFree()
	if err != nil {
		return 0
	}
	mkt, err := bench.MarketExcess()
	if err != nil {
		return 0
	}
	rfm, mktm := rf.ByMonth(), mkt.ByMonth()

	covered := 0
	for _, d := range periods {
		m := contracts.MonthIndex(d)
		if _, ok := rfm[m]; !ok {
			continue
		}
		if _, ok := mktm[m]; ok {
			covered++
		}
	}
	return ratio(covered, len(periods))
}

// calculateScore calculates overall quality score using weighted average
func (g *Gate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		ItemReturn:       0.30, // 수익률 필수
		ItemMarketEquity: 0.20, // 가치가중
		ItemWeight:       0.15,
		ItemDecME:        0.15, // 연간 비율 팩터 분모
		ItemBookEquity:   0.10,
		ItemBenchmark:    0.10, // 초과수익, CAPM
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}

// failures lists the items below their configured minimum, sorted by name
func (g *Gate) failures(coverage map[string]float64) []string {
	minimums := map[string]float64{
		ItemReturn:       g.config.MinReturnCoverage,
		ItemMarketEquity: g.config.MinMarketEquityCoverage,
		ItemWeight:       g.config.MinWeightCoverage,
		ItemDecME:        g.config.MinDecMECoverage,
		ItemBookEquity:   g.config.MinBookCoverage,
		ItemBenchmark:    g.config.MinBenchmarkCoverage,
	}

	var out []string
	for key, floor := range minimums {
		if cov, ok := coverage[key]; ok && cov < floor {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// ratio returns n/d, 0 when d == 0
func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
