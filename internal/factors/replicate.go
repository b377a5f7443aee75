package factors

import (
	"fmt"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/portfolio"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/s1_universe"
	"github.com/aidanvyas/asset-pricing-code/internal/s2_signals"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Replicated factor names (published benchmark columns)
const (
	FactorMarket = contracts.BenchmarkMarket
	FactorSMB    = "SMB"
	FactorHML    = "HML"
	FactorRMW    = "RMW"
	FactorCMA    = "CMA"
	FactorUMD    = "UMD"
)

// FactorNames lists the replicated factors in report order
func FactorNames() []string {
	return []string{FactorMarket, FactorSMB, FactorHML, FactorRMW, FactorCMA, FactorUMD}
}

const (
	dimSize   = "size"
	labelMkt  = "Mkt"
	colOP     = "OP"
	umdLook   = 12
	umdLag    = 1
	legSmall  = "S"
	legBig    = "B"
	legHigh   = "H"
	legMedium = "M"
	legLow    = "L"
)

// Replication holds the replicated factor series and the 2×3 legs behind them
type Replication struct {
	Factors []contracts.Series
	Legs    map[string]*contracts.ReturnTable // 팩터별 2×3 포트폴리오 수익률
}

// Factor returns one replicated series by name
func (r *Replication) Factor(name string) (contracts.Series, bool) {
	for _, s := range r.Factors {
		if s.Name == name {
			return s, true
		}
	}
	return contracts.Series{}, false
}

// twoByThree describes one annual size × factor sort
type twoByThree struct {
	name   string
	factor string
	sign   int // +1: H−L, −1: L−H

	// 추가 브레이크포인트 모집단 조건 (nil = 없음)
	require func(snapshot *s0_data.Panel, i int) bool
}

var annualSorts = []twoByThree{
	{
		name: FactorHML, factor: s2_signals.FactorBookToMarket, sign: 1,
		require: func(p *s0_data.Panel, i int) bool { return p.Value(s2_signals.ColBookEquity, i) > 0 },
	},
	{
		name: FactorRMW, factor: s2_signals.ColOPBE, sign: 1,
		require: func(p *s0_data.Panel, i int) bool {
			return p.Value(s2_signals.ColBookEquity, i) > 0 && contracts.IsFinite(p.Value(colOP, i))
		},
	},
	{
		name: FactorCMA, factor: s2_signals.ColAssetGrowth, sign: -1,
	},
}

// Replicator rebuilds the Fama-French factors from the processed panels
// ⭐ SSOT: Mkt-RF, SMB, HML, RMW, CMA, UMD 복제는 여기서만
type Replicator struct {
	sorter  *portfolio.Sorter
	signals *s2_signals.Builder
	logger  *logger.Logger
}

// NewReplicator creates a new replicator
func NewReplicator(log *logger.Logger) *Replicator {
	return &Replicator{
		sorter:  portfolio.NewSorter(log),
		signals: s2_signals.NewBuilder(log),
		logger:  log,
	}
}

// Replicate builds every factor inside window.
// SMB 는 HML, RMW, CMA 정렬의 small-minus-big 평균
func (r *Replicator) Replicate(ds *s0_data.Dataset, window contracts.Window) (*Replication, error) {
	start := time.Now()
	log := r.logger.WithStage(contracts.StageFactors)

	riskFree, err := ds.Benchmark.RiskFree()
	if err != nil {
		return nil, err
	}
	mkt, err := r.Market(ds.Monthly, riskFree)
	if err != nil {
		return nil, fmt.Errorf("market factor: %w", err)
	}

	out := &Replication{Legs: make(map[string]*contracts.ReturnTable)}
	out.Factors = append(out.Factors, mkt.Window(window))

	var smbLegs []contracts.Series
	var annual []contracts.Series
	for _, def := range annualSorts {
		table, err := r.Annual(ds.Monthly, ds.Snapshot, def)
		if err != nil {
			return nil, fmt.Errorf("%s factor: %w", def.name, err)
		}
		out.Legs[def.name] = table

		f, smb := legsToFactor(table, def.sign, window)
		annual = append(annual, f.Renamed(def.name))
		smbLegs = append(smbLegs, smb)
	}
	out.Factors = append(out.Factors, MeanOf(FactorSMB, smbLegs...))
	out.Factors = append(out.Factors, annual...)

	umdTable, err := r.Momentum(ds.Monthly)
	if err != nil {
		return nil, fmt.Errorf("%s factor: %w", FactorUMD, err)
	}
	out.Legs[FactorUMD] = umdTable
	umd, _ := legsToFactor(umdTable, 1, window)
	out.Factors = append(out.Factors, umd.Renamed(FactorUMD))

	for _, f := range out.Factors {
		if f.Len() == 0 || nanSeries(f) {
			log.WithField("factor", f.Name).Warn("Replicated factor has no observations in window")
		}
	}
	log.WithFields(map[string]interface{}{
		"factors": len(out.Factors),
		"start":   window.Start.Format("2006-01"),
		"end":     window.End.Format("2006-01"),
	}).Timed(start, "Replicated Fama-French factors")
	return out, nil
}

// Market returns the value-weighted return of investable common shares minus the risk-free rate
func (r *Replicator) Market(monthly *s0_data.Panel, riskFree contracts.Series) (contracts.Series, error) {
	labels := make([]string, monthly.Len())
	for i, o := range monthly.Rows() {
		if o.HasPositiveME() && s1_universe.Investable(o) {
			labels[i] = labelMkt
		}
	}
	table, err := r.sorter.Aggregator().Aggregate(monthly, labels, s0_data.FieldReturn, s0_data.FieldWeight)
	if err != nil {
		return contracts.Series{}, err
	}
	return table.Series(labelMkt).Sub(riskFree).Renamed(FactorMarket), nil
}

// Annual runs one June size × factor sort with NYSE breakpoints
func (r *Replicator) Annual(monthly, snapshot *s0_data.Panel, def twoByThree) (*contracts.ReturnTable, error) {
	values, err := r.signals.Annual(snapshot, def.factor)
	if err != nil {
		return nil, err
	}
	me, err := snapshot.Float(s0_data.FieldME)
	if err != nil {
		return nil, err
	}

	base := r.sorter.ReferenceMask(snapshot, contracts.ReferenceNYSE, s1_universe.PositiveDecME)
	ref := func(i int) bool {
		if !base(i) || !contracts.IsFinite(values[i]) {
			return false
		}
		return def.require == nil || def.require(snapshot, i)
	}

	result, err := r.sorter.SortAnnual(monthly, snapshot, sizeDimension(me, ref), valueDimension(def.factor, values, ref))
	if err != nil {
		return nil, err
	}
	return result.Table, nil
}

// Momentum runs the monthly size × momentum [12, 1] sort with NYSE breakpoints
func (r *Replicator) Momentum(monthly *s0_data.Panel) (*contracts.ReturnTable, error) {
	mom, err := r.signals.Momentum().Momentum(monthly, umdLook, umdLag)
	if err != nil {
		return nil, err
	}
	me, err := monthly.Float(s0_data.FieldME)
	if err != nil {
		return nil, err
	}

	base := r.sorter.ReferenceMask(monthly, contracts.ReferenceNYSE)
	ref := func(i int) bool { return base(i) && contracts.IsFinite(mom[i]) }

	result, err := r.sorter.SortMonthly(monthly, sizeDimension(me, ref), valueDimension(contracts.MomentumFactor, mom, ref))
	if err != nil {
		return nil, err
	}
	return result.Table, nil
}

func sizeDimension(me []float64, ref func(i int) bool) portfolio.Dimension {
	return portfolio.Dimension{
		Name:        dimSize,
		Values:      me,
		Percentiles: portfolio.SizePercentiles,
		Labels:      portfolio.SizeLabels,
		Reference:   ref,
	}
}

func valueDimension(name string, values []float64, ref func(i int) bool) portfolio.Dimension {
	return portfolio.Dimension{
		Name:        name,
		Values:      values,
		Percentiles: portfolio.ValuePercentiles,
		Labels:      portfolio.ValueLabels,
		Reference:   ref,
	}
}

// legsToFactor turns 2×3 portfolio returns into the factor and its small-minus-big leg.
// factor = sign·((SH+BH)/2 − (SL+BL)/2), smb = (SH+SM+SL)/3 − (BH+BM+BL)/3
func legsToFactor(table *contracts.ReturnTable, sign int, window contracts.Window) (factor, smb contracts.Series) {
	high := Average(table, []string{legSmall + legHigh, legBig + legHigh}, window)
	low := Average(table, []string{legSmall + legLow, legBig + legLow}, window)
	if sign < 0 {
		high, low = low, high
	}
	factor = high.Sub(low)

	small := Average(table, []string{legSmall + legHigh, legSmall + legMedium, legSmall + legLow}, window)
	big := Average(table, []string{legBig + legHigh, legBig + legMedium, legBig + legLow}, window)
	return factor, small.Sub(big)
}
