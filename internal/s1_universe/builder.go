package s1_universe

import (
	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Rule is one named universe criterion
type Rule struct {
	Name string
	Keep func(o contracts.Observation) bool
}

// 기본 규칙
var (
	// CommonShare keeps SHRCD 10/11
	CommonShare = Rule{Name: "비보통주", Keep: contracts.Observation.IsCommonShare}

	// PositiveME keeps me > 0
	PositiveME = Rule{Name: "시가총액 없음", Keep: contracts.Observation.HasPositiveME}

	// PositiveDecME keeps dec_me > 0 (June snapshots)
	PositiveDecME = Rule{Name: "12월 시가총액 없음", Keep: func(o contracts.Observation) bool { return o.DecME > 0 }}

	// SeenBefore keeps rows with at least one prior appearance (count >= 1)
	SeenBefore = Rule{Name: "첫 등장", Keep: func(o contracts.Observation) bool { return o.Count >= 1 }}

	// PositiveWeight keeps wt > 0
	PositiveWeight = Rule{Name: "가중치 없음", Keep: func(o contracts.Observation) bool { return o.Weight > 0 }}

	// NYSE keeps EXCHCD == 1
	NYSE = Rule{Name: "비 NYSE", Keep: func(o contracts.Observation) bool { return o.ExchangeCode == contracts.ExchangeNYSE }}
)

// ValidSnapshot reports the June eligibility check: me > 0, dec_me > 0, count >= 1
func ValidSnapshot(o contracts.Observation) bool {
	return o.HasPositiveME() && o.DecME > 0 && o.Count >= 1
}

// ValidMonthly reports the monthly eligibility check: me > 0, count >= 1
func ValidMonthly(o contracts.Observation) bool {
	return o.HasPositiveME() && o.Count >= 1
}

// Investable reports whether a row can enter a value-weighted portfolio
func Investable(o contracts.Observation) bool {
	return o.Weight > 0 && o.IsCommonShare()
}

// InReference reports membership of the breakpoint reference universe
func InReference(o contracts.Observation, ref contracts.ReferenceUniverse) bool {
	if ref == contracts.ReferenceNYSE {
		return o.ExchangeCode == contracts.ExchangeNYSE
	}
	return true
}

// ReferenceRules returns the breakpoint population rules for a reference universe
// me > 0, count >= 1, 보통주, (NYSE_ONLY 이면 EXCHCD == 1)
func ReferenceRules(ref contracts.ReferenceUniverse) []Rule {
	rules := []Rule{PositiveME, SeenBefore, CommonShare}
	if ref == contracts.ReferenceNYSE {
		rules = append(rules, NYSE)
	}
	return rules
}

// Builder applies universe rules to a panel
// ⭐ SSOT: S1 유니버스 필터는 여기서만
type Builder struct {
	logger *logger.Logger
}

// NewBuilder creates a new universe builder
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{logger: log}
}

// Mask evaluates the rules per row; the first failing rule is recorded as the reason
func (b *Builder) Mask(panel *s0_data.Panel, name string, rules ...Rule) ([]bool, contracts.UniverseStats) {
	stats := contracts.UniverseStats{
		Name:     name,
		Total:    panel.Len(),
		Excluded: make(map[string]int),
	}
	mask := make([]bool, panel.Len())
	for i, o := range panel.Rows() {
		if reason := checkExclusion(o, rules); reason != "" {
			stats.Excluded[reason]++
			continue
		}
		mask[i] = true
		stats.Kept++
	}
	return mask, stats
}

// Build returns the rows passing every rule
func (b *Builder) Build(panel *s0_data.Panel, name string, rules ...Rule) (*s0_data.Panel, contracts.UniverseStats) {
	mask, stats := b.Mask(panel, name, rules...)
	out := panel.Filter(func(i int) bool { return mask[i] })

	b.logger.WithStage(contracts.StageUniverse).WithFields(map[string]interface{}{
		"universe": name,
		"total":    stats.Total,
		"kept":     stats.Kept,
		"excluded": stats.Excluded,
	}).Debug("Built universe")

	return out, stats
}

// checkExclusion returns the first failing rule name, "" when the row passes
func checkExclusion(o contracts.Observation, rules []Rule) string {
	for _, r := range rules {
		if !r.Keep(o) {
			return r.Name
		}
	}
	return ""
}
