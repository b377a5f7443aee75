package s2_signals

import (
	"fmt"
	"strings"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Derived factor names
const (
	FactorBookToMarket = "BE_ME"
	FactorLogDecME     = "LOG_DEC_ME"
	FactorInvestment   = "INVESTMENT"
)

// Builder resolves factor names to column values
// ⭐ SSOT: 팩터 이름 → 값 해석은 여기서만
type Builder struct {
	momentum *MomentumCalculator
	value    *ValueCalculator
	industry *IndustryAdjuster

	logger *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{
		momentum: NewMomentumCalculator(log),
		value:    NewValueCalculator(log),
		industry: NewIndustryAdjuster(log),
		logger:   log,
	}
}

// Momentum returns the momentum calculator
func (b *Builder) Momentum() *MomentumCalculator {
	return b.momentum
}

// Industry returns the industry adjuster
func (b *Builder) Industry() *IndustryAdjuster {
	return b.industry
}

// Annual resolves an annual factor on the June snapshot.
// 해석 순서:
//  1. 파생 팩터 (BE_ME, LOG_DEC_ME, INVESTMENT)
//  2. 스냅샷에 있는 컬럼
//  3. X_ME → X·1000/dec_me, X_BE → X/BE
func (b *Builder) Annual(snapshot *s0_data.Panel, name string) ([]float64, error) {
	start := time.Now()
	values, err := b.resolve(snapshot, name)
	if err != nil {
		return nil, err
	}
	b.logger.WithStage(contracts.StageSignals).WithFields(map[string]interface{}{
		"factor": name,
		"rows":   snapshot.Len(),
		"finite": countFinite(values),
	}).Timed(start, "Resolved annual factor")
	return values, nil
}

func (b *Builder) resolve(snapshot *s0_data.Panel, name string) ([]float64, error) {
	switch name {
	case FactorBookToMarket:
		if !snapshot.HasColumn(ColBookEquity) && snapshot.HasColumn(name) {
			return snapshot.Float(name)
		}
		return b.value.BookToMarket(snapshot)
	case FactorLogDecME:
		return b.value.LogDecME(snapshot), nil
	case FactorInvestment:
		// 스냅샷에 INVESTMENT 가 없으면 총자산 성장률로 대체
		if snapshot.HasColumn(name) {
			return snapshot.Float(name)
		}
		if snapshot.HasColumn(ColAssetGrowth) {
			return snapshot.Float(ColAssetGrowth)
		}
	case contracts.MomentumFactor:
		return nil, fmt.Errorf("%w: %s is a monthly signal", contracts.ErrUnknownFactor, name)
	}

	if snapshot.HasColumn(name) {
		return snapshot.Float(name)
	}
	if base, ok := strings.CutSuffix(name, "_ME"); ok && snapshot.HasColumn(base) {
		return b.value.MarketRatio(snapshot, base)
	}
	if base, ok := strings.CutSuffix(name, "_BE"); ok && snapshot.HasColumn(base) && snapshot.HasColumn(ColBookEquity) {
		return b.value.BookRatio(snapshot, base)
	}
	return nil, fmt.Errorf("%w: %q", contracts.ErrUnknownFactor, name)
}

// Monthly resolves the momentum signal of a sort configuration on the monthly panel
func (b *Builder) Monthly(monthly *s0_data.Panel, cfg contracts.SortConfig) ([]float64, error) {
	if !cfg.IsMomentum() {
		return nil, fmt.Errorf("%w: %q is not a monthly signal", contracts.ErrUnknownFactor, cfg.Factor)
	}
	return b.momentum.Momentum(monthly, cfg.LookbackPeriod, cfg.Lag)
}
