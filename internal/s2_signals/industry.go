package s2_signals

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// IndustryAdjuster divides a factor by its per-(period, industry) median
// ⭐ SSOT: 산업 조정 팩터 계산은 여기서만
type IndustryAdjuster struct {
	logger *logger.Logger
}

// NewIndustryAdjuster creates a new industry adjuster
func NewIndustryAdjuster(log *logger.Logger) *IndustryAdjuster {
	return &IndustryAdjuster{
		logger: log,
	}
}

type industryKey struct {
	month    int
	industry string
}

// Adjust returns value / median(value of reference rows in the same period and industry).
// 중앙값은 reference 모집단의 유한 값으로만 계산, 결과가 유한하지 않으면 NaN
func (a *IndustryAdjuster) Adjust(panel *s0_data.Panel, values []float64, industries []string, reference func(i int) bool) ([]float64, error) {
	if len(values) != panel.Len() || len(industries) != panel.Len() {
		return nil, fmt.Errorf("industry adjust: %w", contracts.ErrLengthMismatch)
	}

	populations := make(map[industryKey][]float64)
	for i, o := range panel.Rows() {
		if industries[i] == "" || !contracts.IsFinite(values[i]) {
			continue
		}
		if reference != nil && !reference(i) {
			continue
		}
		k := industryKey{contracts.MonthIndex(o.Date), industries[i]}
		populations[k] = append(populations[k], values[i])
	}

	medians := make(map[industryKey]float64, len(populations))
	for k, pop := range populations {
		m, err := stats.Median(pop)
		if err != nil {
			continue
		}
		medians[k] = m
	}

	out := nanSlice(panel.Len())
	dropped := 0
	for i, o := range panel.Rows() {
		m, ok := medians[industryKey{contracts.MonthIndex(o.Date), industries[i]}]
		if !ok || math.IsNaN(values[i]) {
			continue
		}
		adj := values[i] / m
		if !contracts.IsFinite(adj) {
			dropped++ // 0 중앙값 또는 무한 팩터
			continue
		}
		out[i] = adj
	}

	log := a.logger.WithFields(map[string]interface{}{
		"groups":   len(medians),
		"rows":     panel.Len(),
		"adjusted": countFinite(out),
		"dropped":  dropped,
	})
	if dropped > 0 {
		// 중앙값 0인 소형 산업 코호트가 빠짐 (해당 기간 편향 가능)
		log.Warn("Industry-adjusted factor dropped non-finite ratios")
	} else {
		log.Debug("Industry-adjusted factor")
	}

	return out, nil
}
