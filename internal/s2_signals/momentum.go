package s2_signals

import (
	"fmt"
	"math"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// MomentumCalculator calculates return-history signals on the monthly panel
// ⭐ SSOT: 모멘텀 시그널 계산은 여기서만
type MomentumCalculator struct {
	logger *logger.Logger
}

// NewMomentumCalculator creates a new momentum calculator
func NewMomentumCalculator(log *logger.Logger) *MomentumCalculator {
	return &MomentumCalculator{
		logger: log,
	}
}

// Momentum returns the mean of retadj over rows [t-lookback, t-lag-1] of each entity.
// 엔티티 내부 행 기준 shift(lag+1) 후 (lookback-lag) 창의 평균, 창이 다 차지 않으면 NaN
func (c *MomentumCalculator) Momentum(panel *s0_data.Panel, lookback, lag int) ([]float64, error) {
	return c.MomentumOf(panel, s0_data.FieldReturn, lookback, lag)
}

// MomentumOf is Momentum over an arbitrary return column
func (c *MomentumCalculator) MomentumOf(panel *s0_data.Panel, column string, lookback, lag int) ([]float64, error) {
	if lag < 0 || lookback <= lag {
		return nil, fmt.Errorf("%w: momentum needs lookback > lag >= 0, got [%d, %d]", contracts.ErrInvalidConfig, lookback, lag)
	}
	returns, err := panel.Float(column)
	if err != nil {
		return nil, fmt.Errorf("momentum: %w", err)
	}
	window := lookback - lag
	shift := lag + 1

	out := nanSlice(panel.Len())
	for _, idx := range panel.ByEntity() {
		for pos, i := range idx {
			end := pos - shift // 창의 마지막 행
			start := end - window + 1
			if start < 0 {
				continue
			}
			out[i] = windowMean(returns, idx[start:end+1])
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"column":   column,
		"lookback": lookback,
		"lag":      lag,
		"rows":     panel.Len(),
		"filled":   countFinite(out),
	}).Debug("Calculated momentum")

	return out, nil
}

// TrailingSum returns the sum of column over each entity's last `window` rows (current row included)
func (c *MomentumCalculator) TrailingSum(panel *s0_data.Panel, column string, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", contracts.ErrInvalidConfig, window)
	}
	values, err := panel.Float(column)
	if err != nil {
		return nil, fmt.Errorf("trailing sum: %w", err)
	}

	out := nanSlice(panel.Len())
	for _, idx := range panel.ByEntity() {
		for pos, i := range idx {
			start := pos - window + 1
			if start < 0 {
				continue
			}
			mean := windowMean(values, idx[start:pos+1])
			out[i] = mean * float64(window)
		}
	}
	return out, nil
}

// windowMean averages values at idx; any missing value gives NaN
func windowMean(values []float64, idx []int) float64 {
	sum := 0.0
	for _, i := range idx {
		if math.IsNaN(values[i]) {
			return math.NaN()
		}
		sum += values[i]
	}
	return sum / float64(len(idx))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func countFinite(xs []float64) int {
	n := 0
	for _, x := range xs {
		if contracts.IsFinite(x) {
			n++
		}
	}
	return n
}
