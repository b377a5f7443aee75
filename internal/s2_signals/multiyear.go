package s2_signals

import (
	"fmt"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
)

// DefaultMultiYearSpan is the number of prior annual values averaged
const DefaultMultiYearSpan = 5

// MultiYearAverage returns, per entity of an annual panel, the mean of the
// finite values in the `span` preceding rows (current row excluded).
// 유한 값이 하나도 없으면 NaN
func MultiYearAverage(panel *s0_data.Panel, values []float64, span int) ([]float64, error) {
	if span < 1 {
		return nil, fmt.Errorf("%w: multi-year span must be positive, got %d", contracts.ErrInvalidConfig, span)
	}
	if len(values) != panel.Len() {
		return nil, fmt.Errorf("multi-year average: %w", contracts.ErrLengthMismatch)
	}

	out := nanSlice(panel.Len())
	for _, idx := range panel.ByEntity() {
		for pos, i := range idx {
			sum, n := 0.0, 0
			for lag := 1; lag <= span && pos-lag >= 0; lag++ {
				v := values[idx[pos-lag]]
				if contracts.IsFinite(v) {
					sum += v
					n++
				}
			}
			if n > 0 {
				out[i] = sum / float64(n)
			}
		}
	}
	return out, nil
}
