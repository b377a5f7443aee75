package s2_signals

import (
	"fmt"
	"math"

	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// ME scaling: Compustat 항목(백만 달러) 대비 CRSP 시가총액(천 달러)
const marketScale = 1000

// Fundamental column names of the June snapshot
const (
	ColBookEquity  = "BE"
	ColOPBE        = "OP_BE"
	ColAssetGrowth = "AT_GR1"
)

// ValueCalculator builds ratio factors from June snapshot columns
// ⭐ SSOT: 가치/비율 팩터 계산은 여기서만
type ValueCalculator struct {
	logger *logger.Logger
}

// NewValueCalculator creates a new value calculator
func NewValueCalculator(log *logger.Logger) *ValueCalculator {
	return &ValueCalculator{
		logger: log,
	}
}

// Ratio returns scale·num/den row by row; 0 분모는 ±Inf (브레이크포인트에서 제외)
func Ratio(num, den []float64, scale float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		out[i] = scale * num[i] / den[i]
	}
	return out
}

// BookToMarket returns BE·1000 / dec_me
func (c *ValueCalculator) BookToMarket(panel *s0_data.Panel) ([]float64, error) {
	return c.MarketRatio(panel, ColBookEquity)
}

// MarketRatio returns column·1000 / dec_me (e.g. NI_ME, OCF_ME)
func (c *ValueCalculator) MarketRatio(panel *s0_data.Panel, numerator string) ([]float64, error) {
	num, err := panel.Float(numerator)
	if err != nil {
		return nil, fmt.Errorf("market ratio: %w", err)
	}
	den, _ := panel.Float(s0_data.FieldDecME)
	return c.logged(numerator+"_ME", Ratio(num, den, marketScale)), nil
}

// BookRatio returns column / BE (e.g. revt_BE)
func (c *ValueCalculator) BookRatio(panel *s0_data.Panel, numerator string) ([]float64, error) {
	num, err := panel.Float(numerator)
	if err != nil {
		return nil, fmt.Errorf("book ratio: %w", err)
	}
	den, err := panel.Float(ColBookEquity)
	if err != nil {
		return nil, fmt.Errorf("book ratio: %w", err)
	}
	return c.logged(numerator+"_BE", Ratio(num, den, 1)), nil
}

// LogDecME returns ln(dec_me); 비양수는 NaN
func (c *ValueCalculator) LogDecME(panel *s0_data.Panel) []float64 {
	out := make([]float64, panel.Len())
	for i, o := range panel.Rows() {
		if o.DecME > 0 {
			out[i] = math.Log(o.DecME)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func (c *ValueCalculator) logged(name string, values []float64) []float64 {
	missing, infinite := 0, 0
	for _, v := range values {
		switch {
		case math.IsNaN(v):
			missing++
		case math.IsInf(v, 0):
			infinite++
		}
	}
	c.logger.WithFields(map[string]interface{}{
		"factor":   name,
		"rows":     len(values),
		"missing":  missing,
		"infinite": infinite,
	}).Debug("Calculated ratio factor")
	return values
}
