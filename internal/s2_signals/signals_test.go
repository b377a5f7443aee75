package s2_signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

func monthEnd(year int, month time.Month) time.Time {
	return contracts.ToMonthEnd(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// returnsPanel builds one entity with the given monthly returns starting Jan 2000
func returnsPanel(entity int64, returns ...float64) []contracts.Observation {
	rows := make([]contracts.Observation, len(returns))
	for i, r := range returns {
		rows[i] = contracts.Observation{Entity: entity, Date: monthEnd(2000, time.Month(i+1)), Return: r}
	}
	return rows
}

func TestMomentumCalculator_Momentum(t *testing.T) {
	rows := returnsPanel(1, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06)
	panel := s0_data.NewPanel(rows)
	c := NewMomentumCalculator(logger.Nop())

	// [3, 1]: 직전 1개월 건너뛰고 2개월 평균
	mom, err := c.Momentum(panel, 3, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(mom[i]), "row %d has no full window", i)
	}
	assert.InDelta(t, (0.01+0.02)/2, mom[3], 1e-12)
	assert.InDelta(t, (0.02+0.03)/2, mom[4], 1e-12)
	assert.InDelta(t, (0.03+0.04)/2, mom[5], 1e-12)

	_, err = c.Momentum(panel, 1, 1)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
	_, err = c.Momentum(panel, 3, -1)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestMomentumCalculator_MomentumOf(t *testing.T) {
	panel, err := s0_data.NewPanel(returnsPanel(1, 0.01, 0.02, 0.03)).WithColumn("ret_ex", []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	c := NewMomentumCalculator(logger.Nop())

	mom, err := c.MomentumOf(panel, "ret_ex", 2, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, mom[2], 1e-12)

	_, err = c.MomentumOf(panel, "missing", 2, 1)
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)
}

func TestMomentumCalculator_PerEntityAndMissing(t *testing.T) {
	rows := append(returnsPanel(1, 0.01, math.NaN(), 0.03, 0.04), returnsPanel(2, 0.10, 0.20)...)
	panel := s0_data.NewPanel(rows)
	c := NewMomentumCalculator(logger.Nop())

	mom, err := c.Momentum(panel, 2, 0)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(mom[2]), "window holds a missing return")
	assert.True(t, math.IsNaN(mom[3]), "window holds a missing return")
	assert.True(t, math.IsNaN(mom[4]))
	assert.True(t, math.IsNaN(mom[5]), "entity 2 never borrows entity 1 history")
}

func TestMomentumCalculator_TrailingSum(t *testing.T) {
	panel := s0_data.NewPanel(returnsPanel(1, 0.01, 0.02, 0.03, 0.04))
	c := NewMomentumCalculator(logger.Nop())

	sum, err := c.TrailingSum(panel, s0_data.FieldReturn, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(sum[1]))
	assert.InDelta(t, 0.06, sum[2], 1e-12)
	assert.InDelta(t, 0.09, sum[3], 1e-12)

	_, err = c.TrailingSum(panel, "nope", 3)
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)
	_, err = c.TrailingSum(panel, s0_data.FieldReturn, 0)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestIndustryAdjuster_Adjust(t *testing.T) {
	june := monthEnd(2001, 6)
	rows := []contracts.Observation{
		{Entity: 1, Date: june, ExchangeCode: 1},
		{Entity: 2, Date: june, ExchangeCode: 1},
		{Entity: 3, Date: june, ExchangeCode: 1},
		{Entity: 4, Date: june, ExchangeCode: 3},
		{Entity: 5, Date: june, ExchangeCode: 1},
		{Entity: 6, Date: june, ExchangeCode: 1},
	}
	panel := s0_data.NewPanel(rows)
	values := []float64{1, 2, 3, 100, 0, 5}
	industries := []string{"Hlth", "Hlth", "Hlth", "Hlth", "Money", "Other"}
	nyse := func(i int) bool { return rows[i].ExchangeCode == contracts.ExchangeNYSE }

	adj, err := NewIndustryAdjuster(logger.Nop()).Adjust(panel, values, industries, nyse)
	require.NoError(t, err)

	// Hlth NYSE 중앙값 = 2
	assert.InDelta(t, 0.5, adj[0], 1e-12)
	assert.InDelta(t, 1.5, adj[2], 1e-12)
	assert.InDelta(t, 50, adj[3], 1e-12, "non-reference rows are adjusted by the reference median")
	assert.True(t, math.IsNaN(adj[4]), "zero median is dropped")
	assert.InDelta(t, 1, adj[5], 1e-12)

	_, err = NewIndustryAdjuster(logger.Nop()).Adjust(panel, values[:2], industries, nil)
	assert.ErrorIs(t, err, contracts.ErrLengthMismatch)
}

func TestMultiYearAverage(t *testing.T) {
	var rows []contracts.Observation
	for y := 2000; y <= 2006; y++ {
		rows = append(rows, contracts.Observation{Entity: 1, Date: monthEnd(y, 6)})
	}
	panel := s0_data.NewPanel(rows)
	values := []float64{1, 2, math.Inf(1), 4, 5, 6, 7}

	avg, err := MultiYearAverage(panel, values, DefaultMultiYearSpan)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(avg[0]), "no prior years")
	assert.InDelta(t, 1, avg[1], 1e-12)
	assert.InDelta(t, 1.5, avg[3], 1e-12, "infinite prior value skipped")
	assert.InDelta(t, (2+4+5+6)/4.0, avg[6], 1e-12, "only the five preceding years")

	_, err = MultiYearAverage(panel, values, 0)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestBuilder_Annual(t *testing.T) {
	june := monthEnd(2001, 6)
	panel := s0_data.NewPanel([]contracts.Observation{
		{Entity: 1, Date: june, DecME: 2000},
		{Entity: 2, Date: june, DecME: 0},
	})
	panel, err := panel.WithColumn(ColBookEquity, []float64{4, 1})
	require.NoError(t, err)
	panel, err = panel.WithColumn(ColAssetGrowth, []float64{0.1, 0.2})
	require.NoError(t, err)
	panel, err = panel.WithColumn("NI", []float64{1, 1})
	require.NoError(t, err)

	b := NewBuilder(logger.Nop())

	tests := []struct {
		name string
		want []float64
	}{
		{FactorBookToMarket, []float64{2, math.Inf(1)}},
		{FactorInvestment, []float64{0.1, 0.2}},
		{"NI_ME", []float64{0.5, math.Inf(1)}},
		{"NI_BE", []float64{0.25, 1}},
		{ColAssetGrowth, []float64{0.1, 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Annual(panel, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	logME, err := b.Annual(panel, FactorLogDecME)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(2000), logME[0], 1e-12)
	assert.True(t, math.IsNaN(logME[1]))

	_, err = b.Annual(panel, "UNKNOWN")
	assert.ErrorIs(t, err, contracts.ErrUnknownFactor)
	_, err = b.Annual(panel, contracts.MomentumFactor)
	assert.ErrorIs(t, err, contracts.ErrUnknownFactor)
}

func TestBuilder_Monthly(t *testing.T) {
	panel := s0_data.NewPanel(returnsPanel(1, 0.01, 0.02, 0.03))
	b := NewBuilder(logger.Nop())

	mom, err := b.Monthly(panel, contracts.SortConfig{Factor: contracts.MomentumFactor, LookbackPeriod: 2, Lag: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.01, mom[2], 1e-12)

	_, err = b.Monthly(panel, contracts.SortConfig{Factor: "BE_ME"})
	assert.ErrorIs(t, err, contracts.ErrUnknownFactor)
}
