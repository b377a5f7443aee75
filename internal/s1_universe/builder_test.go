package s1_universe

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

func TestValidSnapshot(t *testing.T) {
	tests := []struct {
		name string
		obs  contracts.Observation
		want bool
	}{
		{"valid", contracts.Observation{MarketEquity: 10, DecME: 9, Count: 1}, true},
		{"first appearance", contracts.Observation{MarketEquity: 10, DecME: 9, Count: 0}, false},
		{"missing december", contracts.Observation{MarketEquity: 10, DecME: math.NaN(), Count: 3}, false},
		{"zero june", contracts.Observation{MarketEquity: 0, DecME: 9, Count: 3}, false},
		{"nan june", contracts.Observation{MarketEquity: math.NaN(), DecME: 9, Count: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSnapshot(tt.obs))
		})
	}
}

func TestInReference(t *testing.T) {
	nyse := contracts.Observation{ExchangeCode: contracts.ExchangeNYSE}
	nasdaq := contracts.Observation{ExchangeCode: contracts.ExchangeNASDAQ}

	assert.True(t, InReference(nyse, contracts.ReferenceAll))
	assert.True(t, InReference(nasdaq, contracts.ReferenceAll))
	assert.True(t, InReference(nyse, contracts.ReferenceNYSE))
	assert.False(t, InReference(nasdaq, contracts.ReferenceNYSE))
}

func TestBuilder_Build(t *testing.T) {
	date := time.Date(2001, 6, 30, 0, 0, 0, 0, time.UTC)
	panel := s0_data.NewPanel([]contracts.Observation{
		{Entity: 1, Date: date, MarketEquity: 10, Count: 1, ShareCode: 10, ExchangeCode: 1},
		{Entity: 2, Date: date, MarketEquity: 10, Count: 1, ShareCode: 11, ExchangeCode: 3},
		{Entity: 3, Date: date, MarketEquity: 10, Count: 0, ShareCode: 10, ExchangeCode: 1},
		{Entity: 4, Date: date, MarketEquity: 10, Count: 2, ShareCode: 73, ExchangeCode: 1},
		{Entity: 5, Date: date, MarketEquity: -1, Count: 2, ShareCode: 10, ExchangeCode: 1},
	})
	b := NewBuilder(logger.Nop())

	all, stats := b.Build(panel, "all", ReferenceRules(contracts.ReferenceAll)...)
	assert.Equal(t, 2, all.Len())
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 3, stats.ExcludedCount())
	assert.Equal(t, 1, stats.Excluded[SeenBefore.Name])
	assert.Equal(t, 1, stats.Excluded[CommonShare.Name])
	assert.Equal(t, 1, stats.Excluded[PositiveME.Name])

	nyse, stats := b.Build(panel, "nyse", ReferenceRules(contracts.ReferenceNYSE)...)
	assert.Equal(t, 1, nyse.Len())
	assert.Equal(t, int64(1), nyse.Row(0).Entity)
	assert.Equal(t, 1, stats.Excluded[NYSE.Name])
	assert.InDelta(t, 0.2, stats.Coverage(), 1e-12)
}
