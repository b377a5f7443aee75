package factors

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

var (
	june2000 = time.Date(2000, 6, 30, 0, 0, 0, 0, time.UTC)
	july2000 = time.Date(2000, 7, 31, 0, 0, 0, 0, time.UTC)
	aug2000  = time.Date(2000, 8, 31, 0, 0, 0, 0, time.UTC)
)

func sampleTable() *contracts.ReturnTable {
	return contracts.NewReturnTable(
		contracts.PortfolioReturn{Date: july2000, Label: "1", Return: 0.01},
		contracts.PortfolioReturn{Date: july2000, Label: "2", Return: 0.03},
		contracts.PortfolioReturn{Date: july2000, Label: "3", Return: 0.06},
		contracts.PortfolioReturn{Date: aug2000, Label: "1", Return: -0.02},
		contracts.PortfolioReturn{Date: aug2000, Label: "3", Return: 0.01},
	)
}

func TestCombine(t *testing.T) {
	table := sampleTable()

	long, err := Combine(table, "3", "1", 1, contracts.Window{})
	require.NoError(t, err)
	short, err := Combine(table, "3", "1", -1, contracts.Window{})
	require.NoError(t, err)

	require.Equal(t, 2, long.Len())
	assert.InDelta(t, 0.05, long.Values[0], 1e-12)
	assert.InDelta(t, 0.03, long.Values[1], 1e-12)
	for i := range long.Values {
		assert.Equal(t, long.Values[i], -short.Values[i])
	}

	// 구간 밖 기간 제외
	july, err := Combine(table, "3", "1", 1, contracts.Window{Start: july2000, End: july2000})
	require.NoError(t, err)
	assert.Equal(t, 1, july.Len())

	// 한쪽 라벨이 없는 기간은 NaN
	gap, err := Combine(table, "2", "1", 1, contracts.Window{})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(gap.Values[1]))
}

func TestCombine_InvalidConfig(t *testing.T) {
	table := sampleTable()

	_, err := Combine(table, "3", "1", 0, contracts.Window{})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	_, err = Combine(table, "1", "1", 1, contracts.Window{})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestAverageAndMeanOf(t *testing.T) {
	table := sampleTable()

	avg := Average(table, []string{"1", "3"}, contracts.Window{})
	assert.InDelta(t, 0.035, avg.Values[0], 1e-12)
	assert.InDelta(t, -0.005, avg.Values[1], 1e-12)

	withGap := Average(table, []string{"1", "2"}, contracts.Window{})
	assert.True(t, math.IsNaN(withGap.Values[1]))

	a := contracts.Series{Dates: []time.Time{july2000, aug2000}, Values: []float64{0.01, 0.02}}
	b := contracts.Series{Dates: []time.Time{july2000}, Values: []float64{0.03}}
	mean := MeanOf("SMB", a, b)
	assert.Equal(t, "SMB", mean.Name)
	require.Equal(t, 1, mean.Len())
	assert.InDelta(t, 0.02, mean.Values[0], 1e-12)
}

func TestLegsToFactor(t *testing.T) {
	table := contracts.NewReturnTable(
		contracts.PortfolioReturn{Date: july2000, Label: "SH", Return: 0.05},
		contracts.PortfolioReturn{Date: july2000, Label: "SM", Return: 0.03},
		contracts.PortfolioReturn{Date: july2000, Label: "SL", Return: 0.01},
		contracts.PortfolioReturn{Date: july2000, Label: "BH", Return: 0.04},
		contracts.PortfolioReturn{Date: july2000, Label: "BM", Return: 0.02},
		contracts.PortfolioReturn{Date: july2000, Label: "BL", Return: 0.00},
	)

	hml, smb := legsToFactor(table, 1, contracts.Window{})
	assert.InDelta(t, 0.04, hml.Values[0], 1e-12)
	assert.InDelta(t, 0.01, smb.Values[0], 1e-12)

	cma, _ := legsToFactor(table, -1, contracts.Window{})
	assert.InDelta(t, -0.04, cma.Values[0], 1e-12)
}

func TestRanksAndCorrelate(t *testing.T) {
	assert.Equal(t, []float64{4, 1, 4, 4, 2}, Ranks([]float64{5, 1, 5, 5, 2}))

	dates := []time.Time{
		time.Date(1963, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(1963, 7, 31, 0, 0, 0, 0, time.UTC),
		time.Date(1963, 8, 31, 0, 0, 0, 0, time.UTC),
		time.Date(1963, 9, 30, 0, 0, 0, 0, time.UTC),
		time.Date(1963, 10, 31, 0, 0, 0, 0, time.UTC),
	}
	mine := contracts.Series{Name: "HML", Dates: dates, Values: []float64{9, 1, 2, 3, 4}}
	published := contracts.Series{Name: "HML", Dates: dates, Values: []float64{-9, 1, 4, 9, 16}}

	cmp := Correlate(mine, published, time.Date(1963, 7, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 4, cmp.N)
	assert.InDelta(t, 1.0, cmp.Spearman, 1e-12)
	assert.Less(t, cmp.Pearson, 1.0)
	assert.Greater(t, cmp.Pearson, 0.9)

	short := Correlate(mine, published, dates[3])
	assert.True(t, math.IsNaN(short.Pearson))
}

func TestComparer_SkipsMissingColumns(t *testing.T) {
	dates := []time.Time{july2000, aug2000, time.Date(2000, 9, 30, 0, 0, 0, 0, time.UTC)}
	rep := &Replication{Factors: []contracts.Series{
		{Name: FactorHML, Dates: dates, Values: []float64{0.01, 0.02, 0.03}},
		{Name: FactorUMD, Dates: dates, Values: []float64{0.01, 0.02, 0.03}},
	}}
	bench := contracts.NewBenchmark(contracts.Series{Name: FactorHML, Dates: dates, Values: []float64{0.02, 0.04, 0.06}})

	out := NewComparer(logger.Nop()).Compare(rep, bench, time.Time{})
	require.Len(t, out, 1)
	assert.Equal(t, FactorHML, out[0].Factor)
	assert.InDelta(t, 1.0, out[0].Pearson, 1e-12)
}

func TestReplicator_Market(t *testing.T) {
	monthly := s0_data.NewPanel([]contracts.Observation{
		{Entity: 1, Date: july2000, MarketEquity: 10, Weight: 1, Return: 0.1, ShareCode: 10},
		{Entity: 2, Date: july2000, MarketEquity: 10, Weight: 3, Return: 0.2, ShareCode: 11},
		{Entity: 3, Date: july2000, MarketEquity: 0, Weight: 5, Return: 0.9, ShareCode: 10},
		{Entity: 4, Date: july2000, MarketEquity: 10, Weight: 5, Return: 0.9, ShareCode: 12},
	})
	rf := contracts.Series{Name: "RF", Dates: []time.Time{july2000}, Values: []float64{0.005}}

	mkt, err := NewReplicator(logger.Nop()).Market(monthly, rf)
	require.NoError(t, err)
	assert.Equal(t, FactorMarket, mkt.Name)
	require.Equal(t, 1, mkt.Len())
	assert.InDelta(t, 0.175-0.005, mkt.Values[0], 1e-12)
}

// sortFixture: 4 NYSE 종목, size 중앙값 2.5, 7월 보유
func sortFixture(t *testing.T, column string, values []float64) *s0_data.Dataset {
	t.Helper()
	rows := make([]contracts.Observation, 4)
	for i := range rows {
		rows[i] = contracts.Observation{
			Entity: int64(i + 1), Date: june2000, MarketEquity: float64(i + 1), DecME: 1,
			Count: 1, ShareCode: 10, ExchangeCode: contracts.ExchangeNYSE,
		}
	}
	snapshot, err := s0_data.NewPanel(rows).WithColumn(column, values)
	require.NoError(t, err)

	monthly := s0_data.NewPanel([]contracts.Observation{
		{Entity: 1, Date: july2000, Weight: 1, Return: 0.01, ShareCode: 10},
		{Entity: 2, Date: july2000, Weight: 2, Return: 0.02, ShareCode: 10},
		{Entity: 3, Date: july2000, Weight: 3, Return: 0.03, ShareCode: 10},
		{Entity: 4, Date: july2000, Weight: 4, Return: 0.04, ShareCode: 10},
	})
	return &s0_data.Dataset{Monthly: monthly, Snapshot: snapshot}
}

func TestReplicator_Annual(t *testing.T) {
	// BE_ME = BE·1000/dec_me = 0.4, 0.1, 0.3, 0.2 → 30/70% = 0.19 / 0.31
	ds := sortFixture(t, "BE", []float64{0.0004, 0.0001, 0.0003, 0.0002})

	table, err := NewReplicator(logger.Nop()).Annual(ds.Monthly, ds.Snapshot, annualSorts[0])
	require.NoError(t, err)

	assert.Equal(t, []string{"BM", "SH", "SL"}, table.Labels())
	assert.InDelta(t, 0.01, table.Value(july2000, "SH"), 1e-12)
	assert.InDelta(t, 0.02, table.Value(july2000, "SL"), 1e-12)
	assert.InDelta(t, (3*0.03+4*0.04)/7, table.Value(july2000, "BM"), 1e-12)
}

type memoryCache struct {
	data map[string][]byte
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func TestRunner_Sort(t *testing.T) {
	ds := sortFixture(t, "X", []float64{1, 2, 3, 4})
	cfg := contracts.SortConfig{Quantiles: 2, Factor: "X", Reference: contracts.ReferenceAll, Sign: 1}
	cache := &memoryCache{data: map[string][]byte{}}
	runner := NewRunner(logger.Nop()).WithCache(cache, "study")

	out, err := runner.Sort(context.Background(), ds, cfg, contracts.Window{})
	require.NoError(t, err)
	assert.False(t, out.Cached)

	low := (0.01 + 2*0.02) / 3
	high := (3*0.03 + 4*0.04) / 7
	assert.InDelta(t, low, out.Table.Value(july2000, "1"), 1e-12)
	require.Equal(t, 1, out.LongShort.Len())
	assert.InDelta(t, high-low, out.LongShort.Values[0], 1e-12)
	assert.InDelta(t, 3.0/10, out.CapShare["1"], 1e-12)

	again, err := runner.Sort(context.Background(), ds, cfg, contracts.Window{})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.InDelta(t, out.LongShort.Values[0], again.LongShort.Values[0], 1e-12)

	cfg.Sign = -1
	cfg.Quantiles = 2
	flipped, err := NewRunner(logger.Nop()).Sort(context.Background(), ds, cfg, contracts.Window{})
	require.NoError(t, err)
	assert.Equal(t, -out.LongShort.Values[0], flipped.LongShort.Values[0])
}

func TestRunner_CacheStoresFullTable(t *testing.T) {
	ds := sortFixture(t, "X", []float64{1, 2, 3, 4})
	cfg := contracts.SortConfig{Quantiles: 2, Factor: "X", Reference: contracts.ReferenceAll, Sign: 1}
	cache := &memoryCache{data: map[string][]byte{}}
	runner := NewRunner(logger.Nop()).WithCache(cache, "job-hash")

	// 좁은 구간으로 먼저 실행해도 캐시는 전체 테이블
	narrow, err := runner.Sort(context.Background(), ds, cfg,
		contracts.Window{Start: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.False(t, narrow.Cached)
	assert.Empty(t, narrow.Table.Dates())

	wide, err := runner.Sort(context.Background(), ds, cfg, contracts.Window{})
	require.NoError(t, err)
	assert.True(t, wide.Cached)
	assert.Equal(t, []time.Time{july2000}, wide.Table.Dates())
	require.Equal(t, 1, wide.LongShort.Len())

	// 데이터가 바뀌면 캐시 키도 바뀜
	other := sortFixture(t, "X", []float64{1, 2, 3, 4})
	other.Monthly = other.Monthly.Filter(func(i int) bool { return i > 0 })
	fresh, err := runner.Sort(context.Background(), other, cfg, contracts.Window{})
	require.NoError(t, err)
	assert.False(t, fresh.Cached)
	assert.NotEqual(t, Fingerprint(ds), Fingerprint(other))
}

func TestRunner_InvalidConfig(t *testing.T) {
	ds := sortFixture(t, "X", []float64{1, 2, 3, 4})

	_, err := NewRunner(logger.Nop()).Sort(context.Background(), ds,
		contracts.SortConfig{Quantiles: 1, Factor: "X", Reference: contracts.ReferenceAll, Sign: 1}, contracts.Window{})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	_, err = NewRunner(logger.Nop()).Sort(context.Background(), ds,
		contracts.SortConfig{Quantiles: 2, Factor: "NOPE", Reference: contracts.ReferenceAll, Sign: 1}, contracts.Window{})
	assert.ErrorIs(t, err, contracts.ErrUnknownFactor)
}
