package s0_data

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/config"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func crspWindow() contracts.Window {
	return contracts.Window{Start: day(1958, 7, 1), End: day(2022, 12, 30)}
}

func TestCompustatProcessor_Process(t *testing.T) {
	nan := math.NaN()
	records := []Fundamental{
		{GVKey: "001", DataDate: day(2000, 12, 31), Values: map[string]float64{"at": 110}},
		{GVKey: "002", DataDate: day(1999, 12, 31), Values: map[string]float64{
			"ceq": 40, "pstk": nan, "txdb": 1, "itcb": 1,
		}},
		{GVKey: "001", DataDate: day(1999, 12, 31), Values: map[string]float64{
			"seq": 50, "pstkrv": nan, "pstkl": 2, "pstk": 3, "txditc": 5,
			"at": 100, "sale": 200, "cogs": 120, "xsga": 30, "xint": 5,
		}},
	}

	out := NewCompustatProcessor(logger.Nop()).Process(records)
	require.Len(t, out, 3)

	first := out[0]
	assert.Equal(t, "001", first.GVKey)
	assert.Equal(t, 0, first.Count)
	assert.Equal(t, 2.0, first.Value("PSTK"), "redemption value missing, liquidating value used")
	assert.Equal(t, 53.0, first.Value("BE"))
	assert.Equal(t, 150.0, first.Value("OPEX"))
	assert.Equal(t, 80.0, first.Value("GP"))
	assert.Equal(t, 50.0, first.Value("EBITDA"))
	assert.Equal(t, 45.0, first.Value("OP"))
	assert.InDelta(t, 45.0/53.0, first.Value("OP_BE"), 1e-12)
	assert.True(t, math.IsNaN(first.Value("AT_GR1")), "first firm-year has no growth")

	second := out[1]
	assert.Equal(t, 1, second.Count)
	assert.InDelta(t, 0.1, second.Value("AT_GR1"), 1e-12)

	other := out[2]
	assert.Equal(t, "002", other.GVKey)
	assert.Equal(t, 40.0, other.Value("SEQ"), "missing preferred stock counts as zero")
	assert.Equal(t, 2.0, other.Value("TXDITC"))
	assert.Equal(t, 42.0, other.Value("BE"))
	assert.True(t, math.IsNaN(other.Value("AT")))

	_, touched := records[0].Values["BE"]
	assert.False(t, touched, "input records are not modified")
}

func TestDelistingReturn(t *testing.T) {
	tests := []struct {
		name     string
		d        Delisting
		exchange int
		want     float64
	}{
		{"reported return kept", Delisting{Return: -0.12, Code: 550}, 1, -0.12},
		{"NYSE performance delisting", Delisting{Return: math.NaN(), Code: 500}, 1, -0.30},
		{"AMEX performance delisting", Delisting{Return: math.NaN(), Code: 584}, 2, -0.30},
		{"NASDAQ performance delisting", Delisting{Return: math.NaN(), Code: 520}, 3, -0.55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DelistingReturn(tt.d, tt.exchange))
		})
	}

	assert.True(t, math.IsNaN(DelistingReturn(Delisting{Return: math.NaN(), Code: 231}, 1)), "merger code is not filled")
	assert.False(t, IsPerformanceDelisting(585))
}

func crspFixture() ([]StockMonth, []NameSpan, []Delisting) {
	stocks := []StockMonth{
		{PERMNO: 1, PERMCO: 100, Date: day(1999, 12, 31), Ret: 0, Retx: 0, ShrOut: 10, Prc: 10},
		{PERMNO: 1, PERMCO: 100, Date: day(2000, 6, 30), Ret: 0.1, Retx: 0.1, ShrOut: 10, Prc: -11},
		{PERMNO: 1, PERMCO: 100, Date: day(2000, 7, 31), Ret: 0.1, Retx: 0.1, ShrOut: 10, Prc: 12.1},
		{PERMNO: 1, PERMCO: 100, Date: day(2000, 8, 31), Ret: -0.1, Retx: -0.1, ShrOut: 10, Prc: 10.89},
		{PERMNO: 2, PERMCO: 100, Date: day(2000, 8, 31), Ret: 0.5, Retx: 0.5, ShrOut: 10, Prc: 1},
		{PERMNO: 3, PERMCO: 300, Date: day(2000, 8, 31), Ret: 0.5, Retx: 0.5, ShrOut: 10, Prc: 1},
		{PERMNO: 1, PERMCO: 100, Date: day(1950, 1, 31), Ret: 0.5, Retx: 0.5, ShrOut: 10, Prc: 1},
	}
	names := []NameSpan{
		{PERMNO: 1, Start: day(1940, 1, 1), End: day(2010, 12, 31), ShareCode: 10, ExchangeCode: 1, SIC: 3571},
		{PERMNO: 2, Start: day(1990, 1, 1), End: day(2010, 12, 31), ShareCode: 11, ExchangeCode: 3},
		{PERMNO: 3, Start: day(1990, 1, 1), End: day(2010, 12, 31), ShareCode: 10, ExchangeCode: 4},
	}
	delistings := []Delisting{
		{PERMNO: 1, Date: day(2000, 8, 15), Return: math.NaN(), Code: 550},
	}
	return stocks, names, delistings
}

func TestCRSPProcessor_Process(t *testing.T) {
	stocks, names, delistings := crspFixture()
	monthly, june := NewCRSPProcessor(logger.Nop(), crspWindow()).Process(stocks, names, delistings)

	require.Equal(t, 4, monthly.Len(), "exchange 4, out-of-window and minor PERMCO securities dropped")
	for _, o := range monthly.Rows() {
		assert.Equal(t, int64(1), o.Entity)
	}

	rows := monthly.Rows()
	assert.Equal(t, []int{0, 1, 2, 3}, []int{rows[0].Count, rows[1].Count, rows[2].Count, rows[3].Count})
	assert.Equal(t, []int{1999, 1999, 2000, 2000}, []int{rows[0].FiscalYear, rows[1].FiscalYear, rows[2].FiscalYear, rows[3].FiscalYear})
	assert.InDelta(t, 110.0, rows[1].MarketEquity, 1e-9, "absolute price")
	assert.InDelta(t, 118.9, rows[3].MarketEquity, 1e-9, "company me summed across PERMCO")
	assert.InDelta(t, (1-0.1)*(1-0.3)-1, rows[3].Return, 1e-12, "NYSE performance delisting fills -30%")

	lme, _ := monthly.Float(FieldLagME)
	assert.InDeltaSlice(t, []float64{100, 100, 110, 121}, lme, 1e-9)

	cum, _ := monthly.Float(FieldCumRetx)
	assert.InDeltaSlice(t, []float64{1, 1.1, 1.1, 0.99}, cum, 1e-12)

	assert.True(t, math.IsNaN(rows[0].Weight))
	assert.True(t, math.IsNaN(rows[1].Weight), "no July base in fiscal year 1999")
	assert.InDelta(t, 110.0, rows[2].Weight, 1e-9, "July weight is lagged me")
	assert.InDelta(t, 121.0, rows[3].Weight, 1e-9, "mebase x lagged cumulative ex-dividend return")

	require.Equal(t, 1, june.Len())
	j := june.Row(0)
	assert.Equal(t, day(2000, 6, 30), j.Date)
	assert.Equal(t, 100.0, j.DecME, "December 1999 me")
	assert.Equal(t, 2000, j.FiscalYear)
}

func TestLinkMerger_Merge(t *testing.T) {
	stocks, names, delistings := crspFixture()
	_, june := NewCRSPProcessor(logger.Nop(), crspWindow()).Process(stocks, names, delistings)

	funda := NewCompustatProcessor(logger.Nop()).Process([]Fundamental{
		{GVKey: "001", DataDate: day(1999, 9, 30), SIC: 3572, Values: map[string]float64{"seq": 50, "at": 90}},
		{GVKey: "002", DataDate: day(1999, 12, 31), Values: map[string]float64{"seq": 10}},
		{GVKey: "003", DataDate: day(1999, 12, 31), Values: map[string]float64{"seq": 10}},
	})
	links := []Link{
		{GVKey: "001", PERMNO: 1, Primary: "P", Type: "LC", Start: day(1990, 1, 1)},
		{GVKey: "002", PERMNO: 1, Primary: "J", Type: "LC", Start: day(1990, 1, 1)},
		{GVKey: "003", PERMNO: 1, Primary: "C", Type: "LU", Start: day(1990, 1, 1), End: day(1999, 12, 31)},
	}

	snapshot := NewLinkMerger(logger.Nop()).Merge(june, funda, links)
	require.Equal(t, 1, snapshot.Len(), "secondary link and expired link dropped")

	o := snapshot.Row(0)
	assert.Equal(t, int64(1), o.Entity)
	assert.Equal(t, 0, o.Count, "Compustat appearance count")
	assert.Equal(t, 3572, o.SIC)
	assert.Equal(t, 100.0, o.DecME)
	assert.Equal(t, 50.0, snapshot.Value("BE", 0))
	assert.Equal(t, 90.0, snapshot.Value("AT", 0))
}

func TestLink_CoversAndRebalanceDate(t *testing.T) {
	open := Link{Start: day(2000, 1, 1)}
	assert.True(t, open.Covers(day(2030, 6, 30)))
	assert.False(t, open.Covers(day(1999, 6, 30)))

	closed := Link{Start: day(2000, 1, 1), End: day(2001, 6, 30)}
	assert.True(t, closed.Covers(day(2001, 6, 30)))
	assert.False(t, closed.Covers(day(2002, 6, 30)))

	assert.Equal(t, day(2001, 6, 30), RebalanceDate(day(2000, 3, 31)))
	assert.Equal(t, day(2001, 6, 30), RebalanceDate(day(2000, 12, 31)))
}

func TestWriter_RoundTrip(t *testing.T) {
	stocks, names, delistings := crspFixture()
	monthly, _ := NewCRSPProcessor(logger.Nop(), crspWindow()).Process(stocks, names, delistings)

	path := t.TempDir() + "/out/monthly.csv"
	require.NoError(t, NewWriter(logger.Nop()).WritePanel(path, monthly))

	back, err := NewLoader(logger.Nop()).LoadMonthly(path)
	require.NoError(t, err)
	require.Equal(t, monthly.Len(), back.Len())
	for i := range monthly.Rows() {
		want, got := monthly.Row(i), back.Row(i)
		assert.Equal(t, want.Entity, got.Entity)
		assert.Equal(t, want.Date, got.Date)
		assert.Equal(t, want.Count, got.Count)
		assert.Equal(t, want.FiscalYear, got.FiscalYear)
		assert.Equal(t, want.Return, got.Return)
		if math.IsNaN(want.Weight) {
			assert.True(t, math.IsNaN(got.Weight))
		} else {
			assert.Equal(t, want.Weight, got.Weight)
		}
	}
	assert.True(t, back.HasColumn(FieldCumRetx))
}

const (
	rawFundamentalsCSV = `gvkey,datadate,sic,seq,pstkl,txditc,at,sale,cogs,xsga,xint
001,1999-12-31,3571,50,2,5,100,200,120,30,5
`
	rawStocksCSV = `PERMNO,PERMCO,MthCalDt,MthRet,MthRetx,ShrOut,MthPrc
1,100,1999-12-31,0,0,10,10
1,100,2000-06-30,0.1,0.1,10,-11
1,100,2000-07-31,0.1,0.1,10,12.1
`
	rawNamesCSV = `PERMNO,DATE,NAMEENDT,SHRCD,EXCHCD
1,1990-01-01,2010-12-31,10,1
`
	rawDelistingsCSV = `PERMNO,DLSTDT,DLRET,DLSTCD
1,2005-03-31,A,231
`
	rawLinksCSV = `gvkey,LPERMNO,LINKTYPE,LINKPRIM,LINKDT,LINKENDDT
001,1,LC,P,1990-01-01,E
002,,NU,C,1990-01-01,E
`
)

func TestProcessor_Run(t *testing.T) {
	dir := t.TempDir()
	files := RawFiles{
		Fundamentals: writeFile(t, dir, "funda.csv", rawFundamentalsCSV),
		StockMonths:  writeFile(t, dir, "msf.csv", rawStocksCSV),
		Names:        writeFile(t, dir, "names.csv", rawNamesCSV),
		Delistings:   writeFile(t, dir, "dl.csv", rawDelistingsCSV),
		Links:        writeFile(t, dir, "ccm.csv", rawLinksCSV),
	}
	cfg := config.DataConfig{
		MonthlyFile:  dir + "/processed/monthly.csv",
		SnapshotFile: dir + "/processed/june.csv",
		CRSPStart:    day(1958, 7, 1),
		CRSPEnd:      day(2022, 12, 30),
	}

	ds, err := NewProcessor(logger.Nop(), cfg).Run(context.Background(), files, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Monthly.Len())
	require.Equal(t, 1, ds.Snapshot.Len())
	assert.Equal(t, 53.0, ds.Snapshot.Value("BE", 0))
	assert.Equal(t, 3571, ds.Snapshot.Row(0).SIC)

	snapshot, err := NewLoader(logger.Nop()).LoadSnapshot(cfg.SnapshotFile)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Len())
	assert.Equal(t, 100.0, snapshot.Row(0).DecME)
	assert.Equal(t, 53.0, snapshot.Value("BE", 0))

	_, err = NewProcessor(logger.Nop(), cfg).Run(context.Background(), DefaultRawFiles(dir+"/missing"), cfg)
	assert.Error(t, err)
}
