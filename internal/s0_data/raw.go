package s0_data

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// RawFiles locates the WRDS extracts consumed by the process command
type RawFiles struct {
	Fundamentals string // Compustat fundamentals annual
	StockMonths  string // CRSP monthly stock file
	Names        string // CRSP stock names (share / exchange code history)
	Delistings   string // CRSP delisting information
	Links        string // CRSP/Compustat merged link table
}

// DefaultRawFiles returns the conventional file names under dir
func DefaultRawFiles(dir string) RawFiles {
	return RawFiles{
		Fundamentals: filepath.Join(dir, "raw_compustat_fundamentals_annual.csv"),
		StockMonths:  filepath.Join(dir, "raw_monthly_stock_files.csv"),
		Names:        filepath.Join(dir, "raw_compustat_historical_descriptive_information.csv"),
		Delistings:   filepath.Join(dir, "raw_crsp_delisting_information.csv"),
		Links:        filepath.Join(dir, "raw_crsp_compustat_linking_table.csv"),
	}
}

// Fundamental is one Compustat firm-year with raw (lower-case) and derived (upper-case) items
type Fundamental struct {
	GVKey    string
	DataDate time.Time
	SIC      int
	Count    int // gvkey 내 이전 등장 횟수
	Values   map[string]float64
}

// Value returns an item or NaN
func (f Fundamental) Value(name string) float64 {
	if v, ok := f.Values[name]; ok {
		return v
	}
	return math.NaN()
}

// StockMonth is one row of the CRSP monthly stock file
type StockMonth struct {
	PERMNO int64
	PERMCO int64
	Date   time.Time
	Ret    float64
	Retx   float64
	ShrOut float64
	Prc    float64
}

// NameSpan is one CRSP names record valid over [Start, End]
type NameSpan struct {
	PERMNO       int64
	Start        time.Time
	End          time.Time
	ShareCode    int
	ExchangeCode int
	SIC          int
}

// Delisting is one CRSP delisting event
type Delisting struct {
	PERMNO int64
	Date   time.Time
	Return float64
	Code   int
}

// Link is one CCM link record; zero End means the link is still active
type Link struct {
	GVKey   string
	PERMNO  int64
	Primary string
	Type    string
	Start   time.Time
	End     time.Time
}

// Raw column names
const (
	rawGVKey    = "gvkey"
	rawDataDate = "datadate"
	rawSIC      = "sic"
	rawPERMNO   = "PERMNO"
	rawPERMCO   = "PERMCO"
	rawCalDate  = "MthCalDt"
	rawRet      = "MthRet"
	rawRetx     = "MthRetx"
	rawShrOut   = "ShrOut"
	rawPrc      = "MthPrc"
	rawNameDate = "DATE"
	rawNameEnd  = "NAMEENDT"
	rawSICCD    = "SICCD"
	rawDLDate   = "DLSTDT"
	rawDLRet    = "DLRET"
	rawDLCode   = "DLSTCD"
	rawLPERMNO  = "LPERMNO"
	rawLinkType = "LINKTYPE"
	rawLinkPrim = "LINKPRIM"
	rawLinkDate = "LINKDT"
	rawLinkEnd  = "LINKENDDT"
)

// ReadFundamentals reads the Compustat extract; every numeric column besides the keys is an item
func (l *Loader) ReadFundamentals(path string) ([]Fundamental, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(df, []string{rawGVKey, rawDataDate}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dates, err := parseDates(df.Col(rawDataDate).Records())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	gvkeys := df.Col(rawGVKey).Records()
	sic := optionalFloat(df, rawSIC)

	items := make(map[string][]float64)
	for _, name := range df.Names() {
		if name == rawGVKey || name == rawDataDate || name == rawSIC {
			continue
		}
		if isNumericColumn(df.Col(name).Records()) {
			items[name] = df.Col(name).Float()
		}
	}

	out := make([]Fundamental, df.Nrow())
	for i := range out {
		values := make(map[string]float64, len(items))
		for name, col := range items {
			values[name] = col[i]
		}
		out[i] = Fundamental{
			GVKey:    strings.TrimSpace(gvkeys[i]),
			DataDate: dates[i],
			SIC:      toInt(at(sic, i)),
			Values:   values,
		}
	}
	return out, nil
}

// ReadStockMonths reads the CRSP monthly stock file
func (l *Loader) ReadStockMonths(path string) ([]StockMonth, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(df, []string{rawPERMNO, rawPERMCO, rawCalDate, rawRet, rawRetx, rawShrOut, rawPrc}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dates, err := parseDates(df.Col(rawCalDate).Records())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	permno, permco := df.Col(rawPERMNO).Float(), df.Col(rawPERMCO).Float()
	ret, retx := df.Col(rawRet).Float(), df.Col(rawRetx).Float()
	shrout, prc := df.Col(rawShrOut).Float(), df.Col(rawPrc).Float()

	out := make([]StockMonth, df.Nrow())
	for i := range out {
		out[i] = StockMonth{
			PERMNO: int64(permno[i]),
			PERMCO: int64(permco[i]),
			Date:   dates[i],
			Ret:    ret[i],
			Retx:   retx[i],
			ShrOut: shrout[i],
			Prc:    prc[i],
		}
	}
	return out, nil
}

// ReadNames reads the CRSP names history
func (l *Loader) ReadNames(path string) ([]NameSpan, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(df, []string{rawPERMNO, rawNameDate, rawNameEnd, ColShareCode, ColExchangeCode}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	starts, err := parseDates(df.Col(rawNameDate).Records())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ends, err := parseDates(df.Col(rawNameEnd).Records())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	permno := df.Col(rawPERMNO).Float()
	shrcd, exchcd := df.Col(ColShareCode).Float(), df.Col(ColExchangeCode).Float()
	sic := optionalFloat(df, rawSICCD)

	out := make([]NameSpan, df.Nrow())
	for i := range out {
		out[i] = NameSpan{
			PERMNO:       int64(permno[i]),
			Start:        starts[i],
			End:          ends[i],
			ShareCode:    toInt(shrcd[i]),
			ExchangeCode: toInt(exchcd[i]),
			SIC:          toInt(at(sic, i)),
		}
	}
	return out, nil
}

// ReadDelistings reads the CRSP delisting file; letter-coded DLRET values become NaN
func (l *Loader) ReadDelistings(path string) ([]Delisting, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(df, []string{rawPERMNO, rawDLDate, rawDLRet, rawDLCode}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dates, err := parseDates(df.Col(rawDLDate).Records())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	permno, dlret, code := df.Col(rawPERMNO).Float(), df.Col(rawDLRet).Float(), df.Col(rawDLCode).Float()

	out := make([]Delisting, df.Nrow())
	for i := range out {
		out[i] = Delisting{
			PERMNO: int64(permno[i]),
			Date:   dates[i],
			Return: dlret[i],
			Code:   toInt(code[i]),
		}
	}
	return out, nil
}

// ReadLinks reads the CCM link table; LINKENDDT "E" (or blank) marks an open link
func (l *Loader) ReadLinks(path string) ([]Link, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(df, []string{rawGVKey, rawLPERMNO, rawLinkType, rawLinkPrim, rawLinkDate, rawLinkEnd}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	starts, err := parseDates(df.Col(rawLinkDate).Records())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	gvkeys := df.Col(rawGVKey).Records()
	permno := df.Col(rawLPERMNO).Float()
	types, prims := df.Col(rawLinkType).Records(), df.Col(rawLinkPrim).Records()
	ends := df.Col(rawLinkEnd).Records()

	out := make([]Link, 0, df.Nrow())
	for i := range gvkeys {
		if math.IsNaN(permno[i]) {
			continue // 연결되지 않은 gvkey
		}
		var end time.Time
		if e := strings.TrimSpace(ends[i]); e != "" && e != "E" && e != "NaN" {
			if end, err = ParseDate(e); err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
			}
		}
		out = append(out, Link{
			GVKey:   strings.TrimSpace(gvkeys[i]),
			PERMNO:  int64(permno[i]),
			Primary: strings.TrimSpace(prims[i]),
			Type:    strings.TrimSpace(types[i]),
			Start:   starts[i],
			End:     end,
		})
	}
	return out, nil
}

func optionalFloat(df dataframe.DataFrame, name string) []float64 {
	for _, n := range df.Names() {
		if n == name {
			return df.Col(name).Float()
		}
	}
	return nil
}

// monthEndAfter returns the month end `months` months after t's month
func monthEndAfter(t time.Time, months int) time.Time {
	return contracts.MonthEnd(contracts.MonthIndex(t) + months)
}
