package s0_data

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/sync/errgroup"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/config"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Input column names (WRDS processed extracts)
const (
	ColEntity       = "PERMNO"
	ColDate         = "jdate"
	ColReturn       = "retadj"
	ColReturnExDiv  = "MthRetx"
	ColME           = "me"
	ColWeight       = "wt"
	ColDecME        = "dec_me"
	ColShareCode    = "SHRCD"
	ColExchangeCode = "EXCHCD"
	ColCount        = "count"
	ColFiscalYear   = "ffyear"
	ColSIC          = "sic"
	ColBenchDate    = "date"
)

var (
	monthlyRequired  = []string{ColEntity, ColDate, ColReturn, ColME, ColWeight, ColShareCode, ColExchangeCode, ColCount}
	snapshotRequired = []string{ColEntity, ColDate, ColME, ColDecME, ColShareCode, ColExchangeCode, ColCount}

	// 팩터 컬럼으로 올리지 않는 식별자/날짜/문자열 컬럼
	nonFactorColumns = map[string]struct{}{
		ColEntity: {}, ColDate: {}, ColReturn: {}, ColReturnExDiv: {}, ColME: {}, ColWeight: {},
		ColDecME: {}, ColShareCode: {}, ColExchangeCode: {}, ColCount: {}, ColFiscalYear: {}, ColSIC: {},
		"MthCalDt": {}, "datadate": {}, "yearend": {}, "gvkey": {}, "PERMCO": {},
	}

	dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "20060102", "200601", "2006-01"}

	nanValues = []string{"", "NA", "NaN", "nan", "NULL", "null"}
)

// Dataset is the set of inputs of one run
type Dataset struct {
	Monthly   *Panel
	Snapshot  *Panel
	Benchmark *contracts.Benchmark
}

// Loader reads processed CSV extracts into panels
// ⭐ SSOT: CSV → Panel 변환은 여기서만
type Loader struct {
	logger *logger.Logger
}

// NewLoader creates a new loader
func NewLoader(log *logger.Logger) *Loader {
	return &Loader{logger: log}
}

// LoadAll reads the monthly panel, June snapshot and benchmark concurrently
func (l *Loader) LoadAll(ctx context.Context, cfg config.DataConfig) (*Dataset, error) {
	ds := &Dataset{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := l.LoadMonthly(cfg.MonthlyFile)
		if err != nil {
			return err
		}
		ds.Monthly = p
		return nil
	})
	g.Go(func() error {
		p, err := l.LoadSnapshot(cfg.SnapshotFile)
		if err != nil {
			return err
		}
		ds.Snapshot = p
		return nil
	})
	g.Go(func() error {
		b, err := l.LoadBenchmark(cfg.BenchmarkFile)
		if err != nil {
			return err
		}
		ds.Benchmark = b
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

// ReadFrame reads a CSV file as an all-string frame
func (l *Loader) ReadFrame(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", path, df.Err)
	}

	l.logger.WithFields(map[string]interface{}{
		"path":       path,
		"rows":       df.Nrow(),
		"columns":    df.Ncol(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Read CSV")

	return df, nil
}

// LoadMonthly reads the processed monthly CRSP panel
func (l *Loader) LoadMonthly(path string) (*Panel, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	return PanelFromFrame(df, monthlyRequired)
}

// LoadSnapshot reads the processed June CRSP/Compustat snapshot
func (l *Loader) LoadSnapshot(path string) (*Panel, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	return PanelFromFrame(df, snapshotRequired)
}

// LoadBenchmark reads the published factor file (date as YYYYMM, percent units)
func (l *Loader) LoadBenchmark(path string) (*contracts.Benchmark, error) {
	df, err := l.ReadFrame(path)
	if err != nil {
		return nil, err
	}
	return BenchmarkFromFrame(df)
}

// PanelFromFrame converts a frame into a panel; extra numeric columns become factor columns
func PanelFromFrame(df dataframe.DataFrame, required []string) (*Panel, error) {
	if err := requireColumns(df, required); err != nil {
		return nil, err
	}
	names := df.Names()
	has := make(map[string]bool, len(names))
	for _, n := range names {
		has[n] = true
	}

	n := df.Nrow()
	dates, err := parseDates(df.Col(ColDate).Records())
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", ColDate, err)
	}
	entity := df.Col(ColEntity).Float()
	me := df.Col(ColME).Float()
	shrcd := df.Col(ColShareCode).Float()
	exchcd := df.Col(ColExchangeCode).Float()
	count := df.Col(ColCount).Float()

	optional := func(name string) []float64 {
		if !has[name] {
			return nil
		}
		return df.Col(name).Float()
	}
	ret, retx, wt, decME := optional(ColReturn), optional(ColReturnExDiv), optional(ColWeight), optional(ColDecME)
	ffyear, sic := optional(ColFiscalYear), optional(ColSIC)

	rows := make([]contracts.Observation, n)
	for i := 0; i < n; i++ {
		date := contracts.ToMonthEnd(dates[i])
		rows[i] = contracts.Observation{
			Entity:       int64(entity[i]),
			Date:         date,
			Return:       at(ret, i),
			ReturnExDiv:  at(retx, i),
			MarketEquity: me[i],
			Weight:       at(wt, i),
			DecME:        at(decME, i),
			ShareCode:    toInt(shrcd[i]),
			ExchangeCode: toInt(exchcd[i]),
			SIC:          toInt(at(sic, i)),
			Count:        countValue(count[i]),
			FiscalYear:   contracts.FiscalYear(date, contracts.DefaultFiscalLag),
		}
		if ffyear != nil && !math.IsNaN(ffyear[i]) {
			rows[i].FiscalYear = int(ffyear[i])
		}
	}

	p := NewPanel(rows)
	for _, name := range names {
		if _, skip := nonFactorColumns[name]; skip {
			continue
		}
		if !isNumericColumn(df.Col(name).Records()) {
			continue
		}
		if p, err = p.WithColumn(name, df.Col(name).Float()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// BenchmarkFromFrame converts the factor file; every column except date is divided by 100
func BenchmarkFromFrame(df dataframe.DataFrame) (*contracts.Benchmark, error) {
	if err := requireColumns(df, []string{ColBenchDate, contracts.BenchmarkRiskFree, contracts.BenchmarkMarket}); err != nil {
		return nil, err
	}
	dates, err := parseDates(df.Col(ColBenchDate).Records())
	if err != nil {
		return nil, fmt.Errorf("benchmark date: %w", err)
	}
	for i := range dates {
		dates[i] = contracts.ToMonthEnd(dates[i])
	}

	var all []contracts.Series
	for _, name := range df.Names() {
		if name == ColBenchDate {
			continue
		}
		raw := df.Col(name).Float()
		values := make([]float64, len(raw))
		for i, v := range raw {
			values[i] = v / 100
		}
		all = append(all, contracts.Series{Name: name, Dates: dates, Values: values})
	}
	return contracts.NewBenchmark(all...), nil
}

func requireColumns(df dataframe.DataFrame, required []string) error {
	has := make(map[string]bool)
	for _, n := range df.Names() {
		has[n] = true
	}
	var missing []string
	for _, r := range required {
		if !has[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", contracts.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// ParseDate accepts the date layouts found in WRDS extracts and processed CSVs
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseDates(records []string) ([]time.Time, error) {
	out := make([]time.Time, len(records))
	for i, r := range records {
		t, err := ParseDate(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out[i] = t
	}
	return out, nil
}

// isNumericColumn checks the first non-missing record
func isNumericColumn(records []string) bool {
	for _, r := range records {
		if r == "" || r == "NaN" {
			continue
		}
		_, err := strconv.ParseFloat(r, 64)
		return err == nil
	}
	return false
}

func at(col []float64, i int) float64 {
	if col == nil {
		return math.NaN()
	}
	return col[i]
}

func toInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(v)
}

// countValue keeps missing counts ineligible (count >= 1 fails)
func countValue(v float64) int {
	if math.IsNaN(v) {
		return -1
	}
	return int(v)
}
