package s0_data

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Writer persists panels as CSV in the layout Loader reads back
type Writer struct {
	logger *logger.Logger
}

// NewWriter creates a new panel writer
func NewWriter(log *logger.Logger) *Writer {
	return &Writer{logger: log}
}

// FormatFloat renders a value with full precision; 결측은 빈 문자열
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Frame converts a panel into a string frame (fixed fields first, then float and label columns)
func Frame(p *Panel) dataframe.DataFrame {
	n := p.Len()
	fixed := map[string][]string{}
	order := []string{ColEntity, ColDate, ColReturn, ColReturnExDiv, ColME, ColWeight, ColDecME,
		ColShareCode, ColExchangeCode, ColSIC, ColCount, ColFiscalYear}
	for _, name := range order {
		fixed[name] = make([]string, n)
	}
	for i, o := range p.Rows() {
		fixed[ColEntity][i] = strconv.FormatInt(o.Entity, 10)
		fixed[ColDate][i] = o.Date.Format("2006-01-02")
		fixed[ColReturn][i] = FormatFloat(o.Return)
		fixed[ColReturnExDiv][i] = FormatFloat(o.ReturnExDiv)
		fixed[ColME][i] = FormatFloat(o.MarketEquity)
		fixed[ColWeight][i] = FormatFloat(o.Weight)
		fixed[ColDecME][i] = FormatFloat(o.DecME)
		fixed[ColShareCode][i] = strconv.Itoa(o.ShareCode)
		fixed[ColExchangeCode][i] = strconv.Itoa(o.ExchangeCode)
		fixed[ColSIC][i] = strconv.Itoa(o.SIC)
		fixed[ColCount][i] = strconv.Itoa(o.Count)
		fixed[ColFiscalYear][i] = strconv.Itoa(o.FiscalYear)
	}

	cols := make([]series.Series, 0, len(order)+len(p.floats)+len(p.labels))
	for _, name := range order {
		cols = append(cols, series.New(fixed[name], series.String, name))
	}
	for _, name := range p.ColumnNames() {
		values := p.floats[name]
		records := make([]string, n)
		for i, v := range values {
			records[i] = FormatFloat(v)
		}
		cols = append(cols, series.New(records, series.String, name))
	}
	for _, name := range p.LabelNames() {
		cols = append(cols, series.New(p.labels[name], series.String, name))
	}
	return dataframe.New(cols...)
}

// WritePanel writes the panel to path, creating parent directories
func (w *Writer) WritePanel(path string, p *Panel) error {
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	df := Frame(p)
	if df.Err != nil {
		return fmt.Errorf("build frame: %w", df.Err)
	}
	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	w.logger.WithStage(contracts.StageData).WithFields(map[string]interface{}{
		"path":       path,
		"rows":       p.Len(),
		"columns":    df.Ncol(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Wrote panel")
	return nil
}
