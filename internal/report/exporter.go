package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Output formats
const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// DefaultFormats is used when a study names no formats
var DefaultFormats = []string{FormatCSV, FormatConsole}

// Exporter writes named groups of tables in every configured format
// 레이아웃: <dir>/<name>/<table>.csv, <dir>/<name>.xlsx, <dir>/<name>.json
type Exporter struct {
	dir     string
	formats []string
	console io.Writer
	logger  *logger.Logger
}

// NewExporter creates an exporter rooted at dir; console 출력은 out 으로
func NewExporter(log *logger.Logger, dir string, formats []string, out io.Writer) *Exporter {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	return &Exporter{dir: dir, formats: formats, console: out, logger: log}
}

// Export writes one group of tables
func (e *Exporter) Export(name string, tables ...Table) error {
	start := time.Now()
	if len(tables) == 0 {
		return nil
	}

	for _, format := range e.formats {
		var err error
		switch format {
		case FormatCSV:
			err = e.exportCSV(name, tables)
		case FormatXLSX:
			err = WriteXLSX(filepath.Join(e.dir, name+".xlsx"), tables)
		case FormatJSON:
			err = e.exportJSON(name, tables)
		case FormatConsole:
			if e.console != nil {
				for _, t := range tables {
					Render(e.console, t)
				}
			}
		default:
			err = fmt.Errorf("%w: unknown output format %q", contracts.ErrInvalidConfig, format)
		}
		if err != nil {
			return fmt.Errorf("export %s as %s: %w", name, format, err)
		}
	}

	e.logger.WithStage(contracts.StageAudit).WithFields(map[string]interface{}{
		"name":    name,
		"tables":  len(tables),
		"formats": e.formats,
		"dir":     e.dir,
	}).Timed(start, "Exported report")
	return nil
}

func (e *Exporter) exportCSV(name string, tables []Table) error {
	dir := filepath.Join(e.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, t := range tables {
		path := filepath.Join(dir, t.Name+".csv")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		err = WriteCSV(f, t)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func (e *Exporter) exportJSON(name string, tables []Table) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(e.dir, name+".json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(f, tables)
}
