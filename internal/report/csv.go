package report

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Frame converts a table into a string frame (한 열 = 한 series)
func Frame(t Table) dataframe.DataFrame {
	cols := make([]series.Series, len(t.Columns))
	for j, name := range t.Columns {
		records := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			if j < len(row) {
				records[i] = row[j]
			}
		}
		cols[j] = series.New(records, series.String, name)
	}
	return dataframe.New(cols...)
}

// WriteCSV writes one table as CSV
func WriteCSV(w io.Writer, t Table) error {
	df := Frame(t)
	if df.Err != nil {
		return fmt.Errorf("build frame %s: %w", t.Name, df.Err)
	}
	return df.WriteCSV(w)
}
