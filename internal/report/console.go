package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render prints a table to w with box-drawing borders
func Render(w io.Writer, t Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	title := t.Name
	if t.Title != "" && t.Title != t.Name {
		title += " (" + t.Title + ")"
	}
	tw.SetTitle(title)

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		tw.AppendRow(r)
	}
	tw.Render()
}
