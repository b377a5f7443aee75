package s0_data

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// Built-in float fields resolvable by name through Panel.Float
const (
	FieldReturn      = "retadj"
	FieldReturnExDiv = "retx"
	FieldME          = "me"
	FieldWeight      = "wt"
	FieldDecME       = "dec_me"
)

// Panel is an immutable entity × period table
// ⭐ SSOT: S0 패널 저장소. 고정 필드는 Observation, 팩터는 column store
type Panel struct {
	rows   []contracts.Observation
	floats map[string][]float64
	labels map[string][]string
	index  map[contracts.Key]int
}

// NewPanel builds a panel over rows; the first row of a duplicate (entity, month) owns the index
func NewPanel(rows []contracts.Observation) *Panel {
	p := &Panel{
		rows:   rows,
		floats: make(map[string][]float64),
		labels: make(map[string][]string),
		index:  make(map[contracts.Key]int, len(rows)),
	}
	for i, r := range rows {
		k := contracts.KeyOf(r)
		if _, ok := p.index[k]; !ok {
			p.index[k] = i
		}
	}
	return p
}

// Len returns the number of rows
func (p *Panel) Len() int {
	return len(p.rows)
}

// Row returns row i
func (p *Panel) Row(i int) contracts.Observation {
	return p.rows[i]
}

// Rows returns all rows (read-only)
func (p *Panel) Rows() []contracts.Observation {
	return p.rows
}

// Lookup finds the row of (entity, month of date)
func (p *Panel) Lookup(entity int64, date time.Time) (int, bool) {
	i, ok := p.index[contracts.Key{Entity: entity, Month: contracts.MonthIndex(date)}]
	return i, ok
}

// HasColumn reports whether a float column (or built-in field) exists
func (p *Panel) HasColumn(name string) bool {
	if isField(name) {
		return true
	}
	_, ok := p.floats[name]
	return ok
}

// Float returns a float column by name; built-in fields are materialised on demand
func (p *Panel) Float(name string) ([]float64, error) {
	if isField(name) {
		out := make([]float64, len(p.rows))
		for i, r := range p.rows {
			out[i] = fieldValue(r, name)
		}
		return out, nil
	}
	col, ok := p.floats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contracts.ErrMissingColumn, name)
	}
	return col, nil
}

// Value returns one cell of a float column, NaN when the column is absent
func (p *Panel) Value(name string, i int) float64 {
	if isField(name) {
		return fieldValue(p.rows[i], name)
	}
	col, ok := p.floats[name]
	if !ok {
		return math.NaN()
	}
	return col[i]
}

// Labels returns a label column by name
func (p *Panel) Labels(name string) ([]string, error) {
	col, ok := p.labels[name]
	if !ok {
		return nil, fmt.Errorf("%w: label %q", contracts.ErrMissingColumn, name)
	}
	return col, nil
}

// ColumnNames returns the float column names in sorted order
func (p *Panel) ColumnNames() []string {
	names := make([]string, 0, len(p.floats))
	for n := range p.floats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LabelNames returns the label column names in sorted order
func (p *Panel) LabelNames() []string {
	names := make([]string, 0, len(p.labels))
	for n := range p.labels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WithColumn returns a copy of the panel with a float column added or replaced
func (p *Panel) WithColumn(name string, values []float64) (*Panel, error) {
	if isField(name) {
		return nil, fmt.Errorf("column %q shadows a built-in field", name)
	}
	if len(values) != len(p.rows) {
		return nil, fmt.Errorf("%w: column %q has %d values, panel has %d rows",
			contracts.ErrLengthMismatch, name, len(values), len(p.rows))
	}
	out := p.shallow()
	out.floats[name] = values
	return out, nil
}

// WithLabels returns a copy of the panel with a label column added or replaced
func (p *Panel) WithLabels(name string, values []string) (*Panel, error) {
	if len(values) != len(p.rows) {
		return nil, fmt.Errorf("%w: labels %q has %d values, panel has %d rows",
			contracts.ErrLengthMismatch, name, len(values), len(p.rows))
	}
	out := p.shallow()
	out.labels[name] = values
	return out, nil
}

// shallow copies the column maps; column slices and rows are shared
func (p *Panel) shallow() *Panel {
	out := &Panel{
		rows:   p.rows,
		floats: make(map[string][]float64, len(p.floats)+1),
		labels: make(map[string][]string, len(p.labels)+1),
		index:  p.index,
	}
	for k, v := range p.floats {
		out.floats[k] = v
	}
	for k, v := range p.labels {
		out.labels[k] = v
	}
	return out
}

// Periods returns the distinct period-end dates in ascending order
func (p *Panel) Periods() []time.Time {
	seen := make(map[int]time.Time)
	for _, r := range p.rows {
		m := contracts.MonthIndex(r.Date)
		if _, ok := seen[m]; !ok {
			seen[m] = r.Date
		}
	}
	months := make([]int, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Ints(months)

	out := make([]time.Time, len(months))
	for i, m := range months {
		out[i] = seen[m]
	}
	return out
}

// ByPeriod groups row indices by month index
func (p *Panel) ByPeriod() map[int][]int {
	groups := make(map[int][]int)
	for i, r := range p.rows {
		m := contracts.MonthIndex(r.Date)
		groups[m] = append(groups[m], i)
	}
	return groups
}

// ByEntity groups row indices by entity, each group sorted by date
func (p *Panel) ByEntity() map[int64][]int {
	groups := make(map[int64][]int)
	for i, r := range p.rows {
		groups[r.Entity] = append(groups[r.Entity], i)
	}
	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return p.rows[idx[a]].Date.Before(p.rows[idx[b]].Date)
		})
	}
	return groups
}

// Entities returns the distinct entities in ascending order
func (p *Panel) Entities() []int64 {
	seen := make(map[int64]struct{})
	for _, r := range p.rows {
		seen[r.Entity] = struct{}{}
	}
	out := make([]int64, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Filter returns the rows for which keep(i) is true, columns included
func (p *Panel) Filter(keep func(i int) bool) *Panel {
	idx := make([]int, 0, len(p.rows))
	for i := range p.rows {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return p.Select(idx)
}

// Select returns the rows at idx (in that order), columns included
func (p *Panel) Select(idx []int) *Panel {
	rows := make([]contracts.Observation, len(idx))
	for j, i := range idx {
		rows[j] = p.rows[i]
	}
	out := NewPanel(rows)
	for name, col := range p.floats {
		sub := make([]float64, len(idx))
		for j, i := range idx {
			sub[j] = col[i]
		}
		out.floats[name] = sub
	}
	for name, col := range p.labels {
		sub := make([]string, len(idx))
		for j, i := range idx {
			sub[j] = col[i]
		}
		out.labels[name] = sub
	}
	return out
}

// SortByEntityDate returns the panel ordered by (entity, date)
func (p *Panel) SortByEntityDate() *Panel {
	idx := make([]int, len(p.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := p.rows[idx[a]], p.rows[idx[b]]
		if ra.Entity != rb.Entity {
			return ra.Entity < rb.Entity
		}
		return ra.Date.Before(rb.Date)
	})
	return p.Select(idx)
}

func isField(name string) bool {
	switch name {
	case FieldReturn, FieldReturnExDiv, FieldME, FieldWeight, FieldDecME:
		return true
	}
	return false
}

func fieldValue(r contracts.Observation, name string) float64 {
	switch name {
	case FieldReturn:
		return r.Return
	case FieldReturnExDiv:
		return r.ReturnExDiv
	case FieldME:
		return r.MarketEquity
	case FieldWeight:
		return r.Weight
	case FieldDecME:
		return r.DecME
	}
	return math.NaN()
}
