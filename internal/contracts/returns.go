package contracts

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// PortfolioReturn is one (period, portfolio label) aggregate
type PortfolioReturn struct {
	Date    time.Time `json:"date"`
	Label   string    `json:"label"`
	Return  float64   `json:"return"`  // 가치가중 수익률
	Weight  float64   `json:"weight"`  // 가중치 합계
	Members int       `json:"members"` // 구성 종목 수
}

type returnKey struct {
	month int
	label string
}

// ReturnTable is the long (tidy) form of a factor return series
// ⭐ SSOT: (period, label) → value. wide 피벗은 report 경계에서만
type ReturnTable struct {
	rows  []PortfolioReturn
	index map[returnKey]int
}

// NewReturnTable builds a table; later rows replace earlier duplicates
func NewReturnTable(rows ...PortfolioReturn) *ReturnTable {
	t := &ReturnTable{index: make(map[returnKey]int, len(rows))}
	for _, r := range rows {
		t.Add(r)
	}
	return t
}

// Add inserts or replaces one aggregate
func (t *ReturnTable) Add(r PortfolioReturn) {
	k := returnKey{month: MonthIndex(r.Date), label: r.Label}
	if i, ok := t.index[k]; ok {
		t.rows[i] = r
		return
	}
	t.index[k] = len(t.rows)
	t.rows = append(t.rows, r)
}

// Len returns the number of (period, label) cells
func (t *ReturnTable) Len() int {
	return len(t.rows)
}

// Rows returns the cells in insertion order
func (t *ReturnTable) Rows() []PortfolioReturn {
	return t.rows
}

// Get returns the aggregate for (date, label)
func (t *ReturnTable) Get(date time.Time, label string) (PortfolioReturn, bool) {
	i, ok := t.index[returnKey{month: MonthIndex(date), label: label}]
	if !ok {
		return PortfolioReturn{}, false
	}
	return t.rows[i], true
}

// Value returns the return for (date, label), NaN when absent
func (t *ReturnTable) Value(date time.Time, label string) float64 {
	r, ok := t.Get(date, label)
	if !ok {
		return math.NaN()
	}
	return r.Return
}

// Dates returns the distinct periods in ascending order
func (t *ReturnTable) Dates() []time.Time {
	seen := make(map[int]time.Time)
	for _, r := range t.rows {
		seen[MonthIndex(r.Date)] = r.Date
	}
	months := make([]int, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Ints(months)

	dates := make([]time.Time, len(months))
	for i, m := range months {
		dates[i] = seen[m]
	}
	return dates
}

// Labels returns the distinct labels in natural order
func (t *ReturnTable) Labels() []string {
	seen := make(map[string]struct{})
	for _, r := range t.rows {
		seen[r.Label] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	SortLabels(labels)
	return labels
}

// Window returns the cells inside w
func (t *ReturnTable) Window(w Window) *ReturnTable {
	out := NewReturnTable()
	for _, r := range t.rows {
		if w.Contains(r.Date) {
			out.Add(r)
		}
	}
	return out
}

// Series extracts one label as a time series over the table's periods
// 해당 기간에 label 이 없으면 NaN
func (t *ReturnTable) Series(label string) Series {
	dates := t.Dates()
	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = t.Value(d, label)
	}
	return Series{Name: label, Dates: dates, Values: values}
}

// SortLabels orders labels numerically when every label is an integer
func SortLabels(labels []string) {
	numeric := true
	for _, l := range labels {
		if _, err := strconv.Atoi(l); err != nil {
			numeric = false
			break
		}
	}
	if numeric {
		sort.Slice(labels, func(i, j int) bool {
			a, _ := strconv.Atoi(labels[i])
			b, _ := strconv.Atoi(labels[j])
			return a < b
		})
		return
	}
	sort.Strings(labels)
}

// Series is a dated float series (factor return, benchmark column)
type Series struct {
	Name   string      `json:"name"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of points
func (s Series) Len() int {
	return len(s.Values)
}

// Window returns the points inside w
func (s Series) Window(w Window) Series {
	out := Series{Name: s.Name}
	for i, d := range s.Dates {
		if w.Contains(d) {
			out.Dates = append(out.Dates, d)
			out.Values = append(out.Values, s.Values[i])
		}
	}
	return out
}

// DropNaN returns the series without missing points
func (s Series) DropNaN() Series {
	out := Series{Name: s.Name}
	for i, v := range s.Values {
		if !math.IsNaN(v) {
			out.Dates = append(out.Dates, s.Dates[i])
			out.Values = append(out.Values, v)
		}
	}
	return out
}

// ByMonth indexes the series by month counter
func (s Series) ByMonth() map[int]float64 {
	m := make(map[int]float64, len(s.Values))
	for i, d := range s.Dates {
		m[MonthIndex(d)] = s.Values[i]
	}
	return m
}

// InnerJoin aligns two series on common months
func InnerJoin(a, b Series) (dates []time.Time, av, bv []float64) {
	bm := b.ByMonth()
	for i, d := range a.Dates {
		v, ok := bm[MonthIndex(d)]
		if !ok {
			continue
		}
		dates = append(dates, d)
		av = append(av, a.Values[i])
		bv = append(bv, v)
	}
	return dates, av, bv
}

// Sub returns s − o over the months both series share
func (s Series) Sub(o Series) Series {
	dates, a, b := InnerJoin(s, o)
	values := make([]float64, len(dates))
	for i := range dates {
		values[i] = a[i] - b[i]
	}
	return Series{Name: s.Name + "-" + o.Name, Dates: dates, Values: values}
}

// Renamed returns a copy of the series under a new name
func (s Series) Renamed(name string) Series {
	s.Name = name
	return s
}
