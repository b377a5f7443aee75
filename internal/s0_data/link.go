package s0_data

import (
	"sort"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// IsPrimaryLink reports LINKPRIM C or P
func IsPrimaryLink(l Link) bool {
	return l.Primary == "C" || l.Primary == "P"
}

// Covers reports whether the link is active at t; an open link never ends
func (l Link) Covers(t time.Time) bool {
	if t.Before(l.Start) {
		return false
	}
	return l.End.IsZero() || !t.After(l.End)
}

// RebalanceDate returns the June after the calendar year end of a fiscal year end
// (datadate 2000-03-31 → 2001-06-30)
func RebalanceDate(dataDate time.Time) time.Time {
	yearEnd := time.Date(dataDate.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	return monthEndAfter(yearEnd, 6)
}

// LinkMerger attaches Compustat fundamentals to the June CRSP rows through the CCM link table
// ⭐ SSOT: CCM 연결 규칙은 여기서만
type LinkMerger struct {
	logger *logger.Logger
}

// NewLinkMerger creates a new link merger
func NewLinkMerger(log *logger.Logger) *LinkMerger {
	return &LinkMerger{logger: log}
}

// Merge inner-joins fundamentals onto June rows by (PERMNO, rebalance date).
// count 는 Compustat 등장 횟수, 펀더멘털 항목은 float 컬럼으로 추가
func (m *LinkMerger) Merge(june *Panel, fundamentals []Fundamental, links []Link) *Panel {
	start := time.Now()

	byGVKey := make(map[string][]Link)
	for _, l := range links {
		if IsPrimaryLink(l) {
			byGVKey[l.GVKey] = append(byGVKey[l.GVKey], l)
		}
	}

	var (
		rows    []contracts.Observation
		matched []*Fundamental
		items   = make(map[string]struct{})
		unlink  int
	)
	for fi := range fundamentals {
		f := &fundamentals[fi]
		jdate := RebalanceDate(f.DataDate)
		linked := false
		for _, l := range byGVKey[f.GVKey] {
			if !l.Covers(jdate) {
				continue
			}
			i, ok := june.Lookup(l.PERMNO, jdate)
			if !ok {
				continue
			}
			linked = true
			o := june.Row(i)
			o.Count = f.Count
			if f.SIC != 0 {
				o.SIC = f.SIC
			}
			rows = append(rows, o)
			matched = append(matched, f)
			for k := range f.Values {
				items[k] = struct{}{}
			}
		}
		if !linked {
			unlink++
		}
	}

	// 결합 결과를 (PERMNO, jdate) 순으로 정렬
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := rows[order[a]], rows[order[b]]
		if ra.Entity != rb.Entity {
			return ra.Entity < rb.Entity
		}
		return ra.Date.Before(rb.Date)
	})
	sorted := make([]contracts.Observation, len(rows))
	for j, i := range order {
		sorted[j] = rows[i]
	}

	out := NewPanel(sorted)
	for name := range items {
		if isField(name) {
			continue
		}
		col := make([]float64, len(sorted))
		for j, i := range order {
			col[j] = matched[i].Value(name)
		}
		out, _ = out.WithColumn(name, col)
	}

	m.logger.WithStage(contracts.StageData).WithFields(map[string]interface{}{
		"fundamentals":  len(fundamentals),
		"snapshot_rows": out.Len(),
		"unmatched":     unlink,
		"items":         len(items),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	}).Info("Merged CCM snapshot")

	return out
}
