package s0_data

import (
	"fmt"
	"math"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

type fiscalKey struct {
	entity int64
	year   int
}

// Aligner broadcasts annual snapshot columns onto the monthly panel
// ⭐ SSOT: June 리밸런싱 규칙 (fiscal year Y = 7월 Y ~ 6월 Y+1)
type Aligner struct {
	logger    *logger.Logger
	lagMonths int
}

// NewAligner creates an aligner; lagMonths 6 gives the July..June convention
func NewAligner(log *logger.Logger, lagMonths int) *Aligner {
	return &Aligner{
		logger:    log,
		lagMonths: lagMonths,
	}
}

// Align attaches the named annual columns and labels to every monthly row.
// 월별 패널이 항상 left side. 매칭되는 스냅샷이 없으면 NaN / "" 로 채움
func (a *Aligner) Align(monthly, annual *Panel, columns, labels []string) (*Panel, error) {
	if a.lagMonths < 0 || a.lagMonths > 11 {
		return nil, fmt.Errorf("%w: fiscal lag must be in [0, 11], got %d", contracts.ErrInvalidConfig, a.lagMonths)
	}

	// 스냅샷 fiscal year = year(jdate). 중복은 첫 행 우선
	source := make(map[fiscalKey]int, annual.Len())
	duplicates := 0
	for i, r := range annual.Rows() {
		k := fiscalKey{entity: r.Entity, year: r.Date.Year()}
		if _, ok := source[k]; ok {
			duplicates++
			continue
		}
		source[k] = i
	}
	if duplicates > 0 {
		a.logger.WithFields(map[string]interface{}{
			"duplicates": duplicates,
		}).Warn("Annual snapshot has duplicate (entity, fiscal year) rows; first row kept")
	}

	match := make([]int, monthly.Len())
	matched := 0
	for i, r := range monthly.Rows() {
		k := fiscalKey{entity: r.Entity, year: contracts.FiscalYear(r.Date, a.lagMonths)}
		j, ok := source[k]
		if !ok {
			match[i] = -1
			continue
		}
		match[i] = j
		matched++
	}

	out := monthly
	for _, name := range columns {
		src, err := annual.Float(name)
		if err != nil {
			return nil, fmt.Errorf("align column: %w", err)
		}
		dst := make([]float64, monthly.Len())
		for i, j := range match {
			if j < 0 {
				dst[i] = math.NaN()
				continue
			}
			dst[i] = src[j]
		}
		if out, err = out.WithColumn(name, dst); err != nil {
			return nil, err
		}
	}
	for _, name := range labels {
		src, err := annual.Labels(name)
		if err != nil {
			return nil, fmt.Errorf("align labels: %w", err)
		}
		dst := make([]string, monthly.Len())
		for i, j := range match {
			if j >= 0 {
				dst[i] = src[j]
			}
		}
		if out, err = out.WithLabels(name, dst); err != nil {
			return nil, err
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"monthly_rows": monthly.Len(),
		"matched":      matched,
		"columns":      len(columns),
		"labels":       len(labels),
	}).Debug("Aligned annual snapshot onto monthly panel")

	return out, nil
}
