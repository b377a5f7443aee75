package transitions

import (
	"fmt"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// MonthsPerYear converts an annual lookback into a monthly row shift
const MonthsPerYear = 12

// Shift returns the row offset between the past and current bucket of cfg.
// 모멘텀: lookback 행, 연간 팩터: 12 × lookback 행 (lookback 0 은 1년)
func Shift(cfg contracts.SortConfig) int {
	if cfg.IsMomentum() {
		return cfg.LookbackPeriod
	}
	years := cfg.LookbackPeriod
	if years < 1 {
		years = 1
	}
	return MonthsPerYear * years
}

// Tracker pairs each row's current bucket with the bucket the same entity held shift rows earlier
// ⭐ SSOT: S5 전이 연결은 여기서만
type Tracker struct {
	logger *logger.Logger
}

// NewTracker creates a new transition tracker
func NewTracker(log *logger.Logger) *Tracker {
	return &Tracker{logger: log}
}

// Link walks every entity's rows in date order and looks back shift rows (not months).
// 두 라벨이 모두 있어야 연결, 행 수가 shift 이하인 종목은 연결 없음
func (t *Tracker) Link(rows *s0_data.Panel, current, past []string, shift int) ([]contracts.TransitionLink, error) {
	if shift < 1 {
		return nil, fmt.Errorf("%w: transition shift must be positive, got %d", contracts.ErrInvalidConfig, shift)
	}
	if len(current) != rows.Len() || len(past) != rows.Len() {
		return nil, fmt.Errorf("link: %w", contracts.ErrLengthMismatch)
	}

	byEntity := rows.ByEntity()
	var (
		links    []contracts.TransitionLink
		censored int
		unpaired int
	)
	for _, entity := range rows.Entities() {
		idx := byEntity[entity]
		if len(idx) <= shift {
			censored++
			continue
		}
		for k := shift; k < len(idx); k++ {
			i, j := idx[k], idx[k-shift]
			if current[i] == "" || past[j] == "" {
				unpaired++
				continue
			}
			o := rows.Row(i)
			links = append(links, contracts.TransitionLink{
				Entity:  entity,
				Date:    o.Date,
				Past:    past[j],
				Current: current[i],
				Return:  o.Return,
				Weight:  o.Weight,
			})
		}
	}

	t.logger.WithStage(contracts.StageTransitions).WithFields(map[string]interface{}{
		"rows":     rows.Len(),
		"shift":    shift,
		"links":    len(links),
		"censored": censored,
		"unpaired": unpaired,
	}).Debug("Linked transitions")
	return links, nil
}
