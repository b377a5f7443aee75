package contracts

import "time"

// DataQualitySnapshot is the input coverage report handed from S0 to the sorting stages
// ⭐ SSOT: S0 → S1 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	Start        time.Time          `json:"start"` // 점검 구간 (월별 패널 기준)
	End          time.Time          `json:"end"`
	MonthlyRows  int                `json:"monthly_rows"`
	SnapshotRows int                `json:"snapshot_rows"`
	Entities     int                `json:"entities"`
	Coverage     map[string]float64 `json:"coverage"`      // 항목별 커버리지 (0.0 ~ 1.0)
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`        // 모든 최소 커버리지 충족 여부
	Failures     []string           `json:"failures,omitempty"`
}

// IsValid checks if the snapshot meets minimum requirements
func (d *DataQualitySnapshot) IsValid() bool {
	return d.QualityScore >= 0.7 && d.Entities > 0
}

// CoverageRate returns the average coverage rate across all items
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
