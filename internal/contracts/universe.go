package contracts

// UniverseStats summarises one universe filter pass
// ⭐ SSOT: S1 필터 결과 요약 (사유별 제외 건수)
type UniverseStats struct {
	Name     string         `json:"name"`
	Total    int            `json:"total"`
	Kept     int            `json:"kept"`
	Excluded map[string]int `json:"excluded"` // 제외 사유: 건수
}

// ExcludedCount returns the number of dropped rows
func (u UniverseStats) ExcludedCount() int {
	return u.Total - u.Kept
}

// Coverage returns the kept share of rows
func (u UniverseStats) Coverage() float64 {
	if u.Total == 0 {
		return 0
	}
	return float64(u.Kept) / float64(u.Total)
}
