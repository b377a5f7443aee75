package contracts

import (
	"math"
	"time"
)

// TransitionLink pairs an entity's current bucket with its bucket `shift` rows earlier
// ⭐ SSOT: S5 전이 추적 결과 단위
type TransitionLink struct {
	Entity  int64     `json:"permno"`
	Date    time.Time `json:"date"`
	Past    string    `json:"past"`
	Current string    `json:"current"`
	Return  float64   `json:"retadj"`
	Weight  float64   `json:"wt"`
}

// TransitionMatrix is a square (past × current) contingency table
// Probabilities 는 퍼센트, 합계 0 인 행은 전부 NaN (행 자체는 유지)
type TransitionMatrix struct {
	Name          string      `json:"name"`
	Labels        []string    `json:"labels"`
	Counts        [][]int     `json:"counts"`
	Probabilities [][]float64 `json:"probabilities"`
	Links         int         `json:"links"`
}

// RowTotal returns the number of links starting in past bucket i
func (m TransitionMatrix) RowTotal(i int) int {
	total := 0
	for _, c := range m.Counts[i] {
		total += c
	}
	return total
}

// IndexOf returns the position of a label, -1 when unknown
func (m TransitionMatrix) IndexOf(label string) int {
	for i, l := range m.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Cell returns the count and probability of (past, current)
func (m TransitionMatrix) Cell(past, current string) (int, float64, bool) {
	i, j := m.IndexOf(past), m.IndexOf(current)
	if i < 0 || j < 0 {
		return 0, math.NaN(), false
	}
	return m.Counts[i][j], m.Probabilities[i][j], true
}

// RowPercentages normalises each row of counts to percent; 합계 0 인 행은 NaN
func RowPercentages(counts [][]int) [][]float64 {
	out := make([][]float64, len(counts))
	for i, row := range counts {
		total := 0
		for _, c := range row {
			total += c
		}
		out[i] = make([]float64, len(row))
		for j, c := range row {
			if total == 0 {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = 100 * float64(c) / float64(total)
		}
	}
	return out
}
