package contracts

import (
	"math"
	"time"
)

// Exchange codes (CRSP EXCHCD)
const (
	ExchangeNYSE   = 1
	ExchangeAMEX   = 2
	ExchangeNASDAQ = 3
)

// RebalanceMonth is the annual portfolio formation month (June)
const RebalanceMonth = time.June

// DefaultFiscalLag maps July..June onto one fiscal year
const DefaultFiscalLag = 6

// Observation is one entity-month (or one June snapshot row)
// ⭐ SSOT: 패널의 고정 필드. 팩터 값은 Panel 의 column store 에 보관
type Observation struct {
	Entity       int64     `json:"permno"`
	Date         time.Time `json:"date"`   // 월말 (jdate)
	Return       float64   `json:"retadj"` // 상장폐지 조정 수익률
	ReturnExDiv  float64   `json:"retx"`   // 배당 제외 수익률
	MarketEquity float64   `json:"me"`
	Weight       float64   `json:"wt"`     // 직전 리밸런싱 시가총액 × 가격 누적수익
	DecME        float64   `json:"dec_me"` // 전년 12월 시가총액 (스냅샷 전용)
	ShareCode    int       `json:"shrcd"`
	ExchangeCode int       `json:"exchcd"`
	SIC          int       `json:"sic,omitempty"`
	FiscalYear   int       `json:"ffyear"`
	Count        int       `json:"count"` // 이전 등장 횟수 (0 = 첫 등장)
}

// IsCommonShare reports whether the row is an ordinary common share (SHRCD 10/11)
func (o Observation) IsCommonShare() bool {
	return o.ShareCode == 10 || o.ShareCode == 11
}

// HasPositiveME reports me > 0 (NaN 은 false)
func (o Observation) HasPositiveME() bool {
	return o.MarketEquity > 0
}

// Key identifies an observation by entity and calendar month
type Key struct {
	Entity int64
	Month  int
}

// KeyOf returns the panel key of an observation
func KeyOf(o Observation) Key {
	return Key{Entity: o.Entity, Month: MonthIndex(o.Date)}
}

// MonthIndex maps a date to a dense month counter (year*12 + month-1)
func MonthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// MonthEnd returns the last calendar day of the month index
func MonthEnd(index int) time.Time {
	year, month := index/12, time.Month(index%12+1)
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// ToMonthEnd snaps a date to its month end
func ToMonthEnd(t time.Time) time.Time {
	return MonthEnd(MonthIndex(t))
}

// FiscalYear returns year(date − lagMonths)
// lag 6: 7월 Y ~ 6월 Y+1 → Y
func FiscalYear(t time.Time, lagMonths int) int {
	return (MonthIndex(t) - lagMonths) / 12
}

// FiscalMonth returns month(date − lagMonths), 1 = first month of the fiscal year
func FiscalMonth(t time.Time, lagMonths int) int {
	return (MonthIndex(t)-lagMonths)%12 + 1
}

// IsFinite reports whether v is neither NaN nor ±Inf
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Window is an inclusive date range
type Window struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether t lies inside the window
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// IsZero reports an unbounded window
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
