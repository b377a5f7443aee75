package factors

import (
	"fmt"
	"math"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// LongShortName is the series name of a high-minus-low factor
const LongShortName = "H-L"

// Combine returns sign·(high − low) over the periods of table inside window.
// 어느 한쪽이 없는 기간은 NaN
func Combine(table *contracts.ReturnTable, high, low string, sign int, window contracts.Window) (contracts.Series, error) {
	if sign != 1 && sign != -1 {
		return contracts.Series{}, fmt.Errorf("%w: sign must be +1 or -1, got %d", contracts.ErrInvalidConfig, sign)
	}
	if high == low {
		return contracts.Series{}, fmt.Errorf("%w: high and low labels are both %q", contracts.ErrInvalidConfig, high)
	}

	dates := windowDates(table, window)
	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = float64(sign) * (table.Value(d, high) - table.Value(d, low))
	}
	return contracts.Series{Name: LongShortName, Dates: dates, Values: values}, nil
}

// Average returns the equal-weighted mean of labels per period inside window.
// 하나라도 없으면 NaN
func Average(table *contracts.ReturnTable, labels []string, window contracts.Window) contracts.Series {
	dates := windowDates(table, window)
	values := make([]float64, len(dates))
	for i, d := range dates {
		sum := 0.0
		for _, l := range labels {
			sum += table.Value(d, l)
		}
		values[i] = sum / float64(len(labels))
	}
	return contracts.Series{Dates: dates, Values: values}
}

// MeanOf averages series over their common months
func MeanOf(name string, series ...contracts.Series) contracts.Series {
	if len(series) == 0 {
		return contracts.Series{Name: name}
	}

	counts := make(map[int]int)
	sums := make(map[int]float64)
	for _, s := range series {
		for i, d := range s.Dates {
			m := contracts.MonthIndex(d)
			counts[m]++
			sums[m] += s.Values[i]
		}
	}

	out := contracts.Series{Name: name}
	for _, d := range series[0].Dates {
		m := contracts.MonthIndex(d)
		if counts[m] != len(series) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Values = append(out.Values, sums[m]/float64(len(series)))
	}
	return out
}

// windowDates lists the table periods inside window (zero window = all)
func windowDates(table *contracts.ReturnTable, window contracts.Window) []time.Time {
	all := table.Dates()
	if window.IsZero() {
		return all
	}
	dates := make([]time.Time, 0, len(all))
	for _, d := range all {
		if window.Contains(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// nanSeries reports whether every point is missing
func nanSeries(s contracts.Series) bool {
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
