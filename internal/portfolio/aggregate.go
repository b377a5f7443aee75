package portfolio

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// WeightedMean returns Σ(v·w)/Σw over rows with both v and w present.
// 가중치 합이 0 이면 NaN
func WeightedMean(values, weights []float64) float64 {
	v := make([]float64, 0, len(values))
	w := make([]float64, 0, len(weights))
	for i := range values {
		if i >= len(weights) || math.IsNaN(values[i]) || math.IsNaN(weights[i]) {
			continue
		}
		v = append(v, values[i])
		w = append(w, weights[i])
	}
	total := floats.Sum(w)
	if len(w) == 0 || total == 0 {
		return math.NaN()
	}
	return floats.Dot(v, w) / total
}

// Aggregator computes value-weighted returns per (period, label)
// ⭐ SSOT: S3 가치가중 집계는 여기서만
type Aggregator struct {
	logger *logger.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(log *logger.Logger) *Aggregator {
	return &Aggregator{logger: log}
}

type cell struct {
	month int
	label string
}

// Aggregate groups rows by (period, label) and value-weights valueCol by weightCol.
// 라벨이 "" 인 행은 제외
func (a *Aggregator) Aggregate(panel *s0_data.Panel, labels []string, valueCol, weightCol string) (*contracts.ReturnTable, error) {
	if len(labels) != panel.Len() {
		return nil, fmt.Errorf("%w: %d labels for %d rows", contracts.ErrLengthMismatch, len(labels), panel.Len())
	}
	values, err := panel.Float(valueCol)
	if err != nil {
		return nil, fmt.Errorf("aggregate value: %w", err)
	}
	weights, err := panel.Float(weightCol)
	if err != nil {
		return nil, fmt.Errorf("aggregate weight: %w", err)
	}

	groups := make(map[cell][]int)
	dates := make(map[int]contracts.Observation)
	for i, o := range panel.Rows() {
		if labels[i] == "" {
			continue
		}
		m := contracts.MonthIndex(o.Date)
		k := cell{month: m, label: labels[i]}
		groups[k] = append(groups[k], i)
		if _, ok := dates[m]; !ok {
			dates[m] = o
		}
	}

	keys := make([]cell, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month < keys[j].month
		}
		return keys[i].label < keys[j].label
	})

	table := contracts.NewReturnTable()
	empty := 0
	for _, k := range keys {
		idx := groups[k]
		v := make([]float64, len(idx))
		w := make([]float64, len(idx))
		for j, i := range idx {
			v[j], w[j] = values[i], weights[i]
		}
		ret := WeightedMean(v, w)
		if math.IsNaN(ret) {
			empty++
		}
		table.Add(contracts.PortfolioReturn{
			Date:    dates[k.month].Date,
			Label:   k.label,
			Return:  ret,
			Weight:  nanSum(w),
			Members: len(idx),
		})
	}

	a.logger.WithFields(map[string]interface{}{
		"cells": table.Len(),
		"empty": empty,
	}).Debug("Aggregated value-weighted returns")

	return table, nil
}

// CapitalizationShare returns, per label, the member-weighted average of
// label weight / period weight
func CapitalizationShare(table *contracts.ReturnTable) map[string]float64 {
	totals := make(map[int]float64)
	for _, r := range table.Rows() {
		totals[contracts.MonthIndex(r.Date)] += r.Weight
	}
	num := make(map[string]float64)
	den := make(map[string]float64)
	for _, r := range table.Rows() {
		total := totals[contracts.MonthIndex(r.Date)]
		if total == 0 {
			continue
		}
		num[r.Label] += float64(r.Members) * r.Weight / total
		den[r.Label] += float64(r.Members)
	}
	out := make(map[string]float64, len(num))
	for l, n := range num {
		out[l] = n / den[l]
	}
	return out
}

func nanSum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		if !math.IsNaN(x) {
			s += x
		}
	}
	return s
}
