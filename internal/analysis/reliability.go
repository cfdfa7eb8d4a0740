package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CronbachAlpha computes Cronbach's alpha for a [respondents][items] matrix
// using population variance throughout, so perfectly correlated items give 1.
// Degenerate input (fewer than two items, ragged rows, no total variance)
// gives 0. The result is clamped to [0, 1].
func CronbachAlpha(matrix [][]float64) float64 {
	n := len(matrix)
	if n == 0 {
		return 0
	}
	k := len(matrix[0])
	if k < 2 {
		return 0
	}
	totals := make([]float64, n)
	column := make([]float64, n)
	var sumItemVars float64
	for j := 0; j < k; j++ {
		for i, row := range matrix {
			if len(row) != k {
				return 0
			}
			column[i] = row[j]
			totals[i] += row[j]
		}
		_, v := stat.PopMeanVariance(column, nil)
		sumItemVars += v
	}
	_, totalVar := stat.PopMeanVariance(totals, nil)
	if totalVar == 0 {
		return 0
	}
	kf := float64(k)
	alpha := (kf / (kf - 1)) * (1 - sumItemVars/totalVar)
	switch {
	case math.IsNaN(alpha), alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}
	return alpha
}

// ReliabilityMatrix builds the alpha input for the scale questions among qs:
// one row per respondent (sorted by id) who gave a valid numeric answer to
// every one of them. The first valid answer per respondent and question is used.
func ReliabilityMatrix(responses []Response, qs []Question) [][]float64 {
	scales := make([]Question, 0, len(qs))
	for _, q := range qs {
		if q.ParsedType().Kind == KindScale {
			scales = append(scales, q)
		}
	}
	if len(scales) == 0 {
		return nil
	}
	byRespondent := map[string]map[string]float64{}
	for _, q := range scales {
		for _, o := range Observe(responses, q) {
			m := byRespondent[o.RespondentID]
			if m == nil {
				m = map[string]float64{}
				byRespondent[o.RespondentID] = m
			}
			if _, seen := m[q.ID]; !seen {
				m[q.ID] = o.Value.Number
			}
		}
	}
	ids := make([]string, 0, len(byRespondent))
	for id, m := range byRespondent {
		if len(m) == len(scales) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	matrix := make([][]float64, 0, len(ids))
	for _, id := range ids {
		row := make([]float64, len(scales))
		for j, q := range scales {
			row[j] = byRespondent[id][q.ID]
		}
		matrix = append(matrix, row)
	}
	return matrix
}
