package analysis

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Strength buckets |r|.
type Strength string

const (
	VeryStrong Strength = "very strong"
	Strong     Strength = "strong"
	Moderate   Strength = "moderate"
	Weak       Strength = "weak"
	VeryWeak   Strength = "very weak"
)

// Sign is the direction of a correlation.
type Sign string

const (
	Positive Sign = "positive"
	Negative Sign = "negative"
	NoSign   Sign = "none"
)

// MinPairs is the smallest sample a coefficient is computed for.
const MinPairs = 2

// Pair is one respondent's numeric answers on both axes.
type Pair struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CorrelationResult holds a Pearson coefficient and its interpretation.
// Coefficient is nil when fewer than MinPairs pairs were available.
type CorrelationResult struct {
	Coefficient  *float64 `json:"coefficient"`
	Strength     Strength `json:"strength,omitempty"`
	Sign         Sign     `json:"sign"`
	PairCount    int      `json:"pair_count"`
	Insufficient bool     `json:"insufficient"`
}

// ClassifyStrength maps a coefficient onto its strength bucket.
func ClassifyStrength(r float64) Strength {
	a := math.Abs(r)
	switch {
	case a >= 0.9:
		return VeryStrong
	case a >= 0.7:
		return Strong
	case a >= 0.5:
		return Moderate
	case a >= 0.3:
		return Weak
	default:
		return VeryWeak
	}
}

// ClassifySign returns the direction of r.
func ClassifySign(r float64) Sign {
	switch {
	case r > 0:
		return Positive
	case r < 0:
		return Negative
	default:
		return NoSign
	}
}

// Correlate computes Pearson's r over pairs. An axis without variance gives
// r = 0 rather than NaN.
func Correlate(pairs []Pair) CorrelationResult {
	res := CorrelationResult{PairCount: len(pairs), Sign: NoSign}
	if len(pairs) < MinPairs {
		res.Insufficient = true
		return res
	}
	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		xs[i], ys[i] = p.X, p.Y
	}
	var r float64
	if !constant(xs) && !constant(ys) {
		r = stat.Correlation(xs, ys, nil)
		if math.IsNaN(r) {
			r = 0
		}
		r = math.Max(-1, math.Min(1, r))
	}
	res.Coefficient = &r
	res.Strength = ClassifyStrength(r)
	res.Sign = ClassifySign(r)
	return res
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// NumericValue converts a normalized answer into a number usable on a
// correlation axis. Scale answers are used directly; single-choice answers
// become the 0-based index of the option. Free text is accepted only when it
// parses as a number. Multi-select answers are never numeric.
func NumericValue(v Value, q Question) (float64, bool) {
	switch v.Kind {
	case Numeric:
		return v.Number, true
	case Choice:
		if i, ok := q.OptionIndex(v.Str); ok {
			return float64(i), true
		}
		return 0, false
	case Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ScatterPoint is a plotted pair. For categorical axes points are
// aggregated and Count holds the number of respondents at that cell.
type ScatterPoint struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	XLabel string  `json:"x_label"`
	YLabel string  `json:"y_label"`
	Count  int     `json:"count"`
}

// QuestionCorrelation is the correlation between two questions plus the
// data needed to plot it.
type QuestionCorrelation struct {
	X      Dimension         `json:"x"`
	Y      Dimension         `json:"y"`
	Result CorrelationResult `json:"result"`
	Points []ScatterPoint    `json:"points"`
	// Heatmap is set when either axis is categorical; CrossTab then holds
	// the contingency view of the same pair. With a multi-select axis the
	// points are the cross-tab cells.
	Heatmap  bool            `json:"heatmap"`
	CrossTab *CrossTabResult `json:"crosstab,omitempty"`
}

func firstLabel(v Value) string {
	if l := v.Labels(); len(l) > 0 {
		return l[0]
	}
	return ""
}

// CorrelateQuestions joins the answers to qx and qy on respondent, converts
// them to numbers and correlates them. Pairs with a non-numeric side are
// left out of the coefficient.
func CorrelateQuestions(responsesX, responsesY []Response, qx, qy Question) QuestionCorrelation {
	out := QuestionCorrelation{X: dimensionOf(qx), Y: dimensionOf(qy), Points: []ScatterPoint{}}
	joined := JoinOnRespondent(Observe(responsesX, qx), Observe(responsesY, qy))

	pairs := make([]Pair, 0, len(joined))
	points := make([]ScatterPoint, 0, len(joined))
	for _, jp := range joined {
		x, okx := NumericValue(jp.A, qx)
		y, oky := NumericValue(jp.B, qy)
		if !okx || !oky {
			continue
		}
		pairs = append(pairs, Pair{X: x, Y: y})
		points = append(points, ScatterPoint{X: x, Y: y, XLabel: firstLabel(jp.A), YLabel: firstLabel(jp.B), Count: 1})
	}
	out.Result = Correlate(pairs)

	if qx.ParsedType().Categorical() || qy.ParsedType().Categorical() {
		out.Heatmap = true
		ct := CrossTab(responsesX, responsesY, qx, qy)
		out.CrossTab = &ct
		if qx.ParsedType().Kind == KindMultipleChoice || qy.ParsedType().Kind == KindMultipleChoice {
			out.Points = crossTabPoints(ct, qx, qy)
		} else {
			out.Points = aggregatePoints(points)
		}
		return out
	}
	out.Points = points
	return out
}

// crossTabPoints lays the non-empty cells of ct out as heatmap points.
// Multi-select answers have no numeric form, so their cells come from the table.
func crossTabPoints(ct CrossTabResult, qx, qy Question) []ScatterPoint {
	out := []ScatterPoint{}
	for i, row := range ct.Rows {
		for j, col := range ct.Columns {
			n := ct.Cell(row, col)
			if n == 0 {
				continue
			}
			out = append(out, ScatterPoint{
				X:      axisPosition(row, qx, i),
				Y:      axisPosition(col, qy, j),
				XLabel: row,
				YLabel: col,
				Count:  n,
			})
		}
	}
	return out
}

// axisPosition places a cross-tab label on a heatmap axis: scale labels at
// their number, declared options at their index, anything else at its
// first-seen position.
func axisPosition(label string, q Question, seen int) float64 {
	if q.ParsedType().Kind == KindScale {
		if f, err := strconv.ParseFloat(label, 64); err == nil {
			return f
		}
	}
	if i, ok := q.OptionIndex(label); ok {
		return float64(i)
	}
	return float64(seen)
}

func aggregatePoints(points []ScatterPoint) []ScatterPoint {
	type key struct{ x, y string }
	index := map[key]int{}
	out := []ScatterPoint{}
	for _, p := range points {
		k := key{p.XLabel, p.YLabel}
		if i, ok := index[k]; ok {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out
}
