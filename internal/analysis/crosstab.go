package analysis

import (
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dimension describes one axis of a cross-tabulation.
type Dimension struct {
	QuestionID string `json:"question_id"`
	Category   string `json:"category"`
	Text       string `json:"text,omitempty"`
	Type       string `json:"type"`
}

func dimensionOf(q Question) Dimension {
	return Dimension{QuestionID: q.ID, Category: q.CategoryLabel(), Text: q.Text, Type: q.ParsedType().String()}
}

// ChiSquareTest is Pearson's test of independence over a contingency table.
type ChiSquareTest struct {
	Statistic float64 `json:"statistic"`
	DF        int     `json:"df"`
	PValue    float64 `json:"p_value"`
}

// CrossTabResult is a two-dimensional contingency table between two questions.
type CrossTabResult struct {
	Dimension1 Dimension `json:"dimension1"`
	Dimension2 Dimension `json:"dimension2"`
	// Rows and Columns list the values observed among joined respondents,
	// in first-seen order.
	Rows    []string                  `json:"rows"`
	Columns []string                  `json:"columns"`
	Matrix  map[string]map[string]int `json:"matrix"`
	// Marginal1 and Marginal2 are computed from each side's own rows, not
	// from the matrix.
	Marginal1 []Bucket `json:"marginal1"`
	Marginal2 []Bucket `json:"marginal2"`
	// Pairs is the number of joined respondent pairs that reached the matrix.
	Pairs        int            `json:"pairs"`
	Insufficient bool           `json:"insufficient"`
	Reason       string         `json:"reason,omitempty"`
	ChiSquare    *ChiSquareTest `json:"chi_square,omitempty"`
}

// Cell returns the count for the (row, col) pair.
func (c CrossTabResult) Cell(row, col string) int {
	return c.Matrix[row][col]
}

// Total sums every cell in the matrix.
func (c CrossTabResult) Total() int {
	n := 0
	for _, cols := range c.Matrix {
		for _, v := range cols {
			n += v
		}
	}
	return n
}

// Marginal counts q's own answers the way Aggregate buckets them. Free-text
// answers are counted per distinct string.
func Marginal(responses []Response, q Question) []Bucket {
	if q.ParsedType().Kind != KindText {
		return Aggregate(responses, q).Buckets
	}
	bc := newBucketCounter(nil)
	for _, o := range Observe(responses, q) {
		bc.add(o.Value.Str)
	}
	return bc.buckets
}

// CrossTab builds the contingency table of qa against qb. Only respondents
// with a usable answer on both sides are counted in the matrix; numeric
// answers are keyed by their string form and multi-select answers count
// once per selection.
func CrossTab(responsesA, responsesB []Response, qa, qb Question) CrossTabResult {
	res := CrossTabResult{
		Dimension1: dimensionOf(qa),
		Dimension2: dimensionOf(qb),
		Rows:       []string{},
		Columns:    []string{},
		Matrix:     map[string]map[string]int{},
		Marginal1:  Marginal(responsesA, qa),
		Marginal2:  Marginal(responsesB, qb),
	}

	obsA := Observe(responsesA, qa)
	obsB := Observe(responsesB, qb)
	if len(obsA) == 0 || len(obsB) == 0 {
		res.Insufficient = true
		res.Reason = "no responses for one of the questions"
		return res
	}
	pairs := JoinOnRespondent(obsA, obsB)
	if len(pairs) == 0 {
		res.Insufficient = true
		res.Reason = "no respondent answered both questions"
		return res
	}

	rowSeen := map[string]bool{}
	colSeen := map[string]bool{}
	for _, p := range pairs {
		for _, ra := range p.A.Labels() {
			if !rowSeen[ra] {
				rowSeen[ra] = true
				res.Rows = append(res.Rows, ra)
			}
			if res.Matrix[ra] == nil {
				res.Matrix[ra] = map[string]int{}
			}
			for _, cb := range p.B.Labels() {
				if !colSeen[cb] {
					colSeen[cb] = true
					res.Columns = append(res.Columns, cb)
				}
				res.Matrix[ra][cb]++
			}
		}
	}
	res.Pairs = len(pairs)
	res.ChiSquare = chiSquare(res)
	return res
}

func chiSquare(c CrossTabResult) *ChiSquareTest {
	r, k := len(c.Rows), len(c.Columns)
	if r < 2 || k < 2 {
		return nil
	}
	rowTotals := make([]float64, r)
	colTotals := make([]float64, k)
	var n float64
	for i, row := range c.Rows {
		for j, col := range c.Columns {
			v := float64(c.Cell(row, col))
			rowTotals[i] += v
			colTotals[j] += v
			n += v
		}
	}
	if n == 0 {
		return nil
	}
	obs := make([]float64, 0, r*k)
	exp := make([]float64, 0, r*k)
	for i, row := range c.Rows {
		for j, col := range c.Columns {
			e := rowTotals[i] * colTotals[j] / n
			if e == 0 {
				continue
			}
			obs = append(obs, float64(c.Cell(row, col)))
			exp = append(exp, e)
		}
	}
	df := (r - 1) * (k - 1)
	x2 := stat.ChiSquare(obs, exp)
	dist := distuv.ChiSquared{K: float64(df)}
	return &ChiSquareTest{Statistic: x2, DF: df, PValue: dist.Survival(x2)}
}
