package analysis

import (
	"math"
	"strconv"
	"strings"
)

// Bucket is one distinct value and how many times it was chosen.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FrequencyResult summarizes the answers to a single question.
type FrequencyResult struct {
	QuestionID string `json:"question_id"`
	Category   string `json:"category"`
	Text       string `json:"text,omitempty"`
	Type       string `json:"type"`
	// RawCount is every row for the question, including unusable answers.
	RawCount int `json:"raw_count"`
	// Count is the number of rows that normalized to a value.
	Count             int      `json:"count"`
	UniqueRespondents int      `json:"unique_respondents"`
	Buckets           []Bucket `json:"buckets,omitempty"`
	// Average is only meaningful for scale questions and is 0 without data.
	Average float64  `json:"average"`
	HasData bool     `json:"has_data"`
	Texts   []string `json:"texts,omitempty"`
}

// bucketCounter keeps buckets in declaration order and appends values it
// has not seen before in first-seen order.
type bucketCounter struct {
	index   map[string]int
	buckets []Bucket
}

func newBucketCounter(declared []string) *bucketCounter {
	bc := &bucketCounter{index: make(map[string]int, len(declared))}
	for _, d := range declared {
		bc.declare(d)
	}
	return bc
}

func (bc *bucketCounter) declare(value string) int {
	if i, ok := bc.index[value]; ok {
		return i
	}
	bc.index[value] = len(bc.buckets)
	bc.buckets = append(bc.buckets, Bucket{Value: value})
	return len(bc.buckets) - 1
}

func (bc *bucketCounter) add(value string) {
	bc.buckets[bc.declare(value)].Count++
}

func scaleLabels(points int) []string {
	out := make([]string, 0, points)
	for i := 1; i <= points; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

func trimmedOptions(opts []string) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Aggregate computes the frequency distribution of q's answers. Rows for
// other questions are ignored.
func Aggregate(responses []Response, q Question) FrequencyResult {
	t := q.ParsedType()
	rows := ForQuestion(responses, q.ID)
	res := FrequencyResult{
		QuestionID:        q.ID,
		Category:          q.CategoryLabel(),
		Text:              q.Text,
		Type:              t.String(),
		RawCount:          len(rows),
		UniqueRespondents: UniqueRespondents(rows),
	}

	switch t.Kind {
	case KindScale:
		bc := newBucketCounter(scaleLabels(t.Points))
		var mean runningMean
		for _, r := range rows {
			v := Normalize(r.Answer, t)
			if v.IsMissing() {
				continue
			}
			res.Count++
			mean.add(v.Number)
			if v.Number == math.Trunc(v.Number) && v.Number >= 1 && v.Number <= float64(t.Points) {
				bc.add(FormatNumber(v.Number))
			}
		}
		res.Buckets = bc.buckets
		if res.Count > 0 {
			res.Average = Round2(mean.value)
			res.HasData = true
		}
	case KindSingleChoice, KindMultipleChoice:
		bc := newBucketCounter(trimmedOptions(q.Options))
		for _, r := range rows {
			v := Normalize(r.Answer, t)
			if v.IsMissing() {
				continue
			}
			res.Count++
			for _, label := range v.Labels() {
				bc.add(label)
			}
		}
		res.Buckets = bc.buckets
		res.HasData = res.Count > 0
	default:
		res.Texts = make([]string, 0, len(rows))
		for _, r := range rows {
			v := Normalize(r.Answer, t)
			if v.IsMissing() {
				continue
			}
			res.Count++
			res.Texts = append(res.Texts, v.Str)
		}
		res.HasData = res.Count > 0
	}
	return res
}

// runningMean keeps the mean of finite values without a running sum, so
// answers near the float64 limit cannot push it to infinity.
type runningMean struct {
	value float64
	n     int
}

func (m *runningMean) add(x float64) {
	m.n++
	nf := float64(m.n)
	m.value += x/nf - m.value/nf
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(f float64) float64 {
	r := math.Round(f*100) / 100
	if math.IsInf(r, 0) {
		return f
	}
	return r
}
