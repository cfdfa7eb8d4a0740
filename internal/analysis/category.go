package analysis

// CategoryResult aggregates every scale question sharing a category.
type CategoryResult struct {
	Category      string   `json:"category"`
	QuestionIDs   []string `json:"question_ids"`
	QuestionCount int      `json:"question_count"`
	// Count is the number of valid numeric scale answers in the category.
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	HasData bool    `json:"has_data"`
	// Alpha is Cronbach's alpha over the AlphaN respondents who answered
	// every scale question in the category.
	Alpha  float64 `json:"alpha"`
	AlphaN int     `json:"alpha_n"`
}

// SummarizeCategories groups questions by category (first-seen order) and
// averages the numeric answers of the scale questions in each group.
// Non-scale questions count toward QuestionCount only.
func SummarizeCategories(questions []Question, responses []Response) []CategoryResult {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	sums := map[string]*runningMean{}
	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok {
			continue
		}
		t := q.ParsedType()
		if t.Kind != KindScale {
			continue
		}
		v := Normalize(r.Answer, t)
		if v.IsMissing() {
			continue
		}
		c := q.CategoryLabel()
		if sums[c] == nil {
			sums[c] = &runningMean{}
		}
		sums[c].add(v.Number)
	}

	out := []CategoryResult{}
	for _, c := range Categories(questions) {
		members := QuestionsInCategory(questions, c)
		res := CategoryResult{Category: c, QuestionCount: len(members), QuestionIDs: make([]string, 0, len(members))}
		for _, q := range members {
			res.QuestionIDs = append(res.QuestionIDs, q.ID)
		}
		if m := sums[c]; m != nil && m.n > 0 {
			res.Count = m.n
			res.Average = Round2(m.value)
			res.HasData = true
		}
		matrix := ReliabilityMatrix(responses, members)
		res.AlphaN = len(matrix)
		res.Alpha = CronbachAlpha(matrix)
		out = append(out, res)
	}
	return out
}

// CategoryCrossTab cross-tabulates the first question of cat1 against the
// first question of cat2.
func CategoryCrossTab(questions []Question, responses []Response, cat1, cat2 string) CrossTabResult {
	q1 := QuestionsInCategory(questions, cat1)
	q2 := QuestionsInCategory(questions, cat2)
	if len(q1) == 0 || len(q2) == 0 {
		return CrossTabResult{
			Rows:         []string{},
			Columns:      []string{},
			Matrix:       map[string]map[string]int{},
			Insufficient: true,
			Reason:       "no question in the selected category",
		}
	}
	return CrossTab(responses, responses, q1[0], q2[0])
}
