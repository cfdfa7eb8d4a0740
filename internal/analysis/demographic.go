package analysis

// OutcomeAverage is the mean answer to one scale question within a subgroup.
type OutcomeAverage struct {
	QuestionID string  `json:"question_id"`
	Average    float64 `json:"average"`
	Count      int     `json:"count"`
	HasData    bool    `json:"has_data"`
}

// DemographicOption is one subgroup of a demographic question.
type DemographicOption struct {
	Option          string           `json:"option"`
	RespondentCount int              `json:"respondent_count"`
	Outcomes        []OutcomeAverage `json:"outcomes"`
}

// DemographicResult breaks outcome averages down by demographic option.
type DemographicResult struct {
	Question     Dimension           `json:"question"`
	Distribution []Bucket            `json:"distribution"`
	Options      []DemographicOption `json:"options"`
	Insufficient bool                `json:"insufficient"`
	Reason       string              `json:"reason,omitempty"`
}

// BreakdownByDemographic splits respondents by their answer to demo and,
// for every scale question in outcomes, averages each subgroup's answers.
func BreakdownByDemographic(responses []Response, demo Question, outcomes []Question) DemographicResult {
	res := DemographicResult{
		Question:     dimensionOf(demo),
		Distribution: Marginal(responses, demo),
		Options:      []DemographicOption{},
	}
	if !demo.ParsedType().Categorical() {
		res.Insufficient = true
		res.Reason = "demographic question is not a choice question"
		return res
	}

	members := map[string]map[string]bool{}
	for _, o := range Observe(responses, demo) {
		for _, label := range o.Value.Labels() {
			if members[label] == nil {
				members[label] = map[string]bool{}
			}
			members[label][o.RespondentID] = true
		}
	}
	if len(members) == 0 {
		res.Insufficient = true
		res.Reason = "no responses for the demographic question"
	}

	scales := make([]Question, 0, len(outcomes))
	for _, q := range outcomes {
		if q.ID != demo.ID && q.ParsedType().Kind == KindScale {
			scales = append(scales, q)
		}
	}
	observed := make(map[string][]Observation, len(scales))
	for _, q := range scales {
		observed[q.ID] = Observe(responses, q)
	}

	for _, b := range res.Distribution {
		group := members[b.Value]
		opt := DemographicOption{Option: b.Value, RespondentCount: len(group), Outcomes: make([]OutcomeAverage, 0, len(scales))}
		for _, q := range scales {
			oa := OutcomeAverage{QuestionID: q.ID}
			var mean runningMean
			for _, o := range observed[q.ID] {
				if group[o.RespondentID] {
					mean.add(o.Value.Number)
				}
			}
			oa.Count = mean.n
			if oa.Count > 0 {
				oa.Average = Round2(mean.value)
				oa.HasData = true
			}
			opt.Outcomes = append(opt.Outcomes, oa)
		}
		res.Options = append(res.Options, opt)
	}
	return res
}
