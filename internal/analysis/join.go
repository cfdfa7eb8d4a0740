package analysis

// Observation is one normalized, non-missing answer tied to its respondent.
type Observation struct {
	RespondentID string
	Value        Value
}

// Observe normalizes q's rows and drops the ones without a usable value.
func Observe(responses []Response, q Question) []Observation {
	t := q.ParsedType()
	out := []Observation{}
	for _, r := range responses {
		if r.QuestionID != q.ID {
			continue
		}
		v := Normalize(r.Answer, t)
		if v.IsMissing() {
			continue
		}
		out = append(out, Observation{RespondentID: r.RespondentID, Value: v})
	}
	return out
}

// JoinedPair is a respondent's answer on both sides of a join.
type JoinedPair struct {
	RespondentID string
	A            Value
	B            Value
}

// JoinOnRespondent inner-joins two observation lists on respondent id.
// Duplicate rows are not collapsed: a respondent with m rows on one side and
// n on the other yields m*n pairs. Output follows the order of a, then b.
func JoinOnRespondent(a, b []Observation) []JoinedPair {
	byRespondent := make(map[string][]Value, len(b))
	for _, o := range b {
		byRespondent[o.RespondentID] = append(byRespondent[o.RespondentID], o.Value)
	}
	out := []JoinedPair{}
	for _, oa := range a {
		for _, vb := range byRespondent[oa.RespondentID] {
			out = append(out, JoinedPair{RespondentID: oa.RespondentID, A: oa.Value, B: vb})
		}
	}
	return out
}
