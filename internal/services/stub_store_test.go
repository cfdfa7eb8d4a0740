package services

import (
	"context"
	"sort"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

type stubRow struct {
	distributionID string
	response       analysis.Response
}

type stubStore struct {
	companies     map[string]*Company
	sets          map[string]*QuestionSet
	questions     map[string][]analysis.Question
	distributions map[string]*Distribution
	rows          []stubRow
	pageCalls     int
}

func newStubStore() *stubStore {
	return &stubStore{
		companies:     map[string]*Company{},
		sets:          map[string]*QuestionSet{},
		questions:     map[string][]analysis.Question{},
		distributions: map[string]*Distribution{},
	}
}

func (s *stubStore) CreateCompany(_ context.Context, c *Company) error {
	cp := *c
	s.companies[c.ID] = &cp
	return nil
}

func (s *stubStore) GetCompany(_ context.Context, id string) (*Company, error) {
	if c, ok := s.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) CreateQuestionSet(_ context.Context, set *QuestionSet, qs []analysis.Question) error {
	cp := *set
	s.sets[set.ID] = &cp
	s.questions[set.ID] = append([]analysis.Question(nil), qs...)
	return nil
}

func (s *stubStore) GetQuestionSet(_ context.Context, id string) (*QuestionSet, error) {
	if set, ok := s.sets[id]; ok {
		cp := *set
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) CountQuestionSets(context.Context) (int, error) { return len(s.sets), nil }

func (s *stubStore) ListQuestions(_ context.Context, setID string) ([]analysis.Question, error) {
	out := append([]analysis.Question(nil), s.questions[setID]...)
	SortQuestions(out)
	return out, nil
}

func (s *stubStore) GetQuestion(_ context.Context, id string) (*analysis.Question, error) {
	for _, qs := range s.questions {
		for _, q := range qs {
			if q.ID == id {
				cp := q
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (s *stubStore) CreateDistribution(_ context.Context, d *Distribution) error {
	cp := *d
	s.distributions[d.ID] = &cp
	return nil
}

func (s *stubStore) GetDistribution(_ context.Context, id string) (*Distribution, error) {
	if d, ok := s.distributions[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) GetDistributionByToken(_ context.Context, token string) (*Distribution, error) {
	ids := make([]string, 0, len(s.distributions))
	for id := range s.distributions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if d := s.distributions[id]; d.AccessToken == token {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) UpdateDistributionStatus(_ context.Context, id string, status DistributionStatus) (bool, error) {
	d, ok := s.distributions[id]
	if !ok {
		return false, nil
	}
	d.Status = status
	return true, nil
}

func (s *stubStore) AddResponses(_ context.Context, distributionID string, rs []analysis.Response) error {
	for _, r := range rs {
		s.rows = append(s.rows, stubRow{distributionID: distributionID, response: r})
	}
	return nil
}

func (s *stubStore) ListResponsesPage(_ context.Context, distributionID string, questionIDs []string, limit, offset int) ([]analysis.Response, error) {
	s.pageCalls++
	want := map[string]bool{}
	for _, id := range questionIDs {
		want[id] = true
	}
	var matched []analysis.Response
	for _, row := range s.rows {
		if row.distributionID == distributionID && want[row.response.QuestionID] {
			matched = append(matched, row.response)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func ptr(s string) *string { return &s }

// seedSurvey builds a company, a wellbeing set, a demographic set and an
// active distribution "D1" with token "tok-1" over both.
func seedSurvey(s *stubStore) {
	s.companies["C1"] = &Company{ID: "C1", Name: "Acme"}
	s.sets["WB"] = &QuestionSet{ID: "WB", Name: "Wellbeing", Type: "survey"}
	s.sets["DEMO"] = &QuestionSet{ID: "DEMO", Name: "About you", Type: "Demographic"}
	s.questions["WB"] = []analysis.Question{
		{ID: "Q1", SurveySetID: "WB", Category: "Mood", Text: "I feel rested", Type: "scale_5", Order: 1},
		{ID: "Q2", SurveySetID: "WB", Category: "Mood", Text: "I feel calm", Type: "scale_5", Order: 2},
		{ID: "Q3", SurveySetID: "WB", Category: "Work", Text: "Workload", Type: "single_choice", Options: []string{"Low", "High"}, Order: 3},
	}
	s.questions["DEMO"] = []analysis.Question{
		{ID: "G", SurveySetID: "DEMO", Category: "Demographics", Text: "Team", Type: "single_choice", Options: []string{"Ops", "Dev"}},
	}
	s.distributions["D1"] = &Distribution{ID: "D1", CompanyID: "C1", SurveySetIDs: []string{"WB", "DEMO"}, Status: StatusActive, AccessToken: "tok-1"}
}

func addAnswers(s *stubStore, distributionID, respondentID string, answers map[string]string) {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.rows = append(s.rows, stubRow{distributionID: distributionID, response: analysis.Response{QuestionID: k, RespondentID: respondentID, Answer: ptr(answers[k])}})
	}
}
