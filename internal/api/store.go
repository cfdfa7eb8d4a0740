package api

import (
	"context"
	"sort"
	"sync"

	"github.com/soaringjerry/synap-insights/internal/analysis"
	"github.com/soaringjerry/synap-insights/internal/services"
)

type storedResponse struct {
	distributionID string
	analysis.Response
}

type memoryStore struct {
	mu               sync.RWMutex
	companies        map[string]*services.Company
	sets             map[string]*services.QuestionSet
	questions        map[string]analysis.Question
	questionsBySet   map[string][]string
	distributions    map[string]*services.Distribution
	distributionsTok map[string]string
	responses        []storedResponse
}

// NewMemoryStore returns a Store that keeps everything in process memory.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		companies:        map[string]*services.Company{},
		sets:             map[string]*services.QuestionSet{},
		questions:        map[string]analysis.Question{},
		questionsBySet:   map[string][]string{},
		distributions:    map[string]*services.Distribution{},
		distributionsTok: map[string]string{},
	}
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) CreateCompany(_ context.Context, c *services.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.companies[c.ID] = &cp
	return nil
}

func (s *memoryStore) GetCompany(_ context.Context, id string) (*services.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) CreateQuestionSet(_ context.Context, set *services.QuestionSet, questions []analysis.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *set
	s.sets[set.ID] = &cp
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		q.SurveySetID = set.ID
		s.questions[q.ID] = q
		ids = append(ids, q.ID)
	}
	s.questionsBySet[set.ID] = ids
	return nil
}

func (s *memoryStore) GetQuestionSet(_ context.Context, id string) (*services.QuestionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[id]
	if !ok {
		return nil, nil
	}
	cp := *set
	return &cp, nil
}

func (s *memoryStore) CountQuestionSets(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets), nil
}

func (s *memoryStore) ListQuestions(_ context.Context, setID string) ([]analysis.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analysis.Question, 0, len(s.questionsBySet[setID]))
	for _, id := range s.questionsBySet[setID] {
		out = append(out, s.questions[id])
	}
	services.SortQuestions(out)
	return out, nil
}

func (s *memoryStore) GetQuestion(_ context.Context, id string) (*analysis.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (s *memoryStore) CreateDistribution(_ context.Context, d *services.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	cp.SurveySetIDs = append([]string(nil), d.SurveySetIDs...)
	s.distributions[d.ID] = &cp
	s.distributionsTok[d.AccessToken] = d.ID
	return nil
}

func (s *memoryStore) distribution(id string) *services.Distribution {
	d, ok := s.distributions[id]
	if !ok {
		return nil
	}
	cp := *d
	cp.SurveySetIDs = append([]string(nil), d.SurveySetIDs...)
	return &cp
}

func (s *memoryStore) GetDistribution(_ context.Context, id string) (*services.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distribution(id), nil
}

func (s *memoryStore) GetDistributionByToken(_ context.Context, token string) (*services.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.distributionsTok[token]
	if !ok {
		return nil, nil
	}
	return s.distribution(id), nil
}

func (s *memoryStore) UpdateDistributionStatus(_ context.Context, id string, status services.DistributionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.distributions[id]
	if !ok {
		return false, nil
	}
	d.Status = status
	return true, nil
}

func (s *memoryStore) AddResponses(_ context.Context, distributionID string, rs []analysis.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		s.responses = append(s.responses, storedResponse{distributionID: distributionID, Response: r})
	}
	return nil
}

func (s *memoryStore) ListResponsesPage(ctx context.Context, distributionID string, questionIDs []string, limit, offset int) ([]analysis.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(questionIDs))
	for _, id := range questionIDs {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []analysis.Response{}
	skipped := 0
	for _, r := range s.responses {
		if r.distributionID != distributionID || !want[r.QuestionID] {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, r.Response)
	}
	return out, nil
}

// companyIDs is used by tests to inspect state.
func (s *memoryStore) companyIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.companies))
	for id := range s.companies {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
