package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

// CatalogService manages companies, question sets and their questions.
type CatalogService struct {
	store       CatalogStore
	now         func() time.Time
	idGenerator func() string
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: func() string { return shortID(12) },
	}
}

func (s *CatalogService) CreateCompany(ctx context.Context, name string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("name required")
	}
	c := &Company{ID: s.idGenerator(), Name: name, CreatedAt: s.now()}
	if err := s.store.CreateCompany(ctx, c); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return c, nil
}

type QuestionInput struct {
	ID       string   `json:"id,omitempty"`
	Category string   `json:"category"`
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Order    int      `json:"order"`
}

type CreateQuestionSetRequest struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	CompanyID string          `json:"company_id,omitempty"`
	Questions []QuestionInput `json:"questions"`
}

type QuestionSetView struct {
	Set       *QuestionSet        `json:"set"`
	Questions []analysis.Question `json:"questions"`
}

func (s *CatalogService) CreateQuestionSet(ctx context.Context, req CreateQuestionSetRequest) (*QuestionSetView, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewInvalidError("name required")
	}
	if req.CompanyID != "" {
		c, err := s.store.GetCompany(ctx, req.CompanyID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, NewNotFoundError("company not found")
		}
	}
	set := &QuestionSet{ID: req.ID, CompanyID: req.CompanyID, Name: strings.TrimSpace(req.Name), Type: req.Type, CreatedAt: s.now()}
	if set.ID == "" {
		set.ID = s.idGenerator()
	} else if existing, err := s.store.GetQuestionSet(ctx, set.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewConflictError("question set already exists")
	}

	questions := make([]analysis.Question, 0, len(req.Questions))
	for i, in := range req.Questions {
		if err := validateQuestion(in.Type, in.Options); err != nil {
			return nil, NewInvalidError(fmt.Sprintf("question %d: %s", i, err.Error()))
		}
		q := analysis.Question{
			ID:          in.ID,
			SurveySetID: set.ID,
			Category:    strings.TrimSpace(in.Category),
			Text:        in.Text,
			Type:        in.Type,
			Options:     in.Options,
			Order:       in.Order,
		}
		if q.ID == "" {
			q.ID = s.idGenerator()
		}
		questions = append(questions, q)
	}
	SortQuestions(questions)
	if err := s.store.CreateQuestionSet(ctx, set, questions); err != nil {
		return nil, fmt.Errorf("create question set: %w", err)
	}
	return &QuestionSetView{Set: set, Questions: questions}, nil
}

func (s *CatalogService) Questions(ctx context.Context, setID string) (*QuestionSetView, error) {
	set, err := s.store.GetQuestionSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, NewNotFoundError("question set not found")
	}
	qs, err := s.store.ListQuestions(ctx, setID)
	if err != nil {
		return nil, err
	}
	return &QuestionSetView{Set: set, Questions: qs}, nil
}

// Seed imports the catalogue when the store holds no question sets yet.
// It reports how many sets were imported.
func (s *CatalogService) Seed(ctx context.Context, c *Catalog) (int, error) {
	n, err := s.store.CountQuestionSets(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 || c == nil {
		return 0, nil
	}
	for _, cs := range c.Sets {
		set := &QuestionSet{ID: cs.ID, Name: cs.Name, Type: cs.Type, CreatedAt: s.now()}
		if set.Name == "" {
			set.Name = cs.ID
		}
		if err := s.store.CreateQuestionSet(ctx, set, cs.AsQuestions()); err != nil {
			return 0, fmt.Errorf("seed question set %s: %w", cs.ID, err)
		}
	}
	return len(c.Sets), nil
}
