package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

// DistributionService publishes question sets and serves them to respondents.
type DistributionService struct {
	store       DistributionStore
	tokens      *RespondentTokens
	baseURL     string
	now         func() time.Time
	idGenerator func() string
}

func NewDistributionService(store DistributionStore, tokens *RespondentTokens, baseURL string) *DistributionService {
	return &DistributionService{
		store:       store,
		tokens:      tokens,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: func() string { return shortID(12) },
	}
}

type CreateDistributionRequest struct {
	CompanyID    string   `json:"company_id"`
	SurveySetIDs []string `json:"survey_set_ids"`
}

func (s *DistributionService) Create(ctx context.Context, req CreateDistributionRequest) (*Distribution, error) {
	if req.CompanyID == "" {
		return nil, NewInvalidError("company_id required")
	}
	ids := dedupe(req.SurveySetIDs)
	if len(ids) == 0 {
		return nil, NewInvalidError("survey_set_ids required")
	}
	c, err := s.store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewNotFoundError("company not found")
	}
	for _, id := range ids {
		set, err := s.store.GetQuestionSet(ctx, id)
		if err != nil {
			return nil, err
		}
		if set == nil {
			return nil, NewNotFoundError(fmt.Sprintf("question set %s not found", id))
		}
	}
	token := uuid.NewString()
	d := &Distribution{
		ID:           s.idGenerator(),
		CompanyID:    req.CompanyID,
		SurveySetIDs: ids,
		Status:       StatusActive,
		AccessToken:  token,
		URL:          s.baseURL + "/survey/" + token,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateDistribution(ctx, d); err != nil {
		return nil, fmt.Errorf("create distribution: %w", err)
	}
	return d, nil
}

func (s *DistributionService) Get(ctx context.Context, id string) (*Distribution, error) {
	d, err := s.store.GetDistribution(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, distributionNotFound()
	}
	return d, nil
}

func (s *DistributionService) Close(ctx context.Context, id string) (*Distribution, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusClosed {
		return d, nil
	}
	ok, err := s.store.UpdateDistributionStatus(ctx, id, StatusClosed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, distributionNotFound()
	}
	d.Status = StatusClosed
	return d, nil
}

type SurveySection struct {
	Set       *QuestionSet        `json:"set"`
	Questions []analysis.Question `json:"questions"`
}

type SurveyView struct {
	DistributionID  string          `json:"distribution_id"`
	Sections        []SurveySection `json:"sections"`
	RespondentID    string          `json:"respondent_id"`
	RespondentToken string          `json:"respondent_token"`
}

// Survey resolves an access token to the questionnaire a respondent fills
// in and issues a respondent token for it.
func (s *DistributionService) Survey(ctx context.Context, token string) (*SurveyView, error) {
	d, err := activeDistribution(ctx, s.store, token)
	if err != nil {
		return nil, err
	}
	view := &SurveyView{DistributionID: d.ID, Sections: make([]SurveySection, 0, len(d.SurveySetIDs))}
	for _, id := range d.SurveySetIDs {
		set, err := s.store.GetQuestionSet(ctx, id)
		if err != nil {
			return nil, err
		}
		if set == nil {
			continue
		}
		qs, err := s.store.ListQuestions(ctx, id)
		if err != nil {
			return nil, err
		}
		view.Sections = append(view.Sections, SurveySection{Set: set, Questions: qs})
	}
	view.RespondentID = s.idGenerator()
	view.RespondentToken, err = s.tokens.Sign(d.ID, view.RespondentID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

type distributionByToken interface {
	GetDistributionByToken(ctx context.Context, token string) (*Distribution, error)
}

func activeDistribution(ctx context.Context, store distributionByToken, token string) (*Distribution, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewInvalidError("token required")
	}
	d, err := store.GetDistributionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, distributionNotFound()
	}
	if d.Status != StatusActive {
		return nil, distributionInactive()
	}
	return d, nil
}

// ParseSurveySetIDs decodes a stored set-id list. Legacy rows hold a JSON
// array, a comma-separated list or a single id.
func ParseSurveySetIDs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err == nil {
			return dedupe(ids)
		}
		raw = strings.Trim(raw, "[]")
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return dedupe(parts)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
