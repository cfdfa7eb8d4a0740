package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/synap-insights/pkg/metrics"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

// Answer is one inbound answer. Raw may be a JSON string, number, array of
// strings (multi-select) or null.
type Answer struct {
	QuestionID string          `json:"question_id"`
	Raw        json.RawMessage `json:"answer"`
}

type SubmitRequest struct {
	RespondentToken string   `json:"respondent_token,omitempty"`
	Answers         []Answer `json:"answers"`
}

type SubmitResult struct {
	RespondentID    string `json:"respondent_id"`
	RespondentToken string `json:"respondent_token"`
	Count           int    `json:"count"`
}

// ResponseService records respondents' answers against a distribution.
type ResponseService struct {
	store       ResponseStore
	tokens      *RespondentTokens
	metrics     *metrics.Manager
	now         func() time.Time
	idGenerator func() string
}

func NewResponseService(store ResponseStore, tokens *RespondentTokens, m *metrics.Manager) *ResponseService {
	return &ResponseService{
		store:       store,
		tokens:      tokens,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: func() string { return shortID(12) },
	}
}

// Submit stores the answers for questions that belong to the distribution
// behind token and skips the rest. A valid respondent token keeps the
// respondent id across sections; otherwise a new id is issued.
func (s *ResponseService) Submit(ctx context.Context, token string, req SubmitRequest) (*SubmitResult, error) {
	if s.store == nil {
		return nil, errors.New("response service store is nil")
	}
	if len(req.Answers) == 0 {
		return nil, NewInvalidError("answers required")
	}
	d, err := activeDistribution(ctx, s.store, token)
	if err != nil {
		return nil, err
	}

	respondentID := ""
	if req.RespondentToken != "" {
		id, err := s.tokens.Verify(req.RespondentToken, d.ID)
		if err != nil {
			return nil, &ServiceError{Code: ErrorInvalid, Message: ErrInvalidRespondentToken.Error(), Err: err}
		}
		respondentID = id
	}
	if respondentID == "" {
		respondentID = s.idGenerator()
	}

	known := map[string]bool{}
	for _, setID := range d.SurveySetIDs {
		qs, err := s.store.ListQuestions(ctx, setID)
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			known[q.ID] = true
		}
	}

	submittedAt := s.now()
	rows := make([]analysis.Response, 0, len(req.Answers))
	for i, a := range req.Answers {
		if !known[a.QuestionID] {
			continue
		}
		value, err := rawAnswer(a.Raw)
		if err != nil {
			return nil, NewInvalidError(fmt.Sprintf("answer %d: %s", i, err.Error()))
		}
		rows = append(rows, analysis.Response{
			QuestionID:   a.QuestionID,
			RespondentID: respondentID,
			Answer:       value,
			SubmittedAt:  submittedAt,
		})
	}
	if len(rows) > 0 {
		if err := s.store.AddResponses(ctx, d.ID, rows); err != nil {
			return nil, fmt.Errorf("add responses: %w", err)
		}
	}
	s.metrics.AddResponsesSubmitted(len(rows))

	signed, err := s.tokens.Sign(d.ID, respondentID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{RespondentID: respondentID, RespondentToken: signed, Count: len(rows)}, nil
}

// rawAnswer flattens a JSON answer into the stored text form. Arrays are
// joined with ";" the way multi-select answers are stored.
func rawAnswer(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	case '[':
		var parts []any
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(parts))
		for _, p := range parts {
			switch v := p.(type) {
			case string:
				labels = append(labels, v)
			case float64:
				labels = append(labels, strconv.FormatFloat(v, 'f', -1, 64))
			default:
				return nil, fmt.Errorf("unsupported array element %v", p)
			}
		}
		s := strings.Join(labels, ";")
		return &s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		s := strconv.FormatBool(b)
		return &s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, errors.New("unsupported answer value")
		}
		s := n.String()
		return &s, nil
	}
}
