package services

import (
	"strings"
	"time"
)

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionSet groups questions that are distributed together.
type QuestionSet struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id,omitempty"`
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Demographic reports whether the set holds demographic questions.
func (s *QuestionSet) Demographic() bool {
	return strings.Contains(strings.ToLower(s.Type), "demographic")
}

type DistributionStatus string

const (
	StatusActive DistributionStatus = "active"
	StatusClosed DistributionStatus = "closed"
)

// Distribution is one published instance of a survey. Responses are
// scoped to it.
type Distribution struct {
	ID           string             `json:"id"`
	CompanyID    string             `json:"company_id"`
	SurveySetIDs []string           `json:"survey_set_ids"`
	Status       DistributionStatus `json:"status"`
	AccessToken  string             `json:"access_token"`
	URL          string             `json:"url"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Includes reports whether setID is one of the distribution's sets.
func (d *Distribution) Includes(setID string) bool {
	for _, id := range d.SurveySetIDs {
		if id == setID {
			return true
		}
	}
	return false
}
