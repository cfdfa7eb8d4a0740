// Package analysis turns raw survey answer rows into frequency distributions,
// cross-tabulations and correlation coefficients.
//
// Every function in this package is pure and synchronous. Callers fetch the
// full response set for one distribution first and pass it in as a slice.
package analysis

import (
	"strconv"
	"strings"
	"time"
)

// Uncategorized labels questions that carry no category.
const Uncategorized = "Uncategorized"

// DefaultScalePoints is used for a bare "scale" type without a size suffix.
const DefaultScalePoints = 5

// MaxScalePoints is the largest accepted scale size. Stored types above it
// are clamped when parsed.
const MaxScalePoints = 100

// Kind is the family a question type belongs to.
type Kind int

const (
	KindText Kind = iota
	KindSingleChoice
	KindMultipleChoice
	KindScale
)

func (k Kind) String() string {
	switch k {
	case KindSingleChoice:
		return "single_choice"
	case KindMultipleChoice:
		return "multiple_choice"
	case KindScale:
		return "scale"
	default:
		return "text"
	}
}

// QuestionType is a parsed question type such as scale_7.
type QuestionType struct {
	Kind Kind
	// Points is the scale size for KindScale and zero otherwise.
	Points int
}

// ParseQuestionType maps the stored type string onto a QuestionType.
// Unknown strings are treated as free text.
func ParseQuestionType(s string) QuestionType {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "single_choice":
		return QuestionType{Kind: KindSingleChoice}
	case "multiple_choice":
		return QuestionType{Kind: KindMultipleChoice}
	case "scale":
		return QuestionType{Kind: KindScale, Points: DefaultScalePoints}
	}
	if rest, ok := strings.CutPrefix(s, "scale_"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return QuestionType{Kind: KindScale, Points: min(n, MaxScalePoints)}
		}
	}
	return QuestionType{Kind: KindText}
}

// ValidQuestionType reports whether s names a supported type exactly.
func ValidQuestionType(s string) bool {
	switch s {
	case "single_choice", "multiple_choice", "text":
		return true
	}
	if rest, ok := strings.CutPrefix(s, "scale_"); ok {
		n, err := strconv.Atoi(rest)
		return err == nil && n > 0 && n <= MaxScalePoints
	}
	return false
}

func (t QuestionType) String() string {
	if t.Kind == KindScale {
		return "scale_" + strconv.Itoa(t.Points)
	}
	return t.Kind.String()
}

// Categorical reports whether answers are labels rather than quantities.
func (t QuestionType) Categorical() bool {
	return t.Kind == KindSingleChoice || t.Kind == KindMultipleChoice
}

// Question identifies a prompt within a question set.
type Question struct {
	ID          string   `json:"id"`
	SurveySetID string   `json:"survey_set_id,omitempty"`
	Category    string   `json:"category,omitempty"`
	Text        string   `json:"text,omitempty"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Order       int      `json:"order,omitempty"`
}

// ParsedType returns the parsed form of q.Type.
func (q Question) ParsedType() QuestionType { return ParseQuestionType(q.Type) }

// CategoryLabel returns the category, or Uncategorized when blank.
func (q Question) CategoryLabel() string {
	if c := strings.TrimSpace(q.Category); c != "" {
		return c
	}
	return Uncategorized
}

// OptionIndex returns the 0-based position of value among the declared options.
func (q Question) OptionIndex(value string) (int, bool) {
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == value {
			return i, true
		}
	}
	return 0, false
}

// Response is one respondent's raw answer to one question.
// A nil Answer means the value was absent.
type Response struct {
	QuestionID   string    `json:"question_id"`
	RespondentID string    `json:"respondent_id"`
	Answer       *string   `json:"answer"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Read is the pass-through boundary from the persistence collaborator.
// It returns the records and catalogue unchanged.
func Read(responses []Response, questions []Question) ([]Response, []Question) {
	return responses, questions
}

// ForQuestion filters responses down to those referencing questionID,
// preserving order and duplicates.
func ForQuestion(responses []Response, questionID string) []Response {
	out := make([]Response, 0, len(responses)/4+1)
	for _, r := range responses {
		if r.QuestionID == questionID {
			out = append(out, r)
		}
	}
	return out
}

// UniqueRespondents counts distinct respondent ids.
func UniqueRespondents(responses []Response) int {
	seen := make(map[string]struct{}, len(responses))
	for _, r := range responses {
		seen[r.RespondentID] = struct{}{}
	}
	return len(seen)
}

// Categories lists distinct category labels in first-seen order.
func Categories(questions []Question) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, q := range questions {
		c := q.CategoryLabel()
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// QuestionsInCategory returns the questions whose label equals category.
func QuestionsInCategory(questions []Question, category string) []Question {
	out := []Question{}
	for _, q := range questions {
		if q.CategoryLabel() == category {
			out = append(out, q)
		}
	}
	return out
}
