package services

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

// Catalog is the YAML question catalogue used for seeding and by insightctl.
//
//	sets:
//	  - id: wellbeing
//	    name: Wellbeing
//	    questions:
//	      - {id: q1, category: Mood, text: "I feel rested", type: scale_5}
type Catalog struct {
	Sets []CatalogSet `yaml:"sets"`
}

type CatalogSet struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Type      string            `yaml:"type"`
	Questions []CatalogQuestion `yaml:"questions"`
}

type CatalogQuestion struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category"`
	Text     string   `yaml:"text"`
	Type     string   `yaml:"type"`
	Options  []string `yaml:"options"`
	Order    int      `yaml:"order"`
}

// ParseCatalog decodes and validates a catalogue.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return &c, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog reads a catalogue file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

func (c *Catalog) validate() error {
	setIDs := map[string]bool{}
	questionIDs := map[string]bool{}
	for i, s := range c.Sets {
		if s.ID == "" {
			return NewInvalidError(fmt.Sprintf("set %d: id required", i))
		}
		if setIDs[s.ID] {
			return NewInvalidError(fmt.Sprintf("duplicate set id %q", s.ID))
		}
		setIDs[s.ID] = true
		for j, q := range s.Questions {
			if q.ID == "" {
				return NewInvalidError(fmt.Sprintf("set %s question %d: id required", s.ID, j))
			}
			if questionIDs[q.ID] {
				return NewInvalidError(fmt.Sprintf("duplicate question id %q", q.ID))
			}
			questionIDs[q.ID] = true
			if err := validateQuestion(q.Type, q.Options); err != nil {
				return NewInvalidError(fmt.Sprintf("question %s: %s", q.ID, err.Error()))
			}
		}
	}
	return nil
}

// Questions flattens the catalogue into analysis questions, each set's in
// display order.
func (c *Catalog) Questions() []analysis.Question {
	var out []analysis.Question
	for _, s := range c.Sets {
		out = append(out, s.AsQuestions()...)
	}
	return out
}

// Set returns the set with the given id, or nil.
func (c *Catalog) Set(id string) *CatalogSet {
	for i := range c.Sets {
		if c.Sets[i].ID == id {
			return &c.Sets[i]
		}
	}
	return nil
}

// AsQuestions converts the set into analysis questions in display order.
func (s CatalogSet) AsQuestions() []analysis.Question {
	out := make([]analysis.Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		out = append(out, analysis.Question{
			ID:          q.ID,
			SurveySetID: s.ID,
			Category:    q.Category,
			Text:        q.Text,
			Type:        q.Type,
			Options:     q.Options,
			Order:       q.Order,
		})
	}
	SortQuestions(out)
	return out
}

// SortQuestions orders questions by display order, then id.
func SortQuestions(qs []analysis.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Order != qs[j].Order {
			return qs[i].Order < qs[j].Order
		}
		return qs[i].ID < qs[j].ID
	})
}

func validateQuestion(typ string, options []string) error {
	if !analysis.ValidQuestionType(typ) {
		return fmt.Errorf("unsupported type %q", typ)
	}
	if analysis.ParseQuestionType(typ).Categorical() && len(options) == 0 {
		return fmt.Errorf("options required for %s", typ)
	}
	return nil
}
