package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/soaringjerry/synap-insights/internal/analysis"
	"github.com/soaringjerry/synap-insights/pkg/logger"
	"github.com/soaringjerry/synap-insights/pkg/metrics"
)

const defaultPageSize = 1000

// AnalyticsService builds the result reports of a distribution. Every call
// reads the current responses; nothing is cached between calls.
type AnalyticsService struct {
	store    AnalyticsStore
	pageSize int
	metrics  *metrics.Manager
	log      logger.Logger
}

type AnalyticsOption func(*AnalyticsService)

// WithPageSize sets how many response rows are read per store call.
func WithPageSize(n int) AnalyticsOption {
	return func(s *AnalyticsService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithMetrics(m *metrics.Manager) AnalyticsOption {
	return func(s *AnalyticsService) { s.metrics = m }
}

func WithLogger(l logger.Logger) AnalyticsOption {
	return func(s *AnalyticsService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewAnalyticsService(store AnalyticsStore, opts ...AnalyticsOption) *AnalyticsService {
	s := &AnalyticsService{store: store, pageSize: defaultPageSize, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ItemsReport struct {
	DistributionID    string                          `json:"distribution_id"`
	SurveySetID       string                          `json:"survey_set_id"`
	SurveySetName     string                          `json:"survey_set_name"`
	TotalQuestions    int                             `json:"total_questions"`
	TotalResponses    int                             `json:"total_responses"`
	UniqueRespondents int                             `json:"unique_respondents"`
	Items             []analysis.FrequencyResult      `json:"items"`
	Timeseries        []AnalyticsTimeseries           `json:"timeseries"`
	Message           string                          `json:"message,omitempty"`
	Charts            map[string][]analysis.NameValue `json:"charts"`
}

type CategoriesReport struct {
	DistributionID string                    `json:"distribution_id"`
	SurveySetID    string                    `json:"survey_set_id"`
	Categories     []analysis.CategoryResult `json:"categories"`
	Charts         []analysis.NameValue      `json:"charts"`
}

type CrossTabReport struct {
	DistributionID string `json:"distribution_id"`
	analysis.CrossTabResult
	Charts []analysis.StackedRow `json:"charts"`
}

type DemographicsReport struct {
	DistributionID string `json:"distribution_id"`
	analysis.DemographicResult
	Charts []analysis.NameValue `json:"charts"`
}

type CorrelationReport struct {
	DistributionID string `json:"distribution_id"`
	analysis.QuestionCorrelation
	Charts []analysis.ScatterPoint `json:"charts"`
}

// Items reports the answer distribution of every question in a set.
// An empty surveySetID selects the distribution's first set.
func (s *AnalyticsService) Items(ctx context.Context, distributionID, surveySetID string) (*ItemsReport, error) {
	defer s.observe(ctx, "items", time.Now())
	d, err := s.distribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	set, questions, err := s.surveySet(ctx, d, surveySetID)
	if err != nil {
		return nil, err
	}
	report := &ItemsReport{
		DistributionID: d.ID,
		SurveySetID:    set.ID,
		SurveySetName:  set.Name,
		TotalQuestions: len(questions),
		Items:          []analysis.FrequencyResult{},
		Timeseries:     []AnalyticsTimeseries{},
		Charts:         map[string][]analysis.NameValue{},
	}
	if len(questions) == 0 {
		report.Message = "no questions in survey set"
		return report, nil
	}
	responses, err := s.fetchResponses(ctx, d.ID, questionIDs(questions))
	if err != nil {
		return nil, err
	}
	responses, questions = analysis.Read(responses, questions)
	report.TotalResponses = len(responses)
	report.UniqueRespondents = analysis.UniqueRespondents(responses)
	for _, q := range questions {
		f := analysis.Aggregate(responses, q)
		report.Items = append(report.Items, f)
		if f.Buckets != nil {
			report.Charts[q.ID] = analysis.FrequencyChart(f)
		}
	}
	report.Timeseries = buildTimeseries(responses)
	return report, nil
}

// Categories summarises the scale answers of a set per category.
func (s *AnalyticsService) Categories(ctx context.Context, distributionID, surveySetID string) (*CategoriesReport, error) {
	defer s.observe(ctx, "categories", time.Now())
	d, err := s.distribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	set, questions, err := s.surveySet(ctx, d, surveySetID)
	if err != nil {
		return nil, err
	}
	responses, err := s.fetchResponses(ctx, d.ID, questionIDs(questions))
	if err != nil {
		return nil, err
	}
	cats := analysis.SummarizeCategories(questions, responses)
	return &CategoriesReport{
		DistributionID: d.ID,
		SurveySetID:    set.ID,
		Categories:     cats,
		Charts:         analysis.CategoryChart(cats),
	}, nil
}

// CategoryCrossTab cross-tabulates the first question of two categories.
func (s *AnalyticsService) CategoryCrossTab(ctx context.Context, distributionID, surveySetID, category1, category2 string) (*CrossTabReport, error) {
	defer s.observe(ctx, "category_crosstab", time.Now())
	if category1 == "" || category2 == "" {
		return nil, NewInvalidError("category1 and category2 required")
	}
	d, err := s.distribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	_, questions, err := s.surveySet(ctx, d, surveySetID)
	if err != nil {
		return nil, err
	}
	responses, err := s.fetchResponses(ctx, d.ID, questionIDs(questions))
	if err != nil {
		return nil, err
	}
	ct := analysis.CategoryCrossTab(questions, responses, category1, category2)
	return &CrossTabReport{DistributionID: d.ID, CrossTabResult: ct, Charts: analysis.CrossTabChart(ct)}, nil
}

// CrossTab cross-tabulates two questions of the distribution.
func (s *AnalyticsService) CrossTab(ctx context.Context, distributionID, questionA, questionB string) (*CrossTabReport, error) {
	defer s.observe(ctx, "crosstab", time.Now())
	d, qa, qb, responses, err := s.questionPair(ctx, distributionID, questionA, questionB)
	if err != nil {
		return nil, err
	}
	ct := analysis.CrossTab(responses, responses, *qa, *qb)
	return &CrossTabReport{DistributionID: d.ID, CrossTabResult: ct, Charts: analysis.CrossTabChart(ct)}, nil
}

// Correlation correlates two questions over the respondents who answered both.
func (s *AnalyticsService) Correlation(ctx context.Context, distributionID, questionX, questionY string) (*CorrelationReport, error) {
	defer s.observe(ctx, "correlation", time.Now())
	d, qx, qy, responses, err := s.questionPair(ctx, distributionID, questionX, questionY)
	if err != nil {
		return nil, err
	}
	c := analysis.CorrelateQuestions(responses, responses, *qx, *qy)
	return &CorrelationReport{DistributionID: d.ID, QuestionCorrelation: c, Charts: analysis.ScatterChart(c)}, nil
}

// Demographics breaks the scale questions outside the demographic sets down
// by the options of a demographic question.
func (s *AnalyticsService) Demographics(ctx context.Context, distributionID, questionID string) (*DemographicsReport, error) {
	defer s.observe(ctx, "demographics", time.Now())
	if questionID == "" {
		return nil, NewInvalidError("questionId required")
	}
	d, err := s.distribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	demo, err := s.question(ctx, d, questionID)
	if err != nil {
		return nil, err
	}
	if !demo.ParsedType().Categorical() {
		return nil, NewInvalidError("demographic question must be a choice question")
	}
	var outcomes []analysis.Question
	for _, setID := range d.SurveySetIDs {
		if setID == demo.SurveySetID {
			continue
		}
		set, err := s.store.GetQuestionSet(ctx, setID)
		if err != nil {
			return nil, err
		}
		if set == nil || set.Demographic() {
			continue
		}
		qs, err := s.store.ListQuestions(ctx, setID)
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			if q.ParsedType().Kind == analysis.KindScale {
				outcomes = append(outcomes, q)
			}
		}
	}
	ids := append([]string{demo.ID}, questionIDs(outcomes)...)
	responses, err := s.fetchResponses(ctx, d.ID, ids)
	if err != nil {
		return nil, err
	}
	res := analysis.BreakdownByDemographic(responses, *demo, outcomes)
	return &DemographicsReport{DistributionID: d.ID, DemographicResult: res, Charts: analysis.DemographicChart(res)}, nil
}

func (s *AnalyticsService) questionPair(ctx context.Context, distributionID, idA, idB string) (*Distribution, *analysis.Question, *analysis.Question, []analysis.Response, error) {
	if idA == "" || idB == "" {
		return nil, nil, nil, nil, NewInvalidError("two question ids required")
	}
	d, err := s.distribution(ctx, distributionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	qa, err := s.question(ctx, d, idA)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	qb, err := s.question(ctx, d, idB)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	responses, err := s.fetchResponses(ctx, d.ID, dedupe([]string{qa.ID, qb.ID}))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return d, qa, qb, responses, nil
}

func (s *AnalyticsService) distribution(ctx context.Context, id string) (*Distribution, error) {
	if id == "" {
		return nil, NewInvalidError("distribution id required")
	}
	d, err := s.store.GetDistribution(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, distributionNotFound()
	}
	return d, nil
}

func (s *AnalyticsService) surveySet(ctx context.Context, d *Distribution, setID string) (*QuestionSet, []analysis.Question, error) {
	if setID == "" {
		if len(d.SurveySetIDs) == 0 {
			return nil, nil, NewNotFoundError("distribution has no survey sets")
		}
		setID = d.SurveySetIDs[0]
	}
	if !d.Includes(setID) {
		return nil, nil, NewNotFoundError("survey set is not part of the distribution")
	}
	set, err := s.store.GetQuestionSet(ctx, setID)
	if err != nil {
		return nil, nil, err
	}
	if set == nil {
		return nil, nil, NewNotFoundError("question set not found")
	}
	qs, err := s.store.ListQuestions(ctx, setID)
	if err != nil {
		return nil, nil, err
	}
	return set, qs, nil
}

func (s *AnalyticsService) question(ctx context.Context, d *Distribution, id string) (*analysis.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil || !d.Includes(q.SurveySetID) {
		return nil, NewNotFoundError(fmt.Sprintf("question %s not found in distribution", id))
	}
	return q, nil
}

// fetchResponses pages through the store until a short page and returns
// every row at once.
func (s *AnalyticsService) fetchResponses(ctx context.Context, distributionID string, ids []string) ([]analysis.Response, error) {
	var out []analysis.Response
	if len(ids) == 0 {
		return out, nil
	}
	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := s.store.ListResponsesPage(ctx, distributionID, ids, s.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list responses: %w", err)
		}
		out = append(out, page...)
		if len(page) < s.pageSize {
			break
		}
	}
	s.metrics.AddResponsesFetched(len(out))
	return out, nil
}

func (s *AnalyticsService) observe(ctx context.Context, kind string, start time.Time) {
	elapsed := time.Since(start)
	s.metrics.ObserveAnalysis(kind, elapsed)
	s.log.Debug(ctx, "analysis finished", logger.String("kind", kind), logger.Duration("elapsed", elapsed))
}

func questionIDs(qs []analysis.Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func buildTimeseries(responses []analysis.Response) []AnalyticsTimeseries {
	counts := map[string]int{}
	for _, r := range responses {
		if r.SubmittedAt.IsZero() {
			continue
		}
		counts[r.SubmittedAt.UTC().Format("2006-01-02")]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: counts[d]})
	}
	return out
}
