package services

import (
	"context"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

// Lookups return (nil, nil) when the record does not exist.

type CatalogStore interface {
	CreateCompany(ctx context.Context, c *Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)
	CreateQuestionSet(ctx context.Context, set *QuestionSet, questions []analysis.Question) error
	GetQuestionSet(ctx context.Context, id string) (*QuestionSet, error)
	CountQuestionSets(ctx context.Context) (int, error)
	// ListQuestions returns the set's questions ordered by display order, then id.
	ListQuestions(ctx context.Context, setID string) ([]analysis.Question, error)
}

type DistributionStore interface {
	GetCompany(ctx context.Context, id string) (*Company, error)
	GetQuestionSet(ctx context.Context, id string) (*QuestionSet, error)
	ListQuestions(ctx context.Context, setID string) ([]analysis.Question, error)
	CreateDistribution(ctx context.Context, d *Distribution) error
	GetDistribution(ctx context.Context, id string) (*Distribution, error)
	GetDistributionByToken(ctx context.Context, token string) (*Distribution, error)
	UpdateDistributionStatus(ctx context.Context, id string, status DistributionStatus) (bool, error)
}

type ResponseStore interface {
	GetDistributionByToken(ctx context.Context, token string) (*Distribution, error)
	ListQuestions(ctx context.Context, setID string) ([]analysis.Question, error)
	AddResponses(ctx context.Context, distributionID string, rs []analysis.Response) error
}

// ResponsePager reads a distribution's responses one page at a time,
// ordered by insertion and restricted to questionIDs.
type ResponsePager interface {
	ListResponsesPage(ctx context.Context, distributionID string, questionIDs []string, limit, offset int) ([]analysis.Response, error)
}

type AnalyticsStore interface {
	ResponsePager
	GetDistribution(ctx context.Context, id string) (*Distribution, error)
	GetQuestionSet(ctx context.Context, id string) (*QuestionSet, error)
	GetQuestion(ctx context.Context, id string) (*analysis.Question, error)
	ListQuestions(ctx context.Context, setID string) ([]analysis.Question, error)
}
