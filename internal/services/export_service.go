package services

import (
	"context"
	"time"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a distribution's raw responses as CSV.
type ExportService struct {
	analytics *AnalyticsService
}

func NewExportService(store AnalyticsStore, opts ...AnalyticsOption) *ExportService {
	return &ExportService{analytics: NewAnalyticsService(store, opts...)}
}

// Download exports every question of the distribution. format is "wide"
// (the default) or "long".
func (s *ExportService) Download(ctx context.Context, distributionID, format string) (*ExportResult, error) {
	defer s.analytics.observe(ctx, "download", time.Now())
	if format == "" {
		format = "wide"
	}
	if format != "wide" && format != "long" {
		return nil, NewInvalidError("unsupported format")
	}
	d, err := s.analytics.distribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	var questions []analysis.Question
	for _, setID := range d.SurveySetIDs {
		qs, err := s.analytics.store.ListQuestions(ctx, setID)
		if err != nil {
			return nil, err
		}
		questions = append(questions, qs...)
	}
	responses, err := s.analytics.fetchResponses(ctx, d.ID, questionIDs(questions))
	if err != nil {
		return nil, err
	}

	var data []byte
	if format == "long" {
		data, err = ExportLongCSV(responses)
	} else {
		data, err = ExportWideCSV(questions, responses)
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "responses_" + d.ID + "_" + format + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}
