package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

func newAnalyticsFixture() *stubStore {
	store := newStubStore()
	seedSurvey(store)
	addAnswers(store, "D1", "R1", map[string]string{"Q1": "2", "Q2": "3", "Q3": "Low", "G": "Ops"})
	addAnswers(store, "D1", "R2", map[string]string{"Q1": "4", "Q2": "5", "Q3": "High", "G": "Dev"})
	addAnswers(store, "D1", "R3", map[string]string{"Q1": "5", "Q2": "5", "Q3": "High", "G": "Dev"})
	addAnswers(store, "D2", "R9", map[string]string{"Q1": "1"})
	return store
}

func TestAnalyticsItemsPagesThroughResponses(t *testing.T) {
	store := newAnalyticsFixture()
	svc := NewAnalyticsService(store, WithPageSize(2))
	report, err := svc.Items(context.Background(), "D1", "")
	if err != nil {
		t.Fatalf("Items error: %v", err)
	}
	if report.SurveySetID != "WB" {
		t.Fatalf("expected first set to be used, got %s", report.SurveySetID)
	}
	if report.TotalQuestions != 3 || report.TotalResponses != 9 || report.UniqueRespondents != 3 {
		t.Fatalf("unexpected totals %+v", report)
	}
	if store.pageCalls != 5 {
		t.Fatalf("expected 5 page reads for 9 rows, got %d", store.pageCalls)
	}
	if len(report.Items) != 3 || report.Items[0].QuestionID != "Q1" {
		t.Fatalf("items out of catalogue order: %+v", report.Items)
	}
	if report.Items[0].Average != 3.67 {
		t.Fatalf("expected Q1 average 3.67, got %v", report.Items[0].Average)
	}
	if chart := report.Charts["Q3"]; len(chart) != 2 || chart[1].Value != 2 {
		t.Fatalf("unexpected Q3 chart %+v", chart)
	}
}

func TestAnalyticsItemsEmptySet(t *testing.T) {
	store := newAnalyticsFixture()
	store.sets["EMPTY"] = &QuestionSet{ID: "EMPTY", Name: "Empty"}
	store.distributions["D1"].SurveySetIDs = append(store.distributions["D1"].SurveySetIDs, "EMPTY")
	report, err := NewAnalyticsService(store).Items(context.Background(), "D1", "EMPTY")
	if err != nil {
		t.Fatalf("Items error: %v", err)
	}
	if report.Message == "" || len(report.Items) != 0 {
		t.Fatalf("expected empty report with message, got %+v", report)
	}
}

func TestAnalyticsNotFound(t *testing.T) {
	store := newAnalyticsFixture()
	svc := NewAnalyticsService(store)
	ctx := context.Background()

	_, err := svc.Items(ctx, "missing", "")
	if !errors.Is(err, ErrDistributionNotFound) {
		t.Fatalf("expected ErrDistributionNotFound, got %v", err)
	}
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorNotFound {
		t.Fatalf("expected not_found service error, got %v", err)
	}

	store.sets["OTHER"] = &QuestionSet{ID: "OTHER"}
	store.questions["OTHER"] = []analysis.Question{{ID: "X", SurveySetID: "OTHER", Type: "scale_5"}}
	if _, err := svc.CrossTab(ctx, "D1", "Q1", "X"); err == nil {
		t.Fatalf("expected error for a question outside the distribution")
	}
	if _, err := svc.Categories(ctx, "D1", "OTHER"); err == nil {
		t.Fatalf("expected error for a set outside the distribution")
	}
}

func TestAnalyticsCategories(t *testing.T) {
	report, err := NewAnalyticsService(newAnalyticsFixture()).Categories(context.Background(), "D1", "WB")
	if err != nil {
		t.Fatalf("Categories error: %v", err)
	}
	if len(report.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %+v", report.Categories)
	}
	mood := report.Categories[0]
	if mood.Category != "Mood" || mood.Count != 6 || mood.Average != 4 || mood.AlphaN != 3 {
		t.Fatalf("unexpected mood summary %+v", mood)
	}
	if work := report.Categories[1]; work.HasData {
		t.Fatalf("choice-only category must have no data, got %+v", work)
	}
	if len(report.Charts) != 2 {
		t.Fatalf("expected one chart record per category")
	}
}

func TestAnalyticsCrossTabAndCorrelation(t *testing.T) {
	svc := NewAnalyticsService(newAnalyticsFixture())
	ctx := context.Background()

	ct, err := svc.CrossTab(ctx, "D1", "Q3", "G")
	if err != nil {
		t.Fatalf("CrossTab error: %v", err)
	}
	if ct.Cell("Low", "Ops") != 1 || ct.Cell("High", "Dev") != 2 || ct.Total() != 3 {
		t.Fatalf("unexpected matrix %+v", ct.Matrix)
	}
	if len(ct.Charts) != 2 {
		t.Fatalf("expected stacked rows per row value, got %+v", ct.Charts)
	}

	corr, err := svc.Correlation(ctx, "D1", "Q1", "Q2")
	if err != nil {
		t.Fatalf("Correlation error: %v", err)
	}
	r := corr.Result.Coefficient
	if r == nil || math.Abs(*r-0.945) > 0.01 {
		t.Fatalf("unexpected coefficient %+v", corr.Result)
	}
	if corr.Result.Strength != analysis.VeryStrong || corr.Result.Sign != analysis.Positive {
		t.Fatalf("unexpected interpretation %+v", corr.Result)
	}
	if corr.Heatmap || len(corr.Charts) != 3 {
		t.Fatalf("numeric pair must give a plain scatter, got %+v", corr.QuestionCorrelation)
	}

	cct, err := svc.CategoryCrossTab(ctx, "D1", "WB", "Mood", "Work")
	if err != nil {
		t.Fatalf("CategoryCrossTab error: %v", err)
	}
	if cct.Dimension1.QuestionID != "Q1" || cct.Dimension2.QuestionID != "Q3" {
		t.Fatalf("expected first question per category, got %+v / %+v", cct.Dimension1, cct.Dimension2)
	}
}

func TestAnalyticsDemographics(t *testing.T) {
	report, err := NewAnalyticsService(newAnalyticsFixture()).Demographics(context.Background(), "D1", "G")
	if err != nil {
		t.Fatalf("Demographics error: %v", err)
	}
	if len(report.Options) != 2 {
		t.Fatalf("expected two options, got %+v", report.Options)
	}
	ops, dev := report.Options[0], report.Options[1]
	if ops.Option != "Ops" || ops.RespondentCount != 1 || len(ops.Outcomes) != 2 || ops.Outcomes[0].Average != 2 {
		t.Fatalf("unexpected Ops group %+v", ops)
	}
	if dev.RespondentCount != 2 || dev.Outcomes[0].Average != 4.5 || dev.Outcomes[1].Average != 5 {
		t.Fatalf("unexpected Dev group %+v", dev)
	}

	if _, err := NewAnalyticsService(newAnalyticsFixture()).Demographics(context.Background(), "D1", "Q1"); err == nil {
		t.Fatalf("expected a scale question to be rejected as demographic")
	}
}

func TestAnalyticsHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnalyticsService(newAnalyticsFixture()).Items(ctx, "D1", "WB")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildTimeseries(t *testing.T) {
	day1 := time.Date(2025, 9, 18, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 9, 19, 1, 0, 0, 0, time.UTC)
	series := buildTimeseries([]analysis.Response{
		{SubmittedAt: day2}, {SubmittedAt: day1}, {SubmittedAt: day1}, {},
	})
	if len(series) != 2 || series[0].Date != "2025-09-18" || series[0].Count != 2 || series[1].Count != 1 {
		t.Fatalf("unexpected timeseries: %+v", series)
	}
}
