package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soaringjerry/synap-insights/internal/analysis"
	"github.com/soaringjerry/synap-insights/internal/services"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "insights.db"), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(s string) *string { return &s }

func seed(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := s.CreateCompany(ctx, &services.Company{ID: "C1", Name: "Acme", CreatedAt: now}); err != nil {
		t.Fatalf("company: %v", err)
	}
	qs := []analysis.Question{
		{ID: "Q2", Category: "Mood", Text: "Energy", Type: "scale_5", Order: 2},
		{ID: "Q1", Category: "Mood", Text: "Sleep", Type: "scale_5", Order: 1},
		{ID: "Q3", Category: "Work", Type: "single_choice", Options: []string{"Low", "High"}, Order: 3},
	}
	if err := s.CreateQuestionSet(ctx, &services.QuestionSet{ID: "WB", CompanyID: "C1", Name: "Wellbeing", CreatedAt: now}, qs); err != nil {
		t.Fatalf("set: %v", err)
	}
	d := &services.Distribution{ID: "D1", CompanyID: "C1", SurveySetIDs: []string{"WB"}, Status: services.StatusActive, AccessToken: "tok-1", URL: "http://x/survey/tok-1", CreatedAt: now}
	if err := s.CreateDistribution(ctx, d); err != nil {
		t.Fatalf("distribution: %v", err)
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	c, err := s.GetCompany(ctx, "C1")
	if err != nil || c == nil || c.Name != "Acme" {
		t.Fatalf("company = %+v, %v", c, err)
	}
	if c, err := s.GetCompany(ctx, "nope"); c != nil || err != nil {
		t.Fatalf("missing company = %+v, %v", c, err)
	}
	n, err := s.CountQuestionSets(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
	qs, err := s.ListQuestions(ctx, "WB")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(qs) != 3 || qs[0].ID != "Q1" || qs[1].ID != "Q2" || qs[2].ID != "Q3" {
		t.Fatalf("unexpected order: %+v", qs)
	}
	if qs[0].SurveySetID != "WB" {
		t.Fatalf("survey set id = %q", qs[0].SurveySetID)
	}
	q, err := s.GetQuestion(ctx, "Q3")
	if err != nil || q == nil {
		t.Fatalf("get question: %+v, %v", q, err)
	}
	if len(q.Options) != 2 || q.Options[1] != "High" {
		t.Fatalf("options = %v", q.Options)
	}
	if q, err := s.GetQuestion(ctx, "nope"); q != nil || err != nil {
		t.Fatalf("missing question = %+v, %v", q, err)
	}
}

func TestDuplicateQuestionSetRollsBack(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	err := s.CreateQuestionSet(ctx, &services.QuestionSet{ID: "OTHER", Name: "Other"}, []analysis.Question{
		{ID: "N1", Type: "text"},
		{ID: "Q1", Type: "text"},
	})
	if err == nil {
		t.Fatalf("expected duplicate question error")
	}
	if set, _ := s.GetQuestionSet(ctx, "OTHER"); set != nil {
		t.Fatalf("set should have been rolled back")
	}
}

func TestDistributionLookupAndStatus(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	d, err := s.GetDistributionByToken(ctx, "tok-1")
	if err != nil || d == nil || d.ID != "D1" {
		t.Fatalf("by token = %+v, %v", d, err)
	}
	if !d.Includes("WB") || d.Status != services.StatusActive {
		t.Fatalf("unexpected distribution: %+v", d)
	}
	ok, err := s.UpdateDistributionStatus(ctx, "D1", services.StatusClosed)
	if err != nil || !ok {
		t.Fatalf("update = %v, %v", ok, err)
	}
	d, _ = s.GetDistribution(ctx, "D1")
	if d.Status != services.StatusClosed {
		t.Fatalf("status = %s", d.Status)
	}
	if ok, _ := s.UpdateDistributionStatus(ctx, "nope", services.StatusClosed); ok {
		t.Fatalf("missing distribution reported updated")
	}
}

func TestResponsesPaging(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	at := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	rs := []analysis.Response{
		{QuestionID: "Q1", RespondentID: "r1", Answer: ptr("4"), SubmittedAt: at},
		{QuestionID: "Q2", RespondentID: "r1", Answer: nil, SubmittedAt: at},
		{QuestionID: "Q3", RespondentID: "r1", Answer: ptr("High"), SubmittedAt: at},
		{QuestionID: "Q1", RespondentID: "r2", Answer: ptr("2"), SubmittedAt: at},
	}
	if err := s.AddResponses(ctx, "D1", rs); err != nil {
		t.Fatalf("add: %v", err)
	}

	page, err := s.ListResponsesPage(ctx, "D1", []string{"Q1", "Q2"}, 2, 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 2 || page[0].QuestionID != "Q1" || page[1].QuestionID != "Q2" {
		t.Fatalf("first page = %+v", page)
	}
	if page[1].Answer != nil {
		t.Fatalf("null answer should stay nil")
	}
	if !page[0].SubmittedAt.Equal(at) {
		t.Fatalf("submitted_at = %v", page[0].SubmittedAt)
	}
	page, _ = s.ListResponsesPage(ctx, "D1", []string{"Q1", "Q2"}, 2, 2)
	if len(page) != 1 || page[0].RespondentID != "r2" || *page[0].Answer != "2" {
		t.Fatalf("second page = %+v", page)
	}
	if page, _ := s.ListResponsesPage(ctx, "D1", nil, 10, 0); len(page) != 0 {
		t.Fatalf("no question ids should return nothing, got %d", len(page))
	}
	if page, _ := s.ListResponsesPage(ctx, "other", []string{"Q1"}, 10, 0); len(page) != 0 {
		t.Fatalf("responses leaked across distributions")
	}
}

func TestMigrationsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0002_extra.sql"), []byte("CREATE TABLE extra (id INTEGER);"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "0001_base.sql"), []byte("CREATE TABLE base (id INTEGER);"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}
	files, err := loadMigrations(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(files) != 2 || files[0].name != "0001_base.sql" || files[1].name != "0002_extra.sql" {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestMigrationsFallBackToEmbedded(t *testing.T) {
	files, err := loadMigrations(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(files) == 0 || files[0].name != "0001_init.sql" {
		t.Fatalf("expected embedded migrations, got %+v", files)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(" ", ""); err == nil {
		t.Fatalf("expected error")
	}
}
