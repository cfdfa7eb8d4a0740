package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/synap-insights/internal/analysis"
	"github.com/soaringjerry/synap-insights/internal/api"
	"github.com/soaringjerry/synap-insights/internal/services"
	"github.com/soaringjerry/synap-insights/pkg/logger"
)

type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

var _ api.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, log: logger.Nop()}, nil
}

// Open opens the database at path, runs the migrations and wraps it in a store.
func Open(path, migrationsDir string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty sqlite path")
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if err := RunMigrations(db, migrationsDir); err != nil {
		_ = db.Close()
		return nil, err
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// WithLogger sets the logger used for close and scan failures.
func (s *SQLiteStore) WithLogger(l logger.Logger) *SQLiteStore {
	if l != nil {
		s.log = l
	}
	return s
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		s.log.Error(context.Background(), "sqlite store", logger.String("op", prefix), logger.Error(err))
	}
}

func (s *SQLiteStore) closeRows(op string, rows *sql.Rows) {
	s.logErr(op+" close rows", rows.Close())
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeStrings(v []string) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeStrings(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil
	}
	return out
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c *services.Company) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO companies (id, name, created_at) VALUES (?, ?, ?)",
		c.ID, c.Name, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*services.Company, error) {
	var c services.Company
	var created string
	err := s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM companies WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	c.CreatedAt = parseTime(created)
	return &c, nil
}

func (s *SQLiteStore) CreateQuestionSet(ctx context.Context, set *services.QuestionSet, questions []analysis.Question) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			s.logErr("CreateQuestionSet rollback", tx.Rollback())
		}
	}()
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO question_sets (id, company_id, name, type, created_at) VALUES (?, ?, ?, ?, ?)",
		set.ID, toNullString(set.CompanyID), set.Name, set.Type, formatTime(set.CreatedAt)); err != nil {
		return fmt.Errorf("insert question set: %w", err)
	}
	for _, q := range questions {
		var opts sql.NullString
		if opts, err = encodeStrings(q.Options); err != nil {
			return fmt.Errorf("encode options %s: %w", q.ID, err)
		}
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO questions (id, question_set_id, category, text, type, options, position) VALUES (?, ?, ?, ?, ?, ?, ?)",
			q.ID, set.ID, q.Category, q.Text, q.Type, opts, q.Order); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetQuestionSet(ctx context.Context, id string) (*services.QuestionSet, error) {
	var qs services.QuestionSet
	var company sql.NullString
	var created string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_id, name, type, created_at FROM question_sets WHERE id = ?", id).
		Scan(&qs.ID, &company, &qs.Name, &qs.Type, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question set: %w", err)
	}
	qs.CompanyID = company.String
	qs.CreatedAt = parseTime(created)
	return &qs, nil
}

func (s *SQLiteStore) CountQuestionSets(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM question_sets").Scan(&n); err != nil {
		return 0, fmt.Errorf("count question sets: %w", err)
	}
	return n, nil
}

const questionColumns = "id, question_set_id, category, text, type, options, position"

func scanQuestion(sc interface{ Scan(...any) error }) (analysis.Question, error) {
	var q analysis.Question
	var opts sql.NullString
	if err := sc.Scan(&q.ID, &q.SurveySetID, &q.Category, &q.Text, &q.Type, &opts, &q.Order); err != nil {
		return q, err
	}
	q.Options = decodeStrings(opts)
	return q, nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, setID string) ([]analysis.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE question_set_id = ? ORDER BY position, id", setID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer s.closeRows("ListQuestions", rows)
	out := []analysis.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*analysis.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, "SELECT "+questionColumns+" FROM questions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

func (s *SQLiteStore) CreateDistribution(ctx context.Context, d *services.Distribution) error {
	ids, err := json.Marshal(d.SurveySetIDs)
	if err != nil {
		return fmt.Errorf("encode survey set ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO survey_distributions (id, company_id, survey_set_ids, status, access_token, url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		d.ID, d.CompanyID, string(ids), string(d.Status), d.AccessToken, d.URL, formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert distribution: %w", err)
	}
	return nil
}

const distributionColumns = "id, company_id, survey_set_ids, status, access_token, url, created_at"

func (s *SQLiteStore) getDistribution(ctx context.Context, where string, arg any) (*services.Distribution, error) {
	var d services.Distribution
	var ids, status, created string
	err := s.db.QueryRowContext(ctx, "SELECT "+distributionColumns+" FROM survey_distributions WHERE "+where+" = ?", arg).
		Scan(&d.ID, &d.CompanyID, &ids, &status, &d.AccessToken, &d.URL, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get distribution: %w", err)
	}
	// older rows may hold a comma list instead of a JSON array
	d.SurveySetIDs = services.ParseSurveySetIDs(ids)
	d.Status = services.DistributionStatus(status)
	d.CreatedAt = parseTime(created)
	return &d, nil
}

func (s *SQLiteStore) GetDistribution(ctx context.Context, id string) (*services.Distribution, error) {
	return s.getDistribution(ctx, "id", id)
}

func (s *SQLiteStore) GetDistributionByToken(ctx context.Context, token string) (*services.Distribution, error) {
	return s.getDistribution(ctx, "access_token", token)
}

func (s *SQLiteStore) UpdateDistributionStatus(ctx context.Context, id string, status services.DistributionStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE survey_distributions SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return false, fmt.Errorf("update distribution status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) AddResponses(ctx context.Context, distributionID string, rs []analysis.Response) (err error) {
	if len(rs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			s.logErr("AddResponses rollback", tx.Rollback())
		}
	}()
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO responses (survey_distribution_id, question_id, respondent_id, answer, submitted_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert response: %w", err)
	}
	defer func() { s.logErr("AddResponses close stmt", stmt.Close()) }()
	for _, r := range rs {
		var answer sql.NullString
		if r.Answer != nil {
			answer = sql.NullString{String: *r.Answer, Valid: true}
		}
		if _, err = stmt.ExecContext(ctx, distributionID, r.QuestionID, r.RespondentID, answer, formatTime(r.SubmittedAt)); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListResponsesPage(ctx context.Context, distributionID string, questionIDs []string, limit, offset int) ([]analysis.Response, error) {
	if len(questionIDs) == 0 {
		return []analysis.Response{}, nil
	}
	args := make([]any, 0, len(questionIDs)+3)
	args = append(args, distributionID)
	for _, id := range questionIDs {
		args = append(args, id)
	}
	args = append(args, limit, offset)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(questionIDs)), ",")
	rows, err := s.db.QueryContext(ctx,
		"SELECT question_id, respondent_id, answer, submitted_at FROM responses WHERE survey_distribution_id = ? AND question_id IN ("+
			placeholders+") ORDER BY id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer s.closeRows("ListResponsesPage", rows)
	out := make([]analysis.Response, 0, limit)
	for rows.Next() {
		var r analysis.Response
		var answer sql.NullString
		var submitted string
		if err := rows.Scan(&r.QuestionID, &r.RespondentID, &answer, &submitted); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if answer.Valid {
			a := answer.String
			r.Answer = &a
		}
		r.SubmittedAt = parseTime(submitted)
		out = append(out, r)
	}
	return out, rows.Err()
}
