package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/synap-insights/internal/analysis"
)

// LongHeader is the header of the long response format. insightctl reads
// the same layout.
var LongHeader = []string{"question_id", "respondent_id", "answer", "submitted_at"}

// ExportLongCSV renders one row per stored answer. Null answers are empty cells.
func ExportLongCSV(responses []analysis.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(LongHeader); err != nil {
		return nil, err
	}
	for _, r := range responses {
		answer := ""
		if r.Answer != nil {
			answer = *r.Answer
		}
		submitted := ""
		if !r.SubmittedAt.IsZero() {
			submitted = r.SubmittedAt.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{r.QuestionID, r.RespondentID, answer, submitted}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ReadLongCSV parses the long format back into responses. Columns are
// located by header name; an empty answer cell is a null answer and
// submitted_at may be blank.
func ReadLongCSV(r io.Reader) ([]analysis.Response, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []analysis.Response{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range LongHeader[:3] {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	out := []analysis.Response{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		resp := analysis.Response{
			QuestionID:   strings.TrimSpace(field(rec, "question_id")),
			RespondentID: strings.TrimSpace(field(rec, "respondent_id")),
		}
		if a := field(rec, "answer"); a != "" {
			resp.Answer = &a
		}
		if ts := strings.TrimSpace(field(rec, "submitted_at")); ts != "" {
			t, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, fmt.Errorf("line %d: submitted_at: %w", line, err)
			}
			resp.SubmittedAt = t
		}
		out = append(out, resp)
	}
}

// WideHeader labels a question column as "<category> - <text>".
func WideHeader(q analysis.Question) string {
	text := q.Text
	if text == "" {
		text = q.ID
	}
	return q.CategoryLabel() + " - " + text
}

// ExportWideCSV renders one row per respondent (sorted by id) and one column
// per question in the given order. When a respondent answered a question
// more than once the last answer wins.
func ExportWideCSV(questions []analysis.Question, responses []analysis.Response) ([]byte, error) {
	cells := map[string]map[string]string{}
	for _, r := range responses {
		if r.Answer == nil {
			continue
		}
		if cells[r.RespondentID] == nil {
			cells[r.RespondentID] = map[string]string{}
		}
		cells[r.RespondentID][r.QuestionID] = *r.Answer
	}
	ids := make([]string, 0, len(cells))
	seen := map[string]bool{}
	for _, r := range responses {
		if !seen[r.RespondentID] {
			seen[r.RespondentID] = true
			ids = append(ids, r.RespondentID)
		}
	}
	sort.Strings(ids)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := make([]string, 0, 1+len(questions))
	header = append(header, "respondent_id")
	for _, q := range questions {
		header = append(header, WideHeader(q))
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, id := range ids {
		row := make([]string, 0, 1+len(questions))
		row = append(row, id)
		for _, q := range questions {
			row = append(row, cells[id][q.ID])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
