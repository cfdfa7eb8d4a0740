package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	store *memoryStore
}

func newTestServer(t *testing.T) *testServer {
	store := newMemoryStore()
	mux := http.NewServeMux()
	NewRouter(store,
		WithBaseURL("https://insights.example"),
		WithRespondentTokens("test-secret", time.Hour),
		WithPageSize(2),
	).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, store: store}
}

func (ts *testServer) do(method, path string, body any, out any) int {
	ts.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	if err != nil {
		ts.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := ts.srv.Client().Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			ts.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return res.StatusCode
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// setup creates a company, a wellbeing set, a demographic set and a
// distribution over both.
func (ts *testServer) setup() (distID, token string) {
	var company struct {
		ID string `json:"id"`
	}
	So(ts.do("POST", "/api/companies", map[string]any{"name": "Acme"}, &company), ShouldEqual, http.StatusCreated)

	wellbeing := map[string]any{
		"id": "WB", "name": "Wellbeing", "company_id": company.ID,
		"questions": []map[string]any{
			{"id": "Q1", "category": "Mood", "text": "Sleep", "type": "scale_5", "order": 1},
			{"id": "Q2", "category": "Mood", "text": "Energy", "type": "scale_5", "order": 2},
			{"id": "Q3", "category": "Work", "text": "Load", "type": "single_choice", "options": []string{"Low", "High"}, "order": 3},
		},
	}
	So(ts.do("POST", "/api/question-sets", wellbeing, nil), ShouldEqual, http.StatusCreated)
	demo := map[string]any{
		"id": "DEMO", "name": "About you", "type": "Demographic",
		"questions": []map[string]any{
			{"id": "G", "category": "Team", "type": "single_choice", "options": []string{"Ops", "Dev"}},
		},
	}
	So(ts.do("POST", "/api/question-sets", demo, nil), ShouldEqual, http.StatusCreated)

	var dist struct {
		DistributionID string `json:"distribution_id"`
		URL            string `json:"url"`
		AccessToken    string `json:"access_token"`
		Status         string `json:"status"`
	}
	So(ts.do("POST", "/api/distributions", map[string]any{"company_id": company.ID, "survey_set_ids": []string{"WB", "DEMO"}}, &dist), ShouldEqual, http.StatusCreated)
	So(dist.URL, ShouldEqual, "https://insights.example/survey/"+dist.AccessToken)
	So(dist.Status, ShouldEqual, "active")
	return dist.DistributionID, dist.AccessToken
}

type submitResult struct {
	RespondentID    string `json:"respondent_id"`
	RespondentToken string `json:"respondent_token"`
	Count           int    `json:"count"`
}

func (ts *testServer) submit(token, respondentToken string, answers map[string]any) submitResult {
	list := make([]map[string]any, 0, len(answers))
	for id, a := range answers {
		list = append(list, map[string]any{"question_id": id, "answer": a})
	}
	var res submitResult
	So(ts.do("POST", "/api/survey/"+token+"/responses", map[string]any{"respondent_token": respondentToken, "answers": list}, &res), ShouldEqual, http.StatusCreated)
	return res
}

func TestSurveyFlow(t *testing.T) {
	Convey("Given a published distribution", t, func() {
		ts := newTestServer(t)
		distID, token := ts.setup()

		Convey("When the survey is opened", func() {
			var view struct {
				Sections []struct {
					Set struct {
						ID string `json:"id"`
					} `json:"set"`
					Questions []struct {
						ID string `json:"id"`
					} `json:"questions"`
				} `json:"sections"`
				RespondentToken string `json:"respondent_token"`
			}
			So(ts.do("GET", "/api/survey/"+token, nil, &view), ShouldEqual, http.StatusOK)

			Convey("Then both sections are returned in order with a respondent token", func() {
				So(len(view.Sections), ShouldEqual, 2)
				So(view.Sections[0].Set.ID, ShouldEqual, "WB")
				So(len(view.Sections[0].Questions), ShouldEqual, 3)
				So(view.RespondentToken, ShouldNotBeEmpty)
			})
		})

		Convey("When respondents answer across sections", func() {
			first := ts.submit(token, "", map[string]any{"Q1": 4, "Q2": "5", "Q3": "High", "UNKNOWN": "x"})
			second := ts.submit(token, first.RespondentToken, map[string]any{"G": "Dev"})
			other := ts.submit(token, "", map[string]any{"Q1": 2, "Q2": 1, "Q3": "Low", "G": "Ops"})

			Convey("Then unknown questions are skipped and sections share a respondent", func() {
				So(first.Count, ShouldEqual, 3)
				So(second.RespondentID, ShouldEqual, first.RespondentID)
				So(other.RespondentID, ShouldNotEqual, first.RespondentID)
			})

			Convey("Then item results page through every response", func() {
				var rep struct {
					TotalResponses    int `json:"total_responses"`
					UniqueRespondents int `json:"unique_respondents"`
					Items             []struct {
						QuestionID string  `json:"question_id"`
						Average    float64 `json:"average"`
					} `json:"items"`
					Charts map[string][]struct {
						Name  string  `json:"name"`
						Value float64 `json:"value"`
					} `json:"charts"`
				}
				So(ts.do("GET", "/api/results/"+distID+"/items?surveySetId=WB", nil, &rep), ShouldEqual, http.StatusOK)
				So(rep.TotalResponses, ShouldEqual, 6)
				So(rep.UniqueRespondents, ShouldEqual, 2)
				So(rep.Items[0].QuestionID, ShouldEqual, "Q1")
				So(rep.Items[0].Average, ShouldEqual, 3)
				So(len(rep.Charts["Q3"]), ShouldEqual, 2)
			})

			Convey("Then the cross-tab joins on respondent", func() {
				var rep struct {
					Matrix map[string]map[string]int `json:"matrix"`
					Pairs  int                       `json:"pairs"`
				}
				So(ts.do("GET", "/api/results/"+distID+"/crosstab?questionA=Q3&questionB=G", nil, &rep), ShouldEqual, http.StatusOK)
				So(rep.Pairs, ShouldEqual, 2)
				So(rep.Matrix["High"]["Dev"], ShouldEqual, 1)
				So(rep.Matrix["Low"]["Ops"], ShouldEqual, 1)
			})

			Convey("Then the correlation of two scales is perfect", func() {
				var rep struct {
					Result struct {
						Coefficient *float64 `json:"coefficient"`
						Sign        string   `json:"sign"`
					} `json:"result"`
				}
				So(ts.do("GET", "/api/results/"+distID+"/correlation?questionX=Q1&questionY=Q2", nil, &rep), ShouldEqual, http.StatusOK)
				So(rep.Result.Coefficient, ShouldNotBeNil)
				So(*rep.Result.Coefficient, ShouldAlmostEqual, 1, 1e-9)
				So(rep.Result.Sign, ShouldEqual, "positive")
			})

			Convey("Then demographics split the outcomes by team", func() {
				var rep struct {
					Options []struct {
						Option          string `json:"option"`
						RespondentCount int    `json:"respondent_count"`
					} `json:"options"`
				}
				So(ts.do("GET", "/api/results/"+distID+"/demographics?questionId=G", nil, &rep), ShouldEqual, http.StatusOK)
				So(len(rep.Options), ShouldEqual, 2)
			})

			Convey("Then categories and category cross-tabs are served", func() {
				var cats struct {
					Categories []struct {
						Category string  `json:"category"`
						Average  float64 `json:"average"`
					} `json:"categories"`
				}
				So(ts.do("GET", "/api/results/"+distID+"/categories", nil, &cats), ShouldEqual, http.StatusOK)
				So(cats.Categories[0].Category, ShouldEqual, "Mood")
				So(ts.do("GET", "/api/results/"+distID+"/category-crosstab?category1=Mood&category2=Work", nil, nil), ShouldEqual, http.StatusOK)
			})

			Convey("Then the wide download is a CSV attachment", func() {
				res, err := ts.srv.Client().Get(ts.srv.URL + "/api/results/" + distID + "/download")
				So(err, ShouldBeNil)
				defer func() { _ = res.Body.Close() }()
				body, _ := io.ReadAll(res.Body)
				So(res.StatusCode, ShouldEqual, http.StatusOK)
				So(res.Header.Get("Content-Type"), ShouldStartWith, "text/csv")
				So(res.Header.Get("Content-Disposition"), ShouldContainSubstring, "responses_"+distID+"_wide.csv")
				lines := strings.Split(strings.TrimSpace(string(body)), "\n")
				So(len(lines), ShouldEqual, 3)
			})
		})

		Convey("When scale answers sit at the float64 limit", func() {
			ts.submit(token, "", map[string]any{"Q1": "1e308", "Q2": "1e308", "G": "Dev"})
			ts.submit(token, "", map[string]any{"Q1": "1e308", "Q2": "1e308", "G": "Dev"})

			Convey("Then every averaging endpoint still returns JSON", func() {
				for _, path := range []string{"items?surveySetId=WB", "categories?surveySetId=WB", "demographics?questionId=G"} {
					var body map[string]any
					So(ts.do("GET", "/api/results/"+distID+"/"+path, nil, &body), ShouldEqual, http.StatusOK)
				}
			})
		})

		Convey("When the distribution is closed", func() {
			So(ts.do("POST", "/api/distributions/"+distID+"/close", nil, nil), ShouldEqual, http.StatusOK)

			Convey("Then the survey is no longer served", func() {
				var e apiError
				So(ts.do("GET", "/api/survey/"+token, nil, &e), ShouldEqual, http.StatusNotFound)
				So(e.Code, ShouldEqual, "not_found")
			})

			Convey("Then results stay available", func() {
				So(ts.do("GET", "/api/results/"+distID+"/items", nil, nil), ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestWriteJSONUnencodable(t *testing.T) {
	Convey("Given a value JSON cannot represent", t, func() {
		rec := httptest.NewRecorder()
		writeJSON(rec, http.StatusOK, map[string]float64{"average": math.Inf(1)})

		Convey("Then the response is a 500 error body", func() {
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			var e apiError
			So(json.Unmarshal(rec.Body.Bytes(), &e), ShouldBeNil)
			So(e.Code, ShouldEqual, "internal")
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given an empty server", t, func() {
		ts := newTestServer(t)

		Convey("Then invalid input is a 400 with a code", func() {
			var e apiError
			So(ts.do("POST", "/api/companies", map[string]any{"name": " "}, &e), ShouldEqual, http.StatusBadRequest)
			So(e.Code, ShouldEqual, "invalid")
		})

		Convey("Then malformed JSON is a 400", func() {
			res, err := ts.srv.Client().Post(ts.srv.URL+"/api/companies", "application/json", strings.NewReader("{"))
			So(err, ShouldBeNil)
			_ = res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then an unknown choice type is rejected", func() {
			set := map[string]any{"name": "Bad", "questions": []map[string]any{{"type": "single_choice"}}}
			So(ts.do("POST", "/api/question-sets", set, nil), ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then oversized scales are rejected", func() {
			var e apiError
			set := map[string]any{"name": "Huge", "questions": []map[string]any{{"id": "H", "type": "scale_99999999999999"}}}
			So(ts.do("POST", "/api/question-sets", set, &e), ShouldEqual, http.StatusBadRequest)
			So(e.Code, ShouldEqual, "invalid")
		})

		Convey("Then unknown distributions are 404", func() {
			So(ts.do("GET", "/api/results/nope/items", nil, nil), ShouldEqual, http.StatusNotFound)
			So(ts.do("GET", "/api/distributions/nope", nil, nil), ShouldEqual, http.StatusNotFound)
			So(ts.do("GET", "/api/survey/nope", nil, nil), ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a duplicate set id is a conflict", func() {
			set := map[string]any{"id": "S", "name": "S", "questions": []map[string]any{{"id": "A", "type": "text"}}}
			So(ts.do("POST", "/api/question-sets", set, nil), ShouldEqual, http.StatusCreated)
			So(ts.do("POST", "/api/question-sets", set, nil), ShouldEqual, http.StatusConflict)
		})

		Convey("Then distributions need existing sets", func() {
			var company struct {
				ID string `json:"id"`
			}
			ts.do("POST", "/api/companies", map[string]any{"name": "Acme"}, &company)
			So(ts.store.companyIDs(), ShouldResemble, []string{company.ID})
			So(ts.do("POST", "/api/distributions", map[string]any{"company_id": company.ID, "survey_set_ids": "X,Y"}, nil), ShouldEqual, http.StatusNotFound)
		})
	})
}
