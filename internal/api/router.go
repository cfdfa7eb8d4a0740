package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/soaringjerry/synap-insights/internal/config"
	"github.com/soaringjerry/synap-insights/internal/services"
	"github.com/soaringjerry/synap-insights/pkg/logger"
	"github.com/soaringjerry/synap-insights/pkg/metrics"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type Router struct {
	catalog       *services.CatalogService
	distributions *services.DistributionService
	responses     *services.ResponseService
	analytics     *services.AnalyticsService
	export        *services.ExportService
	log           logger.Logger
}

type routerConfig struct {
	baseURL     string
	tokenSecret string
	tokenTTL    time.Duration
	pageSize    int
	metrics     *metrics.Manager
	log         logger.Logger
}

type Option func(*routerConfig)

// WithBaseURL sets the prefix of published survey links.
func WithBaseURL(u string) Option { return func(c *routerConfig) { c.baseURL = u } }

// WithRespondentTokens sets the HMAC key and lifetime of respondent tokens.
func WithRespondentTokens(secret string, ttl time.Duration) Option {
	return func(c *routerConfig) {
		c.tokenSecret = secret
		c.tokenTTL = ttl
	}
}

func WithPageSize(n int) Option { return func(c *routerConfig) { c.pageSize = n } }

func WithMetrics(m *metrics.Manager) Option { return func(c *routerConfig) { c.metrics = m } }

func WithLogger(l logger.Logger) Option { return func(c *routerConfig) { c.log = l } }

func NewRouter(store Store, opts ...Option) *Router {
	cfg := routerConfig{
		baseURL:     "http://localhost:8080",
		tokenSecret: config.DefaultTokenSecret,
		tokenTTL:    72 * time.Hour,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	tokens := services.NewRespondentTokens(cfg.tokenSecret, cfg.tokenTTL)
	analyticsOpts := []services.AnalyticsOption{
		services.WithMetrics(cfg.metrics),
		services.WithLogger(cfg.log.Named("analytics")),
	}
	if cfg.pageSize > 0 {
		analyticsOpts = append(analyticsOpts, services.WithPageSize(cfg.pageSize))
	}
	return &Router{
		catalog:       services.NewCatalogService(store),
		distributions: services.NewDistributionService(store, tokens, cfg.baseURL),
		responses:     services.NewResponseService(store, tokens, cfg.metrics),
		analytics:     services.NewAnalyticsService(store, analyticsOpts...),
		export:        services.NewExportService(store, analyticsOpts...),
		log:           cfg.log,
	}
}

// Catalog exposes the catalogue service for first-run seeding.
func (rt *Router) Catalog() *services.CatalogService { return rt.catalog }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/companies", rt.handleCreateCompany)
	mux.HandleFunc("POST /api/question-sets", rt.handleCreateQuestionSet)
	mux.HandleFunc("GET /api/question-sets/{id}/questions", rt.handleQuestions)

	mux.HandleFunc("POST /api/distributions", rt.handleCreateDistribution)
	mux.HandleFunc("GET /api/distributions/{id}", rt.handleGetDistribution)
	mux.HandleFunc("POST /api/distributions/{id}/close", rt.handleCloseDistribution)

	mux.HandleFunc("GET /api/survey/{token}", rt.handleSurvey)
	mux.HandleFunc("POST /api/survey/{token}/responses", rt.handleSubmit)

	mux.HandleFunc("GET /api/results/{distributionId}/items", rt.handleItems)
	mux.HandleFunc("GET /api/results/{distributionId}/categories", rt.handleCategories)
	mux.HandleFunc("GET /api/results/{distributionId}/category-crosstab", rt.handleCategoryCrossTab)
	mux.HandleFunc("GET /api/results/{distributionId}/crosstab", rt.handleCrossTab)
	mux.HandleFunc("GET /api/results/{distributionId}/demographics", rt.handleDemographics)
	mux.HandleFunc("GET /api/results/{distributionId}/correlation", rt.handleCorrelation)
	mux.HandleFunc("GET /api/results/{distributionId}/download", rt.handleDownload)
}

// POST /api/companies {name}
func (rt *Router) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !rt.decode(w, r, &req) {
		return
	}
	c, err := rt.catalog.CreateCompany(r.Context(), req.Name)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// POST /api/question-sets
func (rt *Router) handleCreateQuestionSet(w http.ResponseWriter, r *http.Request) {
	var req services.CreateQuestionSetRequest
	if !rt.decode(w, r, &req) {
		return
	}
	view, err := rt.catalog.CreateQuestionSet(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GET /api/question-sets/{id}/questions
func (rt *Router) handleQuestions(w http.ResponseWriter, r *http.Request) {
	view, err := rt.catalog.Questions(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type distributionResponse struct {
	DistributionID string `json:"distribution_id"`
	*services.Distribution
}

// POST /api/distributions {company_id, survey_set_ids[]}
func (rt *Router) handleCreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID    string          `json:"company_id"`
		SurveySetIDs json.RawMessage `json:"survey_set_ids"`
	}
	if !rt.decode(w, r, &req) {
		return
	}
	d, err := rt.distributions.Create(r.Context(), services.CreateDistributionRequest{
		CompanyID:    req.CompanyID,
		SurveySetIDs: surveySetIDs(req.SurveySetIDs),
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, distributionResponse{DistributionID: d.ID, Distribution: d})
}

// surveySetIDs accepts a JSON array or a string holding a comma list.
func surveySetIDs(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return services.ParseSurveySetIDs(s)
	}
	return services.ParseSurveySetIDs(string(raw))
}

// GET /api/distributions/{id}
func (rt *Router) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := rt.distributions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// POST /api/distributions/{id}/close
func (rt *Router) handleCloseDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := rt.distributions.Close(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GET /api/survey/{token}
func (rt *Router) handleSurvey(w http.ResponseWriter, r *http.Request) {
	view, err := rt.distributions.Survey(r.Context(), r.PathValue("token"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /api/survey/{token}/responses {respondent_token?, answers:[{question_id, answer}]}
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitRequest
	if !rt.decode(w, r, &req) {
		return
	}
	res, err := rt.responses.Submit(r.Context(), r.PathValue("token"), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GET /api/results/{distributionId}/items?surveySetId=
func (rt *Router) handleItems(w http.ResponseWriter, r *http.Request) {
	rep, err := rt.analytics.Items(r.Context(), r.PathValue("distributionId"), r.URL.Query().Get("surveySetId"))
	rt.writeResult(w, r, rep, err)
}

// GET /api/results/{distributionId}/categories?surveySetId=
func (rt *Router) handleCategories(w http.ResponseWriter, r *http.Request) {
	rep, err := rt.analytics.Categories(r.Context(), r.PathValue("distributionId"), r.URL.Query().Get("surveySetId"))
	rt.writeResult(w, r, rep, err)
}

// GET /api/results/{distributionId}/category-crosstab?surveySetId=&category1=&category2=
func (rt *Router) handleCategoryCrossTab(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := rt.analytics.CategoryCrossTab(r.Context(), r.PathValue("distributionId"), q.Get("surveySetId"), q.Get("category1"), q.Get("category2"))
	rt.writeResult(w, r, rep, err)
}

// GET /api/results/{distributionId}/crosstab?questionA=&questionB=
func (rt *Router) handleCrossTab(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := rt.analytics.CrossTab(r.Context(), r.PathValue("distributionId"), q.Get("questionA"), q.Get("questionB"))
	rt.writeResult(w, r, rep, err)
}

// GET /api/results/{distributionId}/demographics?questionId=
func (rt *Router) handleDemographics(w http.ResponseWriter, r *http.Request) {
	rep, err := rt.analytics.Demographics(r.Context(), r.PathValue("distributionId"), r.URL.Query().Get("questionId"))
	rt.writeResult(w, r, rep, err)
}

// GET /api/results/{distributionId}/correlation?questionX=&questionY=
func (rt *Router) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := rt.analytics.Correlation(r.Context(), r.PathValue("distributionId"), q.Get("questionX"), q.Get("questionY"))
	rt.writeResult(w, r, rep, err)
}

// GET /api/results/{distributionId}/download?format=wide|long
func (rt *Router) handleDownload(w http.ResponseWriter, r *http.Request) {
	res, err := rt.export.Download(r.Context(), r.PathValue("distributionId"), r.URL.Query().Get("format"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(res.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (rt *Router) writeResult(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			rt.writeError(w, r, services.NewInvalidError("request body required"))
			return false
		}
		rt.writeError(w, r, services.NewInvalidError("invalid json: "+err.Error()))
		return false
	}
	return true
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeJSON(w, statusFor(se.Code), errorBody{Code: string(se.Code), Message: se.Message})
		return
	}
	rt.log.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal", Message: "internal error"})
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v before the header goes out so an unencodable value
// still yields a 500 error body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Code: "internal", Message: "internal error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
