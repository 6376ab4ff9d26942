package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pddlplanning/pddlplanning-go/internal/facts"
	"github.com/pddlplanning/pddlplanning-go/lint"
	"github.com/pddlplanning/pddlplanning-go/ontology"
	"github.com/pddlplanning/pddlplanning-go/planning"
	"github.com/pddlplanning/pddlplanning-go/store"
	"github.com/pddlplanning/pddlplanning-go/templates"
)

const defaultMaxBody = 4 << 20

type server struct {
	templates templates.Source
	solver    planning.Solver
	store     store.Store
	logger    *zap.Logger

	auth    tokenAuth
	limiter *rateLimiter
	acl     *acl
	maxBody int64
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.apiMiddleware)
		r.Post("/plan", s.handlePlan)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/check", s.handleCheck)
		r.Get("/plans", s.handleListPlans)
		r.Get("/plans/{id}", s.handleGetPlan)
		r.Delete("/plans/{id}", s.handleDeletePlan)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{name}", s.handleGetTemplate)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *server) apiMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		ok, known := s.auth.authorize(r, s.acl.required(r, requiredRole(r)))
		if !ok {
			if !known {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			writeJSONError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		if s.maxBody > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates != nil {
		if _, err := s.templates.List(r.Context()); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "template source unavailable: "+err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// documentRequest names a stored template or carries the documents inline,
// with facts replacing the problem's sections.
type documentRequest struct {
	Template string   `json:"template,omitempty"`
	Domain   string   `json:"domain,omitempty"`
	Problem  string   `json:"problem,omitempty"`
	Objects  []string `json:"objects,omitempty"`
	Init     []string `json:"init,omitempty"`
	Goals    []string `json:"goals,omitempty"`
}

type resolvedRequest struct {
	template templates.Template
	context  *facts.Context
	resolved *facts.Resolved
}

func (s *server) resolve(ctx context.Context, req documentRequest) (*resolvedRequest, error) {
	var t templates.Template
	switch {
	case req.Template != "":
		if s.templates == nil {
			return nil, errNoTemplates
		}
		var err error
		if t, err = s.templates.Load(ctx, req.Template); err != nil {
			return nil, err
		}
	case req.Domain != "" && req.Problem != "":
		t = templates.Template{Name: "inline", Domain: req.Domain, Problem: req.Problem}
	default:
		return nil, errNoDocuments
	}

	fc, err := facts.NewContext(t.Domain, t.Problem)
	if err != nil {
		return nil, err
	}
	resolved, err := fc.Resolve(&facts.File{Objects: req.Objects, Init: req.Init, Goals: req.Goals})
	if err != nil {
		return nil, err
	}
	return &resolvedRequest{template: t, context: fc, resolved: resolved}, nil
}

var (
	errNoTemplates = errors.New("no template source is configured")
	errNoDocuments = errors.New("either template or both domain and problem are required")
	errNoHistory   = errors.New("plan history is disabled")
)

type planRequest struct {
	documentRequest
	Where string `json:"where,omitempty"`
	Check bool   `json:"check,omitempty"`
}

type planResponse struct {
	Template    string          `json:"template"`
	ProblemName string          `json:"problem_name"`
	Tasks       []ontology.Task `json:"tasks"`
	Filtered    bool            `json:"filtered,omitempty"`
}

func (s *server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := s.resolve(r.Context(), req.documentRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Check {
		if err := in.context.LintInput(in.resolved).CheckErrors(); err != nil {
			s.writeError(w, err)
			return
		}
	}
	var filter *planning.TaskFilter
	if req.Where != "" {
		if filter, err = planning.CompileTaskFilter(req.Where); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	problem, err := facts.Splice(in.template.Problem, in.resolved)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tasks, err := s.solver.SearchPlan(r.Context(), in.template.Domain, problem)
	if err != nil {
		s.logger.Info("plan search failed", zap.String("template", in.template.Name), zap.String("kind", planning.Kind(err)), zap.Error(err))
		s.writeError(w, err)
		return
	}
	resp := planResponse{Template: in.template.Name, ProblemName: in.context.Problem.Name, Tasks: nonNil(tasks)}
	if filter != nil {
		filtered, err := filter.Filter(tasks)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Tasks, resp.Filtered = nonNil(filtered), true
	}
	writeJSON(w, http.StatusOK, resp)
}

type evaluateRequest struct {
	documentRequest
	Expressions []string `json:"expressions,omitempty"`
	Trace       bool     `json:"trace,omitempty"`
}

func (s *server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := s.resolve(r.Context(), req.documentRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	results, err := in.context.Evaluate(in.resolved, req.Expressions, req.Trace)
	if err != nil {
		s.writeError(w, err)
		return
	}
	satisfied := true
	for _, result := range results {
		satisfied = satisfied && result.Satisfied
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"satisfied": satisfied, "results": results})
}

type checkRequest struct {
	documentRequest
	Strict bool `json:"strict,omitempty"`
}

type checkResponse struct {
	OK     bool         `json:"ok"`
	Error  string       `json:"error,omitempty"`
	Issues []lint.Issue `json:"issues"`
}

func (s *server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := s.resolve(r.Context(), req.documentRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	input := in.context.LintInput(in.resolved)
	resp := checkResponse{OK: true, Issues: lint.LintWithOptions(input, lint.Options{Strict: req.Strict})}
	if resp.Issues == nil {
		resp.Issues = []lint.Issue{}
	}
	if err := input.CheckErrors(); err != nil {
		resp.OK, resp.Error = false, err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errNoHistory)
		return
	}
	query := r.URL.Query()
	filter := store.Filter{ProblemName: query.Get("problem"), Status: store.Status(query.Get("status"))}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if raw := query.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "since must be an RFC 3339 time")
			return
		}
		filter.Since = since
	}

	records, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if s.store == nil {
		s.writeError(w, errNoHistory)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid plan id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	record, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.writeError(w, errNoTemplates)
		return
	}
	names, err := s.templates.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"templates": names})
}

func (s *server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.writeError(w, errNoTemplates)
		return
	}
	t, err := s.templates.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// statusOf maps errors to HTTP statuses and the kind reported to clients.
func statusOf(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "request"
	case errors.Is(err, errNoDocuments):
		return http.StatusBadRequest, "request"
	case errors.Is(err, templates.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, errNoTemplates), errors.Is(err, errNoHistory):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ontology.ErrMalformedInput), errors.Is(err, ontology.ErrMissingSection):
		return http.StatusBadRequest, "malformed"
	case errors.Is(err, ontology.ErrIllegalUsage), errors.Is(err, ontology.ErrEvaluation), errors.Is(err, ontology.ErrInvariant):
		return http.StatusUnprocessableEntity, "illegal_usage"
	}
	switch kind := planning.Kind(err); kind {
	case "translation", "planning":
		return http.StatusUnprocessableEntity, kind
	case "unavailable":
		return http.StatusServiceUnavailable, kind
	case "timeout":
		return http.StatusGatewayTimeout, kind
	case "canceled":
		return http.StatusRequestTimeout, kind
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status, kind := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": kind})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return false
	}
	return true
}

func nonNil(tasks []ontology.Task) []ontology.Task {
	if tasks == nil {
		return []ontology.Task{}
	}
	return tasks
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
