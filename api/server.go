// Package api - Thin HTTP layer over the ranking engine
// The API is only responsible for input ingestion, engine orchestration and
// output serialization.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"restaurant-rank/adapters/storage"
	"restaurant-rank/adapters/tabular"
	"restaurant-rank/core/fuzzy"
	"restaurant-rank/core/output"
	"restaurant-rank/core/ranking"
	"restaurant-rank/core/types"
	"restaurant-rank/internal/config"
	rerrors "restaurant-rank/internal/errors"
	"restaurant-rank/internal/logging"
)

// MaxBodyBytes bounds request bodies
const MaxBodyBytes = 8 << 20

// Server is the API server
type Server struct {
	mux     *http.ServeMux
	version string
	cfg     config.Config
	store   storage.Store
	log     *zap.Logger
}

// NewServer creates a new API server. store may be nil, which disables the
// history endpoints.
func NewServer(version string, cfg *config.Config, store storage.Store) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		mux:     http.NewServeMux(),
		version: version,
		cfg:     *cfg,
		store:   store,
		log:     logging.Named("api"),
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.handle("POST /rank", s.handleRank)
	s.handle("GET /explain", s.handleExplain)
	s.handle("GET /health", s.handleHealth)

	// Supporting endpoints
	s.handle("GET /version", s.handleVersion)
	s.handle("GET /profiles", s.handleProfiles)
	s.handle("GET /runs", s.handleListRuns)
	s.handle("GET /runs/{id}", s.handleGetRun)
	s.handle("GET /runs/{old}/compare/{new}", s.handleCompareRuns)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, instrument(pattern, h))
}

// handleRank handles POST /rank. The body is either a RankRequest (JSON) or
// a CSV/TSV table; query parameters profile, top, on_error, save and format
// override the body and configuration.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	req, parsed, err := s.decodeRank(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	cfg := s.cfg
	if req.Profile != "" {
		cfg.Engine.Profile = req.Profile
	}
	if req.TopK != nil {
		cfg.Ranking.TopK = *req.TopK
	}
	if req.OnError != "" {
		cfg.Ranking.OnError = req.OnError
	}
	if err := cfg.Validate(); err != nil {
		s.writeErr(w, rerrors.Wrap(rerrors.TypeInput, "invalid ranking options", err))
		return
	}

	profile, err := fuzzy.LookupProfile(cfg.Engine.Profile)
	if err != nil {
		s.writeErr(w, rerrors.Wrap(rerrors.TypeInput, "invalid profile", err))
		return
	}

	format := output.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = output.FormatJSON
	}
	registry := output.NewDefaultRegistry(s.outputOptions())
	formatter, ok := registry.Get(format)
	if !ok {
		s.writeErr(w, rerrors.Input(fmt.Sprintf("unsupported output format %q", format)).WithContext("format", string(format)))
		return
	}

	ranker := ranking.NewRanker(fuzzy.NewEngine(profile), ranking.Options{
		TopK:        cfg.Ranking.TopK,
		OnError:     ranking.Policy(cfg.Ranking.OnError),
		Workers:     cfg.Ranking.Workers,
		ProfileName: profile.Name,
		Logger:      s.log,
	})
	report, err := ranker.Rank(ctx, parsed.Records)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	report.MergeRejected(parsed.Rejected)
	observeReport(report)

	if req.Save && s.store != nil {
		if err := s.store.Save(ctx, storage.NewStoredRun("api", report)); err != nil {
			s.writeErr(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("X-Run-Id", report.ID)
	w.WriteHeader(http.StatusOK)
	if err := formatter.Render(w, report); err != nil {
		s.log.Warn("render failed", zap.String("run", report.ID), zap.Error(err))
	}
}

func (s *Server) decodeRank(r *http.Request) (*RankRequest, *tabular.ParseResult, error) {
	req := &RankRequest{}
	parsed := &tabular.ParseResult{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv", "text/tab-separated-values":
		comma := ','
		if mediaType == "text/tab-separated-values" {
			comma = '\t'
		}
		policy := s.cfg.Ranking.OnError
		if v := r.URL.Query().Get("on_error"); v != "" {
			policy = v
		}
		res, err := tabular.ParseDelimited(r.Body, comma, tabular.ParseOptions{
			Columns: tabular.Columns{
				ID:      s.cfg.Input.IDColumn,
				Service: s.cfg.Input.ServiceColumn,
				Price:   s.cfg.Input.PriceColumn,
			},
			SkipMalformed: s.cfg.Input.SkipMalformed && ranking.Policy(policy) == ranking.PolicySkip,
		})
		if err != nil {
			return nil, nil, err
		}
		parsed = res
	case "", "application/json":
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			return nil, nil, rerrors.Parsing("invalid JSON", err)
		}
		parsed.Records = make([]types.Record, len(req.Records))
		for i, in := range req.Records {
			parsed.Records[i] = in.record(i + 1)
		}
	default:
		return nil, nil, rerrors.NotSupported(fmt.Sprintf("content type %q", mediaType))
	}

	q := r.URL.Query()
	if v := q.Get("profile"); v != "" {
		req.Profile = v
	}
	if v := q.Get("on_error"); v != "" {
		req.OnError = v
	}
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, nil, rerrors.Input(fmt.Sprintf("invalid top %q", v))
		}
		req.TopK = &n
	}
	if v := q.Get("save"); v != "" {
		save, err := strconv.ParseBool(v)
		if err != nil {
			return nil, nil, rerrors.Input(fmt.Sprintf("invalid save %q", v))
		}
		req.Save = save
	}
	return req, parsed, nil
}

// handleExplain handles GET /explain?service=..&price=..&profile=..
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	service, err := strconv.ParseFloat(q.Get("service"), 64)
	if err != nil {
		s.writeErr(w, rerrors.Input(fmt.Sprintf("invalid service %q", q.Get("service"))))
		return
	}
	price, err := strconv.ParseFloat(q.Get("price"), 64)
	if err != nil {
		s.writeErr(w, rerrors.Input(fmt.Sprintf("invalid price %q", q.Get("price"))))
		return
	}

	name := q.Get("profile")
	if name == "" {
		name = s.cfg.Engine.Profile
	}
	profile, err := fuzzy.LookupProfile(name)
	if err != nil {
		s.writeErr(w, rerrors.Wrap(rerrors.TypeInput, "invalid profile", err))
		return
	}

	ev := fuzzy.NewEngine(profile).Evaluate(service, price)
	s.writeJSON(w, struct {
		Profile    string `json:"profile"`
		Degenerate bool   `json:"degenerate"`
		fuzzy.Evaluation
	}{profile.Name, ev.Degenerate(), ev}, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"history": s.store != nil,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "restaurant-rank",
		"api_version": "v1",
	}, http.StatusOK)
}

// handleProfiles handles GET /profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	var infos []ProfileInfo
	for _, name := range fuzzy.ProfileNames() {
		p, err := fuzzy.LookupProfile(name)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		anchors := make(map[string]float64)
		for _, c := range fuzzy.Suitabilities() {
			v, _ := p.Anchors.Of(c)
			anchors[string(c)] = v
		}
		infos = append(infos, ProfileInfo{Name: p.Name, Description: p.Description, Anchors: anchors})
	}
	s.writeJSON(w, infos, http.StatusOK)
}

// handleListRuns handles GET /runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	filter := &storage.ListFilter{Source: r.URL.Query().Get("source"), Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeErr(w, rerrors.Input(fmt.Sprintf("invalid limit %q", v)))
			return
		}
		filter.Limit = n
	}

	runs, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		sum := RunSummary{ID: run.ID, Source: run.Source, Profile: run.Profile, CreatedAt: run.CreatedAt}
		if run.Report != nil {
			sum.Count = run.Report.Summary.Count
			sum.Mean = run.Report.Summary.Mean
		}
		out = append(out, sum)
	}
	s.writeJSON(w, map[string]interface{}{
		"runs":  out,
		"count": len(out),
	}, http.StatusOK)
}

// handleGetRun handles GET /runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, run, http.StatusOK)
}

// handleCompareRuns handles GET /runs/{old}/compare/{new}
func (s *Server) handleCompareRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	cmp, err := s.store.Compare(r.Context(), r.PathValue("old"), r.PathValue("new"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, cmp, http.StatusOK)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store != nil {
		return true
	}
	s.writeError(w, "HISTORY_DISABLED", "run history is not configured", http.StatusServiceUnavailable)
	return false
}

func (s *Server) outputOptions() output.Options {
	opts := output.Options{Precision: s.cfg.Output.Precision, Locale: language.English}
	if tag, err := language.Parse(s.cfg.Output.Locale); err == nil {
		opts.Locale = tag
	}
	return opts
}

func contentType(f output.Format) string {
	switch f {
	case output.FormatJSON:
		return "application/json"
	case output.FormatCSV:
		return "text/csv; charset=utf-8"
	case output.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, code, message string, status int) {
	s.writeJSON(w, ErrorBody{Error: ErrorDetail{Code: code, Message: message}}, status)
}

// writeErr maps typed errors to HTTP status codes
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, "BODY_TOO_LARGE", err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	var typed *rerrors.Error
	if !errors.As(err, &typed) {
		s.log.Error("request failed", zap.Error(err))
		s.writeError(w, string(rerrors.TypeInternal), err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch typed.Type {
	case rerrors.TypeInput, rerrors.TypeParsing, rerrors.TypeConfig:
		status = http.StatusBadRequest
	case rerrors.TypeNotFound:
		status = http.StatusNotFound
	case rerrors.TypeNotSupported:
		status = http.StatusUnsupportedMediaType
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, ErrorBody{Error: ErrorDetail{
		Code:    string(typed.Type),
		Message: err.Error(),
		Context: typed.Context,
	}}, status)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
