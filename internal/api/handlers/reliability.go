package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sourcemeter/server/internal/api/problem"
	"github.com/sourcemeter/server/internal/domain/scoring"
	"github.com/sourcemeter/server/internal/domain/snapshots"
	"github.com/sourcemeter/server/internal/worker"
)

const maxRequestBody = 64 << 10

// ReliabilityHandler serves the snapshot query API and the admin refresh
// endpoint.
type ReliabilityHandler struct {
	snapshots *snapshots.Service
	worker    *worker.Worker
	validate  *validator.Validate
	env       string
}

func NewReliabilityHandler(snapshotSvc *snapshots.Service, batchWorker *worker.Worker, env string) *ReliabilityHandler {
	return &ReliabilityHandler{
		snapshots: snapshotSvc,
		worker:    batchWorker,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		env:       env,
	}
}

type topKRequest struct {
	Domain  string `json:"domain" validate:"required,max=100"`
	UseCase string `json:"use_case" validate:"required,oneof=clinical exploratory"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Limit   *int   `json:"limit" validate:"omitempty,min=1,max=100"`
}

type rankedSource struct {
	Rank         int                     `json:"rank"`
	SourceName   string                  `json:"source_name"`
	SourceULID   string                  `json:"source_id"`
	Score        float64                 `json:"score"`
	Band         scoring.Band            `json:"band"`
	Components   scoring.ScoreComponents `json:"components"`
	Uncertainty  scoring.Uncertainty     `json:"uncertainty"`
	Reasons      []string                `json:"reasons"`
	ImpactMetric float64                 `json:"impact_metric"`
}

type topKResponse struct {
	Domain       string         `json:"domain"`
	UseCase      string         `json:"use_case"`
	SnapshotDate string         `json:"snapshot_date"`
	Version      string         `json:"algorithm_version"`
	Results      []rankedSource `json:"results"`
}

// TopK handles POST /api/v1/reliability/top.
func (h *ReliabilityHandler) TopK(w http.ResponseWriter, r *http.Request) {
	var req topKRequest
	if !h.decode(w, r, &req) {
		return
	}

	rows, err := h.snapshots.TopK(r.Context(), snapshots.TopKQuery{
		Domain:  req.Domain,
		UseCase: req.UseCase,
		Date:    req.Date,
		Limit:   req.Limit,
	})
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	resp := topKResponse{
		Domain:       rows[0].Domain,
		UseCase:      string(rows[0].UseCase),
		SnapshotDate: rows[0].Date.Format("2006-01-02"),
		Version:      rows[0].Version,
		Results:      make([]rankedSource, 0, len(rows)),
	}
	for i, row := range rows {
		resp.Results = append(resp.Results, rankedSource{
			Rank:         i + 1,
			SourceName:   row.SourceName,
			SourceULID:   row.SourceULID,
			Score:        row.Score,
			Band:         row.Band,
			Components:   row.Components,
			Uncertainty:  row.Uncertainty,
			Reasons:      row.Reasons,
			ImpactMetric: row.ImpactMetric,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type comparisonResponse struct {
	UseCase string                       `json:"use_case"`
	Date    string                       `json:"date"`
	Domains []snapshots.DomainComparison `json:"domains"`
}

// Comparison handles GET /api/v1/reliability/comparison.
func (h *ReliabilityHandler) Comparison(w http.ResponseWriter, r *http.Request) {
	useCase := r.URL.Query().Get("use_case")
	if useCase == "" {
		useCase = string(scoring.UseCaseClinical)
	}
	date := r.URL.Query().Get("date")

	comparisons, err := h.snapshots.CompareDomains(r.Context(), useCase, date)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	served := date
	if served == "" {
		served = time.Now().UTC().Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, comparisonResponse{
		UseCase: useCase,
		Date:    served,
		Domains: comparisons,
	})
}

type refreshRequest struct {
	DomainList     []string `json:"domain_list" validate:"required,min=1,max=10,dive,required,max=100"`
	UseCases       []string `json:"use_cases" validate:"omitempty,dive,oneof=clinical exploratory"`
	Date           string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ForceRecompute bool     `json:"force_recompute"`
}

type refreshResponse struct {
	Date        string             `json:"date"`
	Counts      worker.Counts      `json:"counts"`
	Processed   []string           `json:"processed_domains"`
	Unprocessed []string           `json:"unprocessed_domains,omitempty"`
	Errors      []worker.ItemError `json:"errors,omitempty"`
	Timestamp   string             `json:"timestamp"`
}

// Refresh handles POST /api/v1/reliability/refresh. It runs the batch
// computation synchronously and reports per-item outcomes; a partial run
// still returns what was committed.
func (h *ReliabilityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	opts := worker.Options{
		Domains: req.DomainList,
		Force:   req.ForceRecompute,
	}
	// use_cases already validated against the enum by the struct tags.
	for _, raw := range req.UseCases {
		opts.UseCases = append(opts.UseCases, scoring.UseCase(raw))
	}
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest,
				"https://sourcemeter.dev/problems/validation-error",
				"Invalid request", err, h.env)
			return
		}
		opts.TargetDate = parsed
	}

	result, runErr := h.worker.Run(r.Context(), opts)
	if runErr != nil && result == nil {
		problem.Write(w, r, http.StatusInternalServerError,
			"about:blank", "Refresh failed", runErr, h.env)
		return
	}

	resp := refreshResponse{
		Date:        result.Date.Format("2006-01-02"),
		Counts:      result.Counts,
		Processed:   result.Processed,
		Unprocessed: result.Unprocessed,
		Errors:      result.Errors,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if runErr != nil {
		// Some domains committed, some never ran.
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

func (h *ReliabilityHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		problem.Write(w, r, http.StatusBadRequest,
			"https://sourcemeter.dev/problems/malformed-body",
			"Malformed request body", err, h.env)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		fields := map[string]interface{}{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		problem.Write(w, r, http.StatusBadRequest,
			"https://sourcemeter.dev/problems/validation-error",
			"Invalid request", err, h.env, problem.WithErrors(fields))
		return false
	}
	return true
}

func (h *ReliabilityHandler) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case snapshots.IsValidation(err):
		problem.Write(w, r, http.StatusBadRequest,
			"https://sourcemeter.dev/problems/validation-error",
			"Invalid request", err, h.env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, snapshots.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound,
			"https://sourcemeter.dev/problems/no-data",
			"No reliability data", err, h.env,
			problem.WithDetail(err.Error()))
	default:
		problem.Write(w, r, http.StatusInternalServerError,
			"about:blank", "Query failed", err, h.env)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
