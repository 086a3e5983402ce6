package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/similarity"
	"github.com/camrobjones/papernet/internal/temporal"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

	defaultMissingResults = 20
	maxMissingResults     = 500
)

type ingestPaperRequest struct {
	DOI   string `json:"doi" validate:"required,max=512"`
	Force bool   `json:"force"`
	// WithCitations defaults to true when omitted.
	WithCitations      *bool `json:"with_citations"`
	RetrieveReferences bool  `json:"retrieve_references"`
}

type ingestBatchRequest struct {
	DOIs          []string `json:"dois" validate:"required,min=1,max=1000,dive,required,max=512"`
	Force         bool     `json:"force"`
	WithCitations *bool    `json:"with_citations"`
}

type similarRequest struct {
	DOIs []string `json:"dois" validate:"required,min=1,max=100,dive,required,max=512"`
	N    int      `json:"n" validate:"omitempty,min=1,max=100"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest reads a JSON body into dst and validates it. On failure it
// writes a 400 response and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ingestPaper handles POST /api/v1/papers.
func (s *Server) ingestPaper(w http.ResponseWriter, r *http.Request) {
	var req ingestPaperRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	doi, err := identity.CleanDOI(req.DOI)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	workflowID, runID, err := s.workflows.StartPaperIngestion(r.Context(), temporal.PaperIngestionInput{
		DOI:                doi,
		Force:              req.Force,
		WithCitations:      boolOr(req.WithCitations, true),
		RetrieveReferences: req.RetrieveReferences,
	})
	if err != nil {
		logger := s.requestLogger(r)
		logger.Error().Err(err).Str("doi", doi).Msg("failed to start paper ingestion")
		writeDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordWorkflowStarted(temporal.WorkflowPaperIngestion)
	}

	writeJSON(w, http.StatusAccepted, startWorkflowResponse{
		WorkflowID: workflowID,
		RunID:      runID,
		DOI:        doi,
		Status:     "accepted",
	})
}

// ingestBatch handles POST /api/v1/papers/batch.
func (s *Server) ingestBatch(w http.ResponseWriter, r *http.Request) {
	var req ingestBatchRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	workflowID, runID, err := s.workflows.StartBatchIngestion(r.Context(), temporal.BatchIngestionInput{
		DOIs:          req.DOIs,
		Force:         req.Force,
		WithCitations: boolOr(req.WithCitations, true),
	})
	if err != nil {
		logger := s.requestLogger(r)
		logger.Error().Err(err).Int("dois", len(req.DOIs)).Msg("failed to start batch ingestion")
		writeDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordWorkflowStarted(temporal.WorkflowBatchIngestion)
	}

	writeJSON(w, http.StatusAccepted, startWorkflowResponse{
		WorkflowID: workflowID,
		RunID:      runID,
		Count:      len(req.DOIs),
		Status:     "accepted",
	})
}

// batchProgress handles GET /api/v1/batches/{workflowID}.
func (s *Server) batchProgress(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")

	progress, err := s.workflows.QueryBatchProgress(r.Context(), workflowID)
	if err != nil {
		logger := s.requestLogger(r)
		logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("failed to query batch progress")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batchProgressResponse{WorkflowID: workflowID, Progress: progress})
}

// getPaper handles GET /api/v1/papers?doi=.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("doi")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "doi is required")
		return
	}
	doi, err := identity.CleanDOI(raw)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	paper, err := s.papers.GetByDOI(ctx, doi)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	refs, err := s.refs.ListByCiting(ctx, doi)
	if err != nil {
		logger := s.requestLogger(r)
		logger.Error().Err(err).Str("doi", doi).Msg("failed to list references")
		writeDomainError(w, err)
		return
	}
	if refs == nil {
		refs = []*domain.Reference{}
	}

	writeJSON(w, http.StatusOK, paperResponse{Paper: paper, References: refs})
}

// similarPapers handles POST /api/v1/similar.
func (s *Server) similarPapers(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	n := req.N
	if n == 0 {
		n = similarity.DefaultResults
	}

	results, err := s.similarity.SimilarDOIs(r.Context(), req.DOIs, n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if results == nil {
		results = []similarity.Scored{}
	}

	writeJSON(w, http.StatusOK, similarResponse{Results: results})
}

// missingReferences handles GET /api/v1/references/missing?n=&citing=.
func (s *Server) missingReferences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	n := defaultMissingResults
	if v := q.Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxMissingResults {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("n must be an integer between 1 and %d", maxMissingResults))
			return
		}
		n = parsed
	}

	var citing []string
	for _, raw := range q["citing"] {
		doi, err := identity.CleanDOI(raw)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		citing = append(citing, doi)
	}

	missing, err := s.refs.MostCitedMissing(r.Context(), citing, n)
	if err != nil {
		logger := s.requestLogger(r)
		logger.Error().Err(err).Msg("failed to rank missing references")
		writeDomainError(w, err)
		return
	}
	if missing == nil {
		missing = []domain.MissingDOI{}
	}

	writeJSON(w, http.StatusOK, missingReferencesResponse{Missing: missing})
}
