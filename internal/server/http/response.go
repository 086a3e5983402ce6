package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/similarity"
	"github.com/camrobjones/papernet/internal/temporal"
)

type startWorkflowResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	DOI        string `json:"doi,omitempty"`
	Count      int    `json:"count,omitempty"`
	Status     string `json:"status"`
}

type batchProgressResponse struct {
	WorkflowID string                         `json:"workflow_id"`
	Progress   *temporal.BatchIngestionResult `json:"progress"`
}

type paperResponse struct {
	Paper      *domain.Paper       `json:"paper"`
	References []*domain.Reference `json:"references"`
}

type similarResponse struct {
	Results []similarity.Scored `json:"results"`
}

type missingReferencesResponse struct {
	Missing []domain.MissingDOI `json:"missing"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps err to an HTTP status without leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrInvalidDOI):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, temporal.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, temporal.ErrWorkflowAlreadyStarted):
		writeError(w, http.StatusConflict, "workflow already started")
	case errors.Is(err, temporal.ErrResourceExhausted):
		writeError(w, http.StatusTooManyRequests, "workflow service busy")
	case errors.Is(err, temporal.ErrConnectionFailed), errors.Is(err, temporal.ErrClientClosed):
		writeError(w, http.StatusServiceUnavailable, "workflow service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
