package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cif-onboarding/internal/completion"
	"cif-onboarding/internal/formdata"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type CompletionRequest struct {
	ClientData    map[string]interface{} `json:"clientData,omitempty"`
	FormData      map[string]interface{} `json:"formData,omitempty"`
	DocumentTypes []string               `json:"documentTypes,omitempty"`
}

type CompletionResponse struct {
	Results          []completion.Result         `json:"results"`
	Summary          completion.Summary          `json:"summary"`
	MissingBySection []completion.SectionMissing `json:"missingBySection"`
	RiskSuggestion   *completion.RiskSuggestion  `json:"riskSuggestion,omitempty"`
}

type FlattenRequest struct {
	FormData map[string]interface{} `json:"formData"`
}

type FlattenResponse struct {
	FlatData   map[string]interface{} `json:"flatData"`
	FieldCount int                    `json:"fieldCount"`
}

type RegistryResponse struct {
	Documents []completion.DocumentDefinition `json:"documents"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady runs every check concurrently. Any failure answers 503.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := make([]string, len(s.checks))

	var g errgroup.Group
	for i, c := range s.checks {
		i, c := i, c
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			if err := c.Ping(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	failed := g.Wait() != nil

	checks := make(map[string]string, len(s.checks))
	for i, c := range s.checks {
		checks[c.Name] = results[i]
	}

	status, code := "ready", http.StatusOK
	if failed {
		status, code = "not_ready", http.StatusServiceUnavailable
		s.logger.Warn("readiness check failed", map[string]interface{}{"checks": checks})
	}
	writeJSON(w, code, map[string]interface{}{"status": status, "checks": checks})
}

func (s *Server) handleRegistry(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RegistryResponse{Documents: s.calculator.Registry().Definitions()})
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	types := make([]completion.DocumentType, 0, len(req.DocumentTypes))
	for _, raw := range req.DocumentTypes {
		t, err := s.calculator.Registry().Parse(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "UNKNOWN_DOCUMENT_TYPE", err.Error())
			return
		}
		types = append(types, t)
	}

	data := completion.MergeClientData(formdata.Flatten(req.FormData), req.ClientData)

	results, err := s.calculator.CalculateTypes(data, types...)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	missing := completion.GroupMissing(results)
	if missing == nil {
		missing = []completion.SectionMissing{}
	}
	writeJSON(w, http.StatusOK, CompletionResponse{
		Results:          results,
		Summary:          s.calculator.SummarizeResults(results),
		MissingBySection: missing,
		RiskSuggestion:   completion.SuggestRiskProfile(data),
	})
}

func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	var req FlattenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FormData == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_INPUT", "formData is required")
		return
	}

	flat := formdata.Flatten(req.FormData)
	writeJSON(w, http.StatusOK, FlattenResponse{FlatData: flat, FieldCount: len(flat)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "INVALID_INPUT", "request body too large")
			return false
		}
		writeError(w, r, http.StatusBadRequest, "INVALID_INPUT", fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:     code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
