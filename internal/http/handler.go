// Package http serves saved research results as a read-only JSON API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
	"github.com/marutilai/open-deep-research/internal/report"
)

// Handler handles viewer HTTP requests.
type Handler struct {
	store *report.Store
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(store *report.Store) *Handler {
	return &Handler{
		store: store,
	}
}

type companiesResponse struct {
	Companies []report.Company `json:"companies"`
}

type researchResponse struct {
	Company string                `json:"company"`
	Results []*domain.AngleResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleCompanies lists every company with saved results.
func (h *Handler) HandleCompanies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companies, err := h.store.Companies(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, companiesResponse{Companies: companies})
}

// HandleResearch returns the saved angle results of one company, newest first.
func (h *Handler) HandleResearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := r.PathValue("company")

	results, err := h.store.Results(observability.WithCompany(ctx, slug), slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, researchResponse{Company: slug, Results: results})
}

// HandleSummary returns the newest markdown summary of one company.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("company")

	summary, err := h.store.Summary(r.Context(), slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(summary))
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, report.ErrNotFound) {
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	observability.FromContext(r.Context()).Error("viewer request failed", observability.Error(err))
	writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(r.Context()).Error("failed to encode response", observability.Error(err))
	}
}
