package credit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/auth"
)

// Handler exposes the credit ledger over HTTP.
type Handler struct{ repo Repository }

func NewHandler(repo Repository) *Handler { return &Handler{repo: repo} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/credit", func(r chi.Router) {
		r.Get("/entries", h.listEntries)
		r.Post("/entries/{id}/settle", h.settleEntry)
	})
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	entries, err := h.repo.ListByBusiness(r.Context(), id.BusinessID)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, entries)
}

func (h *Handler) settleEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid entry id"})
		return
	}
	if err := h.repo.Settle(r.Context(), id.BusinessID, entryID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrNotFound) {
			status = http.StatusNotFound
		}
		respond(w, status, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "settled"})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
