package pos

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/auth"
)

// Handler exposes POS HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/pos", func(r chi.Router) {
		r.Post("/checkout", h.checkout)
		r.Get("/sales/{id}", h.getSale)
		r.Get("/sales", h.recentSales)
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sale, err := h.service.Checkout(r.Context(), id.BusinessID, id.UserID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, sale)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	sale, err := h.service.GetSale(r.Context(), id.BusinessID, chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sale)
}

func (h *Handler) recentSales(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid since timestamp"})
			return
		}
		since = parsed
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sales, err := h.service.RecentSales(r.Context(), id.BusinessID, since, limit)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sales)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
