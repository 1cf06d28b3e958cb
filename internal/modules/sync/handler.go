package sync

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

// Handler exposes the sync HTTP endpoints.
type Handler struct {
	service Service
	errlog  ErrorRepository
}

func NewHandler(service Service, errlog ErrorRepository) *Handler {
	return &Handler{service: service, errlog: errlog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sync", func(r chi.Router) {
		r.Post("/push", h.push)
		r.Get("/pull", h.pull)
		r.Get("/state", h.state)
		r.Post("/errors/{id}/resolve", h.resolveError)
	})
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := h.service.Push(r.Context(), id.BusinessID, id.UserID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	// An action-level failure is reported in the body, not the status:
	// the batch itself was accepted and the rest of it applied.
	respond(w, http.StatusOK, res)
}

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC 3339"})
			return
		}
		since = &t
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	deviceID := r.URL.Query().Get("device_id")

	res, err := h.service.Pull(r.Context(), id.BusinessID, id.UserID, deviceID, since, limit)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	res, err := h.service.State(r.Context(), id.BusinessID, id.UserID, r.URL.Query().Get("device_id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) resolveError(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	errID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid error id"})
		return
	}
	if err := h.errlog.Resolve(r.Context(), id.BusinessID, errID, id.UserID); err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]bool{"resolved": true})
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
