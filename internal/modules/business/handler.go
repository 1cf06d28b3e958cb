package business

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/auth"
)

// Handler exposes tenant endpoints. Registration is the only
// authenticated route reachable without a business claim.
type Handler struct {
	service Service
	tokens  auth.Service
}

func NewHandler(service Service, tokens auth.Service) *Handler {
	return &Handler{service: service, tokens: tokens}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/business", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Get("/me", h.me)
	})
}

type registerResponse struct {
	Business *Business         `json:"business"`
	Auth     *auth.LoginResult `json:"auth"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req RegisterBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	b, err := h.service.Register(r.Context(), id.UserID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	// The caller's token predates the business claim; hand back a fresh
	// one so the client does not need a second login round trip.
	login, err := h.tokens.TokenForUser(r.Context(), id.UserID)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, registerResponse{Business: b, Auth: login})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	b, err := h.service.GetByUserID(r.Context(), id.UserID)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, b)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
