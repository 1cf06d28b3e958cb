package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suqhub/suq-backend/internal/errs"
	"github.com/suqhub/suq-backend/internal/modules/auth"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Post("/products", h.createProduct)
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Patch("/products/{id}", h.patchProduct)
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.service.CreateProduct(r.Context(), id.BusinessID, req)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	products, err := h.service.ListProducts(r.Context(), id.BusinessID)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	p, err := h.service.GetProduct(r.Context(), id.BusinessID, chi.URLParam(r, "id"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) patchProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var patch ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := h.service.PatchProduct(r.Context(), id.BusinessID, chi.URLParam(r, "id"), patch)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, p)
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
