package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Middleware verifies the bearer token and places the identity into the
// request context. Requests without a valid token get 401; requests
// whose user has no business yet get 403 on business-scoped routes.
type Middleware struct {
	service Service
}

func NewMiddleware(service Service) *Middleware { return &Middleware{service: service} }

// RequireAuth authenticates the request. The token comes from the
// Authorization header, or from a `token` query parameter for clients
// that cannot set headers (the websocket upgrade).
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			unauthorized(w, "missing token")
			return
		}
		id, err := m.service.ParseToken(token)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireBusiness rejects authenticated users that are not attached to
// a tenant yet.
func (m *Middleware) RequireBusiness(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || id.BusinessID == uuid.Nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "no business registered"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
