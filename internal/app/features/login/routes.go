// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves POST / (mounted at /api/auth/login).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleLogin)
	return r
}
