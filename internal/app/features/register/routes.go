// internal/app/features/register/routes.go
package register

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts registration. limit, when non-nil, throttles account
// creation per client.
func Routes(h *Handler, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	if limit != nil {
		r.Use(limit)
	}
	r.Post("/", h.HandleRegister)
	return r
}
