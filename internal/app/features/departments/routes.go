// internal/app/features/departments/routes.go
package departments

import (
	"github.com/dalemusser/campusdesk/internal/app/policy/complaintpolicy"
	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/departments.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.With(complaintpolicy.Require(complaintpolicy.OpDepartmentCreate)).Post("/", h.HandleCreate)
	r.With(complaintpolicy.Require(complaintpolicy.OpDepartmentStaff)).Get("/staff", h.ServeStaff)
	r.With(complaintpolicy.Require(complaintpolicy.OpDepartmentDelete)).Delete("/{id}", h.HandleDelete)
	return r
}
