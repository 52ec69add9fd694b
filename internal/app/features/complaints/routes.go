// internal/app/features/complaints/routes.go
package complaints

import (
	"github.com/dalemusser/campusdesk/internal/app/policy/complaintpolicy"
	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/complaints. Every route needs a session; the
// role half of each rule is checked here, ownership in the engine.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.With(complaintpolicy.Require(complaintpolicy.OpCreate)).Post("/", h.HandleCreate)
	r.With(complaintpolicy.Require(complaintpolicy.OpListAll)).Get("/", h.ServeAll)
	r.With(complaintpolicy.Require(complaintpolicy.OpListMine)).Get("/my-complaints", h.ServeMine)
	r.With(complaintpolicy.Require(complaintpolicy.OpListAssigned)).Get("/assigned", h.ServeAssigned)

	r.Route("/{id}", func(cr chi.Router) {
		cr.Get("/", h.ServeOne)
		cr.With(complaintpolicy.Require(complaintpolicy.OpSetStatus)).Put("/", h.HandleSetStatus)
		cr.With(complaintpolicy.Require(complaintpolicy.OpAssign)).Put("/assign", h.HandleAssign)
		cr.Put("/resolve", h.HandleResolve)
		cr.Delete("/", h.HandleDelete)
	})
	return r
}
