// internal/app/features/complaints/list.go
package complaints

import (
	"context"
	"net/http"

	complaintengine "github.com/dalemusser/campusdesk/internal/app/core/complaints"
	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type lister func(ctx context.Context, actor models.AuthContext, r *http.Request) ([]complaintengine.ComplaintView, error)

func (h *Handler) serveList(list lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		views, err := list(ctx, actor, r)
		if err != nil {
			h.ErrLog.Render(w, r, err)
			return
		}
		uierrors.WriteJSON(w, http.StatusOK, views)
	}
}

// ServeAll handles GET /api/complaints?search=.
func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	h.serveList(func(ctx context.Context, a models.AuthContext, r *http.Request) ([]complaintengine.ComplaintView, error) {
		return h.Engine.ListAll(ctx, a, r.URL.Query().Get("search"))
	})(w, r)
}

// ServeMine handles GET /api/complaints/my-complaints.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	h.serveList(func(ctx context.Context, a models.AuthContext, _ *http.Request) ([]complaintengine.ComplaintView, error) {
		return h.Engine.ListMine(ctx, a)
	})(w, r)
}

// ServeAssigned handles GET /api/complaints/assigned.
func (h *Handler) ServeAssigned(w http.ResponseWriter, r *http.Request) {
	h.serveList(func(ctx context.Context, a models.AuthContext, _ *http.Request) ([]complaintengine.ComplaintView, error) {
		return h.Engine.ListAssigned(ctx, a)
	})(w, r)
}

// ServeOne handles GET /api/complaints/{id}.
func (h *Handler) ServeOne(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	view, err := h.Engine.Get(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}
