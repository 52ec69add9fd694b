// internal/app/features/complaints/update.go
package complaints

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type statusRequest struct {
	Status          string  `json:"status"`
	ResolutionNotes *string `json:"resolutionNotes"`
}

type assignRequest struct {
	StaffID string `json:"staffId"`
}

type resolveRequest struct {
	ResolutionNotes string `json:"resolutionNotes"`
}

// HandleSetStatus handles PUT /api/complaints/{id} (admin).
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	view, err := h.Engine.SetStatus(ctx, actor, chi.URLParam(r, "id"), req.Status, req.ResolutionNotes)
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}

// HandleAssign handles PUT /api/complaints/{id}/assign (admin).
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	view, changed, err := h.Engine.Assign(ctx, actor, chi.URLParam(r, "id"), req.StaffID)
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	if changed && view.AssignedTo != nil {
		h.AuditLog.ComplaintAssigned(ctx, r, actor.UserID, view.ID, view.AssignedTo.ID)
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}

// HandleResolve handles PUT /api/complaints/{id}/resolve (assignee).
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	view, err := h.Engine.Resolve(ctx, actor, chi.URLParam(r, "id"), req.ResolutionNotes)
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /api/complaints/{id} (owner or admin).
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	rawID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Engine.Delete(ctx, actor, rawID); err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	if id, err := primitive.ObjectIDFromHex(rawID); err == nil {
		h.AuditLog.ComplaintDeleted(ctx, r, actor.UserID, id)
	}
	uierrors.WriteMessage(w, http.StatusOK, "Complaint removed")
}
