// internal/app/features/departments/handler.go
package departments

import (
	"context"
	"encoding/json"
	"net/http"

	departmentengine "github.com/dalemusser/campusdesk/internal/app/core/departments"
	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"github.com/dalemusser/campusdesk/internal/app/system/auditlog"
	"github.com/dalemusser/campusdesk/internal/app/system/authz"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Engine   *departmentengine.Engine
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(engine *departmentengine.Engine, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, ErrLog: errLog, AuditLog: audit, Log: logger}
}

var errNotSignedIn = apperr.Unauthenticated("Not authenticated")

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.AuthContext, bool) {
	a, ok := authz.Actor(r)
	if !ok {
		h.ErrLog.Render(w, r, errNotSignedIn)
	}
	return a, ok
}

type createRequest struct {
	Name string `json:"name"`
}

// HandleCreate handles POST /api/departments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req createRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.BadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.Engine.Create(ctx, actor, req.Name)
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	h.AuditLog.DepartmentCreated(ctx, r, actor.UserID, d.ID, d.Name)
	uierrors.WriteJSON(w, http.StatusCreated, d)
}

// ServeList handles GET /api/departments.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Engine.ListAll(ctx, actor)
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeStaff handles GET /api/departments/staff.
func (h *Handler) ServeStaff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	staff, err := h.Engine.ListStaff(ctx, actor)
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, staff)
}

// HandleDelete handles DELETE /api/departments/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	rawID := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete department")
	defer cancel()

	if err := h.Engine.Delete(ctx, actor, rawID); err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	if id, err := primitive.ObjectIDFromHex(rawID); err == nil {
		h.AuditLog.DepartmentDeleted(ctx, r, actor.UserID, id)
	}
	uierrors.WriteMessage(w, http.StatusOK, "Department removed")
}
