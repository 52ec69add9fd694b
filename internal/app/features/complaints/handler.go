// internal/app/features/complaints/handler.go
package complaints

import (
	"encoding/json"
	"net/http"

	complaintengine "github.com/dalemusser/campusdesk/internal/app/core/complaints"
	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"github.com/dalemusser/campusdesk/internal/app/system/attachments"
	"github.com/dalemusser/campusdesk/internal/app/system/auditlog"
	"github.com/dalemusser/campusdesk/internal/app/system/authz"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.uber.org/zap"
)

// Handler exposes the complaint engine over JSON.
type Handler struct {
	Engine      *complaintengine.Engine
	Attachments attachments.Store // nil disables image upload
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
}

func NewHandler(
	engine *complaintengine.Engine,
	store attachments.Store,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Engine:      engine,
		Attachments: store,
		ErrLog:      errLog,
		AuditLog:    audit,
		Log:         logger,
	}
}

// actor returns the caller or writes 401. Routes already require a session,
// so a miss here means a malformed session id.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (models.AuthContext, bool) {
	a, ok := authz.Actor(r)
	if !ok {
		h.ErrLog.Render(w, r, apperr.Unauthenticated("Not authenticated"))
	}
	return a, ok
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		uierrors.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
