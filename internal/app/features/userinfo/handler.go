// internal/app/features/userinfo/handler.go
package userinfo

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	userstore "github.com/dalemusser/campusdesk/internal/app/store/users"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"github.com/dalemusser/campusdesk/internal/app/system/authz"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's account.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Users: userstore.New(db), Log: logger}
}

// ServeMe handles GET /api/auth/me. The password hash is never serialized.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		uierrors.Write(w, apperr.Unauthenticated("Not authenticated"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, actor.UserID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.Write(w, apperr.NotFound("User not found"))
		return
	}
	if err != nil {
		h.Log.Error("me: load user", zap.Error(err))
		uierrors.Write(w, apperr.Internal(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}
