// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	userstore "github.com/dalemusser/campusdesk/internal/app/store/users"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"github.com/dalemusser/campusdesk/internal/app/system/auditlog"
	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/dalemusser/campusdesk/internal/app/system/inputval"
	"github.com/dalemusser/campusdesk/internal/app/system/normalize"
	"github.com/dalemusser/campusdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler authenticates email/password credentials and starts a session.
type Handler struct {
	Users      *userstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.Limiter
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *uierrors.ErrorLogger,
	audit *auditlog.Logger,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		AuditLog:   audit,
		Limiter:    limiter,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

const invalidCredentials = "Invalid credentials"

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		h.AuditLog.LoginFailedRateLimit(r.Context(), r)
		w.Header().Set("Retry-After", "60")
		uierrors.Write(w, apperr.TooManyRequests("Too many login attempts. Please wait a minute before trying again."))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.BadRequest(w, "Invalid request body")
		return
	}
	req.Email = normalize.Email(req.Email)
	if err := inputval.Validate(req); err != nil {
		h.ErrLog.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, req.Email)
		h.ErrLog.BadRequest(w, invalidCredentials)
		return
	}
	if err != nil {
		h.ErrLog.Render(w, r, apperr.Internal(fmt.Errorf("login: lookup user: %w", err)))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, u.Email)
		h.ErrLog.BadRequest(w, invalidCredentials)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{ID: u.ID.Hex(), Email: u.Email, Role: u.Role}); err != nil {
		h.ErrLog.Render(w, r, apperr.Internal(fmt.Errorf("login: save session for %s: %w", u.ID.Hex(), err)))
		return
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)

	uierrors.WriteJSON(w, http.StatusOK, userResponse{ID: u.ID.Hex(), Email: u.Email, Role: u.Role})
}
