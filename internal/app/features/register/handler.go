// internal/app/features/register/handler.go
package register

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
	"github.com/dalemusser/campusdesk/internal/app/system/inputval"
	"github.com/dalemusser/campusdesk/internal/app/system/normalize"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	Users    *userstore.Store
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Cost     int // bcrypt cost
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Log:      logger,
		ErrLog:   errLog,
		AuditLog: audit,
		Cost:     bcrypt.DefaultCost,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister handles POST /api/auth/register. New accounts always get
// role "user".
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ErrLog.BadRequest(w, "Invalid request body")
		return
	}
	req.Email = normalize.Email(req.Email)
	if err := inputval.Validate(req); err != nil {
		h.ErrLog.BadRequest(w, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.Cost)
	if err != nil {
		h.ErrLog.Render(w, r, apperr.Internal(fmt.Errorf("register: hash password: %w", err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, string(hash))
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		h.ErrLog.Render(w, r, apperr.Conflict("User already exists"))
		return
	}
	if err != nil {
		h.ErrLog.Render(w, r, apperr.Internal(fmt.Errorf("register: create user: %w", err)))
		return
	}
	h.AuditLog.UserRegistered(ctx, r, u.ID, u.Email)

	uierrors.WriteMessage(w, http.StatusCreated, "User registered successfully")
}
