// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/campusdesk/internal/app/store/audit"
	"github.com/dalemusser/campusdesk/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, registration).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for admin actions (departments, assignment, deletion, roles).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID, success bool) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

func adminEvent(r *http.Request, eventType string, actorID primitive.ObjectID, details map[string]string) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   &actorID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventLoginSuccess, &userID, true)
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedUserNotFound logs a login attempt for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, email string) {
	e := authEvent(r, audit.EventLoginFailedUserNotFound, nil, false)
	e.FailureReason = "user not found"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedWrongPassword logs a login attempt with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventLoginFailedWrongPassword, &userID, false)
	e.FailureReason = "wrong password"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailedRateLimit logs a login attempt rejected by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request) {
	e := authEvent(r, audit.EventLoginFailedRateLimit, nil, false)
	e.FailureReason = "rate limited"
	l.Log(ctx, e)
}

// Logout logs a sign-out. userID may be empty when the session was already gone.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	var uid *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		uid = &oid
	}
	l.Log(ctx, authEvent(r, audit.EventLogout, uid, true))
}

// UserRegistered logs a self-service registration.
func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := authEvent(r, audit.EventUserRegistered, &userID, true)
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// --- Admin Events ---

// DepartmentCreated logs creation of a department.
func (l *Logger) DepartmentCreated(ctx context.Context, r *http.Request, actorID, deptID primitive.ObjectID, name string) {
	l.Log(ctx, adminEvent(r, audit.EventDepartmentCreated, actorID, map[string]string{
		"department_id":   deptID.Hex(),
		"department_name": name,
	}))
}

// DepartmentDeleted logs removal of a department.
func (l *Logger) DepartmentDeleted(ctx context.Context, r *http.Request, actorID, deptID primitive.ObjectID) {
	l.Log(ctx, adminEvent(r, audit.EventDepartmentDeleted, actorID, map[string]string{
		"department_id": deptID.Hex(),
	}))
}

// ComplaintAssigned logs an assignment of a complaint to a staff member.
func (l *Logger) ComplaintAssigned(ctx context.Context, r *http.Request, actorID, complaintID, staffID primitive.ObjectID) {
	l.Log(ctx, adminEvent(r, audit.EventComplaintAssigned, actorID, map[string]string{
		"complaint_id": complaintID.Hex(),
		"staff_id":     staffID.Hex(),
	}))
}

// ComplaintDeleted logs deletion of a complaint.
func (l *Logger) ComplaintDeleted(ctx context.Context, r *http.Request, actorID, complaintID primitive.ObjectID) {
	l.Log(ctx, adminEvent(r, audit.EventComplaintDeleted, actorID, map[string]string{
		"complaint_id": complaintID.Hex(),
	}))
}

// UserRoleChanged logs a role change made from the admin CLI.
func (l *Logger) UserRoleChanged(ctx context.Context, email, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserRoleChanged,
		IP:        "cli",
		Success:   true,
		Details:   map[string]string{"email": email, "role": role},
	})
}
