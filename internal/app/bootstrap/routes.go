// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	complaintengine "github.com/dalemusser/campusdesk/internal/app/core/complaints"
	departmentengine "github.com/dalemusser/campusdesk/internal/app/core/departments"
	complaintsfeature "github.com/dalemusser/campusdesk/internal/app/features/complaints"
	departmentsfeature "github.com/dalemusser/campusdesk/internal/app/features/departments"
	errorsfeature "github.com/dalemusser/campusdesk/internal/app/features/errors"
	healthfeature "github.com/dalemusser/campusdesk/internal/app/features/health"
	loginfeature "github.com/dalemusser/campusdesk/internal/app/features/login"
	logoutfeature "github.com/dalemusser/campusdesk/internal/app/features/logout"
	registerfeature "github.com/dalemusser/campusdesk/internal/app/features/register"
	userinfofeature "github.com/dalemusser/campusdesk/internal/app/features/userinfo"
	complaintstore "github.com/dalemusser/campusdesk/internal/app/store/complaints"
	departmentstore "github.com/dalemusser/campusdesk/internal/app/store/departments"
	userstore "github.com/dalemusser/campusdesk/internal/app/store/users"
	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for campusdesk.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so every service in deps.Runtime is ready.
//
// Layout:
//   - /api/auth/*        register, login, logout, me
//   - /api/complaints/*  complaint lifecycle
//   - /api/departments/* departments and the staff directory
//   - /health, /metrics  operations
//   - /uploads/*         local complaint images (storage_type=local)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.Sessions == nil {
		return nil, errors.New("build handler: startup did not initialize runtime services")
	}
	db := deps.MongoDatabase

	// SameSite=None for the cross-origin client requires Secure, so only
	// production gets secure cookies.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(rt.Sessions, appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Role changes and deleted accounts take effect on the next request.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger)

	users := userstore.New(db)
	departments := departmentstore.New(db, logger)
	complaintEngine := complaintengine.New(complaintengine.Deps{
		Complaints:  complaintstore.New(db),
		Users:       users,
		Departments: departments,
		Notifier:    rt.Dispatcher,
		Attachments: rt.Attachments,
		Metrics:     rt.Metrics,
		Log:         logger,
	})
	departmentEngine := departmentengine.New(departments, users)

	r := chi.NewRouter()
	r.Use(rt.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appCfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// Loads SessionUser into context for every request that carries a cookie.
	r.Use(sessionMgr.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", rt.Metrics.Handler())

	if rt.LocalFiles != nil {
		root, err := rt.LocalFiles.GetFullPath(".")
		if err != nil {
			return nil, fmt.Errorf("resolve local storage root: %w", err)
		}
		prefix := "/" + strings.Trim(appCfg.StorageLocalURL, "/")
		r.Handle(prefix+"/*", fileserver.Handler(prefix, root))
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			registerHandler := registerfeature.NewHandler(db, errLog, rt.Audit, logger)
			ar.Mount("/register", registerfeature.Routes(registerHandler, rt.Limiter.Middleware))

			loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, rt.Audit, rt.Limiter, logger)
			ar.Mount("/login", loginfeature.Routes(loginHandler))

			logoutHandler := logoutfeature.NewHandler(sessionMgr, rt.Audit, logger)
			ar.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

			meHandler := userinfofeature.NewHandler(db, logger)
			ar.Mount("/me", userinfofeature.Routes(meHandler, sessionMgr))
		})

		complaintsHandler := complaintsfeature.NewHandler(complaintEngine, rt.Attachments, errLog, rt.Audit, logger)
		api.Mount("/complaints", complaintsfeature.Routes(complaintsHandler, sessionMgr))

		departmentsHandler := departmentsfeature.NewHandler(departmentEngine, errLog, rt.Audit, logger)
		api.Mount("/departments", departmentsfeature.Routes(departmentsHandler, sessionMgr))
	})

	return r, nil
}
