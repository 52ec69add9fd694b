// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	sessionstore "github.com/dalemusser/campusdesk/internal/app/store/sessions"
	"github.com/dalemusser/campusdesk/internal/app/system/attachments"
	"github.com/dalemusser/campusdesk/internal/app/system/auditlog"
	"github.com/dalemusser/campusdesk/internal/app/system/auth"
	"github.com/dalemusser/campusdesk/internal/app/system/mailer"
	"github.com/dalemusser/campusdesk/internal/app/system/metrics"
	"github.com/dalemusser/campusdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/campusdesk/internal/app/system/workers"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         *redis.Client // nil unless session_backend=redis

	// Runtime is allocated by ConnectDB and filled by Startup. WAFFLE passes
	// DBDeps by value, so the services live behind a pointer.
	Runtime *Runtime
}

// Runtime holds the long-lived services shared by handlers.
type Runtime struct {
	Sessions      auth.SessionBackend
	MongoSessions *sessionstore.Store // nil when sessions live in Redis
	Limiter       *ratelimit.Limiter
	Dispatcher    *mailer.Dispatcher
	Attachments   attachments.Store
	LocalFiles    *storage.Local // nil unless storage_type=local
	Metrics       *metrics.Metrics
	Audit         *auditlog.Logger
	Cleanup       *workers.SessionCleanup
}
