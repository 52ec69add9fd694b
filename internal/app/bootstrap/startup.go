// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/campusdesk/internal/app/store/audit"
	sessionstore "github.com/dalemusser/campusdesk/internal/app/store/sessions"
	userstore "github.com/dalemusser/campusdesk/internal/app/store/users"
	"github.com/dalemusser/campusdesk/internal/app/system/attachments"
	"github.com/dalemusser/campusdesk/internal/app/system/auditlog"
	"github.com/dalemusser/campusdesk/internal/app/system/mailer"
	"github.com/dalemusser/campusdesk/internal/app/system/metrics"
	"github.com/dalemusser/campusdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"github.com/dalemusser/campusdesk/internal/app/system/workers"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup builds the shared services once the database is reachable and
// indexes exist, then starts background work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	rt := deps.Runtime
	if rt == nil {
		return errors.New("startup: DBDeps.Runtime is nil")
	}
	db := deps.MongoDatabase

	rt.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	if appCfg.BootstrapAdminEmail != "" {
		if err := ensureBootstrapAdmin(ctx, db, appCfg.BootstrapAdminEmail, rt.Audit, logger); err != nil {
			return err
		}
	}

	var cleanupTarget workers.ExpiredSessionDeleter
	if deps.Redis != nil {
		rt.Sessions = sessionstore.NewRedis(deps.Redis, sessionstore.DefaultRedisPrefix)
	} else {
		rt.MongoSessions = sessionstore.New(db)
		rt.Sessions = rt.MongoSessions
		cleanupTarget = rt.MongoSessions
	}

	rt.Limiter = ratelimit.New(appCfg.LoginRatePerMinute)

	sender, err := buildSender(appCfg, logger)
	if err != nil {
		return err
	}
	rt.Dispatcher = mailer.NewDispatcher(sender, logger, appCfg.MailSendTimeout)

	if err := buildAttachments(ctx, appCfg, rt); err != nil {
		return err
	}

	rt.Metrics = metrics.New(db, logger)

	rt.Cleanup = workers.NewSessionCleanup(cleanupTarget, rt.Limiter, logger, appCfg.SessionCleanup)
	rt.Cleanup.Start()

	logger.Info("campusdesk startup complete",
		zap.String("session_backend", appCfg.SessionBackend),
		zap.String("storage_type", appCfg.StorageType),
		zap.String("mail_sender", appCfg.MailSender))
	return nil
}

func buildSender(appCfg AppConfig, logger *zap.Logger) (mailer.Sender, error) {
	switch appCfg.MailSender {
	case "smtp":
		s, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			Username: appCfg.MailSMTPUser,
			Password: appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
			Timeout:  appCfg.MailSendTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("smtp sender: %w", err)
		}
		return s, nil
	case "sendgrid":
	default:
		return mailer.NewLogSender(logger), nil
	}
	s, err := mailer.NewSendGridSender(mailer.SendGridConfig{
		APIKey:   appCfg.SendGridAPIKey,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		Sandbox:  appCfg.SendGridSandbox,
	})
	if err != nil {
		return nil, fmt.Errorf("sendgrid sender: %w", err)
	}
	return s, nil
}

func buildAttachments(ctx context.Context, appCfg AppConfig, rt *Runtime) error {
	if appCfg.StorageType == "s3" {
		s3ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		s, err := storage.NewS3(s3ctx, storage.S3Config{
			Region: appCfg.StorageS3Region,
			Bucket: appCfg.StorageS3Bucket,
			Prefix: appCfg.StorageS3Prefix,
		})
		if err != nil {
			return fmt.Errorf("s3 attachment storage: %w", err)
		}
		rt.Attachments = attachments.New(s)
		return nil
	}
	local, err := storage.NewLocal(storage.LocalConfig{
		BasePath: appCfg.StorageLocalPath,
		BaseURL:  appCfg.StorageLocalURL,
	})
	if err != nil {
		return fmt.Errorf("local attachment storage: %w", err)
	}
	rt.Attachments = attachments.New(local)
	rt.LocalFiles = local
	return nil
}

// ensureBootstrapAdmin promotes an existing account to admin. Accounts are
// only created through registration, so a missing user is logged and
// skipped rather than created without a password.
func ensureBootstrapAdmin(ctx context.Context, db *mongo.Database, email string, al *auditlog.Logger, logger *zap.Logger) error {
	users := userstore.New(db)

	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		logger.Warn("bootstrap admin not registered yet; skipping promotion", zap.String("email", email))
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup bootstrap admin: %w", err)
	}
	if u.Role == models.RoleAdmin {
		return nil
	}
	if err := users.SetRole(ctx, email, models.RoleAdmin); err != nil {
		return fmt.Errorf("promote bootstrap admin: %w", err)
	}
	al.UserRoleChanged(ctx, u.Email, models.RoleAdmin)
	logger.Info("promoted bootstrap admin", zap.String("email", u.Email), zap.String("previous_role", u.Role))
	return nil
}
