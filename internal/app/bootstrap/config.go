// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/system/inputval"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for campusdesk.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CAMPUSDESK_MONGO_URI, CAMPUSDESK_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "campusdesk", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},

	// Sessions
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "campusdesk-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session lifetime (e.g., 24h, 720h)"},
	{Name: "session_backend", Default: "mongo", Desc: "Server-side session store: 'mongo' or 'redis'"},
	{Name: "session_cleanup_interval", Default: "5m", Desc: "How often expired sessions and idle rate-limit buckets are purged"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (session_backend=redis)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Attachment storage
	{Name: "storage_type", Default: "local", Desc: "Attachment storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local directory for complaint images"},
	{Name: "storage_local_url", Default: "/uploads", Desc: "URL prefix for serving local images"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "campusdesk/", Desc: "S3 key prefix"},

	// Email
	{Name: "mail_sender", Default: "log", Desc: "Email transport: 'log' (development), 'smtp' or 'sendgrid'"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port (465 for implicit TLS)"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "sendgrid_api_key", Default: "", Desc: "SendGrid API key"},
	{Name: "sendgrid_sandbox", Default: false, Desc: "Validate SendGrid requests without delivering mail"},
	{Name: "mail_from", Default: "noreply@campusdesk.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "Complaint Management System", Desc: "From display name"},
	{Name: "mail_send_timeout", Default: "15s", Desc: "Deadline for delivering one email"},

	// HTTP surface
	{Name: "cors_origin", Default: "http://localhost:3000", Desc: "Origin of the browser client allowed to send credentials"},
	{Name: "login_rate_per_minute", Default: 10, Desc: "Login attempts allowed per client IP per minute"},

	// Store call deadlines
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document store calls"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and uploads"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for multi-collection operations"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Admin bootstrap
	{Name: "bootstrap_admin_email", Default: "", Desc: "Existing user promoted to admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// CAMPUSDESK_* environment variables and command-line flags with
// precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CAMPUSDESK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:     appValues.String("session_key"),
		SessionName:    appValues.String("session_name"),
		SessionDomain:  appValues.String("session_domain"),
		SessionMaxAge:  appValues.Duration("session_max_age", 30*24*time.Hour),
		SessionBackend: appValues.String("session_backend"),
		SessionCleanup: appValues.Duration("session_cleanup_interval", 5*time.Minute),
		RedisAddr:      appValues.String("redis_addr"),
		RedisPassword:  appValues.String("redis_password"),
		RedisDB:        appValues.Int("redis_db"),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),

		MailSender:      appValues.String("mail_sender"),
		MailSMTPHost:    appValues.String("mail_smtp_host"),
		MailSMTPPort:    appValues.Int("mail_smtp_port"),
		MailSMTPUser:    appValues.String("mail_smtp_user"),
		MailSMTPPass:    appValues.String("mail_smtp_pass"),
		SendGridAPIKey:  appValues.String("sendgrid_api_key"),
		SendGridSandbox: appValues.Bool("sendgrid_sandbox"),
		MailFrom:        appValues.String("mail_from"),
		MailFromName:    appValues.String("mail_from_name"),
		MailSendTimeout: appValues.Duration("mail_send_timeout", 15*time.Second),

		CORSOrigin:         appValues.String("cors_origin"),
		LoginRatePerMinute: appValues.Int("login_rate_per_minute"),

		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		BootstrapAdminEmail: appValues.String("bootstrap_admin_email"),
	}

	return coreCfg, appCfg, nil
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig rejects configurations that would fail later at
// connect or request time.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters in production")
	}

	switch appCfg.SessionBackend {
	case "mongo":
	case "redis":
		if appCfg.RedisAddr == "" {
			return fmt.Errorf("session_backend=redis requires redis_addr")
		}
	default:
		return fmt.Errorf("session_backend must be 'mongo' or 'redis', got %q", appCfg.SessionBackend)
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type=local requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	switch appCfg.MailSender {
	case "log":
	case "smtp":
		if appCfg.MailSMTPHost == "" || appCfg.MailSMTPPort <= 0 {
			return fmt.Errorf("mail_sender=smtp requires mail_smtp_host and mail_smtp_port")
		}
		if !inputval.IsValidEmail(appCfg.MailFrom) {
			return fmt.Errorf("mail_from %q is not a valid email address", appCfg.MailFrom)
		}
	case "sendgrid":
		if appCfg.SendGridAPIKey == "" {
			return fmt.Errorf("mail_sender=sendgrid requires sendgrid_api_key")
		}
		if !inputval.IsValidEmail(appCfg.MailFrom) {
			return fmt.Errorf("mail_from %q is not a valid email address", appCfg.MailFrom)
		}
	default:
		return fmt.Errorf("mail_sender must be 'log', 'smtp' or 'sendgrid', got %q", appCfg.MailSender)
	}

	if !auditModes[appCfg.AuditLogAuth] || !auditModes[appCfg.AuditLogAdmin] {
		return fmt.Errorf("audit_log_auth and audit_log_admin must be one of all|db|log|off")
	}
	if appCfg.BootstrapAdminEmail != "" && !inputval.IsValidEmail(appCfg.BootstrapAdminEmail) {
		return fmt.Errorf("bootstrap_admin_email %q is not a valid email address", appCfg.BootstrapAdminEmail)
	}
	return nil
}
