// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for campusdesk.
//
// These values come from environment variables (CAMPUSDESK_*), config
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers ports, TLS and log level; everything specific to complaint
// tracking lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management
	SessionKey     string        // signs the session id cookie; must be strong in production
	SessionName    string        // cookie name
	SessionDomain  string        // blank means current host
	SessionMaxAge  time.Duration // lifetime of a server-side session
	SessionBackend string        // "mongo" or "redis"
	SessionCleanup time.Duration // how often expired sessions are purged
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// Attachment storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string // directory for local uploads
	StorageLocalURL  string // URL prefix local uploads are served under
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string

	// Outbound email
	MailSender      string // "log", "smtp" or "sendgrid"
	MailSMTPHost    string
	MailSMTPPort    int
	MailSMTPUser    string
	MailSMTPPass    string
	SendGridAPIKey  string
	SendGridSandbox bool
	MailFrom        string
	MailFromName    string
	MailSendTimeout time.Duration

	// HTTP surface
	CORSOrigin         string // origin of the React client
	LoginRatePerMinute int

	// Store call deadlines; zero keeps the built-in default
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Promoted to admin at startup when set
	BootstrapAdminEmail string
}
