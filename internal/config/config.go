package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required
	AuthModeBasic AuthMode = "basic" // HTTP Basic credentials (default)
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Auth
		Metadata
		Tasks
		OverdueScan
		Audit
		Loans
	}

	HTTP struct {
		Port               int32
		Host               string
		CORSAllowedOrigins []string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		Env                      string
	}
	Log struct {
		Level  string
		Format string // "text" or "json"; empty picks by Env
	}
	Database struct {
		Path string
	}
	Auth struct {
		Mode         AuthMode
		Username     string
		Password     string
		PasswordHash string // bcrypt, preferred over Password when set
	}
	Metadata struct {
		Timeout        time.Duration
		GoogleBooksURL string
		OpenLibraryURL string
		Thumbnails     bool
		ThumbnailDir   string

		// ThumbnailPrivateHosts allows thumbnail downloads from loopback and
		// private networks.
		ThumbnailPrivateHosts bool
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	OverdueScan struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}
	Audit struct {
		RetentionDays   int
		CleanupSchedule string // empty disables the scheduled purge
	}
	Loans struct {
		DefaultDays int
	}
)

// IsDevelopment reports whether the app runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewConfig loads an optional .env file and reads configuration from the environment.
func NewConfig() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("app_env", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "")
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_mode", string(AuthModeBasic))
	v.SetDefault("basic_user", "")
	v.SetDefault("basic_pass", "")
	v.SetDefault("basic_pass_hash", "")

	// Metadata providers
	v.SetDefault("metadata_timeout", "5s")
	v.SetDefault("google_books_url", DefaultGoogleBooksURL)
	v.SetDefault("openlibrary_url", DefaultOpenLibraryURL)
	v.SetDefault("thumbnail_cache_enabled", true)
	v.SetDefault("thumbnail_cache_dir", DefaultThumbnailDir)
	v.SetDefault("thumbnail_allow_private_hosts", false)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("overdue_scan_enabled", true)
	v.SetDefault("overdue_scan_schedule", DefaultOverdueScanSchedule)
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_cleanup_schedule", DefaultAuditCleanupSchedule)
	v.SetDefault("default_loan_days", 14)

	return &Config{
		HTTP: HTTP{
			Port:               v.GetInt32("PORT"),
			Host:               v.GetString("HOST"),
			CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			Env:                      v.GetString("APP_ENV"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			Mode:         AuthMode(strings.ToLower(v.GetString("AUTH_MODE"))),
			Username:     v.GetString("BASIC_USER"),
			Password:     v.GetString("BASIC_PASS"),
			PasswordHash: v.GetString("BASIC_PASS_HASH"),
		},
		Metadata: Metadata{
			Timeout:        v.GetDuration("METADATA_TIMEOUT"),
			GoogleBooksURL: v.GetString("GOOGLE_BOOKS_URL"),
			OpenLibraryURL: v.GetString("OPENLIBRARY_URL"),
			Thumbnails:     v.GetBool("THUMBNAIL_CACHE_ENABLED"),
			ThumbnailDir:   v.GetString("THUMBNAIL_CACHE_DIR"),

			ThumbnailPrivateHosts: v.GetBool("THUMBNAIL_ALLOW_PRIVATE_HOSTS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		OverdueScan: OverdueScan{
			Enabled:  v.GetBool("OVERDUE_SCAN_ENABLED"),
			Schedule: v.GetString("OVERDUE_SCAN_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Loans: Loans{
			DefaultDays: v.GetInt("DEFAULT_LOAN_DAYS"),
		},
	}
}
