package http

import (
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core services
	Users       UserService
	Eligibility EligibilityChecker
	Books       BookService
	Loans       LoanService

	// Optional collaborators; routes are skipped when nil
	Enricher   BookEnricher
	Thumbnails ThumbnailCache
	Tasks      TaskQueue
	Audit      AuditReader

	// Health checks
	Database Pinger
	Version  string

	// Authentication; nil disables it
	AuthMiddleware *auth.Middleware

	CORSAllowedOrigins []string
	Logger             logrus.FieldLogger
}
