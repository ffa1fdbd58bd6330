package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/cli"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/services"
	"github.com/mrlokans/library/internal/tasks"
	"github.com/mrlokans/library/internal/thumbnails"
)

// =============================================================================
// Persistence
// =============================================================================

var _ services.Store = (*database.Database)(nil)
var _ http.Pinger = (*database.Database)(nil)
var _ metadata.BookUpdater = (*books.Repository)(nil)

// =============================================================================
// Domain Services
// =============================================================================

var _ http.UserService = (*services.UserService)(nil)
var _ http.EligibilityChecker = (*services.EligibilityService)(nil)
var _ http.BookService = (*services.BookService)(nil)
var _ http.LoanService = (*services.LoanService)(nil)
var _ cli.BookSeeder = (*services.BookService)(nil)

// =============================================================================
// External Metadata
// =============================================================================

var _ metadata.Provider = (*metadata.GoogleBooksClient)(nil)
var _ metadata.Provider = (*metadata.OpenLibraryClient)(nil)
var _ metadata.ISBNResolver = (*metadata.Resolver)(nil)
var _ services.MetadataResolver = (*metadata.Resolver)(nil)
var _ http.BookEnricher = (*metadata.Enricher)(nil)
var _ http.ThumbnailCache = (*thumbnails.Cache)(nil)

// =============================================================================
// Audit
// =============================================================================

var _ services.AuditLogger = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ services.EnrichmentQueue = (*tasks.Client)(nil)
var _ scheduler.ScanEnqueuer = (*tasks.Client)(nil)
var _ scheduler.CleanupEnqueuer = (*tasks.Client)(nil)
var _ tasks.BookEnricher = (*metadata.Enricher)(nil)
var _ tasks.OverdueScanner = (*services.LoanService)(nil)
var _ scheduler.OverdueScanner = (*services.LoanService)(nil)
