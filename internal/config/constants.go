package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library.db"

	// DefaultOverdueScanSchedule runs the overdue scan hourly at :00
	DefaultOverdueScanSchedule = "0 * * * *"

	// DefaultAuditCleanupSchedule purges old audit events daily at 03:30
	DefaultAuditCleanupSchedule = "30 3 * * *"

	// DefaultGoogleBooksURL is the Google Books API root
	DefaultGoogleBooksURL = "https://www.googleapis.com"

	// DefaultThumbnailDir holds locally cached book thumbnails
	DefaultThumbnailDir = "./thumbnails"

	// DefaultOpenLibraryURL is the Open Library API root
	DefaultOpenLibraryURL = "https://openlibrary.org"
)
