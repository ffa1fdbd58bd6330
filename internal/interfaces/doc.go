// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Persistence
//
//   - services.Store: transactional access to the repositories (internal/services/store.go),
//     implemented by *database.Database
//   - metadata.BookUpdater: book reads and patches for enrichment (internal/metadata/enricher.go)
//
// ## Domain Services (consumed by HTTP controllers, internal/http/stores.go)
//
//   - UserService, EligibilityChecker, BookService, LoanService
//   - BookEnricher, ThumbnailCache, TaskQueue, AuditReader, Pinger
//
// ## External Metadata
//
//   - metadata.Provider: one ISBN source such as Google Books or Open Library
//   - services.MetadataResolver: ordered provider chain with a shared timeout
//
// ## Background Work
//
//   - services.EnrichmentQueue: schedules enrichment of placeholder books
//   - tasks.OverdueScanner, scheduler.OverdueScanner: overdue loan scan
//   - scheduler.ScanEnqueuer: hands scheduled scans to the task queue
//   - scheduler.CleanupEnqueuer: hands scheduled audit retention to the task queue
//   - tasks.AuditEventCleaner: audit retention
//
// # Adding a New Metadata Provider
//
//  1. Implement metadata.Provider in internal/metadata/
//
//     type WorldCatClient struct {
//         baseURL    string
//         httpClient *http.Client
//     }
//
//     func (c *WorldCatClient) Name() string
//     func (c *WorldCatClient) LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error)
//
//  2. Append it to the resolver chain in entrypoint.go. Providers are tried
//     in order and the first hit wins.
//
//  3. Add a compile-time check to checks.go.
//
// # Adding a New Background Task
//
//  1. Define the task type with a Config() method in internal/tasks/
//  2. Write a processor and a NewXQueue constructor
//  3. Register the queue in entrypoint.go and expose it in internal/http/tasks.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
