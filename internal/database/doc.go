// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, transaction scope
//	├── users/           # User CRUD and filtering
//	├── books/           # Book CRUD, status guards, ownership
//	├── loans/           # Loan lifecycle writes and overdue queries
//	└── audit/           # Audit event log
//
// # Transactions
//
// Multi-entity operations go through Database.Transaction, which hands the
// callback a Repositories set bound to the transaction handle:
//
//	err := db.Transaction(ctx, func(repos *database.Repositories) error {
//		book, err := repos.Books.GetByID(bookID)
//		if err != nil {
//			return err
//		}
//		...
//		return repos.Loans.Create(loan)
//	})
//
// SQLite is opened with _txlock=immediate and a busy timeout, so write
// transactions serialize. Status transitions additionally use guarded
// updates (MarkLent, MarkReturned) that report whether a row changed.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add it to Repositories in database.go
package database
