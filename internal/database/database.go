package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// sqliteParams makes every write transaction take the RESERVED lock at BEGIN,
// so concurrent writers queue on the busy timeout instead of failing on upgrade.
const sqliteParams = "_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL"

type Database struct {
	DB *gorm.DB
}

// Repositories groups the per-domain repositories bound to one gorm handle,
// either the base connection or an open transaction.
type Repositories struct {
	Users *users.Repository
	Books *books.Repository
	Loans *loans.Repository
	Audit *audit.Repository
}

func newRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users: users.NewRepository(db),
		Books: books.NewRepository(db),
		Loans: loans.NewRepository(db),
		Audit: audit.NewRepository(db),
	}
}

func NewDatabase(dbPath string, logLevel logger.LogLevel) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(buildDSN(dbPath)), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Loan{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{DB: db}, nil
}

func buildDSN(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + sqliteParams
	}
	return dbPath + "?" + sqliteParams
}

// Repositories returns repositories outside of any transaction.
func (d *Database) Repositories(ctx context.Context) *Repositories {
	return newRepositories(d.DB.WithContext(ctx))
}

// Transaction runs fn with repositories bound to a single transaction.
// Returning an error from fn rolls everything back.
func (d *Database) Transaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
