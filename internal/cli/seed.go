package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/logging"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/services"
)

// DefaultSeedISBNs is a catalogue of well known titles.
var DefaultSeedISBNs = []string{
	"9780061120084", "9780451524935", "9780141439518", "9780743273565",
	"9780316769174", "9780571056866", "9780544003415", "9780747532699",
	"9780547928227", "9781451673319", "9780141441146", "9780141439556",
	"9780066238500", "9780060850524", "9780141439570", "9780451526342",
	"9780061122415", "9780060883287", "9781594631931", "9780375842207",
	"9780156027328", "9780385504201", "9780439023528", "9780307269751",
	"9780307588364", "9780525478812", "9780345803481", "9780399155345",
	"9781565125605", "9780156029438", "9780316666343", "9780679781585",
	"9780142001745", "9780060175405", "9780385512107", "9780385618670",
	"9780316055437", "9781476746586", "9780385490818", "9780399167065",
	"9780735219090", "9780399590504", "9781524763138", "9781501139239",
	"9781984822178", "9781250301697", "9780316556347", "9780525559474",
	"9780593135204", "9780241425442",
}

// BookSeeder creates one book from an ISBN, reporting whether metadata was found.
type BookSeeder interface {
	CreateFromISBN(ctx context.Context, isbn string, ownerID *string) (*entities.Book, bool, error)
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Resolved     int
	Placeholders int
	Failed       int
}

func (r SeedResult) Total() int {
	return r.Resolved + r.Placeholders
}

type SeedCommand struct {
	DatabasePath string
	ISBNs        string
	Reset        bool
	Delay        time.Duration
	Verbose      bool
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.ISBNs, "isbns", "", "Comma separated ISBNs to seed (default: built-in catalogue)")
	fs.BoolVar(&cmd.Reset, "reset", false, "Delete all books and loans before seeding")
	fs.DurationVar(&cmd.Delay, "delay", 100*time.Millisecond, "Pause between metadata lookups")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Populate the catalogue by resolving ISBNs through the metadata providers.\n")
		fmt.Fprintf(os.Stderr, "ISBNs that cannot be resolved are stored as placeholder books.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s seed -reset\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s seed -db ./library.db -isbns 9780547928227,9780593135204\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *SeedCommand) Run() error {
	cfg := config.NewConfig()
	level := cfg.Log.Level
	if cmd.Verbose {
		level = "debug"
	}
	log := logging.NewLogger(level, logging.FormatFor(cfg.Env, cfg.Log.Format))

	db, err := database.NewDatabase(cmd.DatabasePath, logger.Silent)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if cmd.Reset {
		err := db.Transaction(ctx, func(repos *database.Repositories) error {
			if _, err := repos.Loans.DeleteAll(); err != nil {
				return err
			}
			_, err := repos.Books.DeleteAll()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to reset catalogue: %w", err)
		}
		fmt.Println("Cleared existing books and loans")
	}

	resolver := metadata.NewResolver(
		cfg.Metadata.Timeout,
		log.WithField("component", "metadata"),
		metadata.NewGoogleBooksClient(cfg.Metadata.GoogleBooksURL),
		metadata.NewOpenLibraryClient(cfg.Metadata.OpenLibraryURL),
	)
	books := services.NewBookService(services.BookServiceConfig{
		Store:    db,
		Resolver: resolver,
		Log:      log,
	})

	isbns := parseISBNList(cmd.ISBNs)
	if len(isbns) == 0 {
		isbns = DefaultSeedISBNs
	}

	result := SeedBooks(ctx, books, isbns, cmd.Delay, os.Stdout)

	fmt.Printf("\n=== Seed Summary ===\n")
	fmt.Printf("Resolved:     %d\n", result.Resolved)
	fmt.Printf("Placeholders: %d\n", result.Placeholders)
	fmt.Printf("Failed:       %d\n", result.Failed)
	fmt.Printf("Books added:  %d\n", result.Total())

	if result.Failed > 0 && result.Total() == 0 {
		return fmt.Errorf("no books were created")
	}
	return nil
}

// SeedBooks creates one book per ISBN, pausing delay between lookups.
func SeedBooks(ctx context.Context, seeder BookSeeder, isbns []string, delay time.Duration, out io.Writer) SeedResult {
	var result SeedResult
	for i, isbn := range isbns {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}

		book, found, err := seeder.CreateFromISBN(ctx, isbn, nil)
		switch {
		case err != nil:
			result.Failed++
			fmt.Fprintf(out, "[%d/%d] %s: failed: %v\n", i+1, len(isbns), isbn, err)
		case found:
			result.Resolved++
			fmt.Fprintf(out, "[%d/%d] %s: %q by %s\n", i+1, len(isbns), isbn, book.Title, book.Author)
		default:
			result.Placeholders++
			fmt.Fprintf(out, "[%d/%d] %s: not found, stored placeholder\n", i+1, len(isbns), isbn)
		}
	}
	return result
}

func parseISBNList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ReplaceAll(strings.TrimSpace(part), "-", "")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
