package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/metadata"
)

// BookEnricher upgrades stored books with fetched metadata.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID string) (*metadata.EnrichmentResult, error)
	EnrichAllPlaceholders(ctx context.Context) (*metadata.BulkEnrichmentResult, error)
}

var errNoEnricher = errors.New("no book enricher registered")

// EnrichBookTask refreshes one book from the metadata providers.
type EnrichBookTask struct {
	BookID string `json:"book_id"`
}

func (t EnrichBookTask) Config() backlite.QueueConfig {
	return queueConfig(QueueEnrichBook, 3, 30*time.Second, 2*time.Minute, 24*time.Hour)
}

// EnrichBookProcessor logs which fields changed, if any.
func EnrichBookProcessor(enricher BookEnricher, log logrus.FieldLogger) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return errNoEnricher
		}

		res, err := enricher.EnrichBook(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("enrich book %s: %w", task.BookID, err)
		}

		fields := logrus.Fields{"book_id": task.BookID, "title": res.Book.Title}
		if len(res.FieldsUpdated) == 0 {
			log.WithFields(fields).Info("book metadata already current")
			return nil
		}
		fields["fields"] = res.FieldsUpdated
		fields["source"] = res.Source
		log.WithFields(fields).Info("book enriched")
		return nil
	}
}

func NewEnrichBookQueue(enricher BookEnricher, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher, log))
}
