package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"
)

// EnrichAllBooksTask retries enrichment for every book still carrying placeholder data.
type EnrichAllBooksTask struct{}

func (t EnrichAllBooksTask) Config() backlite.QueueConfig {
	return queueConfig(QueueEnrichAllBooks, 1, time.Minute, time.Hour, 24*time.Hour)
}

func EnrichAllBooksProcessor(enricher BookEnricher, log logrus.FieldLogger) backlite.QueueProcessor[EnrichAllBooksTask] {
	return func(ctx context.Context, _ EnrichAllBooksTask) error {
		if enricher == nil {
			return errNoEnricher
		}

		res, err := enricher.EnrichAllPlaceholders(ctx)
		if err != nil {
			return fmt.Errorf("bulk enrichment: %w", err)
		}

		log.WithFields(logrus.Fields{
			"total":    res.TotalBooks,
			"enriched": res.Enriched,
			"skipped":  res.Skipped,
			"failed":   res.Failed,
		}).Info("placeholder books refreshed")
		return nil
	}
}

func NewEnrichAllBooksQueue(enricher BookEnricher, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(EnrichAllBooksProcessor(enricher, log))
}
