package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/services"
)

// OverdueScanner finds loans past their due date.
type OverdueScanner interface {
	ScanOverdue(ctx context.Context) (*services.OverdueReport, error)
}

// OverdueScanTask runs one overdue loan scan.
type OverdueScanTask struct{}

func (t OverdueScanTask) Config() backlite.QueueConfig {
	return queueConfig(QueueOverdueScan, 2, time.Minute, 5*time.Minute, 7*24*time.Hour)
}

// OverdueScanProcessor creates a processor function for OverdueScanTask.
func OverdueScanProcessor(scanner OverdueScanner, log logrus.FieldLogger) backlite.QueueProcessor[OverdueScanTask] {
	return func(ctx context.Context, task OverdueScanTask) error {
		if scanner == nil {
			return fmt.Errorf("overdue scanner not configured")
		}

		report, err := scanner.ScanOverdue(ctx)
		if err != nil {
			return fmt.Errorf("scan overdue loans: %w", err)
		}

		log.WithField("overdue", len(report.Loans)).Debug("overdue scan task finished")
		return nil
	}
}

// NewOverdueScanQueue creates a backlite queue for overdue scans.
func NewOverdueScanQueue(scanner OverdueScanner, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(OverdueScanProcessor(scanner, log))
}
