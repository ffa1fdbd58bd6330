package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"
)

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	log    logrus.FieldLogger

	started atomic.Bool
}

// TasksDBPath derives the queue database path, "library.db" becoming
// "library-tasks.db" in the same directory.
func TasksDBPath(mainDBPath string) string {
	ext := filepath.Ext(mainDBPath)
	return strings.TrimSuffix(mainDBPath, ext) + "-tasks" + ext
}

const tasksDSNParams = "?_journal=WAL&_timeout=5000&_busy_timeout=5000"

// NewClient opens the queue database, installs the backlite schema and
// returns a client ready for Register.
func NewClient(mainDBPath string, cfg Config, log logrus.FieldLogger) (*Client, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}

	path := TasksDBPath(mainDBPath)
	db, err := sql.Open("sqlite3", path+tasksDSNParams)
	if err != nil {
		return nil, fmt.Errorf("open task database %s: %w", path, err)
	}
	// Workers each hold a connection; the extra ones serve enqueues.
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	bl, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &logrusAdapter{log: log.WithField("component", "tasks")},
	})
	if err == nil {
		err = bl.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	return &Client{client: bl, db: db, config: cfg, log: log}, nil
}

// Register adds queues. Queues registered after Start are not served.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start launches the workers and returns immediately. Repeat calls are no-ops.
func (c *Client) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.log.WithField("workers", c.config.Workers).Info("task workers running")
	c.client.Start(ctx)
}

// Stop waits for running tasks until ctx expires and reports whether every
// worker finished in time.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.started.Load() {
		return true
	}

	done := c.client.Stop(ctx)
	entry := c.log.WithField("clean", done)
	if done {
		entry.Info("task workers stopped")
	} else {
		entry.Warn("task workers abandoned before finishing")
	}
	return done
}

// Close closes the queue database. Call it after Stop.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// Enqueue saves a single task and returns its ID.
func (c *Client) Enqueue(task backlite.Task) (string, error) {
	ids, err := c.client.Add(task).Save()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no task id returned")
	}
	return ids[0], nil
}

// EnqueueEnrichBook schedules background metadata enrichment for a book.
func (c *Client) EnqueueEnrichBook(bookID string) error {
	_, err := c.Enqueue(EnrichBookTask{BookID: bookID})
	return err
}

// EnqueueOverdueScan schedules an overdue loan scan.
func (c *Client) EnqueueOverdueScan() (string, error) {
	return c.Enqueue(OverdueScanTask{})
}

// EnqueueAuditCleanup schedules deletion of audit events past the configured retention.
func (c *Client) EnqueueAuditCleanup() (string, error) {
	return c.Enqueue(CleanupAuditEventsTask{RetentionDays: c.config.AuditRetentionDays})
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// logrusAdapter implements backlite.Logger.
type logrusAdapter struct {
	log logrus.FieldLogger
}

func (l *logrusAdapter) Info(message string, params ...any) {
	l.log.WithFields(paramFields(params)).Info(message)
}

func (l *logrusAdapter) Error(message string, params ...any) {
	l.log.WithFields(paramFields(params)).Error(message)
}

// paramFields turns backlite's alternating key/value params into logrus fields.
func paramFields(params []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(params); i += 2 {
		key, ok := params[i].(string)
		if !ok {
			key = fmt.Sprint(params[i])
		}
		fields[key] = params[i+1]
	}
	if len(params)%2 == 1 {
		fields["extra"] = params[len(params)-1]
	}
	return fields
}
